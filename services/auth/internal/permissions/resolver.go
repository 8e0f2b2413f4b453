package permissions

import (
	"context"
	"fmt"
	"sort"

	"github.com/complyhub/platform/pkg/tokens"
	"github.com/complyhub/platform/services/auth/internal/models"
	"github.com/google/uuid"
)

// RoleGraph is the read side of the Credential Store the resolver walks.
type RoleGraph interface {
	RolesForUser(ctx context.Context, userID uuid.UUID) ([]models.Role, error)
	PermissionsForRole(ctx context.Context, roleID uuid.UUID) ([]models.Permission, error)
}

type Resolver struct {
	Graph RoleGraph
}

// Resolve flattens every permission reachable through the user's roles.
// Each (resource, action) appears once; the result is sorted for stable
// token payloads. A user with no roles gets an empty, non-nil slice.
func (r *Resolver) Resolve(ctx context.Context, userID uuid.UUID) ([]tokens.Permission, error) {
	roles, err := r.Graph.RolesForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load roles: %w", err)
	}

	seen := make(map[tokens.Permission]struct{})
	out := make([]tokens.Permission, 0)
	for _, role := range roles {
		perms, err := r.Graph.PermissionsForRole(ctx, role.ID)
		if err != nil {
			return nil, fmt.Errorf("load permissions for role %s: %w", role.ID, err)
		}
		for _, p := range perms {
			key := tokens.Permission{Resource: p.Resource, Action: p.Action}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, key)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Resource != out[j].Resource {
			return out[i].Resource < out[j].Resource
		}
		return out[i].Action < out[j].Action
	})
	return out, nil
}
