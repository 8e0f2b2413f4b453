package seed

import (
	"context"
	"fmt"
	"io"
	"strings"

	pkghash "github.com/complyhub/platform/pkg/hash"
	"github.com/complyhub/platform/services/auth/internal/models"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// File is the YAML document read by the seed tool.
type File struct {
	Tenants []Tenant `yaml:"tenants"`
}

type Tenant struct {
	Name   string `yaml:"name"`
	Active *bool  `yaml:"active"`
	Roles  []Role `yaml:"roles"`
	Users  []User `yaml:"users"`
}

type Role struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Permissions []string `yaml:"permissions"`
}

type User struct {
	Email     string   `yaml:"email"`
	Password  string   `yaml:"password"`
	FirstName string   `yaml:"firstName"`
	LastName  string   `yaml:"lastName"`
	Active    *bool    `yaml:"active"`
	Roles     []string `yaml:"roles"`
}

type Store interface {
	UpsertTenant(ctx context.Context, name string, active bool) (*models.Tenant, error)
	UpsertPermission(ctx context.Context, resource, action string) (*models.Permission, error)
	UpsertRole(ctx context.Context, tenantID uuid.UUID, name, description string) (*models.Role, error)
	GrantPermission(ctx context.Context, roleID, permissionID uuid.UUID) error
	UpsertUser(ctx context.Context, u *models.User) (*models.User, error)
	AssignRole(ctx context.Context, userID, roleID uuid.UUID) error
}

type Summary struct {
	Tenants     int
	Roles       int
	Permissions int
	Users       int
}

func Parse(r io.Reader) (*File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	return &f, nil
}

func parsePermission(s string) (resource, action string, err error) {
	resource, action, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || resource == "" || action == "" {
		return "", "", fmt.Errorf("permission %q must look like resource:action", s)
	}
	return resource, action, nil
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

// Apply upserts everything in f. Running it twice leaves the store unchanged
// apart from refreshed password hashes.
func Apply(ctx context.Context, st Store, f *File, bcryptCost int) (Summary, error) {
	var sum Summary
	perms := map[string]uuid.UUID{}

	for _, t := range f.Tenants {
		tenant, err := st.UpsertTenant(ctx, t.Name, boolOr(t.Active, true))
		if err != nil {
			return sum, fmt.Errorf("tenant %s: %w", t.Name, err)
		}
		sum.Tenants++

		roles := map[string]uuid.UUID{}
		for _, r := range t.Roles {
			role, err := st.UpsertRole(ctx, tenant.ID, r.Name, r.Description)
			if err != nil {
				return sum, fmt.Errorf("role %s/%s: %w", t.Name, r.Name, err)
			}
			roles[r.Name] = role.ID
			sum.Roles++

			for _, p := range r.Permissions {
				id, ok := perms[p]
				if !ok {
					res, act, err := parsePermission(p)
					if err != nil {
						return sum, err
					}
					perm, err := st.UpsertPermission(ctx, res, act)
					if err != nil {
						return sum, fmt.Errorf("permission %s: %w", p, err)
					}
					id = perm.ID
					perms[p] = id
					sum.Permissions++
				}
				if err := st.GrantPermission(ctx, role.ID, id); err != nil {
					return sum, fmt.Errorf("grant %s to %s: %w", p, r.Name, err)
				}
			}
		}

		for _, u := range t.Users {
			if u.Password == "" {
				return sum, fmt.Errorf("user %s: password is required", u.Email)
			}
			pw, err := pkghash.HashPassword(u.Password, bcryptCost)
			if err != nil {
				return sum, fmt.Errorf("user %s: %w", u.Email, err)
			}
			user, err := st.UpsertUser(ctx, &models.User{
				TenantID:     tenant.ID,
				Email:        u.Email,
				PasswordHash: pw,
				FirstName:    u.FirstName,
				LastName:     u.LastName,
				IsActive:     boolOr(u.Active, true),
			})
			if err != nil {
				return sum, fmt.Errorf("user %s: %w", u.Email, err)
			}
			sum.Users++

			for _, name := range u.Roles {
				roleID, ok := roles[name]
				if !ok {
					return sum, fmt.Errorf("user %s: role %q is not defined for tenant %s", u.Email, name, t.Name)
				}
				if err := st.AssignRole(ctx, user.ID, roleID); err != nil {
					return sum, fmt.Errorf("assign %s to %s: %w", name, u.Email, err)
				}
			}
		}
	}
	return sum, nil
}
