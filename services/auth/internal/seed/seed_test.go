package seed

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/complyhub/platform/pkg/db"
	"github.com/complyhub/platform/services/auth/internal/permissions"
	"github.com/complyhub/platform/services/auth/internal/repo"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const doc = `
tenants:
  - name: Acme
    roles:
      - name: editor
        permissions: ["policy:read", "policy:publish"]
      - name: reviewer
        permissions: ["policy:read"]
    users:
      - email: Ada@Acme.io
        password: Secret123
        firstName: Ada
        lastName: Lovelace
        roles: [editor, reviewer]
  - name: Dormant
    active: false
`

func TestParseAndApply(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	gdb, err := db.Open(ctx, db.DriverSQLite, fmt.Sprintf("file:seed_%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(gdb) })
	r := repo.New(gdb)
	require.NoError(t, r.Migrate(ctx))

	f, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, f.Tenants, 2)

	sum, err := Apply(ctx, r, f, bcrypt.MinCost)
	require.NoError(t, err)
	assert.Equal(t, Summary{Tenants: 2, Roles: 2, Permissions: 2, Users: 1}, sum)

	_, err = Apply(ctx, r, f, bcrypt.MinCost)
	require.NoError(t, err)

	users, err := r.FindUsersByEmail(ctx, "ada@acme.io")
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.True(t, users[0].IsActive)

	got, err := (&permissions.Resolver{Graph: r}).Resolve(ctx, users[0].ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "policy:publish", got[0].String())
	assert.Equal(t, "policy:read", got[1].String())
}

func TestParse_RejectsUnknownFields(t *testing.T) {
	t.Parallel()
	_, err := Parse(strings.NewReader("tenants:\n  - name: A\n    colour: red\n"))
	assert.Error(t, err)
}

func TestApply_Errors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	gdb, err := db.Open(ctx, db.DriverSQLite, fmt.Sprintf("file:seed_%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(gdb) })
	r := repo.New(gdb)
	require.NoError(t, r.Migrate(ctx))

	tests := []struct {
		name string
		file File
		want string
	}{
		{
			name: "malformed permission",
			file: File{Tenants: []Tenant{{Name: "A", Roles: []Role{{Name: "r", Permissions: []string{"policy"}}}}}},
			want: "resource:action",
		},
		{
			name: "undefined role",
			file: File{Tenants: []Tenant{{Name: "B", Users: []User{{Email: "x@b.io", Password: "Secret123", Roles: []string{"ghost"}}}}}},
			want: "not defined",
		},
		{
			name: "missing password",
			file: File{Tenants: []Tenant{{Name: "C", Users: []User{{Email: "y@c.io"}}}}},
			want: "password is required",
		},
	}
	for _, tt := range tests {
		_, err := Apply(ctx, r, &tt.file, bcrypt.MinCost)
		assert.ErrorContains(t, err, tt.want, tt.name)
	}
}
