package repo

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/complyhub/platform/pkg/db"
	"github.com/complyhub/platform/services/auth/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) *GormRepo {
	t.Helper()
	dsn := fmt.Sprintf("file:repo_%s?mode=memory&cache=shared", uuid.NewString())
	gdb, err := db.Open(context.Background(), db.DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(gdb) })

	r := New(gdb)
	require.NoError(t, r.Migrate(context.Background()))
	return r
}

func TestGormRepo_Users(t *testing.T) {
	t.Parallel()
	r := newTestRepo(t)
	ctx := context.Background()

	t1, err := r.UpsertTenant(ctx, "acme", true)
	require.NoError(t, err)
	t2, err := r.UpsertTenant(ctx, "globex", false)
	require.NoError(t, err)
	assert.False(t, t2.IsActive)

	u1 := &models.User{TenantID: t1.ID, Email: "A@x.com", PasswordHash: "h", FirstName: "A", LastName: "B", IsActive: true}
	require.NoError(t, r.CreateUserIfNotExists(ctx, u1))
	assert.Equal(t, "a@x.com", u1.Email)

	dup := &models.User{TenantID: t1.ID, Email: "a@x.com", PasswordHash: "h2", FirstName: "C", LastName: "D"}
	assert.ErrorIs(t, r.CreateUserIfNotExists(ctx, dup), ErrDuplicate)

	other := &models.User{TenantID: t2.ID, Email: "a@x.com", PasswordHash: "h", FirstName: "E", LastName: "F", IsActive: true}
	require.NoError(t, r.CreateUserIfNotExists(ctx, other))

	users, err := r.FindUsersByEmail(ctx, " A@X.com ")
	require.NoError(t, err)
	require.Len(t, users, 2)
	for _, u := range users {
		require.NotNil(t, u.Tenant)
	}

	got, err := r.FindUserByTenantEmail(ctx, t2.ID, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, other.ID, got.ID)
	assert.False(t, got.Tenant.IsActive)

	_, err = r.FindUserByTenantEmail(ctx, uuid.New(), "a@x.com")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = r.FindUserByID(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = r.FindTenant(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, r.TouchLastLogin(ctx, u1.ID, at))
	got, err = r.FindUserByID(ctx, u1.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastLoginAt)
	assert.True(t, at.Equal(*got.LastLoginAt))
}

func TestGormRepo_RolesAndPermissions(t *testing.T) {
	t.Parallel()
	r := newTestRepo(t)
	ctx := context.Background()

	tenant, err := r.UpsertTenant(ctx, "acme", true)
	require.NoError(t, err)
	u, err := r.UpsertUser(ctx, &models.User{TenantID: tenant.ID, Email: "u@x.com", PasswordHash: "h", FirstName: "U", LastName: "U", IsActive: true})
	require.NoError(t, err)

	read, err := r.UpsertPermission(ctx, "policy", "read")
	require.NoError(t, err)
	again, err := r.UpsertPermission(ctx, "policy", "read")
	require.NoError(t, err)
	assert.Equal(t, read.ID, again.ID)

	role, err := r.UpsertRole(ctx, tenant.ID, "viewer", "")
	require.NoError(t, err)
	require.NoError(t, r.GrantPermission(ctx, role.ID, read.ID))
	require.NoError(t, r.GrantPermission(ctx, role.ID, read.ID))
	require.NoError(t, r.AssignRole(ctx, u.ID, role.ID))
	require.NoError(t, r.AssignRole(ctx, u.ID, role.ID))

	roles, err := r.RolesForUser(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, roles, 1)
	assert.Equal(t, "viewer", roles[0].Name)

	perms, err := r.PermissionsForRole(ctx, role.ID)
	require.NoError(t, err)
	require.Len(t, perms, 1)
	assert.Equal(t, "policy", perms[0].Resource)

	none, err := r.RolesForUser(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestGormRepo_UpsertUserUpdatesInPlace(t *testing.T) {
	t.Parallel()
	r := newTestRepo(t)
	ctx := context.Background()

	tenant, err := r.UpsertTenant(ctx, "acme", true)
	require.NoError(t, err)
	first, err := r.UpsertUser(ctx, &models.User{TenantID: tenant.ID, Email: "u@x.com", PasswordHash: "h1", FirstName: "U", LastName: "U", IsActive: true})
	require.NoError(t, err)
	second, err := r.UpsertUser(ctx, &models.User{TenantID: tenant.ID, Email: "u@x.com", PasswordHash: "h2", FirstName: "V", LastName: "U", IsActive: false})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	got, err := r.FindUserByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "h2", got.PasswordHash)
	assert.Equal(t, "V", got.FirstName)
	assert.False(t, got.IsActive)

	deactivated, err := r.UpsertTenant(ctx, "acme", false)
	require.NoError(t, err)
	assert.Equal(t, tenant.ID, deactivated.ID)
	reloaded, err := r.FindTenant(ctx, tenant.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.IsActive)
}

func TestGormRepo_Sessions(t *testing.T) {
	t.Parallel()
	r := newTestRepo(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	userID := uuid.New()

	live := &models.Session{UserID: userID, Token: "tok-a", RefreshToken: "ref-a", ExpiresAt: now.Add(time.Hour)}
	stale := &models.Session{UserID: userID, Token: "tok-b", RefreshToken: "ref-b", ExpiresAt: now.Add(-time.Hour)}
	require.NoError(t, r.CreateSession(ctx, live))
	require.NoError(t, r.CreateSession(ctx, stale))
	assert.NotEqual(t, uuid.Nil, live.ID)

	got, err := r.FindSessionByToken(ctx, "tok-a")
	require.NoError(t, err)
	assert.Equal(t, live.ID, got.ID)

	got, err = r.FindSessionByRefreshToken(ctx, "ref-a")
	require.NoError(t, err)
	assert.Equal(t, live.ID, got.ID)

	require.NoError(t, r.UpdateSessionToken(ctx, live.ID, "tok-a2"))
	_, err = r.FindSessionByToken(ctx, "tok-a")
	assert.ErrorIs(t, err, ErrNotFound)
	got, err = r.FindSessionByToken(ctx, "tok-a2")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Rotation)

	assert.ErrorIs(t, r.UpdateSessionToken(ctx, uuid.New(), "x"), ErrNotFound)

	n, err := r.DeleteExpiredSessions(ctx, now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = r.DeleteSessionsByToken(ctx, "tok-a2")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = r.DeleteSessionsByToken(ctx, "tok-a2")
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)
}

func TestGormRepo_AuditLogs(t *testing.T) {
	t.Parallel()
	r := newTestRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	acme, other := uuid.New(), uuid.New()

	require.NoError(t, r.CreateAuditLog(ctx, &models.AuditLog{ID: "01A", TenantID: &acme, Action: "LOGIN", Resource: "auth", CreatedAt: base}))
	require.NoError(t, r.CreateAuditLog(ctx, &models.AuditLog{ID: "01B", TenantID: &acme, Action: "LOGOUT", Resource: "auth", CreatedAt: base.Add(time.Second)}))
	require.NoError(t, r.CreateAuditLog(ctx, &models.AuditLog{ID: "01C", TenantID: &other, Action: "LOGIN", Resource: "auth", CreatedAt: base.Add(2 * time.Second)}))
	require.NoError(t, r.CreateAuditLog(ctx, &models.AuditLog{ID: "01D", Action: "LOGIN_FAILED", Resource: "auth", CreatedAt: base.Add(3 * time.Second)}))

	tests := []struct {
		name string
		q    AuditQuery
		want []string
	}{
		{"everything", AuditQuery{}, []string{"01D", "01C", "01B", "01A"}},
		{"one tenant", AuditQuery{TenantID: acme}, []string{"01B", "01A"}},
		{"tenant and action", AuditQuery{TenantID: acme, Action: "LOGIN"}, []string{"01A"}},
		{"limited", AuditQuery{Action: "LOGIN", Limit: 1}, []string{"01C"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.ListAuditLogs(ctx, tt.q)
			require.NoError(t, err)
			ids := make([]string, 0, len(got))
			for _, l := range got {
				ids = append(ids, l.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestGormRepo_Directory(t *testing.T) {
	t.Parallel()
	r := newTestRepo(t)
	ctx := context.Background()

	tenant, err := r.UpsertTenant(ctx, "acme", true)
	require.NoError(t, err)
	other, err := r.UpsertTenant(ctx, "globex", true)
	require.NoError(t, err)
	for _, e := range []string{"c@x.com", "a@x.com", "b@x.com"} {
		_, err := r.UpsertUser(ctx, &models.User{TenantID: tenant.ID, Email: e, PasswordHash: "h", FirstName: "F", LastName: "L", IsActive: true})
		require.NoError(t, err)
	}
	_, err = r.UpsertUser(ctx, &models.User{TenantID: other.ID, Email: "z@x.com", PasswordHash: "h", FirstName: "F", LastName: "L", IsActive: true})
	require.NoError(t, err)

	total, users, err := r.ListUsers(ctx, tenant.ID, 1, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, users, 1)
	assert.Equal(t, "b@x.com", users[0].Email)

	_, err = r.UpsertRole(ctx, tenant.ID, "viewer", "")
	require.NoError(t, err)
	_, err = r.UpsertRole(ctx, tenant.ID, "admin", "all")
	require.NoError(t, err)
	_, err = r.UpsertRole(ctx, other.ID, "ghost", "")
	require.NoError(t, err)

	roles, err := r.ListRoles(ctx, tenant.ID)
	require.NoError(t, err)
	require.Len(t, roles, 2)
	assert.Equal(t, "admin", roles[0].Name)
}
