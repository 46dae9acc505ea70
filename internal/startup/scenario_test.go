package startup

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aegis-id/aegis/internal/permissions"
	"github.com/aegis-id/aegis/internal/roles"
	"github.com/aegis-id/aegis/internal/users"
)

// Exercises the full administrative flow after seeding: a new permission
// and role are provisioned, bound, and granted to a user, and the user's
// effective permissions follow the role chain.
func TestProvisionAuditorFlow(t *testing.T) {
	s := newStore()
	ctx := context.Background()
	require.NoError(t, newSeeder(s).Run(ctx))

	permSvc := permissions.NewService(permRepo{s: s})
	roleSvc := roles.NewService(roleRepo{s: s})
	userSvc := users.NewService(userRepo{s: s}, "empty")

	perm, err := permSvc.Create(ctx, permissions.CreatePermission{Name: "report:read"})
	require.NoError(t, err)

	role, err := roleSvc.Create(ctx, roles.CreateRole{Name: "auditor"})
	require.NoError(t, err)
	require.NoError(t, roleSvc.Bind(ctx, role.ID, perm.ID))

	user, err := userSvc.Create(ctx, users.CreateUser{
		Email:    "carol@example.com",
		Password: "carol-pass",
	})
	require.NoError(t, err)

	emptyRole, err := roleSvc.GetIDByName(ctx, "empty")
	require.NoError(t, err)
	require.Equal(t, emptyRole, user.RoleID)

	granted, err := roleSvc.ResolvePermissions(ctx, user.RoleID)
	require.NoError(t, err)
	require.Empty(t, granted)

	reassigned, err := userSvc.ChangeRole(ctx, user.ID, role.ID)
	require.NoError(t, err)
	require.Equal(t, "auditor", reassigned.RoleName)

	granted, err = roleSvc.ResolvePermissions(ctx, reassigned.RoleID)
	require.NoError(t, err)
	require.Equal(t, []string{"report:read"}, granted)
}
