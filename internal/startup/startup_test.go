package startup

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/aegis-id/aegis/internal/permissions"
	"github.com/aegis-id/aegis/internal/roles"
	"github.com/aegis-id/aegis/internal/shared"
	"github.com/aegis-id/aegis/internal/users"
)

// store is a single in-memory backing store shared by the three
// repository fakes so cross-entity lookups line up.
type store struct {
	perms    map[uuid.UUID]permissions.Permission
	roles    map[uuid.UUID]roles.Role
	users    map[uuid.UUID]users.User
	bindings map[uuid.UUID]map[uuid.UUID]bool // roleID -> permissionID set
}

func newStore() *store {
	return &store{
		perms:    make(map[uuid.UUID]permissions.Permission),
		roles:    make(map[uuid.UUID]roles.Role),
		users:    make(map[uuid.UUID]users.User),
		bindings: make(map[uuid.UUID]map[uuid.UUID]bool),
	}
}

type permRepo struct{ s *store }

func (r permRepo) WithTx(ctx context.Context, fn func(context.Context, permissions.Repository) error) error {
	return fn(ctx, r)
}

func (r permRepo) Create(ctx context.Context, in permissions.CreatePermission) (permissions.Permission, error) {
	for _, p := range r.s.perms {
		if p.Name == in.Name {
			return permissions.Permission{}, shared.ErrConflict
		}
	}
	p := permissions.Permission{ID: uuid.New(), Name: in.Name, Description: in.Description, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	r.s.perms[p.ID] = p
	return p, nil
}

func (r permRepo) Get(ctx context.Context, id uuid.UUID) (permissions.Permission, error) {
	p, ok := r.s.perms[id]
	if !ok {
		return permissions.Permission{}, shared.ErrNotFound
	}
	return p, nil
}

func (r permRepo) List(ctx context.Context) ([]permissions.Permission, error) { return nil, nil }

func (r permRepo) Update(ctx context.Context, id uuid.UUID, in permissions.UpdatePermission) (permissions.Permission, error) {
	return permissions.Permission{}, shared.ErrNotFound
}

func (r permRepo) Delete(ctx context.Context, id uuid.UUID) error         { return nil }
func (r permRepo) DeleteBindings(ctx context.Context, id uuid.UUID) error { return nil }

func (r permRepo) GetIDByName(ctx context.Context, name string) (uuid.UUID, error) {
	for id, p := range r.s.perms {
		if p.Name == name {
			return id, nil
		}
	}
	return uuid.Nil, shared.ErrNotFound
}

func (r permRepo) Count(ctx context.Context) (int64, error) { return int64(len(r.s.perms)), nil }

type roleRepo struct{ s *store }

func (r roleRepo) WithTx(ctx context.Context, fn func(context.Context, roles.Repository) error) error {
	return fn(ctx, r)
}

func (r roleRepo) Create(ctx context.Context, in roles.CreateRole) (roles.Role, error) {
	for _, existing := range r.s.roles {
		if existing.Name == in.Name {
			return roles.Role{}, shared.ErrConflict
		}
	}
	role := roles.Role{ID: uuid.New(), Name: in.Name, Description: in.Description, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	r.s.roles[role.ID] = role
	return role, nil
}

func (r roleRepo) Get(ctx context.Context, id uuid.UUID) (roles.Role, error) {
	role, ok := r.s.roles[id]
	if !ok {
		return roles.Role{}, shared.ErrNotFound
	}
	return role, nil
}

func (r roleRepo) List(ctx context.Context) ([]roles.Role, error) { return nil, nil }

func (r roleRepo) Update(ctx context.Context, id uuid.UUID, in roles.UpdateRole) (roles.Role, error) {
	return roles.Role{}, shared.ErrNotFound
}

func (r roleRepo) Delete(ctx context.Context, id uuid.UUID) error         { return nil }
func (r roleRepo) DeleteBindings(ctx context.Context, id uuid.UUID) error { return nil }

func (r roleRepo) GetIDByName(ctx context.Context, name string) (uuid.UUID, error) {
	for id, role := range r.s.roles {
		if role.Name == name {
			return id, nil
		}
	}
	return uuid.Nil, shared.ErrNotFound
}

func (r roleRepo) Count(ctx context.Context) (int64, error) { return int64(len(r.s.roles)), nil }

func (r roleRepo) GetWithPermissions(ctx context.Context, id uuid.UUID) (roles.RoleWithPermissions, error) {
	return roles.RoleWithPermissions{}, shared.ErrNotFound
}

func (r roleRepo) ResolvePermissions(ctx context.Context, id uuid.UUID) ([]string, error) {
	var names []string
	for permID := range r.s.bindings[id] {
		names = append(names, r.s.perms[permID].Name)
	}
	return names, nil
}

func (r roleRepo) Bind(ctx context.Context, roleID, permissionID uuid.UUID) error {
	if _, ok := r.s.roles[roleID]; !ok {
		return shared.ErrNotFound
	}
	if _, ok := r.s.perms[permissionID]; !ok {
		return shared.ErrNotFound
	}
	if r.s.bindings[roleID] == nil {
		r.s.bindings[roleID] = make(map[uuid.UUID]bool)
	}
	if r.s.bindings[roleID][permissionID] {
		return shared.ErrConflict
	}
	r.s.bindings[roleID][permissionID] = true
	return nil
}

func (r roleRepo) Unbind(ctx context.Context, roleID, permissionID uuid.UUID) error {
	delete(r.s.bindings[roleID], permissionID)
	return nil
}

type userRepo struct{ s *store }

func (r userRepo) WithTx(ctx context.Context, fn func(context.Context, users.Repository) error) error {
	return fn(ctx, r)
}

func (r userRepo) Insert(ctx context.Context, user users.User) (users.User, error) {
	for _, u := range r.s.users {
		if u.Email == user.Email {
			return users.User{}, shared.ErrConflict
		}
	}
	user.ID = uuid.New()
	user.IsActive = true
	r.s.users[user.ID] = user
	return user, nil
}

func (r userRepo) Get(ctx context.Context, id uuid.UUID) (users.User, error) {
	u, ok := r.s.users[id]
	if !ok {
		return users.User{}, shared.ErrNotFound
	}
	return u, nil
}

func (r userRepo) GetByEmail(ctx context.Context, email string) (users.User, error) {
	for _, u := range r.s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return users.User{}, shared.ErrNotFound
}

func (r userRepo) List(ctx context.Context) ([]users.User, error) { return nil, nil }

func (r userRepo) Update(ctx context.Context, id uuid.UUID, in users.UpdateUser) (users.User, error) {
	return users.User{}, shared.ErrNotFound
}

func (r userRepo) Delete(ctx context.Context, id uuid.UUID) error { return nil }
func (r userRepo) Count(ctx context.Context) (int64, error)       { return int64(len(r.s.users)), nil }

func (r userRepo) GetWithRole(ctx context.Context, id uuid.UUID) (users.UserWithRole, error) {
	u, ok := r.s.users[id]
	if !ok {
		return users.UserWithRole{}, shared.ErrNotFound
	}
	return users.UserWithRole{User: u, RoleName: r.s.roles[u.RoleID].Name}, nil
}

func (r userRepo) SetRole(ctx context.Context, id, roleID uuid.UUID) error {
	u, ok := r.s.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	u.RoleID = roleID
	r.s.users[id] = u
	return nil
}

func (r userRepo) SetPasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	return nil
}

func (r userRepo) RoleIDByName(ctx context.Context, name string) (uuid.UUID, error) {
	return roleRepo{s: r.s}.GetIDByName(ctx, name)
}

func (r userRepo) RoleExists(ctx context.Context, id uuid.UUID) (bool, error) {
	_, ok := r.s.roles[id]
	return ok, nil
}

func testParams() Params {
	return Params{
		DefaultRoleName: "empty",
		AdminRoleName:   "admin",
		AdminEmail:      "admin@example.com",
		AdminPassword:   "admin-pass",
	}
}

func newSeeder(s *store) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	permSvc := permissions.NewService(permRepo{s: s})
	roleSvc := roles.NewService(roleRepo{s: s})
	userSvc := users.NewService(userRepo{s: s}, "empty")
	return NewService(logger, permSvc, roleSvc, userSvc, testParams())
}

func TestRunSeedsEmptyStore(t *testing.T) {
	s := newStore()
	seeder := newSeeder(s)

	require.NoError(t, seeder.Run(context.Background()))

	roleSvc := roles.NewService(roleRepo{s: s})
	ctx := context.Background()

	_, err := roleSvc.GetIDByName(ctx, "empty")
	require.NoError(t, err)

	adminRole, err := roleSvc.GetIDByName(ctx, "admin")
	require.NoError(t, err)

	granted, err := roleSvc.ResolvePermissions(ctx, adminRole)
	require.NoError(t, err)
	require.ElementsMatch(t, shared.CoreScopes(), granted)

	admin, err := users.NewService(userRepo{s: s}, "empty").GetByEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	require.Equal(t, adminRole, admin.RoleID)
}

func TestRunIsIdempotent(t *testing.T) {
	s := newStore()
	seeder := newSeeder(s)

	require.NoError(t, seeder.Run(context.Background()))
	require.NoError(t, seeder.Run(context.Background()))

	require.Len(t, s.users, 1)
	require.Len(t, s.roles, 2)
	require.Len(t, s.perms, len(shared.CoreScopes()))
}

func TestRunRepairsAdminRoleAssignment(t *testing.T) {
	s := newStore()
	seeder := newSeeder(s)
	ctx := context.Background()

	require.NoError(t, seeder.Run(ctx))

	// demote the admin behind the seeder's back
	roleSvc := roles.NewService(roleRepo{s: s})
	emptyRole, err := roleSvc.GetIDByName(ctx, "empty")
	require.NoError(t, err)
	userSvc := users.NewService(userRepo{s: s}, "empty")
	admin, err := userSvc.GetByEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	_, err = userSvc.ChangeRole(ctx, admin.ID, emptyRole)
	require.NoError(t, err)

	require.NoError(t, seeder.Run(ctx))

	adminRole, err := roleSvc.GetIDByName(ctx, "admin")
	require.NoError(t, err)
	admin, err = userSvc.GetByEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	require.Equal(t, adminRole, admin.RoleID)
}
