package users

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/aegis-id/aegis/internal/shared"
)

type mockRepository struct {
	users       map[uuid.UUID]User
	rolesByName map[string]uuid.UUID
	roleNames   map[uuid.UUID]string
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		users:       make(map[uuid.UUID]User),
		rolesByName: make(map[string]uuid.UUID),
		roleNames:   make(map[uuid.UUID]string),
	}
}

func (m *mockRepository) addRole(name string) uuid.UUID {
	id := uuid.New()
	m.rolesByName[name] = id
	m.roleNames[id] = name
	return id
}

func (m *mockRepository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return fn(ctx, m)
}

func (m *mockRepository) Insert(ctx context.Context, user User) (User, error) {
	for _, u := range m.users {
		if u.Email == user.Email {
			return User{}, shared.ErrConflict
		}
	}
	user.ID = uuid.New()
	user.IsActive = true
	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()
	m.users[user.ID] = user
	return user, nil
}

func (m *mockRepository) Get(ctx context.Context, id uuid.UUID) (User, error) {
	u, ok := m.users[id]
	if !ok {
		return User{}, shared.ErrNotFound
	}
	return u, nil
}

func (m *mockRepository) GetByEmail(ctx context.Context, email string) (User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return User{}, shared.ErrNotFound
}

func (m *mockRepository) List(ctx context.Context) ([]User, error) {
	out := make([]User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	return out, nil
}

func (m *mockRepository) Update(ctx context.Context, id uuid.UUID, in UpdateUser) (User, error) {
	u, ok := m.users[id]
	if !ok {
		return User{}, shared.ErrNotFound
	}
	if in.Email != nil {
		u.Email = *in.Email
	}
	if in.FirstName != nil {
		u.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		u.LastName = *in.LastName
	}
	if in.IsActive != nil {
		u.IsActive = *in.IsActive
	}
	u.UpdatedAt = time.Now()
	m.users[id] = u
	return u, nil
}

func (m *mockRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.users[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *mockRepository) Count(ctx context.Context) (int64, error) {
	return int64(len(m.users)), nil
}

func (m *mockRepository) GetWithRole(ctx context.Context, id uuid.UUID) (UserWithRole, error) {
	u, ok := m.users[id]
	if !ok {
		return UserWithRole{}, shared.ErrNotFound
	}
	return UserWithRole{User: u, RoleName: m.roleNames[u.RoleID]}, nil
}

func (m *mockRepository) SetRole(ctx context.Context, id, roleID uuid.UUID) error {
	u, ok := m.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	u.RoleID = roleID
	m.users[id] = u
	return nil
}

func (m *mockRepository) SetPasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	u, ok := m.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	u.PasswordHash = hash
	m.users[id] = u
	return nil
}

func (m *mockRepository) RoleIDByName(ctx context.Context, name string) (uuid.UUID, error) {
	id, ok := m.rolesByName[name]
	if !ok {
		return uuid.Nil, shared.ErrNotFound
	}
	return id, nil
}

func (m *mockRepository) RoleExists(ctx context.Context, id uuid.UUID) (bool, error) {
	_, ok := m.roleNames[id]
	return ok, nil
}

func newTestService(t *testing.T) (*Service, *mockRepository, uuid.UUID) {
	t.Helper()
	repo := newMockRepository()
	defaultRole := repo.addRole("empty")
	return NewService(repo, "empty"), repo, defaultRole
}

func TestServiceCreateAssignsDefaultRole(t *testing.T) {
	svc, _, defaultRole := newTestService(t)

	u, err := svc.Create(context.Background(), CreateUser{
		Email:    " Alice@Example.COM ",
		Password: "s3cret",
	})
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", u.Email)
	require.Equal(t, defaultRole, u.RoleID)
	require.True(t, u.IsActive)

	// stored hash verifies against the plaintext and is not the plaintext
	require.NotEqual(t, "s3cret", u.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("s3cret")))
}

func TestServiceCreateDuplicateEmail(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Create(context.Background(), CreateUser{Email: "alice@example.com", Password: "x"})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), CreateUser{Email: "ALICE@example.com", Password: "y"})
	require.ErrorIs(t, err, shared.ErrConflict)
}

func TestServiceCreateMissingFields(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Create(context.Background(), CreateUser{Password: "x"})
	require.ErrorIs(t, err, shared.ErrInvalid)

	_, err = svc.Create(context.Background(), CreateUser{Email: "alice@example.com"})
	require.ErrorIs(t, err, shared.ErrInvalid)
}

func TestServiceCreateWithRole(t *testing.T) {
	svc, repo, _ := newTestService(t)
	adminRole := repo.addRole("admin")

	u, err := svc.CreateWithRole(context.Background(), CreateUser{
		Email:    "root@example.com",
		Password: "x",
	}, "admin")
	require.NoError(t, err)
	require.Equal(t, adminRole, u.RoleID)
}

func TestServiceCreateUnknownRole(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.CreateWithRole(context.Background(), CreateUser{
		Email:    "root@example.com",
		Password: "x",
	}, "missing")
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestServiceUpdatePartial(t *testing.T) {
	svc, _, _ := newTestService(t)

	u, err := svc.Create(context.Background(), CreateUser{Email: "alice@example.com", Password: "x", FirstName: "Alice"})
	require.NoError(t, err)

	last := "Smith"
	updated, err := svc.Update(context.Background(), u.ID, UpdateUser{LastName: &last})
	require.NoError(t, err)
	require.Equal(t, "Alice", updated.FirstName)
	require.Equal(t, "Smith", updated.LastName)
	require.Equal(t, "alice@example.com", updated.Email)
}

func TestServiceChangeRole(t *testing.T) {
	svc, repo, _ := newTestService(t)
	auditor := repo.addRole("auditor")

	u, err := svc.Create(context.Background(), CreateUser{Email: "alice@example.com", Password: "x"})
	require.NoError(t, err)

	got, err := svc.ChangeRole(context.Background(), u.ID, auditor)
	require.NoError(t, err)
	require.Equal(t, auditor, got.RoleID)
	require.Equal(t, "auditor", got.RoleName)
}

func TestServiceChangeRoleUnknownRole(t *testing.T) {
	svc, _, _ := newTestService(t)

	u, err := svc.Create(context.Background(), CreateUser{Email: "alice@example.com", Password: "x"})
	require.NoError(t, err)

	_, err = svc.ChangeRole(context.Background(), u.ID, uuid.New())
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestServiceChangePassword(t *testing.T) {
	svc, _, _ := newTestService(t)

	u, err := svc.Create(context.Background(), CreateUser{Email: "alice@example.com", Password: "old"})
	require.NoError(t, err)

	updated, err := svc.ChangePassword(context.Background(), u.ID, "old", "new")
	require.NoError(t, err)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(updated.PasswordHash), []byte("new")))
}

func TestServiceChangePasswordWrongCurrent(t *testing.T) {
	svc, repo, _ := newTestService(t)

	u, err := svc.Create(context.Background(), CreateUser{Email: "alice@example.com", Password: "old"})
	require.NoError(t, err)

	_, err = svc.ChangePassword(context.Background(), u.ID, "wrong", "new")
	require.ErrorIs(t, err, shared.ErrRejected)

	// stored hash untouched
	stored := repo.users[u.ID]
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("old")))
}
