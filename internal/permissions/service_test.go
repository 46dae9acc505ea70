package permissions

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/aegis-id/aegis/internal/shared"
)

type mockRepository struct {
	perms    map[uuid.UUID]Permission
	bindings map[uuid.UUID]int

	txError error
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		perms:    make(map[uuid.UUID]Permission),
		bindings: make(map[uuid.UUID]int),
	}
}

func (m *mockRepository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	if m.txError != nil {
		return m.txError
	}
	return fn(ctx, m)
}

func (m *mockRepository) Create(ctx context.Context, in CreatePermission) (Permission, error) {
	for _, p := range m.perms {
		if p.Name == in.Name {
			return Permission{}, shared.ErrConflict
		}
	}
	p := Permission{
		ID:          uuid.New(),
		Name:        in.Name,
		Description: in.Description,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	m.perms[p.ID] = p
	return p, nil
}

func (m *mockRepository) Get(ctx context.Context, id uuid.UUID) (Permission, error) {
	p, ok := m.perms[id]
	if !ok {
		return Permission{}, shared.ErrNotFound
	}
	return p, nil
}

func (m *mockRepository) List(ctx context.Context) ([]Permission, error) {
	out := make([]Permission, 0, len(m.perms))
	for _, p := range m.perms {
		out = append(out, p)
	}
	return out, nil
}

func (m *mockRepository) Update(ctx context.Context, id uuid.UUID, in UpdatePermission) (Permission, error) {
	p, ok := m.perms[id]
	if !ok {
		return Permission{}, shared.ErrNotFound
	}
	if in.Name != nil {
		p.Name = *in.Name
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	p.UpdatedAt = time.Now()
	m.perms[id] = p
	return p, nil
}

func (m *mockRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.perms[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.perms, id)
	return nil
}

func (m *mockRepository) DeleteBindings(ctx context.Context, id uuid.UUID) error {
	delete(m.bindings, id)
	return nil
}

func (m *mockRepository) GetIDByName(ctx context.Context, name string) (uuid.UUID, error) {
	for id, p := range m.perms {
		if p.Name == name {
			return id, nil
		}
	}
	return uuid.Nil, shared.ErrNotFound
}

func (m *mockRepository) Count(ctx context.Context) (int64, error) {
	return int64(len(m.perms)), nil
}

func TestServiceCreate(t *testing.T) {
	svc := NewService(newMockRepository())

	p, err := svc.Create(context.Background(), CreatePermission{Name: "  report:read ", Description: " view reports "})
	require.NoError(t, err)
	require.Equal(t, "report:read", p.Name)
	require.Equal(t, "view reports", p.Description)
	require.NotEqual(t, uuid.Nil, p.ID)
}

func TestServiceCreateEmptyName(t *testing.T) {
	svc := NewService(newMockRepository())

	_, err := svc.Create(context.Background(), CreatePermission{Name: "   "})
	require.ErrorIs(t, err, shared.ErrInvalid)
}

func TestServiceCreateDuplicateName(t *testing.T) {
	svc := NewService(newMockRepository())

	_, err := svc.Create(context.Background(), CreatePermission{Name: "report:read"})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), CreatePermission{Name: "report:read"})
	require.ErrorIs(t, err, shared.ErrConflict)
}

func TestServiceUpdatePartial(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)

	p, err := svc.Create(context.Background(), CreatePermission{Name: "report:read", Description: "view reports"})
	require.NoError(t, err)

	name := "report:write"
	updated, err := svc.Update(context.Background(), p.ID, UpdatePermission{Name: &name})
	require.NoError(t, err)
	require.Equal(t, "report:write", updated.Name)
	require.Equal(t, "view reports", updated.Description)
}

func TestServiceUpdateEmptyName(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)

	p, err := svc.Create(context.Background(), CreatePermission{Name: "report:read"})
	require.NoError(t, err)

	blank := "  "
	_, err = svc.Update(context.Background(), p.ID, UpdatePermission{Name: &blank})
	require.ErrorIs(t, err, shared.ErrInvalid)
}

func TestServiceDeleteRemovesBindings(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)

	p, err := svc.Create(context.Background(), CreatePermission{Name: "report:read"})
	require.NoError(t, err)
	repo.bindings[p.ID] = 2

	require.NoError(t, svc.Delete(context.Background(), p.ID))

	_, err = svc.Get(context.Background(), p.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
	require.NotContains(t, repo.bindings, p.ID)
}

func TestServiceDeleteMissing(t *testing.T) {
	svc := NewService(newMockRepository())

	err := svc.Delete(context.Background(), uuid.New())
	require.ErrorIs(t, err, shared.ErrNotFound)
}
