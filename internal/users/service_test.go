package users

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegis-iam/aegis/internal/platform/password"
	"github.com/aegis-iam/aegis/internal/shared"
)

type mockRepository struct {
	users  map[int64]User
	nextID int64
}

func newMockRepository() *mockRepository {
	return &mockRepository{users: make(map[int64]User), nextID: 1}
}

func (m *mockRepository) Insert(ctx context.Context, username, passwordHash string) (User, error) {
	for _, u := range m.users {
		if u.Username == username {
			return User{}, fmt.Errorf("users: username %q: %w", username, shared.ErrAlreadyExists)
		}
	}
	u := User{ID: m.nextID, Username: username, PasswordHash: passwordHash, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	m.users[u.ID] = u
	m.nextID++
	return u, nil
}

func (m *mockRepository) FindByID(ctx context.Context, id int64) (User, error) {
	u, ok := m.users[id]
	if !ok {
		return User{}, fmt.Errorf("users: user %d: %w", id, shared.ErrNotFound)
	}
	return u, nil
}

func (m *mockRepository) FindByUsername(ctx context.Context, username string) (User, error) {
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return User{}, fmt.Errorf("users: user %q: %w", username, shared.ErrNotFound)
}

func (m *mockRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	for _, u := range m.users {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockRepository) List(ctx context.Context, limit, offset int) ([]User, error) {
	ids := make([]int64, 0, len(m.users))
	for id := range m.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	var out []User
	for i := offset; i < len(ids) && len(out) < limit; i++ {
		out = append(out, m.users[ids[i]])
	}
	return out, nil
}

func (m *mockRepository) Count(ctx context.Context) (int64, error) {
	return int64(len(m.users)), nil
}

func (m *mockRepository) UpdateUsername(ctx context.Context, id int64, username string) (User, error) {
	u, ok := m.users[id]
	if !ok {
		return User{}, fmt.Errorf("users: user %d: %w", id, shared.ErrNotFound)
	}
	u.Username = username
	u.UpdatedAt = time.Now()
	m.users[id] = u
	return u, nil
}

func (m *mockRepository) UpdatePasswordHash(ctx context.Context, id int64, passwordHash string) error {
	u, ok := m.users[id]
	if !ok {
		return fmt.Errorf("users: user %d: %w", id, shared.ErrNotFound)
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = time.Now()
	m.users[id] = u
	return nil
}

func (m *mockRepository) Delete(ctx context.Context, id int64) error {
	if _, ok := m.users[id]; !ok {
		return fmt.Errorf("users: user %d: %w", id, shared.ErrNotFound)
	}
	delete(m.users, id)
	return nil
}

var _ Repository = (*mockRepository)(nil)

type mockInvalidator struct {
	invalidated []int64
}

func (m *mockInvalidator) Invalidate(ctx context.Context, userID int64) {
	m.invalidated = append(m.invalidated, userID)
}

func newTestService(t *testing.T) (*Service, *mockRepository, *mockInvalidator) {
	t.Helper()
	repo := newMockRepository()
	inv := &mockInvalidator{}
	return NewService(repo, inv), repo, inv
}

func TestCreateHashesPassword(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	u, err := svc.Create(ctx, "alice", "super-secret-pw")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)

	stored := repo.users[u.ID]
	assert.NotEqual(t, "super-secret-pw", stored.PasswordHash)
	ok, err := password.Verify("super-secret-pw", stored.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCreateValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "  ", "super-secret-pw")
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(ctx, "alice", "short")
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(ctx, "alice", "super-secret-pw")
	require.NoError(t, err)
	_, err = svc.Create(ctx, "alice", "another-secret-pw")
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)
}

func TestUpdateUsername(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	alice, err := svc.Create(ctx, "alice", "super-secret-pw")
	require.NoError(t, err)
	_, err = svc.Create(ctx, "bob", "super-secret-pw")
	require.NoError(t, err)

	_, err = svc.UpdateUsername(ctx, alice.ID, "bob")
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)

	// Keeping the current name is a no-op, not a conflict.
	same, err := svc.UpdateUsername(ctx, alice.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", same.Username)

	renamed, err := svc.UpdateUsername(ctx, alice.ID, "alicia")
	require.NoError(t, err)
	assert.Equal(t, "alicia", renamed.Username)
}

func TestChangePasswordVerifiesCurrent(t *testing.T) {
	svc, repo, inv := newTestService(t)
	ctx := context.Background()

	alice, err := svc.Create(ctx, "alice", "original-password")
	require.NoError(t, err)
	oldHash := repo.users[alice.ID].PasswordHash

	err = svc.ChangePassword(ctx, alice.ID, "wrong-password", "next-password-1")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
	assert.Equal(t, oldHash, repo.users[alice.ID].PasswordHash)

	err = svc.ChangePassword(ctx, alice.ID, "original-password", "short")
	assert.ErrorIs(t, err, shared.ErrValidation)

	require.NoError(t, svc.ChangePassword(ctx, alice.ID, "original-password", "next-password-1"))
	assert.NotEqual(t, oldHash, repo.users[alice.ID].PasswordHash)
	assert.Contains(t, inv.invalidated, alice.ID)

	ok, err := password.Verify("next-password-1", repo.users[alice.ID].PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestResetPasswordSkipsCurrent(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	alice, err := svc.Create(ctx, "alice", "original-password")
	require.NoError(t, err)

	require.NoError(t, svc.ResetPassword(ctx, alice.ID, "admin-chosen-pw"))
	ok, err := password.Verify("admin-chosen-pw", repo.users[alice.ID].PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)

	err = svc.ResetPassword(ctx, 999, "admin-chosen-pw")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestDeleteInvalidatesGrants(t *testing.T) {
	svc, _, inv := newTestService(t)
	ctx := context.Background()

	alice, err := svc.Create(ctx, "alice", "super-secret-pw")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, alice.ID))
	assert.Contains(t, inv.invalidated, alice.ID)

	err = svc.Delete(ctx, alice.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestListPaginates(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := svc.Create(ctx, fmt.Sprintf("user-%d", i), "super-secret-pw")
		require.NoError(t, err)
	}

	list, p, err := svc.List(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, 5, p.Total)
	assert.Equal(t, 3, p.TotalPages)

	list, _, err = svc.List(ctx, 3, 2)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
