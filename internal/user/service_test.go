package user

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/storefront-users/internal/logging"
)

const protectedEmail = "admin@example.com"

type prefixHasher struct {
	err error
}

func (h prefixHasher) Hash(password string) (string, error) {
	if h.err != nil {
		return "", h.err
	}
	return "hashed:" + password, nil
}

func newTestService(t *testing.T) (*Service, *Repository) {
	t.Helper()

	repo := newTestRepository(t)
	return NewService(repo, prefixHasher{}, protectedEmail, logging.NewNopLogger()), repo
}

func TestService_Seed(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	created, err := svc.Seed(ctx)
	require.NoError(t, err)
	require.Len(t, created, 2)

	admin, err := repo.GetByEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, "hashed:1234", admin.PasswordHash)
	assert.True(t, admin.IsAdmin())
	assert.Equal(t, "puma", admin.Seller.URL)

	// Seeding twice collides on the email index
	_, err = svc.Seed(ctx)
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestService_SeedHashFailure(t *testing.T) {
	repo := newTestRepository(t)
	svc := NewService(repo, prefixHasher{err: errors.New("boom")}, protectedEmail, logging.NewNopLogger())

	_, err := svc.Seed(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	users, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestService_UpdateRevokesRoles(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	u := createUser(t, repo, "John", "user@example.com", RoleAdmin|RoleSeller)

	updated, err := svc.Update(ctx, u.ID, AdminUpdate{
		Name:     strPtr(""),
		IsAdmin:  boolPtr(false),
		IsSeller: boolPtr(true),
	})
	require.NoError(t, err)
	assert.Equal(t, "John", updated.Name)
	assert.False(t, updated.IsAdmin())
	assert.True(t, updated.IsSeller())

	stored, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, RoleSeller, stored.Roles)

	_, err = svc.Update(ctx, uuid.New(), AdminUpdate{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_Delete(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	admin := createUser(t, repo, "Basir", protectedEmail, RoleAdmin)
	john := createUser(t, repo, "John", "user@example.com", 0)

	_, err := svc.Delete(ctx, admin.ID)
	assert.ErrorIs(t, err, ErrProtectedAccount)

	deleted, err := svc.Delete(ctx, john.ID)
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", deleted.Email)

	_, err = svc.Delete(ctx, john.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.True(t, svc.IsProtected(admin))
	assert.False(t, svc.IsProtected(john))
}

func TestService_Lookups(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	_, err := svc.Seed(ctx)
	require.NoError(t, err)

	seller, err := svc.GetSeller(ctx, "puma")
	require.NoError(t, err)
	assert.Equal(t, "Basir", seller.Name)

	got, err := svc.Get(ctx, seller.ID)
	require.NoError(t, err)
	assert.Equal(t, seller.Email, got.Email)

	all, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = repo.GetBySellerURL(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestService_CreateAdmin(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateAdmin(ctx, "Root", "root@example.com", "s3cret")
	require.NoError(t, err)
	assert.True(t, created.IsAdmin())
	assert.False(t, created.IsSeller())

	stored, err := repo.GetByEmail(ctx, "root@example.com")
	require.NoError(t, err)
	assert.Equal(t, "hashed:s3cret", stored.PasswordHash)

	_, err = svc.CreateAdmin(ctx, "Again", "root@example.com", "x")
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	_, err = svc.CreateAdmin(ctx, "", "empty@example.com", "x")
	assert.ErrorIs(t, err, ErrMissingFields)
}
