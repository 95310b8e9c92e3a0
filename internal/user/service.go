package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/redmonkez12/storefront-users/internal/logging"
)

// ErrMissingFields is returned when a required account field is empty
var ErrMissingFields = errors.New("name, email and password are required")

// PasswordHasher turns a plaintext password into a storable digest
type PasswordHasher interface {
	Hash(password string) (string, error)
}

// Service handles account lookups and administration
type Service struct {
	store          Store
	hasher         PasswordHasher
	protectedEmail string
	logger         *logging.Logger
}

func NewService(store Store, hasher PasswordHasher, protectedEmail string, logger *logging.Logger) *Service {
	return &Service{
		store:          store,
		hasher:         hasher,
		protectedEmail: protectedEmail,
		logger:         logger,
	}
}

// Get returns a user by id
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.store.GetByID(ctx, id)
}

// GetSeller returns the seller owning the storefront url
func (s *Service) GetSeller(ctx context.Context, url string) (*User, error) {
	return s.store.GetBySellerURL(ctx, url)
}

// List returns all users
func (s *Service) List(ctx context.Context) ([]*User, error) {
	return s.store.List(ctx)
}

// Update applies an administrative change to any user
func (s *Service) Update(ctx context.Context, id uuid.UUID, change AdminUpdate) (*User, error) {
	existing, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	existing.ApplyAdmin(change)

	if err := s.store.Update(ctx, existing); err != nil {
		return nil, err
	}

	return existing, nil
}

// Delete removes a user, refusing the protected admin account
func (s *Service) Delete(ctx context.Context, id uuid.UUID) (*User, error) {
	existing, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.IsProtected(existing) {
		return nil, ErrProtectedAccount
	}

	if err := s.store.Delete(ctx, id, s.protectedEmail); err != nil {
		return nil, err
	}

	return existing, nil
}

// IsProtected reports whether u is the account that can never be deleted
func (s *Service) IsProtected(u *User) bool {
	return u.Email == s.protectedEmail
}

// CreateAdmin adds an administrator account.
// Used by the maintenance CLI to bootstrap a deployment without fixtures.
func (s *Service) CreateAdmin(ctx context.Context, name, email, password string) (*User, error) {
	if name == "" || email == "" || password == "" {
		return nil, ErrMissingFields
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	created, err := s.store.Create(ctx, &User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Roles:        RoleAdmin,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("admin account created", "user_id", created.ID)

	return created, nil
}

// Seed inserts the bundled fixture accounts
func (s *Service) Seed(ctx context.Context) ([]*User, error) {
	fixtures, err := LoadFixtures()
	if err != nil {
		return nil, err
	}

	users := make([]*User, 0, len(fixtures))
	for _, f := range fixtures {
		hash, err := s.hasher.Hash(f.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash fixture password for %s: %w", f.Email, err)
		}
		users = append(users, f.toUser(hash))
	}

	created, err := s.store.CreateMany(ctx, users)
	if err != nil {
		return nil, fmt.Errorf("failed to seed users: %w", err)
	}

	s.logger.Info("seeded fixture users", "count", len(created))

	return created, nil
}
