package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/uptrace/bun"

	"github.com/redmonkez12/storefront-users/internal/database"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrDuplicateEmail     = errors.New("email already exists")
	ErrResetTokenMismatch = errors.New("reset token does not match")
	ErrProtectedAccount   = errors.New("account is protected from deletion")
)

// Store is the persistence contract for user accounts
type Store interface {
	Create(ctx context.Context, u *User) (*User, error)
	CreateMany(ctx context.Context, users []*User) ([]*User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetBySellerURL(ctx context.Context, url string) (*User, error)
	GetByResetToken(ctx context.Context, token string) (*User, error)
	List(ctx context.Context) ([]*User, error)
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, id uuid.UUID, protectedEmail string) error
	SetResetToken(ctx context.Context, id uuid.UUID, token string, issuedAt time.Time) error
	ConsumeResetToken(ctx context.Context, id uuid.UUID, token, passwordHash string) error
}

// Repository handles user data persistence
type Repository struct {
	db *bun.DB
}

var _ Store = (*Repository)(nil)

func NewRepository(db *bun.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new user into the database.
// The id is assigned here when the caller left it empty.
func (r *Repository) Create(ctx context.Context, u *User) (*User, error) {
	dbUser := newDBUser(u, time.Now().UTC())

	_, err := r.db.NewInsert().
		Model(dbUser).
		Exec(ctx)
	if err != nil {
		if isDuplicateEmail(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return mapDBUserToModel(dbUser), nil
}

// CreateMany inserts all users in a single transaction
func (r *Repository) CreateMany(ctx context.Context, users []*User) ([]*User, error) {
	if len(users) == 0 {
		return []*User{}, nil
	}

	now := time.Now().UTC()
	dbUsers := make([]database.User, 0, len(users))
	for _, u := range users {
		dbUsers = append(dbUsers, *newDBUser(u, now))
	}

	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().
			Model(&dbUsers).
			Exec(ctx)
		return err
	})
	if err != nil {
		if isDuplicateEmail(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create users: %w", err)
	}

	created := make([]*User, 0, len(dbUsers))
	for i := range dbUsers {
		created = append(created, mapDBUserToModel(&dbUsers[i]))
	}

	return created, nil
}

// GetByID retrieves a user by ID
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return r.getOne(ctx, "by id", "id = ?", id)
}

// GetByEmail retrieves a user by email
func (r *Repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	if email == "" {
		return nil, ErrNotFound
	}
	return r.getOne(ctx, "by email", "email = ?", email)
}

// GetBySellerURL retrieves the seller owning a storefront url
func (r *Repository) GetBySellerURL(ctx context.Context, url string) (*User, error) {
	if url == "" {
		return nil, ErrNotFound
	}
	return r.getOne(ctx, "by seller url", "seller_url = ?", url)
}

// GetByResetToken retrieves the user with a pending reset token
func (r *Repository) GetByResetToken(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, ErrNotFound
	}
	return r.getOne(ctx, "by reset token", "reset_token = ?", token)
}

func (r *Repository) getOne(ctx context.Context, what string, query string, arg any) (*User, error) {
	dbUser := new(database.User)
	err := r.db.NewSelect().
		Model(dbUser).
		Where(query, arg).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user %s: %w", what, err)
	}

	return mapDBUserToModel(dbUser), nil
}

// List returns every user, oldest first
func (r *Repository) List(ctx context.Context) ([]*User, error) {
	var dbUsers []database.User
	err := r.db.NewSelect().
		Model(&dbUsers).
		Order("created_at ASC", "email ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	users := make([]*User, 0, len(dbUsers))
	for i := range dbUsers {
		users = append(users, mapDBUserToModel(&dbUsers[i]))
	}

	return users, nil
}

// Update saves profile, credential and role fields.
// Reset token columns are left alone; only SetResetToken and ConsumeResetToken write them.
func (r *Repository) Update(ctx context.Context, u *User) error {
	now := time.Now().UTC()
	result, err := r.db.NewUpdate().
		Model((*database.User)(nil)).
		Set("name = ?", u.Name).
		Set("email = ?", u.Email).
		Set("password_hash = ?", u.PasswordHash).
		Set("is_admin = ?", u.IsAdmin()).
		Set("is_seller = ?", u.IsSeller()).
		Set("seller_name = ?", u.Seller.Name).
		Set("seller_logo = ?", u.Seller.Logo).
		Set("seller_url = ?", u.Seller.URL).
		Set("seller_description = ?", u.Seller.Description).
		Set("updated_at = ?", now).
		Where("id = ?", u.ID).
		Exec(ctx)

	if err != nil {
		if isDuplicateEmail(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("failed to update user: %w", err)
	}

	if err := expectOneRow(result, ErrNotFound); err != nil {
		return err
	}

	u.UpdatedAt = now
	return nil
}

// Delete removes a user. The protected account is never matched.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID, protectedEmail string) error {
	result, err := r.db.NewDelete().
		Model((*database.User)(nil)).
		Where("id = ?", id).
		Where("email <> ?", protectedEmail).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	return expectOneRow(result, ErrNotFound)
}

// SetResetToken stores a new pending reset token, replacing any previous one
func (r *Repository) SetResetToken(ctx context.Context, id uuid.UUID, token string, issuedAt time.Time) error {
	result, err := r.db.NewUpdate().
		Model((*database.User)(nil)).
		Set("reset_token = ?", token).
		Set("reset_token_issued_at = ?", issuedAt.UTC()).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to set reset token: %w", err)
	}

	return expectOneRow(result, ErrNotFound)
}

// ConsumeResetToken replaces the password hash and clears the reset token in
// one conditional statement, so a token can be used exactly once.
func (r *Repository) ConsumeResetToken(ctx context.Context, id uuid.UUID, token, passwordHash string) error {
	if token == "" {
		return ErrResetTokenMismatch
	}

	result, err := r.db.NewUpdate().
		Model((*database.User)(nil)).
		Set("password_hash = ?", passwordHash).
		Set("reset_token = NULL").
		Set("reset_token_issued_at = NULL").
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Where("reset_token = ?", token).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to consume reset token: %w", err)
	}

	return expectOneRow(result, ErrResetTokenMismatch)
}

func expectOneRow(result sql.Result, notMatched error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return notMatched
	}

	return nil
}

// isDuplicateEmail recognises unique violations on the email index from postgres and sqlite
func isDuplicateEmail(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505" && pqErr.Constraint == "users_email_key"
	}

	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed: users.email") ||
		strings.Contains(msg, `duplicate key value violates unique constraint "users_email_key"`)
}

func newDBUser(u *User, now time.Time) *database.User {
	id := u.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	return &database.User{
		ID:                 id,
		Name:               u.Name,
		Email:              u.Email,
		PasswordHash:       u.PasswordHash,
		IsAdmin:            u.IsAdmin(),
		IsSeller:           u.IsSeller(),
		SellerName:         u.Seller.Name,
		SellerLogo:         u.Seller.Logo,
		SellerURL:          u.Seller.URL,
		SellerDescription:  u.Seller.Description,
		ResetToken:         u.ResetToken,
		ResetTokenIssuedAt: u.ResetTokenIssuedAt,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// mapDBUserToModel converts database model to domain model
func mapDBUserToModel(dbu *database.User) *User {
	var roles Roles
	roles = roles.Set(RoleAdmin, dbu.IsAdmin)
	roles = roles.Set(RoleSeller, dbu.IsSeller)

	return &User{
		ID:           dbu.ID,
		Name:         dbu.Name,
		Email:        dbu.Email,
		PasswordHash: dbu.PasswordHash,
		Roles:        roles,
		Seller: Seller{
			Name:        dbu.SellerName,
			Logo:        dbu.SellerLogo,
			URL:         dbu.SellerURL,
			Description: dbu.SellerDescription,
		},
		ResetToken:         dbu.ResetToken,
		ResetTokenIssuedAt: dbu.ResetTokenIssuedAt,
		CreatedAt:          dbu.CreatedAt,
		UpdatedAt:          dbu.UpdatedAt,
	}
}
