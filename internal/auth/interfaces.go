package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/redmonkez12/storefront-users/internal/config"
	"github.com/redmonkez12/storefront-users/internal/user"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// UserClaims is the identity carried inside a session token
type UserClaims struct {
	UserID   uuid.UUID
	Email    string
	Name     string
	IsAdmin  bool
	IsSeller bool
}

// ClaimsFor builds the session claims for u
func ClaimsFor(u *user.User) UserClaims {
	return UserClaims{
		UserID:   u.ID,
		Email:    u.Email,
		Name:     u.Name,
		IsAdmin:  u.IsAdmin(),
		IsSeller: u.IsSeller(),
	}
}

// TokenClaims represents the verified content of a session token
type TokenClaims struct {
	UserID    string    `json:"user_id"` // UUID stored as string in token
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	IsAdmin   bool      `json:"is_admin"`
	IsSeller  bool      `json:"is_seller"`
	IssuedAt  time.Time `json:"iat"`
	ExpiresAt time.Time `json:"exp"`
}

// TokenService defines the interface for token creation and validation.
// Implementations include PasetoService (PASETO v4.local) and JWTService (HS256).
type TokenService interface {
	CreateToken(claims UserClaims, duration time.Duration) (string, error)
	VerifyToken(tokenStr string) (*TokenClaims, error)
}

// NewTokenService returns the issuer selected by AUTH_TOKEN_FORMAT
func NewTokenService(cfg config.AuthConfig) (TokenService, error) {
	switch cfg.TokenFormat {
	case config.TokenFormatPaseto:
		svc, err := NewPasetoService(cfg.PasetoKey)
		if err != nil {
			return nil, err
		}
		return svc, nil
	case config.TokenFormatJWT:
		svc, err := NewJWTService(cfg.JWTSecret)
		if err != nil {
			return nil, err
		}
		return svc, nil
	default:
		return nil, fmt.Errorf("unsupported token format %q", cfg.TokenFormat)
	}
}

// PasswordHasher hashes and verifies passwords
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(digest, password string) bool
}

// EmailService sends the transactional mails of the reset flow
type EmailService interface {
	SendPasswordResetEmail(ctx context.Context, to *user.User, token string) error
	SendPasswordChangedEmail(ctx context.Context, to *user.User) error
}
