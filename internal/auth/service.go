package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/redmonkez12/storefront-users/internal/logging"
	"github.com/redmonkez12/storefront-users/internal/user"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidResetToken  = errors.New("reset token is not valid")
)

// ServiceConfig holds the policy knobs of the credential service
type ServiceConfig struct {
	TokenDuration time.Duration
	// ResetTokenTTL of 0 keeps a reset token valid until it is used or replaced
	ResetTokenTTL       time.Duration
	HideUnknownAccounts bool
}

// Session is an authenticated user together with a freshly issued token
type Session struct {
	User  *user.User
	Token string
}

// ProfileChange is a self-service update; a nil or empty password keeps the current one
type ProfileChange struct {
	Profile  user.ProfileUpdate
	Password *string
}

// Service handles credentials and the password reset lifecycle
type Service struct {
	users        user.Store
	hasher       PasswordHasher
	tokenService TokenService
	emailService EmailService
	logger       *logging.Logger
	cfg          ServiceConfig
	now          func() time.Time

	// dummyDigest is verified for unknown emails so sign-in costs the same either way
	dummyOnce   sync.Once
	dummyDigest string
}

func NewService(
	users user.Store,
	hasher PasswordHasher,
	tokenService TokenService,
	emailService EmailService,
	logger *logging.Logger,
	cfg ServiceConfig,
) *Service {
	return &Service{
		users:        users,
		hasher:       hasher,
		tokenService: tokenService,
		emailService: emailService,
		logger:       logger,
		cfg:          cfg,
		now:          time.Now,
	}
}

// Register creates a customer account and signs it in
func (s *Service) Register(ctx context.Context, name, email, password string) (*Session, error) {
	// Explicit check so a duplicate is reported before paying for the hash;
	// the unique index still catches concurrent registrations.
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, user.ErrDuplicateEmail
	} else if !errors.Is(err, user.ErrNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	newUser, err := s.users.Create(ctx, &user.User{
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
	})
	if err != nil {
		if errors.Is(err, user.ErrDuplicateEmail) {
			return nil, user.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return s.newSession(newUser)
}

// SignIn checks credentials. Unknown email and wrong password are the same error.
func (s *Service) SignIn(ctx context.Context, email, password string) (*Session, error) {
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	existingUser, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			s.hasher.Verify(s.unknownUserDigest(), password)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !s.hasher.Verify(existingUser.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	return s.newSession(existingUser)
}

// UpdateProfile applies a self-service change and issues a token reflecting it.
// Tokens issued earlier stay valid until they expire.
func (s *Service) UpdateProfile(ctx context.Context, id uuid.UUID, change ProfileChange) (*Session, error) {
	existingUser, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	existingUser.ApplyProfile(change.Profile)

	if change.Password != nil && *change.Password != "" {
		passwordHash, err := s.hasher.Hash(*change.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		existingUser.PasswordHash = passwordHash
	}

	if err := s.users.Update(ctx, existingUser); err != nil {
		return nil, err
	}

	return s.newSession(existingUser)
}

// ForgotPassword issues a new reset token, replacing any pending one, and mails the link.
// Unknown emails return user.ErrNotFound unless unknown accounts are hidden.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	existingUser, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) && s.cfg.HideUnknownAccounts {
			s.logger.Info("password reset requested for unknown email")
			return nil
		}
		return err
	}

	token, err := generateRandomToken()
	if err != nil {
		return fmt.Errorf("failed to generate password reset token: %w", err)
	}

	issuedAt := s.now()
	if err := s.users.SetResetToken(ctx, existingUser.ID, token, issuedAt); err != nil {
		return fmt.Errorf("failed to store password reset token: %w", err)
	}
	existingUser.ResetToken = &token
	existingUser.ResetTokenIssuedAt = &issuedAt

	// Send password reset email in goroutine (non-blocking)
	go func() {
		emailCtx := context.Background()
		if err := s.emailService.SendPasswordResetEmail(emailCtx, existingUser, token); err != nil {
			s.logger.Warn("failed to send password reset email", "user_id", existingUser.ID, "error", err)
		}
	}()

	return nil
}

// ValidateResetToken returns the user a pending reset token belongs to
func (s *Service) ValidateResetToken(ctx context.Context, token string) (*user.User, error) {
	existingUser, err := s.users.GetByResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrInvalidResetToken
		}
		return nil, fmt.Errorf("failed to get user by reset token: %w", err)
	}

	if existingUser.ResetTokenExpired(s.cfg.ResetTokenTTL, s.now()) {
		return nil, ErrInvalidResetToken
	}

	return existingUser, nil
}

// ResetPassword consumes the reset token of user id and stores the new password.
// The token is single use: two concurrent calls cannot both succeed.
func (s *Service) ResetPassword(ctx context.Context, id uuid.UUID, token, newPassword string) error {
	existingUser, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) && s.cfg.HideUnknownAccounts {
			return ErrInvalidResetToken
		}
		return err
	}

	if existingUser.ResetToken == nil || token == "" ||
		subtle.ConstantTimeCompare([]byte(*existingUser.ResetToken), []byte(token)) != 1 {
		return ErrInvalidResetToken
	}

	if existingUser.ResetTokenExpired(s.cfg.ResetTokenTTL, s.now()) {
		return ErrInvalidResetToken
	}

	passwordHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.users.ConsumeResetToken(ctx, existingUser.ID, token, passwordHash); err != nil {
		if errors.Is(err, user.ErrResetTokenMismatch) {
			return ErrInvalidResetToken
		}
		return fmt.Errorf("failed to update password: %w", err)
	}

	go func() {
		emailCtx := context.Background()
		if err := s.emailService.SendPasswordChangedEmail(emailCtx, existingUser); err != nil {
			s.logger.Warn("failed to send password changed email", "user_id", existingUser.ID, "error", err)
		}
	}()

	return nil
}

func (s *Service) unknownUserDigest() string {
	s.dummyOnce.Do(func() {
		digest, err := s.hasher.Hash("unknown-account-placeholder")
		if err != nil {
			s.logger.Warn("failed to prepare dummy password digest", "error", err)
			return
		}
		s.dummyDigest = digest
	})
	return s.dummyDigest
}

func (s *Service) newSession(u *user.User) (*Session, error) {
	token, err := s.tokenService.CreateToken(ClaimsFor(u), s.cfg.TokenDuration)
	if err != nil {
		return nil, fmt.Errorf("failed to create token: %w", err)
	}

	return &Session{User: u, Token: token}, nil
}

// generateRandomToken creates a cryptographically secure random token
func generateRandomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
