package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/redmonkez12/storefront-users/internal/config"
	"github.com/redmonkez12/storefront-users/internal/database"
	"github.com/redmonkez12/storefront-users/internal/logging"
	"github.com/redmonkez12/storefront-users/internal/user"
)

type sentReset struct {
	email string
	token string
}

// fakeEmail records sends on buffered channels so tests can wait for the detached goroutines
type fakeEmail struct {
	resets  chan sentReset
	changed chan string
	err     error
}

func newFakeEmail() *fakeEmail {
	return &fakeEmail{
		resets:  make(chan sentReset, 10),
		changed: make(chan string, 10),
	}
}

func (f *fakeEmail) SendPasswordResetEmail(ctx context.Context, to *user.User, token string) error {
	f.resets <- sentReset{email: to.Email, token: token}
	return f.err
}

func (f *fakeEmail) SendPasswordChangedEmail(ctx context.Context, to *user.User) error {
	f.changed <- to.Email
	return f.err
}

func (f *fakeEmail) nextReset(t *testing.T) sentReset {
	t.Helper()
	select {
	case m := <-f.resets:
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("reset email was not sent")
		return sentReset{}
	}
}

func (f *fakeEmail) nextChanged(t *testing.T) string {
	t.Helper()
	select {
	case to := <-f.changed:
		return to
	case <-time.After(2 * time.Second):
		t.Fatal("password changed email was not sent")
		return ""
	}
}

type testEnv struct {
	service *Service
	users   *user.Repository
	tokens  TokenService
	email   *fakeEmail
}

func newTestEnv(t *testing.T, cfg ServiceConfig) *testEnv {
	t.Helper()

	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db))

	hasher, err := NewHasher(config.HasherBcrypt, bcrypt.MinCost)
	require.NoError(t, err)

	tokens, err := NewPasetoService(testPasetoKey)
	require.NoError(t, err)

	if cfg.TokenDuration == 0 {
		cfg.TokenDuration = time.Hour
	}

	users := user.NewRepository(db)
	email := newFakeEmail()

	return &testEnv{
		service: NewService(users, hasher, tokens, email, logging.NewNopLogger(), cfg),
		users:   users,
		tokens:  tokens,
		email:   email,
	}
}

func strPtr(s string) *string { return &s }

func TestService_RegisterAndSignIn(t *testing.T) {
	env := newTestEnv(t, ServiceConfig{})
	ctx := context.Background()

	session, err := env.service.Register(ctx, "Ann", "ann@example.com", "pw1")
	require.NoError(t, err)
	assert.Equal(t, "Ann", session.User.Name)
	assert.False(t, session.User.IsAdmin())
	assert.False(t, session.User.IsSeller())
	assert.NotEqual(t, "pw1", session.User.PasswordHash)

	claims, err := env.tokens.VerifyToken(session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.User.ID.String(), claims.UserID)
	assert.Equal(t, "ann@example.com", claims.Email)

	_, err = env.service.SignIn(ctx, "ann@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = env.service.SignIn(ctx, "nobody@example.com", "pw1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = env.service.SignIn(ctx, "", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	signedIn, err := env.service.SignIn(ctx, "ann@example.com", "pw1")
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, signedIn.User.ID)
}

func TestService_RegisterDuplicateEmail(t *testing.T) {
	env := newTestEnv(t, ServiceConfig{})
	ctx := context.Background()

	_, err := env.service.Register(ctx, "Ann", "ann@example.com", "pw1")
	require.NoError(t, err)

	_, err = env.service.Register(ctx, "Other", "ann@example.com", "pw2")
	assert.ErrorIs(t, err, user.ErrDuplicateEmail)

	// The original account is untouched
	_, err = env.service.SignIn(ctx, "ann@example.com", "pw1")
	assert.NoError(t, err)
}

func TestService_UpdateProfile(t *testing.T) {
	env := newTestEnv(t, ServiceConfig{})
	ctx := context.Background()

	session, err := env.service.Register(ctx, "Ann", "ann@example.com", "pw1")
	require.NoError(t, err)

	updated, err := env.service.UpdateProfile(ctx, session.User.ID, ProfileChange{
		Profile: user.ProfileUpdate{
			Name:   strPtr("Annie"),
			Email:  strPtr(""),
			Seller: user.SellerUpdate{Name: strPtr("Shop")},
		},
		Password: strPtr("pw2"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Annie", updated.User.Name)
	assert.Equal(t, "ann@example.com", updated.User.Email)
	assert.Empty(t, updated.User.Seller.Name, "customers have no storefront")

	claims, err := env.tokens.VerifyToken(updated.Token)
	require.NoError(t, err)
	assert.Equal(t, "Annie", claims.Name)

	_, err = env.service.SignIn(ctx, "ann@example.com", "pw1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = env.service.SignIn(ctx, "ann@example.com", "pw2")
	assert.NoError(t, err)

	// Empty password keeps the current one
	_, err = env.service.UpdateProfile(ctx, session.User.ID, ProfileChange{Password: strPtr("")})
	require.NoError(t, err)
	_, err = env.service.SignIn(ctx, "ann@example.com", "pw2")
	assert.NoError(t, err)

	// The token issued before the update is still accepted
	_, err = env.tokens.VerifyToken(session.Token)
	assert.NoError(t, err)

	_, err = env.service.UpdateProfile(ctx, uuid.New(), ProfileChange{})
	assert.ErrorIs(t, err, user.ErrNotFound)
}

func TestService_UpdateProfileSeller(t *testing.T) {
	env := newTestEnv(t, ServiceConfig{})
	ctx := context.Background()

	seller, err := env.users.Create(ctx, &user.User{
		Name: "Basir", Email: "admin@example.com", PasswordHash: "x",
		Roles:  user.RoleSeller,
		Seller: user.Seller{Name: "Puma", Logo: "/images/logo1.png", URL: "puma"},
	})
	require.NoError(t, err)

	updated, err := env.service.UpdateProfile(ctx, seller.ID, ProfileChange{
		Profile: user.ProfileUpdate{Seller: user.SellerUpdate{
			Name:        strPtr("Puma Store"),
			Description: strPtr("shoes"),
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Puma Store", updated.User.Seller.Name)
	assert.Equal(t, "/images/logo1.png", updated.User.Seller.Logo)
	assert.Equal(t, "shoes", updated.User.Seller.Description)

	found, err := env.users.GetBySellerURL(ctx, "puma")
	require.NoError(t, err)
	assert.Equal(t, "Puma Store", found.Seller.Name)
}

func TestService_ResetFlow(t *testing.T) {
	env := newTestEnv(t, ServiceConfig{})
	ctx := context.Background()

	session, err := env.service.Register(ctx, "Ann", "ann@example.com", "pw1")
	require.NoError(t, err)
	id := session.User.ID

	require.NoError(t, env.service.ForgotPassword(ctx, "ann@example.com"))
	sent := env.email.nextReset(t)
	assert.Equal(t, "ann@example.com", sent.email)
	assert.NotEmpty(t, sent.token)

	u, err := env.service.ValidateResetToken(ctx, sent.token)
	require.NoError(t, err)
	assert.Equal(t, id, u.ID)

	assert.ErrorIs(t, env.service.ResetPassword(ctx, id, "wrong-token", "pw2"), ErrInvalidResetToken)

	require.NoError(t, env.service.ResetPassword(ctx, id, sent.token, "pw2"))
	assert.Equal(t, "ann@example.com", env.email.nextChanged(t))

	_, err = env.service.SignIn(ctx, "ann@example.com", "pw2")
	assert.NoError(t, err)
	_, err = env.service.SignIn(ctx, "ann@example.com", "pw1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// Single use
	assert.ErrorIs(t, env.service.ResetPassword(ctx, id, sent.token, "pw3"), ErrInvalidResetToken)
	_, err = env.service.ValidateResetToken(ctx, sent.token)
	assert.ErrorIs(t, err, ErrInvalidResetToken)
}

func TestService_ForgotPasswordReplacesToken(t *testing.T) {
	env := newTestEnv(t, ServiceConfig{})
	ctx := context.Background()

	session, err := env.service.Register(ctx, "Ann", "ann@example.com", "pw1")
	require.NoError(t, err)

	require.NoError(t, env.service.ForgotPassword(ctx, "ann@example.com"))
	first := env.email.nextReset(t)
	require.NoError(t, env.service.ForgotPassword(ctx, "ann@example.com"))
	second := env.email.nextReset(t)
	assert.NotEqual(t, first.token, second.token)

	assert.ErrorIs(t, env.service.ResetPassword(ctx, session.User.ID, first.token, "pw2"), ErrInvalidResetToken)
	assert.NoError(t, env.service.ResetPassword(ctx, session.User.ID, second.token, "pw2"))
}

func TestService_ResetPasswordConcurrentSingleUse(t *testing.T) {
	env := newTestEnv(t, ServiceConfig{})
	ctx := context.Background()

	session, err := env.service.Register(ctx, "Ann", "ann@example.com", "pw1")
	require.NoError(t, err)
	require.NoError(t, env.service.ForgotPassword(ctx, "ann@example.com"))
	token := env.email.nextReset(t).token

	const attempts = 5
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = env.service.ResetPassword(ctx, session.User.ID, token, "pw2")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrInvalidResetToken)
	}
	assert.Equal(t, 1, succeeded)
}

func TestService_UnknownAccounts(t *testing.T) {
	t.Run("disclosed by default", func(t *testing.T) {
		env := newTestEnv(t, ServiceConfig{})
		ctx := context.Background()

		assert.ErrorIs(t, env.service.ForgotPassword(ctx, "ghost@example.com"), user.ErrNotFound)
		assert.ErrorIs(t, env.service.ResetPassword(ctx, uuid.New(), "t", "pw"), user.ErrNotFound)
	})

	t.Run("hidden when configured", func(t *testing.T) {
		env := newTestEnv(t, ServiceConfig{HideUnknownAccounts: true})
		ctx := context.Background()

		assert.NoError(t, env.service.ForgotPassword(ctx, "ghost@example.com"))
		assert.ErrorIs(t, env.service.ResetPassword(ctx, uuid.New(), "t", "pw"), ErrInvalidResetToken)

		select {
		case <-env.email.resets:
			t.Fatal("no mail must be sent for unknown accounts")
		case <-time.After(50 * time.Millisecond):
		}
	})
}

func TestService_ResetTokenTTL(t *testing.T) {
	env := newTestEnv(t, ServiceConfig{ResetTokenTTL: time.Hour})
	ctx := context.Background()

	now := time.Now()
	env.service.now = func() time.Time { return now }

	session, err := env.service.Register(ctx, "Ann", "ann@example.com", "pw1")
	require.NoError(t, err)
	require.NoError(t, env.service.ForgotPassword(ctx, "ann@example.com"))
	token := env.email.nextReset(t).token

	env.service.now = func() time.Time { return now.Add(2 * time.Hour) }

	_, err = env.service.ValidateResetToken(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidResetToken)
	assert.ErrorIs(t, env.service.ResetPassword(ctx, session.User.ID, token, "pw2"), ErrInvalidResetToken)

	env.service.now = func() time.Time { return now.Add(30 * time.Minute) }
	assert.NoError(t, env.service.ResetPassword(ctx, session.User.ID, token, "pw2"))
}

func TestService_MailFailureDoesNotFailRequest(t *testing.T) {
	env := newTestEnv(t, ServiceConfig{})
	env.email.err = errors.New("smtp down")
	ctx := context.Background()

	_, err := env.service.Register(ctx, "Ann", "ann@example.com", "pw1")
	require.NoError(t, err)

	assert.NoError(t, env.service.ForgotPassword(ctx, "ann@example.com"))
	env.email.nextReset(t)
}

// countingHasher records which digests were verified
type countingHasher struct {
	PasswordHasher
	mu       sync.Mutex
	verified []string
}

func (h *countingHasher) Verify(digest, password string) bool {
	h.mu.Lock()
	h.verified = append(h.verified, digest)
	h.mu.Unlock()
	return h.PasswordHasher.Verify(digest, password)
}

func TestService_SignInUnknownEmailStillVerifies(t *testing.T) {
	env := newTestEnv(t, ServiceConfig{})
	ctx := context.Background()

	inner, err := NewHasher(config.HasherBcrypt, bcrypt.MinCost)
	require.NoError(t, err)
	hasher := &countingHasher{PasswordHasher: inner}
	svc := NewService(env.users, hasher, env.tokens, env.email, logging.NewNopLogger(), ServiceConfig{TokenDuration: time.Hour})

	_, err = svc.SignIn(ctx, "nobody@example.com", "pw1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.SignIn(ctx, "ghost@example.com", "pw2")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	require.Len(t, hasher.verified, 2)
	assert.NotEmpty(t, hasher.verified[0])
	assert.Equal(t, hasher.verified[0], hasher.verified[1], "one dummy digest is reused")
}
