package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/storefront-users/internal/httputil"
)

func newTestRouter(env *testEnv) http.Handler {
	h := NewHandler(env.service)
	m := NewMiddleware(env.tokens)

	r := chi.NewRouter()
	r.Post("/signin", h.SignIn)
	r.Post("/register", h.Register)
	r.With(m.RequireAuth).Put("/profile", h.UpdateProfile)
	r.Get("/request-reset-password/{token}", h.ValidateResetToken)
	r.Put("/{id}/forget-password", h.ForgotPassword)
	r.Put("/{id}/reset-password", h.ResetPassword)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestHandler_RegisterSignIn(t *testing.T) {
	env := newTestEnv(t, ServiceConfig{})
	h := newTestRouter(env)

	rec := do(t, h, http.MethodPost, "/register", `{"name":"Ann","email":"ann@example.com","password":"pw1"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code)

	registered := decode[AuthResponse](t, rec)
	assert.Equal(t, "Ann", registered.Name)
	assert.False(t, registered.IsAdmin)
	assert.NotEmpty(t, registered.Token)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = do(t, h, http.MethodPost, "/signin", `{"email":"ann@example.com","password":"bad"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid email or password", decode[httputil.ErrorResponse](t, rec).Message)

	rec = do(t, h, http.MethodPost, "/signin", `{"email":"nobody@example.com","password":"pw1"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid email or password", decode[httputil.ErrorResponse](t, rec).Message)

	rec = do(t, h, http.MethodPost, "/signin", `{"email":"ann@example.com","password":"pw1"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	signedIn := decode[AuthResponse](t, rec)
	assert.Equal(t, registered.ID, signedIn.ID)
	assert.NotEmpty(t, signedIn.Token)
}

func TestHandler_RegisterValidation(t *testing.T) {
	env := newTestEnv(t, ServiceConfig{})
	h := newTestRouter(env)

	tests := []struct {
		name     string
		body     string
		wantCode string
	}{
		{"malformed json", `{"name":`, httputil.CodeInvalidRequestBody},
		{"missing name", `{"email":"a@example.com","password":"x"}`, httputil.CodeValidationFailed},
		{"bad email", `{"name":"A","email":"not-an-email","password":"x"}`, httputil.CodeValidationFailed},
		{"missing password", `{"name":"A","email":"a@example.com"}`, httputil.CodeValidationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/register", tt.body, "")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.wantCode, decode[httputil.ErrorResponse](t, rec).Code)
		})
	}

	rec := do(t, h, http.MethodPost, "/register", `{"name":"A","email":"a@example.com","password":"x"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = do(t, h, http.MethodPost, "/register", `{"name":"B","email":"a@example.com","password":"y"}`, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, httputil.CodeEmailAlreadyExists, decode[httputil.ErrorResponse](t, rec).Code)
}

func TestHandler_UpdateProfile(t *testing.T) {
	env := newTestEnv(t, ServiceConfig{})
	h := newTestRouter(env)

	rec := do(t, h, http.MethodPost, "/register", `{"name":"Ann","email":"ann@example.com","password":"pw1"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	token := decode[AuthResponse](t, rec).Token

	rec = do(t, h, http.MethodPut, "/profile", `{"name":"Annie"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, http.MethodPut, "/profile", `{"name":"Annie","email":"","password":"pw2"}`, token)
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decode[AuthResponse](t, rec)
	assert.Equal(t, "Annie", updated.Name)
	assert.Equal(t, "ann@example.com", updated.Email)
	assert.NotEmpty(t, updated.Token)

	rec = do(t, h, http.MethodPut, "/profile", `{"email":"bad"}`, token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/signin", `{"email":"ann@example.com","password":"pw2"}`, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandler_PasswordResetFlow(t *testing.T) {
	env := newTestEnv(t, ServiceConfig{})
	h := newTestRouter(env)

	rec := do(t, h, http.MethodPost, "/register", `{"name":"Ann","email":"ann@example.com","password":"pw1"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode[AuthResponse](t, rec).ID.String()

	rec = do(t, h, http.MethodPut, "/ghost@example.com/forget-password", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "A user with this email has not found.", decode[httputil.ErrorResponse](t, rec).Message)

	rec = do(t, h, http.MethodPut, "/ann@example.com/forget-password", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Reset Token Has Been Set"}`, rec.Body.String())

	token := env.email.nextReset(t).token

	rec = do(t, h, http.MethodGet, "/request-reset-password/"+token, "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	validated := decode[ResetTokenResponse](t, rec)
	assert.Equal(t, "Success", validated.Message)
	assert.Equal(t, id, validated.User.ID.String())
	assert.NotContains(t, rec.Body.String(), token)
	assert.NotContains(t, rec.Body.String(), "$2a$")

	rec = do(t, h, http.MethodGet, "/request-reset-password/nope", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, httputil.CodeInvalidResetToken, decode[httputil.ErrorResponse](t, rec).Code)

	rec = do(t, h, http.MethodPut, "/"+id+"/reset-password", `{"resetToken":"nope","password":"pw2"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Reset token is not valid. Please follow forget password again.", decode[httputil.ErrorResponse](t, rec).Message)

	rec = do(t, h, http.MethodPut, "/not-a-uuid/reset-password", `{"resetToken":"`+token+`","password":"pw2"}`, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodPut, "/"+id+"/reset-password", `{"resetToken":"`+token+`","password":"pw2"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Reset password has been done successfully. Please signin again."}`, rec.Body.String())
	env.email.nextChanged(t)

	rec = do(t, h, http.MethodPut, "/"+id+"/reset-password", `{"resetToken":"`+token+`","password":"pw3"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/signin", `{"email":"ann@example.com","password":"pw2"}`, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
