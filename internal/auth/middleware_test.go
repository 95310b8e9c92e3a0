package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/storefront-users/internal/httputil"
)

func TestMiddleware_RequireAuth(t *testing.T) {
	tokens, err := NewPasetoService(testPasetoKey)
	require.NoError(t, err)
	m := NewMiddleware(tokens)

	userID := uuid.New()
	valid, err := tokens.CreateToken(UserClaims{UserID: userID, Email: "user@example.com"}, time.Hour)
	require.NoError(t, err)
	expired, err := tokens.CreateToken(UserClaims{UserID: userID}, -time.Hour)
	require.NoError(t, err)

	var seen uuid.UUID
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := GetUserIDFromContext(r.Context())
		require.True(t, ok)
		claims, ok := GetClaimsFromContext(r.Context())
		require.True(t, ok)
		assert.Equal(t, "user@example.com", claims.Email)
		seen = id
		w.WriteHeader(http.StatusNoContent)
	})
	handler := m.RequireAuth(next)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantCode   string
	}{
		{"missing header", "", http.StatusUnauthorized, httputil.CodeMissingAuth},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, httputil.CodeInvalidAuthHeader},
		{"no token", "Bearer ", http.StatusUnauthorized, httputil.CodeInvalidAuthHeader},
		{"garbage token", "Bearer nope", http.StatusUnauthorized, httputil.CodeInvalidToken},
		{"expired token", "Bearer " + expired, http.StatusUnauthorized, httputil.CodeTokenExpired},
		{"valid token", "Bearer " + valid, http.StatusNoContent, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantCode != "" {
				var resp httputil.ErrorResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
				assert.Equal(t, tt.wantCode, resp.Code)
			}
		})
	}

	assert.Equal(t, userID, seen)
}

func TestMiddleware_RequireAdmin(t *testing.T) {
	tokens, err := NewJWTService(testJWTSecret)
	require.NoError(t, err)
	m := NewMiddleware(tokens)

	handler := m.RequireAuth(m.RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	admin, err := tokens.CreateToken(UserClaims{UserID: uuid.New(), IsAdmin: true}, time.Hour)
	require.NoError(t, err)
	customer, err := tokens.CreateToken(UserClaims{UserID: uuid.New()}, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+admin)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+customer)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	var resp httputil.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, httputil.CodeAdminRequired, resp.Code)

	// Without RequireAuth in front there are no claims at all
	rec = httptest.NewRecorder()
	m.RequireAdmin(http.NotFoundHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
