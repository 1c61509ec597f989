package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dividify/dividify-backend/pkg/auth"
	"github.com/dividify/dividify-backend/pkg/config"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "secret", Issuer: "dividify", ExpirationMinutes: 60}
}

func authHandler(t *testing.T, seen *uuid.UUID) http.Handler {
	t.Helper()
	verifier, err := auth.NewVerifier(testJWTConfig())
	require.NoError(t, err)
	return Auth(verifier, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if seen != nil {
			*seen, _ = UserUUIDFromContext(r.Context())
		}
		w.WriteHeader(http.StatusOK)
	}))
}

func serveWithAuthorization(h http.Handler, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/schedules", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAuthRejectsMissingOrMalformedHeader(t *testing.T) {
	h := authHandler(t, nil)
	for _, header := range []string{"", "Bearer", "Bearer   ", "Basic dXNlcjpwYXNz", "token-without-scheme"} {
		rec := serveWithAuthorization(h, header)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "header %q", header)
	}
}

func TestAuthRejectsInvalidToken(t *testing.T) {
	rec := serveWithAuthorization(authHandler(t, nil), "Bearer invalid")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid token")
}

func TestAuthReportsExpiredToken(t *testing.T) {
	token, err := auth.Sign(testJWTConfig(), time.Now().Add(-3*time.Hour), uuid.New())
	require.NoError(t, err)

	rec := serveWithAuthorization(authHandler(t, nil), "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "token expired")
}

func TestAuthRejectsTokenFromOtherIssuer(t *testing.T) {
	other := testJWTConfig()
	other.Issuer = "someone-else"
	token, err := auth.Sign(other, time.Now(), uuid.New())
	require.NoError(t, err)

	rec := serveWithAuthorization(authHandler(t, nil), "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthAllowsValidToken(t *testing.T) {
	userID := uuid.New()
	token, err := auth.Sign(testJWTConfig(), time.Now(), userID)
	require.NoError(t, err)

	var seen uuid.UUID
	rec := serveWithAuthorization(authHandler(t, &seen), "bearer "+token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, userID, seen)
}

func TestUserUUIDFromContextRejectsMalformed(t *testing.T) {
	ctx := WithUserID(httptest.NewRequest(http.MethodGet, "/", nil).Context(), "not-a-uuid")
	_, ok := UserUUIDFromContext(ctx)
	assert.False(t, ok)
}
