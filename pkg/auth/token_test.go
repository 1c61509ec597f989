package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dividify/dividify-backend/pkg/config"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "secret",
		Issuer:            "dividify",
		ExpirationMinutes: 30,
	}
}

func mustVerifier(t *testing.T, cfg config.JWTConfig) *Verifier {
	t.Helper()
	v, err := NewVerifier(cfg)
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	return v
}

func signRaw(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return signed
}

func TestSignAndVerify(t *testing.T) {
	cfg := testJWTConfig()
	userID := uuid.New()

	token, err := Sign(cfg, time.Now(), userID)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	got, claims, err := mustVerifier(t, cfg).Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if got != userID {
		t.Fatalf("expected user %s, got %s", userID, got)
	}
	if claims.ID == "" || claims.Subject != userID.String() {
		t.Fatalf("unexpected registered claims %+v", claims.RegisteredClaims)
	}
}

func TestVerifyFallsBackToSubject(t *testing.T) {
	cfg := testJWTConfig()
	userID := uuid.New()
	token := signRaw(t, cfg.Secret, Claims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    cfg.Issuer,
		Subject:   userID.String(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}})

	got, _, err := mustVerifier(t, cfg).Verify(token)
	if err != nil || got != userID {
		t.Fatalf("expected %s, got %s (%v)", userID, got, err)
	}
}

func TestVerifyRejects(t *testing.T) {
	cfg := testJWTConfig()
	userID := uuid.New()
	verifier := mustVerifier(t, cfg)

	expired, err := Sign(cfg, time.Now().Add(-2*time.Hour), userID)
	if err != nil {
		t.Fatalf("sign expired: %v", err)
	}
	if _, _, err := verifier.Verify(expired); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}

	valid, err := Sign(cfg, time.Now(), userID)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	wrongSecret := cfg
	wrongSecret.Secret = "other"
	if _, _, err := mustVerifier(t, wrongSecret).Verify(valid); err == nil {
		t.Fatal("expected signature mismatch")
	}
	wrongIssuer := cfg
	wrongIssuer.Issuer = "someone-else"
	if _, _, err := mustVerifier(t, wrongIssuer).Verify(valid); err == nil {
		t.Fatal("expected issuer mismatch")
	}
	wantAudience := cfg
	wantAudience.Audience = "dividify-api"
	if _, _, err := mustVerifier(t, wantAudience).Verify(valid); err == nil {
		t.Fatal("expected audience mismatch")
	}

	noExpiry := signRaw(t, cfg.Secret, Claims{UserID: userID.String(), RegisteredClaims: jwt.RegisteredClaims{Issuer: cfg.Issuer}})
	if _, _, err := verifier.Verify(noExpiry); err == nil {
		t.Fatal("expected token without exp to be rejected")
	}

	noUser := signRaw(t, cfg.Secret, Claims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    cfg.Issuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}})
	if _, _, err := verifier.Verify(noUser); !errors.Is(err, ErrMissingUser) {
		t.Fatalf("expected ErrMissingUser, got %v", err)
	}

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: userID.String()})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, _, err := verifier.Verify(unsigned); err == nil {
		t.Fatal("expected alg none to be rejected")
	}
}

func TestVerifyHonoursLeeway(t *testing.T) {
	cfg := testJWTConfig()
	cfg.Leeway = time.Minute
	verifier := mustVerifier(t, cfg)
	issued := time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)
	verifier.now = func() time.Time { return issued.Add(30*time.Minute + 30*time.Second) }

	token, err := Sign(cfg, issued, uuid.New())
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, _, err := verifier.Verify(token); err != nil {
		t.Fatalf("expected token inside leeway to pass: %v", err)
	}
}

func TestSignValidation(t *testing.T) {
	cases := map[string]struct {
		cfg  config.JWTConfig
		user uuid.UUID
	}{
		"missing secret": {config.JWTConfig{Issuer: "dividify", ExpirationMinutes: 1}, uuid.New()},
		"zero ttl":       {config.JWTConfig{Secret: "s", Issuer: "dividify"}, uuid.New()},
		"missing user":   {testJWTConfig(), uuid.Nil},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Sign(tc.cfg, time.Now(), tc.user); err == nil {
				t.Fatal("expected error")
			}
		})
	}
	if _, err := NewVerifier(config.JWTConfig{}); err == nil {
		t.Fatal("expected verifier to require a secret")
	}
}
