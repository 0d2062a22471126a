package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

var testSigningKey = []byte("test-secret-key-for-unit-tests-only")

func createTestToken(t *testing.T, claims Claims, key []byte) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenStr, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	return tokenStr
}

// liveClaims builds claims for a token that is valid for the next hour.
func liveClaims(subject string, roles ...string) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Roles: roles,
	}
}

type authResult struct {
	handlerRan bool
	userID     string
	roles      []string
	patientID  string
	err        error
}

// authAttempt sends one request at a protected path through JWTMiddleware and
// reports what the inner handler saw on its context.
func authAttempt(t *testing.T, cfg JWTConfig, header string) authResult {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/patients", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	c := e.NewContext(req, httptest.NewRecorder())

	var res authResult
	res.err = JWTMiddleware(cfg)(func(c echo.Context) error {
		ctx := c.Request().Context()
		res.handlerRan = true
		res.userID = UserIDFromContext(ctx)
		res.roles = RolesFromContext(ctx)
		res.patientID = PatientIDFromContext(ctx)
		return c.NoContent(http.StatusOK)
	})(c)
	return res
}

func requireAuthRejection(t *testing.T, res authResult, wantMsg string) {
	t.Helper()
	if res.handlerRan {
		t.Error("handler ran despite the rejected credentials")
	}
	httpErr, ok := res.err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", res.err)
	}
	if httpErr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", httpErr.Code)
	}
	if wantMsg != "" && httpErr.Message != wantMsg {
		t.Errorf("expected message %q, got %v", wantMsg, httpErr.Message)
	}
}

func TestJWTMiddleware_RejectsMissingAndMalformedHeaders(t *testing.T) {
	cfg := JWTConfig{SigningKey: testSigningKey}

	tests := []struct {
		name    string
		header  string
		wantMsg string
	}{
		{"no header at all", "", "missing authorization header"},
		{"wrong scheme", "Token abc123", "invalid authorization format"},
		{"bearer without token", "Bearer", "invalid authorization format"},
		{"basic auth", "Basic dXNlcjpwYXNz", "invalid authorization format"},
		{"bearer with empty token", "Bearer ", "invalid token"},
		{"bearer with garbage", "Bearer not.a.jwt", "invalid token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requireAuthRejection(t, authAttempt(t, cfg, tt.header), tt.wantMsg)
		})
	}
}

func TestJWTMiddleware_ValidTokenReachesHandler(t *testing.T) {
	cfg := JWTConfig{SigningKey: testSigningKey}
	token := createTestToken(t, liveClaims("doctor-42", "doctor"), testSigningKey)

	res := authAttempt(t, cfg, "Bearer "+token)
	if res.err != nil {
		t.Fatalf("unexpected error: %v", res.err)
	}
	if !res.handlerRan {
		t.Fatal("handler was not called")
	}
	if res.userID != "doctor-42" {
		t.Errorf("expected user_id doctor-42, got %s", res.userID)
	}
	if len(res.roles) != 1 || res.roles[0] != "doctor" {
		t.Errorf("expected roles [doctor], got %v", res.roles)
	}
	if res.patientID != "" {
		t.Errorf("expected no patient link on a staff token, got %s", res.patientID)
	}
}

func TestJWTMiddleware_PatientTokenCarriesRecordLink(t *testing.T) {
	cfg := JWTConfig{SigningKey: testSigningKey}
	claims := liveClaims("user-456", "patient")
	claims.PatientID = "3f6c1964-54a2-4b09-84c9-2a1a1e3cf101"
	token := createTestToken(t, claims, testSigningKey)

	res := authAttempt(t, cfg, "Bearer "+token)
	if res.err != nil {
		t.Fatalf("unexpected error: %v", res.err)
	}
	if res.patientID != claims.PatientID {
		t.Errorf("expected patient_id %s on context, got %s", claims.PatientID, res.patientID)
	}
}

func TestJWTMiddleware_RejectsExpiredToken(t *testing.T) {
	cfg := JWTConfig{SigningKey: testSigningKey}
	claims := liveClaims("user-123")
	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
	claims.IssuedAt = jwt.NewNumericDate(time.Now().Add(-2 * time.Hour))
	token := createTestToken(t, claims, testSigningKey)

	requireAuthRejection(t, authAttempt(t, cfg, "Bearer "+token), "invalid token")
}

func TestJWTMiddleware_RejectsForgedSignature(t *testing.T) {
	cfg := JWTConfig{SigningKey: testSigningKey}
	token := createTestToken(t, liveClaims("attacker"), []byte("guessed-key"))

	requireAuthRejection(t, authAttempt(t, cfg, "Bearer "+token), "invalid token")
}

func TestJWTMiddleware_RejectsUnsignedToken(t *testing.T) {
	cfg := JWTConfig{SigningKey: testSigningKey}
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, liveClaims("attacker", "admin"))
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("building alg=none token: %v", err)
	}

	requireAuthRejection(t, authAttempt(t, cfg, "Bearer "+token), "invalid token")
}

func TestJWTMiddleware_EnforcesIssuer(t *testing.T) {
	cfg := JWTConfig{SigningKey: testSigningKey, Issuer: "https://id.carehub.example"}

	rogue := liveClaims("user-1", "doctor")
	rogue.Issuer = "https://rogue.example"
	requireAuthRejection(t, authAttempt(t, cfg, "Bearer "+createTestToken(t, rogue, testSigningKey)), "invalid token")

	trusted := liveClaims("user-1", "doctor")
	trusted.Issuer = "https://id.carehub.example"
	if res := authAttempt(t, cfg, "Bearer "+createTestToken(t, trusted, testSigningKey)); !res.handlerRan {
		t.Errorf("token from the configured issuer was rejected: %v", res.err)
	}
}

func TestJWTMiddleware_EnforcesAudience(t *testing.T) {
	cfg := JWTConfig{SigningKey: testSigningKey, Audience: "carehub-api"}

	other := liveClaims("user-1", "doctor")
	other.Audience = jwt.ClaimStrings{"billing-api"}
	requireAuthRejection(t, authAttempt(t, cfg, "Bearer "+createTestToken(t, other, testSigningKey)), "invalid token")

	ours := liveClaims("user-1", "doctor")
	ours.Audience = jwt.ClaimStrings{"carehub-api"}
	if res := authAttempt(t, cfg, "Bearer "+createTestToken(t, ours, testSigningKey)); !res.handlerRan {
		t.Errorf("token for the configured audience was rejected: %v", res.err)
	}
}

func TestDevAuthMiddleware(t *testing.T) {
	run := func(t *testing.T, header string) authResult {
		t.Helper()
		e := echo.New()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/patients", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		c := e.NewContext(req, httptest.NewRecorder())

		var res authResult
		res.err = DevAuthMiddleware()(func(c echo.Context) error {
			res.handlerRan = true
			res.userID = UserIDFromContext(c.Request().Context())
			res.roles = RolesFromContext(c.Request().Context())
			return c.NoContent(http.StatusOK)
		})(c)
		return res
	}

	t.Run("no token gets dev defaults", func(t *testing.T) {
		res := run(t, "")
		if res.err != nil || !res.handlerRan {
			t.Fatalf("expected the request to pass, ran=%v err=%v", res.handlerRan, res.err)
		}
		if res.userID != "dev-user" {
			t.Errorf("expected user_id dev-user, got %s", res.userID)
		}
		if len(res.roles) != 1 || res.roles[0] != "admin" {
			t.Errorf("expected roles [admin], got %v", res.roles)
		}
	})

	t.Run("provided token passes through untouched", func(t *testing.T) {
		res := run(t, "Bearer some-token")
		if res.err != nil || !res.handlerRan {
			t.Fatalf("expected the request to pass, ran=%v err=%v", res.handlerRan, res.err)
		}
		if res.userID != "" {
			t.Errorf("expected no injected identity, got %s", res.userID)
		}
	})
}
