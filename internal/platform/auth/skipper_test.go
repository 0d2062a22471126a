package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// probeAuth sends one request through JWTMiddleware and reports whether the
// handler ran, which user it saw, and the chain error.
func probeAuth(t *testing.T, path, bearer string) (handlerRan bool, sawUser string, err error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath(path)

	err = JWTMiddleware(JWTConfig{SigningKey: testSigningKey})(func(c echo.Context) error {
		handlerRan = true
		sawUser = UserIDFromContext(c.Request().Context())
		return c.NoContent(http.StatusOK)
	})(c)
	return handlerRan, sawUser, err
}

func TestAuthSkipper(t *testing.T) {
	e := echo.New()
	cases := map[string]bool{
		"/health":                              true,
		"/health/db":                           true,
		"/":                                    false,
		"/health/extra":                        false,
		"/api/v1/patients":                     false,
		"/api/v1/hospitals":                    false,
		"/api/v1/patients/:id/medical-history": false,
	}
	for path, want := range cases {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		c := e.NewContext(req, httptest.NewRecorder())
		c.SetPath(path)
		if got := AuthSkipper(c); got != want {
			t.Errorf("AuthSkipper(%s) = %v, want %v", path, got, want)
		}
	}
}

func TestIsPublicPath(t *testing.T) {
	if !IsPublicPath("/health") || !IsPublicPath("/health/db") {
		t.Error("expected the health probes to be public")
	}
	if IsPublicPath("/api/v1/patients") {
		t.Error("expected API paths to require auth")
	}
}

func TestJWTMiddleware_HealthProbeNeedsNoToken(t *testing.T) {
	ran, _, err := probeAuth(t, "/health", "")
	if err != nil {
		t.Fatalf("expected the probe to pass without credentials: %v", err)
	}
	if !ran {
		t.Error("expected the handler to run")
	}
}

func TestJWTMiddleware_APIPathRejectedWithoutToken(t *testing.T) {
	ran, _, err := probeAuth(t, "/api/v1/patients", "")
	if ran {
		t.Error("expected the handler to stay unreached")
	}
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %v", err)
	}
	if httpErr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", httpErr.Code)
	}
}

func TestJWTMiddleware_ValidTokenPassesOnAPIPath(t *testing.T) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "doctor-789",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Roles: []string{"doctor"},
	}

	ran, sawUser, err := probeAuth(t, "/api/v1/patients", createTestToken(t, claims, testSigningKey))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ran {
		t.Fatal("expected the handler to run")
	}
	if sawUser != "doctor-789" {
		t.Errorf("expected subject doctor-789 on the context, got %q", sawUser)
	}
}
