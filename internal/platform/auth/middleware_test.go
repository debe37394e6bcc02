package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

var testCfg = JWTConfig{SigningKey: []byte("test-secret"), Issuer: "hms"}

func doRequest(t *testing.T, mw echo.MiddlewareFunc, token string) (*echo.Echo, echo.Context, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	c := e.NewContext(req, httptest.NewRecorder())
	h := mw(func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	return e, c, h(c)
}

func TestJWTMiddleware_ValidToken(t *testing.T) {
	token, err := IssueToken(testCfg, "user-1", "Billing Clerk", []string{"billing"}, time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	_, c, err := doRequest(t, JWTMiddleware(testCfg), token)
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if UserID(c) != "user-1" {
		t.Errorf("user id = %q", UserID(c))
	}
	if UserName(c) != "Billing Clerk" {
		t.Errorf("user name = %q", UserName(c))
	}
}

func TestJWTMiddleware_MissingHeader(t *testing.T) {
	_, _, err := doRequest(t, JWTMiddleware(testCfg), "")
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestJWTMiddleware_WrongKey(t *testing.T) {
	token, _ := IssueToken(JWTConfig{SigningKey: []byte("other"), Issuer: "hms"}, "u", "", nil, time.Hour)
	_, _, err := doRequest(t, JWTMiddleware(testCfg), token)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestJWTMiddleware_Expired(t *testing.T) {
	token, _ := IssueToken(testCfg, "u", "", []string{"admin"}, -time.Minute)
	_, _, err := doRequest(t, JWTMiddleware(testCfg), token)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestJWTMiddleware_WrongIssuer(t *testing.T) {
	token, _ := IssueToken(JWTConfig{SigningKey: testCfg.SigningKey, Issuer: "someone-else"}, "u", "", nil, time.Hour)
	_, _, err := doRequest(t, JWTMiddleware(testCfg), token)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestRequireRole(t *testing.T) {
	e := echo.New()

	run := func(roles []string, guard echo.MiddlewareFunc) error {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		c := e.NewContext(req, httptest.NewRecorder())
		c.Set(userRolesKey, roles)
		h := guard(func(c echo.Context) error { return c.NoContent(http.StatusOK) })
		return h(c)
	}

	if err := run([]string{"billing"}, RequireRole("billing")); err != nil {
		t.Errorf("billing role should pass: %v", err)
	}
	if err := run([]string{"admin"}, RequireRole("billing")); err != nil {
		t.Errorf("admin always passes: %v", err)
	}
	err := run([]string{"reception"}, RequireRole("billing"))
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %v", err)
	}
}

func TestDevAuthMiddleware(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	h := DevAuthMiddleware()(func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	if err := h(c); err != nil {
		t.Fatal(err)
	}
	roles, _ := c.Get(userRolesKey).([]string)
	if len(roles) != 1 || roles[0] != "admin" {
		t.Errorf("roles = %v, want [admin]", roles)
	}
}
