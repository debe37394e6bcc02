// Package auth provides bearer-token authentication and role checks for
// the billing API. Tokens are HMAC-signed JWTs carrying a roles claim;
// development mode injects an admin identity so local tooling works
// without a token server.
package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const (
	userIDKey    = "user_id"
	userNameKey  = "user_name"
	userRolesKey = "user_roles"
)

// Claims are the JWT claims this service understands.
type Claims struct {
	jwt.RegisteredClaims
	Name  string   `json:"name,omitempty"`
	Roles []string `json:"roles"`
}

// JWTConfig configures the JWT middleware.
type JWTConfig struct {
	SigningKey []byte
	Issuer     string
}

// JWTMiddleware validates the Authorization bearer token and stores the
// caller's identity and roles in the echo context.
func JWTMiddleware(cfg JWTConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if header == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "malformed authorization header")
			}

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return cfg.SigningKey, nil
			}, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
			if err != nil || !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}
			if cfg.Issuer != "" && claims.Issuer != cfg.Issuer {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token issuer")
			}

			c.Set(userIDKey, claims.Subject)
			c.Set(userNameKey, claims.Name)
			c.Set(userRolesKey, claims.Roles)
			return next(c)
		}
	}
}

// DevAuthMiddleware grants every request an admin identity. Development
// only; Config.Validate refuses this outside ENV=development.
func DevAuthMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(userIDKey, "dev-user")
			c.Set(userNameKey, "Development User")
			c.Set(userRolesKey, []string{"admin"})
			return next(c)
		}
	}
}

// RequireRole rejects requests whose caller holds none of the given
// roles. The admin role always passes.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles)+1)
	allowed["admin"] = true
	for _, r := range roles {
		allowed[r] = true
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			held, _ := c.Get(userRolesKey).([]string)
			for _, r := range held {
				if allowed[r] {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden, "insufficient role")
		}
	}
}

// UserID returns the authenticated caller's subject, or "" when
// unauthenticated.
func UserID(c echo.Context) string {
	id, _ := c.Get(userIDKey).(string)
	return id
}

// UserName returns the authenticated caller's display name.
func UserName(c echo.Context) string {
	name, _ := c.Get(userNameKey).(string)
	return name
}

// IssueToken signs a token for the given subject and roles. Used by
// tests and the CLI; production deployments normally have an external
// issuer.
func IssueToken(cfg JWTConfig, subject, name string, roles []string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Name:  name,
		Roles: roles,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(cfg.SigningKey)
}
