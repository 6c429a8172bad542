package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/program-planner/internal/utils"
)

// Context keys set by JWTAuth and OptionalJWT.
const (
	ContextUserID = "user_id"
	ContextRole   = "role"
)

// bearer returns the raw token of an "Authorization: Bearer" header.
func bearer(c echo.Context) (string, bool) {
	auth := c.Request().Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return "", false
	}
	raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	return raw, raw != ""
}

// JWTAuth returns an Echo middleware that validates a Bearer access token and
// injects the token's subject (as uint64) and role claims into the request
// context.  Handlers read them via c.Get("user_id") and c.Get("role").
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearer(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			claims, err := utils.ParseAccessToken(secret, raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			c.Set(ContextUserID, claims.UserID)
			c.Set(ContextRole, claims.Role)
			return next(c)
		}
	}
}

// OptionalJWT sets the identity when a valid Bearer token is present and
// lets the request through unauthenticated otherwise.
func OptionalJWT(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if raw, ok := bearer(c); ok {
				if claims, err := utils.ParseAccessToken(secret, raw); err == nil {
					c.Set(ContextUserID, claims.UserID)
					c.Set(ContextRole, claims.Role)
				}
			}
			return next(c)
		}
	}
}
