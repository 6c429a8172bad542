package middleware

import (
	"net/http"
	"slices"

	"github.com/labstack/echo/v4"
)

// RequireRole admits requests whose JWT role (stored by JWTAuth under
// ContextRole) is one of roles.  Anything else gets 403.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if role, _ := c.Get(ContextRole).(string); role == "" || !slices.Contains(roles, role) {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "role not permitted"})
			}
			return next(c)
		}
	}
}
