package middleware

// identity.go holds helpers shared across middleware files that need the
// caller identity as a string, e.g. for rate limit keys and log fields.

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// userID returns the authenticated user ID stored by JWTAuth, or "guest".
func userID(c echo.Context) string {
	if id, ok := c.Get(ContextUserID).(uint64); ok && id != 0 {
		return strconv.FormatUint(id, 10)
	}
	return "guest"
}
