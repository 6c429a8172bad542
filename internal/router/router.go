package router // package router defines how HTTP routes are registered for the API

import (
	"database/sql"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/program-planner/internal/handler"
	"github.com/iliyamo/program-planner/internal/middleware"
	"github.com/iliyamo/program-planner/internal/model"
)

// RegisterRoutes registers routes that do not require authentication and
// are not part of the API proper.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo, db *sql.DB) {
	e.GET("/healthz", handler.Health(db))
}

// RegisterAuth registers the authentication routes.  Register, login,
// refresh and logout live under /v1/auth without a session; /v1/me needs a
// valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// Rotates the refresh token.
	g.POST("/refresh", a.Refresh)
	// Issues a new access token and keeps the refresh token.
	g.POST("/refresh-access", a.RefreshAccess)
	g.POST("/logout", a.Logout, middleware.OptionalJWT(jwtSecret))

	e.GET("/v1/me", a.Me,
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleUser, model.RoleAdmin))
}

// RegisterPrograms registers the program and item endpoints.  Every route
// requires a valid JWT; ownership is decided per program by the service,
// which reports foreign programs as 404.
func RegisterPrograms(e *echo.Echo, p *handler.ProgramHandler, i *handler.ItemHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleUser, model.RoleAdmin),
	)

	g.GET("/dashboard", p.Dashboard)

	// ---- Programs ----
	g.GET("/programs", p.List)
	g.POST("/programs", p.Create)
	g.GET("/programs/:id", p.Get)
	g.PUT("/programs/:id", p.Replace)
	g.PATCH("/programs/:id", p.Patch)
	g.DELETE("/programs/:id", p.Delete)
	g.POST("/programs/:id/share", p.Share)
	g.GET("/programs/:id/readiness", p.Readiness)

	// ---- Items ----
	g.GET("/programs/:id/items", i.List)
	g.POST("/programs/:id/items", i.Create)
	g.GET("/programs/:id/items/:item_id", i.Get)
	g.PUT("/programs/:id/items/:item_id", i.Replace)
	g.PATCH("/programs/:id/items/:item_id", i.Patch)
	g.DELETE("/programs/:id/items/:item_id", i.Delete)
}

// RegisterPublic registers the unauthenticated read path of shared
// programs.  Responses go through the Redis response cache.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, cache *middleware.ResponseCache) {
	e.GET(handler.SharedPathPrefix+":token", p.SharedProgram, cache.Middleware())
}
