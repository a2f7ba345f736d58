package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/ascendedtech/techlab-server/internal/handler"
	"github.com/ascendedtech/techlab-server/internal/middleware"
)

// RegisterHealth exposes the liveness probe.  Load balancers and the admin
// dashboard poll it, so it stays outside every auth and rate-limit group.
func RegisterHealth(e *echo.Echo, h *handler.HealthHandler) {
	e.GET("/api/health", h.Check)
}

// RegisterAuth registers the registration and login endpoints.  The whole
// group sits behind the rate limiter: register and resend-code both cost an
// outbound email per call.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, limiter echo.MiddlewareFunc) {
	g := e.Group("/api/auth")
	if limiter != nil {
		g.Use(limiter)
	}
	g.POST("/register", a.Register)
	g.POST("/verify-email", a.VerifyEmail)
	g.POST("/resend-code", a.ResendCode)
	g.POST("/login", a.Login)
}

// RegisterUsers registers the plain user CRUD surface plus per-user progress
// and badge endpoints.
func RegisterUsers(e *echo.Echo, u *handler.UserHandler, p *handler.ProgressHandler) {
	e.GET("/api/users", u.List)
	e.POST("/api/users", u.Create)
	e.GET("/api/users/:id", u.Get)
	e.PUT("/api/users/:id", u.Update)
	e.DELETE("/api/users/:id", u.Delete)

	e.GET("/api/users/:id/progress", p.GetProgress)
	e.POST("/api/users/:id/progress", p.UpdateProgress)
	e.GET("/api/users/:id/badges", p.GetBadges)
	e.POST("/api/users/:id/badges", p.AwardBadge)
}

// RegisterAdmin registers the admin console.  Only the login endpoint is
// reachable without a bearer session; everything else goes through AdminAuth,
// which re-checks the role on every request.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler, an *handler.AnalyticsHandler,
	secret string, sessions middleware.SessionFinder, users middleware.UserFinder,
	limiter, cache echo.MiddlewareFunc) {

	login := e.Group("/api/admin/auth")
	if limiter != nil {
		login.Use(limiter)
	}
	login.POST("/login", a.AdminLogin)

	g := e.Group("/api/admin")
	g.Use(middleware.AdminAuth(secret, sessions, users))
	g.GET("/users", a.ListUsers)
	g.POST("/users/:id/promote", a.Promote)
	g.DELETE("/users/:id", a.DeleteUser)
	g.GET("/analytics/overview", an.Overview)
	g.GET("/activity/live", an.LiveActivity)
	// The full-table summaries sit behind the short-TTL response cache.
	if cache == nil {
		cache = func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	g.GET("/progress/summary", an.ProgressSummary, cache)
	g.GET("/badges/summary", an.BadgesSummary, cache)
}
