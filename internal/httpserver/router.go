package httpserver

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/session_manager/internal/audit"
	authmw "github.com/Skotchmaster/session_manager/internal/middleware/auth"
	"github.com/Skotchmaster/session_manager/internal/metrics"
)

type Deps struct {
	AuthHandler  *AuthHTTP
	UsersHandler *UsersHTTP
	Gate         *authmw.Gate
	Metrics      *metrics.Metrics

	// Ready reports whether the store is reachable. Nil means always ready.
	Ready func(ctx context.Context) error
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/", func(c echo.Context) error { return c.String(http.StatusOK, "API is running") })
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.Ready != nil {
			if err := d.Ready(c.Request().Context()); err != nil {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "Database unavailable").SetInternal(err)
			}
		}
		return c.NoContent(http.StatusOK)
	})
	if d.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(d.Metrics.Handler()))
	}

	api := e.Group("/api", auditClient)

	auth := api.Group("/auth")
	auth.POST("/signup", d.AuthHandler.Signup)
	auth.POST("/login", d.AuthHandler.Login)
	auth.POST("/refresh", d.AuthHandler.Refresh)
	auth.POST("/logout", d.AuthHandler.Logout)

	g := d.Gate
	users := api.Group("/users", g.Authenticate)
	users.GET("", d.UsersHandler.List, g.RequireAdmin)
	users.POST("", d.UsersHandler.Create, g.RequireAdmin)
	users.GET("/me", d.UsersHandler.Me)
	users.GET("/:id", d.UsersHandler.Get, g.RequireSelfOrAdmin("id"))
	users.PUT("/:id", d.UsersHandler.Update, g.RequireSelfOrAdmin("id"))
	users.DELETE("/:id", d.UsersHandler.Delete, g.RequireSelfOrAdmin("id"))
	users.GET("/:id/audit", d.UsersHandler.Audit, g.RequireAdmin)
}

// auditClient makes the caller's address available to audit entries recorded by services.
func auditClient(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		ctx := audit.WithClient(req.Context(), audit.Client{IP: c.RealIP(), UserAgent: req.UserAgent()})
		c.SetRequest(req.WithContext(ctx))
		return next(c)
	}
}
