package auth

import (
	"github.com/labstack/echo/v4"
	"github.com/mylibrary/mylibrary/pkg/config"
	"github.com/uptrace/bun"
)

// RegisterRoutes registers all auth routes on g and returns the middleware
// that guards the rest of the API.
func RegisterRoutes(g *echo.Group, db *bun.DB, cfg *config.Config) *Middleware {
	authService := NewService(db, cfg.JWTSecret, cfg.AllowRegistration)
	mw := NewMiddleware(authService)

	h := &handler{
		authService: authService,
	}

	auth := g.Group("/auth")
	auth.POST("/register", h.register)
	auth.POST("/login", h.login)
	auth.GET("/me", h.me, mw.Authenticate)

	return mw
}
