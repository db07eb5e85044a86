package config

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes serves the public configuration under g.
func RegisterRoutes(g *echo.Group, cfg *Config) {
	h := &handler{config: cfg}
	g.GET("/config", h.retrieve)
}
