package progress

import (
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
)

// RegisterRoutesWithGroup registers progress routes under an authenticated
// books group.
func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB) {
	h := &handler{
		progressService: NewService(db),
	}

	g.GET("/:id/progress", h.retrieve)
	g.PUT("/:id/progress", h.update)
}
