package books

import (
	"github.com/labstack/echo/v4"
	"github.com/mylibrary/mylibrary/pkg/config"
	"github.com/uptrace/bun"
)

// RegisterRoutesWithGroup registers book routes on a pre-configured group.
// The group is expected to require authentication.
func RegisterRoutesWithGroup(g *echo.Group, db *bun.DB, cfg *config.Config) *Service {
	bookService := NewService(db, cfg.StorageDirectory, cfg.ThumbnailWidth)

	h := &handler{
		bookService:    bookService,
		maxUploadBytes: cfg.MaxUploadBytes,
	}

	g.GET("", h.list)
	g.POST("/upload", h.upload)
	g.GET("/:id", h.retrieve)
	g.GET("/:id/file", h.file)
	g.GET("/:id/download", h.download)
	g.GET("/:id/thumbnail", h.thumbnail)

	return bookService
}
