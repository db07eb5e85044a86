package config

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/mylibrary/mylibrary/pkg/models"
	"github.com/pkg/errors"
)

type handler struct {
	config *Config
}

// PublicConfig is the part of the server configuration clients may read.
type PublicConfig struct {
	AllowRegistration bool     `json:"allow_registration"`
	MaxUploadBytes    int64    `json:"max_upload_bytes"`
	FileTypes         []string `json:"file_types"`
}

func (h *handler) retrieve(c echo.Context) error {
	return errors.WithStack(c.JSON(http.StatusOK, PublicConfig{
		AllowRegistration: h.config.AllowRegistration,
		MaxUploadBytes:    h.config.MaxUploadBytes,
		FileTypes:         models.FileTypes,
	}))
}
