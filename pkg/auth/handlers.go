package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/mylibrary/mylibrary/pkg/errcodes"
	"github.com/mylibrary/mylibrary/pkg/models"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
)

type handler struct {
	authService *Service
}

func (h *handler) register(c echo.Context) error {
	ctx := c.Request().Context()
	log := logger.FromContext(ctx)

	params := CredentialsPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	user, err := h.authService.Register(ctx, params.Username, params.Password)
	if err != nil {
		return err
	}
	log.Info("user registered", logger.Data{"user_id": user.ID})

	return h.respondWithSession(c, http.StatusCreated, user)
}

func (h *handler) login(c echo.Context) error {
	ctx := c.Request().Context()

	params := CredentialsPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	user, err := h.authService.Authenticate(ctx, params.Username, params.Password)
	if err != nil {
		return err
	}

	return h.respondWithSession(c, http.StatusOK, user)
}

// me returns the authenticated user. It runs behind Authenticate.
func (h *handler) me(c echo.Context) error {
	user, ok := c.Get("user").(*models.User)
	if !ok {
		return errcodes.Unauthorized("Authentication required")
	}
	return c.JSON(http.StatusOK, user)
}

func (h *handler) respondWithSession(c echo.Context, status int, user *models.User) error {
	token, err := h.authService.GenerateToken(user)
	if err != nil {
		return errors.WithStack(err)
	}
	return c.JSON(status, SessionResponse{Token: token, User: user})
}
