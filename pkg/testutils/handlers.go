package testutils

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/mylibrary/mylibrary/pkg/auth"
	"github.com/mylibrary/mylibrary/pkg/models"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

type handler struct {
	db *bun.DB
}

// createUserRequest is the request body for creating a test user.
type createUserRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// createUserResponse is the response body for creating a test user.
type createUserResponse struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
}

// createUser creates a user regardless of the registration setting.
// POST /test/users.
func (h *handler) createUser(c echo.Context) error {
	ctx := c.Request().Context()

	var req createUserRequest
	if err := c.Bind(&req); err != nil {
		return errors.WithStack(err)
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		return errors.Wrap(err, "failed to hash password")
	}

	user := &models.User{
		CreatedAt:    time.Now(),
		Username:     req.Username,
		PasswordHash: hashedPassword,
	}
	_, err = h.db.NewInsert().Model(user).Exec(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to create user")
	}

	return c.JSON(http.StatusCreated, createUserResponse{
		ID:       user.ID,
		Username: user.Username,
	})
}

// resetResponse counts the rows each table lost.
type resetResponse struct {
	Progress int `json:"progress"`
	Books    int `json:"books"`
	Users    int `json:"users"`
}

// reset empties every table. Stored files are left on disk.
// DELETE /test/data.
func (h *handler) reset(c echo.Context) error {
	ctx := c.Request().Context()
	resp := resetResponse{}

	err := h.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		// Children first so foreign keys hold throughout.
		if resp.Progress, err = deleteAll(ctx, tx, (*models.ReadingProgress)(nil)); err != nil {
			return errors.Wrap(err, "failed to delete reading progress")
		}
		if resp.Books, err = deleteAll(ctx, tx, (*models.Book)(nil)); err != nil {
			return errors.Wrap(err, "failed to delete books")
		}
		if resp.Users, err = deleteAll(ctx, tx, (*models.User)(nil)); err != nil {
			return errors.Wrap(err, "failed to delete users")
		}
		return nil
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, resp)
}

func deleteAll(ctx context.Context, tx bun.Tx, model interface{}) (int, error) {
	result, err := tx.NewDelete().
		Model(model).
		Where("1=1").
		Exec(ctx)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	deleted, _ := result.RowsAffected()
	return int(deleted), nil
}
