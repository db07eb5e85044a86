package progress

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/mylibrary/mylibrary/pkg/auth"
	"github.com/mylibrary/mylibrary/pkg/errcodes"
	"github.com/mylibrary/mylibrary/pkg/models"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
)

type handler struct {
	progressService *Service
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	userID, bookID, err := ids(c)
	if err != nil {
		return err
	}

	p, err := h.progressService.RetrieveProgress(ctx, userID, bookID)
	if err != nil {
		return err
	}
	return errors.WithStack(c.JSON(http.StatusOK, p))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()
	log := logger.FromContext(ctx)
	userID, bookID, err := ids(c)
	if err != nil {
		return err
	}

	params := ProgressPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}
	if (params.CurrentPage == nil) != (params.TotalPages == nil) {
		return errcodes.ValidationError(`"current_page" and "total_pages" must be sent together`)
	}
	if params.CurrentPage != nil && *params.CurrentPage > *params.TotalPages {
		return errcodes.ValidationError(`"current_page" must be less than or equal to "total_pages"`)
	}

	incoming := &models.ReadingProgress{
		UserID:          userID,
		BookID:          bookID,
		ProgressPercent: params.ProgressPercent,
		CurrentPage:     params.CurrentPage,
		TotalPages:      params.TotalPages,
		Location:        params.Location,
		UpdatedAt:       params.UpdatedAt.UTC(),
	}
	kept, err := h.progressService.SaveProgress(ctx, incoming)
	if err != nil {
		return err
	}
	if kept != incoming {
		log.Debug("ignored stale progress", logger.Data{"book_id": bookID, "sent": incoming.UpdatedAt, "stored": kept.UpdatedAt})
	}

	return errors.WithStack(c.JSON(http.StatusOK, kept))
}

func ids(c echo.Context) (int, int, error) {
	userID, ok := auth.GetUserIDFromContext(c)
	if !ok {
		return 0, 0, errcodes.Unauthorized("Authentication required")
	}
	bookID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return 0, 0, errcodes.NotFound("Book")
	}
	return userID, bookID, nil
}
