package books

import (
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/mylibrary/mylibrary/pkg/errcodes"
	"github.com/mylibrary/mylibrary/pkg/models"
	"github.com/pkg/errors"
)

// multipartOverhead is the room left for multipart boundaries and headers on
// top of the upload limit.
const multipartOverhead = 1 << 20

type handler struct {
	bookService    *Service
	maxUploadBytes int64
}

func (h *handler) retrieve(c echo.Context) error {
	book, err := h.bookFromParam(c)
	if err != nil {
		return err
	}
	return errors.WithStack(c.JSON(http.StatusOK, book))
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	// Bind params.
	params := ListBooksQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	opts := ListBooksOptions{
		Limit:    &params.Limit,
		Offset:   &params.Offset,
		FileType: &params.FileType,
	}
	if user, ok := c.Get("user").(*models.User); ok {
		opts.UserID = &user.ID
	}

	books, total, err := h.bookService.ListBooksWithTotal(ctx, opts)
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Books []*models.Book `json:"books"`
		Total int            `json:"total"`
	}{books, total}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) upload(c echo.Context) error {
	ctx := c.Request().Context()

	if c.Request().ContentLength > h.maxUploadBytes {
		return errcodes.PayloadTooLarge(h.maxUploadBytes)
	}
	// Chunked bodies carry no length; cap them while they are parsed.
	c.Request().Body = http.MaxBytesReader(c.Response(), c.Request().Body, h.maxUploadBytes+multipartOverhead)

	params := UploadPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}
	header, ok := params.FormFiles["file"]
	if !ok {
		return errcodes.ValidationError(`"file" is required`)
	}
	if header.Size > h.maxUploadBytes {
		return errcodes.PayloadTooLarge(h.maxUploadBytes)
	}

	f, err := header.Open()
	if err != nil {
		return errors.WithStack(err)
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, h.maxUploadBytes+1))
	if err != nil {
		return errors.WithStack(err)
	}
	if int64(len(data)) > h.maxUploadBytes {
		return errcodes.PayloadTooLarge(h.maxUploadBytes)
	}

	opts := IngestOptions{Filename: header.Filename, Data: data}
	if user, ok := c.Get("user").(*models.User); ok {
		opts.UploadedByID = &user.ID
	}

	book, err := h.bookService.Ingest(ctx, opts)
	if err != nil {
		return err
	}

	return errors.WithStack(c.JSON(http.StatusCreated, book))
}

// file streams the raw container. Readers use it to open a book.
func (h *handler) file(c echo.Context) error {
	book, err := h.bookFromParam(c)
	if err != nil {
		return err
	}
	data, err := h.bookService.ReadFile(book)
	if err != nil {
		return err
	}
	return errors.WithStack(c.Blob(http.StatusOK, contentTypes[book.FileType], data))
}

func (h *handler) download(c echo.Context) error {
	book, err := h.bookFromParam(c)
	if err != nil {
		return err
	}
	data, err := h.bookService.ReadFile(book)
	if err != nil {
		return err
	}
	c.Response().Header().Set("Content-Disposition", "attachment; filename=\""+downloadFilename(book)+"\"")
	return errors.WithStack(c.Blob(http.StatusOK, contentTypes[book.FileType], data))
}

func (h *handler) thumbnail(c echo.Context) error {
	book, err := h.bookFromParam(c)
	if err != nil {
		return err
	}
	data, err := h.bookService.Thumbnail(book)
	if err != nil {
		return err
	}
	c.Response().Header().Set("Cache-Control", "private, max-age=86400")
	return errors.WithStack(c.Blob(http.StatusOK, "image/jpeg", data))
}

func (h *handler) bookFromParam(c echo.Context) (*models.Book, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return nil, errcodes.NotFound("Book")
	}
	return h.bookService.RetrieveBook(c.Request().Context(), RetrieveBookOptions{
		ID: &id,
	})
}
