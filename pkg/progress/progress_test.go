package progress

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/mylibrary/mylibrary/pkg/binder"
	"github.com/mylibrary/mylibrary/pkg/config"
	"github.com/mylibrary/mylibrary/pkg/database"
	"github.com/mylibrary/mylibrary/pkg/errcodes"
	"github.com/mylibrary/mylibrary/pkg/migrations"
	"github.com/mylibrary/mylibrary/pkg/models"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

type fixture struct {
	db     *bun.DB
	svc    *Service
	userID int
	bookID int
}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	db, err := database.New(config.NewForTest())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	_, err = migrations.BringUpToDate(ctx, db)
	require.NoError(t, err)

	user := &models.User{Username: "reader", PasswordHash: "x", CreatedAt: time.Now()}
	_, err = db.NewInsert().Model(user).Exec(ctx)
	require.NoError(t, err)
	book := &models.Book{Title: "Saga", FileType: models.FileTypeCBZ, Filepath: "/books/saga.cbz", CreatedAt: time.Now()}
	_, err = db.NewInsert().Model(book).Exec(ctx)
	require.NoError(t, err)

	return &fixture{db: db, svc: NewService(db), userID: user.ID, bookID: book.ID}
}

func intPtr(i int) *int { return &i }

func TestService_SaveProgress(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("no progress is a 404", func(tt *testing.T) {
		tt.Parallel()
		f := setup(tt)
		_, err := f.svc.RetrieveProgress(ctx, f.userID, f.bookID)
		assert.ErrorIs(tt, err, errcodes.NotFound("Reading progress"))
	})

	t.Run("newer writes replace older ones", func(tt *testing.T) {
		tt.Parallel()
		f := setup(tt)
		first := &models.ReadingProgress{UserID: f.userID, BookID: f.bookID, ProgressPercent: 10, CurrentPage: intPtr(12), TotalPages: intPtr(120), UpdatedAt: base}
		kept, err := f.svc.SaveProgress(ctx, first)
		require.NoError(tt, err)
		assert.Equal(tt, 10, kept.ProgressPercent)

		second := &models.ReadingProgress{UserID: f.userID, BookID: f.bookID, ProgressPercent: 38, CurrentPage: intPtr(45), TotalPages: intPtr(120), UpdatedAt: base.Add(time.Minute)}
		kept, err = f.svc.SaveProgress(ctx, second)
		require.NoError(tt, err)
		assert.Equal(tt, 38, kept.ProgressPercent)

		stored, err := f.svc.RetrieveProgress(ctx, f.userID, f.bookID)
		require.NoError(tt, err)
		assert.Equal(tt, 38, stored.ProgressPercent)
		assert.Equal(tt, 45, *stored.CurrentPage)
		assert.True(tt, stored.UpdatedAt.Equal(base.Add(time.Minute)))
	})

	t.Run("stale writes return the stored record", func(tt *testing.T) {
		tt.Parallel()
		f := setup(tt)
		_, err := f.svc.SaveProgress(ctx, &models.ReadingProgress{UserID: f.userID, BookID: f.bookID, ProgressPercent: 50, UpdatedAt: base})
		require.NoError(tt, err)

		kept, err := f.svc.SaveProgress(ctx, &models.ReadingProgress{UserID: f.userID, BookID: f.bookID, ProgressPercent: 20, UpdatedAt: base.Add(-time.Hour)})
		require.NoError(tt, err)
		assert.Equal(tt, 50, kept.ProgressPercent)

		kept, err = f.svc.SaveProgress(ctx, &models.ReadingProgress{UserID: f.userID, BookID: f.bookID, ProgressPercent: 30, UpdatedAt: base})
		require.NoError(tt, err)
		assert.Equal(tt, 50, kept.ProgressPercent, "equal timestamps keep the stored record")
	})

	t.Run("unknown books are a 404", func(tt *testing.T) {
		tt.Parallel()
		f := setup(tt)
		_, err := f.svc.SaveProgress(ctx, &models.ReadingProgress{UserID: f.userID, BookID: 999, UpdatedAt: base})
		assert.ErrorIs(tt, err, errcodes.NotFound("Book"))
	})

	t.Run("progress is per user", func(tt *testing.T) {
		tt.Parallel()
		f := setup(tt)
		other := &models.User{Username: "other", PasswordHash: "x", CreatedAt: time.Now()}
		_, err := f.db.NewInsert().Model(other).Exec(ctx)
		require.NoError(tt, err)

		_, err = f.svc.SaveProgress(ctx, &models.ReadingProgress{UserID: f.userID, BookID: f.bookID, ProgressPercent: 70, UpdatedAt: base})
		require.NoError(tt, err)
		_, err = f.svc.RetrieveProgress(ctx, other.ID, f.bookID)
		assert.ErrorIs(tt, err, errcodes.NotFound("Reading progress"))
	})
}

func newTestServer(t *testing.T, f *fixture) *echo.Echo {
	t.Helper()

	e := echo.New()
	b, err := binder.New()
	require.NoError(t, err)
	e.Binder = b
	e.HTTPErrorHandler = errcodes.NewHandler().Handle

	g := e.Group("/api/books", func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("user_id", f.userID)
			return next(c)
		}
	})
	RegisterRoutesWithGroup(g, f.db)
	return e
}

func TestHandlers(t *testing.T) {
	t.Parallel()
	f := setup(t)
	e := newTestServer(t, f)
	target := "/api/books/" + strconv.Itoa(f.bookID) + "/progress"

	put := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPut, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}
	get := func() *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		return rec
	}

	assert.Equal(t, http.StatusNotFound, get().Code)

	rec := put(`{"progress_percent":38,"current_page":45,"total_pages":120,"updated_at":"2026-03-01T12:00:00Z"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	t.Run("get returns the stored record", func(tt *testing.T) {
		rec := get()
		require.Equal(tt, http.StatusOK, rec.Code)
		p := models.ReadingProgress{}
		require.NoError(tt, json.Unmarshal(rec.Body.Bytes(), &p))
		assert.Equal(tt, f.bookID, p.BookID)
		assert.Equal(tt, 38, p.ProgressPercent)
		assert.Equal(tt, 120, *p.TotalPages)
	})

	t.Run("stale put answers with the newer record", func(tt *testing.T) {
		rec := put(`{"progress_percent":5,"current_page":6,"total_pages":120,"updated_at":"2026-03-01T11:00:00Z"}`)
		require.Equal(tt, http.StatusOK, rec.Code)
		p := models.ReadingProgress{}
		require.NoError(tt, json.Unmarshal(rec.Body.Bytes(), &p))
		assert.Equal(tt, 38, p.ProgressPercent)
	})

	t.Run("validation", func(tt *testing.T) {
		cases := []struct {
			name string
			body string
		}{
			{"percent above 100", `{"progress_percent":101,"updated_at":"2026-03-01T13:00:00Z"}`},
			{"missing updated_at", `{"progress_percent":10}`},
			{"page without total", `{"progress_percent":10,"current_page":3,"updated_at":"2026-03-01T13:00:00Z"}`},
			{"page past total", `{"progress_percent":10,"current_page":9,"total_pages":3,"updated_at":"2026-03-01T13:00:00Z"}`},
			{"unknown field", `{"progress_percent":10,"chapter":2,"updated_at":"2026-03-01T13:00:00Z"}`},
		}
		for _, tc := range cases {
			rec := put(tc.body)
			assert.Equal(tt, http.StatusUnprocessableEntity, rec.Code, tc.name)
		}
	})
}
