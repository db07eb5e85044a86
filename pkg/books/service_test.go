package books

import (
	"bytes"
	"context"
	"image"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mylibrary/mylibrary/internal/testgen"
	"github.com/mylibrary/mylibrary/pkg/config"
	"github.com/mylibrary/mylibrary/pkg/database"
	"github.com/mylibrary/mylibrary/pkg/errcodes"
	"github.com/mylibrary/mylibrary/pkg/migrations"
	"github.com/mylibrary/mylibrary/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	db, err := database.New(config.NewForTest())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = migrations.BringUpToDate(context.Background(), db)
	require.NoError(t, err)

	return NewService(db, t.TempDir(), 50)
}

func TestDetectFileType(t *testing.T) {
	t.Parallel()

	epubData := testgen.EPUB(t, testgen.EPUBOptions{Title: "Dune"})
	cbzData := testgen.CBZ(t, testgen.CBZOptions{})
	pdfData := testgen.PDF(t, testgen.PDFOptions{})
	rarData := append([]byte("Rar!\x1a\x07\x01\x00"), make([]byte, 64)...)

	cases := []struct {
		name     string
		filename string
		data     []byte
		fileType string
		status   int
	}{
		{"epub", "dune.epub", epubData, models.FileTypeEPUB, 0},
		{"upper-case extension", "DUNE.EPUB", epubData, models.FileTypeEPUB, 0},
		{"cbz", "saga.cbz", cbzData, models.FileTypeCBZ, 0},
		{"pdf", "paper.pdf", pdfData, models.FileTypePDF, 0},
		{"cbr", "saga.cbr", rarData, models.FileTypeCBR, 0},
		{"unsupported extension", "notes.txt", []byte("hello"), "", 415},
		{"pdf named as epub", "paper.epub", pdfData, "", 400},
		{"zip named as pdf", "saga.pdf", cbzData, "", 400},
		{"empty", "empty.pdf", nil, "", 400},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(tt *testing.T) {
			fileType, err := DetectFileType(tc.filename, tc.data)
			if tc.status == 0 {
				require.NoError(tt, err)
				assert.Equal(tt, tc.fileType, fileType)
				return
			}
			var e *errcodes.Error
			require.ErrorAs(tt, err, &e)
			assert.Equal(tt, tc.status, e.HTTPCode)
		})
	}
}

func TestTitleAndAuthorFromFilename(t *testing.T) {
	t.Parallel()

	cases := []struct {
		filename string
		title    string
		author   string
	}{
		{"Frank Herbert - Dune.epub", "Dune", "Frank Herbert"},
		{"Dune by Frank Herbert.pdf", "Dune", "Frank Herbert"},
		{"[Brian K. Vaughan] Saga 01.cbz", "Saga 01", "Brian K. Vaughan"},
		{"/uploads/plain.epub", "plain", ""},
	}
	for _, tc := range cases {
		title, author := TitleAndAuthorFromFilename(tc.filename)
		assert.Equal(t, tc.title, title, tc.filename)
		assert.Equal(t, tc.author, author, tc.filename)
	}
}

func TestService_Ingest(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("epub metadata and cover", func(tt *testing.T) {
		tt.Parallel()
		svc := newTestService(tt)
		data := testgen.EPUB(tt, testgen.EPUBOptions{
			Title:     "Dune",
			Authors:   []string{"Frank Herbert"},
			Publisher: "Chilton",
			HasCover:  true,
		})

		book, err := svc.Ingest(ctx, IngestOptions{Filename: "upload.epub", Data: data})
		require.NoError(tt, err)
		assert.NotZero(tt, book.ID)
		assert.Equal(tt, "Dune", book.Title)
		assert.Equal(tt, "Frank Herbert", book.DisplayAuthor())
		require.NotNil(tt, book.Publisher)
		assert.Equal(tt, "Chilton", *book.Publisher)
		assert.Equal(tt, models.FileTypeEPUB, book.FileType)
		assert.Equal(tt, int64(len(data)), book.FilesizeBytes)
		assert.Nil(tt, book.PageCount)

		stored, err := os.ReadFile(book.Filepath)
		require.NoError(tt, err)
		assert.Equal(tt, data, stored)
		require.NotNil(tt, book.CoverPath)
		assert.FileExists(tt, *book.CoverPath)
	})

	t.Run("cbz page count and filename fallback", func(tt *testing.T) {
		tt.Parallel()
		svc := newTestService(tt)
		data := testgen.CBZ(tt, testgen.CBZOptions{PageCount: 4})

		book, err := svc.Ingest(ctx, IngestOptions{Filename: "Brian K. Vaughan - Saga.cbz", Data: data})
		require.NoError(tt, err)
		assert.Equal(tt, "Saga", book.Title)
		assert.Equal(tt, "Brian K. Vaughan", book.DisplayAuthor())
		require.NotNil(tt, book.PageCount)
		assert.Equal(tt, 4, *book.PageCount)
		assert.NotNil(tt, book.CoverPath)
	})

	t.Run("unparseable containers still upload", func(tt *testing.T) {
		tt.Parallel()
		svc := newTestService(tt)
		data := testgen.EPUB(tt, testgen.EPUBOptions{Title: "Lost", OmitOPF: true})

		book, err := svc.Ingest(ctx, IngestOptions{Filename: "Lost Book.epub", Data: data})
		require.NoError(tt, err)
		assert.Equal(tt, "Lost Book", book.Title)
		assert.Nil(tt, book.CoverPath)
	})

	t.Run("rejected uploads leave nothing behind", func(tt *testing.T) {
		tt.Parallel()
		svc := newTestService(tt)
		_, err := svc.Ingest(ctx, IngestOptions{Filename: "notes.txt", Data: []byte("hello")})
		require.Error(tt, err)

		entries, err := os.ReadDir(svc.storageDir)
		require.NoError(tt, err)
		assert.Empty(tt, entries)
	})
}

func TestService_ListBooks(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newTestService(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, ft := range []string{models.FileTypeEPUB, models.FileTypePDF, models.FileTypeEPUB, models.FileTypeCBZ} {
		require.NoError(t, svc.CreateBook(ctx, &models.Book{
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			Title:     "Book " + string(rune('A'+i)),
			FileType:  ft,
			Filepath:  filepath.Join("/books", ft),
		}))
	}

	t.Run("pages with a total", func(tt *testing.T) {
		limit, offset := 2, 1
		books, total, err := svc.ListBooksWithTotal(ctx, ListBooksOptions{Limit: &limit, Offset: &offset})
		require.NoError(tt, err)
		assert.Equal(tt, 4, total)
		require.Len(tt, books, 2)
		assert.Equal(tt, "Book C", books[0].Title)
		assert.Equal(tt, "Book B", books[1].Title)
	})

	t.Run("filters by file type", func(tt *testing.T) {
		ft := models.FileTypeEPUB
		books, total, err := svc.ListBooksWithTotal(ctx, ListBooksOptions{FileType: &ft})
		require.NoError(tt, err)
		assert.Equal(tt, 2, total)
		for _, b := range books {
			assert.Equal(tt, models.FileTypeEPUB, b.FileType)
		}
	})

	t.Run("retrieving a missing book is a 404", func(tt *testing.T) {
		id := 999
		_, err := svc.RetrieveBook(ctx, RetrieveBookOptions{ID: &id})
		assert.ErrorIs(tt, err, errcodes.NotFound("Book"))
	})
}

func TestService_Thumbnail(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := newTestService(t)

	book, err := svc.Ingest(ctx, IngestOptions{
		Filename: "cover.epub",
		Data:     testgen.EPUB(t, testgen.EPUBOptions{Title: "Covered", HasCover: true, CoverMimeType: "image/jpeg"}),
	})
	require.NoError(t, err)

	data, err := svc.Thumbnail(book)
	require.NoError(t, err)
	img, format, err := image.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 50, img.Bounds().Dx())
	assert.Equal(t, 75, img.Bounds().Dy())

	t.Run("is cached", func(tt *testing.T) {
		require.NoError(tt, os.Remove(*book.CoverPath))
		again, err := svc.Thumbnail(book)
		require.NoError(tt, err)
		assert.Equal(tt, data, again)
	})

	t.Run("books without a cover are a 404", func(tt *testing.T) {
		_, err := svc.Thumbnail(&models.Book{ID: 42})
		assert.ErrorIs(tt, err, errcodes.NotFound("Cover"))
	})
}
