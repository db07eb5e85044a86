package books

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/mylibrary/mylibrary/pkg/errcodes"
	"github.com/mylibrary/mylibrary/pkg/models"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/uptrace/bun"
)

type RetrieveBookOptions struct {
	ID *int
}

type ListBooksOptions struct {
	Limit    *int
	Offset   *int
	FileType *string
	// UserID attaches that user's progress to each book and puts the books
	// they read most recently first.
	UserID *int

	includeTotal bool
}

type IngestOptions struct {
	Filename     string
	Data         []byte
	UploadedByID *int
}

type Service struct {
	db             *bun.DB
	storageDir     string
	thumbnailWidth int
	now            func() time.Time
}

func NewService(db *bun.DB, storageDir string, thumbnailWidth int) *Service {
	return &Service{
		db:             db,
		storageDir:     storageDir,
		thumbnailWidth: thumbnailWidth,
		now:            time.Now,
	}
}

func (svc *Service) CreateBook(ctx context.Context, book *models.Book) error {
	if book.CreatedAt.IsZero() {
		book.CreatedAt = svc.now()
	}

	_, err := svc.db.
		NewInsert().
		Model(book).
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

func (svc *Service) RetrieveBook(ctx context.Context, opts RetrieveBookOptions) (*models.Book, error) {
	book := &models.Book{}

	q := svc.db.
		NewSelect().
		Model(book)

	if opts.ID != nil {
		q = q.Where("b.id = ?", *opts.ID)
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Book")
		}
		return nil, errors.WithStack(err)
	}

	return book, nil
}

func (svc *Service) ListBooks(ctx context.Context, opts ListBooksOptions) ([]*models.Book, error) {
	b, _, err := svc.listBooksWithTotal(ctx, opts)
	return b, errors.WithStack(err)
}

func (svc *Service) ListBooksWithTotal(ctx context.Context, opts ListBooksOptions) ([]*models.Book, int, error) {
	opts.includeTotal = true
	return svc.listBooksWithTotal(ctx, opts)
}

func (svc *Service) listBooksWithTotal(ctx context.Context, opts ListBooksOptions) ([]*models.Book, int, error) {
	books := []*models.Book{}
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&books)

	if opts.UserID != nil {
		q = q.
			Join("LEFT JOIN reading_progress AS rp ON rp.book_id = b.id AND rp.user_id = ?", *opts.UserID).
			OrderExpr("rp.updated_at DESC NULLS LAST")
	}
	q = q.Order("b.created_at DESC", "b.id DESC")

	if opts.Limit != nil {
		q = q.Limit(*opts.Limit)
	}
	if opts.Offset != nil {
		q = q.Offset(*opts.Offset)
	}
	if opts.FileType != nil && *opts.FileType != "" {
		q = q.Where("b.file_type = ?", *opts.FileType)
	}

	if opts.includeTotal {
		total, err = q.ScanAndCount(ctx)
	} else {
		err = q.Scan(ctx)
	}
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	if opts.UserID != nil {
		if err := svc.attachProgress(ctx, *opts.UserID, books); err != nil {
			return nil, 0, err
		}
	}

	return books, total, nil
}

func (svc *Service) attachProgress(ctx context.Context, userID int, books []*models.Book) error {
	if len(books) == 0 {
		return nil
	}
	ids := make([]int, 0, len(books))
	for _, b := range books {
		ids = append(ids, b.ID)
	}

	progress := []*models.ReadingProgress{}
	err := svc.db.
		NewSelect().
		Model(&progress).
		Where("rp.user_id = ?", userID).
		Where("rp.book_id IN (?)", bun.In(ids)).
		Scan(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	byBook := make(map[int]*models.ReadingProgress, len(progress))
	for _, p := range progress {
		byBook[p.BookID] = p
	}
	for _, b := range books {
		b.Progress = byBook[b.ID]
	}
	return nil
}

// Ingest validates an uploaded container, stores it under the storage
// directory with its cover, and creates the book record. Metadata that can't
// be extracted falls back to what the filename suggests.
func (svc *Service) Ingest(ctx context.Context, opts IngestOptions) (*models.Book, error) {
	log := logger.FromContext(ctx)

	fileType, err := DetectFileType(opts.Filename, opts.Data)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(svc.storageDir, 0755); err != nil {
		return nil, errors.WithStack(err)
	}

	name := uuid.NewString()
	bookPath := filepath.Join(svc.storageDir, name+"."+fileType)
	if err := os.WriteFile(bookPath, opts.Data, 0600); err != nil {
		return nil, errors.WithStack(err)
	}
	written := []string{bookPath}
	cleanup := func() {
		for _, p := range written {
			_ = os.Remove(p)
		}
	}

	metadata, err := ParseMetadata(fileType, opts.Data)
	if err != nil {
		log.Warn("failed to extract metadata", logger.Data{"filename": opts.Filename, "file_type": fileType, "error": err.Error()})
	}

	title, author := TitleAndAuthorFromFilename(opts.Filename)
	if metadata.Title != "" {
		title = metadata.Title
	}
	book := &models.Book{
		Title:         title,
		Author:        metadata.Author(),
		FileType:      fileType,
		FilesizeBytes: int64(len(opts.Data)),
		Filepath:      bookPath,
		Publisher:     nonEmpty(metadata.Publisher),
		Description:   nonEmpty(metadata.Description),
		Language:      nonEmpty(metadata.Language),
		PageCount:     metadata.PageCount,
		UploadedByID:  opts.UploadedByID,
	}
	if book.Author == nil {
		book.Author = nonEmpty(author)
	}

	if len(metadata.CoverData) > 0 && metadata.CoverExtension() != "" {
		coverPath := filepath.Join(svc.storageDir, name+"_cover"+metadata.CoverExtension())
		if err := os.WriteFile(coverPath, metadata.CoverData, 0600); err != nil {
			cleanup()
			return nil, errors.WithStack(err)
		}
		written = append(written, coverPath)
		book.CoverPath = &coverPath
	}

	if err := svc.CreateBook(ctx, book); err != nil {
		cleanup()
		return nil, err
	}

	log.Info("book ingested", logger.Data{"book_id": book.ID, "file_type": fileType, "bytes": book.FilesizeBytes})
	return book, nil
}

// ReadFile returns the stored container bytes of a book.
func (svc *Service) ReadFile(book *models.Book) ([]byte, error) {
	data, err := os.ReadFile(book.Filepath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errcodes.NotFound("Book file")
		}
		return nil, errors.WithStack(err)
	}
	return data, nil
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
