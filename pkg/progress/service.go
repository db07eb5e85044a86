package progress

import (
	"context"
	"database/sql"

	"github.com/mylibrary/mylibrary/pkg/errcodes"
	"github.com/mylibrary/mylibrary/pkg/models"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

// RetrieveProgress returns the user's progress in a book, or a 404 when none
// has been recorded.
func (svc *Service) RetrieveProgress(ctx context.Context, userID, bookID int) (*models.ReadingProgress, error) {
	if err := svc.ensureBook(ctx, svc.db, bookID); err != nil {
		return nil, err
	}
	p, err := svc.find(ctx, svc.db, userID, bookID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, errcodes.NotFound("Reading progress")
	}
	return p, nil
}

// SaveProgress stores p unless the stored record is at least as recent, and
// returns whichever record is kept. Writes resolve last-writer-wins on
// UpdatedAt.
func (svc *Service) SaveProgress(ctx context.Context, p *models.ReadingProgress) (*models.ReadingProgress, error) {
	var kept *models.ReadingProgress
	err := svc.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := svc.ensureBook(ctx, tx, p.BookID); err != nil {
			return err
		}
		existing, err := svc.find(ctx, tx, p.UserID, p.BookID)
		if err != nil {
			return err
		}
		if existing != nil && !p.Newer(existing) {
			kept = existing
			return nil
		}

		_, err = tx.NewInsert().
			Model(p).
			On("CONFLICT (user_id, book_id) DO UPDATE").
			Set("progress_percent = EXCLUDED.progress_percent").
			Set("current_page = EXCLUDED.current_page").
			Set("total_pages = EXCLUDED.total_pages").
			Set("location = EXCLUDED.location").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		kept = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return kept, nil
}

func (svc *Service) ensureBook(ctx context.Context, db bun.IDB, bookID int) error {
	exists, err := db.NewSelect().
		Model((*models.Book)(nil)).
		Where("b.id = ?", bookID).
		Exists(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if !exists {
		return errcodes.NotFound("Book")
	}
	return nil
}

func (svc *Service) find(ctx context.Context, db bun.IDB, userID, bookID int) (*models.ReadingProgress, error) {
	p := &models.ReadingProgress{}
	err := db.NewSelect().
		Model(p).
		Where("rp.user_id = ?", userID).
		Where("rp.book_id = ?", bookID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.WithStack(err)
	}
	return p, nil
}
