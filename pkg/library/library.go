// Package library ties the client pieces together: it lists and downloads
// books, resolves where to resume, and opens books in the host.
package library

import (
	"context"
	"time"

	"github.com/mylibrary/mylibrary/pkg/apiclient"
	"github.com/mylibrary/mylibrary/pkg/host"
	"github.com/mylibrary/mylibrary/pkg/models"
	"github.com/mylibrary/mylibrary/pkg/offline"
	"github.com/mylibrary/mylibrary/pkg/progresssync"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
)

// Catalog is the server's book listing.
type Catalog interface {
	ListAllBooks(ctx context.Context) ([]*models.Book, error)
	GetBook(ctx context.Context, id int) (*models.Book, error)
	GetBookFile(ctx context.Context, id int) ([]byte, error)
}

type Library struct {
	catalog     Catalog
	store       *offline.Store
	coordinator *progresssync.Coordinator
	host        *host.Host
	now         func() time.Time
}

func New(catalog Catalog, store *offline.Store, coordinator *progresssync.Coordinator, h *host.Host) *Library {
	return &Library{
		catalog:     catalog,
		store:       store,
		coordinator: coordinator,
		host:        h,
		now:         time.Now,
	}
}

// Books lists the server catalog. When the server is unreachable it falls
// back to the downloaded books.
func (l *Library) Books(ctx context.Context) ([]*models.Book, error) {
	books, err := l.catalog.ListAllBooks(ctx)
	if err == nil {
		return books, nil
	}
	if !apiclient.IsNetworkError(err) {
		return nil, err
	}

	logger.FromContext(ctx).Err(err).Warn("server unreachable, listing offline books")
	return l.OfflineBooks(ctx)
}

// OfflineBooks lists the downloaded books.
func (l *Library) OfflineBooks(ctx context.Context) ([]*models.Book, error) {
	summaries, err := l.store.ListBooks(ctx)
	if err != nil {
		return nil, err
	}
	books := make([]*models.Book, 0, len(summaries))
	for _, s := range summaries {
		book := s.Metadata
		books = append(books, &book)
	}
	return books, nil
}

// Download fetches a book and its content into the offline store.
func (l *Library) Download(ctx context.Context, id int) (*models.Book, error) {
	book, err := l.catalog.GetBook(ctx, id)
	if err != nil {
		return nil, err
	}
	data, err := l.catalog.GetBookFile(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := l.store.SaveBook(ctx, book, data, l.now()); err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info("book downloaded", logger.Data{"book_id": id, "bytes": len(data)})
	return book, nil
}

// load returns a book's entry and content, from the offline store when it
// has been downloaded and from the server otherwise.
func (l *Library) load(ctx context.Context, id int) (*models.Book, []byte, error) {
	entry, err := l.store.Book(ctx, id)
	if err == nil {
		return &entry.Metadata, entry.RawData, nil
	}
	if !errors.Is(err, offline.ErrNotFound) {
		return nil, nil, err
	}

	book, err := l.catalog.GetBook(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	data, err := l.catalog.GetBookFile(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return book, data, nil
}

// Open loads book id and opens it in the host, resuming from the best known
// prior position.
func (l *Library) Open(ctx context.Context, id int) (*models.Book, error) {
	book, data, err := l.load(ctx, id)
	if err != nil {
		return nil, err
	}
	prior := l.coordinator.PriorProgress(ctx, id)
	if err := l.host.OpenBook(ctx, book, data, prior); err != nil {
		return nil, err
	}
	return book, nil
}

// Flush pushes queued progress to the server.
func (l *Library) Flush(ctx context.Context) progresssync.FlushResult {
	return l.coordinator.Flush(ctx)
}

type Status struct {
	Downloaded []*models.Book
	Pending    []*offline.SyncRecord
	Synced     int
}

// Status reports what is stored locally.
func (l *Library) Status(ctx context.Context) (*Status, error) {
	books, err := l.OfflineBooks(ctx)
	if err != nil {
		return nil, err
	}
	records, err := l.store.SyncRecords(ctx)
	if err != nil {
		return nil, err
	}

	status := &Status{Downloaded: books, Pending: []*offline.SyncRecord{}}
	for _, rec := range records {
		if rec.NeedsSync {
			status.Pending = append(status.Pending, rec)
		} else {
			status.Synced++
		}
	}
	return status, nil
}

func (l *Library) Host() *host.Host {
	return l.host
}
