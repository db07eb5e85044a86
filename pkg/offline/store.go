// Package offline persists downloaded books and the progress sync queue in a
// local bbolt database so reading works without the server.
package offline

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"time"

	"github.com/mylibrary/mylibrary/pkg/models"
	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
	bolt "go.etcd.io/bbolt"
)

var (
	bucketOfflineBooks = []byte("offline_books")
	bucketSyncQueue    = []byte("sync_queue")
)

var ErrNotFound = errors.New("offline: not found")

// OfflineBook is a downloaded book: its container bytes and catalog entry.
type OfflineBook struct {
	RawData      []byte      `json:"rawData"`
	Metadata     models.Book `json:"metadata"`
	DownloadedAt time.Time   `json:"downloadedAt"`
}

// OfflineBookSummary is an OfflineBook without its content.
type OfflineBookSummary struct {
	Metadata     models.Book `json:"metadata"`
	DownloadedAt time.Time   `json:"downloadedAt"`
}

// SyncRecord is the single queued progress value for one book. Revision
// increases on every local write so that an acknowledgement for an older
// value cannot clear a newer one.
type SyncRecord struct {
	BookID    int                    `json:"bookId"`
	Progress  models.ReadingProgress `json:"progress"`
	NeedsSync bool                   `json:"needsSync"`
	SyncedAt  *time.Time             `json:"syncedAt,omitempty"`
	Revision  uint64                 `json:"revision"`
}

type Store struct {
	db *bolt.DB
}

// Open opens (creating if needed) the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.WithStack(err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open offline db")
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketOfflineBooks, bucketSyncQueue} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return errors.WithStack(err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return errors.WithStack(s.db.Close())
}

func itob(id int) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(id))
	return b
}

func (s *Store) get(bucket []byte, id int, dest interface{}) error {
	return s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucket).Get(itob(id))
		if v == nil {
			return errors.WithStack(ErrNotFound)
		}
		return errors.WithStack(json.Unmarshal(v, dest))
	})
}

func put(tx *bolt.Tx, bucket []byte, id int, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(tx.Bucket(bucket).Put(itob(id), data))
}

// SaveBook stores book and its bytes, replacing any earlier download.
func (s *Store) SaveBook(ctx context.Context, book *models.Book, data []byte, now time.Time) error {
	if err := ctx.Err(); err != nil {
		return errors.WithStack(err)
	}
	entry := OfflineBook{RawData: data, Metadata: *book, DownloadedAt: now.UTC()}
	return s.db.Update(func(tx *bolt.Tx) error {
		return put(tx, bucketOfflineBooks, book.ID, entry)
	})
}

// Book returns the stored download for id, or ErrNotFound.
func (s *Store) Book(ctx context.Context, id int) (*OfflineBook, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.WithStack(err)
	}
	entry := &OfflineBook{}
	if err := s.get(bucketOfflineBooks, id, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *Store) HasBook(ctx context.Context, id int) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, errors.WithStack(err)
	}
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		found = tx.Bucket(bucketOfflineBooks).Get(itob(id)) != nil
		return nil
	})
	return found, errors.WithStack(err)
}

// ListBooks returns every download in book id order, without content.
func (s *Store) ListBooks(ctx context.Context) ([]*OfflineBookSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.WithStack(err)
	}
	books := []*OfflineBookSummary{}
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketOfflineBooks).ForEach(func(_, v []byte) error {
			summary := &OfflineBookSummary{}
			if err := json.Unmarshal(v, summary); err != nil {
				return errors.WithStack(err)
			}
			books = append(books, summary)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return books, nil
}

// DeleteBook removes the download for id. Its sync record is kept so that
// unsent progress survives.
func (s *Store) DeleteBook(ctx context.Context, id int) error {
	if err := ctx.Err(); err != nil {
		return errors.WithStack(err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return errors.WithStack(tx.Bucket(bucketOfflineBooks).Delete(itob(id)))
	})
}
