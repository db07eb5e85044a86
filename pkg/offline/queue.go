package offline

import (
	"context"
	"time"

	"github.com/mylibrary/mylibrary/pkg/models"
	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
	bolt "go.etcd.io/bbolt"
)

// QueueProgress upserts the sync record for progress.BookID and marks it as
// needing sync. Any earlier unsent value for the book is replaced.
func (s *Store) QueueProgress(ctx context.Context, progress models.ReadingProgress) (*SyncRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.WithStack(err)
	}
	var rec SyncRecord
	err := s.db.Update(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucketSyncQueue).Get(itob(progress.BookID)); v != nil {
			if err := json.Unmarshal(v, &rec); err != nil {
				return errors.WithStack(err)
			}
		}
		rec.BookID = progress.BookID
		rec.Progress = progress
		rec.NeedsSync = true
		rec.Revision++
		return put(tx, bucketSyncQueue, rec.BookID, rec)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// SyncRecord returns the record for bookID, or ErrNotFound.
func (s *Store) SyncRecord(ctx context.Context, bookID int) (*SyncRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.WithStack(err)
	}
	rec := &SyncRecord{}
	if err := s.get(bucketSyncQueue, bookID, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// PendingSync returns every record still waiting for a server ack, in book
// id order.
func (s *Store) PendingSync(ctx context.Context) ([]*SyncRecord, error) {
	return s.syncRecords(ctx, true)
}

// SyncRecords returns every record in book id order.
func (s *Store) SyncRecords(ctx context.Context) ([]*SyncRecord, error) {
	return s.syncRecords(ctx, false)
}

func (s *Store) syncRecords(ctx context.Context, pendingOnly bool) ([]*SyncRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.WithStack(err)
	}
	records := []*SyncRecord{}
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSyncQueue).ForEach(func(_, v []byte) error {
			rec := &SyncRecord{}
			if err := json.Unmarshal(v, rec); err != nil {
				return errors.WithStack(err)
			}
			if pendingOnly && !rec.NeedsSync {
				return nil
			}
			records = append(records, rec)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// MarkSynced records a server ack for the record at revision, replacing the
// local progress with the value the server stored. It reports
// false, and changes nothing, when the record has been re-queued since that
// revision was read.
func (s *Store) MarkSynced(ctx context.Context, bookID int, revision uint64, confirmed models.ReadingProgress, syncedAt time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, errors.WithStack(err)
	}
	var applied bool
	err := s.db.Update(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketSyncQueue).Get(itob(bookID))
		if v == nil {
			return errors.WithStack(ErrNotFound)
		}
		var rec SyncRecord
		if err := json.Unmarshal(v, &rec); err != nil {
			return errors.WithStack(err)
		}
		if rec.Revision != revision {
			return nil
		}
		at := syncedAt.UTC()
		rec.NeedsSync = false
		rec.SyncedAt = &at
		rec.Progress = confirmed
		rec.Progress.BookID = bookID
		applied = true
		return put(tx, bucketSyncQueue, bookID, rec)
	})
	return applied, err
}
