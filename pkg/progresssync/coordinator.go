// Package progresssync queues reading progress locally and pushes it to the
// server when it can. Failures never reach the reader: a record stays queued
// until the server acknowledges it.
package progresssync

import (
	"context"
	"sync"
	"time"

	"github.com/mylibrary/mylibrary/pkg/apiclient"
	"github.com/mylibrary/mylibrary/pkg/models"
	"github.com/mylibrary/mylibrary/pkg/offline"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
)

// Remote is the server side of the sync.
type Remote interface {
	GetProgress(ctx context.Context, bookID int) (*models.ReadingProgress, error)
	PutProgress(ctx context.Context, progress models.ReadingProgress) (*models.ReadingProgress, error)
}

// Queue is the local sync queue.
type Queue interface {
	QueueProgress(ctx context.Context, progress models.ReadingProgress) (*offline.SyncRecord, error)
	SyncRecord(ctx context.Context, bookID int) (*offline.SyncRecord, error)
	PendingSync(ctx context.Context) ([]*offline.SyncRecord, error)
	MarkSynced(ctx context.Context, bookID int, revision uint64, confirmed models.ReadingProgress, syncedAt time.Time) (bool, error)
}

// FlushResult counts what one Flush did with each pending record.
type FlushResult struct {
	Sent int
	// Superseded records were acknowledged but re-recorded while in flight;
	// they stay queued for the next flush.
	Superseded int
	Failed     int
}

type Coordinator struct {
	queue  Queue
	remote Remote
	now    func() time.Time

	flushMu sync.Mutex
}

func NewCoordinator(queue Queue, remote Remote) *Coordinator {
	return &Coordinator{queue: queue, remote: remote, now: time.Now}
}

// Record replaces the queued progress for progress.BookID and marks it for
// sync. It only touches local storage, so it succeeds offline.
func (c *Coordinator) Record(ctx context.Context, progress models.ReadingProgress) error {
	if progress.UpdatedAt.IsZero() {
		progress.UpdatedAt = c.now().UTC()
	}
	_, err := c.queue.QueueProgress(ctx, progress)
	return err
}

// Flush sends every pending record. Records the server does not acknowledge
// stay pending; the failure is logged, not returned. After a network failure
// the remaining records are left for the next flush. Concurrent calls run one
// at a time.
func (c *Coordinator) Flush(ctx context.Context) FlushResult {
	c.flushMu.Lock()
	defer c.flushMu.Unlock()

	log := logger.FromContext(ctx)
	var result FlushResult

	pending, err := c.queue.PendingSync(ctx)
	if err != nil {
		log.Err(err).Warn("failed to read sync queue")
		return result
	}

	for i, rec := range pending {
		log := log.Data(logger.Data{"book_id": rec.BookID, "revision": rec.Revision})

		stored, err := c.remote.PutProgress(ctx, rec.Progress)
		if err != nil {
			log.Err(err).Warn("progress sync failed, keeping record queued")
			if apiclient.IsNetworkError(err) || ctx.Err() != nil {
				result.Failed += len(pending) - i
				break
			}
			result.Failed++
			continue
		}

		applied, err := c.queue.MarkSynced(ctx, rec.BookID, rec.Revision, *stored, c.now())
		if err != nil {
			log.Err(err).Warn("failed to mark progress synced")
			result.Failed++
			continue
		}
		if !applied {
			log.Debug("progress re-recorded during sync, keeping record queued")
			result.Superseded++
			continue
		}
		result.Sent++
	}

	if result.Sent > 0 || result.Failed > 0 {
		log.Info("progress flush finished", logger.Data{
			"sent":       result.Sent,
			"superseded": result.Superseded,
			"failed":     result.Failed,
		})
	}
	return result
}

// PriorProgress returns the position to resume bookID from: an unsent local
// record first, then the server's record, then the last record the server
// acknowledged. It returns nil when none exist.
func (c *Coordinator) PriorProgress(ctx context.Context, bookID int) *models.ReadingProgress {
	log := logger.FromContext(ctx).Data(logger.Data{"book_id": bookID})

	local, err := c.queue.SyncRecord(ctx, bookID)
	if err != nil && !errors.Is(err, offline.ErrNotFound) {
		log.Err(err).Warn("failed to read local progress")
	}
	if local != nil && local.NeedsSync {
		progress := local.Progress
		return &progress
	}

	remote, err := c.remote.GetProgress(ctx, bookID)
	if err == nil {
		return remote
	}
	log.Err(err).Warn("failed to fetch progress, using local copy")

	if local != nil {
		progress := local.Progress
		return &progress
	}
	return nil
}
