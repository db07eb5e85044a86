package progresssync

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/robinjoseph08/golib/logger"
)

// Scheduler flushes a coordinator on a fixed interval.
type Scheduler struct {
	coordinator *Coordinator
	interval    time.Duration

	mu      sync.Mutex
	cron    *cron.Cron
	entryID cron.EntryID
	running bool
	// stop ends the goroutine watching the Start context.
	stop    chan struct{}
	watcher chan struct{}
}

func NewScheduler(coordinator *Coordinator, interval time.Duration) *Scheduler {
	return &Scheduler{
		coordinator: coordinator,
		interval:    interval,
		cron:        cron.New(),
	}
}

// Start schedules the flush and returns immediately. The schedule stops when
// ctx is done or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}
	if s.interval <= 0 {
		return errors.Errorf("sync interval must be positive, got %s", s.interval)
	}

	log := logger.FromContext(ctx)
	entryID, err := s.cron.AddFunc("@every "+s.interval.String(), func() {
		s.coordinator.Flush(ctx)
	})
	if err != nil {
		return errors.WithStack(err)
	}
	s.entryID = entryID
	s.cron.Start()
	s.running = true
	log.Info("progress sync scheduled", logger.Data{"interval": s.interval.String()})

	stop := make(chan struct{})
	watcher := make(chan struct{})
	s.stop, s.watcher = stop, watcher
	go func() {
		defer close(watcher)
		select {
		case <-ctx.Done():
			s.Stop()
		case <-stop:
		}
	}()

	return nil
}

// Stop cancels the schedule and waits for a running flush to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	close(s.stop)
	s.stop = nil
	<-s.cron.Stop().Done()
	s.cron.Remove(s.entryID)
	s.running = false
}

// NextRun returns when the next flush is due, or nil when stopped.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	next := s.cron.Entry(s.entryID).Next
	return &next
}
