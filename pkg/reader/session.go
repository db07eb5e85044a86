package reader

import (
	"context"
	"sync"
	"time"

	"github.com/mylibrary/mylibrary/pkg/models"
	"github.com/pkg/errors"
)

type State int

const (
	StateClosed State = iota
	StateOpening
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpening:
		return "opening"
	case StateOpen:
		return "open"
	}
	return "unknown"
}

// Session owns at most one live adapter and turns its positions into
// progress events. It moves Closed -> Opening -> Open -> Closed; a failed
// open goes straight back to Closed.
type Session struct {
	mu       sync.Mutex
	state    State
	book     *models.Book
	adapter  Adapter
	cancel   context.CancelFunc
	viewport *Viewport
	// stage is the open adapter's own viewport, attached to viewport while
	// the session is Open.
	stage    *Viewport
	reporter *Reporter
	registry *Registry
	now      func() time.Time
}

type SessionOption func(*Session)

// WithRegistry makes adapters allocate their handles from reg.
func WithRegistry(reg *Registry) SessionOption {
	return func(s *Session) {
		s.registry = reg
	}
}

// WithClock overrides the clock used to stamp progress.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) {
		s.now = now
	}
}

func NewSession(reporter *Reporter, vp *Viewport, opts ...SessionOption) *Session {
	s := &Session{
		reporter: reporter,
		viewport: orDefault(vp),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.reporter == nil {
		s.reporter = NewReporter()
	}
	if s.registry == nil {
		s.registry = NewRegistry()
	}
	return s
}

// Open selects the adapter for book.FileType and opens data with it. The
// decode runs without holding the session lock so that Close can abort it.
// The adapter renders into a staging viewport that reaches the session's
// viewport only if this attempt commits. On any failure the adapter is
// closed and the session is Closed again.
func (s *Session) Open(ctx context.Context, book *models.Book, data []byte, prior *models.ReadingProgress) error {
	s.mu.Lock()
	if s.state != StateClosed {
		s.mu.Unlock()
		return errors.WithStack(ErrSessionBusy)
	}
	adapter, err := NewAdapter(book.FileType, s.registry)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	openCtx, cancel := context.WithCancel(ctx)
	s.state = StateOpening
	s.book = book
	s.adapter = adapter
	s.cancel = cancel
	stage := s.viewport.staging()
	s.mu.Unlock()

	err = adapter.Open(openCtx, data, stage, prior)
	cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.adapter != adapter || s.state != StateOpening {
		adapter.Close()
		return errors.WithStack(ErrOpenAborted)
	}
	if err == nil {
		err = errors.WithStack(ctx.Err())
	}
	if err != nil {
		adapter.Close()
		s.reset()
		return err
	}

	s.state = StateOpen
	s.cancel = nil
	s.stage = stage
	stage.attach(s.viewport)
	s.publishLocked()
	return nil
}

// Navigate moves the adapter one unit and publishes the resulting progress
// before returning. It is a no-op unless the session is Open.
func (s *Session) Navigate(dir Direction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateOpen {
		return
	}
	s.adapter.Advance(dir)
	s.publishLocked()
}

// Close releases the adapter and returns to Closed. Closing a session whose
// open is still decoding cancels the decode; the open then releases whatever
// it allocated. Close on a closed session does nothing.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateClosed:
		return
	case StateOpening:
		if s.cancel != nil {
			s.cancel()
		}
	case StateOpen:
		s.adapter.Close()
		s.stage.detach()
	}
	s.reset()
}

func (s *Session) reset() {
	s.state = StateClosed
	s.book = nil
	s.adapter = nil
	s.cancel = nil
	s.stage = nil
}

func (s *Session) publishLocked() {
	pos := s.adapter.Position()
	progress := ToProgress(s.book.ID, pos, s.now())
	s.reporter.Publish(ProgressEvent{
		BookID:   s.book.ID,
		Position: pos,
		Progress: *progress,
	})
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Book returns the open book, or nil.
func (s *Session) Book() *models.Book {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateOpen {
		return nil
	}
	return s.book
}

// Position returns the adapter's current position. ok is false unless the
// session is Open.
func (s *Session) Position() (pos PositionDescriptor, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateOpen {
		return PositionDescriptor{}, false
	}
	return s.adapter.Position(), true
}

func (s *Session) Outline() []OutlineEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateOpen {
		return []OutlineEntry{}
	}
	return s.adapter.Outline()
}

func (s *Session) Viewport() *Viewport {
	return s.viewport
}

func (s *Session) Registry() *Registry {
	return s.registry
}
