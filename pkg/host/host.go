// Package host owns the single active reading session of a client. It
// replaces sessions when a new book is opened, routes input to the active
// session only, and forwards every progress event to the sync queue.
package host

import (
	"context"
	"sync"

	"github.com/mylibrary/mylibrary/pkg/models"
	"github.com/mylibrary/mylibrary/pkg/reader"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
)

// ErrSuperseded is returned by an OpenBook that a later OpenBook or Close
// overtook. Whatever it had opened has been closed.
var ErrSuperseded = errors.New("host: open superseded")

type Command int

const (
	CommandPrevious Command = iota + 1
	CommandNext
	CommandClose
)

func (c Command) String() string {
	switch c {
	case CommandPrevious:
		return "previous"
	case CommandNext:
		return "next"
	case CommandClose:
		return "close"
	}
	return "unknown"
}

// InputSource delivers navigation commands. Listen installs fn and returns a
// function that removes it; implementations must allow the removal to be
// called from inside fn.
type InputSource interface {
	Listen(fn func(Command)) (remove func())
}

// ProgressSink receives every progress value the session produces.
type ProgressSink interface {
	Record(ctx context.Context, progress models.ReadingProgress) error
}

type Host struct {
	ctx      context.Context
	session  *reader.Session
	reporter *reader.Reporter
	input    InputSource
	sink     ProgressSink

	// openMu serializes session opens; mu guards the fields below it.
	openMu      sync.Mutex
	mu          sync.Mutex
	generation  uint64
	removeInput func()
	unsubscribe func()
}

type Options struct {
	Viewport *reader.Viewport
	Registry *reader.Registry
	Input    InputSource
	Sink     ProgressSink
}

// New creates a host. ctx carries the logger and bounds progress recording.
func New(ctx context.Context, opts Options) *Host {
	reporter := reader.NewReporter()
	sessionOpts := []reader.SessionOption{}
	if opts.Registry != nil {
		sessionOpts = append(sessionOpts, reader.WithRegistry(opts.Registry))
	}

	h := &Host{
		ctx:      ctx,
		session:  reader.NewSession(reporter, opts.Viewport, sessionOpts...),
		reporter: reporter,
		input:    opts.Input,
		sink:     opts.Sink,
	}
	h.unsubscribe = reporter.Subscribe(h.forward)
	return h
}

func (h *Host) forward(ev reader.ProgressEvent) {
	if h.sink == nil {
		return
	}
	if err := h.sink.Record(h.ctx, ev.Progress); err != nil {
		logger.FromContext(h.ctx).Err(err).Warn("failed to record progress", logger.Data{"book_id": ev.BookID})
	}
}

// OpenBook closes the current session, including one still opening, and
// opens book. The previous adapter is fully closed before the new one starts
// decoding. If another OpenBook or Close arrives while this one is decoding,
// this one returns ErrSuperseded and releases everything it allocated.
func (h *Host) OpenBook(ctx context.Context, book *models.Book, data []byte, prior *models.ReadingProgress) error {
	h.mu.Lock()
	h.generation++
	gen := h.generation
	h.detachInputLocked()
	h.mu.Unlock()

	// Cancels an open that is still decoding.
	h.session.Close()

	h.openMu.Lock()
	defer h.openMu.Unlock()

	if !h.current(gen) {
		return errors.WithStack(ErrSuperseded)
	}
	h.session.Close()

	log := logger.FromContext(ctx).Data(logger.Data{"book_id": book.ID, "file_type": book.FileType})
	if err := h.session.Open(ctx, book, data, prior); err != nil {
		if errors.Is(err, reader.ErrOpenAborted) {
			return errors.WithStack(ErrSuperseded)
		}
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if gen != h.generation {
		h.session.Close()
		return errors.WithStack(ErrSuperseded)
	}
	if h.input != nil {
		h.removeInput = h.input.Listen(h.handle)
	}
	log.Debug("book opened")
	return nil
}

func (h *Host) current(gen uint64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return gen == h.generation
}

func (h *Host) detachInputLocked() {
	if h.removeInput != nil {
		h.removeInput()
		h.removeInput = nil
	}
}

func (h *Host) handle(cmd Command) {
	switch cmd {
	case CommandPrevious:
		h.Previous()
	case CommandNext:
		h.Next()
	case CommandClose:
		h.Close()
	}
}

// Previous moves the active session back one unit. It does nothing when no
// session is open.
func (h *Host) Previous() {
	h.session.Navigate(reader.Backward)
}

// Next moves the active session forward one unit. It does nothing when no
// session is open.
func (h *Host) Next() {
	h.session.Navigate(reader.Forward)
}

// Close closes the active session and abandons any open in progress.
func (h *Host) Close() {
	h.mu.Lock()
	h.generation++
	h.detachInputLocked()
	h.mu.Unlock()

	h.session.Close()
}

// Shutdown closes the session and stops forwarding progress.
func (h *Host) Shutdown() {
	h.Close()
	h.mu.Lock()
	unsubscribe := h.unsubscribe
	h.unsubscribe = nil
	h.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}

func (h *Host) Session() *reader.Session {
	return h.session
}

func (h *Host) Reporter() *reader.Reporter {
	return h.reporter
}
