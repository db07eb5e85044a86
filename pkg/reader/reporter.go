package reader

import (
	"sync"

	"github.com/mylibrary/mylibrary/pkg/models"
)

// ProgressEvent is one normalized progress computation. Seq increases by one
// per publish on a reporter.
type ProgressEvent struct {
	Seq      uint64
	BookID   int
	Position PositionDescriptor
	Progress models.ReadingProgress
}

// Reporter is a single-slot push channel. Publish overwrites whatever is in
// the slot and delivers synchronously to every subscriber before returning;
// with no subscribers the value waits in the slot for Pending. Nothing is
// buffered beyond the latest value.
//
// Subscribers run on the publisher's goroutine and must not block.
type Reporter struct {
	deliver sync.Mutex

	mu     sync.Mutex
	slot   *ProgressEvent
	subs   map[int]func(ProgressEvent)
	nextID int
	seq    uint64
}

func NewReporter() *Reporter {
	return &Reporter{subs: map[int]func(ProgressEvent){}}
}

// Subscribe registers fn and returns a function that removes it. Calling the
// returned function more than once is safe.
func (r *Reporter) Subscribe(fn func(ProgressEvent)) func() {
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.subs[id] = fn
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.subs, id)
			r.mu.Unlock()
		})
	}
}

func (r *Reporter) Publish(ev ProgressEvent) {
	r.deliver.Lock()
	defer r.deliver.Unlock()

	r.mu.Lock()
	r.seq++
	ev.Seq = r.seq
	r.slot = &ev
	subs := make([]func(ProgressEvent), 0, len(r.subs))
	for _, fn := range r.subs {
		subs = append(subs, fn)
	}
	if len(subs) > 0 {
		r.slot = nil
	}
	r.mu.Unlock()

	for _, fn := range subs {
		fn(ev)
	}
}

// Pending takes the undelivered value out of the slot, if any.
func (r *Reporter) Pending() (ProgressEvent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.slot == nil {
		return ProgressEvent{}, false
	}
	ev := *r.slot
	r.slot = nil
	return ev, true
}
