package reader

import (
	"sync"

	"github.com/google/uuid"
)

type HandleID string

// Registry tracks live resource handles (decoded pages, render contexts,
// loaded sections). It plays the role an object-URL store plays in a
// browser: handles stay live until explicitly revoked.
type Registry struct {
	mu   sync.Mutex
	live map[HandleID]string
}

func NewRegistry() *Registry {
	return &Registry{live: map[HandleID]string{}}
}

func (r *Registry) allocate(kind string) HandleID {
	id := HandleID(kind + ":" + uuid.NewString())
	r.mu.Lock()
	r.live[id] = kind
	r.mu.Unlock()
	return id
}

// revoke releases id. Revoking an unknown or already revoked handle is a
// no-op.
func (r *Registry) revoke(id HandleID) {
	r.mu.Lock()
	delete(r.live, id)
	r.mu.Unlock()
}

// Outstanding is the number of handles allocated and not yet revoked.
func (r *Registry) Outstanding() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.live)
}

// Live reports whether id has been allocated and not revoked.
func (r *Registry) Live(id HandleID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.live[id]
	return ok
}

// handleSet is the slice of a registry owned by one adapter.
type handleSet struct {
	reg *Registry
	ids map[HandleID]struct{}
}

func newHandleSet(reg *Registry) *handleSet {
	if reg == nil {
		reg = NewRegistry()
	}
	return &handleSet{reg: reg, ids: map[HandleID]struct{}{}}
}

func (s *handleSet) allocate(kind string) HandleID {
	id := s.reg.allocate(kind)
	s.ids[id] = struct{}{}
	return id
}

func (s *handleSet) revoke(id HandleID) {
	if id == "" {
		return
	}
	delete(s.ids, id)
	s.reg.revoke(id)
}

func (s *handleSet) revokeAll() {
	for id := range s.ids {
		s.reg.revoke(id)
	}
	s.ids = map[HandleID]struct{}{}
}
