package tui

import (
	"sync"

	"github.com/mylibrary/mylibrary/pkg/host"
)

// Input turns key presses into host commands. It satisfies
// host.InputSource.
type Input struct {
	mu        sync.Mutex
	nextID    int
	listeners map[int]func(host.Command)
}

func NewInput() *Input {
	return &Input{listeners: map[int]func(host.Command){}}
}

func (in *Input) Listen(fn func(host.Command)) func() {
	in.mu.Lock()
	id := in.nextID
	in.nextID++
	in.listeners[id] = fn
	in.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			in.mu.Lock()
			delete(in.listeners, id)
			in.mu.Unlock()
		})
	}
}

// Listeners is the number of installed listeners.
func (in *Input) Listeners() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return len(in.listeners)
}

// Dispatch delivers cmd to every listener. Listeners run without the lock
// held so they may remove themselves.
func (in *Input) Dispatch(cmd host.Command) {
	in.mu.Lock()
	fns := make([]func(host.Command), 0, len(in.listeners))
	for _, fn := range in.listeners {
		fns = append(fns, fn)
	}
	in.mu.Unlock()

	for _, fn := range fns {
		fn(cmd)
	}
}
