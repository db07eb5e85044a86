package reader

import "sync"

// Frame is what an adapter last rendered. Image pages carry Body; text
// sections carry Text.
type Frame struct {
	Handle   HandleID
	MimeType string
	Width    int
	Height   int
	Body     []byte
	Text     string
	Caption  string
}

// Viewport is the mount point adapters render into. It holds at most one
// frame and notifies an optional observer on every change.
type Viewport struct {
	Width  int
	Height int

	mu       sync.Mutex
	frame    *Frame
	onChange func(f Frame, ok bool)
	// mirror receives every change once an open attempt has committed.
	mirror   *Viewport
}

func NewViewport(width, height int) *Viewport {
	return &Viewport{Width: width, Height: height}
}

// OnChange registers fn to be called after every Render and Clear. Passing
// nil removes the observer.
func (v *Viewport) OnChange(fn func(f Frame, ok bool)) {
	v.mu.Lock()
	v.onChange = fn
	v.mu.Unlock()
}

func (v *Viewport) Render(f Frame) {
	v.mu.Lock()
	v.frame = &f
	fn, mirror := v.onChange, v.mirror
	v.mu.Unlock()
	if fn != nil {
		fn(f, true)
	}
	if mirror != nil {
		mirror.Render(f)
	}
}

func (v *Viewport) Clear() {
	v.mu.Lock()
	v.frame = nil
	fn, mirror := v.onChange, v.mirror
	v.mu.Unlock()
	if fn != nil {
		fn(Frame{}, false)
	}
	if mirror != nil {
		mirror.Clear()
	}
}

// staging returns an empty viewport of the same size for one open attempt.
func (v *Viewport) staging() *Viewport {
	return NewViewport(v.Width, v.Height)
}

// attach shows v's current frame on target and forwards every later change.
func (v *Viewport) attach(target *Viewport) {
	v.mu.Lock()
	v.mirror = target
	f := v.frame
	v.mu.Unlock()
	if f != nil {
		target.Render(*f)
	} else {
		target.Clear()
	}
}

// detach stops forwarding to the attached viewport.
func (v *Viewport) detach() {
	v.mu.Lock()
	v.mirror = nil
	v.mu.Unlock()
}

// Frame returns the frame currently on display.
func (v *Viewport) Frame() (Frame, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.frame == nil {
		return Frame{}, false
	}
	return *v.frame, true
}

func orDefault(vp *Viewport) *Viewport {
	if vp == nil {
		return NewViewport(0, 0)
	}
	return vp
}
