package reader

import (
	"context"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/mylibrary/mylibrary/internal/testgen"
	"github.com/mylibrary/mylibrary/pkg/models"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fileTypeBlocking = "test-blocking"

// blockingAdapter allocates a handle and then waits for its context, so a
// session stays in Opening until it is closed.
type blockingAdapter struct {
	handles *handleSet
}

func init() {
	adapters[fileTypeBlocking] = func(reg *Registry) Adapter {
		return &blockingAdapter{handles: newHandleSet(reg)}
	}
}

func (a *blockingAdapter) Family() Family { return FamilyFixedLayout }

func (a *blockingAdapter) Open(ctx context.Context, _ []byte, _ *Viewport, _ *models.ReadingProgress) error {
	a.handles.allocate("blocking")
	<-ctx.Done()
	return errors.WithStack(ctx.Err())
}

func (a *blockingAdapter) Advance(Direction)            {}
func (a *blockingAdapter) Position() PositionDescriptor { return PositionDescriptor{} }
func (a *blockingAdapter) Outline() []OutlineEntry      { return []OutlineEntry{} }
func (a *blockingAdapter) Close()                       { a.handles.revokeAll() }

const fileTypeLate = "test-late"

type releaseKey struct{}

// lateAdapter ignores cancellation: it waits for the channel stored under
// releaseKey in its context, then renders anyway.
type lateAdapter struct {
	vp *Viewport
}

func init() {
	adapters[fileTypeLate] = func(*Registry) Adapter { return &lateAdapter{} }
}

func (a *lateAdapter) Family() Family { return FamilyFixedLayout }

func (a *lateAdapter) Open(ctx context.Context, _ []byte, vp *Viewport, _ *models.ReadingProgress) error {
	<-ctx.Value(releaseKey{}).(chan struct{})
	a.vp = vp
	vp.Render(Frame{Caption: "late"})
	return nil
}

func (a *lateAdapter) Advance(Direction)            {}
func (a *lateAdapter) Position() PositionDescriptor { return PositionDescriptor{} }
func (a *lateAdapter) Outline() []OutlineEntry      { return []OutlineEntry{} }
func (a *lateAdapter) Close() {
	if a.vp != nil {
		a.vp.Clear()
	}
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestSession(t *testing.T) (*Session, *Reporter, *[]ProgressEvent) {
	t.Helper()
	reporter := NewReporter()
	var (
		mu     sync.Mutex
		events []ProgressEvent
	)
	unsubscribe := reporter.Subscribe(func(ev ProgressEvent) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	})
	t.Cleanup(unsubscribe)
	s := NewSession(reporter, NewViewport(640, 480), WithClock(func() time.Time { return fixedNow }))
	return s, reporter, &events
}

func cbzBook(id int) *models.Book {
	return &models.Book{ID: id, Title: "Comic", FileType: models.FileTypeCBZ}
}

func TestSession_OpenNavigateClose(t *testing.T) {
	t.Parallel()
	s, _, events := newTestSession(t)
	data := testgen.CBZ(t, testgen.CBZOptions{PageCount: 4})

	assert.Equal(t, StateClosed, s.State())
	require.NoError(t, s.Open(context.Background(), cbzBook(7), data, nil))
	assert.Equal(t, StateOpen, s.State())
	assert.Equal(t, 7, s.Book().ID)

	require.Len(t, *events, 1)
	first := (*events)[0]
	assert.Equal(t, 7, first.BookID)
	assert.Equal(t, 25, first.Progress.ProgressPercent)
	assert.Equal(t, 1, *first.Progress.CurrentPage)
	assert.Equal(t, 4, *first.Progress.TotalPages)
	assert.Nil(t, first.Progress.Location)
	assert.Equal(t, fixedNow, first.Progress.UpdatedAt)

	s.Navigate(Forward)
	require.Len(t, *events, 2)
	assert.Equal(t, 50, (*events)[1].Progress.ProgressPercent)
	assert.Equal(t, first.Seq+1, (*events)[1].Seq)

	pos, ok := s.Position()
	require.True(t, ok)
	assert.Equal(t, 2, pos.Page)

	s.Navigate(Backward)
	s.Navigate(Backward)
	require.Len(t, *events, 4)
	assert.Equal(t, 25, (*events)[3].Progress.ProgressPercent)

	s.Close()
	assert.Equal(t, StateClosed, s.State())
	assert.Nil(t, s.Book())
	assert.Equal(t, 0, s.Registry().Outstanding())
	_, ok = s.Viewport().Frame()
	assert.False(t, ok)

	s.Close()
	assert.Equal(t, StateClosed, s.State())
}

func TestSession_NoHandlesLeakPerFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		book *models.Book
		data func(t *testing.T) []byte
	}{
		{"cbz", cbzBook(1), func(t *testing.T) []byte { return testgen.CBZ(t, testgen.CBZOptions{PageCount: 5}) }},
		{"pdf", &models.Book{ID: 2, FileType: models.FileTypePDF}, func(t *testing.T) []byte { return testgen.PDF(t, testgen.PDFOptions{PageCount: 5}) }},
		{"epub", &models.Book{ID: 3, FileType: models.FileTypeEPUB}, func(t *testing.T) []byte {
			return testgen.EPUB(t, testgen.EPUBOptions{Chapters: []string{longChapter("one", 400), longChapter("two", 400)}})
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s, _, _ := newTestSession(t)
			data := tt.data(t)

			for round := 0; round < 3; round++ {
				require.NoError(t, s.Open(context.Background(), tt.book, data, nil))
				for i := 0; i < 8; i++ {
					s.Navigate(Forward)
				}
				s.Navigate(Backward)
				s.Close()
				assert.Equal(t, 0, s.Registry().Outstanding())
			}
		})
	}
}

func TestSession_ProgressMonotonicForward(t *testing.T) {
	t.Parallel()
	s, _, events := newTestSession(t)
	data := testgen.EPUB(t, testgen.EPUBOptions{Chapters: []string{longChapter("a", 2000)}})

	require.NoError(t, s.Open(context.Background(), &models.Book{ID: 9, FileType: models.FileTypeEPUB}, data, nil))
	for i := 0; i < 10; i++ {
		s.Navigate(Forward)
	}
	s.Close()

	require.NotEmpty(t, *events)
	for i := 1; i < len(*events); i++ {
		assert.GreaterOrEqual(t, (*events)[i].Progress.ProgressPercent, (*events)[i-1].Progress.ProgressPercent)
		assert.NotNil(t, (*events)[i].Progress.Location)
		assert.Nil(t, (*events)[i].Progress.CurrentPage)
	}
	assert.Equal(t, 100, (*events)[len(*events)-1].Progress.ProgressPercent)
}

func TestSession_PagePercentOnEveryPage(t *testing.T) {
	t.Parallel()

	for total := 1; total <= 50; total++ {
		total := total
		t.Run(fmt.Sprintf("%d pages", total), func(t *testing.T) {
			t.Parallel()
			s, _, events := newTestSession(t)
			data := testgen.CBZ(t, testgen.CBZOptions{PageCount: total})

			require.NoError(t, s.Open(context.Background(), cbzBook(total), data, nil))
			for page := 2; page <= total; page++ {
				s.Navigate(Forward)
			}
			s.Close()

			require.Len(t, *events, total)
			for i, ev := range *events {
				page := i + 1
				want := int(math.Round(float64(page) / float64(total) * 100))
				assert.Equal(t, want, ev.Progress.ProgressPercent, "page %d of %d", page, total)
				assert.Equal(t, page, *ev.Progress.CurrentPage)
				assert.Equal(t, total, *ev.Progress.TotalPages)
			}
			assert.Equal(t, 100, (*events)[total-1].Progress.ProgressPercent)
		})
	}
}

func TestSession_NavigateWhenNotOpen(t *testing.T) {
	t.Parallel()
	s, reporter, events := newTestSession(t)

	s.Navigate(Forward)
	s.Navigate(Backward)
	assert.Empty(t, *events)
	_, ok := reporter.Pending()
	assert.False(t, ok)
	_, ok = s.Position()
	assert.False(t, ok)
	assert.Empty(t, s.Outline())
}

func TestSession_OpenErrors(t *testing.T) {
	t.Parallel()

	t.Run("unsupported format allocates nothing", func(t *testing.T) {
		t.Parallel()
		s, _, events := newTestSession(t)
		err := s.Open(context.Background(), &models.Book{ID: 1, FileType: models.FileTypeCBR}, []byte("Rar!"), nil)
		require.ErrorIs(t, err, ErrUnsupportedFormat)
		assert.Equal(t, StateClosed, s.State())
		assert.Equal(t, 0, s.Registry().Outstanding())
		assert.Empty(t, *events)
	})

	t.Run("corrupt then valid", func(t *testing.T) {
		t.Parallel()
		s, _, events := newTestSession(t)

		err := s.Open(context.Background(), cbzBook(1), []byte("garbage"), nil)
		require.ErrorIs(t, err, ErrCorruptContainer)
		assert.Equal(t, StateClosed, s.State())
		assert.Equal(t, 0, s.Registry().Outstanding())
		assert.Empty(t, *events)

		require.NoError(t, s.Open(context.Background(), cbzBook(1), testgen.CBZ(t, testgen.CBZOptions{}), nil))
		assert.Equal(t, StateOpen, s.State())
		assert.Len(t, *events, 1)
		s.Close()
	})

	t.Run("empty content", func(t *testing.T) {
		t.Parallel()
		s, _, _ := newTestSession(t)
		err := s.Open(context.Background(), cbzBook(1), testgen.CBZ(t, testgen.CBZOptions{NoPages: true}), nil)
		require.ErrorIs(t, err, ErrEmptyContent)
		assert.Equal(t, StateClosed, s.State())
	})

	t.Run("busy", func(t *testing.T) {
		t.Parallel()
		s, _, _ := newTestSession(t)
		data := testgen.CBZ(t, testgen.CBZOptions{})
		require.NoError(t, s.Open(context.Background(), cbzBook(1), data, nil))
		defer s.Close()

		err := s.Open(context.Background(), cbzBook(2), data, nil)
		require.ErrorIs(t, err, ErrSessionBusy)
		assert.Equal(t, 1, s.Book().ID)
	})
}

func TestSession_CloseDuringOpen(t *testing.T) {
	t.Parallel()
	s, _, events := newTestSession(t)

	done := make(chan error, 1)
	go func() {
		done <- s.Open(context.Background(), &models.Book{ID: 5, FileType: fileTypeBlocking}, nil, nil)
	}()

	require.Eventually(t, func() bool {
		return s.State() == StateOpening && s.Registry().Outstanding() == 1
	}, time.Second, time.Millisecond)

	s.Close()
	assert.Equal(t, StateClosed, s.State())

	select {
	case err := <-done:
		require.ErrorIs(t, err, ErrOpenAborted)
	case <-time.After(time.Second):
		t.Fatal("open did not return after close")
	}

	assert.Equal(t, StateClosed, s.State())
	assert.Equal(t, 0, s.Registry().Outstanding())
	assert.Empty(t, *events)
}

func TestSession_StaleOpenDoesNotClobberNewer(t *testing.T) {
	t.Parallel()
	s, _, events := newTestSession(t)

	done := make(chan error, 1)
	go func() {
		done <- s.Open(context.Background(), &models.Book{ID: 5, FileType: fileTypeBlocking}, nil, nil)
	}()
	require.Eventually(t, func() bool { return s.State() == StateOpening }, time.Second, time.Millisecond)

	s.Close()
	require.NoError(t, s.Open(context.Background(), cbzBook(6), testgen.CBZ(t, testgen.CBZOptions{}), nil))

	require.ErrorIs(t, <-done, ErrOpenAborted)
	assert.Equal(t, StateOpen, s.State())
	assert.Equal(t, 6, s.Book().ID)
	require.Len(t, *events, 1)
	assert.Equal(t, 6, (*events)[0].BookID)

	s.Close()
	assert.Equal(t, 0, s.Registry().Outstanding())
}

func TestSession_LateOpenKeepsNewerFrame(t *testing.T) {
	t.Parallel()
	s, _, _ := newTestSession(t)

	release := make(chan struct{})
	ctx := context.WithValue(context.Background(), releaseKey{}, release)
	done := make(chan error, 1)
	go func() {
		done <- s.Open(ctx, &models.Book{ID: 5, FileType: fileTypeLate}, nil, nil)
	}()
	require.Eventually(t, func() bool { return s.State() == StateOpening }, time.Second, time.Millisecond)

	s.Close()
	require.NoError(t, s.Open(context.Background(), cbzBook(6), testgen.CBZ(t, testgen.CBZOptions{PageCount: 3}), nil))
	frame, ok := s.Viewport().Frame()
	require.True(t, ok)
	assert.Equal(t, "Page 1 of 3", frame.Caption)

	close(release)
	require.ErrorIs(t, <-done, ErrOpenAborted)

	frame, ok = s.Viewport().Frame()
	require.True(t, ok)
	assert.Equal(t, "Page 1 of 3", frame.Caption)
	assert.Equal(t, StateOpen, s.State())

	s.Navigate(Forward)
	frame, _ = s.Viewport().Frame()
	assert.Equal(t, "Page 2 of 3", frame.Caption)

	s.Close()
	_, ok = s.Viewport().Frame()
	assert.False(t, ok)
}

func TestSession_ParentContextCanceled(t *testing.T) {
	t.Parallel()
	s, _, _ := newTestSession(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- s.Open(ctx, &models.Book{ID: 5, FileType: fileTypeBlocking}, nil, nil)
	}()
	require.Eventually(t, func() bool { return s.State() == StateOpening }, time.Second, time.Millisecond)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
	assert.Equal(t, StateClosed, s.State())
	assert.Equal(t, 0, s.Registry().Outstanding())
}

func TestState_String(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "opening", StateOpening.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "unknown", State(42).String())
}
