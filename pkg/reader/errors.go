package reader

import (
	"fmt"

	"github.com/pkg/errors"
)

type OpenErrorKind string

const (
	CorruptContainer  OpenErrorKind = "corrupt_container"
	EmptyContent      OpenErrorKind = "empty_content"
	UnsupportedFormat OpenErrorKind = "unsupported_format"
)

var (
	ErrCorruptContainer  = &OpenError{Kind: CorruptContainer}
	ErrEmptyContent      = &OpenError{Kind: EmptyContent}
	ErrUnsupportedFormat = &OpenError{Kind: UnsupportedFormat}

	// ErrOpenAborted is returned by an Open that was overtaken by Close.
	ErrOpenAborted = errors.New("reader: open aborted")
	// ErrSessionBusy is returned when Open is called on a session that is
	// not closed.
	ErrSessionBusy = errors.New("reader: session is not closed")
)

// OpenError is the typed failure of an open attempt. It is fatal to the
// attempt and leaves the session closed.
type OpenError struct {
	Kind   OpenErrorKind
	Format string
	Err    error
}

func newOpenError(kind OpenErrorKind, format string, err error) error {
	return errors.WithStack(&OpenError{Kind: kind, Format: format, Err: err})
}

func (e *OpenError) Error() string {
	msg := string(e.Kind)
	if e.Format != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Format)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *OpenError) Unwrap() error {
	return e.Err
}

// Is matches any OpenError of the same kind, so callers can compare against
// ErrCorruptContainer and friends.
func (e *OpenError) Is(target error) bool {
	te, ok := target.(*OpenError)
	if !ok {
		return false
	}
	return te.Kind == e.Kind
}

// UserMessage is the text shown when a book cannot be opened.
func (e *OpenError) UserMessage() string {
	return "Could not open this book."
}
