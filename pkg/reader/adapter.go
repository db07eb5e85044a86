package reader

import (
	"context"

	"github.com/mylibrary/mylibrary/pkg/models"
)

type Direction int

const (
	Forward Direction = iota + 1
	Backward
)

func (d Direction) String() string {
	switch d {
	case Forward:
		return "forward"
	case Backward:
		return "backward"
	}
	return "unknown"
}

// Family groups formats by how they express a reading position.
type Family string

const (
	FamilyPaginatedImage Family = "paginated-image"
	FamilyFixedLayout    Family = "fixed-layout"
	FamilyFlowable       Family = "flowable-location"
)

// Paginated reports whether positions in the family are page numbers.
func (f Family) Paginated() bool {
	return f == FamilyPaginatedImage || f == FamilyFixedLayout
}

// PositionDescriptor is an adapter's native answer to "where is the reader".
// Paginated families fill Page and TotalPages; the flowable family fills
// Location and Fraction.
type PositionDescriptor struct {
	Family     Family  `json:"family"`
	Page       int     `json:"page,omitempty"`
	TotalPages int     `json:"total_pages,omitempty"`
	Location   string  `json:"location,omitempty"`
	Fraction   float64 `json:"fraction,omitempty"`
}

type OutlineEntry struct {
	Title  string `json:"title"`
	Target string `json:"target"`
}

// Adapter wraps one container format behind a uniform navigation contract.
// A session serializes calls into its adapter, so implementations need no
// locking of their own.
type Adapter interface {
	Family() Family
	// Open decodes data and renders the first view into vp. When prior
	// carries a position of the adapter's family, reading resumes there.
	Open(ctx context.Context, data []byte, vp *Viewport, prior *models.ReadingProgress) error
	// Advance moves one navigable unit. It is a no-op at either boundary.
	Advance(dir Direction)
	Position() PositionDescriptor
	// Outline always returns an empty table of contents.
	Outline() []OutlineEntry
	// Close revokes every handle the adapter allocated. It is idempotent.
	Close()
}

type constructor func(reg *Registry) Adapter

var adapters = map[string]constructor{
	models.FileTypeCBZ:  newComicAdapter,
	models.FileTypePDF:  newPDFAdapter,
	models.FileTypeEPUB: newEPUBAdapter,
}

// NewAdapter is the single point where a book's format tag selects its
// adapter. Tags without an adapter fail with UnsupportedFormat before any
// allocation happens.
func NewAdapter(fileType string, reg *Registry) (Adapter, error) {
	c, ok := adapters[fileType]
	if !ok {
		return nil, newOpenError(UnsupportedFormat, fileType, nil)
	}
	return c(reg), nil
}

// Supported reports whether a format tag can be opened for reading.
func Supported(fileType string) bool {
	_, ok := adapters[fileType]
	return ok
}
