package reader

import (
	"context"
	"fmt"
	"math"

	"github.com/mylibrary/mylibrary/pkg/epub"
	"github.com/mylibrary/mylibrary/pkg/htmlutil"
	"github.com/mylibrary/mylibrary/pkg/models"
	"github.com/pkg/errors"
)

// epubAdapter reads reflowable books. Position is a location token; the
// fraction through the book comes from the location index, so total pages
// are never reported.
type epubAdapter struct {
	handles *handleSet
	vp      *Viewport

	locations     []location
	index         int
	section       int
	sectionHandle HandleID
	closed        bool
}

func newEPUBAdapter(reg *Registry) Adapter {
	return &epubAdapter{handles: newHandleSet(reg), section: -1}
}

func (a *epubAdapter) Family() Family {
	return FamilyFlowable
}

func (a *epubAdapter) Open(ctx context.Context, data []byte, vp *Viewport, prior *models.ReadingProgress) error {
	if err := ctx.Err(); err != nil {
		return errors.WithStack(err)
	}

	book, err := epub.Open(data)
	if err != nil {
		return newOpenError(CorruptContainer, models.FileTypeEPUB, err)
	}

	var locs []location
	for i, item := range book.OPF.Spine {
		if err := ctx.Err(); err != nil {
			return errors.WithStack(err)
		}
		if !item.IsDocument() {
			continue
		}
		raw, err := book.ReadFile(item.Path)
		if err != nil {
			return newOpenError(CorruptContainer, models.FileTypeEPUB, err)
		}
		locs = append(locs, splitLocations(i, item.IDRef, htmlutil.StripTags(string(raw)), charsPerLocation)...)
	}
	if len(locs) == 0 {
		return newOpenError(EmptyContent, models.FileTypeEPUB, errors.New("spine has no readable documents"))
	}

	a.vp = orDefault(vp)
	a.locations = locs
	a.index = a.resolve(prior)
	a.show()
	return nil
}

// resolve finds the location index for a prior position. Tokens from a
// different location granularity resolve to the last location at or before
// their offset in the same section.
func (a *epubAdapter) resolve(prior *models.ReadingProgress) int {
	if !prior.HasLocation() {
		return 0
	}
	token := *prior.Location
	for i, loc := range a.locations {
		if loc.cfi == token {
			return i
		}
	}

	spine, offset, ok := parseCFI(token)
	if !ok {
		return 0
	}
	found := 0
	for i, loc := range a.locations {
		if loc.spine == spine && loc.offset <= offset {
			found = i
		}
		if loc.spine > spine {
			break
		}
	}
	return found
}

func (a *epubAdapter) show() {
	loc := a.locations[a.index]
	if a.sectionHandle == "" || loc.spine != a.section {
		id := a.handles.allocate("epub-section")
		a.handles.revoke(a.sectionHandle)
		a.sectionHandle = id
		a.section = loc.spine
	}

	percent := int(math.Round(fractionAt(a.index, len(a.locations)) * 100))
	a.vp.Render(Frame{
		Handle:   a.sectionHandle,
		MimeType: "application/xhtml+xml",
		Width:    a.vp.Width,
		Height:   a.vp.Height,
		Text:     loc.text,
		Caption:  fmt.Sprintf("%s · %d%%", loc.idref, percent),
	})
}

func (a *epubAdapter) Advance(dir Direction) {
	if a.closed || len(a.locations) == 0 {
		return
	}
	next := a.index
	switch dir {
	case Forward:
		next++
	case Backward:
		next--
	}
	if next < 0 || next >= len(a.locations) || next == a.index {
		return
	}
	a.index = next
	a.show()
}

func (a *epubAdapter) Position() PositionDescriptor {
	if len(a.locations) == 0 {
		return PositionDescriptor{Family: FamilyFlowable}
	}
	return PositionDescriptor{
		Family:   FamilyFlowable,
		Location: a.locations[a.index].cfi,
		Fraction: fractionAt(a.index, len(a.locations)),
	}
}

func (a *epubAdapter) Outline() []OutlineEntry {
	return []OutlineEntry{}
}

func (a *epubAdapter) Close() {
	if a.closed {
		return
	}
	a.closed = true
	a.handles.revokeAll()
	a.sectionHandle = ""
	a.locations = nil
	if a.vp != nil {
		a.vp.Clear()
	}
}
