package reader

import (
	"fmt"

	"github.com/mylibrary/mylibrary/pkg/models"
)

// paginator holds the page-walking state shared by the paginated-image and
// fixed-layout adapters. draw renders one 1-based page against a freshly
// allocated handle.
type paginator struct {
	handles *handleSet
	vp      *Viewport
	kind    string
	draw    func(page int, id HandleID) (Frame, error)

	page    int
	total   int
	current HandleID
	closed  bool
}

// startPage picks the first page to show. An out-of-range prior page is
// clamped into the book rather than ignored.
func startPage(prior *models.ReadingProgress, total int) int {
	if !prior.HasPage() {
		return 1
	}
	page := *prior.CurrentPage
	if page < 1 {
		return 1
	}
	if page > total {
		return total
	}
	return page
}

// show renders page, then revokes the previous page's handle. A page that
// fails to decode still moves the position; the viewport shows a placeholder.
func (p *paginator) show(page int) error {
	id := p.handles.allocate(p.kind)
	f, err := p.draw(page, id)
	if err != nil {
		p.handles.revoke(id)
		id = ""
		f = Frame{Caption: fmt.Sprintf("Page %d of %d could not be displayed", page, p.total)}
	}
	p.vp.Render(f)
	p.handles.revoke(p.current)
	p.current = id
	p.page = page
	return err
}

func (p *paginator) advance(dir Direction) {
	if p.closed || p.total == 0 {
		return
	}
	next := p.page
	switch dir {
	case Forward:
		next++
	case Backward:
		next--
	}
	if next < 1 || next > p.total || next == p.page {
		return
	}
	_ = p.show(next)
}

func (p *paginator) position(family Family) PositionDescriptor {
	return PositionDescriptor{Family: family, Page: p.page, TotalPages: p.total}
}

func (p *paginator) close() {
	if p.closed {
		return
	}
	p.closed = true
	p.handles.revokeAll()
	p.current = ""
	if p.vp != nil {
		p.vp.Clear()
	}
}

func pageCaption(page, total int) string {
	return fmt.Sprintf("Page %d of %d", page, total)
}
