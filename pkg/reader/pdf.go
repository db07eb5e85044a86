package reader

import (
	"context"

	"github.com/mylibrary/mylibrary/pkg/models"
	"github.com/mylibrary/mylibrary/pkg/pdf"
	"github.com/pkg/errors"
)

// pdfAdapter reads fixed-layout documents. The page count is known as soon
// as the document validates; every displayed page holds a render-context
// handle until the reader moves on.
type pdfAdapter struct {
	paginator
	doc *pdf.Document
}

func newPDFAdapter(reg *Registry) Adapter {
	a := &pdfAdapter{}
	a.paginator = paginator{handles: newHandleSet(reg), kind: "pdf-render-context", draw: a.drawPage}
	return a
}

func (a *pdfAdapter) Family() Family {
	return FamilyFixedLayout
}

func (a *pdfAdapter) Open(ctx context.Context, data []byte, vp *Viewport, prior *models.ReadingProgress) error {
	if err := ctx.Err(); err != nil {
		return errors.WithStack(err)
	}

	doc, err := pdf.Open(data)
	if err != nil {
		return newOpenError(CorruptContainer, models.FileTypePDF, err)
	}
	if doc.PageCount == 0 {
		return newOpenError(EmptyContent, models.FileTypePDF, errors.New("document has no pages"))
	}

	if err := ctx.Err(); err != nil {
		return errors.WithStack(err)
	}

	a.doc = doc
	a.vp = orDefault(vp)
	a.total = doc.PageCount

	return a.show(startPage(prior, a.total))
}

func (a *pdfAdapter) drawPage(page int, id HandleID) (Frame, error) {
	return Frame{
		Handle:   id,
		MimeType: "application/pdf",
		Width:    a.vp.Width,
		Height:   a.vp.Height,
		Caption:  pageCaption(page, a.total),
	}, nil
}

func (a *pdfAdapter) Advance(dir Direction) {
	a.advance(dir)
}

func (a *pdfAdapter) Position() PositionDescriptor {
	return a.position(FamilyFixedLayout)
}

func (a *pdfAdapter) Outline() []OutlineEntry {
	return []OutlineEntry{}
}

func (a *pdfAdapter) Close() {
	a.close()
	a.doc = nil
}
