package reader

import (
	"bytes"
	"context"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder

	"github.com/gabriel-vasile/mimetype"
	"github.com/mylibrary/mylibrary/pkg/cbz"
	"github.com/mylibrary/mylibrary/pkg/models"
	"github.com/pkg/errors"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

// comicAdapter reads image-sequence archives (CBZ). Each displayed page owns
// a handle holding its decoded bytes; turning the page revokes it.
type comicAdapter struct {
	paginator
	archive *cbz.Archive
}

func newComicAdapter(reg *Registry) Adapter {
	a := &comicAdapter{}
	a.paginator = paginator{handles: newHandleSet(reg), kind: "cbz-page", draw: a.drawPage}
	return a
}

func (a *comicAdapter) Family() Family {
	return FamilyPaginatedImage
}

func (a *comicAdapter) Open(ctx context.Context, data []byte, vp *Viewport, prior *models.ReadingProgress) error {
	if err := ctx.Err(); err != nil {
		return errors.WithStack(err)
	}

	archive, err := cbz.Open(data)
	if err != nil {
		return newOpenError(CorruptContainer, models.FileTypeCBZ, err)
	}
	if len(archive.Pages) == 0 {
		return newOpenError(EmptyContent, models.FileTypeCBZ, errors.New("archive contains no images"))
	}

	if err := ctx.Err(); err != nil {
		return errors.WithStack(err)
	}

	a.archive = archive
	a.vp = orDefault(vp)
	a.total = len(archive.Pages)

	if err := a.show(startPage(prior, a.total)); err != nil {
		return newOpenError(CorruptContainer, models.FileTypeCBZ, err)
	}
	return nil
}

func (a *comicAdapter) drawPage(page int, id HandleID) (Frame, error) {
	b, err := a.archive.ReadPage(page - 1)
	if err != nil {
		return Frame{}, err
	}

	mimeType := mimetype.Detect(b).String()
	if !mimetype.EqualsAny(mimeType, "image/jpeg", "image/png", "image/gif", "image/webp") {
		mimeType = cbz.MimeTypeForName(a.archive.Pages[page-1].Name)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(b))
	if err != nil {
		return Frame{}, errors.Wrapf(err, "decode page %d", page)
	}

	return Frame{
		Handle:   id,
		MimeType: mimeType,
		Width:    cfg.Width,
		Height:   cfg.Height,
		Body:     b,
		Caption:  pageCaption(page, a.total),
	}, nil
}

func (a *comicAdapter) Advance(dir Direction) {
	a.advance(dir)
}

func (a *comicAdapter) Position() PositionDescriptor {
	return a.position(FamilyPaginatedImage)
}

func (a *comicAdapter) Outline() []OutlineEntry {
	return []OutlineEntry{}
}

func (a *comicAdapter) Close() {
	a.close()
	a.archive = nil
}
