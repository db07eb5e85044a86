package books

import (
	"bytes"
	"image"
	_ "image/gif"  // register gif decoding
	"image/jpeg"
	_ "image/png"  // register png decoding
	"os"
	"path/filepath"
	"strconv"

	"github.com/mylibrary/mylibrary/pkg/errcodes"
	"github.com/mylibrary/mylibrary/pkg/models"
	"github.com/pkg/errors"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register webp decoding
)

const thumbnailQuality = 85

// Thumbnail returns the book's cover scaled to the configured width as a
// JPEG. Results are cached next to the stored books.
func (svc *Service) Thumbnail(book *models.Book) ([]byte, error) {
	if book.CoverPath == nil {
		return nil, errcodes.NotFound("Cover")
	}

	cachePath := filepath.Join(svc.storageDir, "thumbnails", strconv.Itoa(book.ID)+"-"+strconv.Itoa(svc.thumbnailWidth)+".jpg")
	if data, err := os.ReadFile(cachePath); err == nil {
		return data, nil
	}

	cover, err := os.ReadFile(*book.CoverPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errcodes.NotFound("Cover")
		}
		return nil, errors.WithStack(err)
	}

	data, err := ResizeJPEG(cover, svc.thumbnailWidth)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(cachePath), 0755); err != nil {
		return nil, errors.WithStack(err)
	}
	if err := os.WriteFile(cachePath, data, 0600); err != nil {
		return nil, errors.WithStack(err)
	}
	return data, nil
}

// ResizeJPEG scales an encoded image to width, keeping its aspect ratio, and
// encodes the result as JPEG. Images already narrower than width keep their
// size.
func ResizeJPEG(data []byte, width int) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "decode cover")
	}

	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w > width {
		h = h * width / w
		w = width
	}
	if h < 1 {
		h = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.BiLinear.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: thumbnailQuality}); err != nil {
		return nil, errors.WithStack(err)
	}
	return buf.Bytes(), nil
}
