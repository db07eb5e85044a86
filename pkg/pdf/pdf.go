package pdf

import (
	"bytes"
	"strings"

	"github.com/mylibrary/mylibrary/pkg/mediafile"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pkg/errors"
)

func init() {
	// pdfcpu otherwise creates a config directory under the user's home.
	api.DisableConfigDir()
}

// Document is the structural view of a PDF: enough to paginate it, not to
// rasterize it.
type Document struct {
	PageCount int
	Title     string
	Author    string
}

// Open parses and validates a PDF held in memory. Validation is relaxed so
// that the many slightly-off PDFs in the wild still open.
func Open(data []byte) (*Document, error) {
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return nil, errors.New("pdf: missing %PDF- header")
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadAndValidate(bytes.NewReader(data), conf)
	if err != nil {
		return nil, errors.Wrap(err, "pdf: read and validate")
	}

	return &Document{
		PageCount: ctx.PageCount,
		Title:     strings.TrimSpace(ctx.Title),
		Author:    strings.TrimSpace(ctx.Author),
	}, nil
}

// Parse extracts catalog metadata from a PDF's Info dictionary.
func Parse(data []byte) (*mediafile.ParsedMetadata, error) {
	doc, err := Open(data)
	if err != nil {
		return nil, err
	}

	pageCount := doc.PageCount
	metadata := &mediafile.ParsedMetadata{
		Title:     doc.Title,
		PageCount: &pageCount,
	}
	if doc.Author != "" {
		metadata.Authors = []string{doc.Author}
	}
	return metadata, nil
}
