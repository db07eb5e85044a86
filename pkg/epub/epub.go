package epub

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"io"
	"path"
	"strings"

	"github.com/mylibrary/mylibrary/pkg/mediafile"
	"github.com/pkg/errors"
)

const containerPath = "META-INF/container.xml"

// maxDocumentSize caps a single archive entry read into memory.
const maxDocumentSize = 64 << 20

var (
	ErrNoContainer = errors.New("epub: missing META-INF/container.xml")
	ErrNoPackage   = errors.New("epub: package document not found")
)

type container struct {
	Rootfiles []struct {
		FullPath  string `xml:"full-path,attr"`
		MediaType string `xml:"media-type,attr"`
	} `xml:"rootfiles>rootfile"`
}

// Book is an opened EPUB archive.
type Book struct {
	zr    *zip.Reader
	files map[string]*zip.File
	OPF   *OPF
}

// Open reads an EPUB from memory, following container.xml to the package
// document. A book with an empty spine opens successfully.
func Open(data []byte) (*Book, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, errors.WithStack(err)
	}

	b := &Book{zr: zr, files: make(map[string]*zip.File, len(zr.File))}
	for _, f := range zr.File {
		b.files[f.Name] = f
	}

	opfPath, err := b.rootfile()
	if err != nil {
		return nil, err
	}

	f, ok := b.files[opfPath]
	if !ok {
		return nil, errors.Wrapf(ErrNoPackage, "rootfile %q", opfPath)
	}
	r, err := f.Open()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	b.OPF, err = ParseOPF(opfPath, r)
	if err != nil {
		return nil, err
	}

	return b, nil
}

func (b *Book) rootfile() (string, error) {
	f, ok := b.files[containerPath]
	if !ok {
		return "", ErrNoContainer
	}
	raw, err := readAll(f)
	if err != nil {
		return "", err
	}

	c := container{}
	if err := xml.Unmarshal(raw, &c); err != nil {
		return "", errors.WithStack(err)
	}
	for _, rf := range c.Rootfiles {
		if rf.FullPath != "" {
			return rf.FullPath, nil
		}
	}
	return "", ErrNoPackage
}

// ReadFile returns the contents of an archive entry by its full path.
func (b *Book) ReadFile(name string) ([]byte, error) {
	f, ok := b.files[path.Clean(name)]
	if !ok {
		return nil, errors.Errorf("epub: %q not found in archive", name)
	}
	return readAll(f)
}

// Parse extracts catalog metadata from an EPUB.
func Parse(data []byte) (*mediafile.ParsedMetadata, error) {
	b, err := Open(data)
	if err != nil {
		return nil, err
	}

	metadata := &mediafile.ParsedMetadata{
		Title:       b.OPF.Title,
		Authors:     b.OPF.Authors,
		Publisher:   b.OPF.Publisher,
		Language:    b.OPF.Language,
		Description: b.OPF.Description,
	}

	if b.OPF.CoverFilepath != "" {
		cover, err := b.ReadFile(b.OPF.CoverFilepath)
		if err == nil {
			metadata.CoverData = cover
			metadata.CoverMimeType = b.OPF.CoverMimeType
		}
	}

	return metadata, nil
}

// IsDocument reports whether a spine item holds renderable markup.
func (s SpineItem) IsDocument() bool {
	switch s.MediaType {
	case "application/xhtml+xml", "text/html":
		return true
	}
	ext := strings.ToLower(path.Ext(s.Path))
	return ext == ".xhtml" || ext == ".html" || ext == ".htm"
}

func readAll(f *zip.File) ([]byte, error) {
	r, err := f.Open()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer r.Close()

	b, err := io.ReadAll(io.LimitReader(r, maxDocumentSize))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return b, nil
}
