package books

import (
	"bytes"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/mylibrary/mylibrary/pkg/cbz"
	"github.com/mylibrary/mylibrary/pkg/epub"
	"github.com/mylibrary/mylibrary/pkg/errcodes"
	"github.com/mylibrary/mylibrary/pkg/htmlutil"
	"github.com/mylibrary/mylibrary/pkg/mediafile"
	"github.com/mylibrary/mylibrary/pkg/models"
	"github.com/mylibrary/mylibrary/pkg/pdf"
)

// signatures are the leading bytes each format must start with.
var signatures = map[string][]byte{
	models.FileTypeEPUB: []byte("PK"),
	models.FileTypeCBZ:  []byte("PK"),
	models.FileTypePDF:  []byte("%PDF-"),
	models.FileTypeCBR:  []byte("Rar!"),
}

// expectedMimeTypes are matched against the detected type and its parents, so
// an EPUB whose mimetype entry isn't first still passes as a zip.
var expectedMimeTypes = map[string][]string{
	models.FileTypeEPUB: {"application/epub+zip", "application/zip"},
	models.FileTypeCBZ:  {"application/zip"},
	models.FileTypePDF:  {"application/pdf"},
	models.FileTypeCBR:  {"application/x-rar-compressed"},
}

var (
	filenameBracketAuthorRE = regexp.MustCompile(`^\[(.+?)]\s*(.+)$`)
	filenameDashRE          = regexp.MustCompile(`^(.+?)\s+-\s+(.+)$`)
	filenameByRE            = regexp.MustCompile(`^(.+?)\s+by\s+(.+)$`)
)

var parsers = map[string]func([]byte) (*mediafile.ParsedMetadata, error){
	models.FileTypeEPUB: epub.Parse,
	models.FileTypeCBZ:  cbz.Parse,
	models.FileTypePDF:  pdf.Parse,
}

// DetectFileType maps the upload's filename to a format tag and checks that
// the content agrees with it.
func DetectFileType(filename string, data []byte) (string, error) {
	fileType, ok := models.FileTypeFromFilename(filename)
	if !ok {
		return "", errcodes.UnsupportedFileType(filename)
	}
	if len(data) == 0 {
		return "", errcodes.BadRequest("Uploaded file is empty.")
	}
	if !bytes.HasPrefix(data, signatures[fileType]) {
		return "", errcodes.BadRequest("File content does not match the ." + fileType + " extension.")
	}

	expected := expectedMimeTypes[fileType]
	for mtype := mimetype.Detect(data); mtype != nil; mtype = mtype.Parent() {
		for _, e := range expected {
			if mtype.Is(e) {
				return fileType, nil
			}
		}
	}
	return "", errcodes.BadRequest("File content does not match the ." + fileType + " extension.")
}

// ParseMetadata extracts what it can from the container. Formats without a
// parser, and containers that fail to parse, yield empty metadata and the
// parse error so the caller can decide whether to continue.
func ParseMetadata(fileType string, data []byte) (*mediafile.ParsedMetadata, error) {
	parse, ok := parsers[fileType]
	if !ok {
		return &mediafile.ParsedMetadata{}, nil
	}
	metadata, err := parse(data)
	if err != nil {
		return &mediafile.ParsedMetadata{}, err
	}
	metadata.Description = htmlutil.StripTags(metadata.Description)
	return metadata, nil
}

// TitleAndAuthorFromFilename guesses a title and author from names like
// "[Author] Title.epub", "Author - Title.pdf" or "Title by Author.cbz".
func TitleAndAuthorFromFilename(filename string) (string, string) {
	base := strings.TrimSpace(strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename)))
	if m := filenameBracketAuthorRE.FindStringSubmatch(base); m != nil {
		return strings.TrimSpace(m[2]), strings.TrimSpace(m[1])
	}
	if m := filenameDashRE.FindStringSubmatch(base); m != nil {
		return strings.TrimSpace(m[2]), strings.TrimSpace(m[1])
	}
	if m := filenameByRE.FindStringSubmatch(base); m != nil {
		return strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
	}
	return base, ""
}
