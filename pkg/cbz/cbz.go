package cbz

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"io"
	"path"
	"sort"
	"strings"
	"unicode"

	"github.com/mylibrary/mylibrary/pkg/mediafile"
	"github.com/pkg/errors"
)

// maxImageSize caps a single decoded page to keep a hostile archive from
// exhausting memory.
const maxImageSize = 100 << 20

type ComicInfo struct {
	XMLName     xml.Name `xml:"ComicInfo"`
	Title       string   `xml:"Title"`
	Series      string   `xml:"Series"`
	Number      string   `xml:"Number"`
	Summary     string   `xml:"Summary"`
	Writer      string   `xml:"Writer"`
	Penciller   string   `xml:"Penciller"`
	Publisher   string   `xml:"Publisher"`
	PageCount   string   `xml:"PageCount"`
	LanguageISO string   `xml:"LanguageISO"`
}

// Archive is an opened comic archive with its pages in reading order.
type Archive struct {
	zr    *zip.Reader
	Pages []*zip.File
}

// Open reads a CBZ from memory. It fails if the bytes are not a zip archive;
// an archive with no images opens successfully with zero pages.
func Open(data []byte) (*Archive, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &Archive{zr: zr, Pages: sortedImageFiles(zr)}, nil
}

// ReadPage returns the raw bytes of the page at the 0-based index.
func (a *Archive) ReadPage(index int) ([]byte, error) {
	if index < 0 || index >= len(a.Pages) {
		return nil, errors.Errorf("page %d out of range (%d pages)", index, len(a.Pages))
	}
	r, err := a.Pages[index].Open()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer r.Close()

	b, err := io.ReadAll(io.LimitReader(r, maxImageSize))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return b, nil
}

// ComicInfo returns the parsed ComicInfo.xml, or nil when the archive has
// none.
func (a *Archive) ComicInfo() (*ComicInfo, error) {
	for _, file := range a.zr.File {
		if strings.ToLower(path.Base(file.Name)) == "comicinfo.xml" {
			r, err := file.Open()
			if err != nil {
				return nil, errors.WithStack(err)
			}
			return ParseComicInfo(r)
		}
	}
	return nil, nil
}

// Parse extracts catalog metadata from a CBZ. The first page doubles as the
// cover.
func Parse(data []byte) (*mediafile.ParsedMetadata, error) {
	a, err := Open(data)
	if err != nil {
		return nil, err
	}

	comicInfo, err := a.ComicInfo()
	if err != nil {
		return nil, err
	}

	pageCount := len(a.Pages)
	metadata := &mediafile.ParsedMetadata{PageCount: &pageCount}

	if comicInfo != nil {
		metadata.Title = comicInfo.Title
		if metadata.Title == "" && comicInfo.Series != "" {
			metadata.Title = strings.TrimSpace(comicInfo.Series + " " + comicInfo.Number)
		}
		metadata.Authors = splitCreators(comicInfo.Writer)
		metadata.Publisher = comicInfo.Publisher
		metadata.Language = comicInfo.LanguageISO
		metadata.Description = comicInfo.Summary
	}

	if pageCount > 0 {
		cover, err := a.ReadPage(0)
		if err != nil {
			return nil, err
		}
		metadata.CoverData = cover
		metadata.CoverMimeType = MimeTypeForName(a.Pages[0].Name)
	}

	return metadata, nil
}

func ParseComicInfo(r io.ReadCloser) (*ComicInfo, error) {
	defer r.Close()

	b, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	comicInfo := &ComicInfo{}
	err = xml.Unmarshal(b, comicInfo)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return comicInfo, nil
}

// MimeTypeForName maps an image extension to its mime type.
func MimeTypeForName(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	}
	return ""
}

func sortedImageFiles(zr *zip.Reader) []*zip.File {
	var imageFiles []*zip.File
	for _, file := range zr.File {
		if file.FileInfo().IsDir() || strings.HasPrefix(path.Base(file.Name), ".") {
			continue
		}
		if MimeTypeForName(file.Name) != "" {
			imageFiles = append(imageFiles, file)
		}
	}

	sort.SliceStable(imageFiles, func(i, j int) bool {
		return naturalLess(imageFiles[i].Name, imageFiles[j].Name)
	})

	return imageFiles
}

// naturalLess orders names so that embedded numbers compare by value, which
// puts "page2.png" before "page10.png".
func naturalLess(a, b string) bool {
	ar, br := []rune(strings.ToLower(a)), []rune(strings.ToLower(b))
	i, j := 0, 0
	for i < len(ar) && j < len(br) {
		if unicode.IsDigit(ar[i]) && unicode.IsDigit(br[j]) {
			si := i
			for i < len(ar) && unicode.IsDigit(ar[i]) {
				i++
			}
			sj := j
			for j < len(br) && unicode.IsDigit(br[j]) {
				j++
			}
			na := strings.TrimLeft(string(ar[si:i]), "0")
			nb := strings.TrimLeft(string(br[sj:j]), "0")
			if len(na) != len(nb) {
				return len(na) < len(nb)
			}
			if na != nb {
				return na < nb
			}
			continue
		}
		if ar[i] != br[j] {
			return ar[i] < br[j]
		}
		i++
		j++
	}
	if len(ar)-i != len(br)-j {
		return len(ar)-i < len(br)-j
	}
	return a < b
}

func splitCreators(creators string) []string {
	if creators == "" {
		return nil
	}

	parts := strings.Split(creators, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
