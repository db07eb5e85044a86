package mediafile

import (
	"fmt"
	"strings"
)

// ParsedMetadata is what an uploaded container tells us about itself. Every
// field is optional; callers fall back to the upload filename for the title.
type ParsedMetadata struct {
	Title       string
	Authors     []string
	Publisher   string
	Language    string
	Description string
	// PageCount is set for paginated formats (CBZ, PDF) only.
	PageCount     *int
	CoverMimeType string
	CoverData     []byte
}

func (m *ParsedMetadata) String() string {
	pageCount := "-"
	if m.PageCount != nil {
		pageCount = fmt.Sprintf("%d", *m.PageCount)
	}
	return fmt.Sprintf("Title:           %s\nAuthor(s):       %s\nPublisher:       %s\nLanguage:        %s\nPage Count:      %s\nHas Cover Data:  %v\nCover Mime Type: %s",
		m.Title, strings.Join(m.Authors, ", "), m.Publisher, m.Language, pageCount, len(m.CoverData) > 0, m.CoverMimeType)
}

// Author joins the parsed authors into the single author string a book
// record carries. It returns nil when no author was found.
func (m *ParsedMetadata) Author() *string {
	if len(m.Authors) == 0 {
		return nil
	}
	s := strings.Join(m.Authors, ", ")
	return &s
}

func (m *ParsedMetadata) CoverExtension() string {
	ext := ""
	switch m.CoverMimeType {
	case "image/jpeg":
		ext = ".jpg"
	case "image/png":
		ext = ".png"
	case "image/gif":
		ext = ".gif"
	case "image/webp":
		ext = ".webp"
	}
	return ext
}
