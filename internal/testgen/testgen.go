// Package testgen generates book containers (EPUB, CBZ, PDF) with
// configurable content for tests.
package testgen

import (
	"os"
	"path/filepath"
	"testing"
)

// EPUBOptions configures the generated EPUB file.
type EPUBOptions struct {
	Title         string
	Authors       []string
	Publisher     string
	Language      string // defaults to "en"
	HasCover      bool
	CoverMimeType string // "image/jpeg" or "image/png", defaults to "image/png"
	// Chapters holds the body text of each spine document. Defaults to a
	// single short chapter.
	Chapters []string
	// OmitOPF leaves the package document out so container parsing fails.
	OmitOPF bool
}

// CBZOptions configures the generated CBZ file.
type CBZOptions struct {
	Title        string
	Writer       string
	Publisher    string
	PageCount    int    // defaults to 3; use NoPages for an archive without images
	NoPages      bool   // if true, the archive holds only ComicInfo.xml
	HasComicInfo bool   // whether to include ComicInfo.xml
	ImageFormat  string // "png", "jpeg" or "webp", defaults to "png"
}

// PDFOptions configures the generated PDF file.
type PDFOptions struct {
	Title     string
	Author    string
	PageCount int // defaults to 3
}

// WriteFile creates a file with the given content in the specified directory.
// Returns the full path to the created file.
func WriteFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, content, 0600); err != nil {
		t.Fatalf("failed to write file %s: %v", path, err)
	}
	return path
}

// GenerateCBZ writes a CBZ built from opts into dir and returns its path.
func GenerateCBZ(t *testing.T, dir, filename string, opts CBZOptions) string {
	t.Helper()
	return WriteFile(t, dir, filename, CBZ(t, opts))
}

// GenerateEPUB writes an EPUB built from opts into dir and returns its path.
func GenerateEPUB(t *testing.T, dir, filename string, opts EPUBOptions) string {
	t.Helper()
	return WriteFile(t, dir, filename, EPUB(t, opts))
}

// GeneratePDF writes a PDF built from opts into dir and returns its path.
func GeneratePDF(t *testing.T, dir, filename string, opts PDFOptions) string {
	t.Helper()
	return WriteFile(t, dir, filename, PDF(t, opts))
}

// StringPtr is a helper to create a pointer to a string.
func StringPtr(s string) *string {
	return &s
}

// IntPtr is a helper to create a pointer to an int.
func IntPtr(i int) *int {
	return &i
}
