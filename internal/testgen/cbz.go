package testgen

import (
	"archive/zip"
	"bytes"
	"fmt"
	"testing"
)

// CBZ builds a CBZ archive in memory. Pages are named page1, page2, ... so
// that natural ordering and lexical ordering disagree once there are ten or
// more of them.
func CBZ(t *testing.T, opts CBZOptions) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	pageCount := opts.PageCount
	if pageCount <= 0 {
		pageCount = 3
	}
	if opts.NoPages {
		pageCount = 0
	}

	mimeType := "image/png"
	ext := "png"
	switch opts.ImageFormat {
	case "jpeg", "jpg":
		mimeType = "image/jpeg"
		ext = "jpg"
	case "webp":
		mimeType = "image/webp"
		ext = "webp"
	}

	if opts.HasComicInfo || opts.NoPages {
		if err := writeZipFile(zw, "ComicInfo.xml", []byte(generateComicInfo(opts, pageCount))); err != nil {
			t.Fatalf("failed to write ComicInfo.xml: %v", err)
		}
	}

	for i := 1; i <= pageCount; i++ {
		imgData := generateImage(t, mimeType)
		imgName := fmt.Sprintf("page%d.%s", i, ext)
		if err := writeZipFile(zw, imgName, imgData); err != nil {
			t.Fatalf("failed to write page %s: %v", imgName, err)
		}
	}

	if err := zw.Close(); err != nil {
		t.Fatalf("failed to close CBZ: %v", err)
	}
	return buf.Bytes()
}

func generateComicInfo(opts CBZOptions, pageCount int) string {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<ComicInfo>
`)
	if opts.Title != "" {
		buf.WriteString(fmt.Sprintf("  <Title>%s</Title>\n", escapeXML(opts.Title)))
	}
	if opts.Writer != "" {
		buf.WriteString(fmt.Sprintf("  <Writer>%s</Writer>\n", escapeXML(opts.Writer)))
	}
	if opts.Publisher != "" {
		buf.WriteString(fmt.Sprintf("  <Publisher>%s</Publisher>\n", escapeXML(opts.Publisher)))
	}
	buf.WriteString(fmt.Sprintf("  <PageCount>%d</PageCount>\n", pageCount))
	buf.WriteString("</ComicInfo>")

	return buf.String()
}
