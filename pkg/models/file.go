package models

import (
	"path/filepath"
	"strings"
)

const (
	FileTypeCBZ  = "cbz"
	FileTypeCBR  = "cbr"
	FileTypeEPUB = "epub"
	FileTypePDF  = "pdf"
)

// FileTypes is the closed set of format tags a book can carry.
var FileTypes = []string{FileTypeEPUB, FileTypePDF, FileTypeCBZ, FileTypeCBR}

// FileTypeFromFilename maps a filename's extension to its format tag. The
// second return value is false for extensions outside FileTypes.
func FileTypeFromFilename(name string) (string, bool) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	for _, ft := range FileTypes {
		if ext == ft {
			return ft, true
		}
	}
	return "", false
}

// IsPaginatedFileType reports whether progress for the format is tracked by
// page number rather than by location token.
func IsPaginatedFileType(fileType string) bool {
	switch fileType {
	case FileTypeCBZ, FileTypeCBR, FileTypePDF:
		return true
	}
	return false
}

// IsFileType reports whether s is one of FileTypes.
func IsFileType(s string) bool {
	for _, ft := range FileTypes {
		if s == ft {
			return true
		}
	}
	return false
}
