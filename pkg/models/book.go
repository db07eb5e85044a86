package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Book struct {
	bun.BaseModel `bun:"table:books,alias:b"`

	ID            int       `bun:",pk,nullzero" json:"id" validate:"required,min=1"`
	CreatedAt     time.Time `json:"created_at"`
	Title         string    `bun:",nullzero" json:"title" validate:"required"`
	Author        *string   `json:"author"`
	FileType      string    `bun:",nullzero" json:"file_type" validate:"oneof=epub pdf cbz cbr"`
	FilesizeBytes int64     `json:"filesize_bytes" validate:"min=0"`
	Filepath      string    `bun:",nullzero" json:"-"`
	CoverPath     *string   `json:"-"`
	Publisher     *string   `json:"publisher,omitempty"`
	Description   *string   `json:"description,omitempty"`
	Language      *string   `json:"language,omitempty"`
	PageCount     *int      `json:"page_count,omitempty"`
	UploadedByID  *int      `json:"uploaded_by_id,omitempty"`

	// Progress is the requesting user's position, filled in by book listings.
	Progress *ReadingProgress `bun:"-" json:"progress,omitempty"`
}

// DisplayAuthor returns the author or an empty string when unknown.
func (b *Book) DisplayAuthor() string {
	if b.Author == nil {
		return ""
	}
	return *b.Author
}
