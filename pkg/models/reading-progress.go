package models

import (
	"time"

	"github.com/uptrace/bun"
)

// ReadingProgress is a user's position in a book. Paginated formats populate
// CurrentPage and TotalPages together; flowable formats populate Location.
type ReadingProgress struct {
	bun.BaseModel `bun:"table:reading_progress,alias:rp"`

	UserID          int       `bun:",pk" json:"user_id,omitempty"`
	BookID          int       `bun:",pk" json:"book_id"`
	ProgressPercent int       `json:"progress_percent" validate:"min=0,max=100"`
	CurrentPage     *int      `json:"current_page,omitempty" validate:"omitempty,min=1"`
	TotalPages      *int      `json:"total_pages,omitempty" validate:"required_with=CurrentPage"`
	Location        *string   `json:"location,omitempty" validate:"omitempty,max=1024"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// HasPage reports whether the progress carries a paginated position.
func (p *ReadingProgress) HasPage() bool {
	return p != nil && p.CurrentPage != nil && p.TotalPages != nil
}

// HasLocation reports whether the progress carries a flowable position.
func (p *ReadingProgress) HasLocation() bool {
	return p != nil && p.Location != nil && *p.Location != ""
}

// Newer reports whether p was written after other. A nil other is always
// older.
func (p *ReadingProgress) Newer(other *ReadingProgress) bool {
	if other == nil {
		return true
	}
	return p.UpdatedAt.After(other.UpdatedAt)
}
