package reader

import (
	"math"
	"time"

	"github.com/mylibrary/mylibrary/pkg/models"
)

// PagePercent is round(page / total * 100). It is 0 for an empty book.
func PagePercent(page, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(page) / float64(total) * 100))
}

// Normalize converts a native position into a 0-100 progress value.
func Normalize(pos PositionDescriptor) int {
	if pos.Family.Paginated() {
		return PagePercent(pos.Page, pos.TotalPages)
	}
	pct := int(math.Round(pos.Fraction * 100))
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// ToProgress builds the progress record for bookID at pos. Exactly one
// position representation is populated, matching the family.
func ToProgress(bookID int, pos PositionDescriptor, now time.Time) *models.ReadingProgress {
	p := &models.ReadingProgress{
		BookID:          bookID,
		ProgressPercent: Normalize(pos),
		UpdatedAt:       now.UTC(),
	}
	if pos.Family.Paginated() {
		page, total := pos.Page, pos.TotalPages
		p.CurrentPage = &page
		p.TotalPages = &total
	} else if pos.Location != "" {
		location := pos.Location
		p.Location = &location
	}
	return p
}
