package progress

import "time"

// ProgressPayload is the body of PUT /books/:id/progress. Paginated formats
// send current_page and total_pages together; flowable formats send location.
type ProgressPayload struct {
	ProgressPercent int       `json:"progress_percent" validate:"min=0,max=100"`
	CurrentPage     *int      `json:"current_page,omitempty" validate:"omitempty,min=1"`
	TotalPages      *int      `json:"total_pages,omitempty" validate:"omitempty,min=1"`
	Location        *string   `json:"location,omitempty" validate:"omitempty,max=1024"`
	UpdatedAt       time.Time `json:"updated_at" validate:"required"`
}
