package model

import "time"

// Reservation is a time-bounded claim on one resource. Start and End are
// millisecond epoch timestamps forming the half-open interval [Start, End);
// two reservations on the same resource conflict iff their intervals overlap.
type Reservation struct {
	ID           string    `json:"id,omitempty" validate:"omitempty,mongodb"`
	ResourceID   string    `json:"resource_id" validate:"required,mongodb"`
	Start        int64     `json:"start" validate:"required,gt=0"`
	End          int64     `json:"end" validate:"required,gt=0"`
	PurposeOfUse string    `json:"purpose_of_use" validate:"required,min=1,max=200"`
	Color        string    `json:"color,omitempty" validate:"omitempty"`
	UserID       string    `json:"user_id,omitempty" validate:"omitempty,mongodb"`
	CreatedAt    time.Time `json:"created_at,omitempty" validate:"omitempty"`
}

type ReservationUpdate struct {
	ResourceID   *string `json:"resource_id,omitempty" validate:"omitempty,mongodb"`
	Start        *int64  `json:"start,omitempty" validate:"omitempty,gt=0"`
	End          *int64  `json:"end,omitempty" validate:"omitempty,gt=0"`
	PurposeOfUse *string `json:"purpose_of_use,omitempty" validate:"omitempty,min=1,max=200"`
}

// CalendarEntry is the display record the calendar consumes. Title carries the
// resource name, Subtitle the purpose of use; clients depend on that mapping.
type CalendarEntry struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	Start    int64  `json:"start"`
	End      int64  `json:"end"`
	Color    string `json:"color"`
}
