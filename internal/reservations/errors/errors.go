package errors

import "errors"

var (
	ErrNotFound = errors.New("reservation not found")

	ErrInvalidID = errors.New("invalid reservation ID format")

	ErrTimeConflict = errors.New("reservation overlaps an existing reservation")

	ErrInvalidTimeRange = errors.New("end must be after start")
)
