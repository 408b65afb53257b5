package errors

import "errors"

var (
	ErrNotFound = errors.New("resource not found")

	ErrInvalidID = errors.New("invalid resource ID format")

	ErrColorTaken = errors.New("display color already in use")

	ErrPaletteExhausted = errors.New("no free display colors left")

	ErrInUse = errors.New("resource has reservations")
)
