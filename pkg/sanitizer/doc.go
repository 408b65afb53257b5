// Package sanitizer normalizes free-text input before validation and
// persistence. Display fields keep their case; only whitespace is cleaned up,
// so facet values compare by what the user actually typed.
package sanitizer
