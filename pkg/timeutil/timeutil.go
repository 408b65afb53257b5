// Package timeutil converts between the in-memory reservation time
// representation (milliseconds since epoch) and the persisted form (a UTC
// "YYYY-MM-DD HH:MM:SS" string). The conversion is exact at second
// granularity in both directions.
package timeutil

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// StoredLayout is the persisted timestamp form.
const StoredLayout = "2006-01-02 15:04:05"

// FormatTimestamp renders a millisecond epoch timestamp as the stored UTC
// string. Sub-second precision is dropped; reservation boundaries are
// second-aligned by the dialog flow.
func FormatTimestamp(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(StoredLayout)
}

// ParseTimestamp reads a stored timestamp back into epoch milliseconds. Bare
// numeric strings are taken as millisecond epochs directly, matching rows
// written before the string form was adopted. RFC3339 is accepted as a
// fallback for externally produced rows.
func ParseTimestamp(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty timestamp")
	}

	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ms, nil
	}

	if t, err := time.ParseInLocation(StoredLayout, s, time.UTC); err == nil {
		return t.UnixMilli(), nil
	}

	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0, fmt.Errorf("unrecognized timestamp %q: %w", s, err)
	}
	return t.UnixMilli(), nil
}
