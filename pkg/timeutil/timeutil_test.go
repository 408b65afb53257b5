package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTripSecondGranularity(t *testing.T) {
	cases := []struct {
		name string
		ms   int64
	}{
		{"epoch", 0},
		{"leap year day", time.Date(2024, 2, 29, 12, 30, 45, 0, time.UTC).UnixMilli()},
		{"non-utc offset instant", time.Date(2023, 6, 15, 9, 0, 0, 0, time.FixedZone("JST", 9*3600)).UnixMilli()},
		{"end of year", time.Date(2025, 12, 31, 23, 59, 59, 0, time.UTC).UnixMilli()},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseTimestamp(FormatTimestamp(tc.ms))
			require.NoError(t, err)
			assert.Equal(t, tc.ms, got)
		})
	}
}

func TestFormatTimestampIsUTC(t *testing.T) {
	ms := time.Date(2024, 2, 29, 23, 59, 59, 0, time.UTC).UnixMilli()
	assert.Equal(t, "2024-02-29 23:59:59", FormatTimestamp(ms))
}

func TestParseTimestampNumericString(t *testing.T) {
	got, err := ParseTimestamp("1700000000000")
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000000), got)
}

func TestParseTimestampRFC3339Fallback(t *testing.T) {
	got, err := ParseTimestamp("2024-02-29T12:00:00+09:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 29, 3, 0, 0, 0, time.UTC).UnixMilli(), got)
}

func TestParseTimestampRejectsGarbage(t *testing.T) {
	_, err := ParseTimestamp("not a time")
	assert.Error(t, err)

	_, err = ParseTimestamp("")
	assert.Error(t, err)
}
