package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNearestDeparture(t *testing.T) {
	schedule := []string{"09:00", "09:30 ~ 09:45", "10:00"}

	tests := []struct {
		name     string
		entries  []string
		target   string
		expected string
		found    bool
	}{
		{
			name:     "Target inside a range returns the range",
			entries:  schedule,
			target:   "09:40",
			expected: "09:30 ~ 09:45",
			found:    true,
		},
		{
			name:     "Target between entries returns the next departure",
			entries:  schedule,
			target:   "09:46",
			expected: "10:00",
			found:    true,
		},
		{
			name:    "Target after the last departure finds nothing",
			entries: schedule,
			target:  "10:01",
			found:   false,
		},
		{
			name:     "Target before the first departure returns the first",
			entries:  schedule,
			target:   "06:00",
			expected: "09:00",
			found:    true,
		},
		{
			name:     "Exact single-time match",
			entries:  schedule,
			target:   "09:00",
			expected: "09:00",
			found:    true,
		},
		{
			name:     "Range boundaries are inclusive",
			entries:  schedule,
			target:   "09:45",
			expected: "09:30 ~ 09:45",
			found:    true,
		},
		{
			name:    "Empty schedule finds nothing",
			entries: nil,
			target:  "09:00",
			found:   false,
		},
		{
			name:     "Unsorted input is matched in time order",
			entries:  []string{"10:00", "09:00", "09:30 ~ 09:45"},
			target:   "09:10",
			expected: "09:30 ~ 09:45",
			found:    true,
		},
		{
			name:     "Malformed entries are skipped",
			entries:  []string{"24:99", "garbage", "10:00"},
			target:   "09:00",
			expected: "10:00",
			found:    true,
		},
		{
			name:    "Only malformed entries finds nothing",
			entries: []string{"not a time", "25:00"},
			target:  "09:00",
			found:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry, ok, err := NearestDeparture(tt.entries, tt.target)
			require.NoError(t, err)
			assert.Equal(t, tt.found, ok)
			if tt.found {
				assert.Equal(t, tt.expected, entry)
			}
		})
	}
}

func TestNearestDepartureRejectsMalformedTarget(t *testing.T) {
	for _, target := range []string{"", "banana", "9h30", "26:00", "09:61"} {
		_, _, err := NearestDeparture([]string{"09:00"}, target)
		assert.ErrorIs(t, err, ErrInvalidTime, "target %q", target)
	}
}

func TestClockMinutes(t *testing.T) {
	tests := []struct {
		input    string
		expected int
	}{
		{"00:00", 0},
		{"09:30", 570},
		{"23:59", 1439},
		{" 08:15 ", 495},
		{"24:00", -1},
		{"12:60", -1},
		{"-1:00", -1},
		{"0900", -1},
		{"", -1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, clockMinutes(tt.input), "input %q", tt.input)
	}
}

func TestEntryRange(t *testing.T) {
	tests := []struct {
		input string
		start int
		end   int
	}{
		{"09:30", 570, 570},
		{"09:30 ~ 09:45", 570, 585},
		{"09:30~09:45", 570, 585},
		{"09:30 ~ junk", -1, -1},
		{"junk", -1, -1},
	}
	for _, tt := range tests {
		start, end := entryRange(tt.input)
		assert.Equal(t, tt.start, start, "input %q", tt.input)
		assert.Equal(t, tt.end, end, "input %q", tt.input)
	}
}
