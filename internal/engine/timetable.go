package engine

import (
	"sort"
	"strconv"
	"strings"
)

// A schedule entry is either a single "HH:MM" time or a closed range
// "HH:MM ~ HH:MM". Matching works on minute-of-day values; entries that fail
// to parse sort last and never match.

// clockMinutes parses "HH:MM" into minutes since midnight, or -1 when the
// string is malformed.
func clockMinutes(s string) int {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return -1
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return -1
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return -1
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return -1
	}
	return h*60 + m
}

// entryRange parses a schedule entry into its closed [start, end] minute
// range. A single time is the degenerate range [t, t]. Malformed entries
// yield (-1, -1).
func entryRange(entry string) (start, end int) {
	entry = strings.TrimSpace(entry)
	if before, after, found := strings.Cut(entry, "~"); found {
		start = clockMinutes(before)
		end = clockMinutes(after)
		if start < 0 || end < 0 {
			return -1, -1
		}
		return start, end
	}
	m := clockMinutes(entry)
	if m < 0 {
		return -1, -1
	}
	return m, m
}

// NearestDeparture resolves a target time against schedule entries: the first
// entry whose range contains the target wins, else the first entry starting
// at or after it. Returns ok=false when the target is after the last
// departure or the schedule is empty. A malformed target is an InvalidInput
// error, distinct from "no schedule".
func NearestDeparture(entries []string, target string) (string, bool, error) {
	if len(entries) == 0 {
		return "", false, nil
	}
	targetMinute := clockMinutes(target)
	if targetMinute < 0 {
		return "", false, ErrInvalidTime
	}

	ordered := make([]string, len(entries))
	copy(ordered, entries)
	sort.SliceStable(ordered, func(i, j int) bool {
		si, _ := entryRange(ordered[i])
		sj, _ := entryRange(ordered[j])
		if si < 0 {
			si = 1<<31 - 1
		}
		if sj < 0 {
			sj = 1<<31 - 1
		}
		return si < sj
	})

	for _, entry := range ordered {
		start, end := entryRange(entry)
		if start < 0 {
			continue
		}
		if start <= targetMinute && targetMinute <= end {
			return entry, true, nil
		}
		if start >= targetMinute {
			return entry, true, nil
		}
	}
	return "", false, nil
}
