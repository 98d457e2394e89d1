package utils

import "time"

// EpochMs normalizes a time to UTC epoch milliseconds. All stored
// timestamps and all price-window comparisons use this representation.
func EpochMs(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

// AbsDeltaMs returns the absolute distance between two epoch-ms timestamps.
func AbsDeltaMs(a, b int64) int64 {
	if a > b {
		return a - b
	}
	return b - a
}
