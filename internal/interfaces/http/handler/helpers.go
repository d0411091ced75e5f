package handler

import (
	"time"
)

// parseDateParam parses a YYYY-MM-DD query parameter. The second return
// value is false when the parameter is empty or malformed.
func parseDateParam(value string) (*time.Time, bool) {
	if value == "" {
		return nil, false
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, false
	}
	return &t, true
}
