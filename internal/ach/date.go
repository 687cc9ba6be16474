package ach

import (
	"fmt"
	"time"
)

const DateLayout = "2006-01-02"

// DateOf drops the time of day, keeping the calendar date t has in its own
// location. The result is midnight UTC so dates compare with Equal/Before.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses an ISO calendar date (YYYY-MM-DD).
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}
