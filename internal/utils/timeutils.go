package utils

import (
	"fmt"
	"time"

	"github.com/hako/durafmt"
)

// ParseRFC3339 returns a time from the provided string or an error.
func ParseRFC3339(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("empty time value")
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time: %w", err)
	}
	return t, nil
}

// HumanDuration renders a duration in at most two units, e.g. "2 hours 13 minutes".
func HumanDuration(d time.Duration) string {
	if d <= 0 {
		return "0 seconds"
	}
	return durafmt.Parse(d).LimitFirstN(2).String()
}

// Ago renders how long ago t was in human terms.
func Ago(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	d := time.Since(t)
	if d < time.Second {
		return "just now"
	}
	return HumanDuration(d) + " ago"
}
