package history

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Investigation outcomes.
const (
	StatusCompleted = "completed"
	StatusError     = "error"
)

// Record is one finished investigation.
type Record struct {
	QueryID    string
	Question   string
	SiteID     string
	Status     string // "completed" or "error"
	Answer     string
	Confidence float64
	Error      string
	Phases     int
	StartedAt  time.Time
	FinishedAt time.Time
}
