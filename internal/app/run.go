package app

import (
	"time"

	"github.com/google/uuid"
)

// Run identifies one CLI invocation. Its ID tags every log line written
// during the invocation.
type Run struct {
	ID        string
	Command   string
	StartedAt time.Time
}

// NewRun creates a Run for command starting at now.
func NewRun(command string, now time.Time) *Run {
	return &Run{
		ID:        now.UTC().Format("20060102T150405Z") + "-" + uuid.New().String()[:8],
		Command:   command,
		StartedAt: now.UTC(),
	}
}

// Elapsed returns the time since the run started.
func (r *Run) Elapsed(now time.Time) time.Duration {
	return now.Sub(r.StartedAt)
}
