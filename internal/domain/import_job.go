package domain

import "time"

// ImportStatus tracks the lifecycle of one bulk CSV import.
type ImportStatus string

const (
	ImportRunning   ImportStatus = "running"
	ImportCompleted ImportStatus = "completed"
	ImportPartial   ImportStatus = "partial" // some chunks committed, then a chunk failed
	ImportFailed    ImportStatus = "failed"  // nothing committed
)

// ImportJob records what a bulk import wrote. Workouts written by the job carry
// its ID in Workout.ImportID.
type ImportJob struct {
	ID          string       `bson:"-" json:"id"`
	Fingerprint string       `bson:"fingerprint" json:"fingerprint"`
	Source      string       `bson:"source,omitempty" json:"source,omitempty"`
	Total       int          `bson:"total" json:"total"`
	Committed   int          `bson:"committed" json:"committed"`
	Skipped     int          `bson:"skipped" json:"skipped"`
	Status      ImportStatus `bson:"status" json:"status"`
	Error       string       `bson:"error,omitempty" json:"error,omitempty"`
	StartedAt   time.Time    `bson:"startedAt" json:"startedAt"`
	FinishedAt  *time.Time   `bson:"finishedAt,omitempty" json:"finishedAt,omitempty"`
}
