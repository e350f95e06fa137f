package domain

import (
	"errors"
	"fmt"
	"time"
)

// Intensity bounds (RPE scale).
const (
	MinIntensity = 1
	MaxIntensity = 10
)

var ErrInvalidWorkout = errors.New("invalid workout")

// Workout is a completed activity. It is written as one complete record,
// either by manual logging, by CSV import or by completing a PlannedWorkout.
type Workout struct {
	ID        string    `bson:"-" json:"id"`
	Date      time.Time `bson:"date" json:"date"`
	Sport     Sport     `bson:"sport" json:"sport"`
	Duration  int       `bson:"duration" json:"duration"`   // minutes
	Distance  float64   `bson:"distance" json:"distance"`   // yards for Swim, miles for Bike/Run
	Intensity int       `bson:"intensity" json:"intensity"` // 1-10
	Load      int       `bson:"load" json:"load"`
	ImportID  string    `bson:"importId,omitempty" json:"importId,omitempty"`
}

// NewWorkout builds a Workout with its derived training load.
func NewWorkout(date time.Time, sport Sport, duration int, distance float64, intensity int) Workout {
	if !sport.HasDistance() {
		distance = 0
	}
	return Workout{
		Date:      date,
		Sport:     sport,
		Duration:  duration,
		Distance:  distance,
		Intensity: intensity,
		Load:      duration * intensity,
	}
}

// Validate checks the record invariants before it is persisted.
func (w Workout) Validate() error {
	if !w.Sport.Valid() {
		return fmt.Errorf("%w: unknown sport %q", ErrInvalidWorkout, w.Sport)
	}
	if w.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrInvalidWorkout)
	}
	if w.Duration < 1 {
		return fmt.Errorf("%w: duration must be at least 1 minute", ErrInvalidWorkout)
	}
	if w.Intensity < MinIntensity || w.Intensity > MaxIntensity {
		return fmt.Errorf("%w: intensity must be between %d and %d", ErrInvalidWorkout, MinIntensity, MaxIntensity)
	}
	if w.Distance < 0 {
		return fmt.Errorf("%w: distance cannot be negative", ErrInvalidWorkout)
	}
	if w.Load != w.Duration*w.Intensity {
		return fmt.Errorf("%w: load must equal duration x intensity", ErrInvalidWorkout)
	}
	return nil
}

// ClampIntensity forces v into the 1-10 RPE range.
func ClampIntensity(v int) int {
	if v < MinIntensity {
		return MinIntensity
	}
	if v > MaxIntensity {
		return MaxIntensity
	}
	return v
}
