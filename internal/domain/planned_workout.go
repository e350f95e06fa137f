package domain

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// DateLayout is the calendar day format used by PlannedWorkout.Date.
const DateLayout = "2006-01-02"

var ErrInvalidPlannedWorkout = errors.New("invalid planned workout")

// PlannedWorkout is a session placed on the training calendar. Once completed it
// references the Workout (and optionally the AdaptationSession) derived from it;
// those records do not point back.
type PlannedWorkout struct {
	ID          string        `bson:"-" json:"id"`
	Date        string        `bson:"date" json:"date"`
	Sport       CalendarSport `bson:"sport" json:"sport"`
	Title       string        `bson:"title" json:"title"`
	Notes       string        `bson:"notes" json:"notes"`
	EasyMinutes int           `bson:"easyMinutes" json:"easyMinutes"`
	HardMinutes int           `bson:"hardMinutes" json:"hardMinutes"`
	Order       *int          `bson:"order,omitempty" json:"order,omitempty"`

	Completed           bool             `bson:"completed" json:"completed"`
	WorkoutDocID        string           `bson:"workoutDocId,omitempty" json:"workoutDocId,omitempty"`
	AdaptationDocID     string           `bson:"adaptationDocId,omitempty" json:"adaptationDocId,omitempty"`
	CompletedDistance   *float64         `bson:"completedDistance,omitempty" json:"completedDistance,omitempty"`
	CompletedDuration   *int             `bson:"completedDuration,omitempty" json:"completedDuration,omitempty"`
	CompletedIntensity  *int             `bson:"completedIntensity,omitempty" json:"completedIntensity,omitempty"`
	CompletedAdaptation *AdaptationInput `bson:"completedAdaptation,omitempty" json:"completedAdaptation,omitempty"`
}

// Validate checks the user editable fields.
func (p PlannedWorkout) Validate() error {
	if _, err := ParseDay(p.Date); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPlannedWorkout, err)
	}
	if !p.Sport.Valid() {
		return fmt.Errorf("%w: unknown sport %q", ErrInvalidPlannedWorkout, p.Sport)
	}
	if strings.TrimSpace(p.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidPlannedWorkout)
	}
	if p.EasyMinutes < 0 || p.HardMinutes < 0 {
		return fmt.Errorf("%w: minutes cannot be negative", ErrInvalidPlannedWorkout)
	}
	return nil
}

// TotalMinutes is the planned session length.
func (p PlannedWorkout) TotalMinutes() int {
	return p.EasyMinutes + p.HardMinutes
}

// DerivedIntensity estimates RPE from the easy/hard split: easy minutes count
// as 3, hard minutes as 8.
func DerivedIntensity(easyMinutes, hardMinutes int) int {
	total := easyMinutes + hardMinutes
	if total < 1 {
		total = 1
	}
	return int(math.Round(float64(easyMinutes*3+hardMinutes*8) / float64(total)))
}

// ParseDay parses a YYYY-MM-DD calendar day.
func ParseDay(day string) (time.Time, error) {
	t, err := time.Parse(DateLayout, day)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q is not YYYY-MM-DD", day)
	}
	return t, nil
}

// DayInstant is the instant stored on records derived from a calendar day:
// noon UTC, so the day survives any timezone shift of a reader.
func DayInstant(day string) (time.Time, error) {
	t, err := ParseDay(day)
	if err != nil {
		return time.Time{}, err
	}
	return t.Add(12 * time.Hour), nil
}
