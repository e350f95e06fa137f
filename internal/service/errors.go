package service

import (
	"errors"
	"fmt"

	"github.com/Ali-Herrera/tri-tracker/internal/observability"
)

// --- Error Definitions ---
var (
	ErrValidationFailed       = errors.New("validation failed")
	ErrPlannedWorkoutNotFound = errors.New("planned workout not found")
	ErrWorkoutNotFound        = errors.New("workout not found")
	ErrAdaptationNotFound     = errors.New("adaptation session not found")
	ErrImportNotFound         = errors.New("import not found")
	ErrNotCompleted           = errors.New("planned workout has not been completed yet")
	ErrAlreadyCompleted       = errors.New("planned workout is already completed")
	ErrAdaptationNotAllowed   = errors.New("lift and other sessions do not record adaptation data")
	ErrDuplicateImport        = errors.New("this batch of workouts was already imported")
)

func invalid(err error) error {
	return fmt.Errorf("%w: %v", ErrValidationFailed, err)
}

// SyncStep names one write of the completion sequence.
type SyncStep string

const (
	StepCreateWorkout    SyncStep = "create_workout"
	StepCreateAdaptation SyncStep = "create_adaptation"
	StepUpdateWorkout    SyncStep = "update_workout"
	StepUpdateAdaptation SyncStep = "update_adaptation"
	StepDeleteAdaptation SyncStep = "delete_adaptation"
	StepPatchPlanned     SyncStep = "patch_planned_workout"
)

// SyncError reports the completion write that failed. Writes before it stay
// applied; the IDs tell the caller what already exists. Re-running the update
// path repairs the planned workout.
type SyncError struct {
	Step         SyncStep
	WorkoutID    string
	AdaptationID string
	Err          error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("completion sync stopped at %s: %v", e.Step, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

func syncFailed(step SyncStep, workoutID, adaptationID string, err error) error {
	observability.RecordCompletionSyncFailure(string(step))
	return &SyncError{Step: step, WorkoutID: workoutID, AdaptationID: adaptationID, Err: err}
}
