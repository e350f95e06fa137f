package service

import (
	"context"
	"time"

	"github.com/Ali-Herrera/tri-tracker/internal/domain"
	"github.com/Ali-Herrera/tri-tracker/internal/repository"
)

// WorkoutInput is a manually logged workout.
type WorkoutInput struct {
	Date      time.Time
	Sport     domain.Sport
	Duration  int
	Distance  float64
	Intensity int
}

// --- Service Interface ---
type WorkoutService interface {
	Log(ctx context.Context, userID string, in WorkoutInput) (*domain.Workout, error)
	List(ctx context.Context, userID string) ([]domain.Workout, error)
}

// --- Service Implementation ---

type workoutService struct {
	workouts *repository.WorkoutRepository
}

func NewWorkoutService(store repository.DocumentStore) WorkoutService {
	return &workoutService{workouts: repository.NewWorkoutRepository(store)}
}

// Log stores one workout. Its load is derived, never supplied.
func (s *workoutService) Log(ctx context.Context, userID string, in WorkoutInput) (*domain.Workout, error) {
	w := domain.NewWorkout(in.Date.UTC(), in.Sport, in.Duration, in.Distance, in.Intensity)
	if err := w.Validate(); err != nil {
		return nil, invalid(err)
	}
	if _, err := s.workouts.Create(ctx, userID, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

// List returns the user's workouts newest first.
func (s *workoutService) List(ctx context.Context, userID string) ([]domain.Workout, error) {
	return s.workouts.Recent(ctx, userID)
}
