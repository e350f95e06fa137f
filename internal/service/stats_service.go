package service

import (
	"context"
	"time"

	"github.com/Ali-Herrera/tri-tracker/internal/domain"
	"github.com/Ali-Herrera/tri-tracker/internal/repository"
)

// StatsSummary is the dashboard view of a user's training history.
type StatsSummary struct {
	Year     int                     `json:"year"`
	Season   domain.Totals           `json:"season"`
	Lifetime domain.Totals           `json:"lifetime"`
	Load     domain.WeeklyLoadReport `json:"load"`
	Volume   []domain.WeekVolume     `json:"volume"`
}

// --- Service Interface ---
type StatsService interface {
	// Summary computes totals for year (the current year when 0) and the
	// weekly reports as of now.
	Summary(ctx context.Context, userID string, year int) (*StatsSummary, error)
}

// --- Service Implementation ---

type statsService struct {
	workouts *repository.WorkoutRepository
	now      func() time.Time
}

func NewStatsService(store repository.DocumentStore, now func() time.Time) StatsService {
	if now == nil {
		now = time.Now
	}
	return &statsService{workouts: repository.NewWorkoutRepository(store), now: now}
}

func (s *statsService) Summary(ctx context.Context, userID string, year int) (*StatsSummary, error) {
	now := s.now()
	if year == 0 {
		year = now.Year()
	}
	workouts, err := s.workouts.Recent(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &StatsSummary{
		Year:     year,
		Season:   domain.SeasonTotals(workouts, year),
		Lifetime: domain.LifetimeTotals(workouts),
		Load:     domain.LoadReport(workouts, now),
		Volume:   domain.WeeklyVolume(workouts),
	}, nil
}
