package service

import (
	"context"
	"errors"
	"time"

	"github.com/Ali-Herrera/tri-tracker/internal/domain"
	"github.com/Ali-Herrera/tri-tracker/internal/repository"
)

// AdaptationSummary is the adaptation lab dashboard.
type AdaptationSummary struct {
	Sessions       int                       `json:"sessions"`
	Latest         *domain.AdaptationSession `json:"latest,omitempty"`
	Status         domain.AerobicStatus      `json:"status,omitempty"`
	Recommendation *domain.Recommendation    `json:"recommendation,omitempty"`
	FatigueAlert   bool                      `json:"fatigueAlert"`
	FatigueDrop    float64                   `json:"fatigueDrop"` // fraction, negative when below the recovery mean
}

// --- Service Interface ---
type AdaptationService interface {
	Log(ctx context.Context, userID string, date time.Time, in domain.AdaptationInput) (*domain.AdaptationSession, error)
	List(ctx context.Context, userID string) ([]domain.AdaptationSession, error)
	Delete(ctx context.Context, userID, id string) error
	Summary(ctx context.Context, userID string) (*AdaptationSummary, error)
}

// --- Service Implementation ---

type adaptationService struct {
	adaptations *repository.AdaptationRepository
}

func NewAdaptationService(store repository.DocumentStore) AdaptationService {
	return &adaptationService{adaptations: repository.NewAdaptationRepository(store)}
}

// Log derives EF from the raw input and stores the session.
func (s *adaptationService) Log(ctx context.Context, userID string, date time.Time, in domain.AdaptationInput) (*domain.AdaptationSession, error) {
	if date.IsZero() {
		return nil, invalid(errors.New("date is required"))
	}
	if err := in.Validate(); err != nil {
		return nil, invalid(err)
	}
	session := domain.NewAdaptationSession(date.UTC(), in)
	if _, err := s.adaptations.Create(ctx, userID, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// List returns sessions oldest first.
func (s *adaptationService) List(ctx context.Context, userID string) ([]domain.AdaptationSession, error) {
	return s.adaptations.Chronological(ctx, userID)
}

// Delete removes a session. A planned workout that still references it keeps
// the dangling ID until its completion is edited.
func (s *adaptationService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.adaptations.Get(ctx, userID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAdaptationNotFound
		}
		return err
	}
	return s.adaptations.Delete(ctx, userID, id)
}

func (s *adaptationService) Summary(ctx context.Context, userID string) (*AdaptationSummary, error) {
	sessions, err := s.adaptations.Chronological(ctx, userID)
	if err != nil {
		return nil, err
	}
	sum := &AdaptationSummary{Sessions: len(sessions)}
	if len(sessions) == 0 {
		return sum, nil
	}

	latest := sessions[len(sessions)-1]
	rec := domain.RecommendationFor(latest)
	sum.Latest = &latest
	sum.Status = latest.Status()
	sum.Recommendation = &rec
	sum.FatigueAlert, sum.FatigueDrop = domain.FatigueAlert(sessions)
	sum.FatigueDrop = domain.RoundTo(sum.FatigueDrop, 4)
	return sum, nil
}
