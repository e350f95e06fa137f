package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/Ali-Herrera/tri-tracker/internal/calendar"
	"github.com/Ali-Herrera/tri-tracker/internal/domain"
	"github.com/Ali-Herrera/tri-tracker/internal/events"
	"github.com/Ali-Herrera/tri-tracker/internal/observability"
	"github.com/Ali-Herrera/tri-tracker/internal/repository"
)

// DeletePolicy decides what happens to the records derived from a completed
// planned workout when it is deleted.
type DeletePolicy string

const (
	DeleteOrphan  DeletePolicy = "orphan"  // keep Workout and AdaptationSession as history
	DeleteCascade DeletePolicy = "cascade" // delete them first
)

func ParseDeletePolicy(v string) (DeletePolicy, error) {
	switch p := DeletePolicy(strings.ToLower(strings.TrimSpace(v))); p {
	case "", DeleteOrphan:
		return DeleteOrphan, nil
	case DeleteCascade:
		return DeleteCascade, nil
	default:
		return "", fmt.Errorf("unknown delete policy %q", v)
	}
}

// PlannedWorkoutInput holds the user editable fields of a planned workout.
type PlannedWorkoutInput struct {
	Date        string
	Sport       domain.CalendarSport
	Title       string
	Notes       string
	EasyMinutes int
	HardMinutes int
}

// CompletionInput overrides the values derived from the plan. Nil fields fall
// back to the plan: total minutes for duration, the easy/hard split for
// intensity and zero distance. A nil Adaptation means no adaptation data.
type CompletionInput struct {
	Distance   *float64
	Duration   *int
	Intensity  *int
	Adaptation *domain.AdaptationInput
}

// MoveRequest describes one drop on the calendar. A nil Target is a drop
// outside any day and writes nothing.
type MoveRequest struct {
	WorkoutID  string
	SourceDate string // looked up when empty
	Target     *calendar.DropTarget
}

// MoveResult lists the positions written by a move.
type MoveResult struct {
	Kind    calendar.MoveKind `json:"kind,omitempty"`
	Patches []calendar.Patch  `json:"patches"`
}

// --- Service Interface ---
type CalendarService interface {
	List(ctx context.Context, userID, from, to string) ([]domain.PlannedWorkout, error)
	Get(ctx context.Context, userID, id string) (*domain.PlannedWorkout, error)
	Create(ctx context.Context, userID string, in PlannedWorkoutInput) (*domain.PlannedWorkout, error)
	Update(ctx context.Context, userID, id string, in PlannedWorkoutInput) (*domain.PlannedWorkout, error)
	Copy(ctx context.Context, userID, id, date string) (*domain.PlannedWorkout, error)
	Delete(ctx context.Context, userID, id string) error
	Move(ctx context.Context, userID string, req MoveRequest) (*MoveResult, error)

	// Complete marks a planned workout done, or edits its completion when it
	// already references a Workout.
	Complete(ctx context.Context, userID, id string, in CompletionInput) (*domain.PlannedWorkout, error)
	CompleteFirstTime(ctx context.Context, userID, id string, in CompletionInput) (*domain.PlannedWorkout, error)
	UpdateCompleted(ctx context.Context, userID, id string, in CompletionInput) (*domain.PlannedWorkout, error)
}

// --- Service Implementation ---

type calendarService struct {
	store       repository.DocumentStore
	planned     *repository.PlannedWorkoutRepository
	workouts    *repository.WorkoutRepository
	adaptations *repository.AdaptationRepository
	publisher   events.Publisher
	policy      DeletePolicy
}

// NewCalendarService creates the calendar service on top of store.
func NewCalendarService(store repository.DocumentStore, publisher events.Publisher, policy DeletePolicy) CalendarService {
	if policy == "" {
		policy = DeleteOrphan
	}
	return &calendarService{
		store:       store,
		planned:     repository.NewPlannedWorkoutRepository(store),
		workouts:    repository.NewWorkoutRepository(store),
		adaptations: repository.NewAdaptationRepository(store),
		publisher:   publisher,
		policy:      policy,
	}
}

func (in PlannedWorkoutInput) apply(p *domain.PlannedWorkout) {
	p.Date = strings.TrimSpace(in.Date)
	p.Sport = in.Sport
	p.Title = strings.TrimSpace(in.Title)
	p.Notes = in.Notes
	p.EasyMinutes = in.EasyMinutes
	p.HardMinutes = in.HardMinutes
}

func (s *calendarService) get(ctx context.Context, userID, id string) (*domain.PlannedWorkout, error) {
	p, err := s.planned.Get(ctx, userID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPlannedWorkoutNotFound
		}
		return nil, err
	}
	return p, nil
}

// List returns the planned workouts for days in [from, to], by date and then
// in display order. Empty bounds are open.
func (s *calendarService) List(ctx context.Context, userID, from, to string) ([]domain.PlannedWorkout, error) {
	for _, d := range []string{from, to} {
		if d == "" {
			continue
		}
		if _, err := domain.ParseDay(d); err != nil {
			return nil, invalid(err)
		}
	}
	items, err := s.planned.Between(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}

	// Items arrive grouped by date; sort each day's run.
	out := make([]domain.PlannedWorkout, 0, len(items))
	for start := 0; start < len(items); {
		end := start
		for end < len(items) && items[end].Date == items[start].Date {
			end++
		}
		out = append(out, calendar.SortForDate(items[start:end])...)
		start = end
	}
	return out, nil
}

func (s *calendarService) Get(ctx context.Context, userID, id string) (*domain.PlannedWorkout, error) {
	return s.get(ctx, userID, id)
}

// nextOrder is the position for an item appended to day.
func (s *calendarService) nextOrder(ctx context.Context, userID, day string) (int, error) {
	items, err := s.planned.ForDate(ctx, userID, day)
	if err != nil {
		return 0, err
	}
	return calendar.NextOrderValue(items), nil
}

// Create appends a planned workout to the end of its day.
func (s *calendarService) Create(ctx context.Context, userID string, in PlannedWorkoutInput) (*domain.PlannedWorkout, error) {
	p := &domain.PlannedWorkout{}
	in.apply(p)
	if err := p.Validate(); err != nil {
		return nil, invalid(err)
	}

	order, err := s.nextOrder(ctx, userID, p.Date)
	if err != nil {
		return nil, err
	}
	p.Order = &order

	if _, err := s.planned.Create(ctx, userID, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Update edits the plan fields. Completion data is kept. Moving the workout to
// another day appends it at the end of that day.
func (s *calendarService) Update(ctx context.Context, userID, id string, in PlannedWorkoutInput) (*domain.PlannedWorkout, error) {
	p, err := s.get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	prevDate := p.Date
	in.apply(p)
	if err := p.Validate(); err != nil {
		return nil, invalid(err)
	}

	patch := repository.Fields{
		"date":        p.Date,
		"sport":       string(p.Sport),
		"title":       p.Title,
		"notes":       p.Notes,
		"easyMinutes": p.EasyMinutes,
		"hardMinutes": p.HardMinutes,
	}
	if p.Date != prevDate {
		order, err := s.nextOrder(ctx, userID, p.Date)
		if err != nil {
			return nil, err
		}
		p.Order = &order
		patch["order"] = order
	}

	if err := s.planned.Update(ctx, userID, id, patch); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPlannedWorkoutNotFound
		}
		return nil, err
	}
	return p, nil
}

// Copy duplicates the plan of a workout onto date (its own day when empty),
// appended at the end. The copy is not completed.
func (s *calendarService) Copy(ctx context.Context, userID, id, date string) (*domain.PlannedWorkout, error) {
	src, err := s.get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if date == "" {
		date = src.Date
	}
	return s.Create(ctx, userID, PlannedWorkoutInput{
		Date:        date,
		Sport:       src.Sport,
		Title:       src.Title,
		Notes:       src.Notes,
		EasyMinutes: src.EasyMinutes,
		HardMinutes: src.HardMinutes,
	})
}

// Delete removes a planned workout. Under the cascade policy the derived
// records are deleted before the planned workout.
func (s *calendarService) Delete(ctx context.Context, userID, id string) error {
	ctx = context.WithoutCancel(ctx)

	p, err := s.get(ctx, userID, id)
	if err != nil {
		return err
	}

	if s.policy == DeleteCascade {
		if p.AdaptationDocID != "" {
			if err := s.adaptations.Delete(ctx, userID, p.AdaptationDocID); err != nil {
				return fmt.Errorf("delete adaptation %s: %w", p.AdaptationDocID, err)
			}
		}
		if p.WorkoutDocID != "" {
			if err := s.workouts.Delete(ctx, userID, p.WorkoutDocID); err != nil {
				return fmt.Errorf("delete workout %s: %w", p.WorkoutDocID, err)
			}
		}
	}

	if err := s.planned.Delete(ctx, userID, id); err != nil {
		return err
	}
	log.Printf("INFO: Planned workout %s deleted for user %s (policy %s)", id, userID, s.policy)
	return nil
}

// Move applies one drag-and-drop gesture. Positions are read fresh for the
// source and target days, the patch set is computed by a drag controller and
// committed as one atomic batch.
func (s *calendarService) Move(ctx context.Context, userID string, req MoveRequest) (*MoveResult, error) {
	if req.WorkoutID == "" {
		return nil, invalid(errors.New("workout id is required"))
	}
	// 1. Resolve the source day
	if req.SourceDate == "" {
		p, err := s.get(ctx, userID, req.WorkoutID)
		if err != nil {
			return nil, err
		}
		req.SourceDate = p.Date
	}
	if req.Target != nil {
		if req.Target.Kind != calendar.DropDay && req.Target.Kind != calendar.DropWorkout {
			return nil, invalid(fmt.Errorf("unknown drop target %q", req.Target.Kind))
		}
		if _, err := domain.ParseDay(req.Target.Date); err != nil {
			return nil, invalid(err)
		}
	}

	// 2. Snapshot both days
	items, err := s.planned.ForDate(ctx, userID, req.SourceDate)
	if err != nil {
		return nil, err
	}
	if req.Target != nil && req.Target.Date != req.SourceDate {
		dest, err := s.planned.ForDate(ctx, userID, req.Target.Date)
		if err != nil {
			return nil, err
		}
		items = append(items, dest...)
	}
	board := calendar.NewBoard(items)

	// 3. Drive the drag and commit
	ctrl := calendar.NewDragController(board, &calendar.StoreCommitter{Store: s.store, UserID: userID})
	if err := ctrl.DragStart(req.WorkoutID, req.SourceDate); err != nil {
		return nil, err
	}
	patches, kind, err := ctrl.DragEnd(ctx, req.Target)
	if kind != "" {
		observability.RecordReorder(string(kind), err == nil)
	}
	if err != nil {
		if errors.Is(err, calendar.ErrItemNotFound) {
			return nil, ErrPlannedWorkoutNotFound
		}
		log.Printf("ERROR: Reorder of %s for user %s failed: %v", req.WorkoutID, userID, err)
		return nil, err
	}

	res := &MoveResult{Kind: kind, Patches: patches}
	if res.Patches == nil {
		res.Patches = []calendar.Patch{}
	}
	if len(patches) > 0 {
		events.Emit(ctx, s.publisher, events.TypeCalendarReordered, userID, res)
	}
	return res, nil
}

// --- Completion ---

// completion is the resolved outcome of a CompletionInput.
type completion struct {
	workout    domain.Workout
	adaptation *domain.AdaptationInput
	distance   float64
	duration   int
	intensity  int
}

func resolveCompletion(p *domain.PlannedWorkout, in CompletionInput) (*completion, error) {
	date, err := domain.DayInstant(p.Date)
	if err != nil {
		return nil, invalid(err)
	}

	c := &completion{duration: p.TotalMinutes()}
	if in.Duration != nil {
		c.duration = *in.Duration
	}
	if c.duration < 1 {
		return nil, invalid(errors.New("duration must be at least 1 minute"))
	}

	c.intensity = domain.ClampIntensity(domain.DerivedIntensity(p.EasyMinutes, p.HardMinutes))
	if in.Intensity != nil {
		c.intensity = *in.Intensity
	}

	if in.Distance != nil {
		c.distance = *in.Distance
	}
	if c.distance < 0 {
		return nil, invalid(errors.New("distance cannot be negative"))
	}

	if in.Adaptation != nil {
		discipline, ok := p.Sport.Discipline()
		if !ok {
			return nil, fmt.Errorf("%w: %w", ErrValidationFailed, ErrAdaptationNotAllowed)
		}
		a := *in.Adaptation
		if a.Discipline == "" {
			a.Discipline = discipline
		}
		if err := a.Validate(); err != nil {
			return nil, invalid(err)
		}
		c.adaptation = &a
	}

	c.workout = domain.NewWorkout(date, p.Sport.WorkoutSport(), c.duration, c.distance, c.intensity)
	if err := c.workout.Validate(); err != nil {
		return nil, invalid(err)
	}
	return c, nil
}

// snapshot is the completion-input patch written last on the planned workout.
func (c *completion) snapshot(workoutID, adaptationID string) repository.Fields {
	f := repository.Fields{
		"completed":           true,
		"workoutDocId":        workoutID,
		"completedDistance":   c.distance,
		"completedDuration":   c.duration,
		"completedIntensity":  c.intensity,
		"completedAdaptation": nil,
		"adaptationDocId":     nil,
	}
	if c.adaptation != nil {
		f["completedAdaptation"] = *c.adaptation
	}
	if adaptationID != "" {
		f["adaptationDocId"] = adaptationID
	}
	return f
}

func (s *calendarService) Complete(ctx context.Context, userID, id string, in CompletionInput) (*domain.PlannedWorkout, error) {
	p, err := s.get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if p.WorkoutDocID != "" {
		return s.updateCompleted(ctx, userID, p, in)
	}
	return s.completeFirstTime(ctx, userID, p, in)
}

func (s *calendarService) CompleteFirstTime(ctx context.Context, userID, id string, in CompletionInput) (*domain.PlannedWorkout, error) {
	p, err := s.get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if p.WorkoutDocID != "" {
		return nil, ErrAlreadyCompleted
	}
	return s.completeFirstTime(ctx, userID, p, in)
}

func (s *calendarService) UpdateCompleted(ctx context.Context, userID, id string, in CompletionInput) (*domain.PlannedWorkout, error) {
	p, err := s.get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if p.WorkoutDocID == "" {
		return nil, ErrNotCompleted
	}
	return s.updateCompleted(ctx, userID, p, in)
}

// completeFirstTime writes Workout, then AdaptationSession, then the planned
// workout. The planned workout only references records that already exist.
func (s *calendarService) completeFirstTime(ctx context.Context, userID string, p *domain.PlannedWorkout, in CompletionInput) (*domain.PlannedWorkout, error) {
	c, err := resolveCompletion(p, in)
	if err != nil {
		return nil, err
	}
	ctx = context.WithoutCancel(ctx)

	// 1. Create the workout
	workoutID, err := s.workouts.Create(ctx, userID, &c.workout)
	if err != nil {
		log.Printf("ERROR: Completing %s for user %s: workout not created: %v", p.ID, userID, err)
		return nil, syncFailed(StepCreateWorkout, "", "", err)
	}

	// 2. Create the adaptation session, if any
	adaptationID := ""
	if c.adaptation != nil {
		session := domain.NewAdaptationSession(c.workout.Date, *c.adaptation)
		adaptationID, err = s.adaptations.Create(ctx, userID, &session)
		if err != nil {
			log.Printf("ERROR: Completing %s for user %s: adaptation not created, workout %s kept: %v", p.ID, userID, workoutID, err)
			return nil, syncFailed(StepCreateAdaptation, workoutID, "", err)
		}
	}

	// 3. Mark the planned workout completed
	if err := s.planned.Update(ctx, userID, p.ID, c.snapshot(workoutID, adaptationID)); err != nil {
		log.Printf("ERROR: Completing %s for user %s: planned workout not patched (workout %s): %v", p.ID, userID, workoutID, err)
		return nil, syncFailed(StepPatchPlanned, workoutID, adaptationID, err)
	}

	s.applySnapshot(p, c, workoutID, adaptationID)
	events.Emit(ctx, s.publisher, events.TypeWorkoutCompleted, userID, p)
	return p, nil
}

// updateCompleted overwrites the existing Workout in place and reconciles the
// adaptation: overwrite it, create it, or delete it. The planned workout is
// patched last.
func (s *calendarService) updateCompleted(ctx context.Context, userID string, p *domain.PlannedWorkout, in CompletionInput) (*domain.PlannedWorkout, error) {
	c, err := resolveCompletion(p, in)
	if err != nil {
		return nil, err
	}
	ctx = context.WithoutCancel(ctx)
	workoutID := p.WorkoutDocID

	// 1. Overwrite the workout
	if err := s.workouts.Overwrite(ctx, userID, workoutID, &c.workout); err != nil {
		return nil, syncFailed(StepUpdateWorkout, workoutID, p.AdaptationDocID, err)
	}

	// 2. Reconcile the adaptation session
	adaptationID := p.AdaptationDocID
	switch {
	case c.adaptation != nil && adaptationID != "":
		session := domain.NewAdaptationSession(c.workout.Date, *c.adaptation)
		if err := s.adaptations.Overwrite(ctx, userID, adaptationID, &session); err != nil {
			return nil, syncFailed(StepUpdateAdaptation, workoutID, adaptationID, err)
		}
	case c.adaptation != nil:
		session := domain.NewAdaptationSession(c.workout.Date, *c.adaptation)
		adaptationID, err = s.adaptations.Create(ctx, userID, &session)
		if err != nil {
			return nil, syncFailed(StepCreateAdaptation, workoutID, "", err)
		}
	case adaptationID != "":
		if err := s.adaptations.Delete(ctx, userID, adaptationID); err != nil {
			return nil, syncFailed(StepDeleteAdaptation, workoutID, adaptationID, err)
		}
		adaptationID = ""
	}

	// 3. Patch the completion snapshot
	if err := s.planned.Update(ctx, userID, p.ID, c.snapshot(workoutID, adaptationID)); err != nil {
		log.Printf("ERROR: Updating completion of %s for user %s: planned workout not patched: %v", p.ID, userID, err)
		return nil, syncFailed(StepPatchPlanned, workoutID, adaptationID, err)
	}

	s.applySnapshot(p, c, workoutID, adaptationID)
	return p, nil
}

func (s *calendarService) applySnapshot(p *domain.PlannedWorkout, c *completion, workoutID, adaptationID string) {
	p.Completed = true
	p.WorkoutDocID = workoutID
	p.AdaptationDocID = adaptationID
	distance, duration, intensity := c.distance, c.duration, c.intensity
	p.CompletedDistance = &distance
	p.CompletedDuration = &duration
	p.CompletedIntensity = &intensity
	p.CompletedAdaptation = c.adaptation
}
