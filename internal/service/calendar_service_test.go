package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Ali-Herrera/tri-tracker/internal/calendar"
	"github.com/Ali-Herrera/tri-tracker/internal/domain"
	"github.com/Ali-Herrera/tri-tracker/internal/repository"
	"github.com/Ali-Herrera/tri-tracker/internal/repository/memory"
)

var errWriteRejected = errors.New("write rejected")

// faultyStore rejects writes to chosen collections and, optionally, the
// commit with a given zero based index.
type faultyStore struct {
	*memory.Store
	failAdd      map[repository.Collection]bool
	failUpdate   map[repository.Collection]bool
	failCommitAt int
	commits      int
}

func newFaultyStore() *faultyStore {
	return &faultyStore{
		Store:        memory.New(),
		failAdd:      map[repository.Collection]bool{},
		failUpdate:   map[repository.Collection]bool{},
		failCommitAt: -1,
	}
}

func (f *faultyStore) Add(ctx context.Context, userID string, c repository.Collection, fields repository.Fields) (string, error) {
	if f.failAdd[c] {
		return "", errWriteRejected
	}
	return f.Store.Add(ctx, userID, c, fields)
}

func (f *faultyStore) Update(ctx context.Context, userID string, c repository.Collection, id string, patch repository.Fields) error {
	if f.failUpdate[c] {
		return errWriteRejected
	}
	return f.Store.Update(ctx, userID, c, id, patch)
}

func (f *faultyStore) Commit(ctx context.Context, userID string, b *repository.Batch) error {
	n := f.commits
	f.commits++
	if n == f.failCommitAt {
		return errWriteRejected
	}
	return f.Store.Commit(ctx, userID, b)
}

func intp(v int) *int           { return &v }
func floatp(v float64) *float64 { return &v }

const user = "athlete-1"

func plan(t *testing.T, svc CalendarService, date string, sport domain.CalendarSport, title string, easy, hard int) *domain.PlannedWorkout {
	t.Helper()
	p, err := svc.Create(context.Background(), user, PlannedWorkoutInput{
		Date: date, Sport: sport, Title: title, EasyMinutes: easy, HardMinutes: hard,
	})
	require.NoError(t, err)
	return p
}

func bikeAdaptation(power, hr float64) *domain.AdaptationInput {
	return &domain.AdaptationInput{Type: "Pure Aerobic (Recovery)", AvgHR: hr, Drift: 3.2, AvgPower: floatp(power)}
}

func TestCreateAppendsAndListSortsByDay(t *testing.T) {
	ctx := context.Background()
	svc := NewCalendarService(memory.New(), nil, DeleteOrphan)

	a := plan(t, svc, "2024-03-02", domain.CalendarRun, "Long run", 60, 0)
	b := plan(t, svc, "2024-03-01", domain.CalendarSwim, "Drills", 30, 0)
	c := plan(t, svc, "2024-03-01", domain.CalendarBike, "Tempo", 40, 20)
	require.Equal(t, 0, *a.Order)
	require.Equal(t, 0, *b.Order)
	require.Equal(t, 1, *c.Order)

	items, err := svc.List(ctx, user, "2024-03-01", "2024-03-31")
	require.NoError(t, err)
	require.Equal(t, []string{b.ID, c.ID, a.ID}, []string{items[0].ID, items[1].ID, items[2].ID})

	// Moving to another day appends at its end.
	moved, err := svc.Update(ctx, user, c.ID, PlannedWorkoutInput{
		Date: "2024-03-02", Sport: domain.CalendarBike, Title: "Tempo", EasyMinutes: 40, HardMinutes: 20,
	})
	require.NoError(t, err)
	require.Equal(t, 1, *moved.Order)

	cp, err := svc.Copy(ctx, user, a.ID, "")
	require.NoError(t, err)
	require.Equal(t, "2024-03-02", cp.Date)
	require.Equal(t, 2, *cp.Order)
	require.False(t, cp.Completed)

	_, err = svc.Create(ctx, user, PlannedWorkoutInput{Date: "03/01/2024", Sport: domain.CalendarRun, Title: "x"})
	require.ErrorIs(t, err, ErrValidationFailed)
	_, err = svc.Update(ctx, user, "missing", PlannedWorkoutInput{Date: "2024-03-01", Sport: domain.CalendarRun, Title: "x"})
	require.ErrorIs(t, err, ErrPlannedWorkoutNotFound)
}

func TestMoveWritesContiguousOrder(t *testing.T) {
	ctx := context.Background()
	svc := NewCalendarService(memory.New(), nil, DeleteOrphan)

	b := plan(t, svc, "2024-03-01", domain.CalendarSwim, "Drills", 30, 0)
	c := plan(t, svc, "2024-03-01", domain.CalendarBike, "Tempo", 40, 20)
	d := plan(t, svc, "2024-03-02", domain.CalendarRun, "Easy", 30, 0)

	res, err := svc.Move(ctx, user, MoveRequest{
		WorkoutID: c.ID,
		Target:    &calendar.DropTarget{Kind: calendar.DropWorkout, Date: "2024-03-01", WorkoutID: b.ID},
	})
	require.NoError(t, err)
	require.Equal(t, calendar.MoveWithinDay, res.Kind)

	res, err = svc.Move(ctx, user, MoveRequest{
		WorkoutID:  b.ID,
		SourceDate: "2024-03-01",
		Target:     &calendar.DropTarget{Kind: calendar.DropDay, Date: "2024-03-02"},
	})
	require.NoError(t, err)
	require.Equal(t, calendar.MoveAcrossDays, res.Kind)

	items, err := svc.List(ctx, user, "", "")
	require.NoError(t, err)
	require.NoError(t, calendar.VerifyOrdering(items))
	require.Equal(t, []string{c.ID, d.ID, b.ID}, []string{items[0].ID, items[1].ID, items[2].ID})

	// A drop outside any day writes nothing.
	res, err = svc.Move(ctx, user, MoveRequest{WorkoutID: c.ID})
	require.NoError(t, err)
	require.Empty(t, res.Patches)

	_, err = svc.Move(ctx, user, MoveRequest{WorkoutID: "gone", SourceDate: "2024-03-01", Target: &calendar.DropTarget{Kind: calendar.DropDay, Date: "2024-03-02"}})
	require.ErrorIs(t, err, ErrPlannedWorkoutNotFound)
}

func TestCompleteFirstTimeWritesRecordsThenPlan(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := NewCalendarService(store, nil, DeleteOrphan)
	p := plan(t, svc, "2024-03-01", domain.CalendarBike, "Recovery spin", 60, 0)

	done, err := svc.Complete(ctx, user, p.ID, CompletionInput{
		Distance:   floatp(18.5),
		Adaptation: bikeAdaptation(200, 140),
	})
	require.NoError(t, err)
	require.True(t, done.Completed)
	require.NotEmpty(t, done.WorkoutDocID)
	require.NotEmpty(t, done.AdaptationDocID)
	require.Equal(t, 3, *done.CompletedIntensity, "derived from 60 easy minutes")

	w, err := repository.NewWorkoutRepository(store).Get(ctx, user, done.WorkoutDocID)
	require.NoError(t, err)
	require.Equal(t, domain.SportBike, w.Sport)
	require.Equal(t, 60, w.Duration)
	require.Equal(t, 18.5, w.Distance)
	require.Equal(t, 180, w.Load)
	require.True(t, w.Date.Equal(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)))

	a, err := repository.NewAdaptationRepository(store).Get(ctx, user, done.AdaptationDocID)
	require.NoError(t, err)
	require.Equal(t, domain.DisciplineBike, a.Discipline)
	require.Equal(t, 1.4286, a.EF)

	stored, err := svc.Get(ctx, user, p.ID)
	require.NoError(t, err)
	require.True(t, stored.Completed)
	require.Equal(t, done.WorkoutDocID, stored.WorkoutDocID)
	require.NotNil(t, stored.CompletedAdaptation)
	require.Equal(t, domain.DisciplineBike, stored.CompletedAdaptation.Discipline)

	_, err = svc.CompleteFirstTime(ctx, user, p.ID, CompletionInput{})
	require.ErrorIs(t, err, ErrAlreadyCompleted)
}

func TestCompletionNeverMarksCompletedBeforeWorkoutExists(t *testing.T) {
	ctx := context.Background()
	store := newFaultyStore()
	svc := NewCalendarService(store, nil, DeleteOrphan)
	p := plan(t, svc, "2024-03-01", domain.CalendarRun, "Intervals", 20, 20)

	store.failAdd[repository.CollectionWorkouts] = true
	_, err := svc.Complete(ctx, user, p.ID, CompletionInput{})
	var syncErr *SyncError
	require.ErrorAs(t, err, &syncErr)
	require.Equal(t, StepCreateWorkout, syncErr.Step)
	require.ErrorIs(t, err, errWriteRejected)

	stored, err := svc.Get(ctx, user, p.ID)
	require.NoError(t, err)
	require.False(t, stored.Completed)
	require.Empty(t, stored.WorkoutDocID)
}

func TestCompletionFailureKeepsEarlierWrites(t *testing.T) {
	ctx := context.Background()
	store := newFaultyStore()
	svc := NewCalendarService(store, nil, DeleteOrphan)
	workouts := repository.NewWorkoutRepository(store)

	p := plan(t, svc, "2024-03-01", domain.CalendarBike, "Spin", 45, 0)
	store.failAdd[repository.CollectionAdaptations] = true
	_, err := svc.Complete(ctx, user, p.ID, CompletionInput{Adaptation: bikeAdaptation(180, 130)})
	var syncErr *SyncError
	require.ErrorAs(t, err, &syncErr)
	require.Equal(t, StepCreateAdaptation, syncErr.Step)
	require.NotEmpty(t, syncErr.WorkoutID)

	_, err = workouts.Get(ctx, user, syncErr.WorkoutID)
	require.NoError(t, err, "workout stays as a standalone record")
	stored, err := svc.Get(ctx, user, p.ID)
	require.NoError(t, err)
	require.False(t, stored.Completed)

	// Last step failing leaves both derived records in place.
	store.failAdd[repository.CollectionAdaptations] = false
	store.failUpdate[repository.CollectionPlannedWorkouts] = true
	_, err = svc.Complete(ctx, user, p.ID, CompletionInput{Adaptation: bikeAdaptation(180, 130)})
	require.ErrorAs(t, err, &syncErr)
	require.Equal(t, StepPatchPlanned, syncErr.Step)
	require.NotEmpty(t, syncErr.AdaptationID)
	stored, err = svc.Get(ctx, user, p.ID)
	require.NoError(t, err)
	require.False(t, stored.Completed)
}

func TestUpdateCompletedReconcilesAdaptation(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := NewCalendarService(store, nil, DeleteOrphan)
	workouts := repository.NewWorkoutRepository(store)
	adaptations := repository.NewAdaptationRepository(store)

	p := plan(t, svc, "2024-03-01", domain.CalendarBike, "Spin", 60, 0)
	first, err := svc.Complete(ctx, user, p.ID, CompletionInput{})
	require.NoError(t, err)
	require.Empty(t, first.AdaptationDocID)

	// (b) adaptation added later: created and referenced.
	second, err := svc.UpdateCompleted(ctx, user, p.ID, CompletionInput{Duration: intp(75), Adaptation: bikeAdaptation(200, 140)})
	require.NoError(t, err)
	require.Equal(t, first.WorkoutDocID, second.WorkoutDocID)
	require.NotEmpty(t, second.AdaptationDocID)

	all, err := workouts.Recent(ctx, user)
	require.NoError(t, err)
	require.Len(t, all, 1, "workout is overwritten in place")
	require.Equal(t, 75, all[0].Duration)
	require.Equal(t, 225, all[0].Load)

	// (a) adaptation changed: overwritten in place.
	third, err := svc.Complete(ctx, user, p.ID, CompletionInput{Adaptation: bikeAdaptation(210, 140)})
	require.NoError(t, err)
	require.Equal(t, second.AdaptationDocID, third.AdaptationDocID)
	a, err := adaptations.Get(ctx, user, third.AdaptationDocID)
	require.NoError(t, err)
	require.Equal(t, 1.5, a.EF)

	// (c) adaptation removed: deleted and unreferenced.
	fourth, err := svc.Complete(ctx, user, p.ID, CompletionInput{})
	require.NoError(t, err)
	require.Empty(t, fourth.AdaptationDocID)
	_, err = adaptations.Get(ctx, user, third.AdaptationDocID)
	require.ErrorIs(t, err, repository.ErrNotFound)

	stored, err := svc.Get(ctx, user, p.ID)
	require.NoError(t, err)
	require.Empty(t, stored.AdaptationDocID)
	require.Nil(t, stored.CompletedAdaptation)
	require.Equal(t, 60, *stored.CompletedDuration)

	other := plan(t, svc, "2024-03-02", domain.CalendarRun, "Easy", 30, 0)
	_, err = svc.UpdateCompleted(ctx, user, other.ID, CompletionInput{})
	require.ErrorIs(t, err, ErrNotCompleted)
}

func TestLiftCompletionMapsToStrengthWithoutAdaptation(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := NewCalendarService(store, nil, DeleteOrphan)
	p := plan(t, svc, "2024-03-01", domain.CalendarLift, "Gym", 0, 45)

	_, err := svc.Complete(ctx, user, p.ID, CompletionInput{Adaptation: bikeAdaptation(200, 140)})
	require.ErrorIs(t, err, ErrValidationFailed)
	require.ErrorIs(t, err, ErrAdaptationNotAllowed)

	done, err := svc.Complete(ctx, user, p.ID, CompletionInput{Distance: floatp(3)})
	require.NoError(t, err)
	w, err := repository.NewWorkoutRepository(store).Get(ctx, user, done.WorkoutDocID)
	require.NoError(t, err)
	require.Equal(t, domain.SportStrength, w.Sport)
	require.Equal(t, 8, w.Intensity)
	require.Zero(t, w.Distance)
}

func TestDeletePolicies(t *testing.T) {
	ctx := context.Background()
	for _, tc := range []struct {
		policy    DeletePolicy
		remaining int
	}{
		{DeleteOrphan, 1},
		{DeleteCascade, 0},
	} {
		t.Run(string(tc.policy), func(t *testing.T) {
			store := memory.New()
			svc := NewCalendarService(store, nil, tc.policy)
			p := plan(t, svc, "2024-03-01", domain.CalendarRun, "Tempo", 30, 10)
			_, err := svc.Complete(ctx, user, p.ID, CompletionInput{
				Adaptation: &domain.AdaptationInput{Type: "Threshold Intervals", AvgHR: 150, PaceMin: floatp(8)},
			})
			require.NoError(t, err)

			require.NoError(t, svc.Delete(ctx, user, p.ID))
			_, err = svc.Get(ctx, user, p.ID)
			require.ErrorIs(t, err, ErrPlannedWorkoutNotFound)

			ws, err := repository.NewWorkoutRepository(store).Recent(ctx, user)
			require.NoError(t, err)
			require.Len(t, ws, tc.remaining)
			as, err := repository.NewAdaptationRepository(store).Chronological(ctx, user)
			require.NoError(t, err)
			require.Len(t, as, tc.remaining)
		})
	}

	_, err := ParseDeletePolicy("archive")
	require.Error(t, err)
	policy, err := ParseDeletePolicy("")
	require.NoError(t, err)
	require.Equal(t, DeleteOrphan, policy)
}
