package calendar

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Ali-Herrera/tri-tracker/internal/domain"
	"github.com/Ali-Herrera/tri-tracker/internal/repository"
	"github.com/Ali-Herrera/tri-tracker/internal/repository/memory"
)

type recordingCommitter struct {
	calls   [][]Patch
	err     error
	duringC func()
}

func (r *recordingCommitter) CommitPatches(ctx context.Context, patches []Patch) error {
	if r.duringC != nil {
		r.duringC()
	}
	r.calls = append(r.calls, patches)
	return r.err
}

func sampleBoard() *Board {
	return NewBoard([]domain.PlannedWorkout{
		pw("a", "2024-03-01", "a", intp(0)),
		pw("b", "2024-03-01", "b", intp(1)),
		pw("c", "2024-03-02", "c", intp(0)),
	})
}

func TestDragOverDayAppendsAcrossDays(t *testing.T) {
	committer := &recordingCommitter{}
	c := NewDragController(sampleBoard(), committer)

	require.NoError(t, c.DragStart("a", "2024-03-01"))
	require.Equal(t, Dragging, c.State())
	require.False(t, c.ClickAllowed())

	patches, kind, err := c.DragEnd(context.Background(), &DropTarget{Kind: DropDay, Date: "2024-03-02"})
	require.NoError(t, err)
	require.Equal(t, MoveAcrossDays, kind)
	require.Equal(t, []Patch{
		{ID: "b", Order: 0},
		{ID: "c", Order: 0},
		{ID: "a", Order: 1, Date: "2024-03-02"},
	}, patches)
	require.Len(t, committer.calls, 1)
	require.Equal(t, Idle, c.State())
}

func TestDragOverWorkoutInsertsBefore(t *testing.T) {
	committer := &recordingCommitter{}
	c := NewDragController(sampleBoard(), committer)

	require.NoError(t, c.DragStart("b", "2024-03-01"))
	patches, kind, err := c.DragEnd(context.Background(), &DropTarget{Kind: DropWorkout, Date: "2024-03-01", WorkoutID: "a"})
	require.NoError(t, err)
	require.Equal(t, MoveWithinDay, kind)
	require.Equal(t, []Patch{{ID: "b", Order: 0}, {ID: "a", Order: 1}}, patches)
}

func TestDragEndWithoutTargetWritesNothing(t *testing.T) {
	committer := &recordingCommitter{}
	c := NewDragController(sampleBoard(), committer)

	require.NoError(t, c.DragStart("a", "2024-03-01"))
	patches, _, err := c.DragEnd(context.Background(), nil)
	require.NoError(t, err)
	require.Nil(t, patches)
	require.Empty(t, committer.calls)
	require.Equal(t, Idle, c.State())

	require.NoError(t, c.DragStart("a", "2024-03-01"))
	c.DragCancel()
	require.Equal(t, Idle, c.State())
	require.Empty(t, committer.calls)

	_, _, err = c.DragEnd(context.Background(), &DropTarget{Kind: DropDay, Date: "2024-03-02"})
	require.ErrorIs(t, err, ErrNotDragging)
}

func TestDragStaysCommittingUntilWriteReturns(t *testing.T) {
	committer := &recordingCommitter{}
	c := NewDragController(sampleBoard(), committer)
	committer.duringC = func() {
		require.Equal(t, Committing, c.State())
		require.ErrorIs(t, c.DragStart("c", "2024-03-02"), ErrDragInProgress)
	}

	require.NoError(t, c.DragStart("a", "2024-03-01"))
	_, _, err := c.DragEnd(context.Background(), &DropTarget{Kind: DropDay, Date: "2024-03-01"})
	require.NoError(t, err)
	require.Equal(t, Idle, c.State())
}

func TestDragCommitFailureReturnsToIdle(t *testing.T) {
	committer := &recordingCommitter{err: errors.New("batch rejected")}
	c := NewDragController(sampleBoard(), committer)

	require.NoError(t, c.DragStart("a", "2024-03-01"))
	_, _, err := c.DragEnd(context.Background(), &DropTarget{Kind: DropDay, Date: "2024-03-02"})
	require.Error(t, err)
	require.Equal(t, Idle, c.State())
}

func TestDragUnknownWorkoutIsNotCommitted(t *testing.T) {
	committer := &recordingCommitter{}
	c := NewDragController(sampleBoard(), committer)

	require.NoError(t, c.DragStart("zzz", "2024-03-01"))
	_, _, err := c.DragEnd(context.Background(), &DropTarget{Kind: DropDay, Date: "2024-03-02"})
	require.ErrorIs(t, err, ErrItemNotFound)
	require.Empty(t, committer.calls)
	require.Equal(t, Idle, c.State())
}

func TestActivationDistanceSeparatesClickFromDrag(t *testing.T) {
	c := NewDragController(sampleBoard(), &recordingCommitter{})

	c.Press("a", "2024-03-01", Point{X: 10, Y: 10})
	require.False(t, c.Move(Point{X: 13, Y: 13}))
	require.True(t, c.Release(), "short movement is a click")

	c.Press("a", "2024-03-01", Point{X: 10, Y: 10})
	require.True(t, c.Move(Point{X: 13, Y: 14}))
	require.Equal(t, Dragging, c.State())
	require.False(t, c.ClickAllowed())
	require.False(t, c.Release())
	c.DragCancel()
	require.True(t, c.ClickAllowed())
}

func TestStoreCommitterWritesOneBatch(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	repo := repository.NewPlannedWorkoutRepository(store)

	a := pw("", "2024-03-01", "a", intp(0))
	b := pw("", "2024-03-01", "b", intp(1))
	_, err := repo.Create(ctx, "u1", &a)
	require.NoError(t, err)
	_, err = repo.Create(ctx, "u1", &b)
	require.NoError(t, err)

	committer := &StoreCommitter{Store: store, UserID: "u1"}
	require.NoError(t, committer.CommitPatches(ctx, []Patch{{ID: b.ID, Order: 0, Date: "2024-03-05"}, {ID: a.ID, Order: 0}}))

	got, err := repo.Get(ctx, "u1", b.ID)
	require.NoError(t, err)
	require.Equal(t, "2024-03-05", got.Date)
	require.Equal(t, 0, *got.Order)

	// A missing record rejects the whole batch.
	err = committer.CommitPatches(ctx, []Patch{{ID: a.ID, Order: 5}, {ID: "gone", Order: 0}})
	require.ErrorIs(t, err, repository.ErrNotFound)
	got, err = repo.Get(ctx, "u1", a.ID)
	require.NoError(t, err)
	require.Equal(t, 0, *got.Order)
}

func TestWatchKeepsBoardCurrent(t *testing.T) {
	ctx := context.Background()
	inner := memory.New()
	subs := repository.NewSubscriptions(inner)
	store := repository.NewNotifyingStore(inner, subs)
	repo := repository.NewPlannedWorkoutRepository(store)

	board, unsubscribe, err := Watch(ctx, subs, "u1", "2024-03-01", "2024-03-31")
	require.NoError(t, err)
	defer unsubscribe()
	require.Empty(t, board.ItemsFor("2024-03-02"))

	p := pw("", "2024-03-02", "tempo", intp(0))
	_, err = repo.Create(ctx, "u1", &p)
	require.NoError(t, err)
	require.Len(t, board.ItemsFor("2024-03-02"), 1)

	outside := pw("", "2024-04-02", "later", intp(0))
	_, err = repo.Create(ctx, "u1", &outside)
	require.NoError(t, err)
	require.Empty(t, board.ItemsFor("2024-04-02"))
	require.Len(t, board.Days(), 1)
}
