package calendar

import (
	"context"
	"errors"
	"math"
	"sync"

	"github.com/Ali-Herrera/tri-tracker/internal/domain"
)

// ActivationDistance is how far the pointer must travel before a press
// becomes a drag instead of a click.
const ActivationDistance = 5.0

var (
	ErrDragInProgress = errors.New("a drag is already in progress")
	ErrNotDragging    = errors.New("no drag in progress")
)

// State of the drag gesture.
type State int

const (
	Idle State = iota
	Dragging
	Committing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Dragging:
		return "dragging"
	case Committing:
		return "committing"
	}
	return "unknown"
}

// DropKind is what the pointer was released over.
type DropKind string

const (
	DropDay     DropKind = "day"
	DropWorkout DropKind = "workout"
)

// DropTarget is a day cell or a workout card.
type DropTarget struct {
	Kind      DropKind `json:"type"`
	Date      string   `json:"date"`
	WorkoutID string   `json:"workoutId,omitempty"`
}

// MoveKind tells whether a move stayed on its day.
type MoveKind string

const (
	MoveWithinDay  MoveKind = "within_day"
	MoveAcrossDays MoveKind = "across_days"
)

// Snapshot is the point-in-time calendar a drag is computed against.
type Snapshot interface {
	ItemsFor(date string) []domain.PlannedWorkout
}

// Committer stores a patch set as one atomic update.
type Committer interface {
	CommitPatches(ctx context.Context, patches []Patch) error
}

// Point is a pointer position.
type Point struct {
	X, Y float64
}

// PlanMove computes the patches for dropping movedID, currently on
// sourceDate, onto target.
func PlanMove(snap Snapshot, movedID, sourceDate string, target DropTarget) ([]Patch, MoveKind, error) {
	source := SortForDate(snap.ItemsFor(sourceDate))
	var moved *domain.PlannedWorkout
	for i := range source {
		if source[i].ID == movedID {
			moved = &source[i]
			break
		}
	}
	if moved == nil {
		return nil, "", ErrItemNotFound
	}

	targetID := ""
	if target.Kind == DropWorkout {
		targetID = target.WorkoutID
	}
	if target.Date == sourceDate {
		patches, err := ReorderWithinDay(source, movedID, targetID)
		return patches, MoveWithinDay, err
	}
	dest := SortForDate(snap.ItemsFor(target.Date))
	return ReorderAcrossDays(source, dest, *moved, target.Date, targetID), MoveAcrossDays, nil
}

// DragController runs one drag gesture at a time:
// Idle -> Dragging -> Committing -> Idle, or Dragging -> Idle on cancel or
// a drop outside any target.
type DragController struct {
	snapshot  Snapshot
	committer Committer

	mu         sync.Mutex
	state      State
	activeID   string
	sourceDate string

	pressed     bool
	origin      Point
	pendingID   string
	pendingDate string
}

func NewDragController(snapshot Snapshot, committer Committer) *DragController {
	return &DragController{snapshot: snapshot, committer: committer}
}

func (c *DragController) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ClickAllowed reports whether a click may open workout details. Clicks are
// suppressed while a drag is active.
func (c *DragController) ClickAllowed() bool {
	return c.State() == Idle
}

// Press records a pointer press on a workout card.
func (c *DragController) Press(workoutID, date string, at Point) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pressed = true
	c.origin = at
	c.pendingID = workoutID
	c.pendingDate = date
}

// Move starts the drag once the pointer has moved ActivationDistance from the
// press. It reports whether a drag is active.
func (c *DragController) Move(at Point) bool {
	c.mu.Lock()
	if !c.pressed || c.state != Idle {
		active := c.state == Dragging
		c.mu.Unlock()
		return active
	}
	if math.Hypot(at.X-c.origin.X, at.Y-c.origin.Y) < ActivationDistance {
		c.mu.Unlock()
		return false
	}
	id, date := c.pendingID, c.pendingDate
	c.mu.Unlock()
	return c.DragStart(id, date) == nil
}

// Release ends a press that never became a drag. It reports whether the
// press counts as a click.
func (c *DragController) Release() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	click := c.pressed && c.state == Idle
	c.pressed = false
	return click
}

// DragStart begins dragging workoutID from its day.
func (c *DragController) DragStart(workoutID, date string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Idle {
		return ErrDragInProgress
	}
	c.state = Dragging
	c.activeID = workoutID
	c.sourceDate = date
	return nil
}

// DragCancel aborts the gesture. Nothing is written.
func (c *DragController) DragCancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Dragging {
		c.reset()
	}
}

func (c *DragController) reset() {
	c.state = Idle
	c.activeID = ""
	c.sourceDate = ""
	c.pressed = false
}

// DragEnd drops the dragged workout on target. A nil target ends the gesture
// without writing. The patch set is computed from the snapshot before the
// commit is issued; the controller is back to Idle only once the commit has
// finished.
func (c *DragController) DragEnd(ctx context.Context, target *DropTarget) ([]Patch, MoveKind, error) {
	c.mu.Lock()
	if c.state != Dragging {
		c.mu.Unlock()
		return nil, "", ErrNotDragging
	}
	if target == nil || (target.Kind != DropDay && target.Kind != DropWorkout) {
		c.reset()
		c.mu.Unlock()
		return nil, "", nil
	}
	patches, kind, err := PlanMove(c.snapshot, c.activeID, c.sourceDate, *target)
	if err != nil {
		c.reset()
		c.mu.Unlock()
		return nil, "", err
	}
	c.state = Committing
	c.mu.Unlock()

	err = c.committer.CommitPatches(ctx, patches)

	c.mu.Lock()
	c.reset()
	c.mu.Unlock()
	if err != nil {
		return nil, kind, err
	}
	return patches, kind, nil
}
