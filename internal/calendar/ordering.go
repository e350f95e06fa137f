// Package calendar keeps the per-day ordering of planned workouts and turns
// drag gestures into reorder patches.
package calendar

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Ali-Herrera/tri-tracker/internal/domain"
)

var ErrItemNotFound = errors.New("planned workout not found on its day")

// Patch assigns a new position, and optionally a new day, to one planned
// workout.
type Patch struct {
	ID    string `json:"id"`
	Order int    `json:"order"`
	Date  string `json:"date,omitempty"` // empty keeps the current day
}

// SortForDate returns the items in display order: by order ascending with
// missing orders last, ties broken by title. The input is not modified.
func SortForDate(items []domain.PlannedWorkout) []domain.PlannedWorkout {
	out := append([]domain.PlannedWorkout(nil), items...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Order, out[j].Order
		switch {
		case a != nil && b != nil && *a != *b:
			return *a < *b
		case a != nil && b == nil:
			return true
		case a == nil && b != nil:
			return false
		}
		return strings.Compare(out[i].Title, out[j].Title) < 0
	})
	return out
}

// NextOrderValue is the order for an item appended to a day.
func NextOrderValue(items []domain.PlannedWorkout) int {
	if len(items) == 0 {
		return 0
	}
	sorted := SortForDate(items)
	last := sorted[len(sorted)-1]
	if last.Order != nil {
		return *last.Order + 1
	}
	return len(sorted)
}

// insertBefore places item before targetID, or at the end when targetID is
// empty or absent.
func insertBefore(list []domain.PlannedWorkout, item domain.PlannedWorkout, targetID string) []domain.PlannedWorkout {
	idx := len(list)
	if targetID != "" {
		for i, it := range list {
			if it.ID == targetID {
				idx = i
				break
			}
		}
	}
	out := make([]domain.PlannedWorkout, 0, len(list)+1)
	out = append(out, list[:idx]...)
	out = append(out, item)
	return append(out, list[idx:]...)
}

func without(list []domain.PlannedWorkout, id string) ([]domain.PlannedWorkout, *domain.PlannedWorkout) {
	out := make([]domain.PlannedWorkout, 0, len(list))
	var removed *domain.PlannedWorkout
	for i := range list {
		if list[i].ID == id {
			removed = &list[i]
			continue
		}
		out = append(out, list[i])
	}
	return out, removed
}

func renumber(list []domain.PlannedWorkout, movedID, newDate string) []Patch {
	patches := make([]Patch, 0, len(list))
	for i, it := range list {
		p := Patch{ID: it.ID, Order: i}
		if it.ID == movedID {
			p.Date = newDate
		}
		patches = append(patches, p)
	}
	return patches
}

// ReorderWithinDay moves movedID before targetID inside one sorted day. With
// no target, or the item itself as target, it goes to the end. Every item of
// the day gets a patch.
func ReorderWithinDay(sorted []domain.PlannedWorkout, movedID, targetID string) ([]Patch, error) {
	rest, moved := without(sorted, movedID)
	if moved == nil {
		return nil, fmt.Errorf("%w: %s", ErrItemNotFound, movedID)
	}
	if targetID == movedID {
		targetID = ""
	}
	return renumber(insertBefore(rest, *moved, targetID), "", ""), nil
}

// ReorderAcrossDays moves an item from its sorted source day into the sorted
// target day, before targetID or at the end. Both days are renumbered and only
// the moved item's patch carries newDate.
func ReorderAcrossDays(source, target []domain.PlannedWorkout, moved domain.PlannedWorkout, newDate, targetID string) []Patch {
	rest, _ := without(source, moved.ID)
	dest, _ := without(target, moved.ID)
	moved.Date = newDate
	dest = insertBefore(dest, moved, targetID)

	patches := renumber(rest, "", "")
	return append(patches, renumber(dest, moved.ID, newDate)...)
}

// ApplyPatches returns a copy of items with the patches applied.
func ApplyPatches(items []domain.PlannedWorkout, patches []Patch) []domain.PlannedWorkout {
	byID := make(map[string]Patch, len(patches))
	for _, p := range patches {
		byID[p.ID] = p
	}
	out := make([]domain.PlannedWorkout, len(items))
	for i, it := range items {
		if p, ok := byID[it.ID]; ok {
			order := p.Order
			it.Order = &order
			if p.Date != "" {
				it.Date = p.Date
			}
		}
		out[i] = it
	}
	return out
}

// VerifyOrdering checks that every day's orders are exactly 0..n-1.
func VerifyOrdering(items []domain.PlannedWorkout) error {
	byDate := make(map[string][]int)
	for _, it := range items {
		if it.Order == nil {
			return fmt.Errorf("%s on %s has no order", it.ID, it.Date)
		}
		byDate[it.Date] = append(byDate[it.Date], *it.Order)
	}
	for date, orders := range byDate {
		sort.Ints(orders)
		for i, o := range orders {
			if o != i {
				return fmt.Errorf("orders on %s are %v, want 0..%d", date, orders, len(orders)-1)
			}
		}
	}
	return nil
}
