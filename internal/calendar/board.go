package calendar

import (
	"context"
	"log"
	"sync"

	"github.com/Ali-Herrera/tri-tracker/internal/domain"
	"github.com/Ali-Herrera/tri-tracker/internal/repository"
)

// Board is an in-memory calendar of planned workouts grouped by day. It is
// safe for concurrent use.
type Board struct {
	mu    sync.RWMutex
	byDay map[string][]domain.PlannedWorkout
}

var _ Snapshot = (*Board)(nil)

// NewBoard builds a board from a list of planned workouts.
func NewBoard(items []domain.PlannedWorkout) *Board {
	b := &Board{}
	b.Replace(items)
	return b
}

// Replace swaps the board content.
func (b *Board) Replace(items []domain.PlannedWorkout) {
	byDay := make(map[string][]domain.PlannedWorkout)
	for _, it := range items {
		byDay[it.Date] = append(byDay[it.Date], it)
	}
	b.mu.Lock()
	b.byDay = byDay
	b.mu.Unlock()
}

// ItemsFor returns a copy of one day's items in display order.
func (b *Board) ItemsFor(date string) []domain.PlannedWorkout {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return SortForDate(b.byDay[date])
}

// Days returns every day's items in display order.
func (b *Board) Days() map[string][]domain.PlannedWorkout {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string][]domain.PlannedWorkout, len(b.byDay))
	for d, items := range b.byDay {
		out[d] = SortForDate(items)
	}
	return out
}

// Watch keeps a board in sync with the user's planned workouts for days in
// [from, to] until unsubscribe is called or ctx ends.
func Watch(ctx context.Context, subs *repository.Subscriptions, userID, from, to string) (*Board, func(), error) {
	b := NewBoard(nil)
	decoder := repository.NewPlannedWorkoutRepository(nil)
	key := repository.Key{
		UserID:     userID,
		Collection: repository.CollectionPlannedWorkouts,
		Query:      repository.RangeQuery(from, to),
	}
	unsubscribe, err := subs.Subscribe(ctx, key, func(docs []repository.Document, err error) {
		if err != nil {
			return
		}
		items, err := decoder.DecodeAll(docs)
		if err != nil {
			log.Printf("WARN: Calendar snapshot for user %s not refreshed: %v", userID, err)
			return
		}
		b.Replace(items)
	})
	if err != nil {
		return nil, nil, err
	}
	return b, unsubscribe, nil
}

// StoreCommitter writes patch sets for one user as a single batch.
type StoreCommitter struct {
	Store  repository.DocumentStore
	UserID string
}

var _ Committer = (*StoreCommitter)(nil)

func (s *StoreCommitter) CommitPatches(ctx context.Context, patches []Patch) error {
	if len(patches) == 0 {
		return nil
	}
	b := repository.NewBatch()
	for _, p := range patches {
		fields := repository.Fields{"order": p.Order}
		if p.Date != "" {
			fields["date"] = p.Date
		}
		b.Update(repository.CollectionPlannedWorkouts, p.ID, fields)
	}
	return s.Store.Commit(ctx, s.UserID, b)
}
