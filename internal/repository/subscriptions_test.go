package repository_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Ali-Herrera/tri-tracker/internal/repository"
	"github.com/Ali-Herrera/tri-tracker/internal/repository/memory"
)

// hookStore runs afterQuery once, after the first Query has read its result.
type hookStore struct {
	repository.DocumentStore
	once       sync.Once
	afterQuery func()
}

func (h *hookStore) Query(ctx context.Context, userID string, coll repository.Collection, q repository.Query) ([]repository.Document, error) {
	docs, err := h.DocumentStore.Query(ctx, userID, coll, q)
	h.once.Do(h.afterQuery)
	return docs, err
}

func newNotifying() (*repository.NotifyingStore, *repository.Subscriptions) {
	inner := memory.New()
	subs := repository.NewSubscriptions(inner)
	return repository.NewNotifyingStore(inner, subs), subs
}

func TestSubscribeDeliversSnapshotAndChanges(t *testing.T) {
	ctx := context.Background()
	store, subs := newNotifying()

	_, err := store.Add(ctx, "u1", repository.CollectionPlannedWorkouts, repository.Fields{"date": "2024-03-01", "title": "a"})
	require.NoError(t, err)

	var deliveries [][]repository.Document
	key := repository.Key{UserID: "u1", Collection: repository.CollectionPlannedWorkouts, Query: repository.DayQuery("2024-03-01")}
	unsubscribe, err := subs.Subscribe(ctx, key, func(docs []repository.Document, err error) {
		require.NoError(t, err)
		deliveries = append(deliveries, docs)
	})
	require.NoError(t, err)
	require.Len(t, deliveries, 1)
	require.Len(t, deliveries[0], 1)

	_, err = store.Add(ctx, "u1", repository.CollectionPlannedWorkouts, repository.Fields{"date": "2024-03-01", "title": "b"})
	require.NoError(t, err)
	require.Len(t, deliveries, 2)
	require.Len(t, deliveries[1], 2)

	// Writes to other users or collections are not delivered.
	_, err = store.Add(ctx, "u2", repository.CollectionPlannedWorkouts, repository.Fields{"date": "2024-03-01"})
	require.NoError(t, err)
	_, err = store.Add(ctx, "u1", repository.CollectionWorkouts, repository.Fields{"duration": 10})
	require.NoError(t, err)
	require.Len(t, deliveries, 2)

	unsubscribe()
	unsubscribe()
	require.Equal(t, 0, subs.Len())

	_, err = store.Add(ctx, "u1", repository.CollectionPlannedWorkouts, repository.Fields{"date": "2024-03-01", "title": "c"})
	require.NoError(t, err)
	require.Len(t, deliveries, 2)
}

func TestSubscribeNotifiesOncePerCommit(t *testing.T) {
	ctx := context.Background()
	store, subs := newNotifying()

	calls := 0
	key := repository.Key{UserID: "u1", Collection: repository.CollectionPlannedWorkouts}
	_, err := subs.Subscribe(ctx, key, func([]repository.Document, error) { calls++ })
	require.NoError(t, err)

	b := repository.NewBatch()
	b.Create(repository.CollectionPlannedWorkouts, repository.Fields{"title": "a"})
	b.Create(repository.CollectionPlannedWorkouts, repository.Fields{"title": "b"})
	require.NoError(t, store.Commit(ctx, "u1", b))
	require.Equal(t, 2, calls)
}

func TestSubscriptionEndsWithContext(t *testing.T) {
	store, subs := newNotifying()
	ctx, cancel := context.WithCancel(context.Background())

	_, err := subs.Subscribe(ctx, repository.Key{UserID: "u1", Collection: repository.CollectionWorkouts}, func([]repository.Document, error) {})
	require.NoError(t, err)
	require.Equal(t, 1, subs.Len())

	cancel()
	require.Eventually(t, func() bool { return subs.Len() == 0 }, time.Second, 10*time.Millisecond)

	_, err = store.Add(context.Background(), "u1", repository.CollectionWorkouts, repository.Fields{"duration": 5})
	require.NoError(t, err)
}

func TestSubscribeSeesWriteDuringFirstRead(t *testing.T) {
	ctx := context.Background()
	inner := memory.New()
	hook := &hookStore{DocumentStore: inner}
	subs := repository.NewSubscriptions(hook)
	store := repository.NewNotifyingStore(inner, subs)
	key := repository.Key{UserID: "u1", Collection: repository.CollectionPlannedWorkouts}

	// A write commits after the first read and before its delivery.
	written := make(chan struct{})
	hook.afterQuery = func() {
		go func() {
			defer close(written)
			_, err := store.Add(ctx, "u1", repository.CollectionPlannedWorkouts, repository.Fields{"title": "a"})
			if err != nil {
				t.Errorf("add: %v", err)
			}
		}()
		require.Eventually(t, func() bool {
			docs, err := inner.Query(ctx, "u1", repository.CollectionPlannedWorkouts, repository.Query{})
			return err == nil && len(docs) == 1
		}, time.Second, time.Millisecond)
	}

	var seen []int
	_, err := subs.Subscribe(ctx, key, func(docs []repository.Document, err error) {
		if err == nil {
			seen = append(seen, len(docs))
		}
	})
	require.NoError(t, err)
	<-written

	require.Equal(t, []int{0, 1}, seen)
}

func TestUnsubscribedListenerGetsNothing(t *testing.T) {
	ctx := context.Background()
	store, subs := newNotifying()

	calls := 0
	var unsubscribe func()
	unsubscribe, err := subs.Subscribe(ctx, repository.Key{UserID: "u1", Collection: repository.CollectionWorkouts}, func([]repository.Document, error) {
		calls++
		if calls == 2 {
			unsubscribe()
		}
	})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = store.Add(ctx, "u1", repository.CollectionWorkouts, repository.Fields{"duration": i})
		require.NoError(t, err)
	}
	require.Equal(t, 2, calls)
}
