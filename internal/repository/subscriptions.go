package repository

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
)

// Key identifies a live query: one user's collection filtered by a Query.
type Key struct {
	UserID     string
	Collection Collection
	Query      Query
}

func (k Key) String() string {
	return k.UserID + "/" + string(k.Collection) + "?" + k.Query.String()
}

// Listener receives the full result set of a live query each time it may
// have changed.
type Listener func(docs []Document, err error)

type subscription struct {
	key    Key
	cb     Listener
	mu     sync.Mutex // held while querying and delivering
	closed atomic.Bool
}

// refresh re-runs the query and delivers the result. Both happen under mu, so
// deliveries never go back to an older state.
func (sub *subscription) refresh(ctx context.Context, store DocumentStore) {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.closed.Load() {
		return
	}
	docs, err := store.Query(ctx, sub.key.UserID, sub.key.Collection, sub.key.Query)
	if err != nil {
		log.Printf("WARN: Live query %s failed: %v", sub.key, err)
	}
	sub.cb(docs, err)
}

// Subscriptions delivers live query results. Writers report changes through
// Notify, which NotifyingStore does after every successful write.
type Subscriptions struct {
	store  DocumentStore
	mu     sync.Mutex
	nextID uint64
	subs   map[uint64]*subscription
}

// NewSubscriptions re-runs live queries against store.
func NewSubscriptions(store DocumentStore) *Subscriptions {
	return &Subscriptions{
		store: store,
		subs:  make(map[uint64]*subscription),
	}
}

// Subscribe delivers the current result set, then keeps delivering after
// every change to the key's collection until unsubscribe is called or ctx is
// done.
func (s *Subscriptions) Subscribe(ctx context.Context, key Key, cb Listener) (unsubscribe func(), err error) {
	sub := &subscription{key: key, cb: cb}

	// Registered before the first read so no write can fall in between. Notify
	// waits on sub.mu until the first result is delivered.
	sub.mu.Lock()
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.subs[id] = sub
	s.mu.Unlock()

	docs, err := s.store.Query(ctx, key.UserID, key.Collection, key.Query)
	if err != nil {
		sub.closed.Store(true)
		sub.mu.Unlock()
		s.remove(id)
		return nil, err
	}
	cb(docs, nil)
	sub.mu.Unlock()

	var once sync.Once
	stopWatch := context.AfterFunc(ctx, func() { s.remove(id) })
	unsubscribe = func() {
		once.Do(func() {
			stopWatch()
			s.remove(id)
		})
	}
	return unsubscribe, nil
}

func (s *Subscriptions) remove(id uint64) {
	s.mu.Lock()
	if sub, ok := s.subs[id]; ok {
		sub.closed.Store(true)
		delete(s.subs, id)
	}
	s.mu.Unlock()
}

// Len reports the number of active subscriptions.
func (s *Subscriptions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Notify re-runs every live query on the user's collection and delivers the
// results.
func (s *Subscriptions) Notify(ctx context.Context, userID string, coll Collection) {
	s.mu.Lock()
	var affected []*subscription
	for _, sub := range s.subs {
		if sub.key.UserID == userID && sub.key.Collection == coll {
			affected = append(affected, sub)
		}
	}
	s.mu.Unlock()

	for _, sub := range affected {
		sub.refresh(ctx, s.store)
	}
}

// NotifyingStore wraps a DocumentStore and notifies subscriptions after each
// successful write.
type NotifyingStore struct {
	DocumentStore
	subs *Subscriptions
}

var _ DocumentStore = (*NotifyingStore)(nil)

func NewNotifyingStore(store DocumentStore, subs *Subscriptions) *NotifyingStore {
	return &NotifyingStore{DocumentStore: store, subs: subs}
}

func (n *NotifyingStore) notify(ctx context.Context, userID string, colls ...Collection) {
	ctx = context.WithoutCancel(ctx)
	for _, c := range colls {
		n.subs.Notify(ctx, userID, c)
	}
}

func (n *NotifyingStore) Add(ctx context.Context, userID string, coll Collection, fields Fields) (string, error) {
	id, err := n.DocumentStore.Add(ctx, userID, coll, fields)
	if err == nil {
		n.notify(ctx, userID, coll)
	}
	return id, err
}

func (n *NotifyingStore) Set(ctx context.Context, userID string, coll Collection, id string, fields Fields, merge bool) error {
	err := n.DocumentStore.Set(ctx, userID, coll, id, fields, merge)
	if err == nil {
		n.notify(ctx, userID, coll)
	}
	return err
}

func (n *NotifyingStore) Update(ctx context.Context, userID string, coll Collection, id string, patch Fields) error {
	err := n.DocumentStore.Update(ctx, userID, coll, id, patch)
	if err == nil {
		n.notify(ctx, userID, coll)
	}
	return err
}

func (n *NotifyingStore) Delete(ctx context.Context, userID string, coll Collection, id string) error {
	err := n.DocumentStore.Delete(ctx, userID, coll, id)
	if err == nil {
		n.notify(ctx, userID, coll)
	}
	return err
}

func (n *NotifyingStore) Commit(ctx context.Context, userID string, b *Batch) error {
	err := n.DocumentStore.Commit(ctx, userID, b)
	if err == nil {
		n.notify(ctx, userID, b.Collections()...)
	}
	return err
}
