// Package memory implements an in-memory document store for development and testing.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/Ali-Herrera/tri-tracker/internal/repository"
)

// DefaultMaxBatchOps mirrors the atomic batch limit of hosted document stores.
const DefaultMaxBatchOps = 500

type collections map[repository.Collection]map[string]repository.Fields

// Store implements repository.DocumentStore on maps guarded by one mutex.
type Store struct {
	mu       sync.RWMutex
	users    map[string]collections
	maxBatch int
}

// Ensure interfaces are met.
var _ repository.DocumentStore = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithMaxBatchOps overrides the batch limit.
func WithMaxBatchOps(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxBatch = n
		}
	}
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		users:    make(map[string]collections),
		maxBatch: DefaultMaxBatchOps,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) MaxBatchOps() int {
	return s.maxBatch
}

// coll returns the documents of one user's collection, creating the maps when
// create is set. Callers hold the lock.
func (s *Store) coll(userID string, c repository.Collection, create bool) map[string]repository.Fields {
	u, ok := s.users[userID]
	if !ok {
		if !create {
			return nil
		}
		u = make(collections)
		s.users[userID] = u
	}
	docs, ok := u[c]
	if !ok && create {
		docs = make(map[string]repository.Fields)
		u[c] = docs
	}
	return docs
}

func copyFields(f repository.Fields) repository.Fields {
	out := make(repository.Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// --- Reads ---

func (s *Store) Query(ctx context.Context, userID string, c repository.Collection, q repository.Query) ([]repository.Document, error) {
	norm, err := normalizeQuery(q)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]repository.Document, 0)
	for id, f := range s.coll(userID, c, false) {
		if norm.Matches(f) {
			out = append(out, repository.Document{ID: id, Fields: copyFields(f)})
		}
	}
	norm.Sort(out)
	return out, nil
}

func (s *Store) Get(ctx context.Context, userID string, c repository.Collection, id string) (repository.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.coll(userID, c, false)[id]
	if !ok {
		return repository.Document{}, repository.ErrNotFound
	}
	return repository.Document{ID: id, Fields: copyFields(f)}, nil
}

// --- Single writes ---

func (s *Store) Add(ctx context.Context, userID string, c repository.Collection, fields repository.Fields) (string, error) {
	norm, err := repository.Encode(fields)
	if err != nil {
		return "", err
	}
	id := repository.NewID()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.coll(userID, c, true)[id] = norm
	return id, nil
}

func (s *Store) Set(ctx context.Context, userID string, c repository.Collection, id string, fields repository.Fields, merge bool) error {
	norm, err := repository.Encode(fields)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.set(s.coll(userID, c, true), id, norm, merge)
	return nil
}

func (s *Store) Update(ctx context.Context, userID string, c repository.Collection, id string, patch repository.Fields) error {
	norm, err := repository.Encode(patch)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	docs := s.coll(userID, c, false)
	if _, ok := docs[id]; !ok {
		return repository.ErrNotFound
	}
	s.update(docs, id, norm)
	return nil
}

func (s *Store) Delete(ctx context.Context, userID string, c repository.Collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.coll(userID, c, false), id)
	return nil
}

func (s *Store) set(docs map[string]repository.Fields, id string, f repository.Fields, merge bool) {
	existing, ok := docs[id]
	if !merge || !ok {
		docs[id] = copyFields(f)
		return
	}
	for k, v := range f {
		existing[k] = v
	}
}

func (s *Store) update(docs map[string]repository.Fields, id string, patch repository.Fields) {
	doc := docs[id]
	for k, v := range patch {
		if v == nil {
			delete(doc, k)
			continue
		}
		doc[k] = v
	}
}

// --- Batches ---

// Commit validates every operation before applying any of them.
func (s *Store) Commit(ctx context.Context, userID string, b *repository.Batch) error {
	if b.Len() > s.maxBatch {
		return fmt.Errorf("%w: %d operations, limit %d", repository.ErrBatchTooLarge, b.Len(), s.maxBatch)
	}
	ops := b.Ops()
	norm := make([]repository.Fields, len(ops))
	for i, op := range ops {
		if op.Kind == repository.OpDelete {
			continue
		}
		f, err := repository.Encode(op.Fields)
		if err != nil {
			return err
		}
		norm[i] = f
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Existence as it will be at each step of the batch.
	exists := make(map[string]bool)
	key := func(op repository.BatchOp) string { return string(op.Collection) + "/" + op.ID }
	for _, op := range ops {
		k := key(op)
		present, seen := exists[k]
		if !seen {
			_, present = s.coll(userID, op.Collection, false)[op.ID]
		}
		switch op.Kind {
		case repository.OpCreate:
			if present {
				return fmt.Errorf("%w: %s", repository.ErrDuplicateID, k)
			}
			exists[k] = true
		case repository.OpSet:
			exists[k] = true
		case repository.OpUpdate:
			if !present {
				return fmt.Errorf("update %s: %w", k, repository.ErrNotFound)
			}
			exists[k] = true
		case repository.OpDelete:
			exists[k] = false
		}
	}

	for i, op := range ops {
		docs := s.coll(userID, op.Collection, true)
		switch op.Kind {
		case repository.OpCreate:
			docs[op.ID] = copyFields(norm[i])
		case repository.OpSet:
			s.set(docs, op.ID, norm[i], op.Merge)
		case repository.OpUpdate:
			s.update(docs, op.ID, norm[i])
		case repository.OpDelete:
			delete(docs, op.ID)
		}
	}
	return nil
}

func normalizeQuery(q repository.Query) (repository.Query, error) {
	out := repository.Query{OrderBy: q.OrderBy}
	for _, f := range q.Filters {
		v, err := repository.NormalizeValue(f.Value)
		if err != nil {
			return repository.Query{}, err
		}
		out.Filters = append(out.Filters, repository.Filter{Field: f.Field, Op: f.Op, Value: v})
	}
	return out, nil
}
