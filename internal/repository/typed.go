package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Ali-Herrera/tri-tracker/internal/domain"
)

// records maps one collection onto an entity type.
type records[T any] struct {
	store DocumentStore
	coll  Collection
	setID func(*T, string)
}

func (r records[T]) decode(doc Document) (T, error) {
	var v T
	if err := Decode(doc, &v); err != nil {
		return v, err
	}
	r.setID(&v, doc.ID)
	return v, nil
}

// Create stores v as a new document and sets its ID.
func (r records[T]) Create(ctx context.Context, userID string, v *T) (string, error) {
	fields, err := Encode(v)
	if err != nil {
		return "", err
	}
	id, err := r.store.Add(ctx, userID, r.coll, fields)
	if err != nil {
		return "", err
	}
	r.setID(v, id)
	return id, nil
}

func (r records[T]) Get(ctx context.Context, userID, id string) (*T, error) {
	doc, err := r.store.Get(ctx, userID, r.coll, id)
	if err != nil {
		return nil, err
	}
	v, err := r.decode(doc)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Overwrite writes every field of v onto the existing document id. It fails
// with ErrNotFound if the document is gone.
func (r records[T]) Overwrite(ctx context.Context, userID, id string, v *T) error {
	fields, err := Encode(v)
	if err != nil {
		return err
	}
	if err := r.store.Update(ctx, userID, r.coll, id, fields); err != nil {
		return err
	}
	r.setID(v, id)
	return nil
}

func (r records[T]) Update(ctx context.Context, userID, id string, patch Fields) error {
	return r.store.Update(ctx, userID, r.coll, id, patch)
}

func (r records[T]) Delete(ctx context.Context, userID, id string) error {
	return r.store.Delete(ctx, userID, r.coll, id)
}

func (r records[T]) List(ctx context.Context, userID string, q Query) ([]T, error) {
	docs, err := r.store.Query(ctx, userID, r.coll, q)
	if err != nil {
		return nil, err
	}
	return r.DecodeAll(docs)
}

// DecodeAll converts query results, e.g. from a subscription callback.
func (r records[T]) DecodeAll(docs []Document) ([]T, error) {
	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		v, err := r.decode(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// --- Workouts ---

type WorkoutRepository struct {
	records[domain.Workout]
}

func NewWorkoutRepository(store DocumentStore) *WorkoutRepository {
	return &WorkoutRepository{records[domain.Workout]{
		store: store,
		coll:  CollectionWorkouts,
		setID: func(w *domain.Workout, id string) { w.ID = id },
	}}
}

// Recent lists workouts newest first.
func (r *WorkoutRepository) Recent(ctx context.Context, userID string) ([]domain.Workout, error) {
	return r.List(ctx, userID, Query{}.Ordered("date", true))
}

// Between lists workouts dated in [from, to], oldest first.
func (r *WorkoutRepository) Between(ctx context.Context, userID string, from, to time.Time) ([]domain.Workout, error) {
	q := Query{}.Where("date", OpGte, from).Where("date", OpLte, to).Ordered("date", false)
	return r.List(ctx, userID, q)
}

// --- Adaptations ---

type AdaptationRepository struct {
	records[domain.AdaptationSession]
}

func NewAdaptationRepository(store DocumentStore) *AdaptationRepository {
	return &AdaptationRepository{records[domain.AdaptationSession]{
		store: store,
		coll:  CollectionAdaptations,
		setID: func(a *domain.AdaptationSession, id string) { a.ID = id },
	}}
}

// Chronological lists sessions oldest first.
func (r *AdaptationRepository) Chronological(ctx context.Context, userID string) ([]domain.AdaptationSession, error) {
	return r.List(ctx, userID, Query{}.Ordered("date", false))
}

// --- Planned workouts ---

type PlannedWorkoutRepository struct {
	records[domain.PlannedWorkout]
}

func NewPlannedWorkoutRepository(store DocumentStore) *PlannedWorkoutRepository {
	return &PlannedWorkoutRepository{records[domain.PlannedWorkout]{
		store: store,
		coll:  CollectionPlannedWorkouts,
		setID: func(p *domain.PlannedWorkout, id string) { p.ID = id },
	}}
}

// ForDate lists the planned workouts of one day in store order.
func (r *PlannedWorkoutRepository) ForDate(ctx context.Context, userID, day string) ([]domain.PlannedWorkout, error) {
	return r.List(ctx, userID, DayQuery(day))
}

// Between lists planned workouts for days in [from, to] ordered by date.
func (r *PlannedWorkoutRepository) Between(ctx context.Context, userID, from, to string) ([]domain.PlannedWorkout, error) {
	return r.List(ctx, userID, RangeQuery(from, to))
}

// DayQuery selects the planned workouts of one day.
func DayQuery(day string) Query {
	return Query{}.Where("date", OpEq, day)
}

// RangeQuery selects planned workouts for days in [from, to]. Empty bounds
// are open.
func RangeQuery(from, to string) Query {
	q := Query{}
	if from != "" {
		q = q.Where("date", OpGte, from)
	}
	if to != "" {
		q = q.Where("date", OpLte, to)
	}
	return q.Ordered("date", false)
}

// --- Import jobs ---

type ImportJobRepository struct {
	records[domain.ImportJob]
}

func NewImportJobRepository(store DocumentStore) *ImportJobRepository {
	return &ImportJobRepository{records[domain.ImportJob]{
		store: store,
		coll:  CollectionImports,
		setID: func(j *domain.ImportJob, id string) { j.ID = id },
	}}
}

// Put writes the job under its own ID.
func (r *ImportJobRepository) Put(ctx context.Context, userID string, job *domain.ImportJob) error {
	if job.ID == "" {
		return fmt.Errorf("import job without id")
	}
	fields, err := Encode(job)
	if err != nil {
		return err
	}
	return r.store.Set(ctx, userID, CollectionImports, job.ID, fields, false)
}

// FindByFingerprint returns the jobs that imported the same normalized batch.
func (r *ImportJobRepository) FindByFingerprint(ctx context.Context, userID, fingerprint string) ([]domain.ImportJob, error) {
	return r.List(ctx, userID, Query{}.Where("fingerprint", OpEq, fingerprint).Ordered("startedAt", true))
}
