package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error constants for repository layer
var (
	ErrNotFound      = RepositoryError("not found")
	ErrUpdateFailed  = RepositoryError("update failed")
	ErrDeleteFailed  = RepositoryError("delete failed")
	ErrBatchTooLarge = RepositoryError("batch exceeds store limit")
	ErrDuplicateID   = RepositoryError("document already exists")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// Collection names a per-user collection of documents.
type Collection string

const (
	CollectionWorkouts        Collection = "workouts"
	CollectionAdaptations     Collection = "adaptations"
	CollectionPlannedWorkouts Collection = "plannedWorkouts"
	CollectionImports         Collection = "imports"
)

// Fields is the flat content of a stored document. Values are bson friendly.
type Fields map[string]any

// Document is one record of a collection.
type Document struct {
	ID     string
	Fields Fields
}

// DocumentStore is the record store every component writes through. All
// collections are scoped under the owning user.
type DocumentStore interface {
	// Query returns the documents matching q, sorted by q's ordering.
	Query(ctx context.Context, userID string, coll Collection, q Query) ([]Document, error)
	// Get returns ErrNotFound when the document does not exist.
	Get(ctx context.Context, userID string, coll Collection, id string) (Document, error)
	// Add stores a new document under a generated id.
	Add(ctx context.Context, userID string, coll Collection, fields Fields) (string, error)
	// Set writes the document, creating it if needed. With merge the given
	// fields are written over the existing ones, without merge the document is
	// replaced.
	Set(ctx context.Context, userID string, coll Collection, id string, fields Fields, merge bool) error
	// Update patches an existing document. A nil value removes the field.
	// Returns ErrNotFound when the document does not exist.
	Update(ctx context.Context, userID string, coll Collection, id string, patch Fields) error
	// Delete removes the document. Deleting a missing document is not an error.
	Delete(ctx context.Context, userID string, coll Collection, id string) error
	// Commit applies every operation of the batch or none of them.
	Commit(ctx context.Context, userID string, b *Batch) error
	// MaxBatchOps is the largest batch Commit accepts.
	MaxBatchOps() int
}

// NewID generates a document id.
func NewID() string {
	return primitive.NewObjectID().Hex()
}
