package storage

import (
	"context"
	"errors"
	"io"
)

// MaxObjectSize is the largest export Open accepts.
const MaxObjectSize = 32 << 20

// ObjectSource reads CSV exports stored by key.
type ObjectSource interface {
	// Open streams the object. The caller closes the reader.
	Open(ctx context.Context, objectKey string) (io.ReadCloser, error)

	// DeleteObject removes an object once it has been imported.
	DeleteObject(ctx context.Context, objectKey string) error
}

var (
	ErrObjectNotFound = errors.New("object not found in storage")
	ErrObjectTooLarge = errors.New("object exceeds the import size limit")
)
