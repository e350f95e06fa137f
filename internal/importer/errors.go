package importer

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNoValidRows       = errors.New("no valid rows to import")
	ErrImportInProgress  = errors.New("an import is already running for this user")
	ErrInvalidCandidates = errors.New("invalid workout in import batch")
)

// MappingError reports the column roles that still need a manual choice.
type MappingError struct {
	Missing []string
}

func (e *MappingError) Error() string {
	return "select columns for: " + strings.Join(e.Missing, ", ")
}

// PartialCommitError is returned when a chunk fails after earlier chunks were
// stored. Those are not rolled back.
type PartialCommitError struct {
	Committed   int // workouts stored before the failure
	FailedChunk int // zero based
	Chunks      int
	Err         error
}

func (e *PartialCommitError) Error() string {
	return fmt.Sprintf("import chunk %d of %d failed after %d workouts were stored: %v", e.FailedChunk+1, e.Chunks, e.Committed, e.Err)
}

func (e *PartialCommitError) Unwrap() error {
	return e.Err
}
