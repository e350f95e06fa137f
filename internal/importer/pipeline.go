package importer

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"sort"
	"sync"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/Ali-Herrera/tri-tracker/internal/domain"
	"github.com/Ali-Herrera/tri-tracker/internal/observability"
	"github.com/Ali-Herrera/tri-tracker/internal/repository"
)

// DefaultChunkSize keeps each batch under the usual 500 write limit of hosted
// document stores.
const DefaultChunkSize = 450

// BatchCommitter is the part of the document store the pipeline writes to.
type BatchCommitter interface {
	Commit(ctx context.Context, userID string, b *repository.Batch) error
	MaxBatchOps() int
}

// CommitResult summarizes a fully applied import.
type CommitResult struct {
	Committed int      `json:"committed"`
	Chunks    int      `json:"chunks"`
	IDs       []string `json:"ids"`
}

// Pipeline stores normalized workouts in sequential atomic chunks. Only one
// commit per user runs at a time.
type Pipeline struct {
	store     BatchCommitter
	chunkSize int
	logger    *log.Logger

	mu       sync.Mutex
	inflight map[string]struct{}
}

// Option configures the pipeline.
type Option func(*Pipeline)

// WithLogger overrides the default logger.
func WithLogger(l *log.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithChunkSize sets the preferred chunk size. The store's batch limit still
// caps it.
func WithChunkSize(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.chunkSize = n
		}
	}
}

// NewPipeline creates a pipeline writing to store.
func NewPipeline(store BatchCommitter, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:     store,
		chunkSize: DefaultChunkSize,
		logger:    log.New(io.Discard, "", 0),
		inflight:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ChunkSize is the effective number of workouts per batch.
func (p *Pipeline) ChunkSize() int {
	if limit := p.store.MaxBatchOps(); limit > 0 && limit < p.chunkSize {
		return limit
	}
	return p.chunkSize
}

func (p *Pipeline) acquire(userID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, busy := p.inflight[userID]; busy {
		return false
	}
	p.inflight[userID] = struct{}{}
	return true
}

func (p *Pipeline) release(userID string) {
	p.mu.Lock()
	delete(p.inflight, userID)
	p.mu.Unlock()
}

// InFlight reports whether userID has a commit running.
func (p *Pipeline) InFlight(userID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, busy := p.inflight[userID]
	return busy
}

// CommitBatch writes workouts chunk by chunk. If a chunk fails the earlier
// chunks stay stored, later ones are not attempted, and the error is a
// *PartialCommitError. Stored workouts get their ID set. Once started the
// commit ignores ctx cancellation.
func (p *Pipeline) CommitBatch(ctx context.Context, userID string, workouts []domain.Workout) (CommitResult, error) {
	if len(workouts) == 0 {
		return CommitResult{}, ErrNoValidRows
	}
	for i, w := range workouts {
		if err := w.Validate(); err != nil {
			return CommitResult{}, fmt.Errorf("%w: row %d: %v", ErrInvalidCandidates, i, err)
		}
	}
	if !p.acquire(userID) {
		return CommitResult{}, ErrImportInProgress
	}
	defer p.release(userID)

	ctx = context.WithoutCancel(ctx)
	size := p.ChunkSize()
	chunks := (len(workouts) + size - 1) / size
	start := time.Now()
	defer observability.ObserveImportCommit(start)

	res := CommitResult{Chunks: chunks, IDs: make([]string, 0, len(workouts))}
	for k := 0; k < chunks; k++ {
		lo := k * size
		hi := min(lo+size, len(workouts))

		b := repository.NewBatch()
		ids := make([]string, 0, hi-lo)
		for i := lo; i < hi; i++ {
			fields, err := repository.Encode(&workouts[i])
			if err != nil {
				return res, &PartialCommitError{Committed: res.Committed, FailedChunk: k, Chunks: chunks, Err: err}
			}
			ids = append(ids, b.Create(repository.CollectionWorkouts, fields))
		}

		if err := p.store.Commit(ctx, userID, b); err != nil {
			observability.RecordImportChunk(false, hi-lo)
			p.logger.Printf("ERROR: import for user %s: chunk %d/%d failed after %d workouts: %v", userID, k+1, chunks, res.Committed, err)
			return res, &PartialCommitError{Committed: res.Committed, FailedChunk: k, Chunks: chunks, Err: err}
		}
		observability.RecordImportChunk(true, hi-lo)
		res.Committed += hi - lo
		res.IDs = append(res.IDs, ids...)
		for i, id := range ids {
			workouts[lo+i].ID = id
		}
	}

	p.logger.Printf("INFO: import for user %s: stored %d workouts in %d chunks", userID, res.Committed, chunks)
	return res, nil
}

// Fingerprint identifies a normalized batch independent of row order, so a
// re-upload of the same export is recognized.
func Fingerprint(workouts []domain.Workout) string {
	lines := make([]string, 0, len(workouts))
	for _, w := range workouts {
		lines = append(lines, fmt.Sprintf("%s|%s|%d|%.2f|%d", w.Date.UTC().Format(time.RFC3339), w.Sport, w.Duration, w.Distance, w.Intensity))
	}
	sort.Strings(lines)

	h, _ := blake2b.New256(nil)
	for _, l := range lines {
		h.Write([]byte(l))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}
