package importer

import (
	"bytes"
	"context"
	"errors"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Ali-Herrera/tri-tracker/internal/domain"
	"github.com/Ali-Herrera/tri-tracker/internal/repository"
	"github.com/Ali-Herrera/tri-tracker/internal/repository/memory"
)

// flakyStore fails the commit with the given zero based index.
type flakyStore struct {
	*memory.Store
	failAt  int
	commits int
	block   chan struct{}
}

func (f *flakyStore) Commit(ctx context.Context, userID string, b *repository.Batch) error {
	if f.block != nil {
		<-f.block
	}
	n := f.commits
	f.commits++
	if n == f.failAt {
		return errors.New("write quota exceeded")
	}
	return f.Store.Commit(ctx, userID, b)
}

func makeWorkouts(n int) []domain.Workout {
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	out := make([]domain.Workout, n)
	for i := range out {
		out[i] = domain.NewWorkout(base.Add(time.Duration(i)*time.Hour), domain.SportRun, 30, 3.1, 5)
	}
	return out
}

func countWorkouts(t *testing.T, s repository.DocumentStore, userID string) int {
	t.Helper()
	docs, err := s.Query(context.Background(), userID, repository.CollectionWorkouts, repository.Query{})
	require.NoError(t, err)
	return len(docs)
}

func TestCommitBatchChunks(t *testing.T) {
	store := memory.New()
	p := NewPipeline(store, WithChunkSize(450))

	workouts := makeWorkouts(1000)
	res, err := p.CommitBatch(context.Background(), "u1", workouts)
	require.NoError(t, err)
	require.Equal(t, 1000, res.Committed)
	require.Equal(t, 3, res.Chunks)
	require.Len(t, res.IDs, 1000)
	require.Equal(t, res.IDs[999], workouts[999].ID)
	require.Equal(t, 1000, countWorkouts(t, store, "u1"))
}

func TestChunkSizeCappedByStore(t *testing.T) {
	p := NewPipeline(memory.New(memory.WithMaxBatchOps(100)), WithChunkSize(450))
	require.Equal(t, 100, p.ChunkSize())

	p = NewPipeline(memory.New())
	require.Equal(t, DefaultChunkSize, p.ChunkSize())
}

func TestCommitBatchPartialFailure(t *testing.T) {
	store := &flakyStore{Store: memory.New(), failAt: 1}
	var logs bytes.Buffer
	p := NewPipeline(store, WithChunkSize(10), WithLogger(log.New(&logs, "", 0)))

	res, err := p.CommitBatch(context.Background(), "u1", makeWorkouts(35))
	var partial *PartialCommitError
	require.ErrorAs(t, err, &partial)
	require.Equal(t, 10, partial.Committed)
	require.Equal(t, 1, partial.FailedChunk)
	require.Equal(t, 4, partial.Chunks)
	require.Equal(t, 10, res.Committed)

	// Chunk 0 stays, chunks 2 and 3 are never attempted.
	require.Equal(t, 2, store.commits)
	require.Equal(t, 10, countWorkouts(t, store, "u1"))
	require.Contains(t, logs.String(), "chunk 2/4 failed")
	require.False(t, p.InFlight("u1"))
}

func TestCommitBatchRejectsEmptyAndInvalid(t *testing.T) {
	p := NewPipeline(memory.New())

	_, err := p.CommitBatch(context.Background(), "u1", nil)
	require.ErrorIs(t, err, ErrNoValidRows)

	bad := makeWorkouts(2)
	bad[1].Load = 1
	_, err = p.CommitBatch(context.Background(), "u1", bad)
	require.ErrorIs(t, err, ErrInvalidCandidates)
}

func TestCommitBatchOnePerUser(t *testing.T) {
	store := &flakyStore{Store: memory.New(), failAt: -1, block: make(chan struct{})}
	p := NewPipeline(store)

	var wg sync.WaitGroup
	var firstErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, firstErr = p.CommitBatch(context.Background(), "u1", makeWorkouts(3))
	}()
	require.Eventually(t, func() bool { return p.InFlight("u1") }, time.Second, time.Millisecond)

	_, err := p.CommitBatch(context.Background(), "u1", makeWorkouts(1))
	require.ErrorIs(t, err, ErrImportInProgress)

	close(store.block)
	wg.Wait()
	require.NoError(t, firstErr)

	_, err = p.CommitBatch(context.Background(), "u1", makeWorkouts(1))
	require.NoError(t, err)
}

func TestCommitBatchIgnoresCancellation(t *testing.T) {
	store := memory.New()
	p := NewPipeline(store, WithChunkSize(2))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := p.CommitBatch(ctx, "u1", makeWorkouts(5))
	require.NoError(t, err)
	require.Equal(t, 5, res.Committed)
}

func TestFingerprintIgnoresOrder(t *testing.T) {
	a := makeWorkouts(3)
	b := []domain.Workout{a[2], a[0], a[1]}
	require.Equal(t, Fingerprint(a), Fingerprint(b))
	require.Len(t, Fingerprint(a), 64)

	a[0].Duration++
	require.NotEqual(t, Fingerprint(a), Fingerprint(b))
}
