package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Ali-Herrera/tri-tracker/internal/domain"
	"github.com/Ali-Herrera/tri-tracker/internal/events"
	"github.com/Ali-Herrera/tri-tracker/internal/importer"
	"github.com/Ali-Herrera/tri-tracker/internal/observability"
	"github.com/Ali-Herrera/tri-tracker/internal/repository"
	"github.com/Ali-Herrera/tri-tracker/internal/storage"
)

// DefaultImportIntensity is the RPE given to imported rows when the request
// does not choose one.
const DefaultImportIntensity = 5

// ImportSettings tunes previews.
type ImportSettings struct {
	SampleRows   int // rows read by unit inference
	PreviewLimit int // normalized rows echoed back by Preview
}

// ImportRequest names a CSV export and how to read it. Exactly one of CSV and
// ObjectKey is set. A nil Mapping is inferred from the file.
type ImportRequest struct {
	CSV          string
	ObjectKey    string
	Mapping      *importer.Mapping
	Intensity    int
	Force        bool // import even if the same batch was imported before
	DeleteSource bool // remove the object after a complete import
}

// ImportPreview is what a commit of the same request would store.
type ImportPreview struct {
	Headers  []string             `json:"headers"`
	Mapping  importer.Mapping     `json:"mapping"`
	Total    int                  `json:"total"`
	Accepted int                  `json:"accepted"`
	Skipped  int                  `json:"skipped"`
	Missing  []string             `json:"missing,omitempty"`
	Sample   []importer.Candidate `json:"sample"`
}

// --- Service Interface ---
type ImportService interface {
	Preview(ctx context.Context, userID string, req ImportRequest) (*ImportPreview, error)
	// Commit stores the accepted rows. On a partial failure both the job and
	// a *importer.PartialCommitError are returned.
	Commit(ctx context.Context, userID string, req ImportRequest) (*domain.ImportJob, error)
	GetJob(ctx context.Context, userID, id string) (*domain.ImportJob, error)
}

// --- Service Implementation ---

type importService struct {
	pipeline  *importer.Pipeline
	jobs      *repository.ImportJobRepository
	source    storage.ObjectSource // nil without object storage
	publisher events.Publisher
	settings  ImportSettings
}

// NewImportService creates the import service. source may be nil, in which
// case only inline CSV text is accepted.
func NewImportService(store repository.DocumentStore, pipeline *importer.Pipeline, source storage.ObjectSource, publisher events.Publisher, settings ImportSettings) ImportService {
	if settings.SampleRows <= 0 {
		settings.SampleRows = 50
	}
	if settings.PreviewLimit <= 0 {
		settings.PreviewLimit = 8
	}
	return &importService{
		pipeline:  pipeline,
		jobs:      repository.NewImportJobRepository(store),
		source:    source,
		publisher: publisher,
		settings:  settings,
	}
}

// prepared is a parsed request ready to preview or commit.
type prepared struct {
	table     *importer.Table
	mapping   importer.Mapping
	intensity int
	preview   importer.Preview
}

func (s *importService) load(ctx context.Context, req ImportRequest) (*importer.Table, error) {
	var r io.Reader
	switch {
	case req.CSV != "" && req.ObjectKey != "":
		return nil, invalid(errors.New("send either csv text or an object key, not both"))
	case req.CSV != "":
		r = strings.NewReader(req.CSV)
	case req.ObjectKey != "":
		if s.source == nil {
			return nil, invalid(errors.New("object storage is not configured"))
		}
		rc, err := s.source.Open(ctx, req.ObjectKey)
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		r = rc
	default:
		return nil, invalid(errors.New("csv text or object key is required"))
	}

	t, err := importer.ReadCSV(r)
	if err != nil {
		if errors.Is(err, storage.ErrObjectTooLarge) {
			return nil, err
		}
		return nil, invalid(err)
	}
	return t, nil
}

func (s *importService) prepare(ctx context.Context, req ImportRequest) (*prepared, error) {
	// 1. Parse the file
	t, err := s.load(ctx, req)
	if err != nil {
		return nil, err
	}

	// 2. Resolve the mapping
	var m importer.Mapping
	if req.Mapping != nil {
		m = *req.Mapping
	} else {
		m = importer.SuggestMapping(t, s.settings.SampleRows)
	}
	if err := m.Validate(); err != nil {
		return nil, invalid(err)
	}
	for _, col := range []string{m.DateColumn, m.SportColumn, m.DurationColumn, m.DistanceColumn} {
		if col != "" && !slices.Contains(t.Headers, col) {
			return nil, invalid(fmt.Errorf("column %q is not in the file", col))
		}
	}

	// 3. Normalize
	intensity := req.Intensity
	if intensity == 0 {
		intensity = DefaultImportIntensity
	}
	if intensity < domain.MinIntensity || intensity > domain.MaxIntensity {
		return nil, invalid(fmt.Errorf("intensity must be between %d and %d", domain.MinIntensity, domain.MaxIntensity))
	}
	p := importer.GeneratePreview(t.Rows, m, intensity)
	return &prepared{table: t, mapping: m, intensity: intensity, preview: p}, nil
}

// Preview normalizes the file without writing anything.
func (s *importService) Preview(ctx context.Context, userID string, req ImportRequest) (*ImportPreview, error) {
	p, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	observability.RecordPreview(len(p.preview.Workouts), p.preview.Skipped)

	sample := p.preview.Workouts
	if len(sample) > s.settings.PreviewLimit {
		sample = sample[:s.settings.PreviewLimit]
	}
	return &ImportPreview{
		Headers:  p.table.Headers,
		Mapping:  p.mapping,
		Total:    len(p.table.Rows),
		Accepted: len(p.preview.Workouts),
		Skipped:  p.preview.Skipped,
		Missing:  p.preview.Missing,
		Sample:   sample,
	}, nil
}

// duplicateOf returns a finished job that stored the same batch.
func (s *importService) duplicateOf(ctx context.Context, userID, fingerprint string) (*domain.ImportJob, error) {
	jobs, err := s.jobs.FindByFingerprint(ctx, userID, fingerprint)
	if err != nil {
		return nil, err
	}
	for i := range jobs {
		if jobs[i].Status == domain.ImportCompleted || jobs[i].Status == domain.ImportPartial {
			return &jobs[i], nil
		}
	}
	return nil, nil
}

func (s *importService) Commit(ctx context.Context, userID string, req ImportRequest) (*domain.ImportJob, error) {
	// 1. Normalize the file
	p, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(p.preview.Missing) > 0 {
		return nil, &importer.MappingError{Missing: p.preview.Missing}
	}
	if len(p.preview.Workouts) == 0 {
		return nil, importer.ErrNoValidRows
	}
	workouts := make([]domain.Workout, len(p.preview.Workouts))
	for i, c := range p.preview.Workouts {
		workouts[i] = c.Workout()
	}

	// 2. Refuse a batch that was already imported
	fingerprint := importer.Fingerprint(workouts)
	if !req.Force {
		prev, err := s.duplicateOf(ctx, userID, fingerprint)
		if err != nil {
			return nil, err
		}
		if prev != nil {
			return prev, fmt.Errorf("%w (import %s)", ErrDuplicateImport, prev.ID)
		}
	}
	if s.pipeline.InFlight(userID) {
		return nil, importer.ErrImportInProgress
	}

	// 3. Record the job and commit. Nothing below observes cancellation.
	ctx = context.WithoutCancel(ctx)
	job := &domain.ImportJob{
		ID:          uuid.NewString(),
		Fingerprint: fingerprint,
		Source:      req.ObjectKey,
		Total:       len(p.table.Rows),
		Skipped:     p.preview.Skipped,
		Status:      domain.ImportRunning,
		StartedAt:   time.Now().UTC(),
	}
	if err := s.jobs.Put(ctx, userID, job); err != nil {
		return nil, err
	}
	for i := range workouts {
		workouts[i].ImportID = job.ID
	}

	res, commitErr := s.pipeline.CommitBatch(ctx, userID, workouts)
	if errors.Is(commitErr, importer.ErrImportInProgress) {
		// Lost the race to another import; nothing was written for this job.
		if err := s.jobs.Delete(ctx, userID, job.ID); err != nil {
			log.Printf("WARN: Failed to discard import job %s for user %s: %v", job.ID, userID, err)
		}
		return nil, commitErr
	}

	// 4. Finish the job record
	finished := time.Now().UTC()
	job.FinishedAt = &finished
	job.Committed = res.Committed
	var partial *importer.PartialCommitError
	switch {
	case commitErr == nil:
		job.Status = domain.ImportCompleted
	case errors.As(commitErr, &partial) && partial.Committed > 0:
		job.Status = domain.ImportPartial
		job.Error = commitErr.Error()
	default:
		job.Status = domain.ImportFailed
		job.Error = commitErr.Error()
	}
	if err := s.jobs.Put(ctx, userID, job); err != nil {
		log.Printf("ERROR: Import job %s for user %s finished as %s but could not be saved: %v", job.ID, userID, job.Status, err)
	}
	log.Printf("INFO: Import %s for user %s: %s, %d of %d rows stored, %d skipped", job.ID, userID, job.Status, job.Committed, job.Total, job.Skipped)

	if job.Committed > 0 {
		events.Emit(ctx, s.publisher, events.TypeImportCommitted, userID, job)
	}
	if commitErr != nil {
		return job, commitErr
	}

	// 5. Optionally remove the source export
	if req.DeleteSource && req.ObjectKey != "" && s.source != nil {
		if err := s.source.DeleteObject(ctx, req.ObjectKey); err != nil {
			log.Printf("WARN: Import %s stored but source %s was not deleted: %v", job.ID, req.ObjectKey, err)
		}
	}
	return job, nil
}

func (s *importService) GetJob(ctx context.Context, userID, id string) (*domain.ImportJob, error) {
	job, err := s.jobs.Get(ctx, userID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrImportNotFound
		}
		return nil, err
	}
	return job, nil
}
