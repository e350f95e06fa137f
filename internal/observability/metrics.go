package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	importRowsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tri_tracker",
		Subsystem: "import",
		Name:      "rows_total",
		Help:      "CSV rows seen by import previews, labeled by outcome.",
	}, []string{"outcome"})

	importChunkCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tri_tracker",
		Subsystem: "import",
		Name:      "chunks_total",
		Help:      "Import batch chunks committed to the document store, labeled by result.",
	}, []string{"result"})

	importWorkoutsCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tri_tracker",
		Subsystem: "import",
		Name:      "workouts_committed_total",
		Help:      "Workouts stored by bulk imports.",
	})

	importDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "tri_tracker",
		Subsystem: "import",
		Name:      "commit_duration_seconds",
		Help:      "Time spent committing all chunks of one import.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
	})

	reorderCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tri_tracker",
		Subsystem: "calendar",
		Name:      "reorders_total",
		Help:      "Calendar reorder patch sets committed, labeled by move kind and result.",
	}, []string{"kind", "result"})

	syncFailureCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tri_tracker",
		Subsystem: "calendar",
		Name:      "completion_sync_failures_total",
		Help:      "Completion synchronization sequences that stopped part way, labeled by failing step.",
	}, []string{"step"})

	eventCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tri_tracker",
		Subsystem: "events",
		Name:      "published_total",
		Help:      "Domain events handed to the broker, labeled by type and result.",
	}, []string{"type", "result"})
)

func init() {
	prometheus.MustRegister(
		importRowsCounter,
		importChunkCounter,
		importWorkoutsCounter,
		importDuration,
		reorderCounter,
		syncFailureCounter,
		eventCounter,
	)
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

// RecordPreview counts accepted and skipped rows of a preview.
func RecordPreview(accepted, skipped int) {
	importRowsCounter.WithLabelValues("accepted").Add(float64(accepted))
	importRowsCounter.WithLabelValues("skipped").Add(float64(skipped))
}

// RecordImportChunk counts one chunk commit attempt of the given size.
func RecordImportChunk(ok bool, size int) {
	importChunkCounter.WithLabelValues(result(ok)).Inc()
	if ok {
		importWorkoutsCounter.Add(float64(size))
	}
}

// ObserveImportCommit records the duration of a commit that began at start.
func ObserveImportCommit(start time.Time) {
	importDuration.Observe(time.Since(start).Seconds())
}

// RecordReorder counts one reorder commit.
func RecordReorder(kind string, ok bool) {
	reorderCounter.WithLabelValues(kind, result(ok)).Inc()
}

// RecordCompletionSyncFailure counts a completion sequence that stopped at step.
func RecordCompletionSyncFailure(step string) {
	syncFailureCounter.WithLabelValues(step).Inc()
}

// RecordEvent counts one publish attempt.
func RecordEvent(eventType string, ok bool) {
	eventCounter.WithLabelValues(eventType, result(ok)).Inc()
}
