package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/systmms/credstore/pkg/credstore"
)

// Recorder records credential store metrics. It implements
// credstore.Observer.
type Recorder struct {
	registry *prometheus.Registry

	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	entriesRemoved    prometheus.Counter
}

// NewRecorder creates a Recorder with its own registry. The backend label
// is attached to every series.
func NewRecorder(backend string) *Recorder {
	registry := prometheus.NewRegistry()
	factory := promauto.With(prometheus.WrapRegistererWith(prometheus.Labels{"backend": backend}, registry))

	return &Recorder{
		registry: registry,

		operationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "credstore_operations_total",
				Help: "Total number of credential store operations by result code",
			},
			[]string{"operation", "code"},
		),

		operationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "credstore_operation_duration_seconds",
				Help:    "Duration of credential store operations in seconds, including enclave prompts",
				Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 30},
			},
			[]string{"operation"},
		),

		entriesRemoved: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "credstore_collection_entries_removed_total",
				Help: "Total number of entries removed by collection deletes",
			},
		),
	}
}

// ObserveOperation records one operation outcome.
func (r *Recorder) ObserveOperation(op string, code credstore.Code, elapsed time.Duration) {
	r.operationsTotal.WithLabelValues(op, string(code)).Inc()
	r.operationDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// ObserveCollectionDeleted records how many entries a collection delete
// removed. Collection names are caller supplied and are not used as labels.
func (r *Recorder) ObserveCollectionDeleted(_ string, removed int) {
	r.entriesRemoved.Add(float64(removed))
}

// Registry returns the registry holding the recorder's metrics.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// OperationsTotal returns the operations counter for testing.
func (r *Recorder) OperationsTotal() *prometheus.CounterVec {
	return r.operationsTotal
}

// EntriesRemoved returns the removed-entries counter for testing.
func (r *Recorder) EntriesRemoved() prometheus.Counter {
	return r.entriesRemoved
}

// WriteTextfile writes the current metrics in the node_exporter textfile
// collector format. The file is replaced atomically.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}

// Ensure Recorder implements credstore.Observer
var _ credstore.Observer = (*Recorder)(nil)
