// Package metrics exposes the pipeline's Prometheus collectors.
//
// Collectors are registered with the default registry on package load, so
// any component may record into them without setup. Batch jobs such as
// train or evaluate exit before a scrape could happen; they hand their
// samples to a Pushgateway with Push instead.
//
// # Basic Usage
//
//	timer := metrics.NewTimer("train")
//	trainModel()
//	timer.ObserveDuration()
//
//	metrics.RowsLoaded.WithLabelValues("csv").Add(float64(ds.Rows()))
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/Dawood-ML/uv-project-management/pkg/errors"
)

const namespace = "churn"

var (
	// RowsLoaded counts rows read from data sources.
	// Labels: format (csv/arrow)
	RowsLoaded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_loaded_total",
			Help:      "Total number of rows loaded from data sources",
		},
		[]string{"format"},
	)

	// ValidationRejections counts inference batches refused before reaching a model.
	// Labels: reason (missing/infinite)
	ValidationRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_rejections_total",
			Help:      "Inference batches rejected by input validation",
		},
		[]string{"reason"},
	)

	// PredictionsServed counts rows that received a prediction.
	PredictionsServed = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_served_total",
			Help:      "Total number of rows predicted",
		},
	)

	// StageDuration tracks how long each pipeline stage takes, in seconds.
	// Labels: stage (load/split/fit_transform/train/evaluate/predict/save)
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Pipeline stage duration in seconds",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 30, 120},
		},
		[]string{"stage"},
	)

	// LastROCAUC holds the ROC-AUC of the most recent evaluation.
	// Labels: model_type
	LastROCAUC = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_roc_auc",
			Help:      "ROC-AUC of the most recently evaluated model",
		},
		[]string{"model_type"},
	)

	// PredictionThroughput tracks rows predicted per second in the last batch.
	PredictionThroughput = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "prediction_throughput_rows_per_second",
			Help:      "Rows predicted per second in the most recent batch",
		},
	)
)

// Timer measures one pipeline stage and records it into StageDuration.
type Timer struct {
	start time.Time
	stage string
}

// NewTimer creates a new timer and starts timing immediately.
func NewTimer(stage string) *Timer {
	return &Timer{start: time.Now(), stage: stage}
}

// Stop returns the elapsed duration since creation without recording it.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}

// ObserveDuration records the elapsed time under the timer's stage and
// returns it. Calling it twice records twice.
func (t *Timer) ObserveDuration() time.Duration {
	d := time.Since(t.start)
	StageDuration.WithLabelValues(t.stage).Observe(d.Seconds())
	return d
}

// ThroughputTracker computes rows per second over a window and publishes it
// to PredictionThroughput. Safe for concurrent use.
type ThroughputTracker struct {
	mu        sync.Mutex
	count     int64
	lastReset time.Time
}

// NewThroughputTracker starts a tracking window.
func NewThroughputTracker() *ThroughputTracker {
	return &ThroughputTracker{lastReset: time.Now()}
}

// Increment adds n to the row count.
func (t *ThroughputTracker) Increment(n int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.count += n
}

// GetAndReset returns rows per second since the last reset, publishes it,
// and starts a new window.
func (t *ThroughputTracker) GetAndReset() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	elapsed := time.Since(t.lastReset).Seconds()
	if elapsed == 0 {
		return 0
	}
	throughput := float64(t.count) / elapsed

	t.count = 0
	t.lastReset = time.Now()
	PredictionThroughput.Set(throughput)
	return throughput
}

// Push sends every collector in the default registry to a Pushgateway
// under job. An empty url is a no-op.
func Push(url, job string) error {
	if url == "" {
		return nil
	}
	if err := push.New(url, job).Gatherer(prometheus.DefaultGatherer).Push(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to push metrics").
			WithDetail("url", url)
	}
	return nil
}
