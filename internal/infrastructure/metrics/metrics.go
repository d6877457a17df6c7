package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the sentinel service
type Metrics struct {
	// Session metrics
	ActiveSessions   prometheus.Gauge
	SessionStarts    prometheus.Counter
	SessionFailures  *prometheus.CounterVec
	SessionStops     prometheus.Counter
	RestoreDuration  prometheus.Histogram

	// Ingestion metrics
	EventsIngested *prometheus.CounterVec
	EditsDetected  prometheus.Counter

	// Secret media metrics
	SecretsDetected *prometheus.CounterVec
	CaptureResults  *prometheus.CounterVec

	// Reconciliation metrics
	DeletionsDetected prometheus.Counter
	SweepsSkipped     prometheus.Counter
	SweepDuration     prometheus.Histogram

	// Delivery metrics
	NotifyErrors prometheus.Counter
}

var (
	// DefaultMetrics is the default metrics instance
	DefaultMetrics *Metrics
	once           sync.Once
)

// GetDefaultMetrics returns the singleton metrics instance
func GetDefaultMetrics() *Metrics {
	once.Do(func() {
		DefaultMetrics = NewMetrics()
	})
	return DefaultMetrics
}

func init() {
	// Initialize DefaultMetrics on package import
	GetDefaultMetrics()
}

// NewMetrics creates a new Metrics instance with all counters and gauges
func NewMetrics() *Metrics {
	return &Metrics{
		// Session metrics
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "sentinel_active_sessions",
			Help: "Current number of active watcher sessions",
		}),
		SessionStarts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sentinel_session_starts_total",
			Help: "Total number of watcher sessions started",
		}),
		SessionFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sentinel_session_failures_total",
				Help: "Total number of watcher session start failures",
			},
			[]string{"reason"},
		),
		SessionStops: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sentinel_session_stops_total",
			Help: "Total number of watcher sessions stopped",
		}),
		RestoreDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "sentinel_session_restore_duration_seconds",
			Help:    "Duration of bulk session restore in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),

		// Ingestion metrics
		EventsIngested: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sentinel_events_ingested_total",
				Help: "Total number of message events ingested",
			},
			[]string{"media_kind"},
		),
		EditsDetected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sentinel_edits_detected_total",
			Help: "Total number of message edits detected",
		}),

		// Secret media metrics
		SecretsDetected: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sentinel_secrets_detected_total",
				Help: "Total number of secret media detections",
			},
			[]string{"tier"},
		),
		CaptureResults: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sentinel_capture_results_total",
				Help: "Total number of secret media capture attempts by outcome",
			},
			[]string{"outcome"},
		),

		// Reconciliation metrics
		DeletionsDetected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sentinel_deletions_detected_total",
			Help: "Total number of silent deletions detected",
		}),
		SweepsSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sentinel_sweeps_skipped_total",
			Help: "Total number of reconciliation ticks skipped due to the concurrency cap",
		}),
		SweepDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "sentinel_sweep_duration_seconds",
			Help:    "Duration of reconciliation sweeps in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),

		// Delivery metrics
		NotifyErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sentinel_notify_errors_total",
			Help: "Total number of delivery bot send failures",
		}),
	}
}

// EventIngested records one ingested message event
func (m *Metrics) EventIngested(kind string) {
	if kind == "" {
		kind = "text"
	}
	m.EventsIngested.WithLabelValues(kind).Inc()
}

// EditDetected records one detected message edit
func (m *Metrics) EditDetected() {
	m.EditsDetected.Inc()
}

// SecretDetected records one secret media detection with the deciding tier
func (m *Metrics) SecretDetected(tier string) {
	if tier == "" {
		tier = "unknown"
	}
	m.SecretsDetected.WithLabelValues(tier).Inc()
}

// CaptureResult records the outcome of one capture attempt
func (m *Metrics) CaptureResult(outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}
	m.CaptureResults.WithLabelValues(outcome).Inc()
}

// DeletionDetected records one detected silent deletion
func (m *Metrics) DeletionDetected() {
	m.DeletionsDetected.Inc()
}

// SweepCompleted records one finished reconciliation sweep
func (m *Metrics) SweepCompleted(duration time.Duration) {
	m.SweepDuration.Observe(duration.Seconds())
}

// SweepSkipped records one tick skipped because both sweep slots were busy
func (m *Metrics) SweepSkipped() {
	m.SweepsSkipped.Inc()
}

// NotifyError records one delivery failure
func (m *Metrics) NotifyError() {
	m.NotifyErrors.Inc()
}

// UpdateActiveSessions updates the active session gauge
func (m *Metrics) UpdateActiveSessions(count int) {
	m.ActiveSessions.Set(float64(count))
}

// RecordSessionStart records a successful session start
func (m *Metrics) RecordSessionStart() {
	m.SessionStarts.Inc()
}

// RecordSessionFailure records a session start failure with its reason
func (m *Metrics) RecordSessionFailure(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	m.SessionFailures.WithLabelValues(reason).Inc()
}

// RecordSessionStop records a session stop
func (m *Metrics) RecordSessionStop() {
	m.SessionStops.Inc()
}

// RecordRestore records the duration of a bulk session restore
func (m *Metrics) RecordRestore(duration time.Duration) {
	m.RestoreDuration.Observe(duration.Seconds())
}
