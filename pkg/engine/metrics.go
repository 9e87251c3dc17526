package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig configures engine instrumentation.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "reconciler").
	Namespace string

	// Subsystem is the metrics subsystem (default: "engine").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for pass and commit duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures engine instrumentation.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "reconciler",
		Subsystem: "engine",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Pass results reported by the passes_total counter.
const (
	resultCommitted = "committed"
	resultAborted   = "aborted"
	resultDiscarded = "discarded"
)

// Metrics holds the Prometheus collectors for an engine. A nil *Metrics
// records nothing.
type Metrics struct {
	passes         *prometheus.CounterVec
	units          prometheus.Counter
	quanta         prometheus.Histogram
	passDuration   prometheus.Histogram
	commitDuration prometheus.Histogram
	hostOps        *prometheus.CounterVec
	updates        prometheus.Counter
	staleUpdates   prometheus.Counter
}

// NewMetrics creates and registers the engine collectors.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		passes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "passes_total",
			Help:        "Reconciliation passes by outcome",
			ConstLabels: config.ConstLabels,
		}, []string{"result"}),

		units: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "units_total",
			Help:        "Fibers processed across all passes",
			ConstLabels: config.ConstLabels,
		}),

		quanta: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "pass_quanta",
			Help:        "Scheduler callbacks spanned by each committed pass",
			ConstLabels: config.ConstLabels,
			Buckets:     prometheus.ExponentialBuckets(1, 2, 8),
		}),

		passDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "pass_duration_seconds",
			Help:        "Time from pass start to commit in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		commitDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "commit_duration_seconds",
			Help:        "Commit phase duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		hostOps: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "host_ops_total",
			Help:        "Host mutations issued by commits",
			ConstLabels: config.ConstLabels,
		}, []string{"op"}),

		updates: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "state_updates_total",
			Help:        "State updates enqueued",
			ConstLabels: config.ConstLabels,
		}),

		staleUpdates: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "stale_updates_total",
			Help:        "State updates dropped because their setter outlived its tree",
			ConstLabels: config.ConstLabels,
		}),
	}
}

func (m *Metrics) pass(result string) {
	if m == nil {
		return
	}
	m.passes.WithLabelValues(result).Inc()
}

func (m *Metrics) unit() {
	if m == nil {
		return
	}
	m.units.Inc()
}

func (m *Metrics) committed(info CommitInfo, commit time.Duration) {
	if m == nil {
		return
	}
	m.passes.WithLabelValues(resultCommitted).Inc()
	m.quanta.Observe(float64(info.Quanta))
	m.passDuration.Observe(info.Duration.Seconds())
	m.commitDuration.Observe(commit.Seconds())
}

func (m *Metrics) hostOp(op string) {
	if m == nil {
		return
	}
	m.hostOps.WithLabelValues(op).Inc()
}

func (m *Metrics) update(stale bool) {
	if m == nil {
		return
	}
	if stale {
		m.staleUpdates.Inc()
		return
	}
	m.updates.Inc()
}
