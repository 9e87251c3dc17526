package engine

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// DefaultMinRemaining is the slack below which a quantum yields.
const DefaultMinRemaining = time.Millisecond

// Config holds engine tunables.
type Config struct {
	// MinRemaining is the minimum time that must be left in the quantum
	// to start another unit of work.
	// Default: 1ms
	MinRemaining time.Duration

	// Debug logs every unit of work and host mutation at debug level.
	Debug bool
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		MinRemaining: DefaultMinRemaining,
	}
}

// CommitInfo summarizes one committed pass.
type CommitInfo struct {
	Epoch     uint64        // Epoch of the newly committed tree
	Units     int           // Fibers processed
	Quanta    int           // Scheduler callbacks the pass spanned
	Deletions int           // Subtrees removed
	Duration  time.Duration // From pass start to end of commit
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig replaces the engine configuration.
func WithConfig(cfg Config) Option {
	return func(e *Engine) {
		if cfg.MinRemaining < 0 {
			cfg.MinRemaining = 0
		}
		e.cfg = cfg
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithTracer sets the tracer used for pass and commit spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) {
		if tracer != nil {
			e.tracer = tracer
		}
	}
}

// OnCommit registers fn to run after every successful commit.
func OnCommit(fn func(CommitInfo)) Option {
	return func(e *Engine) {
		e.onCommit = append(e.onCommit, fn)
	}
}

// OnError registers fn to receive render and commit errors raised from
// scheduler callbacks.
func OnError(fn func(error)) Option {
	return func(e *Engine) {
		e.onError = append(e.onError, fn)
	}
}
