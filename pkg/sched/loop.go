package sched

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultFrame is the quantum handed to each work callback.
const DefaultFrame = 16 * time.Millisecond

// ErrLoopClosed is returned when submitting to a stopped loop.
var ErrLoopClosed = errors.New("sched: loop closed")

// Loop is a Scheduler backed by a single goroutine. Work callbacks and
// dispatched functions run on that goroutine in arrival order, so code
// that is not safe for concurrent use (an engine and its host) can be
// driven from many goroutines through Dispatch.
type Loop struct {
	frame  time.Duration
	logger *slog.Logger

	mu      sync.Mutex
	pending []func(Deadline)
	wake    chan struct{} // Signal that pending is non-empty

	dispatchCh chan func()
	done       chan struct{}
	closed     atomic.Bool
	stopOnce   sync.Once
}

var _ Scheduler = (*Loop)(nil)

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithFrame sets the quantum given to each work callback.
func WithFrame(d time.Duration) LoopOption {
	return func(l *Loop) {
		if d > 0 {
			l.frame = d
		}
	}
}

// WithLoopLogger sets the logger for recovered panics.
func WithLoopLogger(logger *slog.Logger) LoopOption {
	return func(l *Loop) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithQueueSize sets the capacity of the dispatch queue.
func WithQueueSize(n int) LoopOption {
	return func(l *Loop) {
		if n > 0 {
			l.dispatchCh = make(chan func(), n)
		}
	}
}

// NewLoop creates a loop. Call Run to start it.
func NewLoop(opts ...LoopOption) *Loop {
	l := &Loop{
		frame:      DefaultFrame,
		logger:     slog.Default(),
		wake:       make(chan struct{}, 1),
		dispatchCh: make(chan func(), 256),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// ScheduleWork implements Scheduler. It never blocks, so it may be called
// from inside a running callback.
func (l *Loop) ScheduleWork(cb func(Deadline)) {
	if l.closed.Load() {
		return
	}
	l.mu.Lock()
	l.pending = append(l.pending, cb)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Dispatch queues fn to run on the loop goroutine. It returns false if the
// loop is closed or the queue is full.
func (l *Loop) Dispatch(fn func()) bool {
	if l.closed.Load() {
		return false
	}
	select {
	case l.dispatchCh <- fn:
		return true
	case <-l.done:
		return false
	default:
		l.logger.Warn("dispatch queue full, discarding callback")
		return false
	}
}

// Do runs fn on the loop goroutine and waits for it to return.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	wrapped := func() {
		defer close(finished)
		fn()
	}

	select {
	case l.dispatchCh <- wrapped:
	case <-l.done:
		return ErrLoopClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-finished:
		return nil
	case <-l.done:
		return ErrLoopClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run processes work and dispatched functions until ctx is cancelled or
// Stop is called.
func (l *Loop) Run(ctx context.Context) error {
	for {
		// Alternate quanta with dispatched functions so events land
		// between work units.
		if cb := l.popWork(); cb != nil {
			l.runWork(cb)
			select {
			case fn := <-l.dispatchCh:
				l.execute(fn)
			default:
			}
			continue
		}

		select {
		case fn := <-l.dispatchCh:
			l.execute(fn)

		case <-l.wake:

		case <-l.done:
			return nil

		case <-ctx.Done():
			l.Stop()
			return ctx.Err()
		}
	}
}

// Stop shuts the loop down. Queued work is discarded.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() {
		l.closed.Store(true)
		close(l.done)
	})
}

// Done returns a channel closed once Stop has been called.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

func (l *Loop) popWork() func(Deadline) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.pending) == 0 {
		return nil
	}
	cb := l.pending[0]
	l.pending[0] = nil
	l.pending = l.pending[1:]
	return cb
}

func (l *Loop) runWork(cb func(Deadline)) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("work panic",
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()
	cb(After(l.frame))
}

func (l *Loop) execute(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("dispatch panic",
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()
	fn()
}
