package phaseprof

import (
	"context"

	"github.com/go-logr/logr"
	"go.uber.org/multierr"
)

//nolint:gochecknoglobals
var discardProfiler = New().WithBackend(Discard()).WithLogger(logr.Discard()).Build()

// Profiler bundles a Backend with the AsyncTracker correlating async ranges
// on it. Construct it with New when the embedding system starts, and Close
// it when the system stops.
//
// Profiler is safe for concurrent use by multiple goroutines.
type Profiler struct {
	backend Backend
	tracker *AsyncTracker
	log     Logger
}

// DiscardProfiler returns a Profiler that does nothing. It is what FromContext
// returns when no Profiler is registered with the context.
func DiscardProfiler() *Profiler { return discardProfiler }

// New returns a new *ProfilerBuilder.
func New() *ProfilerBuilder {
	return &ProfilerBuilder{}
}

// ProfilerBuilder is a builder-pattern constructor for a *Profiler.
type ProfilerBuilder struct {
	backend  Backend
	log      *Logger
	color    Color
	policy   StalePolicy
	observer AsyncObserver
}

// WithBackend specifies the Backend to render ranges on. Defaults to
// Discard().
//
// A call to this function overwrites any previous value.
func (b *ProfilerBuilder) WithBackend(backend Backend) *ProfilerBuilder {
	b.backend = backend
	return b
}

// WithLogger specifies the Logger. Defaults to GetGlobalLogger() at the
// time Build is called.
//
// A call to this function overwrites any previous value.
func (b *ProfilerBuilder) WithLogger(log Logger) *ProfilerBuilder {
	b.log = &log
	return b
}

// WithAsyncColor overrides the color of async ranges, which is
// ColorIOFlying by default.
//
// A call to this function overwrites any previous value.
func (b *ProfilerBuilder) WithAsyncColor(c Color) *ProfilerBuilder {
	b.color = c
	return b
}

// WithStalePolicy decides what happens with a replaced async range.
// Defaults to CloseStale.
//
// A call to this function overwrites any previous value.
func (b *ProfilerBuilder) WithStalePolicy(p StalePolicy) *ProfilerBuilder {
	b.policy = p
	return b
}

// WithObserver registers an AsyncObserver with the tracker, e.g. one
// exporting metrics.
//
// A call to this function overwrites any previous value.
func (b *ProfilerBuilder) WithObserver(o AsyncObserver) *ProfilerBuilder {
	b.observer = o
	return b
}

// Build builds the Profiler.
func (b *ProfilerBuilder) Build() *Profiler {
	log := GetGlobalLogger()
	if b.log != nil {
		log = *b.log
	}
	// A zero-value Logger has no sink and can't be logged to.
	if log.GetSink() == nil {
		log = logr.Discard()
	}
	backend := orDiscard(b.backend)

	return &Profiler{
		backend: backend,
		log:     log,
		tracker: NewAsyncTracker(backend, AsyncOptions{
			Color:       b.color,
			StalePolicy: b.policy,
			Observer:    b.observer,
			Logger:      log.WithName("async"),
		}),
	}
}

// Backend returns the Backend ranges are rendered on.
func (p *Profiler) Backend() Backend { return p.orDiscard().backend }

// Tracker returns the AsyncTracker used by StartAsync and EndAsync.
func (p *Profiler) Tracker() *AsyncTracker { return p.orDiscard().tracker }

// StartAsync opens an async range for the operation identified by key.
// See AsyncTracker.Start.
func (p *Profiler) StartAsync(ctx context.Context, label string, key CorrelationKey) {
	p.orDiscard().tracker.Start(ctx, label, key)
}

// EndAsync closes the async range for key, if any. See AsyncTracker.End.
func (p *Profiler) EndAsync(key CorrelationKey) {
	p.orDiscard().tracker.End(key)
}

// Close closes abandoned async ranges, and then flushes and shuts down the
// backend if it supports that. Instrumentation calls made after Close are
// still safe, but may not be rendered.
func (p *Profiler) Close(ctx context.Context) error {
	p = p.orDiscard()
	p.tracker.CloseAll()

	var err error
	if f, ok := p.backend.(flusher); ok {
		err = multierr.Append(err, f.ForceFlush(ctx))
	}
	if s, ok := p.backend.(shutdowner); ok {
		err = multierr.Append(err, s.Shutdown(ctx))
	}
	if err != nil {
		p.log.Error(err, "closing profiler backend")
	}
	return err
}

func (p *Profiler) orDiscard() *Profiler {
	if p == nil {
		return discardProfiler
	}
	return p
}
