package phaseprof

import (
	"context"

	"github.com/go-logr/logr"
	"github.com/luxas/deklarative/phaseprof/registry"
)

// StalePolicy decides what happens to a still-open async range when its
// CorrelationKey is started again.
type StalePolicy int

const (
	// CloseStale closes the replaced range, so that abandoned operations
	// don't grow the backend's set of open ranges. This is the default.
	CloseStale StalePolicy = iota
	// LeakStale drops the replaced handle without closing it. The range
	// stays open in the observer's view forever.
	LeakStale
)

func (p StalePolicy) String() string {
	switch p {
	case CloseStale:
		return "close"
	case LeakStale:
		return "leak"
	default:
		return "unknown"
	}
}

// AsyncObserver is notified about async range bookkeeping. Calls are made
// outside of the tracker's lock, possibly from many goroutines at once.
//
// Notifications for one key are not ordered across goroutines: when End
// runs on a completion goroutine right after Start, AsyncEnded may arrive
// before the matching AsyncStarted. Counts derived from the notifications
// are only consistent once both have been delivered.
type AsyncObserver interface {
	// AsyncStarted is called after a range for key was opened.
	AsyncStarted(key CorrelationKey)
	// AsyncEnded is called after the range for key was closed by End.
	AsyncEnded(key CorrelationKey)
	// AsyncReplaced is called when Start overwrote a still-open range.
	AsyncReplaced(key CorrelationKey, policy StalePolicy)
	// AsyncMissed is called when End found no open range for key.
	AsyncMissed(key CorrelationKey)
}

// AsyncOptions configures an AsyncTracker. The zero value is usable.
type AsyncOptions struct {
	// Color is used for every async range. Defaults to ColorIOFlying.
	Color Color
	// StalePolicy defaults to CloseStale.
	StalePolicy StalePolicy
	// Observer, if set, is notified about starts, ends, replacements and
	// misses.
	Observer AsyncObserver
	// Logger defaults to logr.Discard().
	Logger Logger
}

// AsyncTracker correlates the start of an asynchronous operation with its
// end, which may happen on another goroutine, by a CorrelationKey.
// It is safe for concurrent use.
type AsyncTracker struct {
	backend  Backend
	open     *registry.Registry[CorrelationKey, Handle]
	color    Color
	policy   StalePolicy
	observer AsyncObserver
	log      Logger
}

// NewAsyncTracker returns an AsyncTracker that opens and closes ranges on
// backend. A nil backend disables profiling but keeps the bookkeeping.
func NewAsyncTracker(backend Backend, opts AsyncOptions) *AsyncTracker {
	t := &AsyncTracker{
		backend:  orDiscard(backend),
		open:     registry.New[CorrelationKey, Handle](),
		color:    opts.Color,
		policy:   opts.StalePolicy,
		observer: opts.Observer,
		log:      opts.Logger,
	}
	if t.color == 0 {
		t.color = ColorIOFlying
	}
	if t.log.GetSink() == nil {
		t.log = logr.Discard()
	}
	return t
}

// Start opens an async range labelled label and registers it under key.
//
// If key already has an open range, the new one replaces it, and the old
// one is closed or leaked depending on the StalePolicy.
func (t *AsyncTracker) Start(ctx context.Context, label string, key CorrelationKey) {
	if ctx == nil {
		ctx = context.Background()
	}
	h := t.backend.OpenAsync(ctx, Phase{Label: label, Color: t.color})

	prev, replaced := t.open.Swap(key, h)
	if t.observer != nil {
		t.observer.AsyncStarted(key)
	}
	if !replaced {
		return
	}

	if t.policy == CloseStale {
		t.backend.CloseAsync(prev)
	}
	t.log.V(1).Info("replaced open async span", "key", key, "label", label, "stale-policy", t.policy.String())
	if t.observer != nil {
		t.observer.AsyncReplaced(key, t.policy)
	}
}

// End closes the async range registered under key. If there is none,
// because it already ended, never started or this is a duplicate
// completion, End does nothing.
func (t *AsyncTracker) End(key CorrelationKey) {
	h, ok := t.open.Take(key)
	if !ok {
		t.log.V(1).Info("no open async span", "key", key)
		if t.observer != nil {
			t.observer.AsyncMissed(key)
		}
		return
	}

	t.backend.CloseAsync(h)
	if t.observer != nil {
		t.observer.AsyncEnded(key)
	}
}

// IsOpen reports whether key currently has an open async range.
func (t *AsyncTracker) IsOpen(key CorrelationKey) bool { return t.open.Has(key) }

// Len returns the number of open async ranges.
func (t *AsyncTracker) Len() int { return t.open.Len() }

// CloseAll closes every open async range and returns how many there were.
// It is meant to be called when the embedding system shuts down; the
// tracker stays usable afterwards.
func (t *AsyncTracker) CloseAll() int {
	drained := t.open.Drain()
	for key, h := range drained {
		t.backend.CloseAsync(h)
		if t.observer != nil {
			t.observer.AsyncEnded(key)
		}
	}
	if len(drained) != 0 {
		t.log.Info("closed abandoned async spans", "count", len(drained))
	}
	return len(drained)
}
