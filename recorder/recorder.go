// Package recorder provides an in-memory phaseprof.Backend that records the
// order in which ranges are opened and closed. It is meant for unit tests,
// examples, and for dumping a short run as JSON when no profiler UI is
// available.
package recorder

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/luxas/deklarative/phaseprof"
)

// Op is the kind of backend call an Event records.
type Op string

const (
	OpOpenScoped  Op = "open-scoped"
	OpCloseScoped Op = "close-scoped"
	OpOpenAsync   Op = "open-async"
	OpCloseAsync  Op = "close-async"
)

// Event is one recorded backend call. ID pairs an open with its close.
// Depth is the nesting depth of scoped ranges, 1 for an outermost range,
// and 0 for async ranges.
type Event struct {
	Op    Op     `json:"op"`
	ID    uint64 `json:"id"`
	Label string `json:"label"`
	Color string `json:"color"`
	Depth int    `json:"depth,omitempty"`
}

func (e Event) String() string {
	return fmt.Sprintf("%s %s %s", e.Op, e.Label, e.Color)
}

var _ phaseprof.Backend = &Recorder{}

// Recorder is a phaseprof.Backend recording every call. It is safe for
// concurrent use.
type Recorder struct {
	mu           sync.Mutex
	nextID       uint64
	events       []Event
	openAsync    map[uint64]*asyncRange
	doubleCloses int
}

// New returns an empty Recorder.
func New() *Recorder {
	return &Recorder{openAsync: make(map[uint64]*asyncRange)}
}

type scopedRangeKeyStruct struct{}

//nolint:gochecknoglobals
var scopedRangeKey = scopedRangeKeyStruct{}

type scopedRange struct {
	id    uint64
	phase phaseprof.Phase
	depth int
}

type asyncRange struct {
	id     uint64
	phase  phaseprof.Phase
	closed bool
}

func (r *Recorder) record(op Op, id uint64, phase phaseprof.Phase, depth int) {
	r.events = append(r.events, Event{
		Op:    op,
		ID:    id,
		Label: phase.Label,
		Color: phase.Color.String(),
		Depth: depth,
	})
}

// OpenScoped implements phaseprof.Backend.
func (r *Recorder) OpenScoped(ctx context.Context, phase phaseprof.Phase) context.Context {
	depth := 1
	if parent, ok := ctx.Value(scopedRangeKey).(*scopedRange); ok {
		depth = parent.depth + 1
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	sr := &scopedRange{id: r.nextID, phase: phase, depth: depth}
	r.record(OpOpenScoped, sr.id, phase, depth)
	return context.WithValue(ctx, scopedRangeKey, sr)
}

// CloseScoped implements phaseprof.Backend. A context without a scoped
// range is ignored.
func (r *Recorder) CloseScoped(ctx context.Context) {
	sr, ok := ctx.Value(scopedRangeKey).(*scopedRange)
	if !ok {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.record(OpCloseScoped, sr.id, sr.phase, sr.depth)
}

// OpenAsync implements phaseprof.Backend.
func (r *Recorder) OpenAsync(_ context.Context, phase phaseprof.Phase) phaseprof.Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	ar := &asyncRange{id: r.nextID, phase: phase}
	r.openAsync[ar.id] = ar
	r.record(OpOpenAsync, ar.id, phase, 0)
	return ar
}

// CloseAsync implements phaseprof.Backend. Closing the same handle twice is
// counted, see DoubleCloses; foreign handles are ignored.
func (r *Recorder) CloseAsync(h phaseprof.Handle) {
	ar, ok := h.(*asyncRange)
	if !ok {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if ar.closed {
		r.doubleCloses++
		return
	}
	ar.closed = true
	delete(r.openAsync, ar.id)
	r.record(OpCloseAsync, ar.id, ar.phase, 0)
}

// Events returns a copy of all events recorded so far, in call order.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// OpenAsyncLabels returns the labels of async ranges that are still open.
func (r *Recorder) OpenAsyncLabels() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	labels := make([]string, 0, len(r.openAsync))
	for _, ar := range r.openAsync {
		labels = append(labels, ar.phase.Label)
	}
	return labels
}

// OpenAsyncCount returns the number of async ranges that are still open.
func (r *Recorder) OpenAsyncCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.openAsync)
}

// DoubleCloses returns how many times CloseAsync was called with a handle
// that was already closed.
func (r *Recorder) DoubleCloses() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.doubleCloses
}

// Reset forgets all recorded events. Ranges that are open stay open.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = nil
	r.doubleCloses = 0
}

// String returns one line per event.
func (r *Recorder) String() string {
	events := r.Events()
	lines := make([]string, 0, len(events))
	for _, e := range events {
		lines = append(lines, e.String())
	}
	return strings.Join(lines, "\n")
}

// WriteJSON writes the recorded events to w as an indented JSON array.
func (r *Recorder) WriteJSON(w io.Writer) error {
	enc := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r.Events()); err != nil {
		return fmt.Errorf("encoding recorded events: %w", err)
	}
	return nil
}
