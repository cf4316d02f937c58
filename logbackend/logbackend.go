// Package logbackend provides a phaseprof.Backend that logs every range
// opened and closed through it, and forwards the calls to a wrapped Backend.
//
// The log verbosity grows with the nesting depth of scoped ranges, so that
// e.g. V(0) shows only the outermost phases and V(2) also shows phases two
// levels down.
package logbackend

import (
	"context"

	"github.com/go-logr/logr"
	"github.com/luxas/deklarative/phaseprof"
)

// Depth is the nesting depth of a scoped range. Outermost ranges have depth 0.
type Depth uint64

const (
	labelKey = "phase"
	colorKey = "color"
	depthKey = "depth"
)

// LevelIncreaser returns how many log levels to add for a scoped range at
// the given depth, relative to its parent.
type LevelIncreaser func(depth Depth) int

// NoLevelIncrease logs every range at the base verbosity.
func NoLevelIncrease() LevelIncreaser { return func(Depth) int { return 0 } }

// NthLevelIncrease increases the verbosity once every n levels of depth.
// The default is NthLevelIncrease(1), i.e. log = log.V(1) for each child.
func NthLevelIncrease(n uint64) LevelIncreaser {
	if n == 0 {
		return NoLevelIncrease()
	}
	return func(d Depth) int {
		if d == 0 || uint64(d)%n != 0 {
			return 0
		}
		return 1
	}
}

// New returns a *Builder logging to log.
func New(log logr.Logger) *Builder {
	return &Builder{log: log, increaser: NthLevelIncrease(1), maxDepth: ^Depth(0)}
}

// Builder is a builder-pattern constructor for a *Backend.
type Builder struct {
	log       logr.Logger
	next      phaseprof.Backend
	increaser LevelIncreaser
	maxDepth  Depth
}

// Wrap forwards every call to next after logging it. Defaults to
// phaseprof.Discard().
//
// A call to this function overwrites any previous value.
func (b *Builder) Wrap(next phaseprof.Backend) *Builder {
	b.next = next
	return b
}

// WithLevelIncreaser sets how verbosity grows with depth.
//
// A call to this function overwrites any previous value.
func (b *Builder) WithLevelIncreaser(lli LevelIncreaser) *Builder {
	b.increaser = lli
	return b
}

// WithMaxDepth stops logging scoped ranges deeper than maxDepth. They are
// still forwarded.
//
// A call to this function overwrites any previous value.
func (b *Builder) WithMaxDepth(maxDepth Depth) *Builder {
	b.maxDepth = maxDepth
	return b
}

// Build builds the *Backend.
func (b *Builder) Build() *Backend {
	next, increaser := b.next, b.increaser
	if next == nil {
		next = phaseprof.Discard()
	}
	if increaser == nil {
		increaser = NoLevelIncrease()
	}
	return &Backend{
		next:      next,
		log:       b.log,
		increaser: increaser,
		maxDepth:  b.maxDepth,
	}
}

var _ phaseprof.Backend = &Backend{}

// Backend is a composite phaseprof.Backend that logs and forwards.
type Backend struct {
	next      phaseprof.Backend
	log       logr.Logger
	increaser LevelIncreaser
	maxDepth  Depth
}

type scopeKeyStruct struct{}

var scopeKey = scopeKeyStruct{} //nolint:gochecknoglobals

type scope struct {
	phase   phaseprof.Phase
	depth   Depth
	log     logr.Logger
	enabled bool
}

func scopeFrom(ctx context.Context) (*scope, bool) {
	s, ok := ctx.Value(scopeKey).(*scope)
	return s, ok
}

// OpenScoped implements phaseprof.Backend.
func (b *Backend) OpenScoped(ctx context.Context, phase phaseprof.Phase) context.Context {
	s := &scope{phase: phase, log: b.log}
	if parent, ok := scopeFrom(ctx); ok {
		s.depth = parent.depth + 1
		s.log = parent.log
	}
	s.log = s.log.V(b.increaser(s.depth))
	s.enabled = s.depth <= b.maxDepth
	if s.enabled {
		s.log.Info("opening phase", labelKey, phase.Label, colorKey, phase.Color.String(), depthKey, uint64(s.depth))
	}
	return context.WithValue(b.next.OpenScoped(ctx, phase), scopeKey, s)
}

// CloseScoped implements phaseprof.Backend.
func (b *Backend) CloseScoped(ctx context.Context) {
	if s, ok := scopeFrom(ctx); ok && s.enabled {
		s.log.Info("closing phase", labelKey, s.phase.Label, depthKey, uint64(s.depth))
	}
	b.next.CloseScoped(ctx)
}

type asyncHandle struct {
	inner phaseprof.Handle
	phase phaseprof.Phase
}

// OpenAsync implements phaseprof.Backend. Async ranges are logged at the
// base verbosity, whatever the depth of ctx.
func (b *Backend) OpenAsync(ctx context.Context, phase phaseprof.Phase) phaseprof.Handle {
	b.log.Info("opening async phase", labelKey, phase.Label, colorKey, phase.Color.String())
	return &asyncHandle{
		inner: b.next.OpenAsync(ctx, phase),
		phase: phase,
	}
}

// CloseAsync implements phaseprof.Backend. Handles that were not returned
// by this Backend are forwarded as-is.
func (b *Backend) CloseAsync(h phaseprof.Handle) {
	ah, ok := h.(*asyncHandle)
	if !ok {
		b.next.CloseAsync(h)
		return
	}
	b.log.Info("closing async phase", labelKey, ah.phase.Label)
	b.next.CloseAsync(ah.inner)
}

// Unwrap returns the wrapped Backend.
func (b *Backend) Unwrap() phaseprof.Backend { return b.next }

// ForceFlush flushes the wrapped Backend, if it supports that.
func (b *Backend) ForceFlush(ctx context.Context) error {
	if f, ok := b.next.(interface{ ForceFlush(context.Context) error }); ok {
		return f.ForceFlush(ctx)
	}
	return nil
}

// Shutdown shuts down the wrapped Backend, if it supports that.
func (b *Backend) Shutdown(ctx context.Context) error {
	if s, ok := b.next.(interface{ Shutdown(context.Context) error }); ok {
		return s.Shutdown(ctx)
	}
	return nil
}
