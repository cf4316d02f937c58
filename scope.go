package phaseprof

import "context"

// ScopedSpan is an open scoped range. It is closed by End, typically
// deferred right after the span was opened:
//
//	ctx, span := p.Scope(ctx, phase)
//	defer span.End()
//
// A ScopedSpan belongs to the goroutine that opened it and must not be
// shared.
type ScopedSpan struct {
	backend Backend
	ctx     context.Context
	ended   bool
}

// End closes the range. Calling End more than once, or on a nil
// *ScopedSpan, is a no-op.
func (s *ScopedSpan) End() {
	if s == nil || s.ended {
		return
	}
	s.ended = true
	s.backend.CloseScoped(s.ctx)
}

// Scope opens a scoped range for phase as a child of the innermost range in
// ctx. The returned context carries the new range and must be used to open
// nested ranges.
func (p *Profiler) Scope(ctx context.Context, phase Phase) (context.Context, *ScopedSpan) {
	p = p.orDiscard()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = p.backend.OpenScoped(ctx, phase)
	return ctx, &ScopedSpan{backend: p.backend, ctx: ctx}
}

// Do runs fn inside a scoped range for phase. The range is closed on every
// exit path of fn, including a panic, which is propagated after the range
// has been closed. The error from fn is returned as-is.
func (p *Profiler) Do(ctx context.Context, phase Phase, fn func(ctx context.Context) error) error {
	ctx, span := p.Scope(ctx, phase)
	defer span.End()

	return fn(ctx)
}

// Scope is a shorthand for FromContext(ctx).Scope(ctx, phase).
func Scope(ctx context.Context, phase Phase) (context.Context, *ScopedSpan) {
	return FromContext(ctx).Scope(ctx, phase)
}

// Do is a shorthand for FromContext(ctx).Do(ctx, phase, fn).
func Do(ctx context.Context, phase Phase, fn func(ctx context.Context) error) error {
	return FromContext(ctx).Do(ctx, phase, fn)
}
