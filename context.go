package phaseprof

import "context"

type profilerKeyStruct struct{}

var profilerKey = profilerKeyStruct{} //nolint:gochecknoglobals

// NewContext returns a new context descending from parent that carries p.
func NewContext(parent context.Context, p *Profiler) context.Context {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithValue(parent, profilerKey, p)
}

// FromContext returns the Profiler registered with ctx using NewContext,
// or DiscardProfiler() if there is none.
func FromContext(ctx context.Context) *Profiler {
	if ctx == nil {
		return discardProfiler
	}
	if p, ok := ctx.Value(profilerKey).(*Profiler); ok && p != nil {
		return p
	}
	return discardProfiler
}

// StartAsync is a shorthand for FromContext(ctx).StartAsync(ctx, label, key).
func StartAsync(ctx context.Context, label string, key CorrelationKey) {
	FromContext(ctx).StartAsync(ctx, label, key)
}

// EndAsync is a shorthand for FromContext(ctx).EndAsync(key). The context
// is only used to find the Profiler; it need not descend from the one given
// to StartAsync.
func EndAsync(ctx context.Context, key CorrelationKey) {
	FromContext(ctx).EndAsync(key)
}
