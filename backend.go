package phaseprof

import "context"

//go:generate go run github.com/maxbrunsfeld/counterfeiter/v6 -o phaseproffakes/fake_backend.go . Backend

// Backend renders opened and closed ranges for a live observer.
//
// Scoped ranges follow stack discipline on one goroutine. OpenScoped returns
// a context carrying the new innermost range, and CloseScoped closes the
// range that the matching OpenScoped call returned ctx for.
//
// Async ranges are not tied to a goroutine. The Handle returned by OpenAsync
// may be passed to CloseAsync from any goroutine, exactly once.
//
// Implementations must be safe for concurrent use and must not block.
// Failures are swallowed; profiling never affects program correctness.
type Backend interface {
	OpenScoped(ctx context.Context, phase Phase) context.Context
	CloseScoped(ctx context.Context)
	OpenAsync(ctx context.Context, phase Phase) Handle
	CloseAsync(h Handle)
}

// Discard returns a Backend that does nothing.
func Discard() Backend { return noopBackend{} }

type noopBackend struct{}

func (noopBackend) OpenScoped(ctx context.Context, _ Phase) context.Context { return ctx }
func (noopBackend) CloseScoped(context.Context)                             {}
func (noopBackend) OpenAsync(context.Context, Phase) Handle                 { return nil }
func (noopBackend) CloseAsync(Handle)                                       {}

func orDiscard(b Backend) Backend {
	if b == nil {
		return Discard()
	}
	return b
}

type flusher interface {
	ForceFlush(ctx context.Context) error
}

type shutdowner interface {
	Shutdown(ctx context.Context) error
}
