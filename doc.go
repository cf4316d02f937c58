/*
Package phaseprof attributes elapsed wall-clock time in a host/accelerator
pipeline to named, colored phases, for live visual profiling in a tool
attached to a tracing backend (Jaeger through OpenTelemetry, or the Go
execution tracer through "go tool trace").

There are two kinds of ranges. A scoped range brackets a synchronous region
of code on one goroutine, for example a table lookup, a lock acquisition or a
copy:

	func fetch(ctx context.Context, p *phaseprof.Profiler) {
		ctx, span := p.Scope(ctx, phaseprof.Phase{Label: "lookup", Color: phaseprof.ColorFetchLookup})
		defer span.End()
		...
	}

Scoped ranges nest like a stack. The innermost range lives in the returned
context, so child ranges must be opened from that context, and ranges opened
later must end earlier. A ScopedSpan must never be shared across goroutines.

An async range covers an operation that is submitted on one goroutine and
completed on another, for example a command handed to a device queue and
reaped by a completion poller. The two ends are correlated by a small
CorrelationKey, typically the queue slot or command identifier:

	// submission goroutine
	p.StartAsync(ctx, "io-read", phaseprof.CorrelationKey(cid))
	queue.Submit(cid, cmd)

	// completion goroutine
	for cid := range completions {
		p.EndAsync(phaseprof.CorrelationKey(cid))
	}

The AsyncTracker behind StartAsync and EndAsync keeps a keyed registry from
key to backend handle. Ending an unknown key is a silent no-op, as completion
paths may legitimately race or notify twice. Starting a key that is still
open replaces the previous entry; by default the replaced range is closed
(see StalePolicy).

Instrumentation never returns errors and never panics because profiling is
disabled: a nil Backend, or the one returned by Discard, turns every call into
a no-op. The only error path is Profiler.Close, which flushes and shuts down
the backend when the embedding system stops.

Profilers are explicitly constructed with New and carried either by
reference or in a context using NewContext. Code that only has a context can
use the package-level Scope, Do, StartAsync and EndAsync functions, which
resolve the Profiler with FromContext and fall back to a discarding one.
*/
package phaseprof
