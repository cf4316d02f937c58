// Package gotrace renders phaseprof ranges with the Go execution tracer,
// viewable with "go tool trace".
//
// Scoped ranges are user regions, async ranges are user tasks. The phase
// color is logged in the range under the "phase.color" category.
package gotrace

import (
	"context"
	"fmt"
	"io"
	"runtime/trace"

	"github.com/luxas/deklarative/phaseprof"
)

// ColorCategory is the trace.Log category of the phase color.
const ColorCategory = "phase.color"

var _ phaseprof.Backend = Backend{}

// Backend is a phaseprof.Backend on top of runtime/trace. Ranges are only
// recorded while the execution tracer runs; see Start.
type Backend struct{}

// New returns a Backend.
func New() Backend { return Backend{} }

type regionKey struct{}

// OpenScoped starts a region. Regions must end on the goroutine that
// started them, which scoped ranges guarantee.
func (Backend) OpenScoped(ctx context.Context, phase phaseprof.Phase) context.Context {
	region := trace.StartRegion(ctx, phase.Label)
	trace.Log(ctx, ColorCategory, phase.Color.Hex())
	return context.WithValue(ctx, regionKey{}, region)
}

// CloseScoped ends the region started for ctx.
func (Backend) CloseScoped(ctx context.Context) {
	if region, ok := ctx.Value(regionKey{}).(*trace.Region); ok {
		region.End()
	}
}

// OpenAsync creates a task, which may end on any goroutine.
func (Backend) OpenAsync(ctx context.Context, phase phaseprof.Phase) phaseprof.Handle {
	ctx, task := trace.NewTask(ctx, phase.Label)
	trace.Log(ctx, ColorCategory, phase.Color.Hex())
	return task
}

// CloseAsync ends the task returned by OpenAsync.
func (Backend) CloseAsync(h phaseprof.Handle) {
	if task, ok := h.(*trace.Task); ok {
		task.End()
	}
}

// Start starts the execution tracer writing to w and returns the function
// stopping it. Only one tracer may run per process.
func Start(w io.Writer) (stop func(), err error) {
	if err := trace.Start(w); err != nil {
		return nil, fmt.Errorf("starting execution tracer: %w", err)
	}
	return trace.Stop, nil
}
