// Package pipeline runs a simulated demand-fetch pipeline, instrumented
// with phaseprof. Workers look pages up in a host-side cache and, on a
// miss, read them from a Device before copying them in.
//
// Every request runs in a fetch-routine range with lookup, slot-lock,
// io-submit, fetch-wait and fetch-copy ranges inside. The device command
// is an async range keyed by its queue slot, ended by the completion
// poller on its own goroutine.
package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"
	"github.com/luxas/deklarative/phaseprof"
	"github.com/zoobzio/clockz"
	"golang.org/x/sync/errgroup"
)

// Phases of a fetch.
var (
	PhaseRoutine  = phaseprof.Phase{Label: "fetch-routine", Color: phaseprof.ColorFetchRoutine}
	PhaseLookup   = phaseprof.Phase{Label: "fetch-lookup", Color: phaseprof.ColorFetchLookup}
	PhaseSlotLock = phaseprof.Phase{Label: "fetch-slot-lock", Color: phaseprof.ColorFetchSlotLock}
	PhaseSubmit   = phaseprof.Phase{Label: "io-submit", Color: phaseprof.ColorIOSubmit}
	PhaseWait     = phaseprof.Phase{Label: "fetch-wait", Color: phaseprof.ColorFetchWait}
	PhaseCopy     = phaseprof.Phase{Label: "fetch-copy", Color: phaseprof.ColorFetchCopy}
)

// IOLabel labels the async range of a device command.
const IOLabel = "nvme-read"

// Options configures a Pipeline. Zero values get defaults.
type Options struct {
	// Workers defaults to 4.
	Workers int
	// QueueDepth defaults to 32.
	QueueDepth int
	// Latency of a device command. Defaults to 200µs.
	Latency time.Duration
	// Clock defaults to clockz.RealClock.
	Clock clockz.Clock
	// Logger defaults to logr.Discard().
	Logger logr.Logger
}

// Result summarizes a Run.
type Result struct {
	Requests int
	Hits     int
	Misses   int
	Elapsed  time.Duration
}

// Pipeline fetches pages through a Device. Run may be called repeatedly;
// the page cache is kept between runs.
type Pipeline struct {
	prof    *phaseprof.Profiler
	device  *Device
	clock   clockz.Clock
	workers int
	log     logr.Logger

	mu       sync.Mutex
	resident map[uint64]struct{}
}

// New returns a Pipeline instrumented with p. A nil p disables profiling.
func New(p *phaseprof.Profiler, opts Options) *Pipeline {
	if p == nil {
		p = phaseprof.DiscardProfiler()
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.QueueDepth <= 0 {
		opts.QueueDepth = 32
	}
	if opts.Latency <= 0 {
		opts.Latency = 200 * time.Microsecond
	}
	if opts.Clock == nil {
		opts.Clock = clockz.RealClock
	}
	if opts.Logger.GetSink() == nil {
		opts.Logger = logr.Discard()
	}
	return &Pipeline{
		prof:     p,
		device:   NewDevice(opts.Clock, opts.QueueDepth, opts.Latency),
		clock:    opts.Clock,
		workers:  opts.Workers,
		log:      opts.Logger,
		resident: make(map[uint64]struct{}),
	}
}

// Device returns the simulated device.
func (pl *Pipeline) Device() *Device { return pl.device }

// Run fetches every page in pages, spread over the workers, and returns
// when all are resident or ctx is done.
func (pl *Pipeline) Run(ctx context.Context, pages []uint64) (Result, error) {
	start := pl.clock.Now()

	pollCtx, stopPoll := context.WithCancel(ctx)
	polled := make(chan struct{})
	go func() {
		defer close(polled)
		pl.device.Poll(pollCtx, pl.prof.EndAsync)
	}()
	defer func() {
		stopPoll()
		<-polled
	}()

	var hits, misses atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(pl.workers)
	for _, page := range pages {
		page := page
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			hit, err := pl.fetch(gctx, page)
			if err != nil {
				return err
			}
			if hit {
				hits.Add(1)
			} else {
				misses.Add(1)
			}
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	res := Result{
		Requests: len(pages),
		Hits:     int(hits.Load()),
		Misses:   int(misses.Load()),
		Elapsed:  pl.clock.Since(start),
	}
	pl.log.V(1).Info("run finished", "requests", res.Requests, "hits", res.Hits, "misses", res.Misses, "elapsed", res.Elapsed)
	return res, err
}

func (pl *Pipeline) fetch(ctx context.Context, page uint64) (hit bool, err error) {
	err = pl.prof.Do(ctx, PhaseRoutine, func(ctx context.Context) error {
		_ = pl.prof.Do(ctx, PhaseLookup, func(context.Context) error {
			hit = pl.isResident(page)
			return nil
		})
		if !hit {
			if err := pl.read(ctx); err != nil {
				return err
			}
		}
		return pl.prof.Do(ctx, PhaseCopy, func(context.Context) error {
			pl.markResident(page)
			return nil
		})
	})
	return hit, err
}

// read runs one device command: take a slot, submit, and wait.
func (pl *Pipeline) read(ctx context.Context) error {
	var slot phaseprof.CorrelationKey
	err := pl.prof.Do(ctx, PhaseSlotLock, func(ctx context.Context) (err error) {
		slot, err = pl.device.Acquire(ctx)
		return err
	})
	if err != nil {
		return err
	}
	defer pl.device.Release(slot)

	_ = pl.prof.Do(ctx, PhaseSubmit, func(ctx context.Context) error {
		pl.prof.StartAsync(ctx, IOLabel, slot)
		pl.device.Submit(slot)
		return nil
	})
	return pl.prof.Do(ctx, PhaseWait, func(ctx context.Context) error {
		return pl.device.Wait(ctx, slot)
	})
}

func (pl *Pipeline) isResident(page uint64) bool {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	_, ok := pl.resident[page]
	return ok
}

func (pl *Pipeline) markResident(page uint64) {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	pl.resident[page] = struct{}{}
}

// Resident returns the number of cached pages.
func (pl *Pipeline) Resident() int {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	return len(pl.resident)
}
