package pipeline

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/luxas/deklarative/phaseprof"
	"github.com/luxas/deklarative/phaseprof/recorder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zoobzio/clockz"
)

const latency = 50 * time.Millisecond

type runResult struct {
	res Result
	err error
}

type fakeClock interface {
	Advance(d time.Duration)
	BlockUntilReady()
}

// runWithFakeClock advances clock until Run returns.
func runWithFakeClock(t *testing.T, clock fakeClock, pl *Pipeline, pages []uint64) (Result, error) {
	t.Helper()
	done := make(chan runResult, 1)
	go func() {
		res, err := pl.Run(context.Background(), pages)
		done <- runResult{res, err}
	}()

	var rr runResult
	require.Eventually(t, func() bool {
		clock.Advance(latency)
		clock.BlockUntilReady()
		select {
		case rr = <-done:
			return true
		default:
			return false
		}
	}, 10*time.Second, time.Millisecond)
	return rr.res, rr.err
}

func TestPipeline_Run(t *testing.T) {
	rec := recorder.New()
	p := phaseprof.New().WithBackend(rec).Build()
	clock := clockz.NewFakeClock()
	pl := New(p, Options{Workers: 4, QueueDepth: 2, Latency: latency, Clock: clock})

	pages := []uint64{1, 2, 3, 4, 5, 6, 7, 8}
	res, err := runWithFakeClock(t, clock, pl, pages)
	require.NoError(t, err)
	assert.Equal(t, len(pages), res.Requests)
	assert.Equal(t, len(pages), res.Misses)
	assert.Equal(t, 0, res.Hits)
	assert.GreaterOrEqual(t, res.Elapsed, latency)
	assert.Equal(t, len(pages), pl.Resident())

	// Every device command was ended by the poller, none twice.
	assert.Equal(t, 0, p.Tracker().Len())
	assert.Equal(t, 0, rec.OpenAsyncCount())
	assert.Equal(t, 0, rec.DoubleCloses())

	counts := map[recorder.Op]int{}
	labels := map[string]int{}
	for _, e := range rec.Events() {
		counts[e.Op]++
		if e.Op == recorder.OpOpenScoped {
			labels[e.Label]++
		}
	}
	assert.Equal(t, counts[recorder.OpOpenScoped], counts[recorder.OpCloseScoped])
	assert.Equal(t, len(pages), counts[recorder.OpOpenAsync])
	assert.Equal(t, len(pages), counts[recorder.OpCloseAsync])
	for _, ph := range []phaseprof.Phase{PhaseRoutine, PhaseLookup, PhaseSlotLock, PhaseSubmit, PhaseWait, PhaseCopy} {
		assert.Equal(t, len(pages), labels[ph.Label], ph.Label)
	}

	// Cached pages skip the device.
	rec.Reset()
	res, err = pl.Run(context.Background(), []uint64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Hits)
	assert.Equal(t, 0, res.Misses)
	for _, e := range rec.Events() {
		assert.NotEqual(t, recorder.OpOpenAsync, e.Op)
		assert.NotEqual(t, PhaseSlotLock.Label, e.Label)
	}
}

func TestPipeline_slotReuse(t *testing.T) {
	rec := recorder.New()
	obs := &replacedCounter{}
	p := phaseprof.New().WithBackend(rec).WithObserver(obs).Build()
	pl := New(p, Options{Workers: 8, QueueDepth: 1, Latency: time.Microsecond})

	pages := make([]uint64, 64)
	for i := range pages {
		pages[i] = uint64(i)
	}
	res, err := pl.Run(context.Background(), pages)
	require.NoError(t, err)
	assert.Equal(t, 64, res.Misses)

	// A single slot serves every command, and each one is ended before
	// the slot is handed out again.
	assert.EqualValues(t, 0, obs.replaced.Load())
	assert.Equal(t, 0, rec.OpenAsyncCount())
	assert.Equal(t, 1, pl.Device().Depth())
}

func TestPipeline_canceled(t *testing.T) {
	rec := recorder.New()
	p := phaseprof.New().WithBackend(rec).Build()
	clock := clockz.NewFakeClock()
	pl := New(p, Options{Workers: 2, QueueDepth: 2, Latency: time.Hour, Clock: clock})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := pl.Run(ctx, []uint64{1, 2, 3, 4})
		done <- err
	}()

	// Both slots get submitted, and never complete.
	require.Eventually(t, func() bool { return p.Tracker().Len() == 2 }, 5*time.Second, time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	// Scoped ranges are closed on the error path too.
	var opens, closes int
	for _, e := range rec.Events() {
		switch e.Op {
		case recorder.OpOpenScoped:
			opens++
		case recorder.OpCloseScoped:
			closes++
		}
	}
	assert.Equal(t, opens, closes)

	// The abandoned commands are closed on shutdown.
	require.NoError(t, p.Close(context.Background()))
	assert.Equal(t, 0, rec.OpenAsyncCount())
}

type replacedCounter struct{ replaced atomic.Int64 }

func (*replacedCounter) AsyncStarted(phaseprof.CorrelationKey) {}
func (*replacedCounter) AsyncEnded(phaseprof.CorrelationKey)   {}
func (c *replacedCounter) AsyncReplaced(phaseprof.CorrelationKey, phaseprof.StalePolicy) {
	c.replaced.Add(1)
}
func (*replacedCounter) AsyncMissed(phaseprof.CorrelationKey) {}
