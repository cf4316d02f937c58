package phaseprof_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/luxas/deklarative/phaseprof"
	"github.com/luxas/deklarative/phaseprof/phaseproffakes"
	"github.com/luxas/deklarative/phaseprof/recorder"
	"github.com/stretchr/testify/assert"
)

type countingObserver struct {
	started, ended, replaced, missed atomic.Int64
}

func (o *countingObserver) AsyncStarted(phaseprof.CorrelationKey) { o.started.Add(1) }
func (o *countingObserver) AsyncEnded(phaseprof.CorrelationKey)   { o.ended.Add(1) }
func (o *countingObserver) AsyncReplaced(phaseprof.CorrelationKey, phaseprof.StalePolicy) {
	o.replaced.Add(1)
}
func (o *countingObserver) AsyncMissed(phaseprof.CorrelationKey) { o.missed.Add(1) }

func TestAsyncTracker_endWithoutStart(t *testing.T) {
	rec := recorder.New()
	obs := &countingObserver{}
	tr := phaseprof.NewAsyncTracker(rec, phaseprof.AsyncOptions{Observer: obs})
	ctx := context.Background()

	tr.Start(ctx, "other", 1)
	assert.NotPanics(t, func() { tr.End(2) })
	assert.NotPanics(t, func() { tr.End(65535) })

	assert.True(t, tr.IsOpen(1))
	assert.Equal(t, 1, tr.Len())
	assert.Equal(t, 1, rec.OpenAsyncCount())
	assert.EqualValues(t, 2, obs.missed.Load())
	assert.EqualValues(t, 0, obs.ended.Load())
}

func TestAsyncTracker_endTwice(t *testing.T) {
	fake := &phaseproffakes.FakeBackend{}
	fake.OpenAsyncReturns("handle-1")
	tr := phaseprof.NewAsyncTracker(fake, phaseprof.AsyncOptions{})

	tr.Start(context.Background(), "io-read", 9)
	tr.End(9)
	tr.End(9)

	assert.Equal(t, 1, fake.CloseAsyncCallCount())
	assert.Equal(t, "handle-1", fake.CloseAsyncArgsForCall(0))
	assert.False(t, tr.IsOpen(9))
}

func TestAsyncTracker_fixedPhase(t *testing.T) {
	fake := &phaseproffakes.FakeBackend{}
	tr := phaseprof.NewAsyncTracker(fake, phaseprof.AsyncOptions{})
	tr.Start(context.Background(), "nvme-read", 3)

	_, phase := fake.OpenAsyncArgsForCall(0)
	assert.Equal(t, phaseprof.Phase{Label: "nvme-read", Color: phaseprof.ColorIOFlying}, phase)

	custom := phaseprof.NewAsyncTracker(fake, phaseprof.AsyncOptions{Color: phaseprof.ColorEvictCopy})
	custom.Start(context.Background(), "writeback", 3)
	_, phase = fake.OpenAsyncArgsForCall(1)
	assert.Equal(t, phaseprof.ColorEvictCopy, phase.Color)
}

func TestAsyncTracker_keyReuse(t *testing.T) {
	tests := []struct {
		policy        phaseprof.StalePolicy
		wantLeftOpen  int
		wantCloseOps  int
		wantFirstOpen bool
	}{
		{policy: phaseprof.CloseStale, wantLeftOpen: 0, wantCloseOps: 2},
		{policy: phaseprof.LeakStale, wantLeftOpen: 1, wantCloseOps: 1, wantFirstOpen: true},
	}
	for _, tt := range tests {
		t.Run(tt.policy.String(), func(t *testing.T) {
			rec := recorder.New()
			obs := &countingObserver{}
			tr := phaseprof.NewAsyncTracker(rec, phaseprof.AsyncOptions{
				StalePolicy: tt.policy,
				Observer:    obs,
			})
			ctx := context.Background()

			tr.Start(ctx, "first", 42)
			tr.Start(ctx, "second", 42)
			assert.Equal(t, 1, tr.Len())
			tr.End(42)

			assert.False(t, tr.IsOpen(42))
			assert.Equal(t, 0, tr.Len())
			assert.Equal(t, 0, rec.DoubleCloses())
			assert.Equal(t, tt.wantLeftOpen, rec.OpenAsyncCount())
			if tt.wantFirstOpen {
				assert.Equal(t, []string{"first"}, rec.OpenAsyncLabels())
			}

			closes := 0
			var lastClosed string
			for _, e := range rec.Events() {
				if e.Op == recorder.OpCloseAsync {
					closes++
					lastClosed = e.Label
				}
			}
			assert.Equal(t, tt.wantCloseOps, closes)
			// The second start governs the key.
			assert.Equal(t, "second", lastClosed)
			assert.EqualValues(t, 1, obs.replaced.Load())
			assert.EqualValues(t, 2, obs.started.Load())
			assert.EqualValues(t, 1, obs.ended.Load())
		})
	}
}

func TestAsyncTracker_disjointKeysConcurrently(t *testing.T) {
	const (
		goroutines = 16
		iterations = 500
	)
	rec := recorder.New()
	tr := phaseprof.NewAsyncTracker(rec, phaseprof.AsyncOptions{})
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for g := 0; g < goroutines; g++ {
		key := phaseprof.CorrelationKey(g)
		go func() {
			defer wg.Done()
			for i := 0; i < iterations; i++ {
				tr.Start(ctx, "io", key)
				tr.End(key)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, tr.Len())
	assert.Equal(t, 0, rec.OpenAsyncCount())
	assert.Equal(t, 0, rec.DoubleCloses())
	assert.Len(t, rec.Events(), 2*goroutines*iterations)
}

func TestAsyncTracker_endOnAnotherGoroutine(t *testing.T) {
	rec := recorder.New()
	tr := phaseprof.NewAsyncTracker(rec, phaseprof.AsyncOptions{})
	ctx := context.Background()

	const inflight = 256
	completions := make(chan phaseprof.CorrelationKey, inflight)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for key := range completions {
			tr.End(key)
		}
	}()

	for k := 0; k < inflight; k++ {
		key := phaseprof.CorrelationKey(k)
		tr.Start(ctx, "io", key)
		completions <- key
	}
	// Half of the keys complete twice.
	for k := 0; k < inflight; k += 2 {
		completions <- phaseprof.CorrelationKey(k)
	}
	close(completions)
	<-done

	assert.Equal(t, 0, tr.Len())
	assert.Equal(t, 0, rec.OpenAsyncCount())
	assert.Equal(t, 0, rec.DoubleCloses())
}

func TestAsyncTracker_backendCalledOutsideLock(t *testing.T) {
	fake := &phaseproffakes.FakeBackend{}
	var tr *phaseprof.AsyncTracker
	var openSawKey, closeSawKey bool
	fake.OpenAsyncCalls(func(context.Context, phaseprof.Phase) phaseprof.Handle {
		// The registry lock is not reentrant; this would deadlock if
		// OpenAsync ran under it.
		openSawKey = tr.IsOpen(5)
		return 5
	})
	fake.CloseAsyncCalls(func(phaseprof.Handle) {
		closeSawKey = tr.IsOpen(5)
	})
	tr = phaseprof.NewAsyncTracker(fake, phaseprof.AsyncOptions{})

	tr.Start(context.Background(), "io", 5)
	tr.End(5)

	assert.False(t, openSawKey)
	// The entry is removed before the range is closed.
	assert.False(t, closeSawKey)
}

func TestAsyncTracker_CloseAll(t *testing.T) {
	rec := recorder.New()
	tr := phaseprof.NewAsyncTracker(rec, phaseprof.AsyncOptions{})
	ctx := context.Background()

	for k := 0; k < 10; k++ {
		tr.Start(ctx, "abandoned", phaseprof.CorrelationKey(k))
	}
	tr.End(3)

	assert.Equal(t, 9, tr.CloseAll())
	assert.Equal(t, 0, tr.Len())
	assert.Equal(t, 0, rec.OpenAsyncCount())
	assert.Equal(t, 0, tr.CloseAll())

	// Still usable after the sweep.
	tr.Start(ctx, "late", 3)
	assert.True(t, tr.IsOpen(3))
}

func TestAsyncTracker_nilBackend(t *testing.T) {
	tr := phaseprof.NewAsyncTracker(nil, phaseprof.AsyncOptions{})
	assert.NotPanics(t, func() {
		//nolint:staticcheck
		tr.Start(nil, "io", 1)
		tr.End(1)
		tr.End(1)
	})
	assert.Equal(t, 0, tr.Len())
}
