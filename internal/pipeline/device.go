package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/luxas/deklarative/phaseprof"
	"github.com/zoobzio/clockz"
)

// Device simulates a storage device with a bounded submission queue. Each
// queue slot carries at most one command at a time, and the slot index is
// the command's correlation key, so keys are reused as soon as a slot is
// released.
//
// A submitted command always completes; the device has no abort. A slot
// released while its command is still in flight is only handed out again
// after that command was reaped, so a completion can never be attributed
// to a later command on the same slot.
type Device struct {
	clock   clockz.Clock
	latency time.Duration

	free        chan phaseprof.CorrelationKey
	completions chan phaseprof.CorrelationKey
	done        []chan struct{}

	mu       sync.Mutex
	inflight []bool
	orphaned []bool
}

// NewDevice returns a Device with depth slots whose commands complete
// latency after submission, as measured by clock.
func NewDevice(clock clockz.Clock, depth int, latency time.Duration) *Device {
	d := &Device{
		clock:       clock,
		latency:     latency,
		free:        make(chan phaseprof.CorrelationKey, depth),
		completions: make(chan phaseprof.CorrelationKey, depth),
		done:        make([]chan struct{}, depth),
		inflight:    make([]bool, depth),
		orphaned:    make([]bool, depth),
	}
	for i := 0; i < depth; i++ {
		d.free <- phaseprof.CorrelationKey(i)
		d.done[i] = make(chan struct{}, 1)
	}
	return d
}

// Depth returns the number of slots.
func (d *Device) Depth() int { return len(d.done) }

// Acquire blocks until a slot is free or ctx is done.
func (d *Device) Acquire(ctx context.Context) (phaseprof.CorrelationKey, error) {
	select {
	case slot := <-d.free:
		return slot, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Release gives up slot. If its command is still in flight, the slot is
// freed when Poll reaps the command. Otherwise it is freed right away,
// dropping a completion token nobody waited for.
func (d *Device) Release(slot phaseprof.CorrelationKey) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.inflight[slot] {
		d.orphaned[slot] = true
		return
	}
	select {
	case <-d.done[slot]:
	default:
	}
	d.free <- slot
}

// Submit starts the command in slot. It completes after the device
// latency.
func (d *Device) Submit(slot phaseprof.CorrelationKey) {
	d.mu.Lock()
	d.inflight[slot] = true
	d.mu.Unlock()

	// The timer is armed before returning, so that a clock advanced right
	// after Submit fires it.
	fired := d.clock.After(d.latency)
	go func() {
		<-fired
		d.completions <- slot
	}()
}

// Poll reaps completions until ctx is done. For every completed slot,
// reaped is called before the command's waiter is woken up. Commands
// completing while nobody polls are reaped by the next Poll.
func (d *Device) Poll(ctx context.Context, reaped func(slot phaseprof.CorrelationKey)) {
	for {
		select {
		case slot := <-d.completions:
			reaped(slot)
			d.complete(slot)
		case <-ctx.Done():
			return
		}
	}
}

func (d *Device) complete(slot phaseprof.CorrelationKey) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.inflight[slot] = false
	if d.orphaned[slot] {
		d.orphaned[slot] = false
		d.free <- slot
		return
	}
	// Holds at most one token: one command per slot.
	d.done[slot] <- struct{}{}
}

// Wait blocks until the command in slot completed or ctx is done.
func (d *Device) Wait(ctx context.Context, slot phaseprof.CorrelationKey) error {
	select {
	case <-d.done[slot]:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
