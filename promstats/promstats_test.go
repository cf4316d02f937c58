package promstats

import (
	"context"
	"strings"
	"testing"

	"github.com/luxas/deklarative/phaseprof"
	"github.com/luxas/deklarative/phaseprof/recorder"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserver(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	obs := New(reg, "")
	p := phaseprof.New().
		WithBackend(recorder.New()).
		WithObserver(obs).
		Build()
	ctx := context.Background()

	p.StartAsync(ctx, "io", 1)
	p.StartAsync(ctx, "io", 2)
	p.StartAsync(ctx, "io", 2) // replaces the open range
	p.StartAsync(ctx, "io", 3)
	p.EndAsync(1)
	p.EndAsync(1) // missed

	assert.Equal(t, float64(4), testutil.ToFloat64(obs.Started))
	assert.Equal(t, float64(1), testutil.ToFloat64(obs.Ended))
	assert.Equal(t, float64(1), testutil.ToFloat64(obs.Missed))
	assert.Equal(t, float64(1), testutil.ToFloat64(obs.Replaced.WithLabelValues("close")))
	assert.Equal(t, float64(2), testutil.ToFloat64(obs.Open))
	assert.Equal(t, float64(p.Tracker().Len()), testutil.ToFloat64(obs.Open))

	require.NoError(t, p.Close(ctx))
	assert.Equal(t, float64(0), testutil.ToFloat64(obs.Open))

	err := testutil.GatherAndCompare(reg, strings.NewReader(`
# HELP phaseprof_async_ended_total Total number of async ranges ended, including the shutdown sweep
# TYPE phaseprof_async_ended_total counter
phaseprof_async_ended_total 3
# HELP phaseprof_async_open Number of async ranges currently open
# TYPE phaseprof_async_open gauge
phaseprof_async_open 0
`), "phaseprof_async_ended_total", "phaseprof_async_open")
	assert.NoError(t, err)
}

func TestObserver_endBeforeStart(t *testing.T) {
	obs := New(prometheus.NewRegistry(), "")

	// A completion goroutine may report the end first.
	obs.AsyncEnded(5)
	assert.Equal(t, float64(-1), testutil.ToFloat64(obs.Open))
	obs.AsyncStarted(5)
	assert.Equal(t, float64(0), testutil.ToFloat64(obs.Open))
	assert.Equal(t, float64(1), testutil.ToFloat64(obs.Started))
	assert.Equal(t, float64(1), testutil.ToFloat64(obs.Ended))
}

func TestNew_duplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg, "dup")
	assert.Panics(t, func() { New(reg, "dup") })
	assert.NotPanics(t, func() { New(reg, "other") })
}
