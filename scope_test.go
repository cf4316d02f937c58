package phaseprof_test

import (
	"context"
	"errors"
	"testing"

	"github.com/luxas/deklarative/phaseprof"
	"github.com/luxas/deklarative/phaseprof/phaseproffakes"
	"github.com/luxas/deklarative/phaseprof/recorder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	phaseA = phaseprof.Phase{Label: "A", Color: phaseprof.ColorFetchLookup}
	phaseB = phaseprof.Phase{Label: "B", Color: phaseprof.ColorFetchCopy}
)

type opLabel struct {
	op    recorder.Op
	label string
	depth int
}

func opLabels(events []recorder.Event) []opLabel {
	out := make([]opLabel, 0, len(events))
	for _, e := range events {
		out = append(out, opLabel{e.Op, e.Label, e.Depth})
	}
	return out
}

func TestScope_closesInReverseOrder(t *testing.T) {
	rec := recorder.New()
	p := phaseprof.New().WithBackend(rec).Build()

	ctxA, spanA := p.Scope(context.Background(), phaseA)
	_, spanB := p.Scope(ctxA, phaseB)
	spanB.End()
	spanA.End()

	events := rec.Events()
	assert.Equal(t, []opLabel{
		{recorder.OpOpenScoped, "A", 1},
		{recorder.OpOpenScoped, "B", 2},
		{recorder.OpCloseScoped, "B", 2},
		{recorder.OpCloseScoped, "A", 1},
	}, opLabels(events))
	// Opens and closes pair up by ID.
	assert.Equal(t, events[1].ID, events[2].ID)
	assert.Equal(t, events[0].ID, events[3].ID)
	assert.Equal(t, phaseprof.ColorFetchLookup.String(), events[0].Color)
}

func TestScope_deferOnEveryExitPath(t *testing.T) {
	errEarly := errors.New("early")

	work := func(ctx context.Context, p *phaseprof.Profiler, fail bool) error {
		ctx, outer := p.Scope(ctx, phaseA)
		defer outer.End()

		_, inner := p.Scope(ctx, phaseB)
		defer inner.End()

		if fail {
			return errEarly
		}
		return nil
	}

	for _, fail := range []bool{false, true} {
		rec := recorder.New()
		p := phaseprof.New().WithBackend(rec).Build()

		err := work(context.Background(), p, fail)
		if fail {
			assert.ErrorIs(t, err, errEarly)
		} else {
			assert.NoError(t, err)
		}
		assert.Equal(t, []opLabel{
			{recorder.OpOpenScoped, "A", 1},
			{recorder.OpOpenScoped, "B", 2},
			{recorder.OpCloseScoped, "B", 2},
			{recorder.OpCloseScoped, "A", 1},
		}, opLabels(rec.Events()))
	}
}

func TestDo_returnsErrorAndCloses(t *testing.T) {
	rec := recorder.New()
	p := phaseprof.New().WithBackend(rec).Build()
	errWork := errors.New("work failed")

	err := p.Do(context.Background(), phaseA, func(ctx context.Context) error {
		return p.Do(ctx, phaseB, func(context.Context) error {
			return errWork
		})
	})
	assert.ErrorIs(t, err, errWork)
	assert.Equal(t, []opLabel{
		{recorder.OpOpenScoped, "A", 1},
		{recorder.OpOpenScoped, "B", 2},
		{recorder.OpCloseScoped, "B", 2},
		{recorder.OpCloseScoped, "A", 1},
	}, opLabels(rec.Events()))
}

func TestDo_closesOnPanic(t *testing.T) {
	rec := recorder.New()
	p := phaseprof.New().WithBackend(rec).Build()

	assert.PanicsWithValue(t, "boom", func() {
		_ = p.Do(context.Background(), phaseA, func(ctx context.Context) error {
			return p.Do(ctx, phaseB, func(context.Context) error {
				panic("boom")
			})
		})
	})
	assert.Equal(t, []opLabel{
		{recorder.OpOpenScoped, "A", 1},
		{recorder.OpOpenScoped, "B", 2},
		{recorder.OpCloseScoped, "B", 2},
		{recorder.OpCloseScoped, "A", 1},
	}, opLabels(rec.Events()))
}

func TestScopedSpan_EndTwice(t *testing.T) {
	fake := &phaseproffakes.FakeBackend{}
	fake.OpenScopedCalls(func(ctx context.Context, _ phaseprof.Phase) context.Context { return ctx })
	p := phaseprof.New().WithBackend(fake).Build()

	_, span := p.Scope(context.Background(), phaseA)
	span.End()
	span.End()

	assert.Equal(t, 1, fake.OpenScopedCallCount())
	assert.Equal(t, 1, fake.CloseScopedCallCount())
	_, phase := fake.OpenScopedArgsForCall(0)
	assert.Equal(t, phaseA, phase)

	var nilSpan *phaseprof.ScopedSpan
	assert.NotPanics(t, nilSpan.End)
}

func TestScope_disabled(t *testing.T) {
	var p *phaseprof.Profiler

	assert.NotPanics(t, func() {
		//nolint:staticcheck
		ctx, span := p.Scope(nil, phaseA)
		require.NotNil(t, ctx)
		span.End()

		ctx, span = phaseprof.New().Build().Scope(context.Background(), phaseB)
		require.NotNil(t, ctx)
		span.End()

		assert.NoError(t, phaseprof.Do(context.Background(), phaseA, func(context.Context) error { return nil }))
	})
}

func TestScope_fromContext(t *testing.T) {
	rec := recorder.New()
	p := phaseprof.New().WithBackend(rec).Build()
	ctx := phaseprof.NewContext(context.Background(), p)

	assert.Same(t, p, phaseprof.FromContext(ctx))
	assert.Same(t, phaseprof.DiscardProfiler(), phaseprof.FromContext(context.Background()))

	err := phaseprof.Do(ctx, phaseA, func(ctx context.Context) error {
		_, span := phaseprof.Scope(ctx, phaseB)
		span.End()
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []opLabel{
		{recorder.OpOpenScoped, "A", 1},
		{recorder.OpOpenScoped, "B", 2},
		{recorder.OpCloseScoped, "B", 2},
		{recorder.OpCloseScoped, "A", 1},
	}, opLabels(rec.Events()))
}
