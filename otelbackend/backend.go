// Package otelbackend renders phaseprof ranges as OpenTelemetry spans.
//
// Scoped ranges become spans stored in the returned context, so nested
// ranges are child spans of the enclosing one. Async ranges become root
// spans linked to the range they were started in, as they may outlive it.
// Every span carries the phase label and color as attributes.
package otelbackend

import (
	"context"

	"github.com/luxas/deklarative/phaseprof"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys set on every span.
const (
	LabelKey = attribute.Key("phase.label")
	ColorKey = attribute.Key("phase.color")
	AsyncKey = attribute.Key("phase.async")
)

// TracerName is the instrumentation name spans are created under.
const TracerName = "github.com/luxas/deklarative/phaseprof/otelbackend"

var _ phaseprof.Backend = &Backend{}

// New returns a Backend creating spans through tp. A nil tp means the
// globally registered provider, otel.GetTracerProvider().
//
// If tp has ForceFlush or Shutdown methods, like the SDK provider and the
// TracerProvider returned by Provider().Build(), so has the Backend, and
// phaseprof.Profiler.Close calls them.
func New(tp trace.TracerProvider) *Backend {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &Backend{tp: tp, tracer: tp.Tracer(TracerName)}
}

// Backend is a phaseprof.Backend on top of an OpenTelemetry tracer.
type Backend struct {
	tp     trace.TracerProvider
	tracer trace.Tracer
}

// OpenScoped starts a span named after the phase label.
func (b *Backend) OpenScoped(ctx context.Context, phase phaseprof.Phase) context.Context {
	ctx, _ = b.tracer.Start(ctx, phase.Label, trace.WithAttributes(phaseAttrs(phase)...))
	return ctx
}

// CloseScoped ends the span in ctx.
func (b *Backend) CloseScoped(ctx context.Context) {
	trace.SpanFromContext(ctx).End()
}

// OpenAsync starts a root span with phase.async=true. It links to the span
// in ctx, if any.
func (b *Backend) OpenAsync(ctx context.Context, phase phaseprof.Phase) phaseprof.Handle {
	opts := []trace.SpanStartOption{
		trace.WithNewRoot(),
		trace.WithAttributes(append(phaseAttrs(phase), AsyncKey.Bool(true))...),
	}
	if trace.SpanContextFromContext(ctx).IsValid() {
		opts = append(opts, trace.WithLinks(trace.LinkFromContext(ctx)))
	}
	_, span := b.tracer.Start(ctx, phase.Label, opts...)
	return span
}

// CloseAsync ends the span returned by OpenAsync.
func (b *Backend) CloseAsync(h phaseprof.Handle) {
	if span, ok := h.(trace.Span); ok {
		span.End()
	}
}

// TracerProvider returns the provider spans are created through.
func (b *Backend) TracerProvider() trace.TracerProvider { return b.tp }

// ForceFlush exports all ended spans, if the provider supports it.
func (b *Backend) ForceFlush(ctx context.Context) error {
	if f, ok := b.tp.(interface {
		ForceFlush(ctx context.Context) error
	}); ok {
		return f.ForceFlush(ctx)
	}
	return nil
}

// Shutdown flushes and stops the provider, if it supports it.
func (b *Backend) Shutdown(ctx context.Context) error {
	if s, ok := b.tp.(interface {
		Shutdown(ctx context.Context) error
	}); ok {
		return s.Shutdown(ctx)
	}
	return nil
}

func phaseAttrs(phase phaseprof.Phase) []attribute.KeyValue {
	return []attribute.KeyValue{
		LabelKey.String(phase.Label),
		ColorKey.String(phase.Color.Hex()),
	}
}
