package otelbackend

import (
	"context"
	"io"
	"math/rand"
	"sync"

	"github.com/luxas/deklarative/phaseprof/traceyaml"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.12.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/multierr"
)

// DefaultServiceName is the "service.name" resource attribute unless
// overridden with WithAttributes.
const DefaultServiceName = "phaseprof"

// TracerProvider is a trace.TracerProvider that can be flushed and shut
// down, like *tracesdk.TracerProvider.
type TracerProvider interface {
	trace.TracerProvider
	Shutdown(ctx context.Context) error
	ForceFlush(ctx context.Context) error
}

// CompositeFunc wraps the TracerProvider built so far. If the result does
// not implement Shutdown or ForceFlush, those calls go to the wrapped
// provider.
type CompositeFunc func(TracerProvider) trace.TracerProvider

// Provider returns a new *ProviderBuilder.
func Provider() *ProviderBuilder {
	return &ProviderBuilder{}
}

// ProviderBuilder builds an SDK TracerProvider exporting to stdout, an
// OpenTelemetry Collector over gRPC or Jaeger's HTTP API.
type ProviderBuilder struct {
	exporters    []tracesdk.SpanExporter
	errs         []error
	tpOpts       []tracesdk.TracerProviderOption
	attrs        []attribute.KeyValue
	sync         bool
	compositeFns []CompositeFunc
}

// WithInsecureOTelExporter exports to an OpenTelemetry Collector over gRPC
// without TLS. addr defaults to "localhost:4317" and must not have a
// scheme. opts are applied after the defaults.
func (b *ProviderBuilder) WithInsecureOTelExporter(ctx context.Context, addr string, opts ...otlptracegrpc.Option) *ProviderBuilder {
	if len(addr) == 0 {
		addr = "localhost:4317"
	}
	opts = append([]otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(addr),
		otlptracegrpc.WithInsecure(),
	}, opts...)

	exp, err := otlptracegrpc.New(ctx, opts...)
	return b.addExporter(exp, err)
}

// WithInsecureJaegerExporter exports to Jaeger's HTTP collector API. An
// empty addr keeps the exporter default,
// "http://localhost:14268/api/traces".
func (b *ProviderBuilder) WithInsecureJaegerExporter(addr string, opts ...jaeger.CollectorEndpointOption) *ProviderBuilder {
	var defaultOpts []jaeger.CollectorEndpointOption
	if len(addr) != 0 {
		defaultOpts = append(defaultOpts, jaeger.WithEndpoint(addr))
	}
	opts = append(defaultOpts, opts...)

	exp, err := jaeger.New(jaeger.WithCollectorEndpoint(opts...))
	return b.addExporter(exp, err)
}

// WithStdoutExporter exports pretty-printed JSON to os.Stdout, or to the
// writer given with stdouttrace.WithWriter.
func (b *ProviderBuilder) WithStdoutExporter(opts ...stdouttrace.Option) *ProviderBuilder {
	opts = append([]stdouttrace.Option{stdouttrace.WithPrettyPrint()}, opts...)

	exp, err := stdouttrace.New(opts...)
	return b.addExporter(exp, err)
}

// WithExporter registers an already built exporter.
func (b *ProviderBuilder) WithExporter(exp tracesdk.SpanExporter) *ProviderBuilder {
	return b.addExporter(exp, nil)
}

func (b *ProviderBuilder) addExporter(exp tracesdk.SpanExporter, err error) *ProviderBuilder {
	if err != nil {
		b.errs = append(b.errs, err)
		return b
	}
	b.exporters = append(b.exporters, exp)
	return b
}

// WithOptions appends options for tracesdk.NewTracerProvider, for example
// tracesdk.WithSpanProcessor or tracesdk.WithSampler.
func (b *ProviderBuilder) WithOptions(opts ...tracesdk.TracerProviderOption) *ProviderBuilder {
	b.tpOpts = append(b.tpOpts, opts...)
	return b
}

// WithAttributes adds resource attributes. They override the default
// "service.name" of DefaultServiceName.
func (b *ProviderBuilder) WithAttributes(attrs ...attribute.KeyValue) *ProviderBuilder {
	b.attrs = append(b.attrs, attrs...)
	return b
}

// Synchronous exports every span as it ends instead of batching. Only
// meant for tests.
func (b *ProviderBuilder) Synchronous() *ProviderBuilder {
	b.sync = true
	return b
}

// Composite wraps the built provider with fn. Calling it repeatedly builds
// a chain, applied in call order.
func (b *ProviderBuilder) Composite(fn CompositeFunc) *ProviderBuilder {
	b.compositeFns = append(b.compositeFns, fn)
	return b
}

// TestYAMLTo captures span trees with traceyaml and writes them to w.
func (b *ProviderBuilder) TestYAMLTo(w io.Writer) *ProviderBuilder {
	return b.Composite(func(tp TracerProvider) trace.TracerProvider {
		return traceyaml.New(tp, w)
	})
}

// DeterministicIDs generates trace and span IDs from a seeded PRNG. Only
// meant for tests.
func (b *ProviderBuilder) DeterministicIDs(seed int64) *ProviderBuilder {
	return b.WithOptions(tracesdk.WithIDGenerator(deterministicWithSeed(seed)))
}

// Build builds the TracerProvider. Without any exporter, spans are
// exported to io.Discard. Errors from building exporters are combined.
func (b *ProviderBuilder) Build() (TracerProvider, error) {
	if len(b.exporters) == 0 && len(b.errs) == 0 {
		b = b.WithStdoutExporter(stdouttrace.WithWriter(io.Discard))
	}
	if err := multierr.Combine(b.errs...); err != nil {
		return nil, err
	}

	attrs := append([]attribute.KeyValue{
		semconv.ServiceNameKey.String(DefaultServiceName),
	}, b.attrs...)

	tpOpts := []tracesdk.TracerProviderOption{
		tracesdk.WithResource(resource.NewWithAttributes(semconv.SchemaURL, attrs...)),
	}
	for _, exporter := range b.exporters {
		if b.sync {
			tpOpts = append(tpOpts, tracesdk.WithSyncer(exporter))
			continue
		}
		tpOpts = append(tpOpts, tracesdk.WithBatcher(exporter))
	}
	tpOpts = append(tpOpts, b.tpOpts...)

	var tp TracerProvider = tracesdk.NewTracerProvider(tpOpts...)
	for _, fn := range b.compositeFns {
		tp = composite(fn(tp), tp)
	}
	return tp, nil
}

// InstallGlobally builds the TracerProvider and registers it with
// otel.SetTracerProvider.
func (b *ProviderBuilder) InstallGlobally() (TracerProvider, error) {
	tp, err := b.Build()
	if err != nil {
		return nil, err
	}
	otel.SetTracerProvider(tp)
	return tp, nil
}

func composite(outer trace.TracerProvider, inner TracerProvider) TracerProvider {
	if tp, ok := outer.(TracerProvider); ok {
		return tp
	}
	return &compositeProvider{outer, inner}
}

type compositeProvider struct {
	trace.TracerProvider
	inner TracerProvider
}

func (c *compositeProvider) Shutdown(ctx context.Context) error { return c.inner.Shutdown(ctx) }

func (c *compositeProvider) ForceFlush(ctx context.Context) error { return c.inner.ForceFlush(ctx) }

type deterministicIDGenerator struct {
	mu  *sync.Mutex
	rnd *rand.Rand
}

func (g *deterministicIDGenerator) NewSpanID(context.Context, trace.TraceID) trace.SpanID {
	g.mu.Lock()
	defer g.mu.Unlock()
	sid := trace.SpanID{}
	_, _ = g.rnd.Read(sid[:])
	return sid
}

func (g *deterministicIDGenerator) NewIDs(context.Context) (trace.TraceID, trace.SpanID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	tid := trace.TraceID{}
	_, _ = g.rnd.Read(tid[:])
	sid := trace.SpanID{}
	_, _ = g.rnd.Read(sid[:])
	return tid, sid
}

func deterministicWithSeed(seed int64) tracesdk.IDGenerator {
	return &deterministicIDGenerator{
		mu: &sync.Mutex{},
		// Reproducible IDs, not secure ones.
		//nolint:gosec
		rnd: rand.New(rand.NewSource(seed)),
	}
}
