// Package traceyaml records OpenTelemetry span trees as YAML, so that the
// nesting produced by a profiler backend can be compared against golden
// files.
package traceyaml

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v2"
)

// New wraps tp so that every span started through it is captured. When a
// root span ends, its SpanInfo tree is written to w as a one-item YAML
// list under a comment with the span name:
//
//	# lookup
//	- name: lookup
//	  children:
//	  - name: slot-lock
//
// Spans started with trace.WithNewRoot are written on their own when they
// end. Writes to w are serialized.
func New(tp trace.TracerProvider, w io.Writer) trace.TracerProvider {
	return &yamlTracerProvider{tp, zapcore.Lock(zapcore.AddSync(w))}
}

type yamlTracerProvider struct {
	trace.TracerProvider
	ws zapcore.WriteSyncer
}

func (tp *yamlTracerProvider) Tracer(instrumentationName string, opts ...trace.TracerOption) trace.Tracer {
	return &yamlTracer{tp.TracerProvider.Tracer(instrumentationName, opts...), tp}
}

type yamlTracer struct {
	trace.Tracer
	provider *yamlTracerProvider
}

func (t *yamlTracer) Start(ctx context.Context, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	ctx, span := t.Tracer.Start(ctx, spanName, opts...)
	s := &yamlSpan{Span: span, provider: t.provider}

	cfg := trace.NewSpanStartConfig(opts...)
	if parent := getSpanInfo(ctx); parent != nil && !cfg.NewRoot() {
		s.data = parent.newChild(spanName, &cfg)
	} else {
		s.data = newSpanInfo(spanName, &cfg)
	}
	ctx = withSpanInfo(ctx, s.data)

	return trace.ContextWithSpan(ctx, s), s
}

type yamlSpan struct {
	trace.Span

	provider *yamlTracerProvider
	data     *SpanInfo
}

func (s *yamlSpan) End(options ...trace.SpanEndOption) {
	if !s.data.isChild {
		if err := s.write(); err != nil {
			s.Span.RecordError(err)
		}
	}
	s.Span.End(options...)
}

func (s *yamlSpan) write() error {
	s.data.mu.Lock()
	defer s.data.mu.Unlock()

	// yaml.v2 indents list items at the level of their key, which keeps
	// deep trees narrow.
	out, err := yaml.Marshal([]*SpanInfo{s.data})
	if err != nil {
		return err
	}
	header := fmt.Sprintf("# %s", s.data.Name)
	out = bytes.Join([][]byte{[]byte(header), out, nil}, []byte{'\n'})
	_, err = s.provider.ws.Write(out)
	return err
}

func (s *yamlSpan) AddEvent(name string, options ...trace.EventOption) {
	s.data.mu.Lock()
	cfg := trace.NewEventConfig(options...)
	s.data.Events = append(s.data.Events, Event{Name: name, Attributes: newAttrs(cfg.Attributes())})
	s.data.mu.Unlock()

	s.Span.AddEvent(name, options...)
}

func (s *yamlSpan) RecordError(err error, options ...trace.EventOption) {
	s.data.mu.Lock()
	s.data.Errors = append(s.data.Errors, fmt.Sprintf("%v", err))
	s.data.mu.Unlock()

	s.Span.RecordError(err, options...)
}

func (s *yamlSpan) SetStatus(code codes.Code, description string) {
	st := Status{Code: code.String()}
	if code == codes.Error {
		st.Description = description
	}
	s.data.mu.Lock()
	s.data.Status = append(s.data.Status, st)
	s.data.mu.Unlock()

	s.Span.SetStatus(code, description)
}

func (s *yamlSpan) SetName(name string) {
	s.data.mu.Lock()
	s.data.Renames = append(s.data.Renames, name)
	s.data.mu.Unlock()

	s.Span.SetName(name)
}

func (s *yamlSpan) SetAttributes(kv ...attribute.KeyValue) {
	s.data.mu.Lock()
	if s.data.Attributes == nil {
		s.data.Attributes = make(Attributes, len(kv))
	}
	attrsInto(kv, s.data.Attributes)
	s.data.mu.Unlock()

	s.Span.SetAttributes(kv...)
}

func (s *yamlSpan) TracerProvider() trace.TracerProvider { return s.provider }

type spanInfoKey struct{}

func withSpanInfo(ctx context.Context, si *SpanInfo) context.Context {
	return context.WithValue(ctx, spanInfoKey{}, si)
}

func getSpanInfo(ctx context.Context) *SpanInfo {
	si, _ := ctx.Value(spanInfoKey{}).(*SpanInfo)
	return si
}
