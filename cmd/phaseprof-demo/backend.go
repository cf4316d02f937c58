package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/luxas/deklarative/phaseprof"
	"github.com/luxas/deklarative/phaseprof/gotrace"
	"github.com/luxas/deklarative/phaseprof/internal/config"
	"github.com/luxas/deklarative/phaseprof/otelbackend"
	"github.com/luxas/deklarative/phaseprof/recorder"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	semconv "go.opentelemetry.io/otel/semconv/v1.12.0"
	"go.uber.org/multierr"
)

// newBackend builds the backend selected by cfg. finish is called after
// the profiler was closed and writes or releases what the backend holds.
func newBackend(ctx context.Context, cfg *config.Config, stdout io.Writer) (b phaseprof.Backend, finish func() error, err error) {
	noop := func() error { return nil }

	switch cfg.Backend {
	case config.BackendNone:
		return phaseprof.Discard(), noop, nil

	case config.BackendStdout, config.BackendOTLP, config.BackendJaeger:
		pb := otelbackend.Provider().
			WithAttributes(semconv.ServiceNameKey.String(cfg.ServiceName))
		switch cfg.Backend {
		case config.BackendStdout:
			pb = pb.WithStdoutExporter(stdouttrace.WithWriter(stdout))
		case config.BackendOTLP:
			pb = pb.WithInsecureOTelExporter(ctx, cfg.Endpoint)
		default:
			pb = pb.WithInsecureJaegerExporter(cfg.Endpoint)
		}
		tp, err := pb.Build()
		if err != nil {
			return nil, nil, fmt.Errorf("building %s trace provider: %w", cfg.Backend, err)
		}
		// The profiler flushes and shuts down tp on Close.
		return otelbackend.New(tp), noop, nil

	case config.BackendGoTrace:
		f, err := os.Create(cfg.TraceFile)
		if err != nil {
			return nil, nil, err
		}
		stop, err := gotrace.Start(f)
		if err != nil {
			return nil, nil, multierr.Append(err, f.Close())
		}
		return gotrace.New(), func() error {
			stop()
			return f.Close()
		}, nil

	case config.BackendRecord:
		rec := recorder.New()
		return rec, func() (err error) {
			f, err := os.Create(cfg.TraceFile)
			if err != nil {
				return err
			}
			defer func() { err = multierr.Append(err, f.Close()) }()
			return rec.WriteJSON(f)
		}, nil
	}
	return nil, nil, fmt.Errorf("%w %q", config.ErrUnknownBackend, cfg.Backend)
}
