package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-logr/logr"
	"github.com/luxas/deklarative/phaseprof"
	"github.com/luxas/deklarative/phaseprof/internal/config"
	"github.com/luxas/deklarative/phaseprof/internal/pipeline"
	"github.com/luxas/deklarative/phaseprof/logbackend"
	"github.com/luxas/deklarative/phaseprof/promstats"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

type runOptions struct {
	configPath string
	// flags holds flag values; only the ones set on the command line are
	// applied on top of the loaded configuration.
	flags config.Config
}

func newRunCmd() *cobra.Command {
	o := &runOptions{flags: *config.Default()}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline under the profiler",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := o.config(cmd)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cmd, cfg)
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.configPath, "config", "", "YAML configuration file")
	f.StringVar(&o.flags.Backend, "backend", o.flags.Backend, "none, stdout, otlp, jaeger, gotrace or record")
	f.StringVar(&o.flags.Endpoint, "endpoint", o.flags.Endpoint, "collector address for the otlp and jaeger backends")
	f.StringVar(&o.flags.TraceFile, "trace-file", o.flags.TraceFile, "output file of the gotrace and record backends")
	f.IntVar(&o.flags.Workers, "workers", o.flags.Workers, "number of fetch workers")
	f.IntVar(&o.flags.Requests, "requests", o.flags.Requests, "number of page requests")
	f.IntVar(&o.flags.QueueDepth, "queue-depth", o.flags.QueueDepth, "device submission queue slots")
	f.DurationVar(&o.flags.Latency, "latency", o.flags.Latency, "device command latency")
	f.StringVar(&o.flags.StalePolicy, "stale-policy", o.flags.StalePolicy, "close or leak async ranges replaced by key reuse")
	f.Int8VarP(&o.flags.LogLevel, "verbosity", "v", o.flags.LogLevel, "log verbosity")
	f.StringVar(&o.flags.LogFormat, "log-format", o.flags.LogFormat, "json, console or std")
	f.BoolVar(&o.flags.LogPhases, "log-phases", o.flags.LogPhases, "log every phase in addition to the backend")
	f.StringVar(&o.flags.MetricsAddr, "metrics-addr", o.flags.MetricsAddr, "serve Prometheus metrics on this address")
	f.StringVar(&o.flags.ServiceName, "service-name", o.flags.ServiceName, "service.name of exported traces")
	return cmd
}

// config loads the file and environment, then applies the flags that
// were set.
func (o *runOptions) config(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	changed := cmd.Flags().Changed
	set := func(name string, apply func()) {
		if changed(name) {
			apply()
		}
	}
	set("backend", func() { cfg.Backend = o.flags.Backend })
	set("endpoint", func() { cfg.Endpoint = o.flags.Endpoint })
	set("trace-file", func() { cfg.TraceFile = o.flags.TraceFile })
	set("workers", func() { cfg.Workers = o.flags.Workers })
	set("requests", func() { cfg.Requests = o.flags.Requests })
	set("queue-depth", func() { cfg.QueueDepth = o.flags.QueueDepth })
	set("latency", func() { cfg.Latency = o.flags.Latency })
	set("stale-policy", func() { cfg.StalePolicy = o.flags.StalePolicy })
	set("verbosity", func() { cfg.LogLevel = o.flags.LogLevel })
	set("log-format", func() { cfg.LogFormat = o.flags.LogFormat })
	set("log-phases", func() { cfg.LogPhases = o.flags.LogPhases })
	set("metrics-addr", func() { cfg.MetricsAddr = o.flags.MetricsAddr })
	set("service-name", func() { cfg.ServiceName = o.flags.ServiceName })

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func run(ctx context.Context, cmd *cobra.Command, cfg *config.Config) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	log := newLogger(cfg, cmd.ErrOrStderr())
	policy, _ := cfg.ParseStalePolicy()

	backend, finish, err := newBackend(ctx, cfg, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if cfg.LogPhases {
		backend = logbackend.New(log.WithName("phases")).Wrap(backend).Build()
	}

	reg := prometheus.NewRegistry()
	pb := phaseprof.New().
		WithBackend(backend).
		WithLogger(log.WithName("phaseprof")).
		WithStalePolicy(policy).
		WithObserver(promstats.New(reg, ""))
	prof := pb.Build()
	defer func() {
		err = multierr.Combine(err, prof.Close(context.Background()), finish())
	}()

	if cfg.MetricsAddr != "" {
		stop, err := serveMetrics(cfg.MetricsAddr, reg, log)
		if err != nil {
			return err
		}
		defer stop()
	}

	pl := pipeline.New(prof, pipeline.Options{
		Workers:    cfg.Workers,
		QueueDepth: cfg.QueueDepth,
		Latency:    cfg.Latency,
		Logger:     log.WithName("pipeline"),
	})
	log.Info("starting run", "backend", cfg.Backend, "requests", cfg.Requests, "workers", cfg.Workers)

	res, err := pl.Run(phaseprof.NewContext(ctx, prof), pages(cfg.Requests))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "requests=%d hits=%d misses=%d elapsed=%s\n",
		res.Requests, res.Hits, res.Misses, res.Elapsed.Round(time.Microsecond))
	return nil
}

// pages returns n page numbers cycling over a working set of n/2 pages, so
// that the second half of the run mostly hits the cache.
func pages(n int) []uint64 {
	set := n / 2
	if set == 0 {
		set = 1
	}
	out := make([]uint64, n)
	for i := range out {
		out[i] = uint64(i % set)
	}
	return out
}

func serveMetrics(addr string, reg *prometheus.Registry, log logr.Logger) (stop func(), err error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listening for metrics: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(err, "serving metrics")
		}
	}()
	log.Info("serving metrics", "addr", ln.Addr().String())

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
