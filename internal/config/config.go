// Package config holds the configuration of the phaseprof-demo binary.
//
// Values are layered: Default(), then an optional YAML file, then
// PHASEPROF_* environment variables, then command-line flags.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/luxas/deklarative/phaseprof"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable, e.g. PHASEPROF_BACKEND or
// PHASEPROF_QUEUE_DEPTH.
const EnvPrefix = "PHASEPROF"

// Backends.
const (
	BackendNone    = "none"
	BackendStdout  = "stdout"
	BackendOTLP    = "otlp"
	BackendJaeger  = "jaeger"
	BackendGoTrace = "gotrace"
	BackendRecord  = "record"
)

// Log formats.
const (
	LogFormatJSON    = "json"
	LogFormatConsole = "console"
	LogFormatStd     = "std"
)

var (
	ErrUnknownBackend     = errors.New("unknown backend")
	ErrUnknownLogFormat   = errors.New("unknown log format")
	ErrUnknownStalePolicy = errors.New("unknown stale policy")
	ErrNotPositive        = errors.New("must be positive")
	ErrTraceFileRequired  = errors.New("trace file required")
)

// Config configures one demo run.
type Config struct {
	// Backend is one of none, stdout, otlp, jaeger, gotrace or record.
	Backend string `yaml:"backend"`
	// Endpoint is the collector address for the otlp and jaeger backends.
	// Empty means the exporter default.
	Endpoint string `yaml:"endpoint"`
	// TraceFile receives the gotrace and record output.
	TraceFile string `yaml:"traceFile" split_words:"true"`

	Workers    int           `yaml:"workers"`
	Requests   int           `yaml:"requests"`
	QueueDepth int           `yaml:"queueDepth" split_words:"true"`
	Latency    time.Duration `yaml:"latency"`

	// StalePolicy is close or leak.
	StalePolicy string `yaml:"stalePolicy" split_words:"true"`

	LogLevel  int8   `yaml:"logLevel" split_words:"true"`
	LogFormat string `yaml:"logFormat" split_words:"true"`
	// LogPhases also logs every phase, nesting deeper phases at higher
	// verbosity.
	LogPhases bool `yaml:"logPhases" split_words:"true"`

	// MetricsAddr serves /metrics when set, e.g. ":9090".
	MetricsAddr string `yaml:"metricsAddr" split_words:"true"`
	ServiceName string `yaml:"serviceName" split_words:"true"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Backend:     BackendNone,
		Workers:     4,
		Requests:    1000,
		QueueDepth:  32,
		Latency:     200 * time.Microsecond,
		StalePolicy: phaseprof.CloseStale.String(),
		LogFormat:   LogFormatConsole,
		ServiceName: "phaseprof-demo",
	}
}

// Load returns Default() overlaid with the YAML file at path, if path is
// not empty, and then with the environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := cfg.decodeYAML(bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("loading config from environment: %w", err)
	}
	return cfg, nil
}

func (c *Config) decodeYAML(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate returns all problems with c, combined.
func (c *Config) Validate() error {
	var err error
	switch c.Backend {
	case BackendNone, BackendStdout, BackendOTLP, BackendJaeger:
	case BackendGoTrace, BackendRecord:
		if c.TraceFile == "" {
			err = multierr.Append(err, fmt.Errorf("backend %q: %w", c.Backend, ErrTraceFileRequired))
		}
	default:
		err = multierr.Append(err, fmt.Errorf("%w %q", ErrUnknownBackend, c.Backend))
	}
	switch c.LogFormat {
	case LogFormatJSON, LogFormatConsole, LogFormatStd:
	default:
		err = multierr.Append(err, fmt.Errorf("%w %q", ErrUnknownLogFormat, c.LogFormat))
	}
	if _, perr := c.ParseStalePolicy(); perr != nil {
		err = multierr.Append(err, perr)
	}
	for _, f := range []struct {
		name string
		v    int64
	}{
		{"workers", int64(c.Workers)},
		{"requests", int64(c.Requests)},
		{"queueDepth", int64(c.QueueDepth)},
		{"latency", int64(c.Latency)},
	} {
		if f.v <= 0 {
			err = multierr.Append(err, fmt.Errorf("%s: %w", f.name, ErrNotPositive))
		}
	}
	if c.QueueDepth > 1<<16 {
		err = multierr.Append(err, fmt.Errorf("queueDepth %d exceeds the correlation key space", c.QueueDepth))
	}
	return err
}

// ParseStalePolicy maps StalePolicy to a phaseprof.StalePolicy.
func (c *Config) ParseStalePolicy() (phaseprof.StalePolicy, error) {
	for _, p := range []phaseprof.StalePolicy{phaseprof.CloseStale, phaseprof.LeakStale} {
		if c.StalePolicy == p.String() {
			return p, nil
		}
	}
	return 0, fmt.Errorf("%w %q", ErrUnknownStalePolicy, c.StalePolicy)
}
