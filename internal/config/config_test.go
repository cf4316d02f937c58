package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/luxas/deklarative/phaseprof"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "phaseprof.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_layers(t *testing.T) {
	path := writeFile(t, `
backend: record
traceFile: /tmp/events.json
workers: 8
latency: 2ms
stalePolicy: leak
`)
	t.Setenv("PHASEPROF_WORKERS", "16")
	t.Setenv("PHASEPROF_QUEUE_DEPTH", "64")
	t.Setenv("PHASEPROF_LOG_FORMAT", "json")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, BackendRecord, cfg.Backend)
	assert.Equal(t, "/tmp/events.json", cfg.TraceFile)
	assert.Equal(t, 16, cfg.Workers, "the environment overrides the file")
	assert.Equal(t, 64, cfg.QueueDepth)
	assert.Equal(t, 2*time.Millisecond, cfg.Latency)
	assert.Equal(t, LogFormatJSON, cfg.LogFormat)
	assert.Equal(t, 1000, cfg.Requests, "unset values keep their default")
	require.NoError(t, cfg.Validate())

	policy, err := cfg.ParseStalePolicy()
	require.NoError(t, err)
	assert.Equal(t, phaseprof.LeakStale, policy)
}

func TestLoad_errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Load(writeFile(t, "workerz: 3\n"))
	assert.ErrorContains(t, err, "workerz")

	t.Setenv("PHASEPROF_REQUESTS", "many")
	_, err = Load("")
	assert.ErrorContains(t, err, "PHASEPROF_REQUESTS")
}

func TestLoad_emptyFile(t *testing.T) {
	cfg, err := Load(writeFile(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Backend = "nvtx"
	cfg.LogFormat = "xml"
	cfg.StalePolicy = "forget"
	cfg.Workers = 0
	cfg.Latency = -time.Second

	err := cfg.Validate()
	assert.ErrorIs(t, err, ErrUnknownBackend)
	assert.ErrorIs(t, err, ErrUnknownLogFormat)
	assert.ErrorIs(t, err, ErrUnknownStalePolicy)
	assert.ErrorIs(t, err, ErrNotPositive)
	assert.Len(t, multierr.Errors(err), 5)

	cfg = Default()
	cfg.Backend = BackendGoTrace
	assert.ErrorIs(t, cfg.Validate(), ErrTraceFileRequired)

	cfg = Default()
	cfg.QueueDepth = 1 << 17
	assert.ErrorContains(t, cfg.Validate(), "correlation key space")
}
