package phaseprof

import (
	"sync"

	"github.com/go-logr/logr"
)

//nolint:gochecknoglobals
var (
	logger   = logr.Discard()
	loggerMu = &sync.Mutex{}
)

// GetGlobalLogger gets the globally-registered Logger in this package.
// The default Logger implementation is logr.Discard().
func GetGlobalLogger() Logger {
	loggerMu.Lock()
	defer loggerMu.Unlock()

	return logger
}

// SetGlobalLogger sets the globally-registered Logger in this package.
// Profilers built afterwards without WithLogger use it.
func SetGlobalLogger(log Logger) {
	loggerMu.Lock()
	defer loggerMu.Unlock()

	logger = log
}
