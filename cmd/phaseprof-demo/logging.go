package main

import (
	"io"
	stdlog "log"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
	"github.com/luxas/deklarative/phaseprof/internal/config"
	"github.com/luxas/deklarative/phaseprof/zaplog"
)

// newLogger builds the logger for cfg.LogFormat, enabled up to
// cfg.LogLevel. Errors of the demo are operational, so they carry no stack
// trace.
func newLogger(cfg *config.Config, w io.Writer) logr.Logger {
	switch cfg.LogFormat {
	case config.LogFormatStd:
		stdr.SetVerbosity(int(cfg.LogLevel))
		return stdr.New(stdlog.New(w, "", stdlog.LstdFlags))
	case config.LogFormatJSON:
		return zaplog.NewZap().HumanFriendlyTime().NoStacktraceOnError().LogTo(w).LogUpto(cfg.LogLevel).Build()
	default:
		return zaplog.NewZap().Console().NoStacktraceOnError().LogTo(w).LogUpto(cfg.LogLevel).Build()
	}
}
