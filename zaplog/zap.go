// Package zaplog builds the logr.Logger used by phaseprof and its demo
// binary on top of go.uber.org/zap.
//
// Levels are printed with their logr verbosity, "info(v=0)", "debug(v=1)"
// and so on, because phaseprof logs its bookkeeping (replaced and missed
// async keys) at V(1).
package zaplog

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"strconv"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type (
	// EncoderConfig is a symbolic link to zapcore.EncoderConfig.
	EncoderConfig = zapcore.EncoderConfig
	// LevelEncoder is a symbolic link to zapcore.LevelEncoder.
	LevelEncoder = zapcore.LevelEncoder

	// EncoderConfigOption mutates the EncoderConfig at Build time.
	EncoderConfigOption func(*EncoderConfig)
	// EncoderCreator creates a zapcore.Encoder from a populated EncoderConfig.
	EncoderCreator func(EncoderConfig) zapcore.Encoder
)

// JSONEncoderCreator returns zapcore.NewJSONEncoder.
func JSONEncoderCreator() EncoderCreator { return zapcore.NewJSONEncoder }

// ConsoleEncoderCreator returns zapcore.NewConsoleEncoder.
func ConsoleEncoderCreator() EncoderCreator { return zapcore.NewConsoleEncoder }

func verbosity(l zapcore.Level) string { return "(v=" + strconv.Itoa(int(-l)) + ")" }

// LowercaseLevelEncoder encodes levels like zapcore.LowercaseLevelEncoder,
// except that every level below debug is also called "debug", and info and
// debug levels get a "(v=N)" suffix with the logr verbosity N.
func LowercaseLevelEncoder() LevelEncoder {
	return func(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
		str := l.String()
		if l < zap.DebugLevel {
			str = "debug"
		}
		if l <= zap.InfoLevel {
			str += verbosity(l)
		}
		enc.AppendString(str)
	}
}

// CapitalLevelEncoder is the upper-case variant of LowercaseLevelEncoder.
func CapitalLevelEncoder() LevelEncoder {
	return func(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
		str := l.CapitalString()
		if l < zap.DebugLevel {
			str = "DEBUG"
		}
		if l <= zap.InfoLevel {
			str += verbosity(l)
		}
		enc.AppendString(str)
	}
}

// NewZap returns a *Builder writing JSON with the production encoder
// configuration to os.Stdout, at logr level 0.
func NewZap() *Builder {
	return (&Builder{
		out:            os.Stdout,
		encoderCfg:     zap.NewProductionEncoderConfig(),
		encoderCreator: JSONEncoderCreator(),
	}).WithLevelEncoder(LowercaseLevelEncoder())
}

// Builder is a builder-pattern constructor for a zap-backed logr.Logger.
type Builder struct {
	out            io.Writer
	encoderCfg     EncoderConfig
	encoderCfgOpts []EncoderConfigOption
	encoderCreator EncoderCreator
	level          zapcore.Level
	opts           []zap.Option
}

// LogTo sets the destination. The writer is wrapped with zapcore.Lock, so
// it may be shared between goroutines.
//
// A call to this function overwrites any previous value.
func (b *Builder) LogTo(w io.Writer) *Builder {
	b.out = w
	return b
}

// WithEncoderConfig replaces the base EncoderConfig.
//
// A call to this function overwrites any previous value.
func (b *Builder) WithEncoderConfig(cfg EncoderConfig) *Builder {
	b.encoderCfg = cfg
	return b
}

// WithEncoderConfigOption patches individual fields of the EncoderConfig
// when Build is called.
//
// A call to this function appends to the list of previous values.
func (b *Builder) WithEncoderConfigOption(opts ...EncoderConfigOption) *Builder {
	b.encoderCfgOpts = append(b.encoderCfgOpts, opts...)
	return b
}

// WithEncoderCreator selects the encoder. Defaults to JSONEncoderCreator().
//
// A call to this function overwrites any previous value.
func (b *Builder) WithEncoderCreator(c EncoderCreator) *Builder {
	b.encoderCreator = c
	return b
}

// LogUpto enables every logr level less than or equal to logrLevel. Zap
// levels are negated logr levels, so logr V(2) is zap level -2.
// Negative values are ignored, as logr has no negative levels.
//
// A call to this function overwrites any previous value.
func (b *Builder) LogUpto(logrLevel int8) *Builder {
	if logrLevel >= 0 {
		b.level = zapcore.Level(-logrLevel)
	}
	return b
}

// WithOptions appends zap options, applied after the defaults
// zap.AddStacktrace(zap.ErrorLevel) and zap.ErrorOutput(sink).
//
// A call to this function appends to the list of previous values.
func (b *Builder) WithOptions(opts ...zap.Option) *Builder {
	b.opts = append(b.opts, opts...)
	return b
}

// Console switches to the console encoder with human-friendly time and
// capital level names.
func (b *Builder) Console() *Builder {
	return b.WithEncoderCreator(ConsoleEncoderCreator()).
		HumanFriendlyTime().
		WithLevelEncoder(CapitalLevelEncoder())
}

// Example makes the output deterministic for examples and tests: no
// timestamps and no stack traces on errors.
func (b *Builder) Example() *Builder {
	return b.HumanFriendlyTime().
		NoTimestamps().
		NoStacktraceOnError()
}

// NoStacktraceOnError only prints stack traces from zap's DPanic level.
func (b *Builder) NoStacktraceOnError() *Builder {
	return b.WithOptions(zap.AddStacktrace(zap.DPanicLevel))
}

// WithLevelEncoder sets how levels are encoded. Defaults to
// LowercaseLevelEncoder().
func (b *Builder) WithLevelEncoder(enc LevelEncoder) *Builder {
	return b.WithEncoderConfigOption(func(ec *EncoderConfig) {
		ec.EncodeLevel = enc
	})
}

// NoTimestamps omits the time key.
func (b *Builder) NoTimestamps() *Builder {
	return b.WithEncoderConfigOption(func(ec *EncoderConfig) {
		ec.TimeKey = zapcore.OmitKey
	})
}

// HumanFriendlyTime encodes times as ISO8601 and durations with
// time.Duration.String.
func (b *Builder) HumanFriendlyTime() *Builder {
	return b.WithEncoderConfigOption(func(ec *EncoderConfig) {
		ec.EncodeTime = zapcore.ISO8601TimeEncoder
		ec.EncodeDuration = zapcore.StringDurationEncoder
	})
}

// Build builds the logr.Logger.
func (b *Builder) Build() logr.Logger {
	sink := zapcore.Lock(zapcore.AddSync(b.out))

	encCfg := b.encoderCfg
	for _, mutate := range b.encoderCfgOpts {
		mutate(&encCfg)
	}

	opts := append([]zap.Option{
		zap.AddStacktrace(zap.ErrorLevel),
		zap.ErrorOutput(sink),
	}, b.opts...)

	// The level encoder already prints the verbosity, so zapr's own
	// numeric level field is turned off.
	return zapr.NewLoggerWithOptions(
		zap.New(zapcore.NewCore(b.encoderCreator(encCfg), sink, b.level), opts...),
		zapr.LogInfoLevel(""),
	)
}

// FilterStacktraceOrigins drops every line starting with a tab, i.e. the
// file:line part of console stack traces, which differs between machines
// and Go versions.
func FilterStacktraceOrigins(content []byte) []byte {
	s := bufio.NewScanner(bytes.NewReader(content))
	out := make([]byte, 0, len(content))
	for s.Scan() {
		line := s.Bytes()
		if bytes.HasPrefix(line, []byte("\t")) {
			continue
		}
		out = append(out, line...)
		out = append(out, '\n')
	}
	return out
}
