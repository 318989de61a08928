// Package logging provides the structured logging interface used by every
// SessionSync component and its zap-backed implementation.  Components depend
// on the Logger interface only; go.uber.org/zap is not imported outside this
// package.
//
// Initialisation order in cmd/*/main.go:
//
//  1. Load configuration.
//  2. Call NewLogger(cfg.Log.ToLogConfig()).
//  3. Construct all other components, injecting the Logger instance.
package logging

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level names accepted by LogConfig.Level.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// ─────────────────────────────────────────────────────────────────────────────
// Field: structured log field carrier
// ─────────────────────────────────────────────────────────────────────────────

// Field is a typed key-value pair attached to a log entry.
type Field struct {
	Key   string
	Value interface{}
}

// String constructs a Field with a string value.
func String(key, val string) Field { return Field{Key: key, Value: val} }

// Int constructs a Field with an int value.
func Int(key string, val int) Field { return Field{Key: key, Value: val} }

// Int64 constructs a Field with an int64 value.
func Int64(key string, val int64) Field { return Field{Key: key, Value: val} }

// Float64 constructs a Field with a float64 value.
func Float64(key string, val float64) Field { return Field{Key: key, Value: val} }

// Bool constructs a Field with a bool value.
func Bool(key string, val bool) Field { return Field{Key: key, Value: val} }

// Err constructs a Field that captures an error under the key "error".
func Err(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: "<nil>"}
	}
	return Field{Key: "error", Value: err.Error()}
}

// Any constructs a Field with an arbitrary value.
func Any(key string, val interface{}) Field { return Field{Key: key, Value: val} }

// Duration constructs a Field with a time.Duration value.
func Duration(key string, val time.Duration) Field { return Field{Key: key, Value: val} }

// Time constructs a Field with a time.Time value.
func Time(key string, val time.Time) Field { return Field{Key: key, Value: val} }

// ─────────────────────────────────────────────────────────────────────────────
// Logger interface
// ─────────────────────────────────────────────────────────────────────────────

// Logger is the structured logging contract.  All components receive a Logger
// via constructor injection.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	// Fatal logs at FATAL level and then calls os.Exit(1).  Startup only.
	Fatal(msg string, fields ...Field)

	// With returns a child Logger that adds fields to every entry.
	With(fields ...Field) Logger

	// Named returns a child Logger whose name is appended to the parent's
	// with a period separator (e.g. "worker" → "worker.backfill").
	Named(name string) Logger
}

// LevelSetter is implemented by loggers whose minimum level can be changed at
// runtime (config hot reload).
type LevelSetter interface {
	SetLevel(level string)
}

// ─────────────────────────────────────────────────────────────────────────────
// LogConfig: logger construction parameters
// ─────────────────────────────────────────────────────────────────────────────

// LogConfig carries the parameters required to construct a Logger.
type LogConfig struct {
	// Level is one of debug|info|warn|error (case-insensitive).  Unknown
	// values fall back to info.
	Level string `yaml:"level" json:"level"`

	// Format is "json" (default) or "console".
	Format string `yaml:"format" json:"format"`

	// OutputPaths defaults to ["stdout"] when nil.  An empty non-nil slice is
	// rejected.
	OutputPaths []string `yaml:"output_paths" json:"output_paths"`

	// ErrorOutputPaths defaults to ["stderr"] when empty.
	ErrorOutputPaths []string `yaml:"error_output_paths" json:"error_output_paths"`

	// EnableCaller adds the caller file:line to every entry.
	EnableCaller bool `yaml:"enable_caller" json:"enable_caller"`
}

// ─────────────────────────────────────────────────────────────────────────────
// zapLogger: zap-backed Logger implementation
// ─────────────────────────────────────────────────────────────────────────────

type zapLogger struct {
	z     *zap.Logger
	level zap.AtomicLevel
}

// toZapFields converts Field values into zap.Field values without reflection
// for the common concrete types.
func toZapFields(fields []Field) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		switch v := f.Value.(type) {
		case string:
			out = append(out, zap.String(f.Key, v))
		case int:
			out = append(out, zap.Int(f.Key, v))
		case int64:
			out = append(out, zap.Int64(f.Key, v))
		case float64:
			out = append(out, zap.Float64(f.Key, v))
		case bool:
			out = append(out, zap.Bool(f.Key, v))
		case time.Duration:
			out = append(out, zap.Duration(f.Key, v))
		case time.Time:
			out = append(out, zap.Time(f.Key, v))
		case error:
			out = append(out, zap.NamedError(f.Key, v))
		default:
			out = append(out, zap.Any(f.Key, v))
		}
	}
	return out
}

func (l *zapLogger) Debug(msg string, fields ...Field) { l.z.Debug(msg, toZapFields(fields)...) }
func (l *zapLogger) Info(msg string, fields ...Field)  { l.z.Info(msg, toZapFields(fields)...) }
func (l *zapLogger) Warn(msg string, fields ...Field)  { l.z.Warn(msg, toZapFields(fields)...) }
func (l *zapLogger) Error(msg string, fields ...Field) { l.z.Error(msg, toZapFields(fields)...) }
func (l *zapLogger) Fatal(msg string, fields ...Field) { l.z.Fatal(msg, toZapFields(fields)...) }

func (l *zapLogger) With(fields ...Field) Logger {
	return &zapLogger{z: l.z.With(toZapFields(fields)...), level: l.level}
}

func (l *zapLogger) Named(name string) Logger {
	return &zapLogger{z: l.z.Named(name), level: l.level}
}

// SetLevel changes the minimum level for this logger and every child derived
// from it.
func (l *zapLogger) SetLevel(level string) {
	l.level.SetLevel(parseLevel(level))
}

// ─────────────────────────────────────────────────────────────────────────────
// Factories
// ─────────────────────────────────────────────────────────────────────────────

func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn, "warning":
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// NewLogger constructs a zap-backed Logger according to cfg.
//
// Returns an error when OutputPaths is an explicitly empty slice or when zap
// cannot open an output path.
func NewLogger(cfg LogConfig) (Logger, error) {
	if cfg.OutputPaths == nil {
		cfg.OutputPaths = []string{"stdout"}
	}
	if len(cfg.OutputPaths) == 0 {
		return nil, fmt.Errorf("logging: at least one output path is required")
	}
	if len(cfg.ErrorOutputPaths) == 0 {
		cfg.ErrorOutputPaths = []string{"stderr"}
	}

	console := strings.EqualFold(cfg.Format, "console") || strings.EqualFold(cfg.Format, "text")

	var encCfg zapcore.EncoderConfig
	encoding := "json"
	if console {
		encCfg = zap.NewDevelopmentEncoderConfig()
		encoding = "console"
	} else {
		encCfg = zap.NewProductionEncoderConfig()
	}
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	level := zap.NewAtomicLevelAt(parseLevel(cfg.Level))
	zapCfg := zap.Config{
		Level:             level,
		Development:       console,
		DisableCaller:     !cfg.EnableCaller,
		DisableStacktrace: !console,
		Encoding:          encoding,
		EncoderConfig:     encCfg,
		OutputPaths:       cfg.OutputPaths,
		ErrorOutputPaths:  cfg.ErrorOutputPaths,
	}

	z, err := zapCfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, fmt.Errorf("logging: failed to build zap logger: %w", err)
	}
	return &zapLogger{z: z, level: level}, nil
}

// NewLoggerFromCore constructs a Logger from an existing zapcore.Core.  Tests
// use it with zaptest/observer to assert on emitted entries.
func NewLoggerFromCore(core zapcore.Core) Logger {
	return &zapLogger{z: zap.New(core, zap.AddCallerSkip(1)), level: zap.NewAtomicLevel()}
}

// ─────────────────────────────────────────────────────────────────────────────
// nopLogger
// ─────────────────────────────────────────────────────────────────────────────

type nopLogger struct{}

func (nopLogger) Debug(_ string, _ ...Field) {}
func (nopLogger) Info(_ string, _ ...Field)  {}
func (nopLogger) Warn(_ string, _ ...Field)  {}
func (nopLogger) Error(_ string, _ ...Field) {}
func (nopLogger) Fatal(_ string, _ ...Field) {}
func (n nopLogger) With(_ ...Field) Logger   { return n }
func (n nopLogger) Named(_ string) Logger    { return n }

// NewNopLogger returns a Logger that discards all entries.
func NewNopLogger() Logger { return nopLogger{} }
