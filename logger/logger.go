package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

const (
	FormatPretty  = "pretty"
	FormatConsole = "console"
)

// Logger is a zerolog logger plus the floor below which pipeline messages
// are dropped. Derived loggers share the floor.
type Logger struct {
	zl    zerolog.Logger
	floor Level
}

// New builds a logger writing to the configured output.
func New(cfg *Config, serviceName string) *Logger {
	out := io.Writer(os.Stdout)
	if strings.EqualFold(cfg.Output, "stderr") {
		out = os.Stderr
	}
	return NewWithWriter(cfg, serviceName, out)
}

// NewWithWriter builds a logger writing to w. Unknown levels fall back to info.
func NewWithWriter(cfg *Config, serviceName string, w io.Writer) *Logger {
	switch strings.ToLower(cfg.Format) {
	case FormatConsole, FormatPretty:
		w = zerolog.ConsoleWriter{
			Out:             w,
			TimeFormat:      "15:04:05",
			NoColor:         cfg.NoColor,
			FormatFieldName: func(i any) string { return fmt.Sprintf("%s:", i) },
		}
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zc := zerolog.New(w).Level(level).With()
	if serviceName != "" {
		zc = zc.Str("service", serviceName)
	}
	if cfg.Timestamp {
		zc = zc.Timestamp()
	}
	if cfg.Caller {
		zc = zc.Caller()
	}

	floor := LevelDebug
	if cfg.PipelineLevel != "" {
		floor, _ = ParseLevel(cfg.PipelineLevel)
	}
	return &Logger{zl: zc.Logger(), floor: floor}
}

// Nop discards everything.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

func (l *Logger) derive(fn func(zerolog.Context) zerolog.Context) *Logger {
	return &Logger{zl: fn(l.zl.With()).Logger(), floor: l.floor}
}

type requestIDKey struct{}

// ContextWithRequestID stores a request id for WithContext to pick up.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// WithContext tags the logger with the active span and request id, when ctx
// carries them.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	return l.derive(func(zc zerolog.Context) zerolog.Context {
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			zc = zc.Str(FieldTraceID, sc.TraceID().String()).Str(FieldSpanID, sc.SpanID().String())
		}
		if id, ok := ctx.Value(requestIDKey{}).(string); ok {
			zc = zc.Str(FieldRequestID, id)
		}
		return zc
	})
}

func (l *Logger) WithComponent(name string) *Logger {
	return l.derive(func(zc zerolog.Context) zerolog.Context { return zc.Str(FieldComponent, name) })
}

func (l *Logger) WithFields(fields map[string]any) *Logger {
	return l.derive(func(zc zerolog.Context) zerolog.Context { return zc.Fields(fields) })
}

func (l *Logger) WithError(err error) *Logger {
	return l.derive(func(zc zerolog.Context) zerolog.Context { return zc.Err(err) })
}

// Log writes a message emitted by a pipeline step. Messages below the
// pipeline floor are dropped.
func (l *Logger) Log(level Level, msg string, fields ...map[string]any) {
	if level < l.floor {
		return
	}
	emit(l.zl.WithLevel(level.Zerolog()).Str(FieldLevel, level.String()), msg, fields)
}

func (l *Logger) Debug(msg string, fields ...map[string]any) { emit(l.zl.Debug(), msg, fields) }
func (l *Logger) Info(msg string, fields ...map[string]any)  { emit(l.zl.Info(), msg, fields) }
func (l *Logger) Warn(msg string, fields ...map[string]any)  { emit(l.zl.Warn(), msg, fields) }
func (l *Logger) Error(msg string, fields ...map[string]any) { emit(l.zl.Error(), msg, fields) }

func emit(e *zerolog.Event, msg string, fields []map[string]any) {
	for _, f := range fields {
		e = e.Fields(f)
	}
	e.Msg(msg)
}

var global *Logger

// Init replaces the global logger.
func Init(cfg Config) {
	cfg.ApplyDefaults()
	global = New(&cfg, "gears")
}

// GetGlobalLogger returns the logger set by Init, or a console logger at
// info level.
func GetGlobalLogger() *Logger {
	if global == nil {
		global = New(&Config{Level: "info", Format: FormatConsole, Timestamp: true}, "gears")
	}
	return global
}

// Info logs through the global logger.
func Info(msg string, fields ...map[string]any) {
	GetGlobalLogger().Info(msg, fields...)
}
