// Package logger carries the structured logger through lattice. Commands
// build one from --log-format and --log-level and put it on the context;
// library code takes it back with FromContext.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Output formats accepted by ForFormat.
const (
	FormatPretty = "pretty"
	FormatJSON   = "json"
	FormatText   = "text"
)

// Logger is the logging interface used across lattice.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
	WithGroup(name string) Logger
}

type slogLogger struct {
	l *slog.Logger
}

// New wraps handler in a Logger.
func New(handler slog.Handler) Logger {
	return slogLogger{l: slog.New(handler)}
}

// Default is the logger FromContext falls back to: text on stderr at info.
func Default() Logger {
	return Text(os.Stderr, slog.LevelInfo)
}

func Text(w io.Writer, level slog.Level) Logger {
	return New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// JSON writes one object per record, for log shippers and tests.
func JSON(w io.Writer, level slog.Level) Logger {
	return New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// Pretty writes coloured lines for a terminal. Setting NO_COLOR in the
// environment turns the colour off.
func Pretty(w io.Writer, level slog.Level) Logger {
	return New(NewPrettyHandler(w, PrettyOptions{
		Level:   level,
		NoColor: os.Getenv("NO_COLOR") != "",
	}))
}

func Discard() Logger {
	return New(slog.DiscardHandler)
}

// ForFormat builds the logger named by a --log-format value.
func ForFormat(w io.Writer, format string, level slog.Level) (Logger, error) {
	switch strings.ToLower(format) {
	case "", FormatPretty:
		return Pretty(w, level), nil
	case FormatJSON:
		return JSON(w, level), nil
	case FormatText:
		return Text(w, level), nil
	}
	return nil, fmt.Errorf("unknown log format %q (want %s, %s or %s)", format, FormatPretty, FormatJSON, FormatText)
}

// ParseLevel maps a --log-level value to a slog level. Anything unknown is info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type loggerKey struct{}

// WithContext returns a copy of ctx carrying log.
func WithContext(ctx context.Context, log Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, log)
}

// FromContext returns the logger stored in ctx, or Default.
func FromContext(ctx context.Context) Logger {
	if log, ok := ctx.Value(loggerKey{}).(Logger); ok {
		return log
	}
	return Default()
}

func (s slogLogger) Debug(msg string, args ...any) { s.l.Debug(msg, args...) }
func (s slogLogger) Info(msg string, args ...any)  { s.l.Info(msg, args...) }
func (s slogLogger) Warn(msg string, args ...any)  { s.l.Warn(msg, args...) }
func (s slogLogger) Error(msg string, args ...any) { s.l.Error(msg, args...) }

func (s slogLogger) With(args ...any) Logger {
	return slogLogger{l: s.l.With(args...)}
}

func (s slogLogger) WithGroup(name string) Logger {
	return slogLogger{l: s.l.WithGroup(name)}
}
