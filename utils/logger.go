package utils

import (
	"log/slog"
	"os"
)

// Logger is what documents and stores log through. With returns a
// logger that adds the given key/value pairs to every record, so a doc
// can tag its lines with its client id and a store with its directory.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
}

// SlogLogger prefixes every message with "[ydoc] " and hands it to slog.
type SlogLogger struct {
	slog *slog.Logger
}

// NewDefaultLogger writes text records at level and above to stderr.
func NewDefaultLogger(level slog.Level) *SlogLogger {
	return NewLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}

// NewLogger wraps an existing slog logger, e.g. one writing JSON.
func NewLogger(l *slog.Logger) *SlogLogger {
	return &SlogLogger{slog: l}
}

const prefix = "[ydoc] "

func (l *SlogLogger) Debug(msg string, args ...any) {
	l.slog.Debug(prefix+msg, args...)
}

func (l *SlogLogger) Info(msg string, args ...any) {
	l.slog.Info(prefix+msg, args...)
}

func (l *SlogLogger) Warn(msg string, args ...any) {
	l.slog.Warn(prefix+msg, args...)
}

func (l *SlogLogger) Error(msg string, args ...any) {
	l.slog.Error(prefix+msg, args...)
}

func (l *SlogLogger) With(args ...any) Logger {
	return &SlogLogger{slog: l.slog.With(args...)}
}
