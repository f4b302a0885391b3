package slabwheel

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"strings"
)

// Logger receives the wheel's diagnostics: overdue inserts, inserts beyond
// the horizon and cascades of the higher levels.
type Logger interface {
	Printf(string, ...any)
}

// LoggerFunc is a bridge between Logger and any third party logger.
type LoggerFunc func(string, ...any)

// Printf implements Logger interface.
func (f LoggerFunc) Printf(msg string, args ...any) { f(msg, args...) }

// defaultLogger writes nothing.
var defaultLogger = LoggerFunc(func(string, ...any) {})

// Printf is a logger which wraps log.Printf
var Printf = LoggerFunc(log.Printf)

// NewSlogLogger returns a Logger that writes every message to l at level.
// Nothing is formatted when l has level disabled.
func NewSlogLogger(l *slog.Logger, level slog.Level) Logger {
	return LoggerFunc(func(msg string, args ...any) {
		ctx := context.Background()
		if !l.Enabled(ctx, level) {
			return
		}
		l.Log(ctx, level, strings.TrimSuffix(fmt.Sprintf(msg, args...), "\n"))
	})
}
