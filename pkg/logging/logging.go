// Package logging provides the protocol core's debug/error log sinks, a
// thin wrapper over the standard library's log/slog. It maps onto the
// reference implementation's debug_printf/error_printf call sites: debug
// for recoverable oddities worth tracing (folded headers, unsupported
// cookie attributes, unknown challenge params), error for failures the
// caller should see surfaced as a returned error too.
package logging

import (
	"io"
	"log/slog"
	"os"
)

var logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

// SetOutput redirects log output, for tests that want to capture or
// silence it.
func SetOutput(w io.Writer, level slog.Level) {
	logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Debug logs a recoverable, non-actionable oddity.
func Debug(msg string, args ...any) {
	logger.Debug(msg, args...)
}

// Error logs a failure, independent of whatever error value the caller
// also returns.
func Error(msg string, args ...any) {
	logger.Error(msg, args...)
}
