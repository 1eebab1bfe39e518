package rvgpu

import (
	"log/slog"
	"sync/atomic"
)

var logger atomic.Pointer[slog.Logger]

// Logger returns the logger used for compiler diagnostics.
func Logger() *slog.Logger {
	if l := logger.Load(); l != nil {
		return l
	}
	return slog.Default()
}

// SetLogger replaces the diagnostics logger. A nil logger restores
// slog.Default.
func SetLogger(l *slog.Logger) { logger.Store(l) }

// todo reports a known incompleteness. Compilation continues.
func todo(msg string, args ...any) {
	Logger().Warn("TODO: "+msg, args...)
}
