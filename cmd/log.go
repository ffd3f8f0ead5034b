// Package cmd contains the parts shared by the looper commands.
package cmd

import (
	"context"
	"io"
	"log/slog"

	"github.com/vsariola/looper/engine"
)

// NewLogger returns a text logger writing to w. Debug lowers the level and
// adds source positions.
func NewLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: debug,
	}))
}

// LogAlert writes an engine alert at the level matching its priority.
func LogAlert(logger *slog.Logger, a engine.Alert) {
	level := slog.LevelInfo
	switch a.Priority {
	case engine.Warning:
		level = slog.LevelWarn
	case engine.Error:
		level = slog.LevelError
	}
	logger.Log(context.Background(), level, a.Message(), "kind", a.Kind.String(), "looper", a.Looper, "code", a.Code)
}

// LogAlerts logs alerts until done is closed.
func LogAlerts(logger *slog.Logger, alerts <-chan engine.Alert, done <-chan struct{}) {
	for {
		select {
		case a := <-alerts:
			LogAlert(logger, a)
		case <-done:
			return
		}
	}
}

// DrainAlerts logs the alerts waiting in the channel without blocking.
func DrainAlerts(logger *slog.Logger, alerts <-chan engine.Alert) {
	for {
		select {
		case a := <-alerts:
			LogAlert(logger, a)
		default:
			return
		}
	}
}
