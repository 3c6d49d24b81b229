package logger

import (
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

var (
	// Default logger writes to stderr
	std = log.New(os.Stderr, "[tcparse] ", log.LstdFlags)

	level      = new(slog.LevelVar)
	structured atomic.Pointer[slog.Logger]
)

func init() {
	level.Set(slog.LevelWarn)
	structured.Store(newStructured(os.Stderr))
}

func newStructured(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func SetOutput(output io.Writer) {
	std.SetOutput(output)
	structured.Store(newStructured(output))
}

// SetLevel sets the minimum level of the structured calls. Accepts
// debug, info, warn/warning and error in any case.
func SetLevel(name string) error {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		level.Set(slog.LevelDebug)
	case "info":
		level.Set(slog.LevelInfo)
	case "warn", "warning":
		level.Set(slog.LevelWarn)
	case "error":
		level.Set(slog.LevelError)
	default:
		return fmt.Errorf("unknown log level %q", name)
	}
	return nil
}

func Level() slog.Level {
	return level.Level()
}

func Printf(format string, v ...interface{}) {
	std.Printf(format, v...)
}

func Fatalf(format string, v ...interface{}) {
	std.Fatalf(format, v...)
}

func Debug(msg string, args ...any) {
	structured.Load().Debug(msg, args...)
}

func Info(msg string, args ...any) {
	structured.Load().Info(msg, args...)
}

func Warn(msg string, args ...any) {
	structured.Load().Warn(msg, args...)
}

func Error(msg string, args ...any) {
	structured.Load().Error(msg, args...)
}
