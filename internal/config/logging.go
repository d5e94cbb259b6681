package config

import (
	"io"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
)

// SetupLogger builds the process logger: human-readable text on stderr and,
// when a log file is configured and writable, a JSON copy fanned out to it.
// The returned cleanup closes the file; it is a no-op for stderr-only.
func SetupLogger(logFile string, level slog.Level) (*slog.Logger, func() error) {
	stderr := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	noop := func() error { return nil }

	if logFile == "" {
		return slog.New(stderr), noop
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		slog.Error("log file unavailable, logging to stderr only", "file", logFile, "error", err)
		return slog.New(stderr), noop
	}

	handler := slogmulti.Fanout(
		stderr,
		slog.NewJSONHandler(file, &slog.HandlerOptions{Level: level}),
	)
	return slog.New(handler), file.Close
}

// SetupLoggerWithWriters builds the same dual-output logger over arbitrary
// writers, used by tests.
func SetupLoggerWithWriters(stderr, file io.Writer, level slog.Level) *slog.Logger {
	handler := slogmulti.Fanout(
		slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}),
		slog.NewJSONHandler(file, &slog.HandlerOptions{Level: level}),
	)
	return slog.New(handler)
}
