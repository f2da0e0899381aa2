// Package logging provides small helpers for structured logging with log/slog.
package logging

import (
	"io"
	"log/slog"
)

// LogOperation records a named operation at info level with optional attributes.
func LogOperation(logger *slog.Logger, operation string, attrs ...slog.Attr) {
	if logger == nil {
		logger = slog.Default()
	}
	args := make([]any, 0, len(attrs))
	for _, attr := range attrs {
		args = append(args, attr)
	}
	logger.Info(operation, args...)
}

// LogError records an error with a human-readable message.
func LogError(logger *slog.Logger, msg string, err error, attrs ...slog.Attr) {
	if logger == nil {
		logger = slog.Default()
	}
	args := make([]any, 0, len(attrs)+1)
	args = append(args, slog.Any("error", err))
	for _, attr := range attrs {
		args = append(args, attr)
	}
	logger.Error(msg, args...)
}

// SafeCloseWithLogging closes a resource and logs a failure instead of
// silently discarding it. Intended for use in defer statements.
func SafeCloseWithLogging(closer io.Closer, logger *slog.Logger, resourceName string) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		LogError(logger, "failed to close resource", err,
			slog.String("resource", resourceName))
	}
}
