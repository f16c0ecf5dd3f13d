// Package logging provides slog helpers used throughout the application:
// uniform operation/error logging and safe resource cleanup with logged
// failures.
package logging

import (
	"io"
	"log/slog"
)

// LogOperation records a structured operation event at info level.
func LogOperation(logger *slog.Logger, operation string, attrs ...any) {
	logger.Info(operation, attrs...)
}

// LogError records an error with a message and optional attributes.
func LogError(logger *slog.Logger, msg string, err error, attrs ...any) {
	args := make([]any, 0, len(attrs)+1)
	args = append(args, slog.Any("error", err))
	args = append(args, attrs...)
	logger.Error(msg, args...)
}

// SafeCloseWithLogging closes the given closer and logs a failure instead of
// returning it. Use for deferred cleanup where the error cannot be handled.
func SafeCloseWithLogging(closer io.Closer, logger *slog.Logger, name string) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		LogError(logger, "failed to close resource", err, slog.String("resource", name))
	}
}
