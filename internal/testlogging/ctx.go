package testlogging

import (
	"context"
	"testing"

	"go.uber.org/zap/zapcore"

	"github.com/macpgp/macpgp/logging"
)

// Context returns a context whose loggers emit all log entries to the
// testing.T log output.
func Context(t *testing.T) context.Context {
	t.Helper()

	return ContextWithLevel(t, zapcore.DebugLevel)
}

// ContextWithLevel returns a context whose loggers emit entries at or above
// the given level to the testing.T log output.
func ContextWithLevel(t *testing.T, level zapcore.Level) context.Context {
	t.Helper()

	return logging.WithLogger(context.Background(), func(module string) logging.Logger {
		return PrintfLevel(t.Logf, "["+module+"] ", level)
	})
}
