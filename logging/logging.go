// Package logging provides loggers for the rest of the codebase.
package logging

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Logger is an alias for zap logger.
type Logger = *zap.SugaredLogger

// LoggerFactory retrieves a named logger for a given module.
type LoggerFactory func(module string) Logger

// NullLogger discards all log messages.
var NullLogger = zap.NewNop().Sugar()

//nolint:gochecknoglobals
var moduleLoggers sync.Map

// Module returns an accessor for the per-module logger attached to the
// context. Accessors are cached per module name so packages can declare
// `var log = logging.Module("name")` once and call `log(ctx)` cheaply.
func Module(module string) func(ctx context.Context) Logger {
	if v, ok := moduleLoggers.Load(module); ok {
		return v.(func(ctx context.Context) Logger) //nolint:forcetypeassert
	}

	f := func(ctx context.Context) Logger {
		return createLoggerForModule(ctx, module)
	}

	actual, _ := moduleLoggers.LoadOrStore(module, f)

	return actual.(func(ctx context.Context) Logger) //nolint:forcetypeassert
}
