package logging

import (
	"context"
	"sync"
)

type contextKey string

const loggerCacheKey contextKey = "logger"

// loggerCache memoizes loggers created by a factory so that repeated
// `log(ctx)` calls for the same module reuse one logger.
type loggerCache struct {
	createLogger LoggerFactory
	loggers      sync.Map
}

func (c *loggerCache) getLogger(module string) Logger {
	v, ok := c.loggers.Load(module)
	if !ok {
		v, _ = c.loggers.LoadOrStore(module, c.createLogger(module))
	}

	return v.(Logger) //nolint:forcetypeassert
}

// WithLogger returns a derived context with the provided logger factory.
// Code that receives a context without a factory logs to NullLogger.
func WithLogger(ctx context.Context, l LoggerFactory) context.Context {
	if l == nil {
		l = func(module string) Logger { return NullLogger }
	}

	return context.WithValue(ctx, loggerCacheKey, &loggerCache{createLogger: l})
}

// WithAdditionalLogger returns a derived context that logs both to the
// factory already attached to the context and to the provided one.
func WithAdditionalLogger(ctx context.Context, l LoggerFactory) context.Context {
	prev, ok := ctx.Value(loggerCacheKey).(*loggerCache)
	if !ok {
		return WithLogger(ctx, l)
	}

	return WithLogger(ctx, func(module string) Logger {
		return Broadcast(prev.getLogger(module), l(module))
	})
}

func createLoggerForModule(ctx context.Context, module string) Logger {
	if c, ok := ctx.Value(loggerCacheKey).(*loggerCache); ok {
		return c.getLogger(module)
	}

	return NullLogger
}
