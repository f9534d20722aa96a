// Package testlogging implements loggers that write to testing.T output.
package testlogging

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/macpgp/macpgp/logging"
)

// PrintfFunc is a printf-style function, such as testing.T.Logf.
type PrintfFunc func(msg string, args ...interface{})

type printfWriter struct {
	printf PrintfFunc
	prefix string
}

func (w printfWriter) Write(p []byte) (int, error) {
	w.printf("%v", w.prefix+strings.TrimSuffix(string(p), "\n"))

	return len(p), nil
}

func (w printfWriter) Sync() error { return nil }

// Printf returns a logger that uses the given printf-style function to
// print log output, prepending the given prefix to each line.
func Printf(printf PrintfFunc, prefix string) logging.Logger {
	return PrintfLevel(printf, prefix, zapcore.DebugLevel)
}

// PrintfLevel is Printf with a minimum log level.
func PrintfLevel(printf PrintfFunc, prefix string, minLevel zapcore.Level) logging.Logger {
	return zap.New(zapcore.NewCore(
		zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
			MessageKey:     "m",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeDuration: zapcore.StringDurationEncoder,
		}),
		printfWriter{printf, prefix},
		minLevel)).Sugar()
}

// PrintfFactory returns a LoggerFactory that prints to the given
// printf-style function with a "[module] " prefix per line.
func PrintfFactory(printf PrintfFunc) logging.LoggerFactory {
	return func(module string) logging.Logger {
		return Printf(printf, "["+module+"] ")
	}
}
