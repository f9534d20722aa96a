package logging

import (
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ToWriter returns a LoggerFactory that writes bare log messages to the
// given writer, one per line, without timestamps or level prefixes.
func ToWriter(w io.Writer) LoggerFactory {
	return ToWriterLeveled(w, zapcore.DebugLevel)
}

// ToWriterLeveled is ToWriter with a minimum level below which messages
// are dropped.
func ToWriterLeveled(w io.Writer, minLevel zapcore.Level) LoggerFactory {
	return func(module string) Logger {
		return zap.New(zapcore.NewCore(
			zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
				MessageKey:     "m",
				LineEnding:     zapcore.DefaultLineEnding,
				EncodeDuration: zapcore.StringDurationEncoder,
			}),
			zapcore.AddSync(w),
			minLevel)).Sugar()
	}
}
