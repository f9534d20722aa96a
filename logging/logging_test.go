package logging_test

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/macpgp/macpgp/internal/testlogging"
	"github.com/macpgp/macpgp/logging"
)

func TestBroadcast(t *testing.T) {
	var lines []string

	l0 := testlogging.Printf(func(msg string, args ...interface{}) {
		lines = append(lines, fmt.Sprintf(msg, args...))
	}, "[first] ")

	l1 := testlogging.Printf(func(msg string, args ...interface{}) {
		lines = append(lines, fmt.Sprintf(msg, args...))
	}, "[second] ")

	l := logging.Broadcast(l0, l1)
	l.Debug("A")
	l.Debugw("S", "b", 123)
	l.Info("B")
	l.Error("C")

	require.Equal(t, []string{
		"[first] A",
		"[second] A",
		"[first] S\t{\"b\":123}",
		"[second] S\t{\"b\":123}",
		"[first] B",
		"[second] B",
		"[first] C",
		"[second] C",
	}, lines)
}

func TestToWriter(t *testing.T) {
	var buf bytes.Buffer

	l := logging.ToWriter(&buf)("module1")
	l.Debug("A")
	l.Debugw("S", "b", 123)
	l.Info("B")
	l.Error("C")
	l.Warn("W")

	require.Equal(t, "A\nS\t{\"b\":123}\nB\nC\nW\n", buf.String())
}

func TestToWriterLeveled(t *testing.T) {
	var buf bytes.Buffer

	l := logging.ToWriterLeveled(&buf, zapcore.WarnLevel)("module1")
	l.Debug("A")
	l.Info("B")
	l.Warn("W")
	l.Error("C")

	require.Equal(t, "W\nC\n", buf.String())
}

func TestModuleWithoutLoggerIsNull(t *testing.T) {
	l := logging.Module("mod1")(context.Background())

	// must not panic, messages go nowhere
	l.Debug("A")
	l.Debugw("S", "b", 123)
	l.Info("B")
	l.Error("C")
}

func TestModuleWithLogger(t *testing.T) {
	var buf bytes.Buffer

	ctx := logging.WithLogger(context.Background(), logging.ToWriter(&buf))
	l := logging.Module("mod1")(ctx)

	l.Debug("A")
	l.Info("B")

	require.Equal(t, "A\nB\n", buf.String())
}

func TestWithAdditionalLogger(t *testing.T) {
	var buf, buf2 bytes.Buffer

	ctx := logging.WithLogger(context.Background(), logging.ToWriter(&buf))
	ctx = logging.WithAdditionalLogger(ctx, logging.ToWriter(&buf2))
	l := logging.Module("mod1")(ctx)

	l.Debug("A")
	l.Info("B")

	require.Equal(t, "A\nB\n", buf.String())
	require.Equal(t, "A\nB\n", buf2.String())
}

func TestWithNilLogger(t *testing.T) {
	ctx := logging.WithLogger(context.Background(), nil)
	l := logging.Module("mod1")(ctx)

	l.Debug("A")
}
