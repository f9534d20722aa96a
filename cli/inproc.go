package cli

import (
	"context"
	"io"

	"github.com/alecthomas/kingpin/v2"

	"github.com/macpgp/macpgp/logging"
)

// RunSubcommand executes the subcommand asynchronously in the current
// process with an isolated CLI environment and returns its standard output
// and standard error.
func (c *App) RunSubcommand(ctx context.Context, kpapp *kingpin.Application, stdin io.Reader, argsAndFlags []string) (stdout, stderr io.Reader, wait func() error) {
	stdoutReader, stdoutWriter := io.Pipe()
	stderrReader, stderrWriter := io.Pipe()

	c.stdinReader = stdin
	c.stdoutWriter = stdoutWriter
	c.stderrWriter = stderrWriter
	c.rootctx = logging.WithLogger(ctx, logging.ToWriter(stderrWriter))
	c.isInProcessTest = true

	c.Attach(kpapp)

	resultErr := make(chan error, 1)

	c.exitWithError = func(ec error) {
		resultErr <- ec
	}

	go func() {
		defer func() {
			close(resultErr)
			stderrWriter.Close() //nolint:errcheck
			stdoutWriter.Close() //nolint:errcheck
		}()

		if _, err := kpapp.Parse(argsAndFlags); err != nil {
			resultErr <- err
			return
		}
	}()

	return stdoutReader, stderrReader, func() error {
		return <-resultErr
	}
}
