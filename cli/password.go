package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/term"
)

// askPass presents a prompt and reads a passphrase without echo. In-process
// tests have no terminal; there the passphrase is read as a line from the
// test-provided stdin.
func (c *App) askPass(prompt string) (string, error) {
	for i := 0; i < 5; i++ {
		fmt.Fprint(c.stdoutWriter, prompt) //nolint:errcheck

		pass, err := c.readPass()
		if err != nil {
			return "", errors.Wrap(err, "passphrase prompt error")
		}

		fmt.Fprintln(c.stdoutWriter) //nolint:errcheck

		if pass == "" {
			continue
		}

		return pass, nil
	}

	return "", errors.New("can't get passphrase")
}

// askNewPassphrase prompts for a passphrase and its confirmation until the
// two match.
func (c *App) askNewPassphrase(prompt string) (string, error) {
	for {
		p1, err := c.askPass(prompt)
		if err != nil {
			return "", errors.Wrap(err, "passphrase entry")
		}

		p2, err := c.askPass("Re-enter passphrase for verification: ")
		if err != nil {
			return "", errors.Wrap(err, "passphrase verification")
		}

		if p1 != p2 {
			fmt.Fprintln(c.stdoutWriter, "Passphrases don't match!") //nolint:errcheck
		} else {
			return p1, nil
		}
	}
}

// confirm asks a yes/no question and accepts only an explicit "y" or "yes".
func (c *App) confirm(prompt string) bool {
	fmt.Fprint(c.stdoutWriter, prompt) //nolint:errcheck

	line, err := c.stdinLines().ReadString('\n')
	if err != nil {
		return false
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

func (c *App) readPass() (string, error) {
	if c.isInProcessTest {
		line, err := c.stdinLines().ReadString('\n')
		if err != nil {
			return "", errors.Wrap(err, "reading passphrase")
		}

		return strings.TrimRight(line, "\r\n"), nil
	}

	passBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", errors.Wrap(err, "reading passphrase")
	}

	return string(passBytes), nil
}

// stdinLines wraps stdin in a single buffered reader so consecutive prompts
// do not lose buffered input.
func (c *App) stdinLines() *bufio.Reader {
	if c.stdinBuffered == nil {
		c.stdinBuffered = bufio.NewReader(c.stdinReader)
	}

	return c.stdinBuffered
}
