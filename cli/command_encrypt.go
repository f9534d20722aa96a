package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/macpgp/macpgp/internal/atomicfile"
	"github.com/macpgp/macpgp/internal/ecies"
	"github.com/macpgp/macpgp/keystore"
)

type commandEncrypt struct {
	path      string
	recipient string
	filePath  string
	armor     bool

	stdin  io.Reader
	stdout io.Writer
}

func (c *commandEncrypt) setup(svc appServices, parent commandParent) {
	cmd := parent.Command("encrypt", "Encrypt a file to a key")
	cmd.Arg("path", "File to encrypt, or '-' for stdin").Required().StringVar(&c.path)
	cmd.Flag("to", "Recipient key, by fingerprint, prefix or email").Required().StringVar(&c.recipient)
	cmd.Flag("file", "Write to the specified file. Uses stdout otherwise").StringVar(&c.filePath)
	cmd.Flag("armor", "Wrap the message in an armored text block").BoolVar(&c.armor)

	c.stdin = svc.stdin()
	c.stdout = svc.stdout()

	cmd.Action(svc.storeAction(c.run))
}

func (c *commandEncrypt) run(ctx context.Context, st keystore.Store) error {
	plaintext, err := c.readInput()
	if err != nil {
		return errors.Wrap(err, "unable to read input")
	}

	k, err := st.Find(ctx, c.recipient)
	if err != nil {
		return err
	}

	message, err := k.EncryptMessage(plaintext)
	if err != nil {
		return err
	}

	if c.armor {
		message = ecies.Armor(message)
	}

	if c.filePath == "" {
		fmt.Fprintf(c.stdout, "%s", message) //nolint:errcheck
		return nil
	}

	return errors.Wrap(atomicfile.WriteBytes(c.filePath, message), "unable to write output file")
}

func (c *commandEncrypt) readInput() ([]byte, error) {
	if c.path == "-" {
		return io.ReadAll(c.stdin) //nolint:wrapcheck
	}

	return os.ReadFile(c.path) //nolint:gosec,wrapcheck
}
