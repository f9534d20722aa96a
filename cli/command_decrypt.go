package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/macpgp/macpgp/backup"
	"github.com/macpgp/macpgp/internal/atomicfile"
	"github.com/macpgp/macpgp/keystore"
)

type commandDecrypt struct {
	path     string
	filePath string

	svc    appServices
	stdin  io.Reader
	stdout io.Writer
	out    textOutput
}

func (c *commandDecrypt) setup(svc appServices, parent commandParent) {
	cmd := parent.Command("decrypt", "Decrypt a message, trying each secret key in the store")
	cmd.Arg("path", "File to decrypt, or '-' for stdin").Required().StringVar(&c.path)
	cmd.Flag("file", "Write to the specified file. Uses stdout otherwise").StringVar(&c.filePath)

	c.svc = svc
	c.stdin = svc.stdin()
	c.stdout = svc.stdout()
	c.out.setup(svc)

	cmd.Action(svc.storeAction(c.run))
}

func (c *commandDecrypt) run(ctx context.Context, st keystore.Store) error {
	ciphertext, err := c.readInput()
	if err != nil {
		return errors.Wrap(err, "unable to read input")
	}

	result, err := backup.FallbackDecrypt(ctx, st, c.svc.passphraseVault(), ciphertext)
	if err != nil {
		return err
	}

	c.out.printStderr("Decrypted with key %v (%v).\n", result.Key.Fingerprint, result.Key.UserID())

	if len(result.Skipped) > 0 {
		c.out.printStderr("Skipped %v locked key(s) without a cached passphrase.\n", len(result.Skipped))
	}

	if c.filePath == "" {
		fmt.Fprintf(c.stdout, "%s", result.Plaintext) //nolint:errcheck
		return nil
	}

	return errors.Wrap(atomicfile.WriteBytes(c.filePath, result.Plaintext), "unable to write output file")
}

func (c *commandDecrypt) readInput() ([]byte, error) {
	if c.path == "-" {
		return io.ReadAll(c.stdin) //nolint:wrapcheck
	}

	return os.ReadFile(c.path) //nolint:gosec,wrapcheck
}
