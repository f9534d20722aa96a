package cli

import (
	"context"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/macpgp/macpgp/keystore"
)

type commandKeyImport struct {
	path string

	stdin io.Reader
	out   textOutput
}

func (c *commandKeyImport) setup(svc appServices, parent commandParent) {
	cmd := parent.Command("import", "Import armored keys from a file")
	cmd.Arg("path", "File with armored key blocks, or '-' for stdin").Required().StringVar(&c.path)

	c.stdin = svc.stdin()
	c.out.setup(svc)

	cmd.Action(svc.storeAction(c.run))
}

func (c *commandKeyImport) run(ctx context.Context, st keystore.Store) error {
	var (
		data []byte
		err  error
	)

	if c.path == "-" {
		data, err = io.ReadAll(c.stdin)
	} else {
		data, err = os.ReadFile(c.path) //nolint:gosec
	}

	if err != nil {
		return errors.Wrap(err, "unable to read keys")
	}

	added, err := st.ImportArmored(ctx, data)
	if err != nil {
		return err
	}

	if len(added) == 0 {
		c.out.printStdout("No new keys imported.\n")
		return nil
	}

	if err := st.Persist(ctx); err != nil {
		return err
	}

	c.out.printStdout("Imported %v key(s):\n", len(added))

	for _, fp := range added {
		c.out.printStdout("  %v\n", fp)
	}

	return nil
}
