package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/pkg/errors"

	"github.com/macpgp/macpgp/internal/atomicfile"
	"github.com/macpgp/macpgp/keystore"
)

type commandKeyExport struct {
	keyID         string
	includeSecret bool
	filePath      string

	stdout io.Writer
}

func (c *commandKeyExport) setup(svc appServices, parent commandParent) {
	cmd := parent.Command("export", "Export a key as armored text")
	cmd.Arg("key", "Key to export, by fingerprint, prefix or email").Required().StringVar(&c.keyID)
	cmd.Flag("include-secret", "Include sealed secret material").BoolVar(&c.includeSecret)
	cmd.Flag("file", "Write to the specified file. Uses stdout otherwise").StringVar(&c.filePath)

	c.stdout = svc.stdout()

	cmd.Action(svc.storeAction(c.run))
}

func (c *commandKeyExport) run(ctx context.Context, st keystore.Store) error {
	k, err := st.Find(ctx, c.keyID)
	if err != nil {
		return err
	}

	if c.includeSecret && !k.HasSecret() {
		return errors.Errorf("key %v has no secret material", k.Fingerprint)
	}

	armored, err := st.ExportArmored(ctx, k, c.includeSecret)
	if err != nil {
		return err
	}

	if c.filePath == "" {
		fmt.Fprintf(c.stdout, "%s", armored) //nolint:errcheck
		return nil
	}

	return errors.Wrap(atomicfile.WriteBytes(c.filePath, armored), "unable to write key file")
}
