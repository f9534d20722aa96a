package cli

import (
	"context"
	"strings"

	"github.com/fatih/color"
	"github.com/pkg/errors"

	"github.com/macpgp/macpgp/backup"
	"github.com/macpgp/macpgp/internal/crypto"
	"github.com/macpgp/macpgp/keystore"
)

type commandBackupRestore struct {
	path     string
	password string
	yes      bool

	svc appServices
	out textOutput
}

func (c *commandBackupRestore) setup(svc appServices, parent commandParent) {
	cmd := parent.Command("restore", "Restore keys from a backup file")
	cmd.Arg("path", "Backup file to restore from").Required().StringVar(&c.path)
	cmd.Flag("password", "Backup passphrase").Envar(svc.EnvName("MACPGP_PASSWORD")).StringVar(&c.password)
	cmd.Flag("yes", "Restore without asking for confirmation").BoolVar(&c.yes)
	cmd.Action(svc.storeAction(c.run))

	c.svc = svc
	c.out.setup(svc)
}

func (c *commandBackupRestore) run(ctx context.Context, st keystore.Store) error {
	ses := backup.NewSession(st)

	preview, err := ses.Validate(ctx, c.path)
	if err != nil {
		return err
	}

	if preview.Encrypted {
		preview, err = c.unlockSession(ctx, ses)
		if err != nil {
			return err
		}
	}

	c.printPreview(preview)

	if !c.yes && !c.svc.confirm("Restore these keys? (y/N) ") {
		return errors.New("restore canceled")
	}

	if err := ses.Confirm(); err != nil {
		return err
	}

	result, err := ses.Restore(ctx)
	if err != nil {
		return err
	}

	c.out.printStdout("Restored %v of %v key(s).\n", result.Imported, result.Total)

	if skipped := result.Total - result.Imported; skipped > 0 {
		c.out.printStdout("%v key(s) already present were left untouched.\n", skipped)
	}

	return nil
}

// unlockSession supplies the backup passphrase. A --password flag gets one
// shot; interactive entry retries bad passphrases a few times.
func (c *commandBackupRestore) unlockSession(ctx context.Context, ses *backup.Session) (*backup.Preview, error) {
	if p := strings.TrimSpace(c.password); p != "" {
		return ses.ProvidePassphrase(ctx, p)
	}

	for i := 0; i < 5; i++ {
		p, err := c.svc.askPass("Enter backup passphrase: ")
		if err != nil {
			return nil, err
		}

		preview, err := ses.ProvidePassphrase(ctx, p)
		if err == nil {
			return preview, nil
		}

		if !errors.Is(err, crypto.ErrInvalidPassphrase) {
			return nil, err
		}

		c.out.printStderr("Invalid passphrase, try again.\n")
	}

	return nil, errors.New("too many passphrase attempts")
}

func (c *commandBackupRestore) printPreview(preview *backup.Preview) {
	c.out.printStdout("Backup file: %v\n", preview.Path)

	if m := preview.Metadata; m != nil {
		c.out.printStdout("Created:     %v by %v\n", formatTimestamp(m.CreatedAt), m.CreatedBy)

		if u := m.Metadata; u != nil {
			if u.Name != "" {
				c.out.printStdout("Name:        %v\n", u.Name)
			}

			if u.Description != "" {
				c.out.printStdout("Description: %v\n", u.Description)
			}

			if u.DeviceName != "" {
				c.out.printStdout("Device:      %v\n", u.DeviceName)
			}
		}
	}

	c.out.printStdout("Keys (%v):\n", preview.KeyCount)

	for _, fp := range preview.Fingerprints {
		c.out.printStdout("  %v\n", color.CyanString(fp))
	}
}
