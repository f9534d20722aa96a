package cli

import (
	"context"
	"strings"

	"github.com/macpgp/macpgp/backup"
)

type commandBackupChangePassword struct {
	path        string
	oldPassword string
	newPassword string
	remove      bool

	svc appServices
	out textOutput
}

func (c *commandBackupChangePassword) setup(svc appServices, parent commandParent) {
	cmd := parent.Command("change-password", "Change, add or remove the passphrase protecting a backup file")
	cmd.Arg("path", "Backup file to rewrite").Required().StringVar(&c.path)
	cmd.Flag("old-password", "Current backup passphrase").Envar(svc.EnvName("MACPGP_OLD_PASSWORD")).StringVar(&c.oldPassword)
	cmd.Flag("new-password", "New backup passphrase").Envar(svc.EnvName("MACPGP_NEW_PASSWORD")).StringVar(&c.newPassword)
	cmd.Flag("remove", "Strip protection instead of changing the passphrase").BoolVar(&c.remove)
	cmd.Action(svc.noStoreAction(c.run))

	c.svc = svc
	c.out.setup(svc)
}

func (c *commandBackupChangePassword) run(ctx context.Context) error {
	// Peek at the file first so we only prompt for passphrases the
	// operation will actually use.
	info, err := backup.Inspect(ctx, c.path)
	if err != nil {
		return err
	}

	oldPass := strings.TrimSpace(c.oldPassword)

	if info.Class == backup.ClassEncrypted && oldPass == "" {
		p, err := c.svc.askPass("Enter current backup passphrase: ")
		if err != nil {
			return err
		}

		oldPass = p
	}

	newPass := strings.TrimSpace(c.newPassword)

	if !c.remove && newPass == "" {
		p, err := c.svc.askNewPassphrase("Enter new backup passphrase: ")
		if err != nil {
			return err
		}

		newPass = p
	}

	result, err := backup.ChangePassword(ctx, c.path, oldPass, newPass, backup.ChangeOptions{
		Remove: c.remove,
	})
	if err != nil {
		return err
	}

	switch {
	case result.WasEncrypted && !result.Encrypted:
		c.out.printStdout("Removed passphrase protection from %v.\n", c.path)
	case !result.WasEncrypted && result.Encrypted:
		c.out.printStdout("Added passphrase protection to %v.\n", c.path)
	default:
		c.out.printStdout("Changed the passphrase protecting %v.\n", c.path)
	}

	return nil
}
