package cli

import (
	"context"

	"github.com/pkg/errors"

	"github.com/macpgp/macpgp/backup"
	"github.com/macpgp/macpgp/internal/units"
)

type commandBackupInfo struct {
	path string

	out textOutput
	jo  jsonOutput
}

func (c *commandBackupInfo) setup(svc appServices, parent commandParent) {
	cmd := parent.Command("info", "Describe a backup file without restoring it")
	cmd.Arg("path", "Backup file to inspect").Required().StringVar(&c.path)
	cmd.Action(svc.noStoreAction(c.run))

	c.out.setup(svc)
	c.jo.setup(svc, cmd)
}

func (c *commandBackupInfo) run(ctx context.Context) error {
	info, err := backup.Inspect(ctx, c.path)
	if err != nil {
		return err
	}

	if c.jo.jsonOutput {
		c.out.printStdout("%s\n", c.jo.jsonBytes(info))
	} else {
		c.printInfo(info)
	}

	if info.Class == backup.ClassInvalid {
		return errors.Errorf("%v is not a valid backup: %v", info.Path, info.Error)
	}

	return nil
}

func (c *commandBackupInfo) printInfo(info *backup.Info) {
	c.out.printStdout("File:  %v (%v)\n", info.Path, units.BytesString(info.Size))

	switch info.Class {
	case backup.ClassEncrypted:
		c.out.printStdout("Type:  passphrase-protected backup\n")
		c.out.printStdout("Keys:  unknown until decrypted\n")

	case backup.ClassPlaintext:
		c.out.printStdout("Type:  unencrypted backup\n")

		if m := info.Metadata; m != nil {
			c.out.printStdout("ID:    %v\n", m.BackupID)
			c.out.printStdout("Made:  %v by %v\n", formatTimestamp(m.CreatedAt), m.CreatedBy)

			if u := m.Metadata; u != nil && u.Name != "" {
				c.out.printStdout("Name:  %v\n", u.Name)
			}
		}

		c.out.printStdout("Keys (%v):\n", info.KeyCount)

		for _, fp := range info.Fingerprints {
			c.out.printStdout("  %v\n", fp)
		}

	case backup.ClassInvalid:
		c.out.printStdout("Type:  not a backup\n")
	}
}
