package cli

import (
	"context"
	"strings"

	"github.com/fatih/color"
	"github.com/pkg/errors"

	"github.com/macpgp/macpgp/backup"
	"github.com/macpgp/macpgp/internal/units"
	"github.com/macpgp/macpgp/keystore"
)

type commandBackupCreate struct {
	path        string
	keyIDs      []string
	allKeys     bool
	encrypt     bool
	password    string
	name        string
	description string
	deviceName  string

	svc appServices
	out textOutput
}

func (c *commandBackupCreate) setup(svc appServices, parent commandParent) {
	cmd := parent.Command("create", "Back up keys to a portable container file")
	cmd.Arg("path", "Destination file").Required().StringVar(&c.path)
	cmd.Flag("key", "Key to include, by fingerprint, prefix or email (repeatable)").StringsVar(&c.keyIDs)
	cmd.Flag("all-keys", "Include every key in the store").BoolVar(&c.allKeys)
	cmd.Flag("encrypt", "Protect the backup with a passphrase").BoolVar(&c.encrypt)
	cmd.Flag("password", "Backup passphrase").Envar(svc.EnvName("MACPGP_PASSWORD")).StringVar(&c.password)
	cmd.Flag("name", "Backup name recorded in metadata").StringVar(&c.name)
	cmd.Flag("description", "Backup description recorded in metadata").StringVar(&c.description)
	cmd.Flag("device-name", "Device name recorded in metadata").StringVar(&c.deviceName)
	cmd.Action(svc.storeAction(c.run))

	c.svc = svc
	c.out.setup(svc)
}

func (c *commandBackupCreate) run(ctx context.Context, st keystore.Store) error {
	ids := c.keyIDs

	if c.allKeys {
		if len(ids) > 0 {
			return errors.New("--all-keys cannot be combined with --key")
		}

		keys, err := st.List(ctx)
		if err != nil {
			return errors.Wrap(err, "unable to list keys")
		}

		for _, k := range keys {
			ids = append(ids, k.Fingerprint)
		}
	}

	if len(ids) == 0 {
		return errors.Wrap(backup.ErrNoKeysSelected, "pass --key or --all-keys")
	}

	pass := strings.TrimSpace(c.password)

	if c.encrypt && pass == "" {
		p, err := c.svc.askNewPassphrase("Enter passphrase to protect the backup: ")
		if err != nil {
			return err
		}

		pass = p
	}

	result, err := backup.Run(ctx, backup.Deps{Store: st}, backup.Options{
		Keys:        ids,
		OutputPath:  c.path,
		Passphrase:  pass,
		Name:        c.name,
		Description: c.description,
		DeviceName:  c.deviceName,
		CreatedBy:   "macpgp/" + BuildVersion,
		Progress:    c.reportProgress,
		OnComplete:  c.svc.recordLastBackup,
	})
	if err != nil {
		return err
	}

	c.out.printStdout("Backed up %v key(s) to %v (%v).\n",
		result.KeyCount, result.Path, units.BytesString(result.BytesWritten))

	for _, fp := range result.Fingerprints {
		c.out.printStdout("  %v\n", color.CyanString(fp))
	}

	if result.Encrypted {
		c.out.printStdout("The backup is passphrase-protected.\n")
	} else {
		c.out.printStdout("%v\n", color.YellowString("The backup is NOT passphrase-protected; it contains secret key material."))
	}

	return nil
}

func (c *commandBackupCreate) reportProgress(stage backup.Stage, fraction float64) {
	c.out.printStderr("%3.0f%% %v\n", fraction*100, stageLabel(stage)) //nolint:mnd
}

func stageLabel(stage backup.Stage) string {
	switch stage {
	case backup.StageGather:
		return "gathered keys"
	case backup.StageExport:
		return "exported key material"
	case backup.StagePackage:
		return "packaged container"
	case backup.StageProtect:
		return "applied protection"
	case backup.StageCommit:
		return "committed to disk"
	default:
		return string(stage)
	}
}
