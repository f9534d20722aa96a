package cli

import (
	"context"
	"strings"

	"github.com/fatih/color"
	"github.com/pkg/errors"

	"github.com/macpgp/macpgp/keystore"
)

type commandKeyGenerate struct {
	name           string
	email          string
	protect        bool
	keyPassword    string
	savePassphrase bool

	svc appServices
	out textOutput
}

func (c *commandKeyGenerate) setup(svc appServices, parent commandParent) {
	cmd := parent.Command("generate", "Generate a new key-pair")
	cmd.Flag("name", "Owner name").Required().StringVar(&c.name)
	cmd.Flag("email", "Owner email address").StringVar(&c.email)
	cmd.Flag("protect", "Seal the secret half under a passphrase").BoolVar(&c.protect)
	cmd.Flag("key-password", "Passphrase sealing the key").Envar(svc.EnvName("MACPGP_KEY_PASSWORD")).Hidden().StringVar(&c.keyPassword)
	cmd.Flag("save-passphrase", "Remember the passphrase in the passphrase vault").BoolVar(&c.savePassphrase)
	cmd.Action(svc.storeAction(c.run))

	c.svc = svc
	c.out.setup(svc)
}

func (c *commandKeyGenerate) run(ctx context.Context, st keystore.Store) error {
	pass := strings.TrimSpace(c.keyPassword)

	// A passphrase implies protection.
	protect := c.protect || pass != ""

	if c.savePassphrase && !protect {
		return errors.New("--save-passphrase requires --protect")
	}

	if protect && pass == "" {
		p, err := c.svc.askNewPassphrase("Enter passphrase to protect the key: ")
		if err != nil {
			return err
		}

		pass = p
	}

	k, err := keystore.Generate(c.name, c.email)
	if err != nil {
		return errors.Wrap(err, "unable to generate key")
	}

	if protect {
		if err := k.Protect(pass); err != nil {
			return errors.Wrap(err, "unable to protect key")
		}
	}

	if err := st.Add(ctx, k); err != nil {
		return err
	}

	if err := st.Persist(ctx); err != nil {
		return err
	}

	c.out.printStdout("Generated key %v for %v.\n", color.CyanString(k.Fingerprint), k.UserID())

	if c.savePassphrase {
		if err := c.svc.passphraseVault().PersistPassphrase(ctx, k.Fingerprint, pass); err != nil {
			return errors.Wrap(err, "unable to save key passphrase")
		}

		c.out.printStdout("Saved the passphrase to the %v vault.\n", c.svc.passphraseVaultName())
	}

	return nil
}
