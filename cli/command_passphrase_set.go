package cli

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/macpgp/macpgp/keystore"
)

type commandPassphraseSet struct {
	keyID       string
	keyPassword string

	svc appServices
	out textOutput
}

func (c *commandPassphraseSet) setup(svc appServices, parent commandParent) {
	cmd := parent.Command("set", "Cache a key passphrase in the passphrase vault")
	cmd.Arg("key", "Key the passphrase belongs to, by fingerprint, prefix or email").Required().StringVar(&c.keyID)
	cmd.Flag("key-password", "Passphrase sealing the key").Envar(svc.EnvName("MACPGP_KEY_PASSWORD")).Hidden().StringVar(&c.keyPassword)
	cmd.Action(svc.storeAction(c.run))

	c.svc = svc
	c.out.setup(svc)
}

func (c *commandPassphraseSet) run(ctx context.Context, st keystore.Store) error {
	k, err := st.Find(ctx, c.keyID)
	if err != nil {
		return err
	}

	if !k.Locked() {
		return errors.Errorf("key %v is not passphrase-protected", k.Fingerprint)
	}

	pass := strings.TrimSpace(c.keyPassword)

	if pass == "" {
		p, err := c.svc.askPass("Enter key passphrase: ")
		if err != nil {
			return err
		}

		pass = p
	}

	// Reject passphrases that do not actually open the key, so the vault
	// never caches one the fallback decryptor would have to skip.
	if _, err := k.Unlock(pass); err != nil {
		return err
	}

	if err := c.svc.passphraseVault().PersistPassphrase(ctx, k.Fingerprint, pass); err != nil {
		return errors.Wrap(err, "unable to save key passphrase")
	}

	c.out.printStdout("Saved the passphrase for %v to the %v vault.\n", k.Fingerprint, c.svc.passphraseVaultName())

	return nil
}
