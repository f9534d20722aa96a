package cli

import (
	"context"
	"encoding/hex"
	"strings"

	"github.com/pkg/errors"

	"github.com/macpgp/macpgp/keystore"
)

type commandPassphraseForget struct {
	keyID string

	svc appServices
	out textOutput
}

func (c *commandPassphraseForget) setup(svc appServices, parent commandParent) {
	cmd := parent.Command("forget", "Remove a cached key passphrase from the passphrase vault")
	cmd.Arg("key", "Key the passphrase belongs to, by fingerprint, prefix or email").Required().StringVar(&c.keyID)
	cmd.Action(svc.storeAction(c.run))

	c.svc = svc
	c.out.setup(svc)
}

func (c *commandPassphraseForget) run(ctx context.Context, st keystore.Store) error {
	fingerprint, err := c.resolveFingerprint(ctx, st)
	if err != nil {
		return err
	}

	if err := c.svc.passphraseVault().DeletePassphrase(ctx, fingerprint); err != nil {
		return errors.Wrap(err, "unable to remove key passphrase")
	}

	c.out.printStdout("Removed the cached passphrase for %v.\n", fingerprint)

	return nil
}

// resolveFingerprint resolves the identifier through the store. A full
// fingerprint is accepted even when the key itself is gone, so stale vault
// entries can still be cleaned up.
func (c *commandPassphraseForget) resolveFingerprint(ctx context.Context, st keystore.Store) (string, error) {
	k, err := st.Find(ctx, c.keyID)
	if err == nil {
		return k.Fingerprint, nil
	}

	if errors.Is(err, keystore.ErrKeyNotFound) && isFullFingerprint(c.keyID) {
		return strings.ToLower(c.keyID), nil
	}

	return "", err
}

func isFullFingerprint(s string) bool {
	if len(s) != 64 {
		return false
	}

	_, err := hex.DecodeString(s)

	return err == nil
}
