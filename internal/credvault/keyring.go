package credvault

import (
	"context"
	"os/user"
	"runtime"
	"strings"

	"github.com/pkg/errors"
	"github.com/zalando/go-keyring"
)

// Keyring returns a Vault backed by the OS-specific keyring.
func Keyring() Vault {
	return keyringVault{}
}

type keyringVault struct{}

func (keyringVault) GetPassphrase(ctx context.Context, fingerprint string) (string, error) {
	pass, err := keyring.Get(keyringItemID(fingerprint), keyringUsername(ctx))
	if err == nil {
		log(ctx).Debugf("passphrase for %v retrieved from OS keyring", fingerprint)
		return pass, nil
	}

	if errors.Is(err, keyring.ErrNotFound) || errors.Is(err, keyring.ErrUnsupportedPlatform) {
		return "", ErrPassphraseNotFound
	}

	return "", errors.Wrap(err, "error getting passphrase from OS keyring")
}

func (keyringVault) PersistPassphrase(ctx context.Context, fingerprint, passphrase string) error {
	log(ctx).Debugf("saving passphrase to OS keyring")

	err := keyring.Set(keyringItemID(fingerprint), keyringUsername(ctx), passphrase)
	if err == nil {
		return nil
	}

	if errors.Is(err, keyring.ErrUnsupportedPlatform) {
		return ErrUnsupported
	}

	return errors.Wrap(err, "error saving passphrase in OS keyring")
}

func (keyringVault) DeletePassphrase(ctx context.Context, fingerprint string) error {
	err := keyring.Delete(keyringItemID(fingerprint), keyringUsername(ctx))

	switch {
	case err == nil:
		log(ctx).Infof("deleted passphrase for %v", fingerprint)
		return nil
	case errors.Is(err, keyring.ErrNotFound), errors.Is(err, keyring.ErrUnsupportedPlatform):
		return nil
	default:
		return errors.Wrap(err, "error deleting passphrase from OS keyring")
	}
}

func keyringItemID(fingerprint string) string {
	return "macpgp-" + fingerprint
}

func keyringUsername(ctx context.Context) string {
	currentUser, err := user.Current()
	if err != nil {
		log(ctx).Errorf("cannot determine keyring username: %s", err)
		return "nobody"
	}

	u := currentUser.Username

	if runtime.GOOS == "windows" {
		if p := strings.Index(u, "\\"); p >= 0 {
			// On Windows ignore domain name.
			u = u[p+1:]
		}
	}

	return u
}
