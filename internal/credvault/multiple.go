package credvault

import (
	"context"

	"github.com/pkg/errors"
)

var _ Vault = (Multiple{})

// Multiple is a Vault that tries several underlying vaults.
type Multiple []Vault

// GetPassphrase retrieves the passphrase from the first vault that has it.
func (m Multiple) GetPassphrase(ctx context.Context, fingerprint string) (string, error) {
	for _, v := range m {
		pass, err := v.GetPassphrase(ctx, fingerprint)
		if err == nil {
			return pass, nil
		}

		if errors.Is(err, ErrPassphraseNotFound) {
			// try the next vault.
			continue
		}

		return "", errors.Wrap(err, "error getting persistent passphrase")
	}

	return "", ErrPassphraseNotFound
}

// PersistPassphrase persists the provided passphrase using the first vault that succeeds.
func (m Multiple) PersistPassphrase(ctx context.Context, fingerprint, passphrase string) error {
	for _, v := range m {
		err := v.PersistPassphrase(ctx, fingerprint, passphrase)
		if err == nil {
			return nil
		}

		if errors.Is(err, ErrUnsupported) {
			continue
		}

		return errors.Wrap(err, "error persisting passphrase")
	}

	return ErrUnsupported
}

// DeletePassphrase deletes the passphrase from all vaults.
func (m Multiple) DeletePassphrase(ctx context.Context, fingerprint string) error {
	for _, v := range m {
		err := v.DeletePassphrase(ctx, fingerprint)

		switch {
		case err == nil: // good
		case errors.Is(err, ErrPassphraseNotFound): // ignore
		case errors.Is(err, ErrUnsupported): // ignore
		default:
			return errors.Wrap(err, "error removing passphrase from vault")
		}
	}

	return nil
}
