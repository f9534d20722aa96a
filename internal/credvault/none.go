package credvault

import "context"

// None returns a Vault that does not persist passphrases at all.
func None() Vault {
	return noneVault{}
}

type noneVault struct{}

func (noneVault) GetPassphrase(ctx context.Context, fingerprint string) (string, error) {
	return "", ErrPassphraseNotFound
}

func (noneVault) PersistPassphrase(ctx context.Context, fingerprint, passphrase string) error {
	// silently succeed
	return nil
}

func (noneVault) DeletePassphrase(ctx context.Context, fingerprint string) error {
	return nil
}
