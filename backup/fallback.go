package backup

import (
	"context"

	"github.com/pkg/errors"

	"github.com/macpgp/macpgp/internal/credvault"
	"github.com/macpgp/macpgp/internal/ecies"
	"github.com/macpgp/macpgp/keystore"
)

// ErrNoValidKey is returned when no local key decrypts a message. It is
// distinct from a wrong passphrase for a known key; here the right key was
// never identified.
var ErrNoValidKey = errors.New("no valid key for this message")

// FallbackResult reports the outcome of a fallback decryption.
type FallbackResult struct {
	Plaintext []byte
	Key       *keystore.Key

	// Attempted lists fingerprints tried in order, ending with the winner.
	Attempted []string

	// Skipped lists locked keys that had no cached passphrase in the vault
	// and were never attempted.
	Skipped []string
}

// FallbackDecrypt tries to decrypt a message when the intended recipient is
// not known in advance. Candidates are the store's secret-capable keys in
// store order; locked candidates are unlocked with a passphrase from the
// vault or skipped when the vault has none. The first key that decrypts
// wins and remaining candidates are never attempted.
func FallbackDecrypt(ctx context.Context, st keystore.Store, vault credvault.Vault, ciphertext []byte) (*FallbackResult, error) {
	if !ecies.IsMessage(ciphertext) {
		return nil, errors.Wrap(ecies.ErrNotMessage, "fallback decrypt")
	}

	keys, err := st.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "unable to list keys")
	}

	result := &FallbackResult{}

	var candidates []*keystore.Key

	for _, k := range keys {
		if !k.HasSecret() {
			continue
		}

		if !k.Locked() {
			candidates = append(candidates, k)
			continue
		}

		pass, err := vault.GetPassphrase(ctx, k.Fingerprint)
		if errors.Is(err, credvault.ErrPassphraseNotFound) {
			result.Skipped = append(result.Skipped, k.Fingerprint)
			continue
		}

		if err != nil {
			return nil, errors.Wrap(err, "unable to query passphrase vault")
		}

		unlocked, err := k.Unlock(pass)
		if err != nil {
			// The cached passphrase no longer unlocks this key.
			log(ctx).Debugw("cached passphrase rejected", "fingerprint", k.Fingerprint)
			result.Skipped = append(result.Skipped, k.Fingerprint)

			continue
		}

		candidates = append(candidates, unlocked)
	}

	winner, plaintext, ok := firstSuccess(candidates, func(k *keystore.Key) ([]byte, error) {
		result.Attempted = append(result.Attempted, k.Fingerprint)
		return k.DecryptMessage(ciphertext)
	})
	if !ok {
		return nil, errors.Wrapf(ErrNoValidKey,
			"tried %v keys, skipped %v without a cached passphrase",
			len(result.Attempted), len(result.Skipped))
	}

	result.Key = winner
	result.Plaintext = plaintext

	log(ctx).Debugw("fallback decrypt succeeded",
		"fingerprint", winner.Fingerprint,
		"attempts", len(result.Attempted))

	return result, nil
}

// firstSuccess runs fn over candidates in order and returns the first
// candidate for which fn succeeds, short-circuiting the rest.
func firstSuccess[C, T any](candidates []C, fn func(C) (T, error)) (C, T, bool) {
	for _, c := range candidates {
		if v, err := fn(c); err == nil {
			return c, v, true
		}
	}

	var (
		zc C
		zt T
	)

	return zc, zt, false
}
