// Package credvault manages persistence of key passphrases.
package credvault

import (
	"context"

	"github.com/pkg/errors"

	"github.com/macpgp/macpgp/logging"
)

// ErrPassphraseNotFound is returned when a passphrase cannot be found in a persistent vault.
var ErrPassphraseNotFound = errors.New("passphrase not found")

// ErrUnsupported is returned when a vault is not supported on this platform.
var ErrUnsupported = errors.New("passphrase vault not supported")

var log = logging.Module("credvault")

// Vault encapsulates persisting and fetching key passphrases.
type Vault interface {
	// GetPassphrase gets a persisted passphrase for the given key fingerprint,
	// returns ErrPassphraseNotFound or fatal errors.
	GetPassphrase(ctx context.Context, fingerprint string) (string, error)

	// PersistPassphrase persists a passphrase, returns ErrUnsupported or fatal errors.
	PersistPassphrase(ctx context.Context, fingerprint, passphrase string) error

	// DeletePassphrase deletes any persisted passphrase, returns fatal errors.
	DeletePassphrase(ctx context.Context, fingerprint string) error
}
