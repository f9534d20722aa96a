// Package keystore manages macpgp key-pairs: generation, armored
// export/import and durable storage. Each key-pair bundles an Ed25519
// signing key and an X25519 encryption key under a single fingerprint.
package keystore

import (
	"context"

	"github.com/pkg/errors"

	"github.com/macpgp/macpgp/logging"
)

var log = logging.Module("keystore")

var (
	// ErrKeyNotFound is returned when an identifier resolves to no key.
	ErrKeyNotFound = errors.New("key not found")

	// ErrAmbiguousIdentifier is returned when a fingerprint prefix matches
	// more than one key.
	ErrAmbiguousIdentifier = errors.New("identifier matches multiple keys")

	// ErrKeyAlreadyExists is returned when adding a key whose fingerprint
	// is already present.
	ErrKeyAlreadyExists = errors.New("key already exists")

	// ErrInvalidKey is returned for unparseable or inconsistent key blocks.
	ErrInvalidKey = errors.New("invalid key data")

	// ErrNoSecretMaterial is returned when an operation needs private key
	// halves and the key is public-only.
	ErrNoSecretMaterial = errors.New("key has no secret material")

	// ErrKeyLocked is returned when an operation needs unsealed private key
	// halves and the key is passphrase-protected.
	ErrKeyLocked = errors.New("key is locked, unlock it with its passphrase")
)

// Store is the key store consumed by the backup and restore pipelines.
// Implementations must serialize their own writes; Persist must never
// interleave with another Persist of the same store.
type Store interface {
	// List returns all keys ordered by creation time, then fingerprint.
	List(ctx context.Context) ([]*Key, error)

	// Find resolves an identifier: an exact fingerprint, a unique
	// fingerprint prefix or an exact email address.
	Find(ctx context.Context, identifier string) (*Key, error)

	// Add registers a new key in memory; Persist makes it durable.
	Add(ctx context.Context, key *Key) error

	// ExportArmored renders a key as an armored text block, including
	// secret material when requested and present.
	ExportArmored(ctx context.Context, key *Key, includeSecret bool) ([]byte, error)

	// ImportArmored parses all armored key blocks in data and adds the ones
	// not already present. It returns the fingerprints actually added,
	// which may be fewer than the blocks in data.
	ImportArmored(ctx context.Context, data []byte) ([]string, error)

	// Persist writes the store's state to durable storage.
	Persist(ctx context.Context) error
}
