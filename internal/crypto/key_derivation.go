// Package crypto implements passphrase-based key derivation and
// authenticated encryption of opaque payloads.
package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"io"

	"github.com/pkg/errors"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// SaltLength is the length of the random salt generated for each
	// encryption operation.
	SaltLength = 16

	// MasterKeyLength is the length of the derived symmetric key.
	MasterKeyLength = 32

	// pbkdf2Iterations is fixed. Changing it would make existing envelopes
	// undecryptable, so it is not configurable at any call site.
	pbkdf2Iterations = 100_000
)

// ErrPassphraseRequired is returned when an empty passphrase is provided.
var ErrPassphraseRequired = errors.New("passphrase must not be empty")

// DeriveKeyFromPassphrase derives a 256-bit symmetric key from the given
// passphrase and salt using PBKDF2 with HMAC-SHA256.
func DeriveKeyFromPassphrase(passphrase string, salt []byte) ([]byte, error) {
	if passphrase == "" {
		return nil, ErrPassphraseRequired
	}

	if len(salt) < SaltLength {
		return nil, errors.Errorf("required salt size is at least %d bytes", SaltLength)
	}

	return pbkdf2.Key([]byte(passphrase), salt, pbkdf2Iterations, MasterKeyLength, sha256.New), nil
}

// GenerateSalt returns a fresh random salt for one encryption operation.
// Salts are never cached or reused.
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, errors.Wrap(err, "error reading random bytes for salt")
	}

	return salt, nil
}
