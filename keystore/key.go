package keystore

import (
	"crypto/ecdh"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/pkg/errors"

	"github.com/macpgp/macpgp/internal/clock"
	"github.com/macpgp/macpgp/internal/crypto"
	"github.com/macpgp/macpgp/internal/ecies"
)

const encryptionKeyLength = 32

// Key is a macpgp key-pair. The public halves are always present; secret
// material is optional and may be sealed under a per-key passphrase.
type Key struct {
	Fingerprint string
	Name        string
	Email       string
	CreatedAt   time.Time

	SigningPublic    ed25519.PublicKey
	EncryptionPublic []byte

	secret *secretMaterial
}

// secretMaterial holds private key halves, either in the clear or sealed
// in a passphrase envelope.
type secretMaterial struct {
	signingPrivate    ed25519.PrivateKey
	encryptionPrivate []byte
	sealed            []byte
}

// Generate creates a new key-pair with fresh Ed25519 and X25519 keys.
func Generate(name, email string) (*Key, error) {
	signingPublic, signingPrivate, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, errors.Wrap(err, "unable to generate signing key")
	}

	encKey, err := ecdh.X25519().GenerateKey(rand.Reader)
	if err != nil {
		return nil, errors.Wrap(err, "unable to generate encryption key")
	}

	k := &Key{
		Name:             name,
		Email:            email,
		CreatedAt:        clock.Now().UTC(),
		SigningPublic:    signingPublic,
		EncryptionPublic: encKey.PublicKey().Bytes(),
		secret: &secretMaterial{
			signingPrivate:    signingPrivate,
			encryptionPrivate: encKey.Bytes(),
		},
	}

	k.Fingerprint = fingerprintOf(k.SigningPublic, k.EncryptionPublic)

	return k, nil
}

// fingerprintOf derives the key fingerprint from the public halves.
func fingerprintOf(signingPublic, encryptionPublic []byte) string {
	h := sha256.New()
	h.Write(signingPublic)
	h.Write(encryptionPublic)

	return hex.EncodeToString(h.Sum(nil))
}

// UserID renders the key's identity as "name <email>".
func (k *Key) UserID() string {
	switch {
	case k.Name != "" && k.Email != "":
		return k.Name + " <" + k.Email + ">"
	case k.Name != "":
		return k.Name
	default:
		return k.Email
	}
}

// HasSecret reports whether the key carries private halves, sealed or not.
func (k *Key) HasSecret() bool {
	return k.secret != nil
}

// Locked reports whether the key's private halves are sealed under a
// passphrase.
func (k *Key) Locked() bool {
	return k.secret != nil && k.secret.sealed != nil && k.secret.signingPrivate == nil
}

// Protect seals the key's private halves under the given passphrase. The
// clear private material is discarded; Unlock recovers it.
func (k *Key) Protect(passphrase string) error {
	if !k.HasSecret() {
		return ErrNoSecretMaterial
	}

	if k.Locked() {
		return errors.New("key is already protected")
	}

	plaintext := make([]byte, 0, len(k.secret.signingPrivate)+len(k.secret.encryptionPrivate))
	plaintext = append(plaintext, k.secret.signingPrivate...)
	plaintext = append(plaintext, k.secret.encryptionPrivate...)

	sealed, err := crypto.EncryptWithPassphrase(plaintext, passphrase)
	if err != nil {
		return errors.Wrap(err, "unable to protect key")
	}

	k.secret = &secretMaterial{sealed: sealed}

	return nil
}

// Unlock returns a copy of the key with unsealed private halves. Unlocking
// an unprotected key returns the key itself; a wrong passphrase surfaces
// crypto.ErrInvalidPassphrase.
func (k *Key) Unlock(passphrase string) (*Key, error) {
	if !k.HasSecret() {
		return nil, ErrNoSecretMaterial
	}

	if !k.Locked() {
		return k, nil
	}

	plaintext, err := crypto.DecryptWithPassphrase(k.secret.sealed, passphrase)
	if err != nil {
		return nil, err
	}

	if len(plaintext) != ed25519.PrivateKeySize+encryptionKeyLength {
		return nil, errors.Wrap(ErrInvalidKey, "sealed secret material has wrong length")
	}

	unlocked := *k
	unlocked.secret = &secretMaterial{
		signingPrivate:    ed25519.PrivateKey(plaintext[0:ed25519.PrivateKeySize]),
		encryptionPrivate: plaintext[ed25519.PrivateKeySize:],
		sealed:            k.secret.sealed,
	}

	return &unlocked, nil
}

// EncryptMessage seals plaintext to this key's encryption half. Any copy of
// the public key can encrypt; no secret material is needed.
func (k *Key) EncryptMessage(plaintext []byte) ([]byte, error) {
	//nolint:wrapcheck
	return ecies.Encrypt(k.EncryptionPublic, plaintext)
}

// DecryptMessage opens a message addressed to this key. The key must hold
// unsealed secret material.
func (k *Key) DecryptMessage(data []byte) ([]byte, error) {
	if !k.HasSecret() {
		return nil, ErrNoSecretMaterial
	}

	if k.Locked() {
		return nil, ErrKeyLocked
	}

	//nolint:wrapcheck
	return ecies.Decrypt(k.secret.encryptionPrivate, data)
}
