// Package ecies implements the ad-hoc message ciphertext class: messages
// encrypted to a recipient's X25519 key using an ephemeral key agreement,
// HKDF-SHA256 key derivation and AES-256-GCM. This is a different format
// than backup containers; backup files are never valid messages.
package ecies

import (
	"bytes"
	"crypto/ecdh"
	"crypto/rand"
	"crypto/sha256"
	"encoding/pem"
	"io"

	"github.com/pkg/errors"
	"golang.org/x/crypto/hkdf"

	"github.com/macpgp/macpgp/internal/crypto"
)

// messageMarker identifies the message scheme and its version.
const messageMarker = "MACPGPM1"

// armorBlockType is the PEM block type of armored messages.
const armorBlockType = "MACPGP MESSAGE"

const (
	publicKeyLength = 32
	messageKeyInfo  = "macpgp message key v1"
)

var (
	// ErrNotMessage is returned when data carries neither the binary
	// message marker nor a message armor block.
	ErrNotMessage = errors.New("not a macpgp message")

	// ErrDecryptFailed is returned when a message cannot be opened with the
	// given private key. Wrong key and tampered ciphertext produce the same
	// signal.
	ErrDecryptFailed = errors.New("unable to decrypt message with this key")
)

// Encrypt seals plaintext to the recipient's X25519 public key. The output
// is binary: marker || ephemeral public key || AES-256-GCM combined output.
func Encrypt(recipientPublic, plaintext []byte) ([]byte, error) {
	pub, err := ecdh.X25519().NewPublicKey(recipientPublic)
	if err != nil {
		return nil, errors.Wrap(err, "invalid recipient public key")
	}

	ephemeral, err := ecdh.X25519().GenerateKey(rand.Reader)
	if err != nil {
		return nil, errors.Wrap(err, "unable to generate ephemeral key")
	}

	shared, err := ephemeral.ECDH(pub)
	if err != nil {
		return nil, errors.Wrap(err, "key agreement failed")
	}

	ephemeralPublic := ephemeral.PublicKey().Bytes()

	key, err := deriveMessageKey(shared, ephemeralPublic)
	if err != nil {
		return nil, err
	}

	sealed, err := crypto.EncryptAes256Gcm(plaintext, key)
	if err != nil {
		return nil, errors.Wrap(err, "unable to seal message")
	}

	result := make([]byte, 0, len(messageMarker)+len(ephemeralPublic)+len(sealed))
	result = append(result, messageMarker...)
	result = append(result, ephemeralPublic...)
	result = append(result, sealed...)

	return result, nil
}

// Decrypt opens a message addressed to the given X25519 private key. It
// accepts both the binary layout and its armored form.
func Decrypt(recipientPrivate, data []byte) ([]byte, error) {
	body, err := messageBody(data)
	if err != nil {
		return nil, err
	}

	if len(body) < publicKeyLength {
		return nil, errors.Wrap(ErrNotMessage, "truncated message")
	}

	priv, err := ecdh.X25519().NewPrivateKey(recipientPrivate)
	if err != nil {
		return nil, errors.Wrap(err, "invalid private key")
	}

	ephemeralPublic := body[0:publicKeyLength]

	pub, err := ecdh.X25519().NewPublicKey(ephemeralPublic)
	if err != nil {
		return nil, ErrDecryptFailed
	}

	shared, err := priv.ECDH(pub)
	if err != nil {
		return nil, ErrDecryptFailed
	}

	key, err := deriveMessageKey(shared, ephemeralPublic)
	if err != nil {
		return nil, err
	}

	plaintext, err := crypto.DecryptAes256Gcm(body[publicKeyLength:], key)
	if err != nil {
		return nil, ErrDecryptFailed
	}

	return plaintext, nil
}

// Armor wraps a binary message in a MACPGP MESSAGE block.
func Armor(message []byte) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: armorBlockType, Bytes: message})
}

// IsMessage reports whether data looks like a message, in either binary or
// armored form.
func IsMessage(data []byte) bool {
	if bytes.HasPrefix(data, []byte(messageMarker)) {
		return true
	}

	return bytes.HasPrefix(bytes.TrimLeft(data, " \t\r\n"), []byte("-----BEGIN "+armorBlockType+"-----"))
}

// messageBody strips armor when present and validates the message marker.
func messageBody(data []byte) ([]byte, error) {
	if !bytes.HasPrefix(data, []byte(messageMarker)) {
		block, _ := pem.Decode(data)
		if block == nil || block.Type != armorBlockType {
			return nil, ErrNotMessage
		}

		data = block.Bytes
		if !bytes.HasPrefix(data, []byte(messageMarker)) {
			return nil, errors.Wrap(ErrNotMessage, "armored payload has no message marker")
		}
	}

	return data[len(messageMarker):], nil
}

func deriveMessageKey(shared, ephemeralPublic []byte) ([]byte, error) {
	r := hkdf.New(sha256.New, shared, ephemeralPublic, []byte(messageKeyInfo))

	key := make([]byte, crypto.MasterKeyLength)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, errors.Wrap(err, "key derivation failed")
	}

	return key, nil
}
