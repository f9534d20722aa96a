package crypto

import (
	"bytes"

	"github.com/pkg/errors"
)

// FormatMarker identifies the envelope scheme and its version. Exactly one
// value is supported at a time; a future scheme gets a new marker.
const FormatMarker = "MACPGPE1"

var (
	// ErrInvalidPassphrase is returned when envelope authentication fails.
	// Wrong passphrase and corrupted ciphertext are indistinguishable here,
	// the AEAD tag is the only signal for both.
	ErrInvalidPassphrase = errors.New("invalid passphrase or corrupted data")

	// ErrUnrecognizedFormat is returned when data does not begin with the
	// envelope format marker.
	ErrUnrecognizedFormat = errors.New("unrecognized encryption format")
)

// EncryptWithPassphrase seals an opaque payload under a passphrase and
// returns the envelope: FormatMarker || salt || AES-256-GCM combined output.
// The salt and nonce are freshly generated on every call, so encrypting the
// same payload twice yields different bytes.
func EncryptWithPassphrase(payload []byte, passphrase string) ([]byte, error) {
	if passphrase == "" {
		return nil, ErrPassphraseRequired
	}

	salt, err := GenerateSalt()
	if err != nil {
		return nil, err
	}

	key, err := DeriveKeyFromPassphrase(passphrase, salt)
	if err != nil {
		return nil, err
	}

	sealed, err := EncryptAes256Gcm(payload, key)
	if err != nil {
		return nil, errors.Wrap(err, "unable to encrypt payload")
	}

	result := make([]byte, 0, len(FormatMarker)+len(salt)+len(sealed))
	result = append(result, FormatMarker...)
	result = append(result, salt...)
	result = append(result, sealed...)

	return result, nil
}

// DecryptWithPassphrase opens an envelope produced by EncryptWithPassphrase.
// Data not starting with FormatMarker fails with ErrUnrecognizedFormat before
// any key derivation; an authentication failure maps to ErrInvalidPassphrase.
func DecryptWithPassphrase(data []byte, passphrase string) ([]byte, error) {
	if !IsEncrypted(data) {
		return nil, ErrUnrecognizedFormat
	}

	if passphrase == "" {
		return nil, ErrPassphraseRequired
	}

	rest := data[len(FormatMarker):]
	if len(rest) < SaltLength {
		return nil, errors.Wrap(ErrUnrecognizedFormat, "envelope truncated")
	}

	salt := rest[0:SaltLength]

	key, err := DeriveKeyFromPassphrase(passphrase, salt)
	if err != nil {
		return nil, err
	}

	payload, err := DecryptAes256Gcm(rest[SaltLength:], key)
	if err != nil {
		return nil, ErrInvalidPassphrase
	}

	return payload, nil
}

// IsEncrypted reports whether data begins with the envelope format marker.
// It inspects only the leading bytes and never modifies its input.
func IsEncrypted(data []byte) bool {
	return bytes.HasPrefix(data, []byte(FormatMarker))
}
