package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"io"

	"github.com/pkg/errors"
)

var errPlaintextTooLarge = errors.New("plaintext data is too large to be encrypted")

func newAead(key []byte) (cipher.AEAD, error) {
	blk, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Wrap(err, "cannot create cipher")
	}

	aead, err := cipher.NewGCM(blk)
	if err != nil {
		return nil, errors.Wrap(err, "cannot create GCM")
	}

	return aead, nil
}

// EncryptAes256Gcm seals data with AES-256-GCM under the given 32-byte key.
// The random nonce is stored at the beginning of the returned ciphertext.
func EncryptAes256Gcm(data, key []byte) ([]byte, error) {
	aead, err := newAead(key)
	if err != nil {
		return nil, err
	}

	nonceLength := aead.NonceSize()
	noncePlusOverhead := nonceLength + aead.Overhead()

	const maxInt = int(^uint(0) >> 1)
	if len(data) > maxInt-noncePlusOverhead {
		return nil, errPlaintextTooLarge
	}

	result := make([]byte, len(data)+noncePlusOverhead)

	nonce := result[0:nonceLength]
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, errors.Wrap(err, "error reading random bytes for nonce")
	}

	b := aead.Seal(result[nonceLength:nonceLength], nonce, data, nil)

	return result[0 : nonceLength+len(b)], nil
}

// DecryptAes256Gcm opens ciphertext produced by EncryptAes256Gcm. Any
// modification of the ciphertext, including the embedded nonce, fails
// authentication.
func DecryptAes256Gcm(data, key []byte) ([]byte, error) {
	aead, err := newAead(key)
	if err != nil {
		return nil, err
	}

	if len(data) < aead.NonceSize()+aead.Overhead() {
		return nil, errors.New("invalid encrypted payload, too short")
	}

	data = append([]byte(nil), data...)

	nonce := data[0:aead.NonceSize()]
	payload := data[aead.NonceSize():]

	plainText, err := aead.Open(payload[:0], nonce, payload, nil)
	if err != nil {
		return nil, errors.Wrap(err, "authentication failed")
	}

	return plainText, nil
}
