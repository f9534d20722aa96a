package keystore

import (
	"crypto/ed25519"
	"encoding/json"
	"encoding/pem"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	publicBlockType = "MACPGP PUBLIC KEY BLOCK"
	secretBlockType = "MACPGP SECRET KEY BLOCK"

	recordFormatVersion = 1

	protectionNone      = "none"
	protectionAES256GCM = "aes256gcm"
)

// keyRecord is the JSON payload inside an armored key block. It is also the
// on-disk representation of a key in the Dir store.
type keyRecord struct {
	FormatVersion    int           `json:"formatVersion"`
	Fingerprint      string        `json:"fingerprint"`
	Name             string        `json:"name,omitempty"`
	Email            string        `json:"email,omitempty"`
	CreatedAt        time.Time     `json:"createdAt"`
	SigningPublic    []byte        `json:"signingPublic"`
	EncryptionPublic []byte        `json:"encryptionPublic"`
	Secret           *secretRecord `json:"secret,omitempty"`
}

type secretRecord struct {
	// Protection is "none" for clear private halves or "aes256gcm" for a
	// passphrase envelope carried in Sealed.
	Protection        string `json:"protection"`
	SigningPrivate    []byte `json:"signingPrivate,omitempty"`
	EncryptionPrivate []byte `json:"encryptionPrivate,omitempty"`
	Sealed            []byte `json:"sealed,omitempty"`
}

func recordFromKey(key *Key, includeSecret bool) *keyRecord {
	rec := &keyRecord{
		FormatVersion:    recordFormatVersion,
		Fingerprint:      key.Fingerprint,
		Name:             key.Name,
		Email:            key.Email,
		CreatedAt:        key.CreatedAt,
		SigningPublic:    key.SigningPublic,
		EncryptionPublic: key.EncryptionPublic,
	}

	if includeSecret && key.secret != nil {
		if key.secret.sealed != nil {
			// A protected key stays protected in its exported form.
			rec.Secret = &secretRecord{
				Protection: protectionAES256GCM,
				Sealed:     key.secret.sealed,
			}
		} else {
			rec.Secret = &secretRecord{
				Protection:        protectionNone,
				SigningPrivate:    key.secret.signingPrivate,
				EncryptionPrivate: key.secret.encryptionPrivate,
			}
		}
	}

	return rec
}

func keyFromRecord(rec *keyRecord) (*Key, error) {
	if rec.FormatVersion != recordFormatVersion {
		return nil, errors.Wrapf(ErrInvalidKey, "unsupported key format version %v", rec.FormatVersion)
	}

	if len(rec.SigningPublic) != ed25519.PublicKeySize {
		return nil, errors.Wrap(ErrInvalidKey, "invalid signing public key length")
	}

	if len(rec.EncryptionPublic) != encryptionKeyLength {
		return nil, errors.Wrap(ErrInvalidKey, "invalid encryption public key length")
	}

	if !strings.EqualFold(rec.Fingerprint, fingerprintOf(rec.SigningPublic, rec.EncryptionPublic)) {
		return nil, errors.Wrap(ErrInvalidKey, "fingerprint does not match public key material")
	}

	k := &Key{
		Fingerprint:      strings.ToLower(rec.Fingerprint),
		Name:             rec.Name,
		Email:            rec.Email,
		CreatedAt:        rec.CreatedAt,
		SigningPublic:    rec.SigningPublic,
		EncryptionPublic: rec.EncryptionPublic,
	}

	if rec.Secret != nil {
		sm, err := secretFromRecord(rec.Secret)
		if err != nil {
			return nil, err
		}

		k.secret = sm
	}

	return k, nil
}

func secretFromRecord(rec *secretRecord) (*secretMaterial, error) {
	switch rec.Protection {
	case protectionNone:
		if len(rec.SigningPrivate) != ed25519.PrivateKeySize || len(rec.EncryptionPrivate) != encryptionKeyLength {
			return nil, errors.Wrap(ErrInvalidKey, "invalid private key length")
		}

		return &secretMaterial{
			signingPrivate:    rec.SigningPrivate,
			encryptionPrivate: rec.EncryptionPrivate,
		}, nil

	case protectionAES256GCM:
		if len(rec.Sealed) == 0 {
			return nil, errors.Wrap(ErrInvalidKey, "missing sealed secret material")
		}

		return &secretMaterial{sealed: rec.Sealed}, nil

	default:
		return nil, errors.Wrapf(ErrInvalidKey, "unknown secret protection %q", rec.Protection)
	}
}

// armorKey renders a key as a PEM block. Secret material, when included,
// keeps whatever protection it has.
func armorKey(key *Key, includeSecret bool) ([]byte, error) {
	rec := recordFromKey(key, includeSecret)

	payload, err := json.Marshal(rec)
	if err != nil {
		return nil, errors.Wrap(err, "unable to serialize key record")
	}

	blockType := publicBlockType
	if rec.Secret != nil {
		blockType = secretBlockType
	}

	return pem.EncodeToMemory(&pem.Block{
		Type:    blockType,
		Headers: map[string]string{"Fingerprint": key.Fingerprint},
		Bytes:   payload,
	}), nil
}

// parseArmoredKeys parses every key block in data, in order. Any malformed
// or foreign block fails the whole parse.
func parseArmoredKeys(data []byte) ([]*Key, error) {
	var keys []*Key

	rest := data

	for {
		var block *pem.Block

		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}

		if block.Type != publicBlockType && block.Type != secretBlockType {
			return nil, errors.Wrapf(ErrInvalidKey, "unexpected block type %q", block.Type)
		}

		var rec keyRecord
		if err := json.Unmarshal(block.Bytes, &rec); err != nil {
			return nil, errors.Wrap(ErrInvalidKey, "unparseable key record")
		}

		if block.Type == publicBlockType && rec.Secret != nil {
			return nil, errors.Wrap(ErrInvalidKey, "public key block carries secret material")
		}

		k, err := keyFromRecord(&rec)
		if err != nil {
			return nil, err
		}

		keys = append(keys, k)
	}

	if len(keys) == 0 {
		return nil, errors.Wrap(ErrInvalidKey, "no armored key blocks found")
	}

	return keys, nil
}
