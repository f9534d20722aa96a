// Package container implements the .macpgp backup container format: a
// three-section text layout holding a metadata JSON block followed by the
// raw key-data section. The codec is independent of encryption; an encrypted
// backup wraps the entire encoded container in a passphrase envelope.
package container

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"
)

const (
	beginMarker       = "-----BEGIN MACPGP BACKUP-----"
	metadataEndMarker = "-----END MACPGP BACKUP METADATA-----"
	endMarker         = "-----END MACPGP BACKUP-----"
)

// CurrentSchemaVersion is the only schema version this codec produces and
// understands. Containers with any other version must fail with
// ErrUnsupportedVersion, never be silently misinterpreted.
const CurrentSchemaVersion = "1"

// Encryption identifies how the container file is protected on disk.
type Encryption string

// Supported encryption schemes.
const (
	EncryptionNone      Encryption = "none"
	EncryptionAES256GCM Encryption = "aes256gcm"
)

var (
	// ErrMalformedContainer is returned when the three-marker layout or the
	// metadata block cannot be parsed.
	ErrMalformedContainer = errors.New("malformed backup container")

	// ErrChecksumMismatch is returned when the recomputed key-data digest
	// does not match the one recorded in metadata.
	ErrChecksumMismatch = errors.New("backup checksum mismatch, key data is corrupted")

	// ErrUnsupportedVersion is returned for containers written by an
	// incompatible schema version.
	ErrUnsupportedVersion = errors.New("unsupported backup schema version")

	// ErrInvalidEncoding is returned when container input is not valid UTF-8.
	ErrInvalidEncoding = errors.New("container data is not valid UTF-8 text")
)

// UserMetadata is the optional user-supplied portion of container metadata.
type UserMetadata struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	DeviceName  string `json:"deviceName,omitempty"`
}

// Metadata describes the contents of a backup container.
type Metadata struct {
	SchemaVersion   string        `json:"schemaVersion"`
	BackupID        string        `json:"backupId,omitempty"`
	CreatedAt       time.Time     `json:"createdAt"`
	CreatedBy       string        `json:"createdBy,omitempty"`
	KeyCount        int           `json:"keyCount"`
	KeyFingerprints []string      `json:"keyFingerprints"`
	Encryption      Encryption    `json:"encryption"`
	Checksum        string        `json:"checksum,omitempty"`
	Metadata        *UserMetadata `json:"metadata,omitempty"`
}

// Encode serializes metadata and key-data into the on-disk text layout.
// It computes the SHA-256 checksum over keyData and embeds it in
// metadata.Checksum, fills SchemaVersion and Encryption when unset and
// derives KeyCount from the fingerprint list. An empty key-data section is
// valid at this layer; refusing empty backups is pipeline policy.
func Encode(m *Metadata, keyData []byte) ([]byte, error) {
	if !utf8.Valid(keyData) {
		return nil, errors.Wrap(ErrInvalidEncoding, "key data")
	}

	if err := validateStrings(m); err != nil {
		return nil, err
	}

	if m.SchemaVersion == "" {
		m.SchemaVersion = CurrentSchemaVersion
	}

	if m.Encryption == "" {
		m.Encryption = EncryptionNone
	}

	// A nil slice would serialize as JSON null and decode as a missing
	// required field.
	if m.KeyFingerprints == nil {
		m.KeyFingerprints = []string{}
	}

	m.KeyCount = len(m.KeyFingerprints)
	m.Checksum = checksumOf(keyData)

	j, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, errors.Wrap(ErrInvalidEncoding, err.Error())
	}

	var buf bytes.Buffer

	buf.WriteString(beginMarker)
	buf.WriteByte('\n')
	buf.Write(j)
	buf.WriteByte('\n')
	buf.WriteString(metadataEndMarker)
	buf.WriteByte('\n')
	buf.Write(keyData)
	buf.WriteByte('\n')
	buf.WriteString(endMarker)
	buf.WriteByte('\n')

	return buf.Bytes(), nil
}

// Decode parses the on-disk text layout back into metadata and the exact
// key-data bytes passed to Encode. The three markers are located by first
// occurrence; a missing marker is ErrMalformedContainer. Unknown metadata
// fields are ignored for forward compatibility. The recomputed key-data
// checksum must match the recorded one or Decode fails with
// ErrChecksumMismatch and nothing may be imported.
func Decode(data []byte) (*Metadata, []byte, error) {
	begin := bytes.Index(data, []byte(beginMarker))
	if begin < 0 {
		return nil, nil, errors.Wrapf(ErrMalformedContainer, "missing %q", beginMarker)
	}

	metaStart := begin + len(beginMarker)

	metaEnd := bytes.Index(data[metaStart:], []byte(metadataEndMarker))
	if metaEnd < 0 {
		return nil, nil, errors.Wrapf(ErrMalformedContainer, "missing %q", metadataEndMarker)
	}

	m, err := parseMetadata(data[metaStart : metaStart+metaEnd])
	if err != nil {
		return nil, nil, err
	}

	keyStart := metaStart + metaEnd + len(metadataEndMarker)
	if keyStart < len(data) && data[keyStart] == '\n' {
		keyStart++
	}

	end := bytes.Index(data[keyStart:], []byte(endMarker))
	if end < 0 {
		return nil, nil, errors.Wrapf(ErrMalformedContainer, "missing %q", endMarker)
	}

	keyData := data[keyStart : keyStart+end]
	// Encode always writes a newline between the key-data section and the
	// end marker; remove exactly that one separator to round-trip the
	// original bytes.
	keyData = bytes.TrimSuffix(keyData, []byte("\n"))

	if !strings.EqualFold(checksumOf(keyData), m.Checksum) {
		return nil, nil, errors.Wrapf(ErrChecksumMismatch, "recorded %v", m.Checksum)
	}

	return m, append([]byte(nil), keyData...), nil
}

// metadataDoc mirrors Metadata with pointer fields so that absent required
// fields are distinguishable from zero values.
type metadataDoc struct {
	SchemaVersion   *string       `json:"schemaVersion"`
	BackupID        string        `json:"backupId"`
	CreatedAt       *time.Time    `json:"createdAt"`
	CreatedBy       string        `json:"createdBy"`
	KeyCount        *int          `json:"keyCount"`
	KeyFingerprints []string      `json:"keyFingerprints"`
	Encryption      *string       `json:"encryption"`
	Checksum        *string       `json:"checksum"`
	Metadata        *UserMetadata `json:"metadata"`
}

func parseMetadata(j []byte) (*Metadata, error) {
	var doc metadataDoc

	if err := json.Unmarshal(j, &doc); err != nil {
		return nil, errors.Wrap(ErrMalformedContainer, "invalid metadata JSON")
	}

	switch {
	case doc.SchemaVersion == nil:
		return nil, errors.Wrap(ErrMalformedContainer, "missing schemaVersion")
	case doc.CreatedAt == nil:
		return nil, errors.Wrap(ErrMalformedContainer, "missing createdAt")
	case doc.KeyCount == nil:
		return nil, errors.Wrap(ErrMalformedContainer, "missing keyCount")
	case doc.KeyFingerprints == nil:
		return nil, errors.Wrap(ErrMalformedContainer, "missing keyFingerprints")
	case doc.Encryption == nil:
		return nil, errors.Wrap(ErrMalformedContainer, "missing encryption")
	case doc.Checksum == nil:
		return nil, errors.Wrap(ErrMalformedContainer, "missing checksum")
	}

	if *doc.SchemaVersion != CurrentSchemaVersion {
		return nil, errors.Wrapf(ErrUnsupportedVersion, "version %q", *doc.SchemaVersion)
	}

	enc := Encryption(*doc.Encryption)
	if enc != EncryptionNone && enc != EncryptionAES256GCM {
		return nil, errors.Wrapf(ErrMalformedContainer, "unknown encryption scheme %q", enc)
	}

	if *doc.KeyCount != len(doc.KeyFingerprints) {
		return nil, errors.Wrapf(ErrMalformedContainer,
			"key count %v does not match %v fingerprints", *doc.KeyCount, len(doc.KeyFingerprints))
	}

	return &Metadata{
		SchemaVersion:   *doc.SchemaVersion,
		BackupID:        doc.BackupID,
		CreatedAt:       *doc.CreatedAt,
		CreatedBy:       doc.CreatedBy,
		KeyCount:        *doc.KeyCount,
		KeyFingerprints: doc.KeyFingerprints,
		Encryption:      enc,
		Checksum:        *doc.Checksum,
		Metadata:        doc.Metadata,
	}, nil
}

func checksumOf(keyData []byte) string {
	h := sha256.Sum256(keyData)
	return hex.EncodeToString(h[:])
}

func validateStrings(m *Metadata) error {
	all := []string{m.SchemaVersion, m.BackupID, m.CreatedBy, m.Checksum}
	all = append(all, m.KeyFingerprints...)

	if m.Metadata != nil {
		all = append(all, m.Metadata.Name, m.Metadata.Description, m.Metadata.DeviceName)
	}

	for _, s := range all {
		if !utf8.ValidString(s) {
			return errors.Wrap(ErrInvalidEncoding, "metadata")
		}
	}

	return nil
}
