package backup

import (
	"context"
	"os"

	"github.com/pkg/errors"

	"github.com/macpgp/macpgp/container"
	"github.com/macpgp/macpgp/internal/crypto"
)

// FileClass classifies a file inspected by Inspect.
type FileClass string

// File classes.
const (
	// ClassEncrypted is a password-protected envelope; its metadata is
	// unreadable without the passphrase.
	ClassEncrypted FileClass = "encrypted"

	// ClassPlaintext is a well-formed unencrypted backup container.
	ClassPlaintext FileClass = "plaintext"

	// ClassInvalid is neither; Error carries the reason.
	ClassInvalid FileClass = "invalid"
)

// Info describes a backup file without importing anything.
type Info struct {
	Path         string              `json:"path"`
	Size         int64               `json:"size"`
	Class        FileClass           `json:"class"`
	KeyCount     int                 `json:"keyCount"`
	Fingerprints []string            `json:"fingerprints,omitempty"`
	Metadata     *container.Metadata `json:"metadata,omitempty"`
	Error        string              `json:"error,omitempty"`
}

// Inspect classifies a file as an encrypted envelope, a plaintext container
// or neither, and surfaces whatever metadata is readable. It never touches
// the key store. Classification results are data; the error return is
// reserved for I/O failures.
func Inspect(ctx context.Context, path string) (*Info, error) {
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read %v", path)
	}

	info := &Info{
		Path: path,
		Size: int64(len(data)),
	}

	if crypto.IsEncrypted(data) {
		info.Class = ClassEncrypted
		info.KeyCount = -1

		return info, nil
	}

	meta, _, err := container.Decode(data)
	if err != nil {
		info.Class = ClassInvalid
		info.KeyCount = -1
		info.Error = err.Error()

		log(ctx).Debugw("inspected invalid file", "path", path, "error", err)

		return info, nil
	}

	info.Class = ClassPlaintext
	info.KeyCount = meta.KeyCount
	info.Fingerprints = meta.KeyFingerprints
	info.Metadata = meta

	return info, nil
}
