// Package backup implements creation and restoration of key backup
// containers, plus fallback decryption of ad-hoc messages.
package backup

import (
	"bytes"
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/macpgp/macpgp/container"
	"github.com/macpgp/macpgp/internal/atomicfile"
	"github.com/macpgp/macpgp/internal/clock"
	"github.com/macpgp/macpgp/internal/crypto"
	"github.com/macpgp/macpgp/keystore"
	"github.com/macpgp/macpgp/logging"
)

var log = logging.Module("backup")

// ErrNoKeysSelected is returned when a backup is requested with an empty
// key selection.
var ErrNoKeysSelected = errors.New("no keys selected")

// Deps carries the collaborators of a backup run. Nothing is global.
type Deps struct {
	Store keystore.Store
}

// Options controls a single backup run.
type Options struct {
	// Keys are identifiers resolved against the store. Identifiers that
	// resolve to the same key are collapsed into one entry.
	Keys []string

	// OutputPath receives the finished container via an atomic replace.
	OutputPath string

	// Passphrase, when non-empty, wraps the whole packaged container in a
	// password-protected envelope. Matching it against a confirmation value
	// is the caller's concern.
	Passphrase string

	Name        string
	Description string
	DeviceName  string
	CreatedBy   string

	NowFunc    func() time.Time
	Progress   ProgressFunc
	OnComplete func(ctx context.Context, result *Result)
}

// Result describes a completed backup.
type Result struct {
	BackupID     string    `json:"backupId"`
	Path         string    `json:"path"`
	Fingerprints []string  `json:"fingerprints"`
	KeyCount     int       `json:"keyCount"`
	Encrypted    bool      `json:"encrypted"`
	CreatedAt    time.Time `json:"createdAt"`
	BytesWritten int64     `json:"bytesWritten"`
}

// Run executes the backup pipeline: gather keys, export them, package the
// container, optionally protect it with a passphrase and atomically commit
// the result to disk. The operation is all-or-nothing; an identifier that
// does not resolve fails the run before anything is written.
func Run(ctx context.Context, deps Deps, opt Options) (*Result, error) {
	startTime := clock.Now()

	nowFunc := opt.NowFunc
	if nowFunc == nil {
		nowFunc = clock.Now
	}

	progress := opt.Progress
	if progress == nil {
		progress = func(Stage, float64) {}
	}

	if len(opt.Keys) == 0 {
		return nil, ErrNoKeysSelected
	}

	if opt.OutputPath == "" {
		return nil, errors.New("output path is required")
	}

	// Gather
	var (
		keys         []*keystore.Key
		fingerprints []string
		seen         = map[string]bool{}
	)

	for _, id := range opt.Keys {
		k, err := deps.Store.Find(ctx, id)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to resolve key %q", id)
		}

		if seen[k.Fingerprint] {
			log(ctx).Debugw("duplicate key selection collapsed", "fingerprint", k.Fingerprint)
			continue
		}

		seen[k.Fingerprint] = true
		keys = append(keys, k)
		fingerprints = append(fingerprints, k.Fingerprint)
	}

	progress(StageGather, 0.2)

	// Export
	blocks := make([][]byte, 0, len(keys))

	for _, k := range keys {
		b, err := deps.Store.ExportArmored(ctx, k, true)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to export key %v", k.Fingerprint)
		}

		blocks = append(blocks, b)
	}

	keyData := bytes.Join(blocks, []byte("\n"))

	progress(StageExport, 0.4)

	// Package
	enc := container.EncryptionNone
	if opt.Passphrase != "" {
		enc = container.EncryptionAES256GCM
	}

	createdAt := nowFunc().UTC()

	meta := &container.Metadata{
		BackupID:        uuid.NewString(),
		CreatedAt:       createdAt,
		CreatedBy:       opt.CreatedBy,
		KeyFingerprints: fingerprints,
		Encryption:      enc,
	}

	if opt.Name != "" || opt.Description != "" || opt.DeviceName != "" {
		meta.Metadata = &container.UserMetadata{
			Name:        opt.Name,
			Description: opt.Description,
			DeviceName:  opt.DeviceName,
		}
	}

	packaged, err := container.Encode(meta, keyData)
	if err != nil {
		return nil, errors.Wrap(err, "unable to package backup")
	}

	progress(StagePackage, 0.6)

	// Protect
	final := packaged

	if opt.Passphrase != "" {
		final, err = crypto.EncryptWithPassphrase(packaged, opt.Passphrase)
		if err != nil {
			return nil, errors.Wrap(err, "unable to protect backup")
		}
	}

	progress(StageProtect, 0.8)

	// Commit
	if err := atomicfile.WriteBytes(opt.OutputPath, final); err != nil {
		return nil, errors.Wrapf(err, "unable to write backup to %v", opt.OutputPath)
	}

	progress(StageCommit, 1.0)

	result := &Result{
		BackupID:     meta.BackupID,
		Path:         opt.OutputPath,
		Fingerprints: fingerprints,
		KeyCount:     len(fingerprints),
		Encrypted:    enc == container.EncryptionAES256GCM,
		CreatedAt:    createdAt,
		BytesWritten: int64(len(final)),
	}

	log(ctx).Infow("backup created",
		"path", result.Path,
		"keys", result.KeyCount,
		"encrypted", result.Encrypted,
		"bytes", result.BytesWritten,
		"duration", clock.Since(startTime))

	if opt.OnComplete != nil {
		opt.OnComplete(ctx, result)
	}

	return result, nil
}
