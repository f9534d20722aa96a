package credvault

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/macpgp/macpgp/internal/atomicfile"
)

// NewFile returns a Vault that persists base64-encoded passphrases in
// per-fingerprint files under dir.
func NewFile(dir string) Vault {
	return fileVault{dir}
}

type fileVault struct {
	dir string
}

func (f fileVault) GetPassphrase(ctx context.Context, fingerprint string) (string, error) {
	b, err := os.ReadFile(f.passphraseFileName(fingerprint))
	if os.IsNotExist(err) {
		return "", ErrPassphraseNotFound
	}

	if err != nil {
		return "", errors.Wrap(err, "error reading persisted passphrase")
	}

	s, err := base64.StdEncoding.DecodeString(string(b))
	if err != nil {
		return "", errors.Wrap(err, "error invalid persisted passphrase")
	}

	log(ctx).Debugf("passphrase for %v retrieved from vault file", fingerprint)

	return string(s), nil
}

func (f fileVault) PersistPassphrase(ctx context.Context, fingerprint, passphrase string) error {
	fn := f.passphraseFileName(fingerprint)
	log(ctx).Debugf("saving passphrase to file %v", fn)

	if err := os.MkdirAll(f.dir, 0o700); err != nil {
		return errors.Wrap(err, "unable to create vault directory")
	}

	// atomicfile creates the file with mode 0600.
	return errors.Wrap(
		atomicfile.WriteBytes(fn, []byte(base64.StdEncoding.EncodeToString([]byte(passphrase)))),
		"error persisting passphrase")
}

func (f fileVault) DeletePassphrase(ctx context.Context, fingerprint string) error {
	err := os.Remove(f.passphraseFileName(fingerprint))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "error deleting passphrase file")
	}

	return nil
}

func (f fileVault) passphraseFileName(fingerprint string) string {
	return filepath.Join(f.dir, fingerprint+".passphrase")
}
