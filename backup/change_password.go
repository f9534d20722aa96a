package backup

import (
	"context"
	"os"

	"github.com/pkg/errors"

	"github.com/macpgp/macpgp/container"
	"github.com/macpgp/macpgp/internal/atomicfile"
	"github.com/macpgp/macpgp/internal/crypto"
)

// ErrNotProtected is returned when protection removal is requested for a
// backup that is not password-protected.
var ErrNotProtected = errors.New("backup is not password-protected")

// ChangeOptions controls ChangePassword.
type ChangeOptions struct {
	// Remove strips the envelope and rewrites the backup as plaintext.
	Remove bool
}

// ChangeResult reports the protection state before and after the rewrite.
type ChangeResult struct {
	WasEncrypted bool
	Encrypted    bool
}

// ChangePassword rewrites a backup under a different passphrase, adds
// protection to a plaintext backup, or strips protection entirely. The
// container inside is untouched apart from its recorded encryption scheme;
// the file is replaced atomically, so a failure at any point leaves the
// original in place.
func ChangePassword(ctx context.Context, path, oldPassphrase, newPassphrase string, opt ChangeOptions) (*ChangeResult, error) {
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read %v", path)
	}

	result := &ChangeResult{
		WasEncrypted: crypto.IsEncrypted(data),
	}

	plaintext := data

	if result.WasEncrypted {
		plaintext, err = crypto.DecryptWithPassphrase(data, oldPassphrase)
		if err != nil {
			return nil, err
		}
	}

	meta, keyData, err := container.Decode(plaintext)
	if err != nil {
		return nil, errors.Wrap(err, "not a valid backup")
	}

	if opt.Remove {
		if !result.WasEncrypted {
			return nil, ErrNotProtected
		}

		if newPassphrase != "" {
			return nil, errors.New("cannot both remove protection and set a passphrase")
		}

		meta.Encryption = container.EncryptionNone

		out, err := container.Encode(meta, keyData)
		if err != nil {
			return nil, errors.Wrap(err, "unable to repackage backup")
		}

		if err := atomicfile.WriteBytes(path, out); err != nil {
			return nil, errors.Wrapf(err, "unable to write %v", path)
		}

		log(ctx).Infow("protection removed", "path", path)

		return result, nil
	}

	if newPassphrase == "" {
		return nil, crypto.ErrPassphraseRequired
	}

	meta.Encryption = container.EncryptionAES256GCM

	repackaged, err := container.Encode(meta, keyData)
	if err != nil {
		return nil, errors.Wrap(err, "unable to repackage backup")
	}

	out, err := crypto.EncryptWithPassphrase(repackaged, newPassphrase)
	if err != nil {
		return nil, errors.Wrap(err, "unable to protect backup")
	}

	if err := atomicfile.WriteBytes(path, out); err != nil {
		return nil, errors.Wrapf(err, "unable to write %v", path)
	}

	result.Encrypted = true

	if result.WasEncrypted {
		log(ctx).Infow("passphrase changed", "path", path)
	} else {
		log(ctx).Infow("protection added", "path", path)
	}

	return result, nil
}
