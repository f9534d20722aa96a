package backup_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/macpgp/macpgp/backup"
	"github.com/macpgp/macpgp/container"
	"github.com/macpgp/macpgp/internal/crypto"
	"github.com/macpgp/macpgp/internal/faketime"
	"github.com/macpgp/macpgp/internal/testlogging"
	"github.com/macpgp/macpgp/keystore"
)

func TestRunUnencrypted(t *testing.T) {
	ctx := testlogging.Context(t)

	alice := newTestKey(t, "Alice", "alice@example.com", 0)
	bob := newTestKey(t, "Bob", "bob@example.com", time.Hour)
	st := newTestStore(t, alice, bob)

	outPath := filepath.Join(t.TempDir(), "keys.macpgp")

	result, err := backup.Run(ctx, backup.Deps{Store: st}, backup.Options{
		Keys:       []string{alice.Fingerprint, bob.Fingerprint},
		OutputPath: outPath,
		Name:       "laptop backup",
	})
	require.NoError(t, err)

	require.Equal(t, 2, result.KeyCount)
	require.Equal(t, []string{alice.Fingerprint, bob.Fingerprint}, result.Fingerprints)
	require.False(t, result.Encrypted)
	require.NotEmpty(t, result.BackupID)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	require.EqualValues(t, len(data), result.BytesWritten)

	// The file is a plaintext container starting with the begin marker.
	require.True(t, strings.HasPrefix(string(data), "-----BEGIN MACPGP BACKUP-----\n"))

	meta, keyData, err := container.Decode(data)
	require.NoError(t, err)
	require.Equal(t, 2, meta.KeyCount)
	require.Equal(t, []string{alice.Fingerprint, bob.Fingerprint}, meta.KeyFingerprints)
	require.Equal(t, container.EncryptionNone, meta.Encryption)
	require.Equal(t, "laptop backup", meta.Metadata.Name)
	require.NotEmpty(t, keyData)
}

func TestRunEncrypted(t *testing.T) {
	ctx := testlogging.Context(t)

	alice := newTestKey(t, "Alice", "alice@example.com", 0)
	st := newTestStore(t, alice)

	outPath := filepath.Join(t.TempDir(), "keys.macpgp")

	result, err := backup.Run(ctx, backup.Deps{Store: st}, backup.Options{
		Keys:       []string{alice.Fingerprint},
		OutputPath: outPath,
		Passphrase: "correct horse",
	})
	require.NoError(t, err)
	require.True(t, result.Encrypted)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)

	// The file is a binary envelope, not a text container.
	require.True(t, crypto.IsEncrypted(data))
	require.True(t, strings.HasPrefix(string(data), "MACPGPE1"))

	plaintext, err := crypto.DecryptWithPassphrase(data, "correct horse")
	require.NoError(t, err)

	meta, _, err := container.Decode(plaintext)
	require.NoError(t, err)
	require.Equal(t, 1, meta.KeyCount)
	require.Equal(t, container.EncryptionAES256GCM, meta.Encryption)
}

func TestRunProgressSequence(t *testing.T) {
	ctx := testlogging.Context(t)

	alice := newTestKey(t, "Alice", "alice@example.com", 0)
	st := newTestStore(t, alice)

	cases := []struct {
		name       string
		passphrase string
	}{
		{"Unencrypted", ""},
		{"Encrypted", "correct horse"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var reports []string

			_, err := backup.Run(ctx, backup.Deps{Store: st}, backup.Options{
				Keys:       []string{alice.Fingerprint},
				OutputPath: filepath.Join(t.TempDir(), "keys.macpgp"),
				Passphrase: tc.passphrase,
				Progress: func(stage backup.Stage, fraction float64) {
					reports = append(reports, fmt.Sprintf("%v:%v", stage, fraction))
				},
			})
			require.NoError(t, err)

			// Every stage reports once, in order, whether or not
			// protection was requested.
			require.Equal(t, []string{
				"gather:0.2",
				"export:0.4",
				"package:0.6",
				"protect:0.8",
				"commit:1",
			}, reports)
		})
	}
}

func TestRunInputErrors(t *testing.T) {
	ctx := testlogging.Context(t)

	alice := newTestKey(t, "Alice", "alice@example.com", 0)
	st := newTestStore(t, alice)

	t.Run("NoKeysSelected", func(t *testing.T) {
		_, err := backup.Run(ctx, backup.Deps{Store: st}, backup.Options{
			OutputPath: filepath.Join(t.TempDir(), "keys.macpgp"),
		})
		require.ErrorIs(t, err, backup.ErrNoKeysSelected)
	})

	t.Run("MissingOutputPath", func(t *testing.T) {
		_, err := backup.Run(ctx, backup.Deps{Store: st}, backup.Options{
			Keys: []string{alice.Fingerprint},
		})
		require.Error(t, err)
	})

	t.Run("UnknownKey", func(t *testing.T) {
		outPath := filepath.Join(t.TempDir(), "keys.macpgp")

		_, err := backup.Run(ctx, backup.Deps{Store: st}, backup.Options{
			Keys:       []string{alice.Fingerprint, "nobody@example.com"},
			OutputPath: outPath,
		})
		require.ErrorIs(t, err, keystore.ErrKeyNotFound)

		// All-or-nothing: nothing was written.
		_, err = os.Stat(outPath)
		require.True(t, os.IsNotExist(err))
	})
}

func TestRunCollapsesDuplicateSelection(t *testing.T) {
	ctx := testlogging.Context(t)

	alice := newTestKey(t, "Alice", "alice@example.com", 0)
	st := newTestStore(t, alice)

	result, err := backup.Run(ctx, backup.Deps{Store: st}, backup.Options{
		Keys:       []string{alice.Fingerprint, "alice@example.com"},
		OutputPath: filepath.Join(t.TempDir(), "keys.macpgp"),
	})
	require.NoError(t, err)
	require.Equal(t, 1, result.KeyCount)
	require.Equal(t, []string{alice.Fingerprint}, result.Fingerprints)
}

func TestRunCommitFailureLeavesNoFile(t *testing.T) {
	ctx := testlogging.Context(t)

	alice := newTestKey(t, "Alice", "alice@example.com", 0)
	st := newTestStore(t, alice)

	outPath := filepath.Join(t.TempDir(), "no-such-dir", "keys.macpgp")

	_, err := backup.Run(ctx, backup.Deps{Store: st}, backup.Options{
		Keys:       []string{alice.Fingerprint},
		OutputPath: outPath,
	})
	require.Error(t, err)

	_, err = os.Stat(outPath)
	require.True(t, os.IsNotExist(err))
}

func TestRunOnComplete(t *testing.T) {
	ctx := testlogging.Context(t)

	alice := newTestKey(t, "Alice", "alice@example.com", 0)
	st := newTestStore(t, alice)

	var completed *backup.Result

	result, err := backup.Run(ctx, backup.Deps{Store: st}, backup.Options{
		Keys:       []string{alice.Fingerprint},
		OutputPath: filepath.Join(t.TempDir(), "keys.macpgp"),
		OnComplete: func(_ context.Context, r *backup.Result) {
			completed = r
		},
	})
	require.NoError(t, err)
	require.Same(t, result, completed)
}

func TestRunFixedCreationTime(t *testing.T) {
	ctx := testlogging.Context(t)

	alice := newTestKey(t, "Alice", "alice@example.com", 0)
	st := newTestStore(t, alice)

	fixed := time.Date(2025, 11, 7, 16, 21, 9, 0, time.UTC)
	outPath := filepath.Join(t.TempDir(), "keys.macpgp")

	result, err := backup.Run(ctx, backup.Deps{Store: st}, backup.Options{
		Keys:       []string{alice.Fingerprint},
		OutputPath: outPath,
		NowFunc:    faketime.Frozen(fixed),
	})
	require.NoError(t, err)
	require.Equal(t, fixed, result.CreatedAt)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)

	meta, _, err := container.Decode(data)
	require.NoError(t, err)
	require.Equal(t, fixed, meta.CreatedAt)
}

func TestRunAssignsFreshBackupID(t *testing.T) {
	ctx := testlogging.Context(t)

	alice := newTestKey(t, "Alice", "alice@example.com", 0)
	st := newTestStore(t, alice)

	start := time.Date(2025, 11, 7, 16, 21, 9, 0, time.UTC)
	now := faketime.AutoAdvance(start, time.Minute)
	dir := t.TempDir()

	var results []*backup.Result

	for _, name := range []string{"first.macpgp", "second.macpgp"} {
		r, err := backup.Run(ctx, backup.Deps{Store: st}, backup.Options{
			Keys:       []string{alice.Fingerprint},
			OutputPath: filepath.Join(dir, name),
			NowFunc:    now,
		})
		require.NoError(t, err)

		results = append(results, r)
	}

	require.NotEmpty(t, results[0].BackupID)
	require.NotEqual(t, results[0].BackupID, results[1].BackupID)
	require.Equal(t, start, results[0].CreatedAt)
	require.Equal(t, start.Add(time.Minute), results[1].CreatedAt)
}

// newTestKey generates a key with a deterministic creation time offset so
// store listing order is stable across tests.
func newTestKey(t *testing.T, name, email string, offset time.Duration) *keystore.Key {
	t.Helper()

	k, err := keystore.Generate(name, email)
	require.NoError(t, err)

	k.CreatedAt = time.Date(2025, 11, 7, 12, 0, 0, 0, time.UTC).Add(offset)

	return k
}

func newTestStore(t *testing.T, keys ...*keystore.Key) *keystore.Dir {
	t.Helper()

	ctx := testlogging.Context(t)

	st, err := keystore.OpenDir(ctx, t.TempDir())
	require.NoError(t, err)

	for _, k := range keys {
		require.NoError(t, st.Add(ctx, k))
	}

	return st
}

func createBackup(t *testing.T, st keystore.Store, passphrase string, ids ...string) string {
	t.Helper()

	ctx := testlogging.Context(t)
	outPath := filepath.Join(t.TempDir(), "keys.macpgp")

	_, err := backup.Run(ctx, backup.Deps{Store: st}, backup.Options{
		Keys:       ids,
		OutputPath: outPath,
		Passphrase: passphrase,
	})
	require.NoError(t, err)

	return outPath
}

func reopenStore(t *testing.T, d *keystore.Dir) *keystore.Dir {
	t.Helper()

	reopened, err := keystore.OpenDir(testlogging.Context(t), d.Path())
	require.NoError(t, err)

	return reopened
}

func mustListKeys(t *testing.T, st keystore.Store) []*keystore.Key {
	t.Helper()

	keys, err := st.List(testlogging.Context(t))
	require.NoError(t, err)

	return keys
}

func writeTempFile(t *testing.T, data []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "file.macpgp")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	return path
}
