package keystore_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/macpgp/macpgp/internal/testlogging"
	"github.com/macpgp/macpgp/keystore"
)

func TestOpenDirEmpty(t *testing.T) {
	ctx := testlogging.Context(t)

	d, err := keystore.OpenDir(ctx, t.TempDir())
	require.NoError(t, err)
	require.Empty(t, mustList(t, d))
}

func TestListOrder(t *testing.T) {
	ctx := testlogging.Context(t)

	d, err := keystore.OpenDir(ctx, t.TempDir())
	require.NoError(t, err)

	base := time.Date(2025, 11, 7, 16, 21, 9, 0, time.UTC)

	newest := mustGenerate(t, "Newest", "newest@example.com")
	newest.CreatedAt = base.Add(2 * time.Hour)
	oldest := mustGenerate(t, "Oldest", "oldest@example.com")
	oldest.CreatedAt = base
	middle := mustGenerate(t, "Middle", "middle@example.com")
	middle.CreatedAt = base.Add(time.Hour)

	for _, k := range []*keystore.Key{newest, oldest, middle} {
		require.NoError(t, d.Add(ctx, k))
	}

	var names []string
	for _, k := range mustList(t, d) {
		names = append(names, k.Name)
	}

	require.Equal(t, []string{"Oldest", "Middle", "Newest"}, names)
}

func TestFind(t *testing.T) {
	ctx := testlogging.Context(t)

	d, err := keystore.OpenDir(ctx, t.TempDir())
	require.NoError(t, err)

	alice := mustGenerate(t, "Alice", "alice@example.com")
	bob := mustGenerate(t, "Bob", "bob@example.com")
	require.NoError(t, d.Add(ctx, alice))
	require.NoError(t, d.Add(ctx, bob))

	t.Run("ExactFingerprint", func(t *testing.T) {
		got, err := d.Find(ctx, alice.Fingerprint)
		require.NoError(t, err)
		require.Equal(t, alice.Fingerprint, got.Fingerprint)
	})

	t.Run("FingerprintCaseInsensitive", func(t *testing.T) {
		got, err := d.Find(ctx, strings.ToUpper(alice.Fingerprint))
		require.NoError(t, err)
		require.Equal(t, alice.Fingerprint, got.Fingerprint)
	})

	t.Run("FingerprintPrefix", func(t *testing.T) {
		got, err := d.Find(ctx, bob.Fingerprint[0:12])
		require.NoError(t, err)
		require.Equal(t, bob.Fingerprint, got.Fingerprint)
	})

	t.Run("PrefixTooShort", func(t *testing.T) {
		_, err := d.Find(ctx, alice.Fingerprint[0:6])
		require.ErrorIs(t, err, keystore.ErrKeyNotFound)
	})

	t.Run("Email", func(t *testing.T) {
		got, err := d.Find(ctx, "Alice@Example.COM")
		require.NoError(t, err)
		require.Equal(t, alice.Fingerprint, got.Fingerprint)
	})

	t.Run("Unknown", func(t *testing.T) {
		_, err := d.Find(ctx, "nobody@example.com")
		require.ErrorIs(t, err, keystore.ErrKeyNotFound)
	})

	t.Run("Empty", func(t *testing.T) {
		_, err := d.Find(ctx, "  ")
		require.ErrorIs(t, err, keystore.ErrKeyNotFound)
	})

	t.Run("AmbiguousEmail", func(t *testing.T) {
		second := mustGenerate(t, "Alice Backup", "alice@example.com")
		require.NoError(t, d.Add(ctx, second))

		_, err := d.Find(ctx, "alice@example.com")
		require.ErrorIs(t, err, keystore.ErrAmbiguousIdentifier)
	})
}

func TestAddDuplicate(t *testing.T) {
	ctx := testlogging.Context(t)

	d, err := keystore.OpenDir(ctx, t.TempDir())
	require.NoError(t, err)

	k := mustGenerate(t, "Alice", "alice@example.com")
	require.NoError(t, d.Add(ctx, k))
	require.ErrorIs(t, d.Add(ctx, k), keystore.ErrKeyAlreadyExists)
}

func TestPersistAndReload(t *testing.T) {
	ctx := testlogging.Context(t)
	dir := t.TempDir()

	d, err := keystore.OpenDir(ctx, dir)
	require.NoError(t, err)

	plain := mustGenerate(t, "Plain", "plain@example.com")
	sealed := mustGenerate(t, "Sealed", "sealed@example.com")
	require.NoError(t, sealed.Protect("store passphrase"))

	require.NoError(t, d.Add(ctx, plain))
	require.NoError(t, d.Add(ctx, sealed))
	require.NoError(t, d.Persist(ctx))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	var keyFiles int
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".key" {
			keyFiles++
		}
	}
	require.Equal(t, 2, keyFiles)

	reopened, err := keystore.OpenDir(ctx, dir)
	require.NoError(t, err)
	require.Len(t, mustList(t, reopened), 2)

	gotPlain, err := reopened.Find(ctx, plain.Fingerprint)
	require.NoError(t, err)
	require.True(t, gotPlain.HasSecret())
	require.False(t, gotPlain.Locked())

	gotSealed, err := reopened.Find(ctx, sealed.Fingerprint)
	require.NoError(t, err)
	require.True(t, gotSealed.Locked())

	unlocked, err := gotSealed.Unlock("store passphrase")
	require.NoError(t, err)
	require.False(t, unlocked.Locked())
}

func TestOpenDirRejectsCorruptKeyFile(t *testing.T) {
	ctx := testlogging.Context(t)
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "bogus.key"), []byte("not a key"), 0o600))

	_, err := keystore.OpenDir(ctx, dir)
	require.ErrorIs(t, err, keystore.ErrInvalidKey)
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := testlogging.Context(t)

	src, err := keystore.OpenDir(ctx, t.TempDir())
	require.NoError(t, err)

	alice := mustGenerate(t, "Alice", "alice@example.com")
	bob := mustGenerate(t, "Bob", "bob@example.com")
	require.NoError(t, src.Add(ctx, alice))
	require.NoError(t, src.Add(ctx, bob))

	aliceArmored, err := src.ExportArmored(ctx, alice, true)
	require.NoError(t, err)
	bobArmored, err := src.ExportArmored(ctx, bob, true)
	require.NoError(t, err)

	combined := append(append([]byte{}, aliceArmored...), bobArmored...)

	dst, err := keystore.OpenDir(ctx, t.TempDir())
	require.NoError(t, err)

	added, err := dst.ImportArmored(ctx, combined)
	require.NoError(t, err)
	require.Equal(t, []string{alice.Fingerprint, bob.Fingerprint}, added)

	got, err := dst.Find(ctx, alice.Fingerprint)
	require.NoError(t, err)
	require.True(t, got.HasSecret())
	require.Equal(t, "Alice", got.Name)

	// Importing the same material again adds nothing.
	added, err = dst.ImportArmored(ctx, combined)
	require.NoError(t, err)
	require.Empty(t, added)
	require.Len(t, mustList(t, dst), 2)
}

func TestExportPublicOnly(t *testing.T) {
	ctx := testlogging.Context(t)

	src, err := keystore.OpenDir(ctx, t.TempDir())
	require.NoError(t, err)

	alice := mustGenerate(t, "Alice", "alice@example.com")
	require.NoError(t, src.Add(ctx, alice))

	armored, err := src.ExportArmored(ctx, alice, false)
	require.NoError(t, err)
	require.Contains(t, string(armored), "MACPGP PUBLIC KEY BLOCK")
	require.NotContains(t, string(armored), "MACPGP SECRET KEY BLOCK")

	dst, err := keystore.OpenDir(ctx, t.TempDir())
	require.NoError(t, err)

	_, err = dst.ImportArmored(ctx, armored)
	require.NoError(t, err)

	got, err := dst.Find(ctx, alice.Fingerprint)
	require.NoError(t, err)
	require.False(t, got.HasSecret())

	// A public-only copy still encrypts to the key.
	_, err = got.EncryptMessage([]byte("for alice"))
	require.NoError(t, err)
}

func TestExportedSealedKeyStaysSealed(t *testing.T) {
	ctx := testlogging.Context(t)

	src, err := keystore.OpenDir(ctx, t.TempDir())
	require.NoError(t, err)

	k := mustGenerate(t, "Sealed", "sealed@example.com")
	require.NoError(t, k.Protect("travel pass"))
	require.NoError(t, src.Add(ctx, k))

	armored, err := src.ExportArmored(ctx, k, true)
	require.NoError(t, err)

	dst, err := keystore.OpenDir(ctx, t.TempDir())
	require.NoError(t, err)

	_, err = dst.ImportArmored(ctx, armored)
	require.NoError(t, err)

	got, err := dst.Find(ctx, k.Fingerprint)
	require.NoError(t, err)
	require.True(t, got.Locked())

	unlocked, err := got.Unlock("travel pass")
	require.NoError(t, err)
	require.True(t, unlocked.HasSecret())
}

func TestImportArmoredRejectsGarbage(t *testing.T) {
	ctx := testlogging.Context(t)

	d, err := keystore.OpenDir(ctx, t.TempDir())
	require.NoError(t, err)

	cases := []struct {
		name string
		data string
	}{
		{"Empty", ""},
		{"NotPEM", "hello world"},
		{"ForeignBlockType", "-----BEGIN CERTIFICATE-----\nAAAA\n-----END CERTIFICATE-----\n"},
		{"GarbageRecord", "-----BEGIN MACPGP PUBLIC KEY BLOCK-----\nAAAA\n-----END MACPGP PUBLIC KEY BLOCK-----\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := d.ImportArmored(ctx, []byte(tc.data))
			require.ErrorIs(t, err, keystore.ErrInvalidKey)
		})
	}
}

func mustGenerate(t *testing.T, name, email string) *keystore.Key {
	t.Helper()

	k, err := keystore.Generate(name, email)
	require.NoError(t, err)

	return k
}

func mustList(t *testing.T, d *keystore.Dir) []*keystore.Key {
	t.Helper()

	keys, err := d.List(testlogging.Context(t))
	require.NoError(t, err)

	return keys
}
