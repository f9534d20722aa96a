package crypto_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/macpgp/macpgp/internal/crypto"
)

func TestEncryptWithPassphraseRoundTrip(t *testing.T) {
	cases := []struct {
		name    string
		payload []byte
	}{
		{"Empty", []byte{}},
		{"Short", []byte("hello")},
		{"Text", []byte("-----BEGIN MACPGP BACKUP-----\nsome container text\n-----END MACPGP BACKUP-----\n")},
		{"Binary", bytes.Repeat([]byte{0, 1, 2, 0xFF}, 1000)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env, err := crypto.EncryptWithPassphrase(tc.payload, "correct horse")
			require.NoError(t, err)
			require.True(t, crypto.IsEncrypted(env))

			got, err := crypto.DecryptWithPassphrase(env, "correct horse")
			require.NoError(t, err)
			require.Equal(t, tc.payload, got)
		})
	}
}

func TestEncryptWithPassphraseNeverRepeats(t *testing.T) {
	payload := []byte("identical payload")

	env1, err := crypto.EncryptWithPassphrase(payload, "same passphrase")
	require.NoError(t, err)

	env2, err := crypto.EncryptWithPassphrase(payload, "same passphrase")
	require.NoError(t, err)

	require.NotEqual(t, env1, env2)

	// The embedded salts must differ too, not just the sealed bytes.
	salt1 := env1[len(crypto.FormatMarker) : len(crypto.FormatMarker)+crypto.SaltLength]
	salt2 := env2[len(crypto.FormatMarker) : len(crypto.FormatMarker)+crypto.SaltLength]
	require.NotEqual(t, salt1, salt2)
}

func TestDecryptWithPassphraseErrors(t *testing.T) {
	env, err := crypto.EncryptWithPassphrase([]byte("payload"), "correct horse")
	require.NoError(t, err)

	t.Run("WrongPassphrase", func(t *testing.T) {
		_, err := crypto.DecryptWithPassphrase(env, "wrong horse")
		require.ErrorIs(t, err, crypto.ErrInvalidPassphrase)
	})

	t.Run("EmptyPassphrase", func(t *testing.T) {
		_, err := crypto.DecryptWithPassphrase(env, "")
		require.ErrorIs(t, err, crypto.ErrPassphraseRequired)
	})

	t.Run("MissingMarker", func(t *testing.T) {
		_, err := crypto.DecryptWithPassphrase([]byte("not an envelope at all"), "correct horse")
		require.ErrorIs(t, err, crypto.ErrUnrecognizedFormat)
	})

	t.Run("TruncatedAfterMarker", func(t *testing.T) {
		_, err := crypto.DecryptWithPassphrase([]byte(crypto.FormatMarker+"shortsalt"), "correct horse")
		require.ErrorIs(t, err, crypto.ErrUnrecognizedFormat)
	})

	t.Run("EmptyInput", func(t *testing.T) {
		_, err := crypto.DecryptWithPassphrase(nil, "correct horse")
		require.ErrorIs(t, err, crypto.ErrUnrecognizedFormat)
	})
}

func TestDecryptWithPassphraseDetectsTampering(t *testing.T) {
	env, err := crypto.EncryptWithPassphrase([]byte("tamper detection payload"), "correct horse")
	require.NoError(t, err)

	// Flipping any byte past the marker must fail authentication, never
	// produce wrong plaintext.
	for i := len(crypto.FormatMarker); i < len(env); i++ {
		corrupted := append([]byte(nil), env...)
		corrupted[i] ^= 0x01

		_, err := crypto.DecryptWithPassphrase(corrupted, "correct horse")
		require.ErrorIsf(t, err, crypto.ErrInvalidPassphrase, "byte %v", i)
	}

	// Flipping a marker byte is a format error, reported before any
	// cryptographic work.
	corrupted := append([]byte(nil), env...)
	corrupted[0] ^= 0x01

	_, err = crypto.DecryptWithPassphrase(corrupted, "correct horse")
	require.ErrorIs(t, err, crypto.ErrUnrecognizedFormat)
}

func TestIsEncrypted(t *testing.T) {
	env, err := crypto.EncryptWithPassphrase([]byte("payload"), "pass")
	require.NoError(t, err)

	cases := []struct {
		name string
		data []byte
		want bool
	}{
		{"Envelope", env, true},
		{"BareMarker", []byte(crypto.FormatMarker), true},
		{"PlaintextContainer", []byte("-----BEGIN MACPGP BACKUP-----\n"), false},
		{"Empty", nil, false},
		{"ShorterThanMarker", []byte("MACP"), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			// Detection is a pure function of the leading bytes; repeated
			// calls must agree.
			require.Equal(t, tc.want, crypto.IsEncrypted(tc.data))
			require.Equal(t, tc.want, crypto.IsEncrypted(tc.data))
		})
	}
}
