package backup

import (
	"context"
	"os"

	"github.com/pkg/errors"

	"github.com/macpgp/macpgp/container"
	"github.com/macpgp/macpgp/internal/crypto"
	"github.com/macpgp/macpgp/keystore"
)

// State identifies the restore session's position in its lifecycle.
type State string

// Restore session states.
const (
	StateFileSelected       State = "fileSelected"
	StateAwaitingPassphrase State = "awaitingPassphrase"
	StateValidated          State = "validated"
	StateConfirmed          State = "confirmed"
	StateCompleted          State = "completed"
)

// ErrNotValidated is returned when Confirm is called before a container was
// successfully validated.
var ErrNotValidated = errors.New("backup file not validated")

// ErrInvalidTransition is returned when a session method is called from a
// state it does not accept.
var ErrInvalidTransition = errors.New("invalid session transition")

// Preview carries what is knowable about a backup file at the session's
// current state. Before an encrypted file is decrypted only the encryption
// flag is known and KeyCount is -1.
type Preview struct {
	Path         string              `json:"path"`
	Encrypted    bool                `json:"encrypted"`
	KeyCount     int                 `json:"keyCount"`
	Fingerprints []string            `json:"fingerprints,omitempty"`
	Metadata     *container.Metadata `json:"metadata,omitempty"`
}

// RestoreResult reports how many keys a completed restore imported.
type RestoreResult struct {
	Imported     int      `json:"imported"`
	Total        int      `json:"total"`
	Fingerprints []string `json:"fingerprints,omitempty"`
}

// Session is the restore state machine. Password entry may be required
// mid-flow, so the caller drives it through explicit transitions:
//
//	FileSelected -> Validated | AwaitingPassphrase -> Validated -> Confirmed -> Completed
//
// A failed transition records the error and leaves the state unchanged;
// there is no implicit retry. Sessions are single-use and not safe for
// concurrent use.
type Session struct {
	store keystore.Store

	state      State
	path       string
	ciphertext []byte
	meta       *container.Metadata
	keyData    []byte
	lastErr    error
}

// NewSession returns a session ready for Validate.
func NewSession(st keystore.Store) *Session {
	return &Session{
		store: st,
		state: StateFileSelected,
	}
}

// State returns the session's current state.
func (s *Session) State() State {
	return s.state
}

// LastError returns the error recorded by the most recent failed transition.
func (s *Session) LastError() error {
	return s.lastErr
}

// Validate reads the selected file and classifies it. Encrypted envelopes
// move the session to AwaitingPassphrase without parsing metadata, since the
// metadata is inside the ciphertext. Plaintext containers are decoded
// immediately and move the session to Validated.
func (s *Session) Validate(ctx context.Context, path string) (*Preview, error) {
	if s.state != StateFileSelected {
		return nil, errors.Wrapf(ErrInvalidTransition, "validate in state %v", s.state)
	}

	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return nil, s.fail(errors.Wrapf(err, "unable to read %v", path))
	}

	s.path = path

	if crypto.IsEncrypted(data) {
		s.ciphertext = data
		s.state = StateAwaitingPassphrase

		log(ctx).Debugw("selected encrypted backup", "path", path, "size", len(data))

		return &Preview{
			Path:      path,
			Encrypted: true,
			KeyCount:  -1,
		}, nil
	}

	meta, keyData, err := container.Decode(data)
	if err != nil {
		return nil, s.fail(err)
	}

	s.meta = meta
	s.keyData = keyData
	s.state = StateValidated

	log(ctx).Debugw("validated backup", "path", path, "keys", meta.KeyCount)

	return s.preview(), nil
}

// ProvidePassphrase decrypts the envelope and decodes the container inside.
// A decrypt or decode failure leaves the session awaiting a passphrase so
// the caller can retry with a different one.
func (s *Session) ProvidePassphrase(ctx context.Context, passphrase string) (*Preview, error) {
	if s.state != StateAwaitingPassphrase {
		return nil, errors.Wrapf(ErrInvalidTransition, "passphrase in state %v", s.state)
	}

	plaintext, err := crypto.DecryptWithPassphrase(s.ciphertext, passphrase)
	if err != nil {
		return nil, s.fail(err)
	}

	meta, keyData, err := container.Decode(plaintext)
	if err != nil {
		return nil, s.fail(errors.Wrap(err, "decrypted payload is not a valid backup"))
	}

	s.meta = meta
	s.keyData = keyData
	s.state = StateValidated

	log(ctx).Debugw("decrypted backup", "path", s.path, "keys", meta.KeyCount)

	return s.preview(), nil
}

// Confirm is the user-confirmation gate between validation and restore. It
// is rejected unless a container was successfully validated.
func (s *Session) Confirm() error {
	switch s.state {
	case StateConfirmed:
		return nil
	case StateValidated:
		s.state = StateConfirmed
		return nil
	default:
		return ErrNotValidated
	}
}

// Restore imports the validated key-data into the store and persists it.
// The count of keys actually imported may be lower than the container's key
// count when the store already holds some of them.
func (s *Session) Restore(ctx context.Context) (*RestoreResult, error) {
	if s.state != StateConfirmed {
		return nil, errors.Wrapf(ErrInvalidTransition, "restore in state %v", s.state)
	}

	added, err := s.store.ImportArmored(ctx, s.keyData)
	if err != nil {
		return nil, s.fail(errors.Wrap(err, "unable to import keys"))
	}

	if err := s.store.Persist(ctx); err != nil {
		return nil, s.fail(errors.Wrap(err, "unable to persist key store"))
	}

	s.state = StateCompleted

	result := &RestoreResult{
		Imported:     len(added),
		Total:        s.meta.KeyCount,
		Fingerprints: added,
	}

	log(ctx).Infow("restore completed",
		"path", s.path,
		"imported", result.Imported,
		"total", result.Total)

	return result, nil
}

func (s *Session) preview() *Preview {
	return &Preview{
		Path:         s.path,
		Encrypted:    crypto.IsEncrypted(s.ciphertext),
		KeyCount:     s.meta.KeyCount,
		Fingerprints: s.meta.KeyFingerprints,
		Metadata:     s.meta,
	}
}

// fail records the error without changing state.
func (s *Session) fail(err error) error {
	s.lastErr = err
	return err
}
