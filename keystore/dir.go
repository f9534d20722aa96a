package keystore

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	"github.com/pkg/errors"

	"github.com/macpgp/macpgp/internal/atomicfile"
)

const (
	keyFileSuffix = ".key"
	lockFileName  = ".lock"
)

// Dir is a Store backed by a directory holding one armored key file per
// key. All mutations happen in memory; Persist writes every key file
// atomically under a cross-process file lock.
type Dir struct {
	path string

	mu sync.Mutex
	// +checklocks:mu
	keys map[string]*Key
}

var _ Store = (*Dir)(nil)

// OpenDir opens or creates a directory-backed key store at the given path.
func OpenDir(ctx context.Context, path string) (*Dir, error) {
	if err := os.MkdirAll(path, 0o700); err != nil {
		return nil, errors.Wrapf(err, "unable to create keystore directory %v", path)
	}

	d := &Dir{
		path: path,
		keys: map[string]*Key{},
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read keystore directory %v", path)
	}

	for _, ent := range entries {
		if ent.IsDir() || !strings.HasSuffix(ent.Name(), keyFileSuffix) {
			continue
		}

		fname := filepath.Join(path, ent.Name())

		data, err := os.ReadFile(fname) //nolint:gosec
		if err != nil {
			return nil, errors.Wrapf(err, "unable to read key file %v", fname)
		}

		keys, err := parseArmoredKeys(data)
		if err != nil {
			return nil, errors.Wrapf(err, "corrupted key file %v", fname)
		}

		for _, k := range keys {
			d.keys[k.Fingerprint] = k
		}
	}

	log(ctx).Debugw("opened keystore", "path", path, "keys", len(d.keys))

	return d, nil
}

// Path returns the store's directory.
func (d *Dir) Path() string {
	return d.path
}

// List returns all keys ordered by creation time, then fingerprint.
func (d *Dir) List(ctx context.Context) ([]*Key, error) {
	_ = ctx

	d.mu.Lock()
	defer d.mu.Unlock()

	result := make([]*Key, 0, len(d.keys))
	for _, k := range d.keys {
		result = append(result, k)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}

		return result[i].Fingerprint < result[j].Fingerprint
	})

	return result, nil
}

// minPrefixLength is the shortest fingerprint prefix accepted by Find.
const minPrefixLength = 8

// Find resolves an identifier to a single key. Supported forms: the exact
// fingerprint, a unique fingerprint prefix of at least 8 characters, or an
// exact email address.
func (d *Dir) Find(ctx context.Context, identifier string) (*Key, error) {
	_ = ctx

	d.mu.Lock()
	defer d.mu.Unlock()

	id := strings.ToLower(strings.TrimSpace(identifier))
	if id == "" {
		return nil, errors.Wrap(ErrKeyNotFound, "empty identifier")
	}

	if k, ok := d.keys[id]; ok {
		return k, nil
	}

	var matches []*Key

	for _, k := range d.keys {
		if strings.EqualFold(k.Email, id) && k.Email != "" {
			matches = append(matches, k)
		}
	}

	if len(matches) == 0 && len(id) >= minPrefixLength {
		for fp, k := range d.keys {
			if strings.HasPrefix(fp, id) {
				matches = append(matches, k)
			}
		}
	}

	switch len(matches) {
	case 0:
		return nil, errors.Wrap(ErrKeyNotFound, identifier)
	case 1:
		return matches[0], nil
	default:
		return nil, errors.Wrap(ErrAmbiguousIdentifier, identifier)
	}
}

// Add registers a new key in memory. Persist makes it durable.
func (d *Dir) Add(ctx context.Context, key *Key) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.keys[key.Fingerprint]; ok {
		return errors.Wrap(ErrKeyAlreadyExists, key.Fingerprint)
	}

	d.keys[key.Fingerprint] = key

	log(ctx).Debugw("added key", "fingerprint", key.Fingerprint)

	return nil
}

// ExportArmored renders a key as an armored text block.
func (d *Dir) ExportArmored(ctx context.Context, key *Key, includeSecret bool) ([]byte, error) {
	log(ctx).Debugw("exporting key", "fingerprint", key.Fingerprint, "includeSecret", includeSecret)

	return armorKey(key, includeSecret)
}

// ImportArmored parses all armored key blocks in data and adds the ones not
// already present, returning the fingerprints actually added. A single
// malformed block fails the whole import before anything is added.
func (d *Dir) ImportArmored(ctx context.Context, data []byte) ([]string, error) {
	parsed, err := parseArmoredKeys(data)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	var added []string

	for _, k := range parsed {
		if _, ok := d.keys[k.Fingerprint]; ok {
			continue
		}

		d.keys[k.Fingerprint] = k
		added = append(added, k.Fingerprint)
	}

	log(ctx).Infow("imported keys", "added", len(added), "parsed", len(parsed))

	return added, nil
}

// Persist writes every key to its own file under the store directory. A
// file lock serializes persists across processes; writes within one file
// are atomic.
func (d *Dir) Persist(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	fl := flock.New(filepath.Join(d.path, lockFileName))

	if err := fl.Lock(); err != nil {
		return errors.Wrap(err, "unable to lock keystore")
	}

	defer fl.Unlock() //nolint:errcheck

	for fp, k := range d.keys {
		data, err := armorKey(k, true)
		if err != nil {
			return errors.Wrapf(err, "unable to serialize key %v", fp)
		}

		fname := filepath.Join(d.path, fp+keyFileSuffix)
		if err := atomicfile.WriteBytes(fname, data); err != nil {
			return errors.Wrapf(err, "unable to write key file %v", fname)
		}
	}

	log(ctx).Debugw("persisted keystore", "path", d.path, "keys", len(d.keys))

	return nil
}
