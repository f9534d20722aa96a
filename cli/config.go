package cli

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/macpgp/macpgp/backup"
	"github.com/macpgp/macpgp/internal/atomicfile"
	"github.com/macpgp/macpgp/internal/clock"
)

// Config is the persisted CLI configuration. A missing config file is not an
// error; defaults apply.
type Config struct {
	KeyStorePath    string `json:"keyStorePath,omitempty"`
	PassphraseVault string `json:"passphraseVault,omitempty"`
}

func loadConfig(fname string) (*Config, error) {
	b, err := os.ReadFile(fname) //nolint:gosec
	if err != nil {
		return nil, errors.Wrap(err, "unable to read config file")
	}

	var cfg Config
	if err := json.Unmarshal(b, &cfg); err != nil {
		return nil, errors.Wrapf(err, "invalid config file %v", fname)
	}

	return &cfg, nil
}

// lastBackupRecord is written next to the config file when a backup
// completes and read back by 'macpgp status'.
type lastBackupRecord struct {
	LastBackupTime time.Time `json:"lastBackupTime"`
	Path           string    `json:"path"`
	KeyCount       int       `json:"keyCount"`
	BackupID       string    `json:"backupId"`
}

func (c *App) lastBackupFileName() string {
	return c.configFileName() + ".last-backup"
}

// recordLastBackup remembers the completed backup. Failure to write the
// record is logged, not fatal; the backup itself already succeeded.
func (c *App) recordLastBackup(ctx context.Context, result *backup.Result) {
	rec := &lastBackupRecord{
		LastBackupTime: clock.Now().UTC(),
		Path:           result.Path,
		KeyCount:       result.KeyCount,
		BackupID:       result.BackupID,
	}

	b, err := json.Marshal(rec)
	if err != nil {
		log(ctx).Warnf("unable to serialize last-backup record: %v", err)
		return
	}

	fname := c.lastBackupFileName()

	if err := os.MkdirAll(filepath.Dir(fname), 0o700); err != nil {
		log(ctx).Warnf("unable to create config directory: %v", err)
		return
	}

	if err := atomicfile.WriteBytes(fname, b); err != nil {
		log(ctx).Warnf("unable to write last-backup record: %v", err)
	}
}

func (c *App) readLastBackup() (*lastBackupRecord, error) {
	b, err := os.ReadFile(c.lastBackupFileName()) //nolint:gosec
	if err != nil {
		return nil, errors.Wrap(err, "unable to read last-backup record")
	}

	var rec lastBackupRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return nil, errors.Wrap(err, "invalid last-backup record")
	}

	return &rec, nil
}
