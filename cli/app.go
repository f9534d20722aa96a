// Package cli implements the macpgp command-line interface.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/alecthomas/kingpin/v2"
	"github.com/fatih/color"
	"github.com/mattn/go-colorable"
	"github.com/pkg/errors"
	"go.uber.org/zap/zapcore"

	"github.com/macpgp/macpgp/backup"
	"github.com/macpgp/macpgp/internal/credvault"
	"github.com/macpgp/macpgp/internal/ospath"
	"github.com/macpgp/macpgp/keystore"
	"github.com/macpgp/macpgp/logging"
)

var log = logging.Module("cli")

// BuildVersion is the macpgp version, overridden by the linker in release
// builds.
var BuildVersion = "v0-unofficial" //nolint:gochecknoglobals

type commandParent interface {
	Command(name, help string) *kingpin.CmdClause
}

// appServices are the methods of *App that command setup methods consume.
type appServices interface {
	noStoreAction(act func(ctx context.Context) error) func(ctx *kingpin.ParseContext) error
	storeAction(act func(ctx context.Context, st keystore.Store) error) func(ctx *kingpin.ParseContext) error

	stdin() io.Reader
	stdout() io.Writer
	stderr() io.Writer

	configFileName() string
	keystoreDirectory() string
	passphraseVault() credvault.Vault
	passphraseVaultName() string

	recordLastBackup(ctx context.Context, result *backup.Result)
	readLastBackup() (*lastBackupRecord, error)

	askPass(prompt string) (string, error)
	askNewPassphrase(prompt string) (string, error)
	confirm(prompt string) bool

	EnvName(s string) string
}

// App contains the state of the CLI app: global flags, subcommands and the
// I/O streams everything prints to.
type App struct {
	configPath  string
	keystoreDir string
	vaultType   string
	logLevel    string

	backup     commandBackup
	key        commandKey
	encrypt    commandEncrypt
	decrypt    commandDecrypt
	passphrase commandPassphrase
	status     commandStatus

	stdinReader     io.Reader
	stdinBuffered   *bufio.Reader
	stdoutWriter    io.Writer
	stderrWriter    io.Writer
	rootctx         context.Context
	exitWithError   func(err error)
	isInProcessTest bool
	envNamePrefix   string
}

var _ appServices = (*App)(nil)

// NewApp creates an App bound to the process streams. RunSubcommand rebinds
// them for in-process tests.
func NewApp() *App {
	c := &App{
		stdinReader:  os.Stdin,
		stdoutWriter: colorable.NewColorableStdout(),
		stderrWriter: colorable.NewColorableStderr(),
		rootctx:      context.Background(),
	}

	c.exitWithError = func(err error) {
		if err != nil {
			fmt.Fprintf(c.stderrWriter, "%v\n", color.RedString("ERROR: %v", err)) //nolint:errcheck
		}

		os.Exit(1)
	}

	return c
}

// Attach registers global flags and all subcommands on the kingpin app.
func (c *App) Attach(app *kingpin.Application) {
	app.Flag("config-file", "Path to the configuration file").
		Envar(c.EnvName("MACPGP_CONFIG_FILE")).
		StringVar(&c.configPath)

	app.Flag("keystore", "Directory holding the key store").
		Envar(c.EnvName("MACPGP_KEYSTORE")).
		StringVar(&c.keystoreDir)

	app.Flag("passphrase-vault", "Where cached key passphrases are persisted").
		Envar(c.EnvName("MACPGP_PASSPHRASE_VAULT")).
		Default("keyring").
		EnumVar(&c.vaultType, "keyring", "file", "none")

	app.Flag("log-level", "Console log level").
		Envar(c.EnvName("MACPGP_LOG_LEVEL")).
		Default("warning").
		EnumVar(&c.logLevel, "debug", "info", "warning", "error")

	c.backup.setup(c, app)
	c.key.setup(c, app)
	c.encrypt.setup(c, app)
	c.decrypt.setup(c, app)
	c.passphrase.setup(c, app)
	c.status.setup(c, app)
}

// EnvName returns the environment variable name bound to a flag.
func (c *App) EnvName(s string) string {
	return c.envNamePrefix + s
}

// SetEnvNamePrefixForTesting prefixes all environment variable names, so
// concurrent tests do not observe each other's values.
func (c *App) SetEnvNamePrefixForTesting(prefix string) {
	c.envNamePrefix = prefix
}

func (c *App) stdin() io.Reader {
	return c.stdinReader
}

func (c *App) stdout() io.Writer {
	return c.stdoutWriter
}

func (c *App) stderr() io.Writer {
	return c.stderrWriter
}

func (c *App) noStoreAction(act func(ctx context.Context) error) func(ctx *kingpin.ParseContext) error {
	return func(_ *kingpin.ParseContext) error {
		ctx := c.rootContext()

		if err := act(ctx); err != nil {
			c.exitWithError(err)
		}

		return nil
	}
}

func (c *App) storeAction(act func(ctx context.Context, st keystore.Store) error) func(ctx *kingpin.ParseContext) error {
	return c.noStoreAction(func(ctx context.Context) error {
		st, err := keystore.OpenDir(ctx, c.keystoreDirectory())
		if err != nil {
			return errors.Wrap(err, "unable to open key store")
		}

		return act(ctx, st)
	})
}

// rootContext attaches the console logger honoring --log-level.
func (c *App) rootContext() context.Context {
	return logging.WithLogger(c.rootctx, logging.ToWriterLeveled(c.stderrWriter, c.consoleLevel()))
}

func (c *App) consoleLevel() zapcore.Level {
	switch c.logLevel {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.WarnLevel
	}
}

// configFileName resolves the config file path, defaulting to
// macpgp.config in the per-user config directory.
func (c *App) configFileName() string {
	if c.configPath != "" {
		return ospath.ResolveUserFriendlyPath(c.configPath, false)
	}

	return filepath.Join(ospath.ConfigDir(), "macpgp.config")
}

func (c *App) keystoreDirectory() string {
	if c.keystoreDir != "" {
		return ospath.ResolveUserFriendlyPath(c.keystoreDir, false)
	}

	if cfg, err := loadConfig(c.configFileName()); err == nil && cfg.KeyStorePath != "" {
		return cfg.KeyStorePath
	}

	return filepath.Join(filepath.Dir(c.configFileName()), "keystore")
}

// passphraseVaultName resolves the vault choice from the flag and the config
// file.
func (c *App) passphraseVaultName() string {
	if cfg, err := loadConfig(c.configFileName()); err == nil && cfg.PassphraseVault != "" && c.vaultType == "keyring" {
		// An explicit flag or envar wins over the config file; the config
		// only fills in when the flag is at its default.
		return cfg.PassphraseVault
	}

	return c.vaultType
}

func (c *App) vaultDirectory() string {
	return filepath.Join(filepath.Dir(c.configFileName()), "vault")
}

func (c *App) passphraseVault() credvault.Vault {
	switch c.passphraseVaultName() {
	case "file":
		return credvault.NewFile(c.vaultDirectory())
	case "none":
		return credvault.None()
	default:
		return credvault.Multiple{
			credvault.Keyring(),
			credvault.NewFile(c.vaultDirectory()),
		}
	}
}
