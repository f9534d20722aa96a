package cli_test

import (
	"bufio"
	"context"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/alecthomas/kingpin/v2"
	"github.com/stretchr/testify/require"

	"github.com/macpgp/macpgp/cli"
)

// cliTestEnv runs macpgp subcommands in-process against throwaway
// configuration and key store directories.
type cliTestEnv struct {
	configDir string
	storeDir  string

	nextStdin    io.Reader
	customizeApp func(a *cli.App, kpapp *kingpin.Application)
}

func newCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	dir := t.TempDir()

	return &cliTestEnv{
		configDir: dir,
		storeDir:  filepath.Join(dir, "keystore"),
	}
}

// setNextStdin provides the stdin for the next command, used by prompt
// tests.
func (e *cliTestEnv) setNextStdin(stdin io.Reader) {
	e.nextStdin = stdin
}

func (e *cliTestEnv) fixedArgs() []string {
	return []string{
		// per-test config file and key store, so tests never touch the
		// current user's setup or the OS keyring.
		"--config-file", filepath.Join(e.configDir, "macpgp.config"),
		"--keystore", e.storeDir,
		"--passphrase-vault", "file",
	}
}

// run executes the subcommand in-process and returns its output split into
// lines.
func (e *cliTestEnv) run(t *testing.T, args ...string) (stdout, stderr []string, err error) {
	t.Helper()

	app := cli.NewApp()
	kpapp := kingpin.New("test", "test")

	if e.customizeApp != nil {
		e.customizeApp(app, kpapp)
	}

	stdin := e.nextStdin
	e.nextStdin = nil

	if stdin == nil {
		stdin = strings.NewReader("")
	}

	allArgs := append(e.fixedArgs(), args...)

	t.Logf("running 'macpgp %v'", strings.Join(allArgs, " "))

	stdoutReader, stderrReader, wait := app.RunSubcommand(context.Background(), kpapp, stdin, allArgs)

	var wg sync.WaitGroup

	collect := func(r io.Reader, into *[]string) {
		defer wg.Done()

		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			*into = append(*into, scanner.Text())
		}
	}

	wg.Add(2)

	go collect(stdoutReader, &stdout)
	go collect(stderrReader, &stderr)

	wg.Wait()

	return stdout, stderr, wait()
}

// runAndExpectSuccess runs the command, requires success and returns its
// stdout lines.
func (e *cliTestEnv) runAndExpectSuccess(t *testing.T, args ...string) []string {
	t.Helper()

	stdout, stderr, err := e.run(t, args...)
	require.NoError(t, err, "'macpgp %v' failed, stderr:\n%v", strings.Join(args, " "), strings.Join(stderr, "\n"))

	return stdout
}

// runAndExpectFailure runs the command, requires failure and returns the
// error.
func (e *cliTestEnv) runAndExpectFailure(t *testing.T, args ...string) error {
	t.Helper()

	stdout, _, err := e.run(t, args...)
	require.Error(t, err, "'macpgp %v' succeeded, but expected failure, stdout:\n%v", strings.Join(args, " "), strings.Join(stdout, "\n"))

	return err
}

func requireLineContaining(t *testing.T, lines []string, want string) string {
	t.Helper()

	for _, l := range lines {
		if strings.Contains(l, want) {
			return l
		}
	}

	require.Failf(t, "line not found", "no line containing %q in:\n%v", want, strings.Join(lines, "\n"))

	return ""
}

// generateKey creates a key through the CLI and returns its fingerprint.
func generateKey(t *testing.T, e *cliTestEnv, name, email string, extraArgs ...string) string {
	t.Helper()

	args := append([]string{"key", "generate", "--name", name, "--email", email}, extraArgs...)
	out := e.runAndExpectSuccess(t, args...)

	// "Generated key <fingerprint> for <user>."
	line := requireLineContaining(t, out, "Generated key")
	fields := strings.Fields(line)
	require.GreaterOrEqual(t, len(fields), 3)

	fp := fields[2]
	require.Len(t, fp, 64)

	return fp
}
