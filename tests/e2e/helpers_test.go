package e2e_test

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

// testProject creates an isolated project directory with snipcap.toml and
// mock capture tools.
type testProject struct {
	Dir        string
	BinaryPath string
	t          *testing.T
}

// newTestProject builds the snipcap binary into a fresh temp directory and
// returns a testProject ready for use. Must be called from a test function;
// uses t.Helper() to mark itself accordingly.
func newTestProject(t *testing.T) *testProject {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("E2E tests with shell mock tools are not supported on Windows")
	}

	dir := t.TempDir()

	// Build snipcap binary into temp dir.
	binary := filepath.Join(dir, "snipcap")
	build := exec.Command("go", "build", "-o", binary, "./cmd/snipcap")
	build.Dir = projectRoot()
	out, err := build.CombinedOutput()
	require.NoError(t, err, "building snipcap: %s", string(out))

	// Tools referenced by test configs live under bin/ and are found via PATH.
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "bin"), 0o755))

	// The default snippet directory exists up front, as it would in a docs
	// repo that commits its captured snippets.
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "snippets"), 0o755))

	return &testProject{Dir: dir, BinaryPath: binary, t: t}
}

// projectRoot returns the absolute path to the root of the snipcap repository.
// It uses runtime.Caller(0) to find this source file's location and navigates
// two directories up (tests/e2e/ -> tests/ -> repo root).
func projectRoot() string {
	_, thisFile, _, _ := runtime.Caller(0)
	// thisFile is <repo>/tests/e2e/helpers_test.go; root is two dirs up.
	return filepath.Join(filepath.Dir(thisFile), "..", "..")
}

// writeConfig writes content to snipcap.toml in tp.Dir.
func (tp *testProject) writeConfig(content string) {
	tp.t.Helper()
	err := os.WriteFile(filepath.Join(tp.Dir, "snipcap.toml"), []byte(content), 0o644)
	require.NoError(tp.t, err)
}

// writeTool writes an executable shell script named name into tp.Dir/bin,
// which run() prepends to PATH. The script body follows a #!/bin/sh line.
func (tp *testProject) writeTool(name, body string) {
	tp.t.Helper()
	path := filepath.Join(tp.Dir, "bin", name)
	err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o600)
	require.NoError(tp.t, err)
	require.NoError(tp.t, os.Chmod(path, 0o755))
}

// fileContent reads a file under tp.Dir and returns its content as a string.
func (tp *testProject) fileContent(relPath string) string {
	tp.t.Helper()
	data, err := os.ReadFile(filepath.Join(tp.Dir, relPath))
	require.NoError(tp.t, err, "reading %s", relPath)
	return string(data)
}

// run creates an exec.Cmd for snipcap with mock tools prepended to PATH.
func (tp *testProject) run(args ...string) *exec.Cmd {
	cmd := exec.Command(tp.BinaryPath, args...)
	cmd.Dir = tp.Dir
	toolPath := filepath.Join(tp.Dir, "bin")
	cmd.Env = append(os.Environ(),
		"PATH="+toolPath+string(os.PathListSeparator)+os.Getenv("PATH"),
		"NO_COLOR=1",              // disable ANSI color in output
		"SNIPCAP_LOG_FORMAT=json", // structured logs for easier parsing
	)
	return cmd
}

// runExpectSuccess runs snipcap and asserts exit code 0.
// Returns combined stdout+stderr output.
func (tp *testProject) runExpectSuccess(args ...string) string {
	tp.t.Helper()
	cmd := tp.run(args...)
	out, err := cmd.CombinedOutput()
	require.NoError(tp.t, err, "snipcap %v failed:\n%s", args, string(out))
	return string(out)
}

// runExpectFailure runs snipcap and asserts a non-zero exit code.
// Returns combined output and the exit code.
func (tp *testProject) runExpectFailure(args ...string) (string, int) {
	tp.t.Helper()
	cmd := tp.run(args...)
	out, err := cmd.CombinedOutput()
	require.Error(tp.t, err, "snipcap %v expected to fail but succeeded:\n%s", args, string(out))
	var exitErr *exec.ExitError
	require.True(tp.t, errors.As(err, &exitErr), "expected *exec.ExitError, got %T: %v", err, err)
	return string(out), exitErr.ExitCode()
}

// singleSnippetConfig returns a snipcap.toml with one snippet capturing the
// given tool's stdout into snippets/usage.txt.
func singleSnippetConfig(tool string) string {
	return `[project]
name = "e2e-project"

[snippets.usage]
command = "` + tool + `"
args = ["--help"]
output = "usage.txt"
`
}

// cachedSnippetConfig is singleSnippetConfig with the capture cache enabled.
func cachedSnippetConfig(tool string) string {
	return `[project]
name = "e2e-project"

[cache]
enabled = true

[snippets.usage]
command = "` + tool + `"
args = ["--help"]
output = "usage.txt"
`
}
