package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetCheckFlags resets the check command's local flag state alongside the
// root command's.
func resetCheckFlags(t *testing.T) {
	t.Helper()
	resetRootCmd(t)
	findCommand(t, "check").Flags().VisitAll(func(f *pflag.Flag) {
		f.Changed = false
		if err := f.Value.Set(f.DefValue); err != nil {
			t.Logf("resetting check flag %q: %v", f.Name, err)
		}
	})
}

func TestCheckCmd_RegisteredInRoot(t *testing.T) {
	found := false
	for _, cmd := range rootCmd.Commands() {
		if cmd.Name() == "check" {
			found = true
			break
		}
	}
	assert.True(t, found, "check command must be registered in rootCmd")
}

func TestCheckCmd_Metadata(t *testing.T) {
	cmd := findCommand(t, "check")
	assert.Equal(t, "check [pattern ...]", cmd.Use)
	assert.Equal(t, "Verify committed snippets match current command output", cmd.Short)
	assert.Contains(t, cmd.Long, "Nothing on disk is touched")
}

func TestCheckCmd_Flags(t *testing.T) {
	cmd := findCommand(t, "check")
	flag := cmd.Flags().Lookup("jobs")
	require.NotNil(t, flag, "jobs flag must be registered")
	assert.Equal(t, "j", flag.Shorthand)
}

func TestCheckCmd_CleanExitsZero(t *testing.T) {
	resetCheckFlags(t)
	skipOnWindows(t)

	tool := writeMockTool(t, t.TempDir(), "widget.sh", `
printf 'hello\n'
`)
	root, cfgPath := writeProjectConfig(t, fmt.Sprintf(`
[project]
name = "widget-docs"

[snippets.usage]
command = %q
output  = "usage.txt"
`, tool))
	require.NoError(t, os.WriteFile(
		filepath.Join(root, "snippets", "usage.txt"), []byte("hello\n"), 0644))

	oldStderr := os.Stderr
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stderr = w
	t.Cleanup(func() {
		os.Stderr = oldStderr
	})

	rootCmd.SetArgs([]string{"--config", cfgPath, "check"})

	code := Execute()

	w.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	os.Stderr = oldStderr

	assert.Equal(t, 0, code, "matching snippets should return exit code 0")
	assert.Contains(t, buf.String(), "1 clean")
}

func TestCheckCmd_DriftedExitsOne(t *testing.T) {
	resetCheckFlags(t)
	skipOnWindows(t)

	tool := writeMockTool(t, t.TempDir(), "widget.sh", `
printf 'new output\n'
`)
	root, cfgPath := writeProjectConfig(t, fmt.Sprintf(`
[project]
name = "widget-docs"

[snippets.usage]
command = %q
output  = "usage.txt"
`, tool))
	snippetPath := filepath.Join(root, "snippets", "usage.txt")
	require.NoError(t, os.WriteFile(snippetPath, []byte("old output\n"), 0644))

	oldStderr := os.Stderr
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stderr = w
	t.Cleanup(func() {
		os.Stderr = oldStderr
	})

	rootCmd.SetArgs([]string{"--config", cfgPath, "check"})

	code := Execute()

	w.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	os.Stderr = oldStderr

	assert.Equal(t, 1, code, "a drifted snippet should make check exit 1")
	stderr := buf.String()
	assert.Contains(t, stderr, "(drifted)")
	assert.Contains(t, stderr, "1 of 1 snippets out of date")
	assert.Contains(t, stderr, `run "snipcap generate" to refresh`)

	// Check never rewrites the file.
	data, err := os.ReadFile(snippetPath)
	require.NoError(t, err)
	assert.Equal(t, "old output\n", string(data), "check must not modify the snippet file")
}

func TestCheckCmd_MissingExitsOne(t *testing.T) {
	resetCheckFlags(t)
	skipOnWindows(t)

	tool := writeMockTool(t, t.TempDir(), "widget.sh", `
printf 'hello\n'
`)
	_, cfgPath := writeProjectConfig(t, fmt.Sprintf(`
[project]
name = "widget-docs"

[snippets.usage]
command = %q
output  = "usage.txt"
`, tool))

	oldStderr := os.Stderr
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stderr = w
	t.Cleanup(func() {
		os.Stderr = oldStderr
	})

	rootCmd.SetArgs([]string{"--config", cfgPath, "check"})

	code := Execute()

	w.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	os.Stderr = oldStderr

	assert.Equal(t, 1, code, "a missing snippet file should make check exit 1")
	assert.Contains(t, buf.String(), "(missing)")
	assert.Contains(t, buf.String(), "1 of 1 snippets out of date")
}

func TestCheckCmd_FailedToolExitsOne(t *testing.T) {
	resetCheckFlags(t)
	skipOnWindows(t)

	tool := writeMockTool(t, t.TempDir(), "widget.sh", `
exit 2
`)
	_, cfgPath := writeProjectConfig(t, fmt.Sprintf(`
[project]
name = "widget-docs"

[snippets.usage]
command = %q
output  = "usage.txt"
`, tool))

	oldStderr := os.Stderr
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stderr = w
	t.Cleanup(func() {
		os.Stderr = oldStderr
	})

	rootCmd.SetArgs([]string{"--config", cfgPath, "check"})

	code := Execute()

	w.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	os.Stderr = oldStderr

	assert.Equal(t, 1, code, "a failing tool should make check exit 1")
	assert.Contains(t, buf.String(), "1 of 1 snippet checks failed")
}

func TestCheckCmd_PatternFilterIgnoresOthers(t *testing.T) {
	resetCheckFlags(t)
	skipOnWindows(t)

	tool := writeMockTool(t, t.TempDir(), "widget.sh", `
printf 'hello\n'
`)
	root, cfgPath := writeProjectConfig(t, fmt.Sprintf(`
[project]
name = "widget-docs"

[snippets.usage]
command = %q
output  = "usage.txt"

[snippets.other]
command = %q
output  = "other.txt"
`, tool, tool))
	// "usage" is clean, "other" would be missing but is not selected.
	require.NoError(t, os.WriteFile(
		filepath.Join(root, "snippets", "usage.txt"), []byte("hello\n"), 0644))

	rootCmd.SetArgs([]string{"--config", cfgPath, "check", "usage"})

	code := Execute()
	assert.Equal(t, 0, code, "out-of-date snippets outside the pattern must not fail the run")
}
