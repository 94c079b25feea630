package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/snipcap/snipcap/internal/capture"
	"github.com/snipcap/snipcap/internal/logging"
)

// doctorCheck is one probe's outcome in the doctor report.
type doctorCheck struct {
	// Label names the probe, e.g. `tool "treefmt"`.
	Label string
	// Detail is the human-readable result, e.g. a resolved path.
	Detail string
	// Err is non-nil when the probe failed.
	Err error
}

// doctorCmd implements "snipcap doctor". It probes everything a generate run
// needs before anything is truncated: each snippet's tool on PATH and the
// snippet directory's writability.
var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that snippet tools and directories are usable",
	Long: `Probe the environment a capture run depends on: resolve every snippet's
command on PATH and verify the snippet directory is writable. Run this
before wiring snipcap into a build to catch missing tools early, without
truncating any output files.`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

// captureDebugLogger wraps a charmbracelet log.Logger to satisfy the capture
// package's logger interface, which requires Debug(msg string, ...).
type captureDebugLogger struct {
	logger *log.Logger
}

func (l *captureDebugLogger) Debug(msg string, keyvals ...interface{}) {
	l.logger.Debug(msg, keyvals...)
}

// runDoctor is the RunE handler for the doctor command.
func runDoctor(cmd *cobra.Command, _ []string) error {
	resolved, _, err := loadAndResolveConfig(cmd)
	if err != nil {
		return err
	}
	cfg := resolved.Config
	root := engineRoot(resolved)

	runner := capture.NewRunner(&captureDebugLogger{logger: logging.New("doctor")})

	var checks []doctorCheck

	// Config file.
	if resolved.Path != "" {
		checks = append(checks, doctorCheck{Label: "config file", Detail: resolved.Path})
	} else {
		checks = append(checks, doctorCheck{
			Label: "config file",
			Err:   fmt.Errorf("no snipcap.toml found; run `snipcap init`"),
		})
	}

	// Snippet directory writability.
	checks = append(checks, probeSnippetDir(cfg.Project.SnippetDir, root))

	// Each distinct tool, resolved through the same lookup a capture uses.
	tools := make(map[string][]string)
	for _, name := range cfg.SnippetNames() {
		tool := cfg.Snippets[name].Command
		tools[tool] = append(tools[tool], name)
	}
	distinct := make([]string, 0, len(tools))
	for tool := range tools {
		distinct = append(distinct, tool)
	}
	sort.Strings(distinct)

	for _, tool := range distinct {
		check := doctorCheck{Label: fmt.Sprintf("tool %q", tool)}
		path, lookErr := runner.LookPath(tool)
		if lookErr != nil {
			check.Err = lookErr
		} else {
			check.Detail = fmt.Sprintf("%s (used by %s)", path, strings.Join(tools[tool], ", "))
		}
		checks = append(checks, check)
	}

	// Render the ✓/✗ report.
	out := cmd.ErrOrStderr()
	okStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10"))  // green
	failStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9")) // red

	fmt.Fprintln(out, "Snipcap Doctor")
	fmt.Fprintln(out, "--------------")

	labelWidth := 0
	for _, check := range checks {
		if len(check.Label) > labelWidth {
			labelWidth = len(check.Label)
		}
	}

	failedCount := 0
	for _, check := range checks {
		if check.Err != nil {
			failedCount++
			fmt.Fprintf(out, "%s %-*s %s\n", failStyle.Render("✗"), labelWidth, check.Label, check.Err)
			continue
		}
		fmt.Fprintf(out, "%s %-*s %s\n", okStyle.Render("✓"), labelWidth, check.Label, check.Detail)
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Summary: %d passed, %d failed, %d total\n",
		len(checks)-failedCount, failedCount, len(checks))

	if failedCount > 0 {
		return fmt.Errorf("%d of %d checks failed", failedCount, len(checks))
	}
	return nil
}

// probeSnippetDir verifies the snippet directory exists and accepts writes by
// creating and removing a throwaway file.
func probeSnippetDir(snippetDir, root string) doctorCheck {
	check := doctorCheck{Label: "snippet dir"}

	dir := snippetDir
	if dir == "" {
		dir = root
	} else if !filepath.IsAbs(dir) {
		dir = filepath.Join(root, dir)
	}

	info, err := os.Stat(dir)
	if err != nil {
		check.Err = fmt.Errorf("%s: %w", dir, err)
		return check
	}
	if !info.IsDir() {
		check.Err = fmt.Errorf("%s is not a directory", dir)
		return check
	}

	probe, err := os.CreateTemp(dir, ".snipcap-doctor-*")
	if err != nil {
		check.Err = fmt.Errorf("%s is not writable: %w", dir, err)
		return check
	}
	probe.Close()
	os.Remove(probe.Name())

	check.Detail = fmt.Sprintf("%s (writable)", dir)
	return check
}
