package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/snipcap/snipcap/internal/buildinfo"
	"github.com/snipcap/snipcap/internal/config"
	"github.com/snipcap/snipcap/internal/engine"
	"github.com/snipcap/snipcap/internal/logging"
	"github.com/snipcap/snipcap/internal/tui"
)

// generateFlags holds parsed flag values for the generate command.
type generateFlags struct {
	// Jobs bounds concurrent captures (0 = config default, then one per CPU).
	Jobs int
	// Force recaptures every selected snippet even when the cache says it
	// is current.
	Force bool
	// TUI renders live per-snippet progress instead of plain summary lines.
	TUI bool
}

// newGenerateCmd creates the "snipcap generate" command.
func newGenerateCmd() *cobra.Command {
	var flags generateFlags

	cmd := &cobra.Command{
		Use:   "generate [pattern ...]",
		Short: "Capture configured command output into snippet files",
		Long: `Run every configured snippet's command and capture its stdout into the
snippet's output file. Each destination is truncated before its command
starts, so a failed capture leaves an empty file rather than a stale one.

Positional patterns filter snippets by name using glob syntax
(e.g. "cli-*"). With no patterns, all snippets are captured.

Snippets run concurrently up to the job limit. A failing snippet does not
stop its siblings; the run exits non-zero after everything has settled.`,
		Example: `  # Capture all snippets
  snipcap generate

  # Capture a subset by name pattern
  snipcap generate "cli-*" usage

  # Recapture everything, ignoring the cache
  snipcap generate --force

  # Watch progress live
  snipcap generate --tui

  # Preview without running anything
  snipcap generate --dry-run`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, args, flags)
		},
	}

	cmd.Flags().IntVarP(&flags.Jobs, "jobs", "j", 0, "Concurrent captures (0 = config default, then one per CPU)")
	cmd.Flags().BoolVar(&flags.Force, "force", false, "Recapture every snippet even when cached inputs are unchanged")
	cmd.Flags().BoolVar(&flags.TUI, "tui", false, "Show live per-snippet progress while capturing")

	// Config override flags. These are read by config.CLIOverridesFromFlags
	// during resolution, not bound to generateFlags; only explicitly-set
	// values override the file and environment layers.
	cmd.Flags().String("snippet-dir", "", "Override the snippet output directory (env: SNIPCAP_SNIPPET_DIR)")
	cmd.Flags().Bool("cache", false, "Enable or disable the capture cache (overrides [cache].enabled)")
	cmd.Flags().Bool("create-dirs", false, "Create missing parent directories for output files")

	return cmd
}

func init() {
	rootCmd.AddCommand(newGenerateCmd())
}

// runGenerate is the RunE implementation for the generate command. The bare
// `snipcap` invocation routes here too, with zero-value flags.
func runGenerate(cmd *cobra.Command, patterns []string, flags generateFlags) error {
	logger := logging.New("generate")

	resolved, _, err := loadAndResolveConfig(cmd)
	if err != nil {
		return err
	}
	cfg := resolved.Config

	if len(cfg.Snippets) == 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), "No snippets configured. Add [snippets.<name>] tables to snipcap.toml, or run `snipcap init`.")
		return nil
	}

	opts := engine.Options{
		Patterns: patterns,
		Jobs:     flags.Jobs,
		Force:    flags.Force,
		DryRun:   flagDryRun,
	}
	root := engineRoot(resolved)

	// Set up a cancellation context that also responds to OS signals.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.Debug("starting generate",
		"config", resolved.Path,
		"root", root,
		"patterns", strings.Join(patterns, ","),
		"jobs", opts.Jobs,
		"force", opts.Force,
		"dryRun", opts.DryRun,
	)

	if flags.TUI && !opts.DryRun {
		return runGenerateTUI(ctx, cancel, cfg, root, opts)
	}

	eng := engine.New(cfg,
		engine.WithRoot(root),
		engine.WithLogger(logging.New("engine")),
	)

	report, runErr := eng.Generate(ctx, opts)
	if report == nil {
		return runErr
	}

	// Human-readable output goes to stderr; stdout stays reserved for
	// captured data and structured output.
	out := cmd.ErrOrStderr()
	if opts.DryRun {
		renderPlanReport(out, report)
		return runErr
	}
	renderRunReport(out, report, cfg.Project.Name)

	if runErr != nil && (errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded)) {
		fmt.Fprintln(out, "\nCapture run cancelled.")
	}
	return runErr
}

// runGenerateTUI drives a generate run through the live progress view. The
// engine gets no logger here: events carry progress to the UI, and stray log
// lines would tear the rendered frames.
func runGenerateTUI(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, root string, opts engine.Options) error {
	planner := engine.New(cfg, engine.WithRoot(root))
	plan, err := planner.Plan(opts.Patterns)
	if err != nil {
		return err
	}

	// The engine emits two events per snippet (started, finished) and drops
	// on a full channel, so size for the whole run up front.
	events := make(chan engine.Event, 2*len(plan)+2)
	done := make(chan tui.RunDoneMsg, 1)

	eng := engine.New(cfg,
		engine.WithRoot(root),
		engine.WithEvents(events),
	)

	go func() {
		report, runErr := eng.Generate(ctx, opts)
		done <- tui.RunDoneMsg{Report: report, Err: runErr, Timestamp: time.Now()}
	}()

	info := buildinfo.GetInfo()
	_, runErr := tui.Run(ctx, cancel, tui.AppConfig{
		Version:     info.Version,
		ProjectName: cfg.Project.Name,
		Names:       plan,
	}, events, done)
	return runErr
}

// ---- Report rendering -------------------------------------------------------

// runBarWidth is the progress bar width used in run summaries.
const runBarWidth = 40

// renderRunReport writes per-snippet result lines followed by a progress bar
// and status counts. Shared by generate and check.
//
//	snipcap - widget-docs
//	=====================
//	  ✓ cli-help     snippets/cli-help.txt  (2.1 kB, 142ms)
//	  ✗ broken       snippets/broken.txt    widget: exit status 2
//
//	████████████████████░░░░░░░░░░ 50% (1/2)
//	  1 captured, 1 failed in 240ms
func renderRunReport(out io.Writer, report *engine.Report, projectName string) {
	headerStyle := lipgloss.NewStyle().Bold(true)

	if projectName == "" {
		projectName = "snipcap"
	}
	title := fmt.Sprintf("snipcap - %s", projectName)
	fmt.Fprintln(out, headerStyle.Render(title))
	fmt.Fprintln(out, strings.Repeat("=", len(title)))

	results := report.Results()
	nameWidth := 0
	pathWidth := 0
	for _, res := range results {
		if len(res.Name) > nameWidth {
			nameWidth = len(res.Name)
		}
		if len(res.OutputPath) > pathWidth {
			pathWidth = len(res.OutputPath)
		}
	}
	for _, res := range results {
		fmt.Fprintln(out, resultLine(res, nameWidth, pathWidth))
	}
	fmt.Fprintln(out)

	good := report.Count(engine.StatusCaptured) +
		report.Count(engine.StatusSkipped) +
		report.Count(engine.StatusClean)
	pct := 0.0
	if report.Total() > 0 {
		pct = float64(good) / float64(report.Total())
	}

	bar := progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(runBarWidth),
		progress.WithoutPercentage(),
	)
	fmt.Fprintf(out, "%s %.0f%% (%d/%d)\n", bar.ViewAs(pct), pct*100, good, report.Total())
	fmt.Fprintf(out, "  %s\n", renderCounts(report))

	if report.Count(engine.StatusDrifted)+report.Count(engine.StatusMissing) > 0 {
		fmt.Fprintln(out, "\nRun \"snipcap generate\" to refresh out-of-date snippets.")
	}
}

// renderPlanReport lists what a run would do without executing anything.
func renderPlanReport(out io.Writer, report *engine.Report) {
	results := report.Results()
	fmt.Fprintf(out, "Planned captures (%d):\n", len(results))
	for _, res := range results {
		cmdline := res.Tool
		if len(res.Args) > 0 {
			cmdline += " " + strings.Join(res.Args, " ")
		}
		fmt.Fprintf(out, "  ○ %-20s %s -> %s\n", res.Name, cmdline, res.OutputPath)
	}
}

// resultLine formats one settled snippet as a glyph, padded name, padded
// output path, and a status-specific detail.
func resultLine(res engine.SnippetResult, nameWidth, pathWidth int) string {
	capturedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10")) // green
	failedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9"))    // red
	driftedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("11"))  // yellow
	skippedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))   // dark gray

	var glyph, detail string
	switch res.Status {
	case engine.StatusCaptured:
		glyph = capturedStyle.Render("✓")
		detail = fmt.Sprintf("(%s, %s)", humanize.IBytes(uint64(res.Bytes)), res.Duration.Round(time.Millisecond))
	case engine.StatusSkipped:
		glyph = skippedStyle.Render("✓")
		detail = "(up to date)"
	case engine.StatusClean:
		glyph = capturedStyle.Render("✓")
		detail = "(clean)"
	case engine.StatusDrifted:
		glyph = driftedStyle.Render("✗")
		detail = "(drifted)"
	case engine.StatusMissing:
		glyph = failedStyle.Render("✗")
		detail = "(missing)"
	case engine.StatusFailed:
		glyph = failedStyle.Render("✗")
		detail = ""
		if res.Err != nil {
			detail = failedStyle.Render(res.Err.Error())
		}
	default:
		glyph = "○"
	}

	return strings.TrimRight(
		fmt.Sprintf("  %s %-*s %-*s %s", glyph, nameWidth, res.Name, pathWidth, res.OutputPath, detail),
		" ",
	)
}

// renderCounts returns the comma-joined non-zero status counts with the run's
// elapsed time, e.g. "2 captured, 1 up to date, 1 failed in 1.2s".
func renderCounts(report *engine.Report) string {
	capturedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10")) // green
	failedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9"))    // red
	driftedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("11"))  // yellow

	var parts []string
	if n := report.Count(engine.StatusCaptured); n > 0 {
		parts = append(parts, capturedStyle.Render(fmt.Sprintf("%d captured", n)))
	}
	if n := report.Count(engine.StatusSkipped); n > 0 {
		parts = append(parts, fmt.Sprintf("%d up to date", n))
	}
	if n := report.Count(engine.StatusClean); n > 0 {
		parts = append(parts, capturedStyle.Render(fmt.Sprintf("%d clean", n)))
	}
	if n := report.Count(engine.StatusDrifted); n > 0 {
		parts = append(parts, driftedStyle.Render(fmt.Sprintf("%d drifted", n)))
	}
	if n := report.Count(engine.StatusMissing); n > 0 {
		parts = append(parts, failedStyle.Render(fmt.Sprintf("%d missing", n)))
	}
	if n := report.Count(engine.StatusFailed); n > 0 {
		parts = append(parts, failedStyle.Render(fmt.Sprintf("%d failed", n)))
	}
	if len(parts) == 0 {
		return fmt.Sprintf("nothing to do in %s", report.Elapsed().Round(time.Millisecond))
	}
	return fmt.Sprintf("%s in %s", strings.Join(parts, ", "), report.Elapsed().Round(time.Millisecond))
}
