package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/snipcap/snipcap/internal/engine"
	"github.com/snipcap/snipcap/internal/logging"
)

// checkFlags holds parsed flag values for the check command.
type checkFlags struct {
	// Jobs bounds concurrent captures (0 = config default, then one per CPU).
	Jobs int
}

// newCheckCmd creates the "snipcap check" command.
func newCheckCmd() *cobra.Command {
	var flags checkFlags

	cmd := &cobra.Command{
		Use:   "check [pattern ...]",
		Short: "Verify committed snippets match current command output",
		Long: `Recapture every selected snippet in memory and compare the bytes against
the committed output file. Nothing on disk is touched: drifted and missing
snippets are listed so the run can fail a CI build whose docs are stale.

Positional patterns filter snippets by name using glob syntax, the same
way generate does.`,
		Example: `  # Check all snippets
  snipcap check

  # Check a subset
  snipcap check "cli-*"

  # Check with a fixed worker count
  snipcap check --jobs 2`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, args, flags)
		},
	}

	cmd.Flags().IntVarP(&flags.Jobs, "jobs", "j", 0, "Concurrent captures (0 = config default, then one per CPU)")

	return cmd
}

func init() {
	rootCmd.AddCommand(newCheckCmd())
}

// runCheck is the RunE implementation for the check command. It exits
// non-zero when any snippet is drifted, missing, or failed to capture.
func runCheck(cmd *cobra.Command, patterns []string, flags checkFlags) error {
	logger := logging.New("check")

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
		DryRun:   flagDryRun,
	}
	root := engineRoot(resolved)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.Debug("starting check",
		"config", resolved.Path,
		"root", root,
		"patterns", strings.Join(patterns, ","),
		"jobs", opts.Jobs,
	)

	eng := engine.New(cfg,
		engine.WithRoot(root),
		engine.WithLogger(logging.New("engine")),
	)

	report, runErr := eng.Check(ctx, opts)
	if report == nil {
		return runErr
	}

	out := cmd.ErrOrStderr()
	if opts.DryRun {
		renderPlanReport(out, report)
		return runErr
	}
	renderRunReport(out, report, cfg.Project.Name)

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded) {
			fmt.Fprintln(out, "\nCheck run cancelled.")
		}
		return runErr
	}

	stale := report.Count(engine.StatusDrifted) + report.Count(engine.StatusMissing)
	failed := report.Count(engine.StatusFailed)
	if stale > 0 {
		return fmt.Errorf("%d of %d snippets out of date; run \"snipcap generate\" to refresh", stale, report.Total())
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d snippet checks failed", failed, report.Total())
	}
	return nil
}
