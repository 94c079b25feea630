package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

// listFlags holds the flag values for the list command.
type listFlags struct {
	JSON bool // --json for structured output
}

// listSnippetOutput is the JSON output type for a single configured snippet.
type listSnippetOutput struct {
	Name           string   `json:"name"`
	Command        string   `json:"command"`
	Args           []string `json:"args,omitempty"`
	Output         string   `json:"output"`
	Workdir        string   `json:"workdir,omitempty"`
	Env            []string `json:"env,omitempty"`
	TimeoutSeconds int      `json:"timeout_seconds,omitempty"`
	Inputs         []string `json:"inputs,omitempty"`
}

// newListCmd creates the "snipcap list" command.
func newListCmd() *cobra.Command {
	var flags listFlags

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List configured snippets",
		Long: `Show every configured snippet with its command line and output path,
sorted by name. Use --json for structured output suitable for scripting.`,
		Example: `  # Show all snippets
  snipcap list

  # Structured JSON output
  snipcap list --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, flags)
		},
	}

	cmd.Flags().BoolVar(&flags.JSON, "json", false, "Output snippet definitions as JSON to stdout")

	return cmd
}

func init() {
	rootCmd.AddCommand(newListCmd())
}

// runList is the command's RunE function.
func runList(cmd *cobra.Command, flags listFlags) error {
	resolved, _, err := loadAndResolveConfig(cmd)
	if err != nil {
		return err
	}
	cfg := resolved.Config
	names := cfg.SnippetNames()

	// JSON output mode: write to stdout.
	if flags.JSON {
		outputs := make([]listSnippetOutput, 0, len(names))
		for _, name := range names {
			sn := cfg.Snippets[name]
			outputs = append(outputs, listSnippetOutput{
				Name:           name,
				Command:        sn.Command,
				Args:           sn.Args,
				Output:         cfg.OutputPath(name),
				Workdir:        cfg.EffectiveWorkdir(sn),
				Env:            cfg.EffectiveEnv(sn),
				TimeoutSeconds: cfg.EffectiveTimeout(sn),
				Inputs:         sn.Inputs,
			})
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(outputs)
	}

	// Human-readable output: write to stderr.
	out := cmd.ErrOrStderr()
	if len(names) == 0 {
		fmt.Fprintln(out, "No snippets configured. Add [snippets.<name>] tables to snipcap.toml, or run `snipcap init`.")
		return nil
	}

	nameStyle := lipgloss.NewStyle().Bold(true)
	outputStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8")) // dark gray

	nameWidth, cmdWidth := 0, 0
	cmdlines := make(map[string]string, len(names))
	for _, name := range names {
		sn := cfg.Snippets[name]
		cmdline := sn.Command
		if len(sn.Args) > 0 {
			cmdline += " " + strings.Join(sn.Args, " ")
		}
		cmdlines[name] = cmdline
		if len(name) > nameWidth {
			nameWidth = len(name)
		}
		if len(cmdline) > cmdWidth {
			cmdWidth = len(cmdline)
		}
	}

	fmt.Fprintf(out, "Snippets (%d):\n", len(names))
	for _, name := range names {
		// Pad before styling so ANSI escapes do not skew the columns.
		paddedName := fmt.Sprintf("%-*s", nameWidth, name)
		paddedCmd := fmt.Sprintf("%-*s", cmdWidth, cmdlines[name])
		fmt.Fprintf(out, "  %s  %s  %s\n",
			nameStyle.Render(paddedName),
			paddedCmd,
			outputStyle.Render(cfg.OutputPath(name)),
		)
	}
	return nil
}
