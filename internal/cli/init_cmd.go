package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/snipcap/snipcap/internal/config"
	"github.com/snipcap/snipcap/internal/logging"
)

// Flag values for the init subcommand.
var (
	initFlagName        string
	initFlagForce       bool
	initFlagInteractive bool
)

// errInitCancelled is returned when the user aborts the interactive wizard.
var errInitCancelled = errors.New("init cancelled")

// wizardWidth is the fixed form width used by the interactive wizard.
const wizardWidth = 80

// initCmd implements "snipcap init [template]".
// It scaffolds a snipcap.toml from an embedded template without requiring an
// existing config -- making it safe to run in a fresh directory.
var initCmd = &cobra.Command{
	Use:   "init [template]",
	Short: "Create a snipcap.toml from an embedded template",
	Long: `Write a starter snipcap.toml into the current directory. The default
template captures one snippet (treefmt --help into usage.txt) as a worked
example; edit the file to add your own snippets.

Existing files are preserved unless --force is supplied. With --interactive
the project name and first snippet are collected through a short wizard
instead of template defaults.`,
	Example: `  snipcap init                      # starter config in current directory
  snipcap init --name widget-docs   # explicit project name
  snipcap init --interactive        # answer prompts for the first snippet
  snipcap init --force              # overwrite an existing snipcap.toml`,
	Args: cobra.MaximumNArgs(1),

	// Override PersistentPreRunE so the init command never attempts to load a
	// snipcap.toml. We still replicate the env-var checks, logging setup,
	// color disable, and --dir handling from the root PersistentPreRunE.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Check env vars for flags not explicitly set on the command line.
		if !cmd.Root().PersistentFlags().Changed("verbose") && os.Getenv("SNIPCAP_VERBOSE") != "" {
			flagVerbose = true
		}
		if !cmd.Root().PersistentFlags().Changed("quiet") && os.Getenv("SNIPCAP_QUIET") != "" {
			flagQuiet = true
		}
		if !cmd.Root().PersistentFlags().Changed("no-color") &&
			(os.Getenv("NO_COLOR") != "" || os.Getenv("SNIPCAP_NO_COLOR") != "") {
			flagNoColor = true
		}

		// Initialize logging.
		jsonFormat := os.Getenv("SNIPCAP_LOG_FORMAT") == "json"
		logging.Setup(flagVerbose, flagQuiet, jsonFormat)

		// Handle --no-color: disable coloured output.
		if flagNoColor {
			lipgloss.SetColorProfile(termenv.Ascii)
		}

		// Handle --dir (change working directory).
		if flagDir != "" {
			if err := os.Chdir(flagDir); err != nil {
				return fmt.Errorf("changing directory to %s: %w", flagDir, err)
			}
		}

		return nil
	},

	RunE: runInit,
}

func init() {
	initCmd.Flags().StringVarP(&initFlagName, "name", "n", "", "Project name (defaults to current directory name)")
	initCmd.Flags().BoolVar(&initFlagForce, "force", false, "Overwrite existing files")
	initCmd.Flags().BoolVarP(&initFlagInteractive, "interactive", "i", false, "Collect the project name and first snippet through prompts")
	rootCmd.AddCommand(initCmd)
}

// runInit is the RunE handler for the init command.
func runInit(cmd *cobra.Command, args []string) error {
	// Resolve the template name (default: default).
	templateName := "default"
	if len(args) > 0 {
		templateName = args[0]
	}

	// Validate that the requested template exists.
	if !config.TemplateExists(templateName) {
		available, listErr := config.ListTemplates()
		if listErr != nil {
			return fmt.Errorf("listing available templates: %w", listErr)
		}
		return fmt.Errorf("template %q not found; available templates: %s",
			templateName, strings.Join(available, ", "))
	}

	// Resolve the destination directory (current working directory after any
	// --dir change applied in PersistentPreRunE).
	destDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	// Resolve the project name.
	projectName := initFlagName
	if projectName == "" {
		projectName = filepath.Base(destDir)
	}

	// Reject path traversal in project name.
	if strings.Contains(projectName, "../") || strings.Contains(projectName, "..\\") {
		return fmt.Errorf("invalid project name %q: must not contain path traversal sequences", projectName)
	}

	// Guard against overwriting an existing snipcap.toml unless --force is set.
	configPath := filepath.Join(destDir, config.ConfigFileName)
	if _, statErr := os.Stat(configPath); statErr == nil && !initFlagForce {
		return fmt.Errorf("%s already exists in %s; use --force to overwrite", config.ConfigFileName, destDir)
	}

	vars := config.DefaultTemplateVars(projectName)
	if initFlagInteractive {
		vars, err = runInitWizard(projectName)
		if err != nil {
			return err
		}
	}

	// Render the template.
	created, err := config.RenderTemplate(templateName, destDir, vars, initFlagForce)
	if err != nil {
		return fmt.Errorf("rendering template %q: %w", templateName, err)
	}

	// --- Success output (all to stderr) ---
	stderr := cmd.ErrOrStderr()

	fmt.Fprintf(stderr, "Initialized project %q from template %q\n\n", vars.ProjectName, templateName)

	if len(created) > 0 {
		fmt.Fprintln(stderr, "Created files:")
		for _, f := range created {
			// Print relative paths when possible for readability.
			rel, relErr := filepath.Rel(destDir, f)
			if relErr != nil {
				rel = f
			}
			fmt.Fprintf(stderr, "  %s\n", rel)
		}
		fmt.Fprintln(stderr)
	}

	fmt.Fprintln(stderr, "Next steps:")
	fmt.Fprintf(stderr, "  1. Edit %s to configure your snippets\n", configPath)
	fmt.Fprintln(stderr, "  2. Run: snipcap generate")
	fmt.Fprintln(stderr, "  3. Commit the captured snippet files with your docs")

	return nil
}

// wizardAnswers holds the values collected by the interactive init wizard.
type wizardAnswers struct {
	ProjectName string
	Tool        string
	Args        string
	Output      string
}

// runInitWizard collects the project name and one starter snippet through a
// two-page huh form and returns template variables seeded from the answers.
//
// Page 1 gathers the inputs; page 2 shows a summary and asks for
// confirmation before anything is written.
func runInitWizard(defaultProjectName string) (config.TemplateVars, error) {
	answers := wizardAnswers{
		ProjectName: defaultProjectName,
		Tool:        "treefmt",
		Args:        "--help",
		Output:      "usage.txt",
	}

	if err := runInitInputsPage(&answers); err != nil {
		return config.TemplateVars{}, mapWizardErr(err)
	}

	vars := config.TemplateVars{
		ProjectName: answers.ProjectName,
		SnippetDir:  "snippets",
		Snippets: []config.TemplateSnippet{
			{
				Name:    snippetNameFromOutput(answers.Output),
				Command: answers.Tool,
				Args:    strings.Fields(answers.Args),
				Output:  answers.Output,
			},
		},
	}

	confirmed := false
	if err := runInitConfirmPage(buildInitSummary(vars), &confirmed); err != nil {
		return config.TemplateVars{}, mapWizardErr(err)
	}
	if !confirmed {
		return config.TemplateVars{}, errInitCancelled
	}

	return vars, nil
}

// runInitInputsPage runs the first wizard page: project name plus the first
// snippet's command, arguments, and output file.
func runInitInputsPage(answers *wizardAnswers) error {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Project name:").
				Description("Shown in logs and run summaries.").
				Value(&answers.ProjectName).
				Validate(validateNonEmpty("project name")),
			huh.NewInput().
				Title("Command to capture:").
				Description("The tool whose stdout becomes the first snippet.").
				Value(&answers.Tool).
				Validate(validateNonEmpty("command")),
			huh.NewInput().
				Title("Arguments:").
				Description("Space-separated arguments passed to the command.").
				Value(&answers.Args),
			huh.NewInput().
				Title("Output file:").
				Description("Destination file under the snippet directory.").
				Value(&answers.Output).
				Validate(validateNonEmpty("output file")),
		),
	).
		WithTheme(huh.ThemeCharm()).
		WithWidth(wizardWidth).
		Run()
}

// runInitConfirmPage shows the rendered selections and asks for confirmation
// before snipcap.toml is written.
func runInitConfirmPage(summary string, confirmed *bool) error {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Write snipcap.toml?").
				Description(summary).
				Affirmative("Write").
				Negative("Cancel").
				Value(confirmed),
		),
	).
		WithTheme(huh.ThemeCharm()).
		WithWidth(wizardWidth).
		Run()
}

// buildInitSummary returns a human-readable summary of the wizard selections
// suitable for display on the confirmation page.
func buildInitSummary(vars config.TemplateVars) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Project:     %s\n", vars.ProjectName))
	sb.WriteString(fmt.Sprintf("Snippet dir: %s\n", vars.SnippetDir))
	for _, sn := range vars.Snippets {
		cmdline := sn.Command
		if len(sn.Args) > 0 {
			cmdline += " " + strings.Join(sn.Args, " ")
		}
		sb.WriteString(fmt.Sprintf("Snippet:     %s (%s -> %s)\n", sn.Name, cmdline, sn.Output))
	}
	return sb.String()
}

// mapWizardErr converts huh-specific errors into errInitCancelled so callers
// do not need to import the huh package.
func mapWizardErr(err error) error {
	if errors.Is(err, huh.ErrUserAborted) {
		return errInitCancelled
	}
	return fmt.Errorf("wizard: %w", err)
}

// validateNonEmpty returns a huh validator rejecting blank input.
func validateNonEmpty(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s must not be empty", field)
		}
		return nil
	}
}

// snippetNameFromOutput derives a snippet table name from the output file,
// e.g. "docs/usage.txt" becomes "usage". Characters outside the allowed
// name alphabet are replaced with dashes.
func snippetNameFromOutput(output string) string {
	base := filepath.Base(output)
	name := strings.TrimSuffix(base, filepath.Ext(base))

	var sb strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			sb.WriteRune(r)
		default:
			sb.WriteRune('-')
		}
	}
	// Names must start with an alphanumeric character.
	cleaned := strings.TrimLeft(sb.String(), "-_")
	cleaned = strings.TrimRight(cleaned, "-")
	if cleaned == "" {
		return "snippet"
	}
	return cleaned
}
