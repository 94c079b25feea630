package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/bmatcuk/doublestar/v4"
)

// ValidationSeverity indicates whether a validation issue is an error or warning.
type ValidationSeverity string

const (
	// SeverityError indicates a fatal validation issue; the configuration is unusable.
	SeverityError ValidationSeverity = "error"
	// SeverityWarning indicates an informational validation issue; the configuration works
	// but may have problems.
	SeverityWarning ValidationSeverity = "warning"
)

// ValidationIssue represents a single validation finding.
type ValidationIssue struct {
	Severity ValidationSeverity
	Field    string // dotted path, e.g., "snippets.usage.command"
	Message  string
}

// ValidationResult holds all validation findings.
type ValidationResult struct {
	Issues []ValidationIssue
}

// HasErrors returns true if any issue has error severity.
func (vr *ValidationResult) HasErrors() bool {
	for _, issue := range vr.Issues {
		if issue.Severity == SeverityError {
			return true
		}
	}
	return false
}

// HasWarnings returns true if any issue has warning severity.
func (vr *ValidationResult) HasWarnings() bool {
	for _, issue := range vr.Issues {
		if issue.Severity == SeverityWarning {
			return true
		}
	}
	return false
}

// Errors returns only error-severity issues.
func (vr *ValidationResult) Errors() []ValidationIssue {
	var errs []ValidationIssue
	for _, issue := range vr.Issues {
		if issue.Severity == SeverityError {
			errs = append(errs, issue)
		}
	}
	return errs
}

// Warnings returns only warning-severity issues.
func (vr *ValidationResult) Warnings() []ValidationIssue {
	var warns []ValidationIssue
	for _, issue := range vr.Issues {
		if issue.Severity == SeverityWarning {
			warns = append(warns, issue)
		}
	}
	return warns
}

// snippetNameRE constrains snippet names to filesystem- and shell-safe
// identifiers. Names become cache keys and report labels.
var snippetNameRE = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]*$`)

// Validate checks the configuration for correctness and completeness.
// It performs structural validation, semantic validation, and unknown key detection.
//
// Parameters:
//   - cfg: the configuration to validate
//   - meta: TOML metadata from BurntSushi/toml (may be nil if no file was loaded)
//
// Returns validation results. Check HasErrors() to determine if the config is usable.
func Validate(cfg *Config, meta *toml.MetaData) *ValidationResult {
	vr := &ValidationResult{}

	if cfg == nil {
		addError(vr, "", "configuration is nil")
		return vr
	}

	validateProject(vr, &cfg.Project)
	validateDefaults(vr, &cfg.Defaults)
	validateCache(vr, &cfg.Cache)
	validateSnippets(vr, cfg)
	validateUnknownKeys(vr, meta)

	return vr
}

// validateProject checks the [project] section for errors and warnings.
func validateProject(vr *ValidationResult, p *ProjectConfig) {
	// Error: snippet_dir must not be empty; every relative output joins under it.
	if p.SnippetDir == "" {
		addError(vr, "project.snippet_dir", "must not be empty")
	}

	// Warning: snippet_dir does not exist yet. Captures fail at runtime
	// unless create_dirs is set.
	if p.SnippetDir != "" {
		if _, err := os.Stat(p.SnippetDir); err != nil {
			addWarning(vr, "project.snippet_dir",
				fmt.Sprintf("directory %q does not exist", p.SnippetDir))
		}
	}
}

// validateDefaults checks the [defaults] section.
func validateDefaults(vr *ValidationResult, d *DefaultsConfig) {
	if d.TimeoutSeconds < 0 {
		addError(vr, "defaults.timeout_seconds", "must not be negative")
	}
	if d.Jobs < 0 {
		addError(vr, "defaults.jobs", "must not be negative")
	}
	validateEnvEntries(vr, "defaults.env", d.Env)

	// Warning: workdir does not exist.
	if d.Workdir != "" {
		if _, err := os.Stat(d.Workdir); err != nil {
			addWarning(vr, "defaults.workdir",
				fmt.Sprintf("directory %q does not exist", d.Workdir))
		}
	}
}

// validateCache checks the [cache] section.
func validateCache(vr *ValidationResult, c *CacheConfig) {
	if c.Enabled && c.Path == "" {
		addError(vr, "cache.path", "must not be empty when the cache is enabled")
	}
}

// validateSnippets checks all [snippets.*] sections, including that no two
// snippets resolve to the same output file.
func validateSnippets(vr *ValidationResult, cfg *Config) {
	if len(cfg.Snippets) == 0 {
		addWarning(vr, "snippets", "no snippets defined; generate has nothing to do")
		return
	}

	// Track resolved output paths to catch collisions. Iterate in sorted
	// order so the reported colliding pair is stable.
	outputs := make(map[string]string, len(cfg.Snippets))

	for _, name := range cfg.SnippetNames() {
		sn := cfg.Snippets[name]
		prefix := "snippets." + name

		// Error: snippet names become file-safe labels and cache keys.
		if !snippetNameRE.MatchString(name) {
			addError(vr, prefix,
				fmt.Sprintf("invalid snippet name %q; must match %s", name, snippetNameRE.String()))
		}

		// Error: command must not be empty if the snippet is defined.
		if sn.Command == "" {
			addError(vr, prefix+".command", "must not be empty")
		}

		// Error: output must not be empty.
		if sn.Output == "" {
			addError(vr, prefix+".output", "must not be empty")
		} else {
			resolved := cfg.OutputPath(name)
			if prev, clash := outputs[resolved]; clash {
				addError(vr, prefix+".output",
					fmt.Sprintf("resolves to %q, already written by snippets.%s", resolved, prev))
			} else {
				outputs[resolved] = name
			}
		}

		if sn.TimeoutSeconds < 0 {
			addError(vr, prefix+".timeout_seconds", "must not be negative")
		}

		validateEnvEntries(vr, prefix+".env", sn.Env)

		// Error: inputs must be valid glob patterns.
		for i, pattern := range sn.Inputs {
			if !doublestar.ValidatePattern(pattern) {
				addError(vr, fmt.Sprintf("%s.inputs[%d]", prefix, i),
					fmt.Sprintf("invalid glob pattern %q", pattern))
			}
		}

		// Warning: snippet workdir does not exist.
		if sn.Workdir != "" {
			if _, err := os.Stat(sn.Workdir); err != nil {
				addWarning(vr, prefix+".workdir",
					fmt.Sprintf("directory %q does not exist", sn.Workdir))
			}
		}
	}
}

// validateEnvEntries checks that each entry is a KEY=VALUE pair with a
// non-empty key.
func validateEnvEntries(vr *ValidationResult, field string, env []string) {
	for i, entry := range env {
		key, _, found := strings.Cut(entry, "=")
		if !found || key == "" {
			addError(vr, fmt.Sprintf("%s[%d]", field, i),
				fmt.Sprintf("malformed entry %q; expected KEY=VALUE", entry))
		}
	}
}

// validateUnknownKeys checks for TOML keys that did not map to any config struct field.
func validateUnknownKeys(vr *ValidationResult, meta *toml.MetaData) {
	if meta == nil {
		return
	}

	for _, key := range meta.Undecoded() {
		path := strings.Join(key, ".")
		addWarning(vr, path, "unknown configuration key")
	}
}

// addError appends an error-severity issue to the validation result.
func addError(vr *ValidationResult, field, message string) {
	vr.Issues = append(vr.Issues, ValidationIssue{
		Severity: SeverityError,
		Field:    field,
		Message:  message,
	})
}

// addWarning appends a warning-severity issue to the validation result.
func addWarning(vr *ValidationResult, field, message string) {
	vr.Issues = append(vr.Issues, ValidationIssue{
		Severity: SeverityWarning,
		Field:    field,
		Message:  message,
	})
}
