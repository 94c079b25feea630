package config

import (
	"strconv"

	"github.com/spf13/pflag"
)

// ConfigSource identifies where a configuration value came from.
type ConfigSource string

const (
	// SourceDefault indicates the value came from built-in defaults.
	SourceDefault ConfigSource = "default"
	// SourceFile indicates the value came from the snipcap.toml config file.
	SourceFile ConfigSource = "file"
	// SourceEnv indicates the value came from an environment variable.
	SourceEnv ConfigSource = "env"
	// SourceCLI indicates the value came from a CLI flag.
	SourceCLI ConfigSource = "cli"
)

// ResolvedConfig holds the fully-resolved configuration with source tracking.
// The Config field contains the merged values; Sources tracks where each came from.
type ResolvedConfig struct {
	Config  *Config
	Sources map[string]ConfigSource // key is dotted path, e.g., "project.snippet_dir"
	Path    string                  // path to the config file used (empty if none)
}

// CLIOverrides captures flag values that can override configuration.
// Nil/zero values mean "not set" (do not override). A *string that is nil
// means "not overridden"; a *string pointing to "" means "override to empty string."
type CLIOverrides struct {
	ProjectName  *string
	SnippetDir   *string
	Workdir      *string
	Jobs         *int
	CacheEnabled *bool
	CreateDirs   *bool
}

// CLIOverridesFromFlags builds CLIOverrides from the flags that were
// explicitly changed on the given flag set. Flags the command does not
// define are skipped, so one helper serves every subcommand.
func CLIOverridesFromFlags(fs *pflag.FlagSet) *CLIOverrides {
	ov := &CLIOverrides{}
	if fs == nil {
		return ov
	}
	if f := fs.Lookup("snippet-dir"); f != nil && f.Changed {
		v := f.Value.String()
		ov.SnippetDir = &v
	}
	if f := fs.Lookup("jobs"); f != nil && f.Changed {
		if n, err := strconv.Atoi(f.Value.String()); err == nil {
			ov.Jobs = &n
		}
	}
	if f := fs.Lookup("cache"); f != nil && f.Changed {
		if b, err := strconv.ParseBool(f.Value.String()); err == nil {
			ov.CacheEnabled = &b
		}
	}
	if f := fs.Lookup("create-dirs"); f != nil && f.Changed {
		if b, err := strconv.ParseBool(f.Value.String()); err == nil {
			ov.CreateDirs = &b
		}
	}
	return ov
}

// EnvFunc is a function that looks up environment variables.
// Default implementation is os.LookupEnv. Injected for testability.
type EnvFunc func(key string) (string, bool)

// Resolve merges configuration from all sources in priority order:
// CLI flags > environment variables > config file > defaults.
//
// Parameters:
//   - defaults: built-in default config (from NewDefaults())
//   - fileConfig: parsed config from snipcap.toml (nil if no file found)
//   - envFn: function to look up environment variables
//   - overrides: CLI flag values (nil fields mean "not set")
//
// Returns the fully-resolved config with source annotations.
func Resolve(defaults *Config, fileConfig *Config, envFn EnvFunc, overrides *CLIOverrides) *ResolvedConfig {
	rc := &ResolvedConfig{
		Config:  &Config{},
		Sources: make(map[string]ConfigSource),
	}

	// Ensure we have a valid defaults to start from.
	if defaults == nil {
		defaults = &Config{}
	}

	// Ensure we have a valid envFn.
	if envFn == nil {
		envFn = func(string) (string, bool) { return "", false }
	}

	// Ensure we have a valid overrides.
	if overrides == nil {
		overrides = &CLIOverrides{}
	}

	// Layer 1: Start with defaults as the base.
	resolveProjectFromDefaults(rc, defaults)
	resolveDefaultsSectionFromDefaults(rc, defaults)
	resolveCacheFromDefaults(rc, defaults)
	resolveSnippetsFromDefaults(rc, defaults)

	// Layer 2: Merge file config on top (non-zero values override; maps merge keys).
	if fileConfig != nil {
		resolveProjectFromFile(rc, fileConfig)
		resolveDefaultsSectionFromFile(rc, fileConfig)
		resolveCacheFromFile(rc, fileConfig)
		resolveSnippetsFromFile(rc, fileConfig)
	}

	// Layer 3: Merge environment variables on top.
	resolveFromEnv(rc, envFn)

	// Layer 4: Merge CLI overrides on top.
	resolveFromCLI(rc, overrides)

	return rc
}

// --- Layer 1: Defaults ---

func resolveProjectFromDefaults(rc *ResolvedConfig, defaults *Config) {
	p := &rc.Config.Project
	d := &defaults.Project

	setString(&p.Name, d.Name, "project.name", SourceDefault, rc.Sources)
	setString(&p.SnippetDir, d.SnippetDir, "project.snippet_dir", SourceDefault, rc.Sources)
}

func resolveDefaultsSectionFromDefaults(rc *ResolvedConfig, defaults *Config) {
	s := &rc.Config.Defaults
	d := &defaults.Defaults

	setString(&s.Workdir, d.Workdir, "defaults.workdir", SourceDefault, rc.Sources)
	s.TimeoutSeconds = d.TimeoutSeconds
	rc.Sources["defaults.timeout_seconds"] = SourceDefault
	s.Jobs = d.Jobs
	rc.Sources["defaults.jobs"] = SourceDefault
	s.CreateDirs = d.CreateDirs
	rc.Sources["defaults.create_dirs"] = SourceDefault

	if len(d.Env) > 0 {
		s.Env = make([]string, len(d.Env))
		copy(s.Env, d.Env)
	}
	rc.Sources["defaults.env"] = SourceDefault
}

func resolveCacheFromDefaults(rc *ResolvedConfig, defaults *Config) {
	c := &rc.Config.Cache
	d := &defaults.Cache

	c.Enabled = d.Enabled
	rc.Sources["cache.enabled"] = SourceDefault
	setString(&c.Path, d.Path, "cache.path", SourceDefault, rc.Sources)
}

func resolveSnippetsFromDefaults(rc *ResolvedConfig, defaults *Config) {
	rc.Config.Snippets = make(map[string]SnippetConfig)
	if defaults.Snippets != nil {
		for name, sn := range defaults.Snippets {
			rc.Config.Snippets[name] = copySnippetConfig(sn)
			setSnippetSources(rc.Sources, name, SourceDefault)
		}
	}
}

// --- Layer 2: File ---

func resolveProjectFromFile(rc *ResolvedConfig, file *Config) {
	p := &rc.Config.Project
	f := &file.Project

	mergeString(&p.Name, f.Name, "project.name", SourceFile, rc.Sources)
	mergeString(&p.SnippetDir, f.SnippetDir, "project.snippet_dir", SourceFile, rc.Sources)
}

func resolveDefaultsSectionFromFile(rc *ResolvedConfig, file *Config) {
	s := &rc.Config.Defaults
	f := &file.Defaults

	mergeString(&s.Workdir, f.Workdir, "defaults.workdir", SourceFile, rc.Sources)
	mergeInt(&s.TimeoutSeconds, f.TimeoutSeconds, "defaults.timeout_seconds", SourceFile, rc.Sources)
	mergeInt(&s.Jobs, f.Jobs, "defaults.jobs", SourceFile, rc.Sources)
	mergeBool(&s.CreateDirs, f.CreateDirs, "defaults.create_dirs", SourceFile, rc.Sources)

	if len(f.Env) > 0 {
		s.Env = make([]string, len(f.Env))
		copy(s.Env, f.Env)
		rc.Sources["defaults.env"] = SourceFile
	}
}

func resolveCacheFromFile(rc *ResolvedConfig, file *Config) {
	c := &rc.Config.Cache
	f := &file.Cache

	mergeBool(&c.Enabled, f.Enabled, "cache.enabled", SourceFile, rc.Sources)
	mergeString(&c.Path, f.Path, "cache.path", SourceFile, rc.Sources)
}

func resolveSnippetsFromFile(rc *ResolvedConfig, file *Config) {
	if file.Snippets == nil {
		return
	}
	for name, sn := range file.Snippets {
		rc.Config.Snippets[name] = copySnippetConfig(sn)
		setSnippetSources(rc.Sources, name, SourceFile)
	}
}

// --- Layer 3: Environment ---

// Environment variable mapping:
//
//	SNIPCAP_PROJECT_NAME -> project.name
//	SNIPCAP_SNIPPET_DIR  -> project.snippet_dir
//	SNIPCAP_WORKDIR      -> defaults.workdir
//	SNIPCAP_JOBS         -> defaults.jobs (must parse as an integer)
//	SNIPCAP_CACHE        -> cache.enabled (must parse as a bool)
//	SNIPCAP_CACHE_PATH   -> cache.path
//
// Unparseable SNIPCAP_JOBS and SNIPCAP_CACHE values are ignored rather
// than failing resolution; Validate reports the resulting config as-is.
func resolveFromEnv(rc *ResolvedConfig, envFn EnvFunc) {
	p := &rc.Config.Project

	if val, ok := envFn("SNIPCAP_PROJECT_NAME"); ok {
		p.Name = val
		rc.Sources["project.name"] = SourceEnv
	}
	if val, ok := envFn("SNIPCAP_SNIPPET_DIR"); ok {
		p.SnippetDir = val
		rc.Sources["project.snippet_dir"] = SourceEnv
	}
	if val, ok := envFn("SNIPCAP_WORKDIR"); ok {
		rc.Config.Defaults.Workdir = val
		rc.Sources["defaults.workdir"] = SourceEnv
	}
	if val, ok := envFn("SNIPCAP_JOBS"); ok {
		if n, err := strconv.Atoi(val); err == nil {
			rc.Config.Defaults.Jobs = n
			rc.Sources["defaults.jobs"] = SourceEnv
		}
	}
	if val, ok := envFn("SNIPCAP_CACHE"); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			rc.Config.Cache.Enabled = b
			rc.Sources["cache.enabled"] = SourceEnv
		}
	}
	if val, ok := envFn("SNIPCAP_CACHE_PATH"); ok {
		rc.Config.Cache.Path = val
		rc.Sources["cache.path"] = SourceEnv
	}
}

// --- Layer 4: CLI overrides ---

func resolveFromCLI(rc *ResolvedConfig, overrides *CLIOverrides) {
	if overrides.ProjectName != nil {
		rc.Config.Project.Name = *overrides.ProjectName
		rc.Sources["project.name"] = SourceCLI
	}
	if overrides.SnippetDir != nil {
		rc.Config.Project.SnippetDir = *overrides.SnippetDir
		rc.Sources["project.snippet_dir"] = SourceCLI
	}
	if overrides.Workdir != nil {
		rc.Config.Defaults.Workdir = *overrides.Workdir
		rc.Sources["defaults.workdir"] = SourceCLI
	}
	if overrides.Jobs != nil {
		rc.Config.Defaults.Jobs = *overrides.Jobs
		rc.Sources["defaults.jobs"] = SourceCLI
	}
	if overrides.CacheEnabled != nil {
		rc.Config.Cache.Enabled = *overrides.CacheEnabled
		rc.Sources["cache.enabled"] = SourceCLI
	}
	if overrides.CreateDirs != nil {
		rc.Config.Defaults.CreateDirs = *overrides.CreateDirs
		rc.Sources["defaults.create_dirs"] = SourceCLI
	}
}

// --- Helpers ---

// setString unconditionally sets the target to the given value and records the source.
func setString(target *string, value string, path string, source ConfigSource, sources map[string]ConfigSource) {
	*target = value
	sources[path] = source
}

// mergeString overwrites the target only if value is non-empty (non-zero string).
// For file-layer merging, an empty string in the file means "not set in file",
// so it does not override the default.
func mergeString(target *string, value string, path string, source ConfigSource, sources map[string]ConfigSource) {
	if value != "" {
		*target = value
		sources[path] = source
	}
}

// mergeInt overwrites the target only if value is non-zero.
func mergeInt(target *int, value int, path string, source ConfigSource, sources map[string]ConfigSource) {
	if value != 0 {
		*target = value
		sources[path] = source
	}
}

// mergeBool overwrites the target only if value is true. The built-in bool
// defaults are all false, so an explicit false in the file merges to the
// same resolved value as leaving the key unset.
func mergeBool(target *bool, value bool, path string, source ConfigSource, sources map[string]ConfigSource) {
	if value {
		*target = value
		sources[path] = source
	}
}

// copySnippetConfig returns a deep copy of a SnippetConfig.
func copySnippetConfig(src SnippetConfig) SnippetConfig {
	sn := SnippetConfig{
		Command:        src.Command,
		Output:         src.Output,
		Workdir:        src.Workdir,
		TimeoutSeconds: src.TimeoutSeconds,
	}
	if src.Args != nil {
		sn.Args = make([]string, len(src.Args))
		copy(sn.Args, src.Args)
	}
	if src.Env != nil {
		sn.Env = make([]string, len(src.Env))
		copy(sn.Env, src.Env)
	}
	if src.Inputs != nil {
		sn.Inputs = make([]string, len(src.Inputs))
		copy(sn.Inputs, src.Inputs)
	}
	return sn
}

// setSnippetSources records the source for all fields of a named snippet.
func setSnippetSources(sources map[string]ConfigSource, name string, source ConfigSource) {
	prefix := "snippets." + name
	sources[prefix+".command"] = source
	sources[prefix+".args"] = source
	sources[prefix+".output"] = source
	sources[prefix+".workdir"] = source
	sources[prefix+".env"] = source
	sources[prefix+".timeout_seconds"] = source
	sources[prefix+".inputs"] = source
}
