package config

import (
	"path/filepath"
	"sort"
)

// Config is the top-level configuration structure mapping to snipcap.toml.
type Config struct {
	Project  ProjectConfig            `toml:"project"`
	Defaults DefaultsConfig           `toml:"defaults"`
	Cache    CacheConfig              `toml:"cache"`
	Snippets map[string]SnippetConfig `toml:"snippets"`
}

// ProjectConfig maps to the [project] section in snipcap.toml.
type ProjectConfig struct {
	Name       string `toml:"name"`
	SnippetDir string `toml:"snippet_dir"`
}

// DefaultsConfig maps to the [defaults] section in snipcap.toml. Its fields
// apply to every snippet that does not set the corresponding field itself.
// Jobs caps concurrent captures; zero means one worker per CPU.
// TimeoutSeconds of zero means no timeout.
type DefaultsConfig struct {
	Workdir        string   `toml:"workdir"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
	Env            []string `toml:"env"`
	Jobs           int      `toml:"jobs"`
	CreateDirs     bool     `toml:"create_dirs"`
}

// CacheConfig maps to the [cache] section in snipcap.toml. The cache is
// disabled unless enabled is set; with it off, every run truncates and
// rewrites each output file.
type CacheConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// SnippetConfig maps to a [snippets.<name>] section in snipcap.toml.
// Output is relative to project.snippet_dir unless absolute. Env entries
// are KEY=VALUE pairs appended to the inherited environment. Inputs are
// glob patterns naming the files the command's output depends on; they
// feed the cache key and nothing else.
type SnippetConfig struct {
	Command        string   `toml:"command"`
	Args           []string `toml:"args"`
	Output         string   `toml:"output"`
	Workdir        string   `toml:"workdir"`
	Env            []string `toml:"env"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
	Inputs         []string `toml:"inputs"`
}

// SnippetNames returns the configured snippet names in sorted order so that
// plans, reports, and validation findings are deterministic.
func (c *Config) SnippetNames() []string {
	names := make([]string, 0, len(c.Snippets))
	for name := range c.Snippets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// OutputPath returns the destination file for the named snippet: the
// snippet's output joined under project.snippet_dir, or the output itself
// when it is an absolute path. Returns "" for an unknown snippet.
func (c *Config) OutputPath(name string) string {
	sn, ok := c.Snippets[name]
	if !ok {
		return ""
	}
	if filepath.IsAbs(sn.Output) {
		return filepath.Clean(sn.Output)
	}
	return filepath.Join(c.Project.SnippetDir, sn.Output)
}

// EffectiveWorkdir returns the snippet's working directory, falling back to
// [defaults].workdir when the snippet does not set one. Empty means the
// process working directory.
func (c *Config) EffectiveWorkdir(sn SnippetConfig) string {
	if sn.Workdir != "" {
		return sn.Workdir
	}
	return c.Defaults.Workdir
}

// EffectiveEnv returns the KEY=VALUE pairs to append to the inherited
// environment: [defaults].env first, then the snippet's own entries so
// they win on duplicate keys.
func (c *Config) EffectiveEnv(sn SnippetConfig) []string {
	if len(c.Defaults.Env) == 0 && len(sn.Env) == 0 {
		return nil
	}
	env := make([]string, 0, len(c.Defaults.Env)+len(sn.Env))
	env = append(env, c.Defaults.Env...)
	env = append(env, sn.Env...)
	return env
}

// EffectiveTimeout returns the snippet's timeout in seconds, falling back
// to [defaults].timeout_seconds. Zero means no timeout.
func (c *Config) EffectiveTimeout(sn SnippetConfig) int {
	if sn.TimeoutSeconds != 0 {
		return sn.TimeoutSeconds
	}
	return c.Defaults.TimeoutSeconds
}
