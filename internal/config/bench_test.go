package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/BurntSushi/toml"
)

// minimalValidTOML is a complete snipcap.toml fixture that passes Validate with
// no errors. The snippet_dir intentionally uses a non-existent path so that the
// benchmark does not depend on the host filesystem layout; that produces only a
// warning, not an error.
const minimalValidTOML = `
[project]
name = "bench-project"
snippet_dir = "snippets"

[defaults]
timeout_seconds = 30
jobs = 4

[cache]
enabled = true
path = ".snipcap/cache.toml"

[snippets.usage]
command = "treefmt"
args = ["--help"]
output = "usage.txt"

[snippets.version]
command = "treefmt"
args = ["--version"]
output = "version.txt"
inputs = ["tools/**/*.go"]
`

// writeBenchConfig writes minimalValidTOML to a temp file and returns the path.
// The file is created once per benchmark; b.TempDir() cleans up automatically.
func writeBenchConfig(b *testing.B) string {
	b.Helper()
	dir := b.TempDir()
	path := filepath.Join(dir, "snipcap.toml")
	if err := os.WriteFile(path, []byte(minimalValidTOML), 0o644); err != nil {
		b.Fatalf("writing bench config: %v", err)
	}
	return path
}

// BenchmarkLoadFromFile measures the cost of parsing a TOML config file from
// disk, including file I/O and TOML decoding.
func BenchmarkLoadFromFile(b *testing.B) {
	path := writeBenchConfig(b)
	b.ReportAllocs()
	b.ResetTimer()

	for b.Loop() {
		cfg, _, err := LoadFromFile(path)
		if err != nil {
			b.Fatalf("LoadFromFile: %v", err)
		}
		_ = cfg
	}
}

// BenchmarkValidate measures the cost of validating a fully-populated Config
// against TOML metadata. Setup is excluded from the measured region.
func BenchmarkValidate(b *testing.B) {
	path := writeBenchConfig(b)
	cfg, md, err := LoadFromFile(path)
	if err != nil {
		b.Fatalf("LoadFromFile: %v", err)
	}
	b.ReportAllocs()
	b.ResetTimer()

	for b.Loop() {
		result := Validate(cfg, &md)
		_ = result
	}
}

// BenchmarkValidate_NilMeta measures Validate when no TOML metadata is
// available (the unknown-key detection path is skipped).
func BenchmarkValidate_NilMeta(b *testing.B) {
	cfg := &Config{
		Project: ProjectConfig{
			Name:       "bench-project",
			SnippetDir: "snippets",
		},
		Snippets: map[string]SnippetConfig{
			"usage": {Command: "treefmt", Args: []string{"--help"}, Output: "usage.txt"},
		},
	}
	b.ReportAllocs()
	b.ResetTimer()

	for b.Loop() {
		result := Validate(cfg, nil)
		_ = result
	}
}

// BenchmarkNewDefaults measures the cost of constructing a default Config.
func BenchmarkNewDefaults(b *testing.B) {
	b.ReportAllocs()
	b.ResetTimer()

	for b.Loop() {
		cfg := NewDefaults()
		_ = cfg
	}
}

// BenchmarkResolve measures the full four-layer merge with all sources set.
func BenchmarkResolve(b *testing.B) {
	defaults := NewDefaults()
	fileConfig := &Config{
		Project: ProjectConfig{Name: "bench", SnippetDir: "docs/snippets"},
		Snippets: map[string]SnippetConfig{
			"usage": {Command: "treefmt", Args: []string{"--help"}, Output: "usage.txt"},
		},
	}
	envFn := func(key string) (string, bool) {
		if key == "SNIPCAP_JOBS" {
			return "4", true
		}
		return "", false
	}
	jobs := 8
	overrides := &CLIOverrides{Jobs: &jobs}
	b.ReportAllocs()
	b.ResetTimer()

	for b.Loop() {
		rc := Resolve(defaults, fileConfig, envFn, overrides)
		_ = rc
	}
}

// BenchmarkLoadAndValidate measures the end-to-end hot path: loading a config
// file from disk and immediately validating it.
func BenchmarkLoadAndValidate(b *testing.B) {
	path := writeBenchConfig(b)
	b.ReportAllocs()
	b.ResetTimer()

	for b.Loop() {
		cfg, md, err := LoadFromFile(path)
		if err != nil {
			b.Fatalf("LoadFromFile: %v", err)
		}
		result := Validate(cfg, &md)
		_ = result
	}
}

// BenchmarkValidate_ManySnippets measures Validate when the config contains a
// large number of snippet entries, stressing the per-snippet validation loop
// and the duplicate-output check.
func BenchmarkValidate_ManySnippets(b *testing.B) {
	cfg := &Config{
		Project:  ProjectConfig{Name: "bench-project", SnippetDir: "snippets"},
		Snippets: make(map[string]SnippetConfig, 20),
	}
	for i := 0; i < 20; i++ {
		name := fmt.Sprintf("snippet-%d", i)
		cfg.Snippets[name] = SnippetConfig{
			Command: "treefmt",
			Args:    []string{"--help"},
			Output:  name + ".txt",
			Inputs:  []string{"docs/**/*.md"},
		}
	}
	b.ReportAllocs()
	b.ResetTimer()

	for b.Loop() {
		result := Validate(cfg, nil)
		_ = result
	}
}

// BenchmarkDecodeAndValidate measures the cost of decoding raw TOML bytes in
// memory and validating the result, isolating the TOML parse and validation
// costs from disk I/O.
func BenchmarkDecodeAndValidate(b *testing.B) {
	raw := []byte(minimalValidTOML)
	b.ReportAllocs()
	b.ResetTimer()

	for b.Loop() {
		var cfg Config
		md, err := toml.Decode(string(raw), &cfg)
		if err != nil {
			b.Fatalf("toml.Decode: %v", err)
		}
		result := Validate(&cfg, &md)
		_ = result
	}
}
