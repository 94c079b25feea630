package config

import "path/filepath"

// NewDefaults returns a Config populated with all default values.
// The zero Jobs value means one capture worker per CPU, and the zero
// TimeoutSeconds means captures run without a deadline.
func NewDefaults() *Config {
	return &Config{
		Project: ProjectConfig{
			SnippetDir: "snippets",
		},
		Cache: CacheConfig{
			Path: filepath.Join(".snipcap", "cache.toml"),
		},
		Snippets: map[string]SnippetConfig{},
	}
}
