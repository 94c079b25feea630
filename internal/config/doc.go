// Package config loads, resolves, and validates snipcap.toml.
//
// Resolution layers values from four sources with fixed precedence:
// CLI flags over environment variables over the config file over built-in
// defaults. Every resolved field records which layer supplied it, which is
// what "snipcap config debug" prints.
package config
