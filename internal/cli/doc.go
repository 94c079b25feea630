// Package cli wires the snipcap command tree: generate, check, list,
// doctor, init, config, version, and completion. Commands resolve
// configuration from file, environment, and flags, then drive the engine.
//
// Output conventions: structured output (JSON, captured text, completion
// scripts) goes to stdout; run summaries, logs, and errors go to stderr so
// snipcap composes cleanly in docs build pipelines.
package cli
