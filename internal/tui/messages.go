package tui

import (
	"time"

	"github.com/snipcap/snipcap/internal/engine"
)

// ---------------------------------------------------------------------------
// Snippet Messages
// ---------------------------------------------------------------------------

// SnippetStartedMsg signals that a snippet's command has been handed to a
// worker and is about to run.
type SnippetStartedMsg struct {
	// Name is the snippet name as configured in snipcap.toml.
	Name string
	// Tool is the command the worker is running.
	Tool string
	// Timestamp records when the event was received.
	Timestamp time.Time
}

// SnippetFinishedMsg signals that a snippet has settled, successfully or not.
type SnippetFinishedMsg struct {
	// Name is the snippet name as configured in snipcap.toml.
	Name string
	// Status is the snippet's final status for this run.
	Status engine.Status
	// Bytes is the size of the captured output, when applicable.
	Bytes int64
	// Duration is how long the capture took.
	Duration time.Duration
	// Err carries the failure when Status is failed.
	Err error
	// Timestamp records when the event was received.
	Timestamp time.Time
}

// ---------------------------------------------------------------------------
// Run Messages
// ---------------------------------------------------------------------------

// RunDoneMsg signals that the whole run has finished and carries its outcome.
// The run goroutine sends exactly one RunDoneMsg, whether the run completed,
// failed, or was cancelled.
type RunDoneMsg struct {
	// Report is the aggregated run report.
	Report *engine.Report
	// Err is the run-level error, nil when every snippet succeeded.
	Err error
	// Timestamp records when the run settled.
	Timestamp time.Time
}
