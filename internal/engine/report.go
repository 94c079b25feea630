package engine

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Status is the settled state of one snippet after a run.
type Status string

const (
	// StatusCaptured means the snippet's command ran and its output was written.
	StatusCaptured Status = "captured"
	// StatusSkipped means the cache proved the snippet is already up to date.
	StatusSkipped Status = "skipped"
	// StatusFailed means the snippet's command could not run or exited nonzero.
	StatusFailed Status = "failed"
	// StatusClean means a check found the destination matching the command's output.
	StatusClean Status = "clean"
	// StatusDrifted means a check found the destination differing from the command's output.
	StatusDrifted Status = "drifted"
	// StatusMissing means a check found the destination file absent.
	StatusMissing Status = "missing"
	// StatusPlanned means a dry run selected the snippet without running it.
	StatusPlanned Status = "planned"
)

// allStatuses lists every status a report counts.
var allStatuses = []Status{
	StatusCaptured,
	StatusSkipped,
	StatusFailed,
	StatusClean,
	StatusDrifted,
	StatusMissing,
	StatusPlanned,
}

// SnippetResult is the outcome of one snippet within a run.
type SnippetResult struct {
	// Name is the snippet's name in the config.
	Name string
	// Tool is the command the snippet runs.
	Tool string
	// Args are the command's arguments.
	Args []string
	// OutputPath is the resolved destination file.
	OutputPath string
	// Status is the settled state.
	Status Status
	// Bytes is the size of the captured or existing output.
	Bytes int64
	// Duration is how long the snippet's command ran.
	Duration time.Duration
	// Err is the failure behind StatusFailed, nil otherwise.
	Err error
}

// EventType identifies the kind of event emitted during a run.
type EventType string

const (
	// EventSnippetStarted is emitted when a snippet's command begins.
	EventSnippetStarted EventType = "snippet_started"
	// EventSnippetFinished is emitted when a snippet settles with a status.
	EventSnippetFinished EventType = "snippet_finished"
)

// Event is emitted during a run for progress tracking.
type Event struct {
	// Type identifies the kind of event.
	Type EventType
	// Result carries the snippet's state at emission time. For started
	// events the status is not yet set.
	Result SnippetResult
}

// Report aggregates the outcome of a Generate or Check run. Workers add
// results concurrently; counters are atomic and the result slice is
// mutex-protected.
type Report struct {
	start    time.Time
	elapsed  time.Duration
	counters map[Status]*atomic.Int32

	mu      sync.Mutex
	results []SnippetResult
}

func newReport() *Report {
	counters := make(map[Status]*atomic.Int32)
	for _, s := range allStatuses {
		counters[s] = &atomic.Int32{}
	}
	return &Report{
		start:    time.Now(),
		counters: counters,
	}
}

// add records one snippet outcome.
func (r *Report) add(res SnippetResult) {
	if c, ok := r.counters[res.Status]; ok {
		c.Add(1)
	}
	r.mu.Lock()
	r.results = append(r.results, res)
	r.mu.Unlock()
}

// finish freezes the report's elapsed time.
func (r *Report) finish() {
	r.elapsed = time.Since(r.start)
}

// Results returns the recorded snippet outcomes ordered by name.
func (r *Report) Results() []SnippetResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]SnippetResult, len(r.results))
	copy(out, r.results)
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out
}

// Count returns how many snippets settled with the given status.
func (r *Report) Count(s Status) int {
	c, ok := r.counters[s]
	if !ok {
		return 0
	}
	return int(c.Load())
}

// Total returns the number of snippets the run selected.
func (r *Report) Total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.results)
}

// HasFailures reports whether any snippet failed.
func (r *Report) HasFailures() bool {
	return r.Count(StatusFailed) > 0
}

// AllClean reports whether a check found every snippet up to date.
func (r *Report) AllClean() bool {
	return r.Count(StatusDrifted) == 0 &&
		r.Count(StatusMissing) == 0 &&
		r.Count(StatusFailed) == 0
}

// Elapsed returns the wall-clock duration of the run. Before the run
// finishes it reports the time spent so far.
func (r *Report) Elapsed() time.Duration {
	if r.elapsed > 0 {
		return r.elapsed
	}
	return time.Since(r.start)
}
