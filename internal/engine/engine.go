// Package engine orchestrates snippet captures: it plans which snippets to
// run, executes them with bounded concurrency, applies the optional cache,
// and aggregates per-snippet outcomes into a report.
package engine

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/cespare/xxhash/v2"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/snipcap/snipcap/internal/cache"
	"github.com/snipcap/snipcap/internal/capture"
	"github.com/snipcap/snipcap/internal/config"
)

// Options specifies the parameters for a single Generate or Check call.
type Options struct {
	// Patterns filter snippet names (doublestar syntax). Empty selects all.
	Patterns []string
	// Jobs bounds concurrent captures. Zero falls back to the config's
	// default, then to one worker per CPU.
	Jobs int
	// Force bypasses the cache and regenerates every selected snippet.
	Force bool
	// DryRun reports the plan without running anything.
	DryRun bool
}

// Engine runs snippet captures for one resolved config. It spawns one
// worker goroutine per snippet, bounded by the configured job limit.
type Engine struct {
	cfg    *config.Config
	root   string
	runner *capture.Runner
	logger *log.Logger
	events chan<- Event
}

// Option is a functional option for configuring an Engine.
type Option func(*Engine)

// New creates an Engine for the given config. Defaults: project root ".",
// a fresh capture runner, no logger, no events.
func New(cfg *config.Config, opts ...Option) *Engine {
	e := &Engine{
		cfg:  cfg,
		root: ".",
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.runner == nil {
		if e.logger != nil {
			e.runner = capture.NewRunner(&runnerDebugLogger{logger: e.logger})
		} else {
			e.runner = capture.NewRunner(nil)
		}
	}
	return e
}

// WithRoot sets the project root against which relative output paths,
// workdirs, and the cache path are resolved.
func WithRoot(root string) Option {
	return func(e *Engine) {
		e.root = root
	}
}

// WithLogger sets the structured logger on the Engine.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithEvents sets the event channel for progress tracking. Events are sent
// non-blocking; if the channel is full the event is dropped.
func WithEvents(ch chan<- Event) Option {
	return func(e *Engine) {
		e.events = ch
	}
}

// WithRunner replaces the capture runner. Used in tests to substitute tool
// resolution.
func WithRunner(r *capture.Runner) Option {
	return func(e *Engine) {
		e.runner = r
	}
}

// runnerDebugLogger adapts a charmbracelet logger to the capture package's
// logger interface, which requires Debug(msg string, ...).
type runnerDebugLogger struct {
	logger *log.Logger
}

func (l *runnerDebugLogger) Debug(msg string, keyvals ...interface{}) {
	l.logger.Debug(msg, keyvals...)
}

// Generate captures every selected snippet into its output file. Workers
// only return non-nil errors for fatal conditions (context cancellation);
// per-snippet failures are recorded in the report and surfaced as a single
// error after all snippets have settled, so one broken tool does not stop
// its siblings.
func (e *Engine) Generate(ctx context.Context, opts Options) (*Report, error) {
	report := newReport()

	plan, err := e.plan(opts.Patterns)
	if err != nil {
		return nil, err
	}
	if err := e.checkDuplicateOutputs(plan); err != nil {
		return nil, err
	}

	if opts.DryRun {
		for _, name := range plan {
			sn := e.cfg.Snippets[name]
			report.add(SnippetResult{
				Name:       name,
				Tool:       sn.Command,
				Args:       sn.Args,
				OutputPath: e.outputPath(name),
				Status:     StatusPlanned,
			})
		}
		report.finish()
		return report, nil
	}

	var manifest *cache.Manifest
	if e.cfg.Cache.Enabled {
		manifest = cache.Load(e.cachePath())
		e.logDebug("cache manifest loaded", "path", e.cachePath(), "entries", manifest.Len())
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.jobs(opts))

	for _, name := range plan {
		name := name // capture loop variable

		g.Go(func() error {
			sn := e.cfg.Snippets[name]
			e.emit(Event{Type: EventSnippetStarted, Result: SnippetResult{
				Name:       name,
				Tool:       sn.Command,
				Args:       sn.Args,
				OutputPath: e.outputPath(name),
			}})

			res := e.generateOne(gctx, name, manifest, opts.Force)
			report.add(res)
			e.emit(Event{Type: EventSnippetFinished, Result: res})

			switch res.Status {
			case StatusFailed:
				e.logWarn("snippet failed", "name", name, "error", res.Err)
			case StatusSkipped:
				e.logDebug("snippet up to date", "name", name)
			default:
				e.logInfo("snippet captured",
					"name", name,
					"output", res.OutputPath,
					"bytes", res.Bytes,
					"duration", res.Duration,
				)
			}

			// Always return nil so sibling snippets are not cancelled.
			return nil
		})
	}

	waitErr := g.Wait()

	if manifest != nil {
		manifest.Prune(e.cfg.SnippetNames())
		if saveErr := manifest.Save(); saveErr != nil {
			e.logWarn("could not save cache manifest", "path", manifest.Path(), "error", saveErr)
		}
	}

	report.finish()

	if waitErr != nil {
		return report, waitErr
	}
	if ctx.Err() != nil {
		return report, ctx.Err()
	}
	if n := report.Count(StatusFailed); n > 0 {
		return report, fmt.Errorf("%d of %d snippets failed", n, report.Total())
	}
	return report, nil
}

// generateOne settles a single snippet: skip via cache, or capture.
func (e *Engine) generateOne(ctx context.Context, name string, manifest *cache.Manifest, force bool) SnippetResult {
	sn := e.cfg.Snippets[name]
	outPath := e.outputPath(name)
	res := SnippetResult{
		Name:       name,
		Tool:       sn.Command,
		Args:       sn.Args,
		OutputPath: outPath,
	}

	req := e.requestFor(sn, outPath)

	// The input key covers the tool binary, args, env, workdir, and
	// declared input files. An unkeyable snippet (tool missing, bad glob)
	// is never skipped; the capture below reports the real error.
	var inputKey string
	if manifest != nil {
		if key, keyErr := e.inputKey(sn, req); keyErr == nil {
			inputKey = key
		} else {
			e.logDebug("snippet not cacheable", "name", name, "error", keyErr)
		}
	}

	if manifest != nil && !force && inputKey != "" {
		if entry, ok := manifest.Lookup(name); ok {
			if outputHash, hashErr := cache.HashFile(outPath); hashErr == nil && entry.Matches(inputKey, outputHash) {
				res.Status = StatusSkipped
				if info, statErr := os.Stat(outPath); statErr == nil {
					res.Bytes = info.Size()
				}
				return res
			}
		}
	}

	capRes, capErr := e.runner.Capture(ctx, req)
	if capErr != nil {
		res.Status = StatusFailed
		res.Err = capErr
		return res
	}

	res.Status = StatusCaptured
	res.Bytes = capRes.Bytes
	res.Duration = capRes.Duration

	if manifest != nil && inputKey != "" {
		if outputHash, hashErr := cache.HashFile(outPath); hashErr == nil {
			manifest.Put(name, cache.Entry{
				InputKey:   inputKey,
				OutputHash: outputHash,
				CapturedAt: time.Now().UTC(),
			})
		}
	}
	return res
}

// Check runs every selected snippet's command with stdout collected in
// memory and compares it against the destination file. Nothing on the
// filesystem is written. Drift, missing destinations, and command failures
// are recorded per snippet in the report; the caller decides how to react.
func (e *Engine) Check(ctx context.Context, opts Options) (*Report, error) {
	report := newReport()

	plan, err := e.plan(opts.Patterns)
	if err != nil {
		return nil, err
	}

	if opts.DryRun {
		for _, name := range plan {
			sn := e.cfg.Snippets[name]
			report.add(SnippetResult{
				Name:       name,
				Tool:       sn.Command,
				Args:       sn.Args,
				OutputPath: e.outputPath(name),
				Status:     StatusPlanned,
			})
		}
		report.finish()
		return report, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.jobs(opts))

	for _, name := range plan {
		name := name // capture loop variable

		g.Go(func() error {
			sn := e.cfg.Snippets[name]
			e.emit(Event{Type: EventSnippetStarted, Result: SnippetResult{
				Name:       name,
				Tool:       sn.Command,
				Args:       sn.Args,
				OutputPath: e.outputPath(name),
			}})

			res := e.checkOne(gctx, name)
			report.add(res)
			e.emit(Event{Type: EventSnippetFinished, Result: res})

			switch res.Status {
			case StatusFailed:
				e.logWarn("snippet check failed", "name", name, "error", res.Err)
			case StatusClean:
				e.logDebug("snippet clean", "name", name)
			default:
				e.logWarn("snippet out of date", "name", name, "status", res.Status, "output", res.OutputPath)
			}

			// Always return nil so sibling snippets are not cancelled.
			return nil
		})
	}

	waitErr := g.Wait()
	report.finish()

	if waitErr != nil {
		return report, waitErr
	}
	if ctx.Err() != nil {
		return report, ctx.Err()
	}
	return report, nil
}

// checkOne settles a single snippet for Check: clean, drifted, missing,
// or failed.
func (e *Engine) checkOne(ctx context.Context, name string) SnippetResult {
	sn := e.cfg.Snippets[name]
	outPath := e.outputPath(name)
	res := SnippetResult{
		Name:       name,
		Tool:       sn.Command,
		Args:       sn.Args,
		OutputPath: outPath,
	}

	start := time.Now()
	got, runErr := e.runner.CaptureBytes(ctx, e.requestFor(sn, outPath))
	res.Duration = time.Since(start)
	if runErr != nil {
		res.Status = StatusFailed
		res.Err = runErr
		return res
	}
	res.Bytes = int64(len(got))

	want, readErr := os.ReadFile(outPath)
	if readErr != nil {
		if os.IsNotExist(readErr) {
			res.Status = StatusMissing
			return res
		}
		res.Status = StatusFailed
		res.Err = fmt.Errorf("reading %s: %w", outPath, readErr)
		return res
	}

	if xxhash.Sum64(got) == xxhash.Sum64(want) && bytes.Equal(got, want) {
		res.Status = StatusClean
	} else {
		res.Status = StatusDrifted
	}
	return res
}

// Plan returns the snippet names a run with the given patterns would
// process, in the order Generate and Check would process them.
func (e *Engine) Plan(patterns []string) ([]string, error) {
	return e.plan(patterns)
}

// plan selects snippet names by pattern, sorted for deterministic
// ordering. Empty patterns select every configured snippet. A pattern that
// matches nothing is an error naming it, so a typo'd name fails loudly
// instead of silently capturing nothing.
func (e *Engine) plan(patterns []string) ([]string, error) {
	names := e.cfg.SnippetNames()
	if len(patterns) == 0 {
		return names, nil
	}

	selected := make([]string, 0, len(names))
	seen := make(map[string]struct{})
	for _, pattern := range patterns {
		matched := false
		for _, name := range names {
			ok, err := doublestar.Match(pattern, name)
			if err != nil {
				return nil, fmt.Errorf("invalid snippet pattern %q: %w", pattern, err)
			}
			if !ok {
				continue
			}
			matched = true
			if _, dup := seen[name]; !dup {
				seen[name] = struct{}{}
				selected = append(selected, name)
			}
		}
		if !matched {
			return nil, fmt.Errorf("no snippets match pattern %q", pattern)
		}
	}

	sort.Strings(selected)
	return selected, nil
}

// checkDuplicateOutputs rejects a plan in which two snippets resolve to
// the same output file, before anything is truncated.
func (e *Engine) checkDuplicateOutputs(plan []string) error {
	outputs := make(map[string]string, len(plan))
	for _, name := range plan {
		out := filepath.Clean(e.outputPath(name))
		if earlier, ok := outputs[out]; ok {
			return fmt.Errorf("snippets %q and %q write to the same output %s", earlier, name, out)
		}
		outputs[out] = name
	}
	return nil
}

// inputKey computes the cache key for a snippet.
func (e *Engine) inputKey(sn config.SnippetConfig, req capture.Request) (string, error) {
	toolPath, err := e.runner.LookPath(sn.Command)
	if err != nil {
		return "", err
	}
	return cache.Key(cache.KeySpec{
		ToolPath: toolPath,
		Args:     sn.Args,
		Env:      req.Env,
		Workdir:  req.Dir,
		Inputs:   sn.Inputs,
	})
}

// requestFor builds the capture request for a snippet with paths resolved
// against the project root.
func (e *Engine) requestFor(sn config.SnippetConfig, outPath string) capture.Request {
	return capture.Request{
		Tool:       sn.Command,
		Args:       sn.Args,
		OutputPath: outPath,
		Dir:        e.resolvePath(e.cfg.EffectiveWorkdir(sn)),
		Env:        e.cfg.EffectiveEnv(sn),
		Timeout:    time.Duration(e.cfg.EffectiveTimeout(sn)) * time.Second,
		CreateDir:  e.cfg.Defaults.CreateDirs,
	}
}

// outputPath resolves a snippet's destination against the project root.
func (e *Engine) outputPath(name string) string {
	return e.resolvePath(e.cfg.OutputPath(name))
}

// cachePath resolves the manifest location against the project root.
func (e *Engine) cachePath() string {
	return e.resolvePath(e.cfg.Cache.Path)
}

// resolvePath makes a config-relative path absolute under the project
// root. Empty resolves to the root itself.
func (e *Engine) resolvePath(p string) string {
	if p == "" {
		return e.root
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(e.root, p)
}

// jobs resolves the concurrency limit: call options, then config default,
// then one worker per CPU.
func (e *Engine) jobs(opts Options) int {
	switch {
	case opts.Jobs > 0:
		return opts.Jobs
	case e.cfg.Defaults.Jobs > 0:
		return e.cfg.Defaults.Jobs
	default:
		return runtime.NumCPU()
	}
}

func (e *Engine) emit(evt Event) {
	if e.events == nil {
		return
	}
	select {
	case e.events <- evt:
	default:
	}
}

func (e *Engine) logInfo(msg string, keyvals ...any) {
	if e.logger != nil {
		e.logger.Info(msg, keyvals...)
	}
}

func (e *Engine) logWarn(msg string, keyvals ...any) {
	if e.logger != nil {
		e.logger.Warn(msg, keyvals...)
	}
}

func (e *Engine) logDebug(msg string, keyvals ...any) {
	if e.logger != nil {
		e.logger.Debug(msg, keyvals...)
	}
}
