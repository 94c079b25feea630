// Package capture runs external commands and writes their stdout
// byte-for-byte into destination files.
//
// Each capture truncates its destination before the child process starts,
// so a failed lookup or launch leaves an empty file rather than a stale
// one. The child's stdout is the open file handle itself; nothing is
// buffered, prepended, or transformed on the way through.
package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// ErrToolNotFound indicates the requested tool could not be resolved on
// the system search path.
var ErrToolNotFound = errors.New("tool not found")

// stderrTailLimit bounds how much child stderr is kept for diagnostics.
const stderrTailLimit = 32 * 1024

// interruptGrace is how long Wait allows a cancelled child to exit after
// the interrupt before it is killed.
const interruptGrace = 5 * time.Second

// Request describes one capture: run Tool with Args and write its stdout
// into OutputPath.
type Request struct {
	// Tool is the executable name or path, resolved via the OS search path.
	Tool string
	// Args are passed to the tool verbatim.
	Args []string
	// OutputPath is the destination file. It is created or truncated
	// before the tool is launched.
	OutputPath string
	// Dir is the tool's working directory. Empty means inherit.
	Dir string
	// Env entries are KEY=VALUE pairs appended to the inherited environment.
	Env []string
	// Timeout bounds the run. Zero means no timeout.
	Timeout time.Duration
	// CreateDir creates OutputPath's parent directories first.
	CreateDir bool
}

// Result reports a completed capture.
type Result struct {
	Tool       string
	Args       []string
	OutputPath string
	Bytes      int64
	ExitCode   int
	Duration   time.Duration
	Stderr     string
}

// ToolError reports a tool that could not be resolved, could not be
// launched, or exited nonzero. ExitCode is -1 when the tool never ran.
type ToolError struct {
	Tool     string
	Args     []string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ToolError) Error() string {
	name := e.Tool
	if len(e.Args) > 0 {
		name += " " + strings.Join(e.Args, " ")
	}
	if e.ExitCode >= 0 {
		return fmt.Sprintf("%s: exit code %d", name, e.ExitCode)
	}
	return fmt.Sprintf("%s: %v", name, e.Err)
}

func (e *ToolError) Unwrap() error { return e.Err }

// captureLogger is the minimal logging interface required by Runner.
type captureLogger interface {
	Debug(msg string, keyvals ...interface{})
}

// Runner executes capture requests. The zero value is usable; NewRunner
// wires the default tool resolution.
type Runner struct {
	logger captureLogger

	// lookPath resolves a tool name to an executable path. Replaced in
	// tests to simulate resolution failures without touching PATH.
	lookPath func(string) (string, error)
}

// NewRunner creates a Runner. The logger may be nil, in which case debug
// messages are silently discarded.
func NewRunner(logger captureLogger) *Runner {
	return &Runner{
		logger:   logger,
		lookPath: exec.LookPath,
	}
}

// LookPath resolves the tool on the system search path without running it.
// The returned error wraps ErrToolNotFound when resolution fails.
func (r *Runner) LookPath(tool string) (string, error) {
	lookPath := r.lookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	path, err := lookPath(tool)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrToolNotFound, tool)
	}
	return path, nil
}

// Capture runs the requested tool and writes its stdout into the
// destination file, blocking until the tool exits.
//
// The destination is opened with O_TRUNC before the tool is resolved or
// started, so a missing tool leaves an empty file, never a stale one. On a
// nonzero exit the bytes written before the failure remain in the file.
// Filesystem failures are returned as wrapped *fs.PathError; tool failures
// as *ToolError.
func (r *Runner) Capture(ctx context.Context, req Request) (res *Result, err error) {
	if req.CreateDir {
		if dir := filepath.Dir(req.OutputPath); dir != "" {
			if mkErr := os.MkdirAll(dir, 0o755); mkErr != nil {
				return nil, fmt.Errorf("creating output directory: %w", mkErr)
			}
		}
	}

	f, openErr := os.OpenFile(req.OutputPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if openErr != nil {
		return nil, fmt.Errorf("opening output file: %w", openErr)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			res = nil
			err = fmt.Errorf("closing output file: %w", closeErr)
		}
	}()

	// The open file is the child's stdout: the OS writes the bytes
	// straight into it with no intermediate copy.
	duration, stderrTail, runErr := r.run(ctx, req, f)
	if runErr != nil {
		return nil, runErr
	}

	info, statErr := f.Stat()
	if statErr != nil {
		return nil, fmt.Errorf("stat output file: %w", statErr)
	}

	if r.logger != nil {
		r.logger.Debug("captured tool output",
			"tool", req.Tool,
			"output", req.OutputPath,
			"bytes", info.Size(),
			"duration", duration,
		)
	}

	return &Result{
		Tool:       req.Tool,
		Args:       req.Args,
		OutputPath: req.OutputPath,
		Bytes:      info.Size(),
		ExitCode:   0,
		Duration:   duration,
		Stderr:     stderrTail,
	}, nil
}

// CaptureBytes runs the requested tool with stdout collected in memory
// instead of a file. Nothing on the filesystem is created or modified.
// Request.OutputPath and Request.CreateDir are ignored. Failure
// classification matches Capture.
func (r *Runner) CaptureBytes(ctx context.Context, req Request) ([]byte, error) {
	var stdout bytes.Buffer
	_, _, err := r.run(ctx, req, &stdout)
	if err != nil {
		return nil, err
	}

	if r.logger != nil {
		r.logger.Debug("captured tool output to memory",
			"tool", req.Tool,
			"bytes", stdout.Len(),
		)
	}
	return stdout.Bytes(), nil
}

// run resolves the tool and executes it with stdout attached to w. It
// returns the wall-clock duration and the tail of the child's stderr.
// Failures are classified into *ToolError values: resolution failures wrap
// ErrToolNotFound, launch failures and context expiry carry ExitCode -1,
// and a nonzero exit carries the child's exit code and stderr tail.
func (r *Runner) run(ctx context.Context, req Request, w io.Writer) (time.Duration, string, error) {
	start := time.Now()

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	lookPath := r.lookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	toolPath, lookErr := lookPath(req.Tool)
	if lookErr != nil {
		return 0, "", &ToolError{
			Tool:     req.Tool,
			Args:     req.Args,
			ExitCode: -1,
			Err:      fmt.Errorf("%w: %q", ErrToolNotFound, req.Tool),
		}
	}

	cmd := exec.CommandContext(ctx, toolPath, req.Args...)
	cmd.Dir = req.Dir
	cmd.Stdout = w
	stderr := &tailBuffer{limit: stderrTailLimit}
	cmd.Stderr = stderr

	// Build environment: inherit current env, then append caller env.
	env := os.Environ()
	env = append(env, req.Env...)
	cmd.Env = env

	// Interrupt first on cancellation; Wait escalates to kill after the
	// grace period when the tool ignores it.
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = interruptGrace

	if r.logger != nil {
		r.logger.Debug("running tool",
			"tool", toolPath,
			"args", req.Args,
			"dir", req.Dir,
		)
	}

	if startErr := cmd.Start(); startErr != nil {
		if errors.Is(startErr, exec.ErrNotFound) {
			return 0, "", &ToolError{
				Tool:     req.Tool,
				Args:     req.Args,
				ExitCode: -1,
				Err:      fmt.Errorf("%w: %q", ErrToolNotFound, req.Tool),
			}
		}
		return 0, "", &ToolError{
			Tool:     req.Tool,
			Args:     req.Args,
			ExitCode: -1,
			Err:      fmt.Errorf("starting %s: %w", req.Tool, startErr),
		}
	}

	waitErr := cmd.Wait()
	duration := time.Since(start)

	// A cancelled or timed-out context outranks whatever Wait reported,
	// including a clean exit from a tool that trapped the interrupt.
	if ctxErr := ctx.Err(); ctxErr != nil {
		return duration, stderr.String(), &ToolError{
			Tool:     req.Tool,
			Args:     req.Args,
			ExitCode: -1,
			Stderr:   stderr.String(),
			Err:      fmt.Errorf("waiting for %s: %w", req.Tool, ctxErr),
		}
	}

	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			// Bytes written before the failure stay with the caller.
			return duration, stderr.String(), &ToolError{
				Tool:     req.Tool,
				Args:     req.Args,
				ExitCode: exitErr.ExitCode(),
				Stderr:   stderr.String(),
				Err:      waitErr,
			}
		}
		return duration, stderr.String(), &ToolError{
			Tool:     req.Tool,
			Args:     req.Args,
			ExitCode: -1,
			Stderr:   stderr.String(),
			Err:      fmt.Errorf("waiting for %s: %w", req.Tool, waitErr),
		}
	}

	return duration, stderr.String(), nil
}

// tailBuffer keeps the last limit bytes written to it. Child stderr can be
// unbounded; only the tail is useful in an error message.
type tailBuffer struct {
	limit int
	buf   []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.buf = append(t.buf, p...)
	if len(t.buf) > t.limit {
		t.buf = t.buf[len(t.buf)-t.limit:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string { return string(t.buf) }
