package cache

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/cespare/xxhash/v2"
)

// KeySpec names everything that can change a snippet's output: the tool
// binary, its arguments and environment, the working directory, and any
// declared input files.
type KeySpec struct {
	// ToolPath is the resolved executable path. Its size and modification
	// time participate in the key, so upgrading the tool invalidates the
	// snippet.
	ToolPath string
	Args     []string
	Env      []string
	// Workdir is the base directory for input patterns. It is hashed as
	// given.
	Workdir string
	// Inputs are glob patterns (doublestar syntax) expanded relative to
	// Workdir. The matched files' paths, sizes, and modification times
	// participate in the key.
	Inputs []string
}

// Key computes the input key for a snippet. Two snippets with the same key
// would produce the same output, so a manifest entry with a matching key
// lets generate skip the capture.
func Key(spec KeySpec) (string, error) {
	h := xxhash.New()

	writeField(h, "tool:"+spec.ToolPath)
	info, err := os.Lstat(spec.ToolPath)
	if err != nil {
		return "", fmt.Errorf("stat tool %q: %w", spec.ToolPath, err)
	}
	writeField(h, strconv.FormatInt(info.Size(), 10))
	writeField(h, strconv.FormatInt(info.ModTime().UnixNano(), 10))

	for _, arg := range spec.Args {
		writeField(h, "arg:"+arg)
	}
	for _, env := range spec.Env {
		writeField(h, "env:"+env)
	}
	writeField(h, "dir:"+spec.Workdir)

	base := spec.Workdir
	if base == "" {
		base = "."
	}
	files, err := expandInputs(base, spec.Inputs)
	if err != nil {
		return "", err
	}
	for _, path := range files {
		fi, statErr := os.Stat(filepath.Join(base, path))
		if statErr != nil {
			return "", fmt.Errorf("stat input %q: %w", path, statErr)
		}
		if fi.IsDir() {
			continue
		}
		writeField(h, "input:"+path)
		writeField(h, strconv.FormatInt(fi.Size(), 10))
		writeField(h, strconv.FormatInt(fi.ModTime().UnixNano(), 10))
	}

	return fmt.Sprintf("%016x", h.Sum64()), nil
}

// HashFile returns the xxhash of a file's contents, used to detect drift
// in captured output files.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %q: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %q: %w", path, err)
	}
	return fmt.Sprintf("%016x", h.Sum64()), nil
}

// expandInputs resolves glob patterns relative to base into a sorted,
// deduplicated list of matched paths.
func expandInputs(base string, patterns []string) ([]string, error) {
	if len(patterns) == 0 {
		return nil, nil
	}

	seen := make(map[string]struct{})
	for _, pattern := range patterns {
		matches, err := doublestar.Glob(os.DirFS(base), pattern)
		if err != nil {
			return nil, fmt.Errorf("expanding input pattern %q: %w", pattern, err)
		}
		for _, match := range matches {
			seen[match] = struct{}{}
		}
	}

	paths := make([]string, 0, len(seen))
	for path := range seen {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths, nil
}

// writeField feeds one field into the hash with a terminator so adjacent
// fields cannot run together.
func writeField(h *xxhash.Digest, s string) {
	_, _ = h.WriteString(s)
	_, _ = h.Write([]byte{0})
}
