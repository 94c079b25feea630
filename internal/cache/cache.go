// Package cache tracks which snippets are up to date so generate can skip
// captures whose inputs have not changed.
//
// The manifest is a small TOML file mapping snippet names to the key of the
// inputs that produced them and a hash of the captured output. It is advisory:
// a missing or unreadable manifest simply means every snippet is regenerated.
package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/snipcap/snipcap/internal/logging"
)

// Entry records one captured snippet: the key of the inputs that produced
// it, a hash of the output file, and when the capture happened.
type Entry struct {
	InputKey   string    `toml:"input_key"`
	OutputHash string    `toml:"output_hash"`
	CapturedAt time.Time `toml:"captured_at"`
}

// Matches reports whether the entry was produced from the same inputs and
// its output file is still intact.
func (e Entry) Matches(inputKey, outputHash string) bool {
	return e.InputKey == inputKey && e.OutputHash == outputHash
}

// manifestFile is the on-disk TOML shape of the manifest.
type manifestFile struct {
	Snippets map[string]Entry `toml:"snippets"`
}

// Manifest holds the cache state for one project. It reads and writes the
// manifest file using an atomic write pattern (write to temp file then
// rename). A mutex serializes concurrent access within the same process.
type Manifest struct {
	mu       sync.Mutex
	filePath string
	entries  map[string]Entry
}

// Load reads the manifest at filePath. A missing file yields an empty
// manifest. A file that cannot be read or parsed also yields an empty
// manifest, with a warning, so a corrupt cache never blocks generation.
func Load(filePath string) *Manifest {
	m := &Manifest{
		filePath: filePath,
		entries:  make(map[string]Entry),
	}

	var file manifestFile
	if _, err := toml.DecodeFile(filePath, &file); err != nil {
		if !os.IsNotExist(err) {
			logging.New("cache").Warn("ignoring unreadable cache manifest",
				"path", filePath,
				"error", err,
			)
		}
		return m
	}

	if file.Snippets != nil {
		m.entries = file.Snippets
	}
	return m
}

// Path returns the manifest's file path.
func (m *Manifest) Path() string {
	return m.filePath
}

// Len returns the number of entries in the manifest.
func (m *Manifest) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Lookup returns the entry for a snippet name.
func (m *Manifest) Lookup(name string) (Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[name]
	return e, ok
}

// Put records an entry for a snippet name, replacing any existing one.
func (m *Manifest) Put(name string, e Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[name] = e
}

// Prune removes entries whose names are not in keep, so snippets deleted
// from the config do not linger in the manifest. It returns the number of
// entries removed.
func (m *Manifest) Prune(keep []string) int {
	keepSet := make(map[string]struct{}, len(keep))
	for _, name := range keep {
		keepSet[name] = struct{}{}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for name := range m.entries {
		if _, ok := keepSet[name]; !ok {
			delete(m.entries, name)
			removed++
		}
	}
	return removed
}

// Save writes the manifest to a temporary file in the same directory as
// its file path, then renames it atomically into place. Parent directories
// are created as needed. File permissions are 0644.
func (m *Manifest) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	dir := filepath.Dir(m.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating cache directory %q: %w", dir, err)
	}

	tmp := m.filePath + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("creating temp manifest file %q: %w", tmp, err)
	}

	enc := toml.NewEncoder(f)
	if err := enc.Encode(manifestFile{Snippets: m.entries}); err != nil {
		f.Close()      //nolint:errcheck
		os.Remove(tmp) //nolint:errcheck
		return fmt.Errorf("encoding cache manifest: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmp) //nolint:errcheck
		return fmt.Errorf("closing temp manifest file: %w", err)
	}

	if err := os.Rename(tmp, m.filePath); err != nil {
		os.Remove(tmp) //nolint:errcheck
		return fmt.Errorf("renaming temp manifest to %q: %w", m.filePath, err)
	}

	return nil
}
