package mode

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"gopkg.in/yaml.v3"

	"github.com/MT2-0901/nexus-agent/logging"
)

// Registry loads mode definitions from a directory of YAML/JSON files and
// serves them as an immutable snapshot. Reads are lock-free via an atomic
// snapshot pointer; Reload swaps the whole snapshot at once so readers never
// observe a partially-updated set. Reload itself is serialized.
type Registry struct {
	dir    string
	logger logging.Logger

	reloadMu sync.Mutex
	snapshot atomic.Pointer[map[Mode]*Definition]
}

// NewRegistry creates a registry reading from dir. Call Reload before first use.
func NewRegistry(dir string, logger logging.Logger) *Registry {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	r := &Registry{dir: dir, logger: logger}
	empty := map[Mode]*Definition{}
	r.snapshot.Store(&empty)
	return r
}

// NewStaticRegistry builds a registry from in-memory definitions, applying
// the same validation and coverage rules as a directory load. Intended for
// tests and embedders that manage definitions themselves.
func NewStaticRegistry(defs ...*Definition) (*Registry, error) {
	r := NewRegistry("", logging.NoOpLogger{})
	loaded := make(map[Mode]*Definition, len(defs))
	for _, def := range defs {
		if err := def.normalize(); err != nil {
			return nil, err
		}
		if err := def.Validate(); err != nil {
			return nil, err
		}
		loaded[def.Mode] = def
	}
	if err := checkCoverage(loaded); err != nil {
		return nil, err
	}
	r.snapshot.Store(&loaded)
	return r, nil
}

// Reload re-scans the directory, validates every definition and atomically
// publishes the new snapshot. Every Mode value must be covered or the reload
// fails and the previous snapshot stays in place.
func (r *Registry) Reload() error {
	r.reloadMu.Lock()
	defer r.reloadMu.Unlock()

	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return fmt.Errorf("read mode directory %s: %w", r.dir, err)
	}

	loaded := map[Mode]*Definition{}
	for _, entry := range entries {
		if entry.IsDir() || !isSupportedFile(entry.Name()) {
			continue
		}
		path := filepath.Join(r.dir, entry.Name())
		def, err := readDefinition(path)
		if err != nil {
			return fmt.Errorf("mode file %s: %w", entry.Name(), err)
		}
		loaded[def.Mode] = def
	}

	if err := checkCoverage(loaded); err != nil {
		return fmt.Errorf("mode directory %s: %w", r.dir, err)
	}

	r.snapshot.Store(&loaded)
	r.logger.Info("loaded mode definitions", "count", len(loaded), "dir", r.dir)
	return nil
}

// Find returns the definition for a mode, if present.
func (r *Registry) Find(m Mode) (*Definition, bool) {
	snap := *r.snapshot.Load()
	def, ok := snap[m]
	return def, ok
}

// Get returns the definition for a mode or an error if missing.
func (r *Registry) Get(m Mode) (*Definition, error) {
	def, ok := r.Find(m)
	if !ok {
		return nil, fmt.Errorf("missing mode definition for %s", m)
	}
	return def, nil
}

func checkCoverage(loaded map[Mode]*Definition) error {
	var missing []Mode
	for _, m := range All() {
		if _, ok := loaded[m]; !ok {
			missing = append(missing, m)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing mode definitions for %v", missing)
	}
	return nil
}

func isSupportedFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".json":
		return true
	default:
		return false
	}
}

func readDefinition(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var def Definition
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &def)
	} else {
		err = yaml.Unmarshal(data, &def)
	}
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}

	if err := def.normalize(); err != nil {
		return nil, err
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}
