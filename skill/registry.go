package skill

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"gopkg.in/yaml.v3"

	"github.com/MT2-0901/nexus-agent/logging"
	"github.com/MT2-0901/nexus-agent/mode"
)

// Registry loads skill definitions from a directory of YAML/JSON files and
// serves them as an immutable snapshot sorted by name. Reads are lock-free;
// Reload swaps the snapshot atomically and is serialized against itself.
type Registry struct {
	dir    string
	logger logging.Logger

	reloadMu sync.Mutex
	snapshot atomic.Pointer[[]Definition]
}

// NewRegistry creates a registry reading from dir. A missing directory is not
// an error: the snapshot simply stays empty (skills are optional).
func NewRegistry(dir string, logger logging.Logger) *Registry {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	r := &Registry{dir: dir, logger: logger}
	empty := []Definition{}
	r.snapshot.Store(&empty)
	return r
}

// NewStaticRegistry builds a registry from in-memory definitions. Intended
// for tests and embedders.
func NewStaticRegistry(defs ...Definition) *Registry {
	r := NewRegistry("", logging.NoOpLogger{})
	sorted := make([]Definition, len(defs))
	copy(sorted, defs)
	sortByName(sorted)
	r.snapshot.Store(&sorted)
	return r
}

// Reload re-scans the directory and atomically publishes the new snapshot.
func (r *Registry) Reload() ([]Definition, error) {
	r.reloadMu.Lock()
	defer r.reloadMu.Unlock()

	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if os.IsNotExist(err) {
			r.logger.Warn("skill directory not found, skipping load", "dir", r.dir)
			empty := []Definition{}
			r.snapshot.Store(&empty)
			return nil, nil
		}
		return nil, fmt.Errorf("read skill directory %s: %w", r.dir, err)
	}

	var loaded []Definition
	for _, entry := range entries {
		if entry.IsDir() || !isSupportedFile(entry.Name()) {
			continue
		}
		def, err := readSkill(filepath.Join(r.dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("skill file %s: %w", entry.Name(), err)
		}
		loaded = append(loaded, def)
	}

	sortByName(loaded)
	r.snapshot.Store(&loaded)
	r.logger.Info("loaded skill definitions", "count", len(loaded), "dir", r.dir)
	return loaded, nil
}

// All returns the current snapshot, sorted by name.
func (r *Registry) All() []Definition {
	return *r.snapshot.Load()
}

// Resolve returns the skills active for a request: enabled, applicable to the
// mode, and, when requiredNames is non-empty, named (case-insensitively) in
// that set. An empty result is valid.
func (r *Registry) Resolve(m mode.Mode, requiredNames map[string]struct{}) []Definition {
	normalized := make(map[string]struct{}, len(requiredNames))
	for name := range requiredNames {
		trimmed := strings.ToLower(strings.TrimSpace(name))
		if trimmed != "" {
			normalized[trimmed] = struct{}{}
		}
	}

	var active []Definition
	for _, def := range r.All() {
		if !def.Enabled {
			continue
		}
		if !def.Supports(m) {
			continue
		}
		if len(normalized) > 0 {
			if _, ok := normalized[strings.ToLower(def.Name)]; !ok {
				continue
			}
		}
		active = append(active, def)
	}
	return active
}

// NormalizeNames lowercases, trims and de-duplicates a list of requested
// skill names into the set shape Resolve expects.
func NormalizeNames(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		trimmed := strings.ToLower(strings.TrimSpace(name))
		if trimmed != "" {
			set[trimmed] = struct{}{}
		}
	}
	return set
}

func sortByName(defs []Definition) {
	sort.Slice(defs, func(i, j int) bool {
		return strings.ToLower(defs[i].Name) < strings.ToLower(defs[j].Name)
	})
}

func isSupportedFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".json":
		return true
	default:
		return false
	}
}

func readSkill(path string) (Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Definition{}, err
	}

	// Enabled defaults to true when the file omits it.
	def := Definition{Enabled: true}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &def)
	} else {
		err = yaml.Unmarshal(data, &def)
	}
	if err != nil {
		return Definition{}, fmt.Errorf("parse: %w", err)
	}

	if strings.TrimSpace(def.Name) == "" {
		return Definition{}, fmt.Errorf("skill name is required")
	}
	return def, nil
}
