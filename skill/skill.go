// Package skill implements reusable, mode-scoped instruction/tool bundles.
// Skills are declared in YAML/JSON files, resolved per request by mode and an
// optional explicit name allow-list, and composed into an instruction prompt
// suffix plus a tool-name set.
package skill

import (
	"strings"

	"github.com/MT2-0901/nexus-agent/mode"
)

// Definition declares one skill. Names are unique within the active set by
// case-insensitive comparison. An empty AppliesTo set means the skill applies
// to every mode.
type Definition struct {
	Name        string   `yaml:"name" json:"name"`
	Description string   `yaml:"description" json:"description"`
	Enabled     bool     `yaml:"enabled" json:"enabled"`
	AppliesTo   []string `yaml:"appliesTo" json:"appliesTo"`
	Instruction string   `yaml:"instruction" json:"instruction"`
	Tools       []string `yaml:"tools" json:"tools"`
}

// Supports reports whether the skill applies to the given mode. An empty
// applies-to set is a wildcard; otherwise membership is case-insensitive.
func (d Definition) Supports(m mode.Mode) bool {
	if len(d.AppliesTo) == 0 {
		return true
	}
	for _, item := range d.AppliesTo {
		if strings.EqualFold(item, string(m)) {
			return true
		}
	}
	return false
}
