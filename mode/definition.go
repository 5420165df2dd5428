// Package mode defines the declarative conversation workflow topologies and
// the registry that loads and validates them from disk.
package mode

import (
	"fmt"
	"strings"
)

// Mode names a conversational workflow topology.
type Mode string

const (
	// ModeSingle is a single-agent conversation.
	ModeSingle Mode = "SINGLE"
	// ModeMasterSub is a master agent delegating to sub-agents.
	ModeMasterSub Mode = "MASTER_SUB"
	// ModeMultiWorkflow is a multi-stage workflow of cooperating agents.
	ModeMultiWorkflow Mode = "MULTI_WORKFLOW"
)

// All returns every defined mode value.
func All() []Mode {
	return []Mode{ModeSingle, ModeMasterSub, ModeMultiWorkflow}
}

// Parse resolves a user supplied mode string. Blank input falls back to
// SINGLE; anything that is not a known mode (case-insensitively) is an error.
func Parse(value string) (Mode, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ModeSingle, nil
	}
	for _, m := range All() {
		if strings.EqualFold(trimmed, string(m)) {
			return m, nil
		}
	}
	return "", fmt.Errorf("unsupported mode: %s", value)
}

// NodeKind categorizes a node in a mode's declared graph.
type NodeKind string

const (
	// KindLLM is a generation-capable node with its own instruction/tools.
	KindLLM NodeKind = "LLM"
	// KindParallel fans out to its children concurrently.
	KindParallel NodeKind = "PARALLEL"
	// KindSequential chains its children in order.
	KindSequential NodeKind = "SEQUENTIAL"
)

func parseKind(value string) (NodeKind, error) {
	if strings.TrimSpace(value) == "" {
		// Kind defaults to LLM when a definition file omits it.
		return KindLLM, nil
	}
	switch k := NodeKind(strings.ToUpper(strings.TrimSpace(value))); k {
	case KindLLM, KindParallel, KindSequential:
		return k, nil
	default:
		return "", fmt.Errorf("unsupported node kind: %s", value)
	}
}

// NodeDefinition declares one vertex in a mode's graph.
type NodeDefinition struct {
	Kind        NodeKind `yaml:"kind" json:"kind"`
	Name        string   `yaml:"name" json:"name"`
	Description string   `yaml:"description" json:"description"`
	// Instruction is the base system prompt for LLM nodes; ignored elsewhere.
	Instruction string `yaml:"instruction" json:"instruction"`
	// SubAgents references other node keys in the same definition.
	SubAgents []string `yaml:"subAgents" json:"subAgents"`
}

// Definition declares a complete mode: its root node reference and the node
// graph keyed by reference name. Constructed once per reload and immutable
// thereafter; the topology builder never mutates it.
type Definition struct {
	Mode         Mode                      `yaml:"mode" json:"mode"`
	FallbackMode Mode                      `yaml:"fallbackMode" json:"fallbackMode"`
	Root         string                    `yaml:"root" json:"root"`
	Nodes        map[string]NodeDefinition `yaml:"nodes" json:"nodes"`
}

// Validate checks the structural invariants of a definition: mode set,
// fallback differs from mode, root present and resolvable, every sub-agent
// reference resolvable, every node with a kind and non-blank name.
func (d *Definition) Validate() error {
	if d.Mode == "" {
		return fmt.Errorf("mode is required")
	}
	if d.FallbackMode != "" && d.FallbackMode == d.Mode {
		return fmt.Errorf("fallbackMode cannot equal mode %s", d.Mode)
	}
	if strings.TrimSpace(d.Root) == "" {
		return fmt.Errorf("root node is required for mode %s", d.Mode)
	}
	if len(d.Nodes) == 0 {
		return fmt.Errorf("nodes are required for mode %s", d.Mode)
	}
	if _, ok := d.Nodes[d.Root]; !ok {
		return fmt.Errorf("root node %s not found for mode %s", d.Root, d.Mode)
	}

	var missing []string
	for _, node := range d.Nodes {
		for _, ref := range node.SubAgents {
			if _, ok := d.Nodes[ref]; !ok {
				missing = append(missing, ref)
			}
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("unknown node references %v for mode %s", missing, d.Mode)
	}

	for key, node := range d.Nodes {
		if node.Kind == "" || strings.TrimSpace(node.Name) == "" {
			return fmt.Errorf("invalid node definition %s for mode %s", key, d.Mode)
		}
	}

	return nil
}

// normalize resolves case-insensitive mode/kind strings coming from a
// definition file into canonical values.
func (d *Definition) normalize() error {
	if strings.TrimSpace(string(d.Mode)) == "" {
		return fmt.Errorf("mode is required")
	}
	parsedMode, err := Parse(string(d.Mode))
	if err != nil {
		return err
	}
	d.Mode = parsedMode

	if string(d.FallbackMode) != "" {
		fallback, err := Parse(string(d.FallbackMode))
		if err != nil {
			return err
		}
		d.FallbackMode = fallback
	}

	for key, node := range d.Nodes {
		kind, err := parseKind(string(node.Kind))
		if err != nil {
			return fmt.Errorf("node %s: %w", key, err)
		}
		node.Kind = kind
		d.Nodes[key] = node
	}

	return nil
}
