package tool

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/MT2-0901/nexus-agent/skill"
)

// Catalog is the fixed registry skills resolve their tool requests against.
// Lookups are case-insensitive. The zero policy is permissive: names that
// resolve to no registered tool are dropped silently, so a skill referencing
// a not-yet-implemented tool never breaks a run. Strict mode turns an
// unresolved name into an error instead.
type Catalog struct {
	tools  map[string]Tool
	strict bool
}

// CatalogOptions configure catalog construction.
type CatalogOptions struct {
	// Strict makes Resolve fail on tool names that match nothing.
	Strict bool
	// Builtins controls registration of the built-in echo/now tools.
	Builtins bool
}

// NewCatalog creates a catalog, registering the built-in tools by default.
func NewCatalog(optFns ...func(o *CatalogOptions)) *Catalog {
	opts := CatalogOptions{Builtins: true}
	for _, fn := range optFns {
		fn(&opts)
	}

	c := &Catalog{tools: map[string]Tool{}, strict: opts.Strict}
	if opts.Builtins {
		c.Register(newEchoTool())
		c.Register(newNowTool())
	}
	return c
}

// Register adds a tool, replacing any previous tool with the same
// (case-insensitive) name.
func (c *Catalog) Register(t Tool) {
	c.tools[strings.ToLower(t.Name())] = t
}

// Get returns a tool by case-insensitive name.
func (c *Catalog) Get(name string) (Tool, bool) {
	t, ok := c.tools[strings.ToLower(strings.TrimSpace(name))]
	return t, ok
}

// Resolve collects the union of tool names requested by the given skills and
// looks them up against the catalog. Duplicate requests collapse; blank names
// are ignored. Unresolved names are dropped unless the catalog is strict.
func (c *Catalog) Resolve(skills []skill.Definition) ([]Tool, error) {
	requested := map[string]struct{}{}
	var order []string
	for _, s := range skills {
		for _, name := range s.Tools {
			key := strings.ToLower(strings.TrimSpace(name))
			if key == "" {
				continue
			}
			if _, seen := requested[key]; seen {
				continue
			}
			requested[key] = struct{}{}
			order = append(order, key)
		}
	}

	var resolved []Tool
	for _, key := range order {
		t, ok := c.tools[key]
		if !ok {
			if c.strict {
				return nil, fmt.Errorf("unknown tool %q requested by skill definition", key)
			}
			continue
		}
		resolved = append(resolved, t)
	}
	return resolved, nil
}

type echoArgs struct {
	Input string `json:"input" description:"Text to echo back"`
}

func newEchoTool() Tool {
	return NewFunctionTool(
		"echo",
		"Echo the provided input back to the caller",
		SchemaFor(echoArgs{}),
		func(_ context.Context, args map[string]any) (any, error) {
			input, _ := args["input"].(string)
			return map[string]any{"echo": input}, nil
		},
	)
}

func newNowTool() Tool {
	return NewFunctionTool(
		"now",
		"Return the current UTC timestamp in RFC 3339 format",
		SchemaFor(struct{}{}),
		func(_ context.Context, _ map[string]any) (any, error) {
			return map[string]any{"timestamp": time.Now().UTC().Format(time.RFC3339)}, nil
		},
	)
}
