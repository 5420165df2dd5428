// Package nexusagent provides a high-level façade over the conversation
// workflow engine: mode and skill registries, the topology builder, the run
// protocol service and chat history. Most applications interact with this
// package by:
//  1. Creating a NexusAgent via New() (optionally overriding config, stores
//     and the model factory)
//  2. Streaming turns through Run, or using the synchronous Chat helper
//
// All defaults are safe for local development: in-memory sessions, SQLite
// chat history and provider selection by model name. Production deployments
// typically supply durable stores and a structured logger.
package nexusagent

import (
	"context"
	"fmt"
	"strings"

	"github.com/MT2-0901/nexus-agent/config"
	"github.com/MT2-0901/nexus-agent/core"
	"github.com/MT2-0901/nexus-agent/history"
	"github.com/MT2-0901/nexus-agent/logging"
	"github.com/MT2-0901/nexus-agent/mode"
	"github.com/MT2-0901/nexus-agent/model"
	"github.com/MT2-0901/nexus-agent/model/anthropic"
	"github.com/MT2-0901/nexus-agent/model/openai"
	"github.com/MT2-0901/nexus-agent/protocol"
	"github.com/MT2-0901/nexus-agent/runner"
	"github.com/MT2-0901/nexus-agent/session"
	"github.com/MT2-0901/nexus-agent/skill"
	"github.com/MT2-0901/nexus-agent/tool"
	"github.com/MT2-0901/nexus-agent/topology"
)

// Options configure the NexusAgent instance.
type Options struct {
	// Config supplies application settings; defaults to config.Default().
	Config *config.Config

	// SessionStore defaults to an in-memory implementation.
	SessionStore core.SessionStore

	// History defaults to the configured persistence provider.
	History history.Store

	// ModelFactory defaults to provider selection by model name ("claude*"
	// goes to Anthropic, everything else to OpenAI).
	ModelFactory model.Factory

	// ToolCatalog defaults to the builtin catalog honoring the strict-tools
	// config flag.
	ToolCatalog *tool.Catalog

	// Logger defaults to a slog-backed logger.
	Logger logging.Logger
}

// NexusAgent is the façade aggregating registries, builder, runner and the
// protocol service.
type NexusAgent struct {
	cfg     config.Config
	modes   *mode.Registry
	skills  *skill.Registry
	service *protocol.Service
	history history.Store
	logger  logging.Logger
}

// New creates a NexusAgent, loading mode and skill definitions from the
// configured directories.
func New(optFns ...func(o *Options)) (*NexusAgent, error) {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}

	cfg := config.Default()
	if opts.Config != nil {
		cfg = *opts.Config
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.NewLogger(nil).WithComponent(cfg.App.Name)
	}

	modes := mode.NewRegistry(cfg.Modes.Path, logger)
	if err := modes.Reload(); err != nil {
		return nil, fmt.Errorf("load mode definitions: %w", err)
	}

	skills := skill.NewRegistry(cfg.Skills.Path, logger)
	if _, err := skills.Reload(); err != nil {
		return nil, fmt.Errorf("load skill definitions: %w", err)
	}

	catalog := opts.ToolCatalog
	if catalog == nil {
		catalog = tool.NewCatalog(func(o *tool.CatalogOptions) {
			o.Strict = cfg.Skills.StrictTools
		})
	}

	factory := opts.ModelFactory
	if factory == nil {
		factory = providerFactory()
	}

	builder := topology.NewBuilder(modes, catalog, factory, func(o *topology.BuilderOptions) {
		o.DefaultModel = cfg.App.Model
		o.AllowedModels = cfg.App.AvailableModels
		o.Logger = logger
	})

	hist := opts.History
	if hist == nil {
		var err error
		hist, err = newHistoryStore(cfg.Persistence)
		if err != nil {
			return nil, err
		}
	}

	store := opts.SessionStore
	if store == nil {
		store = session.NewInMemoryStore()
	}

	run := runner.New(func(o *runner.Options) {
		o.App = cfg.App.Name
		o.SessionStore = store
		o.Logger = logger
	})

	service := protocol.NewService(builder, skills, run, func(o *protocol.ServiceOptions) {
		o.DefaultUserID = cfg.App.DefaultUserID
		o.SessionPrefix = cfg.App.DefaultSessionPrefix
		o.History = hist
		o.Logger = logger
	})

	return &NexusAgent{
		cfg:     cfg,
		modes:   modes,
		skills:  skills,
		service: service,
		history: hist,
		logger:  logger,
	}, nil
}

// Run executes one streaming turn, delivering protocol events to sink.
func (n *NexusAgent) Run(ctx context.Context, req protocol.RunRequest, sink protocol.Sink) error {
	return n.service.Run(ctx, req, sink)
}

// Chat executes one turn synchronously and returns the terminal summary.
func (n *NexusAgent) Chat(ctx context.Context, req protocol.ChatRequest) (*protocol.Result, error) {
	return n.service.Chat(ctx, req)
}

// History lists prior run summaries for a session, most recent first.
func (n *NexusAgent) History(ctx context.Context, sessionID string, limit int) ([]history.Record, error) {
	return n.service.History(ctx, sessionID, limit)
}

// Skills returns the current skill snapshot.
func (n *NexusAgent) Skills() []skill.Definition { return n.skills.All() }

// ReloadSkills re-scans the skill directory and swaps the snapshot.
func (n *NexusAgent) ReloadSkills() ([]skill.Definition, error) { return n.skills.Reload() }

// ReloadModes re-scans the mode directory and swaps the snapshot.
func (n *NexusAgent) ReloadModes() error { return n.modes.Reload() }

// Close releases held resources (the history store).
func (n *NexusAgent) Close() error { return n.history.Close() }

// providerFactory routes model construction by identifier prefix: anything
// starting with "claude" uses the Anthropic adapter, everything else OpenAI.
func providerFactory() model.Factory {
	anthropicFactory := anthropic.NewFactory()
	openaiFactory := openai.NewFactory()
	return model.FactoryFunc(func(name string, runtime model.RuntimeOptions) (model.Model, error) {
		if strings.HasPrefix(strings.ToLower(name), "claude") {
			return anthropicFactory.NewModel(name, runtime)
		}
		return openaiFactory.NewModel(name, runtime)
	})
}

func newHistoryStore(cfg config.PersistenceConfig) (history.Store, error) {
	if !cfg.Enabled || cfg.Provider == "noop" {
		return history.NoopStore{}, nil
	}
	store, err := history.NewSQLiteStore(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open chat history store: %w", err)
	}
	return store, nil
}
