// Package config loads runtime configuration for nexus-agent from a YAML
// file, applying sensible defaults for anything left unset.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level runtime configuration.
type Config struct {
	App         AppConfig         `yaml:"app"`
	Modes       ModesConfig       `yaml:"modes"`
	Skills      SkillsConfig      `yaml:"skills"`
	Persistence PersistenceConfig `yaml:"persistence"`
}

// AppConfig holds application identity and model defaults.
type AppConfig struct {
	Name string `yaml:"name"`
	// Model is the default model identifier used when a request carries no
	// override.
	Model string `yaml:"model"`
	// AvailableModels, when non-empty, is the allow-list a model override
	// must match (case-insensitively). Empty means any override is accepted.
	AvailableModels      []string `yaml:"available_models"`
	DefaultUserID        string   `yaml:"default_user_id"`
	DefaultSessionPrefix string   `yaml:"default_session_prefix"`
}

// ModesConfig locates the mode definition directory.
type ModesConfig struct {
	Path string `yaml:"path"`
}

// SkillsConfig locates the skill definition directory and sets the tool
// resolution policy.
type SkillsConfig struct {
	Path string `yaml:"path"`
	// StrictTools turns tool names that resolve to no registered tool into a
	// hard error instead of being dropped.
	StrictTools bool `yaml:"strict_tools"`
}

// PersistenceConfig selects the chat history backend.
type PersistenceConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Provider string `yaml:"provider"` // "sqlite" or "noop"
	Path     string `yaml:"path"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		App: AppConfig{
			Name:                 "nexus-agent",
			Model:                "gpt-4o-mini",
			DefaultUserID:        "local-user",
			DefaultSessionPrefix: "sess",
		},
		Modes:  ModesConfig{Path: "config/modes"},
		Skills: SkillsConfig{Path: "config/skills"},
		Persistence: PersistenceConfig{
			Enabled:  true,
			Provider: "sqlite",
			Path:     "data/nexus-agent.db",
		},
	}
}

// Load reads the YAML file at path on top of defaults. A missing file is not
// an error; defaults are returned unchanged.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app.name must not be empty")
	}
	if c.App.Model == "" {
		return fmt.Errorf("app.model must not be empty")
	}
	if c.Persistence.Enabled {
		switch c.Persistence.Provider {
		case "sqlite", "noop":
		default:
			return fmt.Errorf("persistence.provider must be sqlite or noop, got %q", c.Persistence.Provider)
		}
	}
	return nil
}
