// Package config loads the runtime configuration: process environment via
// dotenv files and the declarative provider/agent registry via YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ProviderConfig declares one completion provider.
type ProviderConfig struct {
	Name           string   `yaml:"name"`
	DefaultModel   string   `yaml:"default_model"`
	FallbackModels []string `yaml:"fallback_models"`
	// APIKeyEnv names the environment variable holding the provider API key.
	APIKeyEnv string `yaml:"api_key_env"`
}

// APIKey resolves the provider's API key from the environment.
func (p ProviderConfig) APIKey() string {
	if p.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(p.APIKeyEnv)
}

// AgentConfig declares one agent instance.
type AgentConfig struct {
	Type         string  `yaml:"type"`
	Temperature  float64 `yaml:"temperature"`
	MaxTokens    int     `yaml:"max_tokens"`
	SystemPrompt string  `yaml:"system_prompt"`
	Behavior     string  `yaml:"behavior"`
	Provider     string  `yaml:"provider"`
}

// SessionConfig tunes the session store.
type SessionConfig struct {
	TTL        time.Duration `yaml:"ttl"`
	MaxHistory int           `yaml:"max_history"`
	// SQLitePath, when set, backs sessions with SQLite instead of memory.
	SQLitePath string `yaml:"sqlite_path"`
}

// Config is the full runtime configuration.
type Config struct {
	DefaultProvider string           `yaml:"default_provider"`
	FallbackOrder   []string         `yaml:"fallback_order"`
	Providers       []ProviderConfig `yaml:"providers"`
	Agents          []AgentConfig    `yaml:"agents"`
	Session         SessionConfig    `yaml:"session"`
	LogLevel        string           `yaml:"log_level"`
}

// LoadEnv loads dotenv files into the process environment. Missing files are
// ignored so production deployments can rely on real environment variables.
func LoadEnv(paths ...string) {
	for _, p := range paths {
		_ = godotenv.Load(p)
	}
	if len(paths) == 0 {
		_ = godotenv.Load()
	}
}

// Load parses the YAML configuration at path and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML configuration document.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if len(cfg.Providers) == 0 {
		return nil, fmt.Errorf("config declares no providers")
	}
	if cfg.DefaultProvider == "" {
		cfg.DefaultProvider = cfg.Providers[0].Name
	}
	known := make(map[string]bool, len(cfg.Providers))
	for i, p := range cfg.Providers {
		if p.Name == "" {
			return nil, fmt.Errorf("provider %d has no name", i)
		}
		if known[p.Name] {
			return nil, fmt.Errorf("duplicate provider %q", p.Name)
		}
		known[p.Name] = true
	}
	if !known[cfg.DefaultProvider] {
		return nil, fmt.Errorf("default provider %q not declared", cfg.DefaultProvider)
	}
	for _, name := range cfg.FallbackOrder {
		if !known[name] {
			return nil, fmt.Errorf("fallback provider %q not declared", name)
		}
	}

	if cfg.Session.TTL == 0 {
		cfg.Session.TTL = 24 * time.Hour
	}
	if cfg.Session.MaxHistory == 0 {
		cfg.Session.MaxHistory = 100
	}
	return &cfg, nil
}
