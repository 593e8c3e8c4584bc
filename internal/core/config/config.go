// Package config handles configuration loading and validation for redline.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/colonyops/redline/internal/core/diffsession"
)

// Provider names understood by the generate package.
const (
	ProviderStatic    = "static"
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"
	ProviderLua       = "lua"
)

// DefaultPrompt is the prompt template used when none is configured.
const DefaultPrompt = `Rewrite the selected text according to the instruction.
Reply with the replacement text only, in markdown, without commentary.

Instruction: {{ trim .Instruction }}

Surrounding context:
{{ default "(none)" .Context | fence }}

Selected text:
{{ .Selection | fence }}`

// Storage backends for history and notifications.
const (
	StorageJSON   = "json"
	StorageSQLite = "sqlite"
)

// Config holds the application configuration.
type Config struct {
	Strategy    diffsession.Strategy `yaml:"strategy" toml:"strategy"`
	Rules       []Rule               `yaml:"rules" toml:"rules"`
	Provider    ProviderConfig       `yaml:"provider" toml:"provider"`
	History     HistoryConfig        `yaml:"history" toml:"history"`
	Storage     StorageConfig        `yaml:"storage" toml:"storage"`
	Server      ServerConfig         `yaml:"server" toml:"server"`
	Render      RenderConfig         `yaml:"render" toml:"render"`
	EventBuffer int                  `yaml:"event_buffer" toml:"event_buffer"`
	Vars        map[string]any       `yaml:"vars" toml:"vars"`
	DataDir     string               `yaml:"-" toml:"-"` // set by caller, not from config file
	File        string               `yaml:"-" toml:"-"` // path Load read from, if any
}

// Rule selects a strategy for documents whose path matches Pattern.
type Rule struct {
	// Pattern is a doublestar glob matched against the document path.
	Pattern  string               `yaml:"pattern" toml:"pattern"`
	Strategy diffsession.Strategy `yaml:"strategy" toml:"strategy"`
}

// ProviderConfig configures the text generator.
type ProviderConfig struct {
	Name      string `yaml:"name" toml:"name"`
	Model     string `yaml:"model" toml:"model"`
	APIKeyEnv string `yaml:"api_key_env" toml:"api_key_env"`
	MaxTokens int    `yaml:"max_tokens" toml:"max_tokens"`
	Script    string `yaml:"script" toml:"script"` // lua provider only
	System    string `yaml:"system" toml:"system"`
	Prompt    string `yaml:"prompt" toml:"prompt"` // text/template, see pkg/tmpl
}

// HistoryConfig controls the resolution history file.
type HistoryConfig struct {
	MaxEntries int `yaml:"max_entries" toml:"max_entries"`
}

// StorageConfig selects where history and notifications are kept. The json
// backend keeps history in a file and notifications in memory; sqlite keeps
// both in <data-dir>/redline.db.
type StorageConfig struct {
	Backend      string `yaml:"backend" toml:"backend"`
	MaxOpenConns int    `yaml:"max_open_conns" toml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns" toml:"max_idle_conns"`
	BusyTimeout  int    `yaml:"busy_timeout" toml:"busy_timeout"` // milliseconds
}

// ServerConfig configures `redline serve`.
type ServerConfig struct {
	Addr string `yaml:"addr" toml:"addr"`
}

// RenderConfig configures terminal rendering of documents.
type RenderConfig struct {
	Style string `yaml:"style" toml:"style"` // glamour style name, "auto" or "theme"
	Theme string `yaml:"theme" toml:"theme"` // palette for annotations and the review view
	Width int    `yaml:"width" toml:"width"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Strategy: diffsession.StrategyBlock,
		Provider: ProviderConfig{
			Name:      ProviderStatic,
			MaxTokens: 1024,
			Prompt:    DefaultPrompt,
		},
		History: HistoryConfig{MaxEntries: 200},
		Storage: StorageConfig{
			Backend:      StorageJSON,
			MaxOpenConns: 10,
			MaxIdleConns: 5,
			BusyTimeout:  5000,
		},
		Server:      ServerConfig{Addr: "127.0.0.1:7420"},
		Render:      RenderConfig{Style: "auto", Theme: "tokyo-night", Width: 80},
		EventBuffer: 256,
	}
}

// Load reads configuration from the given path and sets the data directory.
// The format follows the file extension: .toml is TOML, anything else YAML.
// If configPath is empty or doesn't exist, returns defaults with the provided dataDir.
func Load(configPath, dataDir string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.DataDir = dataDir

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}

			if err := unmarshal(configPath, data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}

			// Re-set dataDir since Unmarshal may have cleared it
			cfg.DataDir = dataDir
			cfg.File = configPath
		}
	}

	// Apply defaults for zero values
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func unmarshal(path string, data []byte, cfg *Config) error {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return toml.Unmarshal(data, cfg)
	}
	return yaml.Unmarshal(data, cfg)
}

// applyDefaults sets default values for any unset configuration options.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.Strategy == "" {
		c.Strategy = defaults.Strategy
	}
	if c.Provider.Name == "" {
		c.Provider.Name = defaults.Provider.Name
	}
	if c.Provider.MaxTokens == 0 {
		c.Provider.MaxTokens = defaults.Provider.MaxTokens
	}
	if c.Provider.Prompt == "" {
		c.Provider.Prompt = defaults.Provider.Prompt
	}
	if c.Provider.APIKeyEnv == "" {
		c.Provider.APIKeyEnv = defaultAPIKeyEnv(c.Provider.Name)
	}
	if c.History.MaxEntries == 0 {
		c.History.MaxEntries = defaults.History.MaxEntries
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = defaults.Storage.Backend
	}
	if c.Storage.MaxOpenConns == 0 {
		c.Storage.MaxOpenConns = defaults.Storage.MaxOpenConns
	}
	if c.Storage.MaxIdleConns == 0 {
		c.Storage.MaxIdleConns = defaults.Storage.MaxIdleConns
	}
	if c.Storage.BusyTimeout == 0 {
		c.Storage.BusyTimeout = defaults.Storage.BusyTimeout
	}
	if c.Server.Addr == "" {
		c.Server.Addr = defaults.Server.Addr
	}
	if c.Render.Style == "" {
		c.Render.Style = defaults.Render.Style
	}
	if c.Render.Theme == "" {
		c.Render.Theme = defaults.Render.Theme
	}
	if c.Render.Width == 0 {
		c.Render.Width = defaults.Render.Width
	}
	if c.EventBuffer == 0 {
		c.EventBuffer = defaults.EventBuffer
	}
}

func defaultAPIKeyEnv(provider string) string {
	switch provider {
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderGemini:
		return "GEMINI_API_KEY"
	default:
		return ""
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data directory cannot be empty")
	}

	if !c.Strategy.IsValid() {
		return fmt.Errorf("strategy %q must be inline or block", c.Strategy)
	}

	for i, rule := range c.Rules {
		if rule.Pattern == "" {
			return fmt.Errorf("rules[%d]: pattern is required", i)
		}
		if !rule.Strategy.IsValid() {
			return fmt.Errorf("rules[%d]: strategy %q must be inline or block", i, rule.Strategy)
		}
	}

	if !isValidProvider(c.Provider.Name) {
		return fmt.Errorf("provider.name %q is not a known provider", c.Provider.Name)
	}
	if c.Provider.Name == ProviderLua && c.Provider.Script == "" {
		return fmt.Errorf("provider.script is required for the lua provider")
	}
	if c.Provider.MaxTokens < 1 {
		return fmt.Errorf("provider.max_tokens must be at least 1")
	}

	if c.History.MaxEntries < 0 {
		return fmt.Errorf("history.max_entries cannot be negative")
	}

	switch c.Storage.Backend {
	case StorageJSON, StorageSQLite:
	default:
		return fmt.Errorf("storage.backend %q must be json or sqlite", c.Storage.Backend)
	}

	if c.EventBuffer < 1 {
		return fmt.Errorf("event_buffer must be at least 1")
	}

	if c.Render.Width < 20 {
		return fmt.Errorf("render.width must be at least 20")
	}

	return nil
}

// StrategyFor returns the strategy of the first rule matching docPath, or
// the default strategy.
func (c *Config) StrategyFor(docPath string) diffsession.Strategy {
	p := filepath.ToSlash(docPath)
	for _, rule := range c.Rules {
		if ok, _ := doublestar.Match(rule.Pattern, p); ok {
			return rule.Strategy
		}
		if ok, _ := doublestar.Match(rule.Pattern, filepath.Base(p)); ok {
			return rule.Strategy
		}
	}
	return c.Strategy
}

// HistoryFile returns the path to the resolution history JSON file.
func (c *Config) HistoryFile() string {
	return filepath.Join(c.DataDir, "history.json")
}

// ScriptFile returns provider.script resolved relative to the config file.
func (c *Config) ScriptFile() string {
	return c.scriptPath(c.File)
}

// LogFile returns the default log file path.
func (c *Config) LogFile() string {
	return filepath.Join(c.DataDir, "redline.log")
}

func isValidProvider(name string) bool {
	switch name {
	case ProviderStatic, ProviderAnthropic, ProviderOpenAI, ProviderGemini, ProviderLua:
		return true
	default:
		return false
	}
}
