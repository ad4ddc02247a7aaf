package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config holds everything the bridge needs at startup.
type Config struct {
	// Editor identifies the host to the language server.
	Editor EditorConfig `yaml:"editor"`

	// Timing holds the loop intervals and the shutdown grace.
	Timing TimingConfig `yaml:"timing"`

	// Chat configures the conversation lane.
	Chat ChatConfig `yaml:"chat"`

	// Logging configures log output.
	Logging LoggingConfig `yaml:"logging"`

	// IPCBase overrides the cache directory the per-pid IPC directory
	// lives under. Empty means the XDG cache default.
	IPCBase string `yaml:"ipcBase"`
}

// EditorConfig is the identity reported in the initialize handshake.
type EditorConfig struct {
	// Name is the editor name.
	Name string `yaml:"name"`

	// Version is the editor version.
	Version string `yaml:"version"`

	// PluginName is the copilot plugin name.
	PluginName string `yaml:"pluginName"`

	// PluginVersion is the copilot plugin version.
	PluginVersion string `yaml:"pluginVersion"`
}

// TimingConfig holds the bridge's loop intervals.
type TimingConfig struct {
	// CommandPoll is how often the command logs are checked for new
	// lines between filesystem wakeups.
	CommandPoll time.Duration `yaml:"commandPoll"`

	// HostCheck is how often the host editor's liveness is probed.
	HostCheck time.Duration `yaml:"hostCheck"`

	// StopGrace is how long the language server gets to exit on
	// SIGTERM before SIGKILL.
	StopGrace time.Duration `yaml:"stopGrace"`
}

// ChatConfig configures the conversation lane.
type ChatConfig struct {
	// Enabled turns the chat lane on.
	Enabled bool `yaml:"enabled"`

	// Model is the model the lane starts on.
	Model string `yaml:"model"`

	// Credentials come from the environment, never the file.
	OpenAIKey     string `yaml:"-"`
	OpenAIBaseURL string `yaml:"-"`
	AnthropicKey  string `yaml:"-"`
	GeminiKey     string `yaml:"-"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	// Level is the logging verbosity ("debug", "info", "warn", "error").
	Level string `yaml:"level"`

	// File is an extra log file path. Empty logs to the default
	// bridge.log under the cache directory.
	File string `yaml:"file"`
}

// Errors returned by configuration validation.
var (
	// ErrInvalidLogLevel indicates an unknown logging level name.
	ErrInvalidLogLevel = errors.New("invalid log level")

	// ErrInvalidInterval indicates a non-positive loop interval.
	ErrInvalidInterval = errors.New("interval must be positive")

	// ErrMissingIdentity indicates an empty editor or plugin name.
	ErrMissingIdentity = errors.New("editor identity must not be empty")

	// ErrMissingModel indicates chat is enabled without a model.
	ErrMissingModel = errors.New("chat model must not be empty")
)

// Default returns the compiled-in configuration.
func Default() *Config {
	return &Config{
		Editor: EditorConfig{
			Name:          "Keystorm",
			Version:       "1.0.0",
			PluginName:    "GitHub Copilot for Keystorm",
			PluginVersion: "1.0.0",
		},
		Timing: TimingConfig{
			CommandPoll: 50 * time.Millisecond,
			HostCheck:   2 * time.Second,
			StopGrace:   3 * time.Second,
		},
		Chat: ChatConfig{
			Enabled: true,
			Model:   "gpt-4o",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load builds the effective configuration: defaults, then the optional
// YAML file, then environment overrides, then validation.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv layers environment overrides on top of the file values.
func (c *Config) applyEnv() {
	if v, ok := os.LookupEnv("COPILOT_BRIDGE_LOG_LEVEL"); ok {
		c.Logging.Level = v
	}
	if v, ok := os.LookupEnv("COPILOT_BRIDGE_LOG_FILE"); ok {
		c.Logging.File = v
	}
	if v, ok := os.LookupEnv("COPILOT_BRIDGE_IPC_BASE"); ok {
		c.IPCBase = v
	}
	if v, ok := os.LookupEnv("COPILOT_BRIDGE_CHAT_MODEL"); ok {
		c.Chat.Model = v
	}

	c.Chat.OpenAIKey = os.Getenv("OPENAI_API_KEY")
	c.Chat.OpenAIBaseURL = os.Getenv("OPENAI_BASE_URL")
	c.Chat.AnthropicKey = os.Getenv("ANTHROPIC_API_KEY")
	c.Chat.GeminiKey = os.Getenv("GEMINI_API_KEY")
}

// Validate checks the configuration for values the bridge cannot run
// with.
func (c *Config) Validate() error {
	if _, err := logrus.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Logging.Level)
	}
	if c.Timing.CommandPoll <= 0 || c.Timing.HostCheck <= 0 || c.Timing.StopGrace <= 0 {
		return ErrInvalidInterval
	}
	if c.Editor.Name == "" || c.Editor.PluginName == "" {
		return ErrMissingIdentity
	}
	if c.Chat.Enabled && c.Chat.Model == "" {
		return ErrMissingModel
	}
	return nil
}

// Level returns the parsed logrus level. Call Validate first.
func (c *Config) Level() logrus.Level {
	level, err := logrus.ParseLevel(c.Logging.Level)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}
