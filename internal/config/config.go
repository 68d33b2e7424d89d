package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level tfpilot configuration.
type Config struct {
	Provider string        `yaml:"provider"` // "gemini" or "ollama"
	Model    ModelConfig   `yaml:"model"`
	API      APIConfig     `yaml:"api"`
	Agent    AgentConfig   `yaml:"agent"`
	Logging  LoggingConfig `yaml:"logging"`
	WorkDir  string        `yaml:"work_dir"`
}

// ModelConfig holds generation parameters.
type ModelConfig struct {
	Name            string  `yaml:"name"`
	Temperature     float32 `yaml:"temperature"`
	MaxOutputTokens int32   `yaml:"max_output_tokens"`
}

// APIConfig holds provider connection settings.
type APIConfig struct {
	GeminiKey     string        `yaml:"gemini_key,omitempty"`
	OllamaBaseURL string        `yaml:"ollama_base_url"`
	MaxRetries    int           `yaml:"max_retries"`
	RetryDelay    time.Duration `yaml:"retry_delay"`
}

// AgentConfig bounds the conversation loop.
type AgentConfig struct {
	MaxSteps int `yaml:"max_steps"` // model step budget per turn
}

// LoggingConfig controls the JSON log output.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  bool   `yaml:"file"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Provider: "gemini",
		Model: ModelConfig{
			Name:            "gemini-2.5-flash",
			Temperature:     0.2,
			MaxOutputTokens: 8192,
		},
		API: APIConfig{
			OllamaBaseURL: "http://localhost:11434",
			MaxRetries:    3,
			RetryDelay:    time.Second,
		},
		Agent: AgentConfig{
			MaxSteps: 10,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads the config file at path, merging it over defaults.
// A missing file is not an error; environment overrides apply last.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays environment variables onto the config.
// Keys are never written back to the config file.
func (c *Config) applyEnv() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.API.GeminiKey = key
	}
	if url := os.Getenv("OLLAMA_HOST"); url != "" {
		c.API.OllamaBaseURL = url
	}
}

// Validate checks the config for unusable values.
func (c *Config) Validate() error {
	switch c.Provider {
	case "gemini", "ollama":
	default:
		return fmt.Errorf("unknown provider: %q", c.Provider)
	}
	if c.Model.Name == "" {
		return fmt.Errorf("model name is required")
	}
	if c.Agent.MaxSteps <= 0 {
		return fmt.Errorf("agent.max_steps must be positive, got %d", c.Agent.MaxSteps)
	}
	return nil
}
