package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

const (
	defaultPort          = 8080
	defaultMaxToolRounds = 4
)

// Config represents the application configuration. Every field has a usable
// default; the config file is optional because per-request credentials arrive
// from the client, not from the server.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Chat   ChatConfig   `yaml:"chat"`
	Search SearchConfig `yaml:"search"`
}

// ServerConfig defines listener configuration.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// ChatConfig tunes the generation relay.
type ChatConfig struct {
	// MaxToolRounds bounds how many times a single request may execute
	// tools and re-invoke the model.
	MaxToolRounds int `yaml:"max_tool_rounds"`
}

// SearchConfig holds the single server-held secret: the web-search service
// credential. It is read once at startup and never written.
type SearchConfig struct {
	TavilyAPIKey string `yaml:"tavily_api_key"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Server: ServerConfig{Port: defaultPort},
		Chat:   ChatConfig{MaxToolRounds: defaultMaxToolRounds},
	}
}

// Load reads YAML configuration from disk, applies environment overrides and
// validates the result. An empty path yields the defaults plus environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return Config{}, fmt.Errorf("resolve config path: %w", err)
		}

		data, err := os.ReadFile(absPath)
		if err != nil {
			return Config{}, fmt.Errorf("read config file %q: %w", absPath, err)
		}

		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %q: %w", absPath, err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if key := os.Getenv("TAVILY_API_KEY"); key != "" {
		cfg.Search.TavilyAPIKey = key
	}
	if port := os.Getenv("PORT"); port != "" {
		if v, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = v
		}
	}
}

// Validate performs strict sanity checks on the configuration.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be a valid TCP port, got %d", c.Server.Port)
	}
	if c.Chat.MaxToolRounds < 0 {
		return fmt.Errorf("chat.max_tool_rounds must not be negative, got %d", c.Chat.MaxToolRounds)
	}
	return nil
}
