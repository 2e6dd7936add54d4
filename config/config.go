// Package config loads the server configuration from a TOML file, fills in
// defaults, and applies environment overrides.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
)

// Config is the full server configuration.
type Config struct {
	Server  ServerConfig
	Web     WebConfig
	Log     LogConfig
	Webhook WebhookConfig
}

// ServerConfig configures the TCP game server.
type ServerConfig struct {
	Name       string `toml:"name"`
	Host       string `toml:"host"`
	Port       int    `toml:"port"`
	MaxPlayers int    `toml:"max_players"`
}

// WebConfig configures the HTTP gateway, which runs unless disabled.
type WebConfig struct {
	Disabled bool   `toml:"disabled"`
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `toml:"level"`
}

// WebhookConfig configures the game result webhook.
type WebhookConfig struct {
	URL string `toml:"url"`
}

// Addr returns the "host:port" the game server binds.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// Addr returns the "host:port" the HTTP gateway binds.
func (w WebConfig) Addr() string {
	return net.JoinHostPort(w.Host, strconv.Itoa(w.Port))
}

// Default returns the configuration used when no file is given: the game
// server on 0.0.0.0:5555 for two players, the web gateway on 0.0.0.0:8080,
// info-level logging, no webhook. Environment overrides are applied.
//
// Returns:
//   - The default configuration, or an error from a malformed override
func Default() (*Config, error) {
	var config Config
	applyDefaults(&config)

	if err := applyEnvOverrides(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// Load reads a TOML configuration file. Missing fields fall back to
// defaults and environment overrides are applied on top of the file.
//
// Parameters:
//   - path: The configuration file to read
//
// Returns:
//   - The loaded configuration, or an error from reading, parsing, or a
//     malformed environment override
func Load(path string) (*Config, error) {
	var config Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyDefaults(&config)

	if err := applyEnvOverrides(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func applyDefaults(config *Config) {
	if config.Server.Name == "" {
		config.Server.Name = "tictactoe3d"
	}

	if config.Server.Host == "" {
		config.Server.Host = "0.0.0.0"
	}

	if config.Server.Port == 0 {
		config.Server.Port = 5555
	}

	if config.Server.MaxPlayers == 0 {
		config.Server.MaxPlayers = 2
	}

	if config.Web.Host == "" {
		config.Web.Host = "0.0.0.0"
	}

	if config.Web.Port == 0 {
		config.Web.Port = 8080
	}

	if config.Log.Level == "" {
		config.Log.Level = "info"
	}
}

// applyEnvOverrides applies HOST, PORT, MAX_PLAYERS, and WEBHOOK_URL over
// whatever the file provided.
func applyEnvOverrides(config *Config) error {
	if host := os.Getenv("HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("PORT"); port != "" {
		value, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", port, err)
		}
		config.Server.Port = value
	}

	if maxPlayers := os.Getenv("MAX_PLAYERS"); maxPlayers != "" {
		value, err := strconv.Atoi(maxPlayers)
		if err != nil {
			return fmt.Errorf("invalid MAX_PLAYERS %q: %w", maxPlayers, err)
		}
		config.Server.MaxPlayers = value
	}

	if url := os.Getenv("WEBHOOK_URL"); url != "" {
		config.Webhook.URL = url
	}

	return nil
}

// Validate checks the configuration for values the server cannot run with.
//
// Returns:
//   - An error naming the first invalid field, or nil
func (c *Config) Validate() error {
	if c.Server.Name == "" {
		return fmt.Errorf("server name cannot be empty")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}

	if c.Server.MaxPlayers <= 0 || c.Server.MaxPlayers > 2 {
		return fmt.Errorf("max_players must be between 1 and 2")
	}

	if !c.Web.Disabled {
		if c.Web.Port <= 0 || c.Web.Port > 65535 {
			return fmt.Errorf("invalid web port: %d", c.Web.Port)
		}
	}

	return nil
}
