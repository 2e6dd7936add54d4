package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	return path
}

func clearEnv(t *testing.T) {
	t.Helper()

	for _, key := range []string{"HOST", "PORT", "MAX_PLAYERS", "WEBHOOK_URL"} {
		t.Setenv(key, "")
	}
}

func TestDefault(t *testing.T) {
	clearEnv(t)

	cfg, err := Default()
	require.NoError(t, err)

	assert.Equal(t, "tictactoe3d", cfg.Server.Name)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 5555, cfg.Server.Port)
	assert.Equal(t, 2, cfg.Server.MaxPlayers)
	assert.Equal(t, "0.0.0.0:5555", cfg.Server.Addr())

	assert.False(t, cfg.Web.Disabled)
	assert.Equal(t, "0.0.0.0:8080", cfg.Web.Addr())

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Empty(t, cfg.Webhook.URL)

	require.NoError(t, cfg.Validate())
}

func TestLoad_reads_every_section(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, `
[server]
name = "match-night"
host = "127.0.0.1"
port = 6000
max_players = 1

[web]
disabled = true
host = "127.0.0.1"
port = 9090

[log]
level = "debug"

[webhook]
url = "https://hooks.example.com/game"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "match-night", cfg.Server.Name)
	assert.Equal(t, "127.0.0.1:6000", cfg.Server.Addr())
	assert.Equal(t, 1, cfg.Server.MaxPlayers)

	assert.True(t, cfg.Web.Disabled)
	assert.Equal(t, "127.0.0.1:9090", cfg.Web.Addr())

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "https://hooks.example.com/game", cfg.Webhook.URL)

	require.NoError(t, cfg.Validate())
}

func TestLoad_fills_missing_fields_with_defaults(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, `
[server]
port = 7777
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "tictactoe3d", cfg.Server.Name)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 7777, cfg.Server.Port)
	assert.Equal(t, 2, cfg.Server.MaxPlayers)
	assert.False(t, cfg.Web.Disabled)
	assert.Equal(t, 8080, cfg.Web.Port)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_missing_file(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoad_malformed_file(t *testing.T) {
	path := writeConfig(t, "this is ][ not toml")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}

func TestLoad_environment_overrides_file(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOST", "10.0.0.5")
	t.Setenv("PORT", "6100")
	t.Setenv("MAX_PLAYERS", "1")
	t.Setenv("WEBHOOK_URL", "https://hooks.example.com/env")

	path := writeConfig(t, `
[server]
host = "127.0.0.1"
port = 6000
max_players = 2

[webhook]
url = "https://hooks.example.com/file"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.5", cfg.Server.Host)
	assert.Equal(t, 6100, cfg.Server.Port)
	assert.Equal(t, 1, cfg.Server.MaxPlayers)
	assert.Equal(t, "https://hooks.example.com/env", cfg.Webhook.URL)
}

func TestLoad_rejects_malformed_overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "not-a-port")

	_, err := Default()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid PORT")

	t.Setenv("PORT", "")
	t.Setenv("MAX_PLAYERS", "two")

	_, err = Default()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid MAX_PLAYERS")
}

func TestConfig_Validate(t *testing.T) {
	clearEnv(t)

	base := func() *Config {
		cfg, err := Default()
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantErr string
	}{
		{
			name:   "default config is valid",
			mutate: func(cfg *Config) {},
		},
		{
			name: "empty name",
			mutate: func(cfg *Config) {
				cfg.Server.Name = ""
			},
			wantErr: "server name",
		},
		{
			name: "port out of range",
			mutate: func(cfg *Config) {
				cfg.Server.Port = 70000
			},
			wantErr: "invalid port",
		},
		{
			name: "zero players",
			mutate: func(cfg *Config) {
				cfg.Server.MaxPlayers = 0
			},
			wantErr: "max_players",
		},
		{
			name: "too many players",
			mutate: func(cfg *Config) {
				cfg.Server.MaxPlayers = 3
			},
			wantErr: "max_players",
		},
		{
			name: "invalid web port",
			mutate: func(cfg *Config) {
				cfg.Web.Port = -1
			},
			wantErr: "invalid web port",
		},
		{
			name: "web port ignored when disabled",
			mutate: func(cfg *Config) {
				cfg.Web.Disabled = true
				cfg.Web.Port = -1
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
