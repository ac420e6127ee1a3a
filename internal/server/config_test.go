package server

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.hcl"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigOverridesAndFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.hcl")
	content := `
server {
  port = 9000
  log_level = "debug"
}

table {
  starting_stack = 5000
}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, 5000, cfg.Table.StartingStack)

	// Unset fields fall back to defaults.
	assert.Equal(t, "0.0.0.0", cfg.Server.Address)
	assert.Equal(t, 4096, cfg.Server.MaxLineBytes)
	assert.Equal(t, 20, cfg.Table.BigBlind)
}

func TestLoadConfigRejectsBadHCL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.hcl")
	require.NoError(t, os.WriteFile(path, []byte("server {"), 0o644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"zero port", func(c *Config) { c.Server.Port = 0 }, false},
		{"ws port collision", func(c *Config) { c.Server.WSPort = c.Server.Port }, false},
		{"tiny line limit", func(c *Config) { c.Server.MaxLineBytes = 16 }, false},
		{"zero stack", func(c *Config) { c.Table.StartingStack = 0 }, false},
		{"zero big blind", func(c *Config) { c.Table.BigBlind = 0 }, false},
		{"negative timeout", func(c *Config) { c.Table.TurnTimeoutSec = -1 }, false},
		{"disabled timeout", func(c *Config) { c.Table.TurnTimeoutSec = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
