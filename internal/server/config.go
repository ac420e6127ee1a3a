package server

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// Config is the complete server configuration.
type Config struct {
	Server ServerSettings `hcl:"server,block"`
	Table  TableSettings  `hcl:"table,block"`
}

// ServerSettings contains listener-level configuration.
type ServerSettings struct {
	Address      string `hcl:"address,optional"`
	Port         int    `hcl:"port,optional"`
	WSPort       int    `hcl:"ws_port,optional"` // 0 disables the websocket listener
	LogLevel     string `hcl:"log_level,optional"`
	MaxLineBytes int    `hcl:"max_line_bytes,optional"`
}

// TableSettings contains game configuration for the single table.
type TableSettings struct {
	StartingStack  int `hcl:"starting_stack,optional"`
	BigBlind       int `hcl:"big_blind,optional"` // base min-raise for each betting round
	TurnTimeoutSec int `hcl:"turn_timeout_seconds,optional"`
}

// DefaultConfig returns the default configuration. The TCP port matches
// the reference deployment.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerSettings{
			Address:      "0.0.0.0",
			Port:         12345,
			WSPort:       0,
			LogLevel:     "info",
			MaxLineBytes: 4096,
		},
		Table: TableSettings{
			StartingStack:  1000,
			BigBlind:       20,
			TurnTimeoutSec: 30,
		},
	}
}

// LoadConfig loads configuration from an HCL file, falling back to
// defaults when the file does not exist.
func LoadConfig(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var cfg Config
	diags = gohcl.DecodeBody(file.Body, nil, &cfg)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	def := DefaultConfig()
	if cfg.Server.Address == "" {
		cfg.Server.Address = def.Server.Address
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = def.Server.Port
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = def.Server.LogLevel
	}
	if cfg.Server.MaxLineBytes == 0 {
		cfg.Server.MaxLineBytes = def.Server.MaxLineBytes
	}
	if cfg.Table.StartingStack == 0 {
		cfg.Table.StartingStack = def.Table.StartingStack
	}
	if cfg.Table.BigBlind == 0 {
		cfg.Table.BigBlind = def.Table.BigBlind
	}
	if cfg.Table.TurnTimeoutSec == 0 {
		cfg.Table.TurnTimeoutSec = def.Table.TurnTimeoutSec
	}

	return &cfg, nil
}

// Validate checks the configuration for internally consistent values.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Server.WSPort < 0 || c.Server.WSPort > 65535 {
		return fmt.Errorf("invalid websocket port: %d", c.Server.WSPort)
	}
	if c.Server.WSPort != 0 && c.Server.WSPort == c.Server.Port {
		return fmt.Errorf("websocket port must differ from tcp port")
	}
	if c.Server.MaxLineBytes < 64 {
		return fmt.Errorf("max_line_bytes too small: %d", c.Server.MaxLineBytes)
	}
	if c.Table.StartingStack <= 0 {
		return fmt.Errorf("starting stack must be positive")
	}
	if c.Table.BigBlind <= 0 {
		return fmt.Errorf("big blind must be positive")
	}
	if c.Table.TurnTimeoutSec < 0 {
		return fmt.Errorf("turn timeout must not be negative")
	}
	return nil
}

// TCPAddr returns the TCP listen address.
func (c *Config) TCPAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// WSAddr returns the websocket listen address, or "" when disabled.
func (c *Config) WSAddr() string {
	if c.Server.WSPort == 0 {
		return ""
	}
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.WSPort)
}
