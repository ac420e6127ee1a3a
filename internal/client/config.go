package client

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// Config is the terminal client configuration.
type Config struct {
	Server ServerSettings `hcl:"server,block"`
	Player PlayerSettings `hcl:"player,block"`
	UI     UISettings     `hcl:"ui,block"`
}

// ServerSettings names the server to connect to.
type ServerSettings struct {
	Addr string `hcl:"addr,optional"`
}

// PlayerSettings holds the player identity.
type PlayerSettings struct {
	Name string `hcl:"name,optional"`
}

// UISettings configures client-side logging. The TUI owns the
// terminal, so logs go to a file.
type UISettings struct {
	LogFile  string `hcl:"log_file,optional"`
	LogLevel string `hcl:"log_level,optional"`
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerSettings{Addr: "localhost:12345"},
		UI: UISettings{
			LogFile:  "holdem-client.log",
			LogLevel: "info",
		},
	}
}

// LoadConfig loads client configuration from an HCL file, falling back
// to defaults when the file does not exist.
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
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = def.Server.Addr
	}
	if cfg.UI.LogFile == "" {
		cfg.UI.LogFile = def.UI.LogFile
	}
	if cfg.UI.LogLevel == "" {
		cfg.UI.LogLevel = def.UI.LogLevel
	}
	return &cfg, nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server addr is required")
	}
	if c.Player.Name == "" {
		return fmt.Errorf("player name is required")
	}
	return nil
}
