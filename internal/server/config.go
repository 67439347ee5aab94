package server

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/Babyy-dev/blackjack/internal/game"
)

// ServerConfig represents the complete server configuration
type ServerConfig struct {
	Server ServerSettings `hcl:"server,block"`
	Tables []TableConfig  `hcl:"table,block"`
}

// ServerSettings contains server-level configuration
type ServerSettings struct {
	Address     string `hcl:"address,optional"`
	Port        int    `hcl:"port,optional"`
	LogLevel    string `hcl:"log_level,optional"`
	AdminToken  string `hcl:"admin_token,optional"`
	DatabaseURL string `hcl:"database_url,optional"`
}

// TableConfig defines a blackjack table configuration
type TableConfig struct {
	Name          string `hcl:"name,label"`
	MinBet        int    `hcl:"min_bet,optional"`
	MaxBet        int    `hcl:"max_bet,optional"`
	Decks         int    `hcl:"decks,optional"`
	StartingBank  int    `hcl:"starting_bank,optional"`
	TurnTimeout   int    `hcl:"turn_timeout,optional"`   // seconds
	RoundInterval int    `hcl:"round_interval,optional"` // seconds
	MaxPlayers    int    `hcl:"max_players,optional"`
	AutoRestart   bool   `hcl:"auto_restart,optional"`
	Private       bool   `hcl:"private,optional"`
}

// Rules converts a table configuration to engine rules.
func (t TableConfig) Rules() game.Rules {
	return game.Rules{
		MinBet:       t.MinBet,
		MaxBet:       t.MaxBet,
		Decks:        t.Decks,
		StartingBank: t.StartingBank,
	}
}

// TurnTimeoutDuration returns the turn timeout as a duration.
func (t TableConfig) TurnTimeoutDuration() time.Duration {
	return time.Duration(t.TurnTimeout) * time.Second
}

// RoundIntervalDuration returns the inter-round delay as a duration.
func (t TableConfig) RoundIntervalDuration() time.Duration {
	return time.Duration(t.RoundInterval) * time.Second
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() *ServerConfig {
	defaults := game.DefaultRules()
	return &ServerConfig{
		Server: ServerSettings{
			Address:  "localhost",
			Port:     8080,
			LogLevel: "info",
		},
		Tables: []TableConfig{
			{
				Name:          "main",
				MinBet:        defaults.MinBet,
				MaxBet:        defaults.MaxBet,
				Decks:         defaults.Decks,
				StartingBank:  defaults.StartingBank,
				TurnTimeout:   30,
				RoundInterval: 5,
				MaxPlayers:    MaxTablePlayers,
				AutoRestart:   true,
			},
		},
	}
}

// LoadServerConfig loads server configuration from HCL file
func LoadServerConfig(filename string) (*ServerConfig, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultServerConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config ServerConfig
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	if config.Server.Address == "" {
		config.Server.Address = "localhost"
	}
	if config.Server.Port == 0 {
		config.Server.Port = 8080
	}
	if config.Server.LogLevel == "" {
		config.Server.LogLevel = "info"
	}

	defaults := game.DefaultRules()
	for i := range config.Tables {
		t := &config.Tables[i]
		if t.MinBet == 0 {
			t.MinBet = defaults.MinBet
		}
		if t.MaxBet == 0 {
			t.MaxBet = defaults.MaxBet
		}
		if t.Decks == 0 {
			t.Decks = defaults.Decks
		}
		if t.StartingBank == 0 {
			t.StartingBank = defaults.StartingBank
		}
		if t.TurnTimeout == 0 {
			t.TurnTimeout = 30
		}
		if t.RoundInterval == 0 {
			t.RoundInterval = 5
		}
		if t.MaxPlayers == 0 {
			t.MaxPlayers = MaxTablePlayers
		}
	}

	return &config, nil
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if len(c.Tables) == 0 {
		return fmt.Errorf("at least one table must be configured")
	}
	for _, t := range c.Tables {
		if err := t.Rules().Validate(); err != nil {
			return fmt.Errorf("table %s: %w", t.Name, err)
		}
		if t.TurnTimeout < 5 {
			return fmt.Errorf("table %s: turn timeout must be at least 5 seconds", t.Name)
		}
		if t.MaxPlayers < MinTablePlayers || t.MaxPlayers > MaxTablePlayers {
			return fmt.Errorf("table %s: max players must be between %d and %d",
				t.Name, MinTablePlayers, MaxTablePlayers)
		}
	}
	return nil
}

// GetServerAddress returns the full server address
func (c *ServerConfig) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// GetTableByName returns a table configuration by name
func (c *ServerConfig) GetTableByName(name string) *TableConfig {
	for _, t := range c.Tables {
		if t.Name == name {
			return &t
		}
	}
	return nil
}
