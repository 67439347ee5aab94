package server

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "server.hcl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadServerConfig(t *testing.T) {
	path := writeConfig(t, `
server {
  address     = "0.0.0.0"
  port        = 9090
  log_level   = "debug"
  admin_token = "hunter2"
}

table "high-rollers" {
  min_bet       = 100
  max_bet       = 5000
  decks         = 8
  starting_bank = 10000
  turn_timeout  = 20
  max_players   = 4
  auto_restart  = true
  private       = true
}

table "casual" {
  min_bet = 5
  max_bet = 100
}
`)

	cfg, err := LoadServerConfig(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "0.0.0.0:9090", cfg.GetServerAddress())
	assert.Equal(t, "hunter2", cfg.Server.AdminToken)
	require.Len(t, cfg.Tables, 2)

	high := cfg.GetTableByName("high-rollers")
	require.NotNil(t, high)
	assert.Equal(t, 100, high.MinBet)
	assert.Equal(t, 8, high.Decks)
	assert.Equal(t, 4, high.MaxPlayers)
	assert.True(t, high.Private)

	// Unset fields fall back to the house defaults.
	casual := cfg.GetTableByName("casual")
	require.NotNil(t, casual)
	assert.Equal(t, 6, casual.Decks)
	assert.Equal(t, 2500, casual.StartingBank)
	assert.Equal(t, 30, casual.TurnTimeout)
	assert.Equal(t, 5, casual.RoundInterval)
	assert.Equal(t, MaxTablePlayers, casual.MaxPlayers)
}

func TestLoadServerConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadServerConfig(filepath.Join(t.TempDir(), "nope.hcl"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "localhost:8080", cfg.GetServerAddress())
	require.Len(t, cfg.Tables, 1)
	assert.Equal(t, "main", cfg.Tables[0].Name)
}

func TestServerConfigValidate(t *testing.T) {
	cfg := DefaultServerConfig()
	cfg.Tables[0].Decks = 20
	assert.Error(t, cfg.Validate())

	cfg = DefaultServerConfig()
	cfg.Tables[0].TurnTimeout = 1
	assert.Error(t, cfg.Validate())

	cfg = DefaultServerConfig()
	cfg.Tables[0].MaxPlayers = 12
	assert.Error(t, cfg.Validate())

	cfg = DefaultServerConfig()
	cfg.Tables = nil
	assert.Error(t, cfg.Validate())

	cfg = DefaultServerConfig()
	cfg.Server.Port = 99999
	assert.Error(t, cfg.Validate())
}

func TestLoadServerConfigBadHCL(t *testing.T) {
	path := writeConfig(t, `table "broken" {`)
	_, err := LoadServerConfig(path)
	assert.Error(t, err)
}
