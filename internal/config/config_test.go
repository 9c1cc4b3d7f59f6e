package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nigel-Baldwen/Ascension/internal/resolve"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ascension.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultsAreValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 100*time.Second, cfg.RoundDuration())
	assert.Equal(t, resolve.Hold, cfg.Policy())
	assert.Equal(t, log.InfoLevel, cfg.Level())
}

func TestLoadOverridesDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	path := writeConfig(t, `
grid_size: 20
players: 2
round_length: 30s
seed: 42
map: corridor
reattempt: replan
log_level: debug
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.GridSize)
	assert.Equal(t, 2, cfg.Players)
	assert.Equal(t, 30*time.Second, cfg.RoundDuration())
	assert.Equal(t, int64(42), cfg.Seed)
	assert.Equal(t, "corridor", cfg.Map)
	assert.Equal(t, resolve.Replan, cfg.Policy())
	assert.Equal(t, log.DebugLevel, cfg.Level())
	assert.Equal(t, "8000", cfg.Port, "unset keys keep defaults")
}

func TestPortFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9123")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "9123", cfg.Port)
}

func TestLoadRejects(t *testing.T) {
	t.Setenv("PORT", "")
	tests := []struct {
		name string
		body string
	}{
		{"unknown key", "colour: blue\n"},
		{"bad duration", "round_length: soon\n"},
		{"negative duration", "round_length: -5s\n"},
		{"too many players", "players: 5\n"},
		{"tiny grid", "grid_size: 2\n"},
		{"huge grid", "grid_size: 4096\n"},
		{"bad policy", "reattempt: retry\n"},
		{"bad level", "log_level: loud\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
