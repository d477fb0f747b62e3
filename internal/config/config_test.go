package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsMatchDocumentedValues(t *testing.T) {
	cfg := Defaults()
	assert.Equal(t, 19132, cfg.ServerPort)
	assert.Equal(t, "survival", cfg.GameMode)
	assert.Equal(t, 512, cfg.BatchCompressThreshold)
	assert.Equal(t, 200, cfg.RetransmitIntervalMS)
	assert.Equal(t, 30, cfg.SessionInactivityS)
	assert.Equal(t, "INFO", cfg.LogLevel)
}

func TestLoadWithEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestLoadOverridesOnlyKeysPresentInFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bedrockd.toml")
	contents := "SERVER_PORT = 25565\nWORLD_NAME = \"overworld\"\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 25565, cfg.ServerPort)
	assert.Equal(t, "overworld", cfg.WorldName)
	// Untouched keys keep their defaults.
	assert.Equal(t, "survival", cfg.GameMode)
	assert.Equal(t, 512, cfg.BatchCompressThreshold)
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestDurationHelpers(t *testing.T) {
	cfg := Config{RetransmitIntervalMS: 200, SessionInactivityS: 30}
	assert.Equal(t, 200*time.Millisecond, cfg.RetransmitInterval())
	assert.Equal(t, 30*time.Second, cfg.InactivityTimeout())
}

func TestListenAddrUsesServerPort(t *testing.T) {
	cfg := Config{ServerPort: 19132}
	assert.Equal(t, "0.0.0.0:19132", cfg.ListenAddr())
}
