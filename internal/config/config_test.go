package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultHasSaneLimits(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 500, cfg.Limits.ActiveItemCap)
	assert.Equal(t, 50, cfg.Retrieval.CacheSize)
	assert.Equal(t, 384, cfg.Embedding.Dimensions)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Limits, cfg.Limits)
}

func TestLoadOverlaysFileOntoDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := "limits:\n  active_item_cap: 1000\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1000, cfg.Limits.ActiveItemCap)
	assert.Equal(t, 50, cfg.Retrieval.CacheSize, "unset fields keep their default values")
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	cfg := Default()
	cfg.Storage.DBPath = "custom/path.db"
	require.NoError(t, cfg.Save(path))

	reloaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "custom/path.db", reloaded.Storage.DBPath)
}

func TestEnvOverrideSetsDebugLogging(t *testing.T) {
	t.Setenv("CORTEX_DEBUG", "1")
	cfg := Default()
	cfg.applyEnvOverrides()
	assert.True(t, cfg.Logging.Debug)
}
