package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imniteen/loom/internal/domain"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "loom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	defaults := domain.DefaultConfig()
	assert.Equal(t, defaults.DataDir, cfg.DataDir)
	assert.Equal(t, defaults.Store, cfg.Store)
	assert.Equal(t, defaults.Search, cfg.Search)
	assert.Equal(t, defaults.Engine, cfg.Engine)
	assert.Equal(t, defaults.Indexer, cfg.Indexer)
	assert.Equal(t, defaults.Agent, cfg.Agent)
	assert.Equal(t, defaults.Logging, cfg.Logging)
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfigFile(t, `
data_dir: /var/lib/loom
store:
  in_memory: true
  sync_writes: false
search:
  enabled: false
engine:
  max_steps: 7
  node_timeout: 2s
indexer:
  workers: 4
agent:
  polish_timeout: 250ms
logging:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/loom", cfg.DataDir)
	assert.True(t, cfg.Store.InMemory)
	assert.False(t, cfg.Store.SyncWrites)
	assert.False(t, cfg.Search.Enabled)
	assert.Equal(t, 7, cfg.Engine.MaxSteps)
	assert.Equal(t, 2*time.Second, cfg.Engine.NodeTimeout)
	assert.Equal(t, 4, cfg.Indexer.Workers)
	assert.Equal(t, 250*time.Millisecond, cfg.Agent.PolishTimeout)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)

	// Untouched keys keep their defaults.
	assert.Equal(t, 256, cfg.Indexer.QueueSize)
	assert.Equal(t, 30*time.Second, cfg.Engine.LockTimeout)
	assert.True(t, cfg.Store.FallbackToMemory)
}

func TestLoadMissingExplicitFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, domain.IsConfigurationError(err))
}

func TestLoadMalformedFileFails(t *testing.T) {
	path := writeConfigFile(t, "engine: [not, a, map")

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, domain.IsConfigurationError(err))
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := writeConfigFile(t, `
engine:
  max_steps: 7
`)
	t.Setenv("LOOM_ENGINE_MAX_STEPS", "9")
	t.Setenv("LOOM_LOGGING_FORMAT", "json")
	t.Setenv("LOOM_INDEXER_RETRY_BACKOFF", "50ms")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9, cfg.Engine.MaxSteps)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 50*time.Millisecond, cfg.Indexer.RetryBackoff)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := writeConfigFile(t, `
engine:
  max_steps: -1
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, domain.IsConfigurationError(err))
}

func TestOverlayKeepsUnsetFields(t *testing.T) {
	base := domain.DefaultConfig()
	patch := domain.Config{
		DataDir: "/elsewhere",
		Engine:  domain.EngineConfig{MaxSteps: 50},
	}

	require.NoError(t, Overlay(base, patch))

	assert.Equal(t, "/elsewhere", base.DataDir)
	assert.Equal(t, 50, base.Engine.MaxSteps)
	assert.Equal(t, 30*time.Second, base.Engine.NodeTimeout)
	assert.Equal(t, 256, base.Indexer.QueueSize)
	assert.Equal(t, "info", base.Logging.Level)
}
