// Package config loads runtime configuration from an optional YAML file
// and LOOM_* environment variables layered over the built-in defaults.
package config

import (
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/spf13/viper"

	"github.com/imniteen/loom/internal/domain"
)

const envPrefix = "LOOM"

// fileConfig mirrors domain.Config for decoding. Every key has a default
// registered with viper, so the decoded struct is always fully populated
// and file or environment values only have to name what they change.
type fileConfig struct {
	DataDir string `mapstructure:"data_dir"`

	Store struct {
		Dir              string `mapstructure:"dir"`
		InMemory         bool   `mapstructure:"in_memory"`
		FallbackToMemory bool   `mapstructure:"fallback_to_memory"`
		SyncWrites       bool   `mapstructure:"sync_writes"`
	} `mapstructure:"store"`

	Search struct {
		Enabled bool   `mapstructure:"enabled"`
		Path    string `mapstructure:"path"`
	} `mapstructure:"search"`

	Engine struct {
		MaxSteps    int           `mapstructure:"max_steps"`
		NodeTimeout time.Duration `mapstructure:"node_timeout"`
		LockTimeout time.Duration `mapstructure:"lock_timeout"`
	} `mapstructure:"engine"`

	Indexer struct {
		QueueSize    int           `mapstructure:"queue_size"`
		Workers      int           `mapstructure:"workers"`
		MaxAttempts  int           `mapstructure:"max_attempts"`
		RetryBackoff time.Duration `mapstructure:"retry_backoff"`
		MaxBackoff   time.Duration `mapstructure:"max_backoff"`
		CloseTimeout time.Duration `mapstructure:"close_timeout"`
	} `mapstructure:"indexer"`

	Agent struct {
		PolishTimeout time.Duration `mapstructure:"polish_timeout"`
	} `mapstructure:"agent"`

	Logging struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"logging"`
}

// Load builds a Config from the defaults, an optional YAML file and
// LOOM_* environment variables, in ascending precedence. An explicit
// path must exist; with no path the loader looks for loom.yaml in the
// working directory and treats absence as defaults-only.
func Load(path string) (*domain.Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("loom")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	setDefaults(v, domain.DefaultConfig())

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if path != "" || !notFound {
			return nil, domain.Error{
				Type:    domain.ErrorTypeConfiguration,
				Message: "failed to read config file",
				Details: map[string]interface{}{"path": path, "error": err.Error()},
			}
		}
	}

	var fc fileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return nil, domain.Error{
			Type:    domain.ErrorTypeConfiguration,
			Message: "failed to decode config",
			Details: map[string]interface{}{"error": err.Error()},
		}
	}

	cfg := fc.toDomain()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Overlay merges the non-zero fields of patch onto base. Flag-style
// overrides go through this so an unset flag never clobbers a loaded
// value.
func Overlay(base *domain.Config, patch domain.Config) error {
	if err := mergo.Merge(base, patch, mergo.WithOverride); err != nil {
		return domain.Error{
			Type:    domain.ErrorTypeConfiguration,
			Message: "failed to apply config overrides",
			Details: map[string]interface{}{"error": err.Error()},
		}
	}
	return nil
}

func setDefaults(v *viper.Viper, d *domain.Config) {
	v.SetDefault("data_dir", d.DataDir)
	v.SetDefault("store.dir", d.Store.Dir)
	v.SetDefault("store.in_memory", d.Store.InMemory)
	v.SetDefault("store.fallback_to_memory", d.Store.FallbackToMemory)
	v.SetDefault("store.sync_writes", d.Store.SyncWrites)
	v.SetDefault("search.enabled", d.Search.Enabled)
	v.SetDefault("search.path", d.Search.Path)
	v.SetDefault("engine.max_steps", d.Engine.MaxSteps)
	v.SetDefault("engine.node_timeout", d.Engine.NodeTimeout)
	v.SetDefault("engine.lock_timeout", d.Engine.LockTimeout)
	v.SetDefault("indexer.queue_size", d.Indexer.QueueSize)
	v.SetDefault("indexer.workers", d.Indexer.Workers)
	v.SetDefault("indexer.max_attempts", d.Indexer.MaxAttempts)
	v.SetDefault("indexer.retry_backoff", d.Indexer.RetryBackoff)
	v.SetDefault("indexer.max_backoff", d.Indexer.MaxBackoff)
	v.SetDefault("indexer.close_timeout", d.Indexer.CloseTimeout)
	v.SetDefault("agent.polish_timeout", d.Agent.PolishTimeout)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
}

func (fc fileConfig) toDomain() *domain.Config {
	cfg := domain.DefaultConfig()
	cfg.DataDir = fc.DataDir
	cfg.Store = domain.StoreConfig{
		Dir:              fc.Store.Dir,
		InMemory:         fc.Store.InMemory,
		FallbackToMemory: fc.Store.FallbackToMemory,
		SyncWrites:       fc.Store.SyncWrites,
	}
	cfg.Search = domain.SearchConfig{
		Enabled: fc.Search.Enabled,
		Path:    fc.Search.Path,
	}
	cfg.Engine = domain.EngineConfig{
		MaxSteps:    fc.Engine.MaxSteps,
		NodeTimeout: fc.Engine.NodeTimeout,
		LockTimeout: fc.Engine.LockTimeout,
	}
	cfg.Indexer = domain.IndexerConfig{
		QueueSize:    fc.Indexer.QueueSize,
		Workers:      fc.Indexer.Workers,
		MaxAttempts:  fc.Indexer.MaxAttempts,
		RetryBackoff: fc.Indexer.RetryBackoff,
		MaxBackoff:   fc.Indexer.MaxBackoff,
		CloseTimeout: fc.Indexer.CloseTimeout,
	}
	cfg.Agent = domain.AgentConfig{
		PolishTimeout: fc.Agent.PolishTimeout,
	}
	cfg.Logging = domain.LoggingConfig{
		Level:  fc.Logging.Level,
		Format: fc.Logging.Format,
	}
	return cfg
}
