package loom

import (
	"github.com/imniteen/loom/internal/config"
	"github.com/imniteen/loom/internal/domain"
)

// Config holds every tunable of the manager. Zero values are not usable
// directly; start from DefaultConfig or LoadConfig and adjust.
type Config = domain.Config

// StoreConfig controls the durable checkpoint store.
type StoreConfig = domain.StoreConfig

// SearchConfig controls the optional full-text index.
type SearchConfig = domain.SearchConfig

// EngineConfig bounds workflow execution.
type EngineConfig = domain.EngineConfig

// IndexerConfig tunes the asynchronous index publisher.
type IndexerConfig = domain.IndexerConfig

// AgentConfig tunes the stock workflow's nodes.
type AgentConfig = domain.AgentConfig

// LoggingConfig selects the handler the CLI builds its logger from.
type LoggingConfig = domain.LoggingConfig

// DefaultConfig returns the standard configuration: durable store under
// ./data, search enabled, conservative engine limits.
func DefaultConfig() *Config {
	return domain.DefaultConfig()
}

// LoadConfig builds a Config from the defaults, an optional YAML file
// and LOOM_* environment variables, in ascending precedence.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}
