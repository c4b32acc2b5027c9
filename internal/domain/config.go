package domain

import (
	"log/slog"
	"path/filepath"
	"time"
)

type Config struct {
	DataDir string       `json:"data_dir" yaml:"data_dir"`
	Logger  *slog.Logger `json:"-" yaml:"-"`

	Store   StoreConfig   `json:"store" yaml:"store"`
	Search  SearchConfig  `json:"search" yaml:"search"`
	Engine  EngineConfig  `json:"engine" yaml:"engine"`
	Indexer IndexerConfig `json:"indexer" yaml:"indexer"`
	Agent   AgentConfig   `json:"agent" yaml:"agent"`
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

type StoreConfig struct {
	Dir              string `json:"dir,omitempty" yaml:"dir,omitempty"`
	InMemory         bool   `json:"in_memory" yaml:"in_memory"`
	FallbackToMemory bool   `json:"fallback_to_memory" yaml:"fallback_to_memory"`
	SyncWrites       bool   `json:"sync_writes" yaml:"sync_writes"`
}

type SearchConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Path    string `json:"path,omitempty" yaml:"path,omitempty"`
}

type EngineConfig struct {
	MaxSteps    int           `json:"max_steps" yaml:"max_steps"`
	NodeTimeout time.Duration `json:"node_timeout" yaml:"node_timeout"`
	LockTimeout time.Duration `json:"lock_timeout" yaml:"lock_timeout"`
}

type IndexerConfig struct {
	QueueSize    int           `json:"queue_size" yaml:"queue_size"`
	Workers      int           `json:"workers" yaml:"workers"`
	MaxAttempts  int           `json:"max_attempts" yaml:"max_attempts"`
	RetryBackoff time.Duration `json:"retry_backoff" yaml:"retry_backoff"`
	MaxBackoff   time.Duration `json:"max_backoff" yaml:"max_backoff"`
	CloseTimeout time.Duration `json:"close_timeout" yaml:"close_timeout"`
}

type AgentConfig struct {
	PolishTimeout time.Duration `json:"polish_timeout" yaml:"polish_timeout"`
}

type LoggingConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

func DefaultConfig() *Config {
	return &Config{
		DataDir: "./data",
		Store: StoreConfig{
			FallbackToMemory: true,
			SyncWrites:       true,
		},
		Search: SearchConfig{
			Enabled: true,
		},
		Engine: EngineConfig{
			MaxSteps:    25,
			NodeTimeout: 30 * time.Second,
			LockTimeout: 30 * time.Second,
		},
		Indexer: IndexerConfig{
			QueueSize:    256,
			Workers:      2,
			MaxAttempts:  3,
			RetryBackoff: 200 * time.Millisecond,
			MaxBackoff:   5 * time.Second,
			CloseTimeout: 5 * time.Second,
		},
		Agent: AgentConfig{
			PolishTimeout: 5 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func (c *Config) Validate() error {
	if c == nil {
		return Error{Type: ErrorTypeConfiguration, Message: "config is nil"}
	}
	if c.DataDir == "" && !c.Store.InMemory {
		return Error{
			Type:    ErrorTypeConfiguration,
			Message: "data_dir is required unless the store is in-memory",
		}
	}
	if c.Engine.MaxSteps <= 0 {
		return Error{
			Type:    ErrorTypeConfiguration,
			Message: "engine.max_steps must be positive",
			Details: map[string]interface{}{"max_steps": c.Engine.MaxSteps},
		}
	}
	if c.Engine.NodeTimeout < 0 || c.Engine.LockTimeout < 0 {
		return Error{Type: ErrorTypeConfiguration, Message: "engine timeouts cannot be negative"}
	}
	if c.Agent.PolishTimeout < 0 {
		return Error{Type: ErrorTypeConfiguration, Message: "agent.polish_timeout cannot be negative"}
	}
	if c.Indexer.QueueSize <= 0 {
		return Error{
			Type:    ErrorTypeConfiguration,
			Message: "indexer.queue_size must be positive",
			Details: map[string]interface{}{"queue_size": c.Indexer.QueueSize},
		}
	}
	if c.Indexer.Workers <= 0 {
		return Error{
			Type:    ErrorTypeConfiguration,
			Message: "indexer.workers must be positive",
			Details: map[string]interface{}{"workers": c.Indexer.Workers},
		}
	}
	if c.Indexer.MaxAttempts <= 0 {
		return Error{
			Type:    ErrorTypeConfiguration,
			Message: "indexer.max_attempts must be positive",
			Details: map[string]interface{}{"max_attempts": c.Indexer.MaxAttempts},
		}
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return Error{
			Type:    ErrorTypeConfiguration,
			Message: "logging.level must be one of debug, info, warn, error",
			Details: map[string]interface{}{"level": c.Logging.Level},
		}
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return Error{
			Type:    ErrorTypeConfiguration,
			Message: "logging.format must be text or json",
			Details: map[string]interface{}{"format": c.Logging.Format},
		}
	}
	return nil
}

// StoreDir resolves the badger directory, defaulting under DataDir.
func (c *Config) StoreDir() string {
	if c.Store.Dir != "" {
		return c.Store.Dir
	}
	return filepath.Join(c.DataDir, "state")
}

// SearchPath resolves the search database file, defaulting under DataDir.
func (c *Config) SearchPath() string {
	if c.Search.Path != "" {
		return c.Search.Path
	}
	return filepath.Join(c.DataDir, "search.db")
}

func (c *Config) WithLogger(logger *slog.Logger) *Config {
	c.Logger = logger
	return c
}

func (c *Config) WithDataDir(dir string) *Config {
	c.DataDir = dir
	return c
}

func (c *Config) WithInMemoryStore() *Config {
	c.Store.InMemory = true
	return c
}

func (c *Config) WithSearchDisabled() *Config {
	c.Search.Enabled = false
	return c
}

func (c *Config) WithSearchPath(path string) *Config {
	c.Search.Enabled = true
	c.Search.Path = path
	return c
}

func (c *Config) WithEngineSettings(maxSteps int, nodeTimeout time.Duration) *Config {
	c.Engine.MaxSteps = maxSteps
	c.Engine.NodeTimeout = nodeTimeout
	return c
}

func (c *Config) WithIndexerSettings(queueSize, workers, maxAttempts int) *Config {
	c.Indexer.QueueSize = queueSize
	c.Indexer.Workers = workers
	c.Indexer.MaxAttempts = maxAttempts
	return c
}
