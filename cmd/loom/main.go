package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/imniteen/loom"
	"github.com/imniteen/loom/internal/config"
	"github.com/imniteen/loom/internal/scenario"
)

// exitError carries a process exit code through run.
type exitError struct {
	code    int
	message string
}

func (e *exitError) Error() string { return e.message }

func main() {
	if err := run(os.Stdout, os.Stdin, os.Args[1:]); err != nil {
		var exit *exitError
		if errors.As(err, &exit) {
			if exit.message != "" {
				fmt.Fprintln(os.Stderr, exit.message)
			}
			os.Exit(exit.code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type options struct {
	configPath string
	dataDir    string
	user       string
	inMemory   bool
	noSearch   bool
	logLevel   string
	logFormat  string
}

func run(out io.Writer, in io.Reader, args []string) error {
	flagSet := flag.NewFlagSet("loom", flag.ContinueOnError)
	flagSet.SetOutput(out)
	flagSet.Usage = func() {
		fmt.Fprint(out, `Loom - a durable conversational workflow engine.

Usage:
  loom [options] [command]

Commands:
  chat                  Interactive conversation (default)
  search <query>        Search indexed conversations
  stats                 Aggregate conversation statistics
  test [name]           Run builtin scenarios: basic, hitl, durability, search, all
  scenario <file>       Run scenarios from a YAML file

Options:
`)
		flagSet.PrintDefaults()
	}

	var opts options
	flagSet.StringVar(&opts.configPath, "config", "", "Path to a YAML config file.")
	flagSet.StringVar(&opts.dataDir, "data-dir", "", "Directory for durable state; overrides the config file.")
	flagSet.StringVar(&opts.user, "user", "demo-user", "User ID for chat, search and stats.")
	flagSet.BoolVar(&opts.inMemory, "in-memory", false, "Keep state in memory only.")
	flagSet.BoolVar(&opts.noSearch, "no-search", false, "Disable the search index.")
	flagSet.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn or error; overrides the config file.")
	flagSet.StringVar(&opts.logFormat, "log-format", "", "Log format: text or json; overrides the config file.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return &exitError{code: 2}
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	logger := buildLogger(cfg.Logging)
	cfg.Logger = logger
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	command := "chat"
	if flagSet.NArg() > 0 {
		command = flagSet.Arg(0)
	}
	var rest []string
	if flagSet.NArg() > 1 {
		rest = flagSet.Args()[1:]
	}

	switch command {
	case "chat":
		mgr, err := openManager(ctx, out, cfg)
		if err != nil {
			return err
		}
		defer mgr.Close()
		return runChat(ctx, out, in, mgr, opts.user)

	case "search":
		if len(rest) == 0 {
			return &exitError{code: 2, message: "usage: loom search <query>"}
		}
		mgr, err := openManager(ctx, out, cfg)
		if err != nil {
			return err
		}
		defer mgr.Close()
		return runSearch(ctx, out, mgr, opts.user, strings.Join(rest, " "))

	case "stats":
		mgr, err := openManager(ctx, out, cfg)
		if err != nil {
			return err
		}
		defer mgr.Close()
		return runStats(ctx, out, mgr, opts.user)

	case "test":
		name := "all"
		if len(rest) > 0 {
			name = rest[0]
		}
		scs, err := pickScenarios(name)
		if err != nil {
			return err
		}
		return runScenarios(ctx, out, cfg, scs)

	case "scenario":
		if len(rest) == 0 {
			return &exitError{code: 2, message: "usage: loom scenario <file.yaml>"}
		}
		scs, err := scenario.Load(rest[0])
		if err != nil {
			return err
		}
		return runScenarios(ctx, out, cfg, scs)

	default:
		flagSet.Usage()
		return &exitError{code: 2, message: fmt.Sprintf("unknown command %q", command)}
	}
}

func loadConfig(opts options) (*loom.Config, error) {
	cfg, err := loom.LoadConfig(opts.configPath)
	if err != nil {
		return nil, err
	}

	patch := loom.Config{DataDir: opts.dataDir}
	patch.Logging.Level = opts.logLevel
	patch.Logging.Format = opts.logFormat
	if err := config.Overlay(cfg, patch); err != nil {
		return nil, err
	}
	if opts.inMemory {
		cfg.Store.InMemory = true
	}
	if opts.noSearch {
		cfg.Search.Enabled = false
	}

	if err := cfg.Validate(); err != nil {
		return nil, &exitError{code: 2, message: err.Error()}
	}
	return cfg, nil
}

func openManager(ctx context.Context, out io.Writer, cfg *loom.Config) (*loom.Manager, error) {
	mgr, err := loom.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("startup failed: %w", err)
	}
	if mgr.StoreDegraded() {
		fmt.Fprintln(out, "warning: durable store unavailable, state is in memory and will not survive a restart")
	}
	return mgr, nil
}

func buildLogger(cfg loom.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
