// Package app wires configuration, storage, the repository and the engine
// together for the command-line hosts.
package app

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/JamesPrial/todo-engine/internal/config"
	"github.com/JamesPrial/todo-engine/internal/credential"
	"github.com/JamesPrial/todo-engine/internal/engine"
	"github.com/JamesPrial/todo-engine/internal/notify"
	"github.com/JamesPrial/todo-engine/internal/repository"
	"github.com/JamesPrial/todo-engine/internal/storage"
)

// Options controls how New builds an App.
type Options struct {
	// ConfigPath is the YAML config file. Empty uses config.DefaultConfigPath.
	ConfigPath string

	// Verbose forces debug logging.
	Verbose bool

	// LogOutput receives log lines. Defaults to os.Stderr.
	LogOutput io.Writer

	// Secrets resolves credentials. Defaults to the system keyring, opened
	// on first use.
	Secrets credential.Source

	// Now overrides the repository clock.
	Now func() time.Time
}

// App is one running session: a repository and the engine over it.
type App struct {
	Config *config.Config
	Logger *slog.Logger
	Repo   *repository.Repository
	Engine *engine.Engine
}

// New loads configuration, opens the configured store, loads the collection
// and starts the engine. Load failures are logged and reported through
// LoadNotices rather than failing New.
func New(opts Options) (*App, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	out := opts.LogOutput
	if out == nil {
		out = os.Stderr
	}
	logger := cfg.NewLogger(out, opts.Verbose)

	secrets := opts.Secrets
	if secrets == nil {
		secrets = credential.NewLazy()
	}

	backend, err := storage.Open(cfg.Storage, secrets)
	if err != nil {
		return nil, fmt.Errorf("opening %s storage: %w", cfg.Storage.Backend, err)
	}
	logger.Debug("storage opened", "backend", cfg.Storage.Backend)

	store := storage.NewStore(backend, cfg.Storage.KeyPrefix, logger)
	repo := repository.New(store, repository.Options{
		Now:            opts.Now,
		PruneThreshold: cfg.Retention.PruneThreshold,
		PruneKeep:      cfg.Retention.PruneKeep,
		Categories:     cfg.Categories,
		Logger:         logger,
	})
	eng := engine.Start(repo, engine.Options{
		Debounce: cfg.Engine.Debounce,
		Logger:   logger,
	})

	return &App{Config: cfg, Logger: logger, Repo: repo, Engine: eng}, nil
}

// LoadNotices returns the failures raised while loading the collection.
func (a *App) LoadNotices() []notify.Notice {
	return a.Repo.LoadNotices()
}

// Close stops the engine and ends the repository's streams.
func (a *App) Close() {
	a.Engine.Close()
	a.Repo.Close()
}
