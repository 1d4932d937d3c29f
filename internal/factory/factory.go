package factory

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/mcoot/d2r-multiplay/internal/backend"
	"github.com/mcoot/d2r-multiplay/internal/dependencies/clock"
	"github.com/mcoot/d2r-multiplay/internal/dependencies/idgen"
	"github.com/mcoot/d2r-multiplay/internal/events"
	"github.com/mcoot/d2r-multiplay/internal/services/accounts"
	"github.com/mcoot/d2r-multiplay/internal/services/launch"
	"github.com/mcoot/d2r-multiplay/internal/services/logsink"
	"github.com/mcoot/d2r-multiplay/internal/services/notify"
	"github.com/mcoot/d2r-multiplay/internal/services/status"
	"github.com/mcoot/d2r-multiplay/internal/services/tools"
	"github.com/mcoot/d2r-multiplay/internal/storage"
	"github.com/mcoot/d2r-multiplay/internal/storage/memory"
	redisstorage "github.com/mcoot/d2r-multiplay/internal/storage/redis"
	sqlitestorage "github.com/mcoot/d2r-multiplay/internal/storage/sqlite"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
	StorageTypeSQLite = "sqlite"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock   clock.Clock
	IDGen   idgen.IDGen
	Backend backend.Backend

	// Services
	LogSink         *logsink.Sink
	Notifications   *notify.Channel
	AccountService  *accounts.Service
	LaunchSequencer *launch.Sequencer
	StatusPoller    *status.Poller
	ToolService     *tools.Service

	// Events streams state changes to subscribers
	Events *events.Hub

	logger *slog.Logger
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory", "redis" or "sqlite")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// SQLiteConfig holds SQLite settings (defaults apply if nil)
	SQLiteConfig *sqlitestorage.Config
	// BackendConfig holds the agent connection settings
	BackendConfig backend.Config
	// StatusConfig holds poller intervals (defaults apply to zero fields)
	StatusConfig status.Config
	// AccountsConfig holds the admin call timeout (defaults apply to zero fields)
	AccountsConfig accounts.Config
	// LogCapacity caps the Log Sink (defaults to logsink.DefaultCapacity)
	LogCapacity int
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	// Create storage based on type
	var store storage.Storage
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		store = memory.New()
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		store = redisStore
	case StorageTypeSQLite:
		sqliteCfg := sqlitestorage.DefaultConfig()
		if cfg.SQLiteConfig != nil {
			sqliteCfg = *cfg.SQLiteConfig
		}
		sqliteStore, err := sqlitestorage.New(sqliteCfg)
		if err != nil {
			return nil, err
		}
		store = sqliteStore
	default:
		return nil, errors.New("invalid StorageType: must be 'memory', 'redis' or 'sqlite'")
	}

	backendCfg := cfg.BackendConfig
	if backendCfg.URL == "" {
		backendCfg = backend.DefaultConfig()
	}

	deps := dependencies{
		store:   store,
		clock:   clock.New(),
		idgen:   idgen.New(),
		backend: backend.NewClient(backendCfg, logger),
	}
	return newWithDependencies(deps, cfg, logger), nil
}

type dependencies struct {
	store   storage.Storage
	clock   clock.Clock
	idgen   idgen.IDGen
	backend backend.Backend
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(deps dependencies, cfg Config, logger *slog.Logger) *App {
	sink := logsink.New(cfg.LogCapacity, deps.clock, logger)
	channel := notify.New(logger)
	accountService := accounts.New(deps.store, deps.backend, deps.idgen, cfg.AccountsConfig, logger)
	sequencer := launch.New(deps.backend, accountService, channel, sink, logger)
	poller := status.New(deps.backend, accountService, deps.clock, cfg.StatusConfig, logger)
	toolService := tools.New(deps.backend, accountService, sink, logger)

	hub := events.NewHub(logger)
	hub.Watch(sink, channel, poller)
	go hub.Run()

	return &App{
		Storage:         deps.store,
		Clock:           deps.clock,
		IDGen:           deps.idgen,
		Backend:         deps.backend,
		LogSink:         sink,
		Notifications:   channel,
		AccountService:  accountService,
		LaunchSequencer: sequencer,
		StatusPoller:    poller,
		ToolService:     toolService,
		Events:          hub,
		logger:          logger,
	}
}

// Server is a blocking server with graceful shutdown
type Server interface {
	Start() error
	Shutdown(ctx context.Context) error
}

// Run serves until ctx is cancelled or the server fails, polling status
// alongside. Open event streams end before the server shuts down, and
// storage is closed on return.
func (a *App) Run(ctx context.Context, server Server) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.StatusPoller.Run(ctx)
	})
	g.Go(func() error {
		return server.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		a.Events.Close()
		return server.Shutdown(context.Background())
	})

	err := g.Wait()
	if closeErr := a.Storage.Close(); closeErr != nil {
		a.logger.Warn("failed to close storage", slog.String("error", closeErr.Error()))
	}
	return err
}
