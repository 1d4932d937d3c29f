package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mcoot/d2r-multiplay/internal/api"
	"github.com/mcoot/d2r-multiplay/internal/backend"
	"github.com/mcoot/d2r-multiplay/internal/config"
	"github.com/mcoot/d2r-multiplay/internal/factory"
	"github.com/mcoot/d2r-multiplay/internal/services/accounts"
	"github.com/mcoot/d2r-multiplay/internal/services/status"
	redisstorage "github.com/mcoot/d2r-multiplay/internal/storage/redis"
	sqlitestorage "github.com/mcoot/d2r-multiplay/internal/storage/sqlite"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		required   bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the daemon",
		Long: `Run the daemon: the local JSON API, the launch sequencer and the status
poller. Configuration is read from --config (YAML) and MULTIPLAY_* variables.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile, err := config.Load(configPath, required)
			if err != nil {
				return err
			}
			level, err := cfgFile.SlogLevel()
			if err != nil {
				return err
			}

			logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
			slog.SetDefault(logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfgFile, logger)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "multiplay.yaml", "Config file path")
	cmd.Flags().BoolVar(&required, "require-config", false, "Fail if the config file does not exist")

	return cmd
}

func serve(ctx context.Context, c *config.Config, logger *slog.Logger) error {
	app, err := factory.New(factoryConfig(c, logger))
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	router := api.NewRouter(api.RouterConfig{
		Logger:          logger,
		Backend:         app.Backend,
		AccountService:  app.AccountService,
		LaunchSequencer: app.LaunchSequencer,
		StatusPoller:    app.StatusPoller,
		Notifications:   app.Notifications,
		LogSink:         app.LogSink,
		ToolService:     app.ToolService,
		Events:          app.Events,
		TokenHash:       c.Server.TokenHash,
	})

	serverConfig := api.DefaultServerConfig()
	serverConfig.Host = c.Server.Host
	serverConfig.Port = c.Server.Port
	server := api.NewServer(router, serverConfig, logger)

	if c.Server.TokenHash == "" {
		logger.Warn("API token not configured; anyone who can reach the port can launch accounts",
			slog.String("addr", server.Addr()))
	}

	if err := app.Run(ctx, server); err != nil {
		return err
	}
	logger.Info("daemon stopped")
	return nil
}

func factoryConfig(c *config.Config, logger *slog.Logger) factory.Config {
	fc := factory.Config{
		Logger:      logger,
		StorageType: c.Storage.Type,
		BackendConfig: backend.Config{
			URL:     c.Backend.URL,
			Timeout: c.Backend.Timeout,
			Token:   c.Backend.Token,
		},
		StatusConfig: status.Config{
			Interval:       c.Status.Interval,
			HiddenInterval: c.Status.HiddenInterval,
		},
		AccountsConfig: accounts.Config{AdminTimeout: c.AdminTimeout},
		LogCapacity:    c.LogCapacity,
	}

	switch c.Storage.Type {
	case config.StorageRedis:
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = c.Storage.RedisURL
		if c.Storage.RedisNamespace != "" {
			redisCfg.Namespace = c.Storage.RedisNamespace
		}
		fc.RedisConfig = &redisCfg
	case config.StorageSQLite:
		sqliteCfg := sqlitestorage.DefaultConfig()
		sqliteCfg.Path = c.Storage.SQLitePath
		sqliteCfg.Debug = c.LogLevel == "debug"
		fc.SQLiteConfig = &sqliteCfg
	}
	return fc
}
