package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/vendora-inc/vendora/internal/infrastructure/cache"
	"github.com/vendora-inc/vendora/internal/infrastructure/config"
	"github.com/vendora-inc/vendora/internal/infrastructure/database"
	"github.com/vendora-inc/vendora/internal/infrastructure/migration"
	httpRouter "github.com/vendora-inc/vendora/internal/interfaces/http"
	"github.com/vendora-inc/vendora/internal/shared/logger"
	"github.com/vendora-inc/vendora/internal/shared/version"
)

var (
	env                string
	configPath         string
	autoMigrate        bool
	skipMigrationCheck bool
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Start the HTTP server",
		Long:  `Start the Vendora HTTP server with specified configuration.`,
		RunE:  run,
	}

	cmd.Flags().StringVarP(&env, "env", "e", "development", "Environment (development, test, production)")
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Directory containing config.yaml (default: ./configs)")
	cmd.Flags().BoolVar(&autoMigrate, "auto-migrate", false, "Automatically run database migrations on startup (not recommended for production)")
	cmd.Flags().BoolVar(&skipMigrationCheck, "skip-migration-check", false, "Skip migration status check on startup")

	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	if envVar := os.Getenv("ENV"); envVar != "" {
		env = envVar
	}
	ginMode := MapEnvToGinMode(env)

	var searchPaths []string
	if configPath != "" {
		searchPaths = append(searchPaths, configPath)
	}
	cfg, err := config.Load(ginMode, searchPaths...)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(&cfg.Logger, cfg.Server.Mode == gin.DebugMode); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.NewLogger()

	info := version.Get()
	log.Infow("starting server",
		"environment", env,
		"version", info.Version,
		"commit", info.Commit,
		"auto_migrate", autoMigrate,
	)

	gin.SetMode(cfg.Server.Mode)
	gin.DefaultWriter = io.Discard
	gin.DebugPrintRouteFunc = func(httpMethod, absolutePath, handlerName string, nuHandlers int) {
		log.Debugw("route registered", "method", httpMethod, "path", absolutePath, "handlers", nuHandlers)
	}

	if err := database.Init(&cfg.Database, log.Named("database")); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer func() {
		if err := database.Close(); err != nil {
			log.Errorw("failed to close database", "error", err)
		}
	}()

	if err := handleMigrations(cfg, log); err != nil {
		return fmt.Errorf("migration handling failed: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var redisClient *redis.Client
	if cache.RedisRequired(&cfg.Subscription) {
		redisClient, err = cache.NewRedisClient(ctx, &cfg.Redis)
		if err != nil {
			return err
		}
		log.Infow("redis connected", "addr", cfg.Redis.GetAddr())
	}

	container, err := httpRouter.NewContainer(cfg, database.Get(), redisClient, log)
	if err != nil {
		return fmt.Errorf("failed to build container: %w", err)
	}
	container.SetupRoutes()
	container.Start(ctx)

	srv := &http.Server{
		Addr:              cfg.Server.GetAddr(),
		Handler:           container.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Infow("server starting",
			"address", cfg.Server.GetAddr(),
			"mode", cfg.Server.Mode,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		log.Infow("shutting down server...")
	case err := <-serveErr:
		if err != nil {
			container.Shutdown()
			return fmt.Errorf("failed to start server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}
	container.Shutdown()

	log.Infow("server exited gracefully")
	return nil
}

func handleMigrations(cfg *config.Config, log logger.Interface) error {
	if skipMigrationCheck {
		log.Infow("skipping migration check")
		return nil
	}

	manager, err := migration.NewManager(cfg.Server.Mode, cfg.Database.Driver, log)
	if err != nil {
		return err
	}

	if autoMigrate || cfg.Server.Mode == gin.DebugMode {
		if cfg.Server.IsRelease() {
			log.Warnw("auto-migration is enabled in release mode - this is not recommended!")
		}
		return manager.Migrate(database.Get())
	}

	goose, ok := manager.Strategy().(*migration.GooseStrategy)
	if !ok {
		return nil
	}
	current, err := goose.Version(database.Get())
	if err != nil {
		log.Warnw("failed to check migration status", "error", err)
		return nil
	}
	log.Infow("current migration version", "version", current)
	return nil
}

// MapEnvToGinMode maps a deployment environment name onto a gin mode.
func MapEnvToGinMode(environment string) string {
	switch environment {
	case "production", "prod", "release":
		return gin.ReleaseMode
	case "test", "testing":
		return gin.TestMode
	default:
		return gin.DebugMode
	}
}
