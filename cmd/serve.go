package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"service-marketplace/internal/data/repository"
	"service-marketplace/internal/usecase"
	"service-marketplace/internal/wire"
	"service-marketplace/internal/worker"
	"service-marketplace/pkg/cache"
	"service-marketplace/pkg/database"
	"service-marketplace/pkg/events"
	"service-marketplace/pkg/gateway"
	"service-marketplace/pkg/tracing"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and the stale payment sweeper",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", false, "apply pending migrations before serving")
}

func runServe(cmd *cobra.Command, args []string) error {
	config, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("app", config.App.Name),
		zap.String("port", config.App.Port),
		zap.Bool("debug", config.App.Debug),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(config.Tracing, logger)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("Failed to flush traces", zap.Error(err))
		}
	}()

	db, err := database.InitDB(config.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()
	logger.Info("Database connected successfully")

	if serveMigrate {
		if _, err := database.Migrate(ctx, db, logger); err != nil {
			return err
		}
	}

	publisher, err := events.NewPublisher(config.Kafka, logger)
	if err != nil {
		return err
	}
	defer publisher.Close()

	deps := usecase.Deps{
		Gateway:   gateway.NewClient(config.Gateway, logger),
		Publisher: publisher,
	}

	if config.Redis.Addr != "" {
		rdb, err := cache.InitRedis(config.Redis, logger)
		if err != nil {
			return err
		}
		defer rdb.Close()
		deps.Dedup = cache.NewRedisDeduplicator(rdb, config.Redis.DedupTTL)
	} else {
		logger.Info("Redis not configured, webhook dedup relies on the database only")
	}

	repos := repository.NewRepository(db, logger)
	app := wire.Wiring(repos, deps, config, logger)

	var wg sync.WaitGroup
	if config.Sweeper.Enabled {
		sweeper := worker.NewPaymentSweeper(app.Service.Transition, config.Sweeper, logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			sweeper.Run(ctx)
		}()
	}

	err = APIServer(ctx, app.Router, config.App.Port, logger)
	stop()
	wg.Wait()

	logger.Info("Application stopped")
	return err
}
