package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/distributor-bonus-ledger/internal/changefeed"
	"github.com/distributor-bonus-ledger/internal/config"
	"github.com/distributor-bonus-ledger/internal/data/postgres"
	"github.com/distributor-bonus-ledger/internal/data/redis"
	"github.com/distributor-bonus-ledger/internal/engine"
	"github.com/distributor-bonus-ledger/internal/logger"
	"github.com/distributor-bonus-ledger/internal/platform/messaging/consumers"
	"github.com/distributor-bonus-ledger/internal/platform/messaging/producers"
	"github.com/distributor-bonus-ledger/internal/platform/persistence"
	"github.com/distributor-bonus-ledger/internal/reporting/service"
	"github.com/distributor-bonus-ledger/internal/watcher"
)

func main() {
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("bonus_watcher")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	log.Info("Starting Bonus Watcher",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
		"group", cfg.Watch.GroupKey,
	)

	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	redisClient, err := persistence.NewRedisClient(appCtx, log, &cfg.Redis)
	if err != nil {
		log.Error("Failed to initialize Redis", "error", err)
		os.Exit(1)
	}

	// dlqProducer is nil when no DLQ topic is configured; the handler is nil-safe
	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}

	pool, err := service.NewWorkerPool(service.WorkerPoolConfig{Size: cfg.WorkerPool.Size}, log)
	if err != nil {
		log.Error("Failed to initialize worker pool", "error", err)
		os.Exit(1)
	}

	bonusRepo := postgres.NewBonusRepository(log, postgresDB)
	distributorRepo := postgres.NewDistributorRepository(log, postgresDB)
	directory := redis.NewDirectoryCache(log, redisClient, distributorRepo, cfg.Redis.DirectoryTTL)

	bonusService := service.NewBonusService(log, service.Dependencies{
		Bonuses:   bonusRepo,
		Directory: directory,
		Catalog:   distributorRepo,
		Pool:      pool,
	}, service.Options{
		FetchLimit:      cfg.Fetch.Limit,
		ChangeFeedTable: cfg.Kafka.ChangeFeedTable,
	})

	view := engine.NewProjection()
	onChange := func(v engine.View) {
		log.Info("Bonus view changed",
			"seq", v.Seq,
			"records", len(v.Records),
			"total_paid", v.Summary.TotalPaid,
			"total_unpaid", v.Summary.TotalUnpaid,
			"groups", len(v.Groups),
			"truncated", v.Truncated,
		)
	}

	handler := changefeed.NewHandler(log, view, changefeed.NewDecoder(cfg.Kafka.ChangeFeedTable), dlqProducer, onChange)
	reconciler := changefeed.NewReconciler(log, func() consumers.Consumer {
		return consumers.NewKafkaConsumer(appCtx, log, &cfg.Kafka)
	}, handler.Handle)

	w := watcher.NewWatcher(log, bonusService, reconciler, view, service.Query{
		Start:         cfg.Watch.StartDate,
		End:           cfg.Watch.EndDate,
		DistributorID: cfg.Watch.DistributorID,
		GroupKey:      cfg.Watch.GroupKey,
	}, cfg.Watch.ResyncInterval, onChange)

	errChan := make(chan error, 1)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting change feed watcher",
			"topic", cfg.Kafka.ChangeFeedTopic,
			"group", cfg.Kafka.ConsumerGroup,
		)
		if err := w.Run(appCtx); err != nil {
			errChan <- fmt.Errorf("watcher error: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	var serviceErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Service error occurred", "error", err)
		serviceErr = err
	}

	cancelAppCtx()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	log.Info("Waiting for services to stop...")
	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(wgChan)
	}()

	select {
	case <-wgChan:
		log.Info("All services stopped successfully")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	// Unsubscribe is idempotent; Run already closed the subscription on a clean stop
	if err = reconciler.Unsubscribe(); err != nil {
		log.Error("Error closing change feed subscription", "error", err)
	}

	log.Info("Shutting down worker pool", "running_workers", pool.Running())
	pool.Shutdown()

	if err = dlqProducer.Close(); err != nil {
		log.Error("Error closing DLQ Kafka producer", "error", err)
	}

	if redisClient != nil {
		if err = redisClient.Close(); err != nil {
			log.Error("Error closing Redis client", "error", err)
		}
	}

	postgresDB.Close()

	if serviceErr != nil {
		log.Error("Bonus Watcher shutdown with errors", "error", serviceErr)
	}
	if err != nil {
		log.Error("Bonus Watcher shutdown completed with errors")
	} else {
		log.Info("Bonus Watcher shutdown completed successfully")
	}
}
