package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/distributor-bonus-ledger/internal/api_gateway"
	"github.com/distributor-bonus-ledger/internal/config"
	"github.com/distributor-bonus-ledger/internal/data/mongo"
	"github.com/distributor-bonus-ledger/internal/data/postgres"
	"github.com/distributor-bonus-ledger/internal/data/redis"
	"github.com/distributor-bonus-ledger/internal/domain/currency"
	"github.com/distributor-bonus-ledger/internal/logger"
	"github.com/distributor-bonus-ledger/internal/platform/messaging/producers"
	"github.com/distributor-bonus-ledger/internal/platform/persistence"
	"github.com/distributor-bonus-ledger/internal/reporting/service"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("bonus_gateway")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	converter, err := currency.NewConverter(cfg.Currency.ExchangeRate)
	if err != nil {
		log.Error("Invalid currency configuration", "error", err)
		os.Exit(1)
	}

	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}
	if err := mongo.EnsureIndexes(appCtx, mongoDB.Database()); err != nil {
		log.Warn("Failed to ensure status audit indexes", "error", err)
	}

	redisClient, err := persistence.NewRedisClient(appCtx, log, &cfg.Redis)
	if err != nil {
		log.Error("Failed to initialize Redis", "error", err)
		os.Exit(1)
	}

	// Status edits are republished on the change feed so live watchers converge
	changeProducer, err := producers.NewChangeEventProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize change feed producer", "error", err)
		os.Exit(1)
	}

	pool, err := service.NewWorkerPool(service.WorkerPoolConfig{Size: cfg.WorkerPool.Size}, log)
	if err != nil {
		log.Error("Failed to initialize worker pool", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	bonusRepo := postgres.NewBonusRepository(log, postgresDB)
	distributorRepo := postgres.NewDistributorRepository(log, postgresDB)
	directory := redis.NewDirectoryCache(log, redisClient, distributorRepo, cfg.Redis.DirectoryTTL)
	auditRepo := mongo.NewStatusAuditRepository(log, mongoDB.Database())

	bonusService := service.NewBonusService(log, service.Dependencies{
		Bonuses:   bonusRepo,
		Directory: directory,
		Catalog:   distributorRepo,
		Audit:     auditRepo,
		Publisher: changeProducer,
		Pool:      pool,
	}, service.Options{
		FetchLimit:      cfg.Fetch.Limit,
		ChangeFeedTable: cfg.Kafka.ChangeFeedTable,
	})

	server := api_gateway.NewServer(log, cfg, bonusService, converter)
	log.Info("REST server initialized")

	errChan := make(chan error, 1)

	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	cancelAppCtx()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	// Stop accepting requests before the stores go away
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	log.Info("Shutting down worker pool", "running_workers", pool.Running())
	pool.Shutdown()

	if err = changeProducer.Close(); err != nil {
		log.Error("Error closing change feed producer", "error", err)
	}

	if redisClient != nil {
		if err = redisClient.Close(); err != nil {
			log.Error("Error closing Redis client", "error", err)
		}
	}

	postgresDB.Close()

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
