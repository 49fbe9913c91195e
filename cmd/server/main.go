package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"taskrelay/internal/api"
	"taskrelay/internal/config"
	"taskrelay/internal/messaging"
	"taskrelay/internal/metrics"
	"taskrelay/internal/model"
	"taskrelay/internal/repository"
	"taskrelay/internal/service"
	"taskrelay/pkg/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func main() {
	cfg := config.Load()

	logger.InitLogger(cfg.Server.Environment)
	defer logger.Sync()

	if err := run(cfg); err != nil {
		logger.Error("application startup failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := initDB(cfg.MySQL)
	if err != nil {
		return err
	}

	rdb, err := initRedis(cfg.Redis)
	if err != nil {
		return err
	}
	defer rdb.Close()

	taskRepo := repository.NewTaskRepository(db)
	outboxRepo := repository.NewOutboxRepository(db)
	uow := repository.NewUnitOfWork(db)

	publisher := messaging.NewPriorityPublisher(cfg.Rabbit.URL, cfg.Rabbit.Queue, cfg.Rabbit.MaxPriority)
	defer publisher.Close()

	taskService := service.NewTaskService(taskRepo, uow)

	dispatcher := service.NewOutboxDispatcher(
		outboxRepo,
		taskRepo,
		publisher,
		metrics.NewPrometheusObserver(),
		service.DispatcherConfig{
			BatchSize:  cfg.Dispatcher.BatchSize,
			MaxRetries: cfg.Dispatcher.MaxRetries,
			IdleSleep:  cfg.Dispatcher.IdleSleep,
		},
	)

	dispatcherDone := make(chan struct{})
	go func() {
		defer close(dispatcherDone)
		logger.Info("starting outbox dispatcher")
		dispatcher.Run(ctx)
	}()

	r := api.RegisterRoutes(
		api.NewTaskHandler(taskService),
		rdb,
		cfg.RateLimit.RequestsPerSecond,
	)

	srv := &http.Server{
		Addr:    cfg.Server.Port,
		Handler: r,
	}

	go func() {
		logger.Info("server starting",
			zap.String("addr", cfg.Server.Port),
			zap.String("env", cfg.Server.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server listen failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Signal the dispatcher to stop.
	cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	// Let an in-flight outbox batch finish before the process exits.
	select {
	case <-dispatcherDone:
	case <-shutdownCtx.Done():
		logger.Warn("dispatcher did not stop before shutdown deadline")
	}

	logger.Info("server exited properly")
	return nil
}

func initDB(cfg config.MySQLConfig) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(cfg.DSN), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mysql: %w", err)
	}

	// Simple auto-migrate for dev convenience.
	if err := db.AutoMigrate(&model.Task{}, &model.OutboxEvent{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

func initRedis(cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return rdb, nil
}
