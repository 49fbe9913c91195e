package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"taskrelay/internal/config"
	"taskrelay/internal/messaging"
	"taskrelay/internal/repository"
	"taskrelay/internal/service"
	"taskrelay/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func main() {
	cfg := config.Load()

	logger.InitLogger(cfg.Server.Environment)
	defer logger.Sync()

	if err := run(cfg); err != nil {
		logger.Error("consumer exited with error", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := gorm.Open(mysql.Open(cfg.MySQL.DSN), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("failed to connect to mysql: %w", err)
	}

	taskRepo := repository.NewTaskRepository(db)
	uow := repository.NewUnitOfWork(db)
	taskService := service.NewTaskService(taskRepo, uow)

	consumer := messaging.NewConsumer(
		cfg.Rabbit.URL,
		cfg.Rabbit.Queue,
		cfg.Rabbit.MaxPriority,
		taskService,
	)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info("shutting down consumer...")
		cancel()
	}()

	return consumer.Start(ctx)
}
