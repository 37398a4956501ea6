package main

import (
	"context"
	"os/signal"
	"syscall"

	procurementapp "github.com/erp/procurement/internal/application/procurement"
	"github.com/erp/procurement/internal/infrastructure/config"
	"github.com/erp/procurement/internal/infrastructure/logger"
	"github.com/erp/procurement/internal/infrastructure/queue"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(logger.FromAppConfig(cfg))
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	if !cfg.Redis.Enabled() {
		log.Fatal("The inventory worker needs redis.host to be configured")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}

	// Stock is owned by the inventory service; until it exposes an API the
	// worker records each movement in the log.
	target := procurementapp.NewLoggingInventoryUpdater(log.Named("inventory"))
	worker := queue.NewWorker(redisOpt, cfg.Queue, target, log)

	log.Info("Starting inventory worker",
		zap.String("queue", cfg.Queue.QueueName),
		zap.Int("concurrency", cfg.Queue.Concurrency),
		zap.String("redis", cfg.Redis.Addr()),
	)

	if err := worker.Run(ctx); err != nil {
		log.Fatal("Inventory worker failed", zap.Error(err))
	}
}
