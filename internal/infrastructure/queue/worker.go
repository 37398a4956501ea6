package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/procurement/internal/domain/procurement"
	"github.com/erp/procurement/internal/infrastructure/config"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Worker runs an asynq server that applies queued stock movements
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	logger *zap.Logger
}

// NewWorker creates a worker that hands every decoded movement to target
func NewWorker(redisOpt asynq.RedisConnOpt, cfg config.QueueConfig, target procurement.InventoryUpdater, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	queue := cfg.QueueName
	if queue == "" {
		queue = DefaultQueue
	}

	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.Concurrency,
		Queues:      map[string]int{queue: 1},
		Logger:      logger.Named("asynq").Sugar(),
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)
			logger.Warn("inventory task failed",
				zap.String("task_type", task.Type()),
				zap.Int("retry", retried),
				zap.Int("max_retry", maxRetry),
				zap.Error(err),
			)
		}),
	})

	handler := NewStockMovementHandler(target, logger)
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskInventoryGoodsReceived, handler)
	mux.HandleFunc(TaskInventoryReturnCompleted, handler)

	return &Worker{server: srv, mux: mux, logger: logger}
}

// Handler exposes the task mux, mainly for tests
func (w *Worker) Handler() asynq.Handler {
	return w.mux
}

// Run processes tasks until ctx is cancelled
func (w *Worker) Run(ctx context.Context) error {
	if err := w.server.Start(w.mux); err != nil {
		return fmt.Errorf("start asynq server: %w", err)
	}
	w.logger.Info("inventory worker started")

	<-ctx.Done()
	w.server.Shutdown()
	w.logger.Info("inventory worker stopped")
	return nil
}

// NewStockMovementHandler decodes a stock movement task and applies it.
// Undecodable payloads are not retried.
func NewStockMovementHandler(target procurement.InventoryUpdater, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		movement, err := ParseStockMovement(task)
		if err != nil {
			logger.Error("dropping malformed inventory task",
				zap.String("task_type", task.Type()),
				zap.Error(err),
			)
			return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
		}

		expected, err := TaskTypeFor(movement.Kind)
		if err != nil || expected != task.Type() {
			return fmt.Errorf("task %s carries a %q movement: %w", task.Type(), movement.Kind, asynq.SkipRetry)
		}

		if err := target.ApplyStockMovement(ctx, movement); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			return fmt.Errorf("apply %s: %w", movement.Reference(), err)
		}
		return nil
	}
}
