package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/procurement/internal/domain/procurement"
	"github.com/erp/procurement/internal/infrastructure/config"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Enqueuer is the part of *asynq.Client the dispatcher needs
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// InventoryDispatcher implements procurement.InventoryUpdater by enqueueing
// each stock movement as an asynq task for cmd/worker to apply
type InventoryDispatcher struct {
	client   Enqueuer
	queue    string
	maxRetry int
	timeout  time.Duration
	logger   *zap.Logger
}

// NewInventoryDispatcher creates a dispatcher using the queue settings from cfg
func NewInventoryDispatcher(client Enqueuer, cfg config.QueueConfig, logger *zap.Logger) *InventoryDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	queue := cfg.QueueName
	if queue == "" {
		queue = DefaultQueue
	}
	return &InventoryDispatcher{
		client:   client,
		queue:    queue,
		maxRetry: cfg.MaxRetry,
		timeout:  cfg.Timeout,
		logger:   logger,
	}
}

// ApplyStockMovement enqueues the movement. A movement that is already
// queued counts as delivered.
func (d *InventoryDispatcher) ApplyStockMovement(ctx context.Context, movement procurement.StockMovement) error {
	opts := []asynq.Option{
		asynq.Queue(d.queue),
		asynq.TaskID(TaskID(movement)),
	}
	if d.maxRetry > 0 {
		opts = append(opts, asynq.MaxRetry(d.maxRetry))
	}
	if d.timeout > 0 {
		opts = append(opts, asynq.Timeout(d.timeout))
	}

	task, err := NewStockMovementTask(movement, opts...)
	if err != nil {
		return err
	}

	info, err := d.client.EnqueueContext(ctx, task)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		d.logger.Info("stock movement already queued",
			zap.String("reference", movement.Reference()),
			zap.String("task_id", TaskID(movement)),
		)
		return nil
	}
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", task.Type(), err)
	}

	d.logger.Info("stock movement queued",
		zap.String("task_type", task.Type()),
		zap.String("task_id", info.ID),
		zap.String("queue", info.Queue),
		zap.String("reference", movement.Reference()),
		zap.Int("line_count", len(movement.Lines)),
	)
	return nil
}

var _ procurement.InventoryUpdater = (*InventoryDispatcher)(nil)
