// Package queue hands stock movements produced by goods receipts and
// completed purchase returns to the inventory side through asynq tasks.
package queue

import (
	"encoding/json"
	"fmt"

	"github.com/erp/procurement/internal/domain/procurement"
	"github.com/hibiken/asynq"
)

const (
	// DefaultQueue is the asynq queue inventory tasks go to
	DefaultQueue = "inventory"

	// TaskInventoryGoodsReceived carries the accepted quantities of a goods receipt
	TaskInventoryGoodsReceived = "inventory:goods_received"
	// TaskInventoryReturnCompleted carries the quantities of a completed purchase return
	TaskInventoryReturnCompleted = "inventory:return_completed"
)

// TaskTypeFor returns the task type a stock movement is published as
func TaskTypeFor(kind procurement.StockMovementKind) (string, error) {
	switch kind {
	case procurement.StockMovementReceipt:
		return TaskInventoryGoodsReceived, nil
	case procurement.StockMovementReturn:
		return TaskInventoryReturnCompleted, nil
	default:
		return "", fmt.Errorf("unknown stock movement kind %q", kind)
	}
}

// TaskID identifies the task for one receipt or return, so the same
// movement is never queued twice while an earlier copy is still held by asynq
func TaskID(movement procurement.StockMovement) string {
	return string(movement.Kind) + ":" + movement.SourceID.String()
}

// NewStockMovementTask builds the asynq task for a stock movement
func NewStockMovementTask(movement procurement.StockMovement, opts ...asynq.Option) (*asynq.Task, error) {
	taskType, err := TaskTypeFor(movement.Kind)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(movement)
	if err != nil {
		return nil, fmt.Errorf("marshal stock movement: %w", err)
	}
	return asynq.NewTask(taskType, payload, opts...), nil
}

// ParseStockMovement decodes a task payload
func ParseStockMovement(task *asynq.Task) (procurement.StockMovement, error) {
	var movement procurement.StockMovement
	if err := json.Unmarshal(task.Payload(), &movement); err != nil {
		return movement, fmt.Errorf("decode %s payload: %w", task.Type(), err)
	}
	return movement, nil
}
