package procurement

import (
	"context"
	"time"

	"github.com/erp/procurement/internal/domain/shared"
	"github.com/google/uuid"
)

// OrderFilter narrows a purchase order listing. Zero values are ignored.
type OrderFilter struct {
	shared.Filter
	Status        OrderStatus
	PaymentStatus PaymentStatus
	SupplierID    *uuid.UUID
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
}

// DefaultOrderFilter returns a filter with default paging and ordering
func DefaultOrderFilter() OrderFilter {
	return OrderFilter{Filter: shared.DefaultFilter()}
}

// PurchaseOrderRepository defines the interface for purchase order persistence
type PurchaseOrderRepository interface {
	// FindByID finds a purchase order with all owned records.
	// Returns shared.ErrNotFound when the order does not exist.
	FindByID(ctx context.Context, id uuid.UUID) (*PurchaseOrder, error)

	// FindByOrderNumber finds a purchase order by its order number
	FindByOrderNumber(ctx context.Context, orderNumber string) (*PurchaseOrder, error)

	// FindAll lists purchase orders matching the filter
	FindAll(ctx context.Context, filter OrderFilter) ([]PurchaseOrder, error)

	// Count counts purchase orders matching the filter, ignoring paging
	Count(ctx context.Context, filter OrderFilter) (int64, error)

	// Save inserts a new purchase order
	Save(ctx context.Context, order *PurchaseOrder) error

	// SaveWithLock updates an existing purchase order if its version still
	// matches the stored one, then increments the version. A stale version
	// yields a concurrency error.
	SaveWithLock(ctx context.Context, order *PurchaseOrder) error

	// GenerateOrderNumber returns the next unused order number
	GenerateOrderNumber(ctx context.Context) (string, error)
}
