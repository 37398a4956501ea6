package persistence

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/erp/procurement/internal/domain/procurement"
	"github.com/erp/procurement/internal/domain/shared"
	"github.com/google/uuid"
)

// InMemoryPurchaseOrderRepository keeps orders in process memory. It copies
// orders on the way in and out, so callers never share state with the store.
type InMemoryPurchaseOrderRepository struct {
	mu     sync.RWMutex
	orders map[uuid.UUID]*procurement.PurchaseOrder
	prefix string
	now    func() time.Time
}

// NewInMemoryPurchaseOrderRepository creates an empty in-memory repository
func NewInMemoryPurchaseOrderRepository(prefix string) *InMemoryPurchaseOrderRepository {
	if prefix == "" {
		prefix = DefaultOrderNumberPrefix
	}
	return &InMemoryPurchaseOrderRepository{
		orders: make(map[uuid.UUID]*procurement.PurchaseOrder),
		prefix: prefix,
		now:    time.Now,
	}
}

// FindByID returns a copy of the stored order
func (r *InMemoryPurchaseOrderRepository) FindByID(_ context.Context, id uuid.UUID) (*procurement.PurchaseOrder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, shared.NewNotFoundError("NOT_FOUND", fmt.Sprintf("Purchase order %s not found", id))
	}
	return cloneOrder(order), nil
}

// FindByOrderNumber returns a copy of the order with the given number
func (r *InMemoryPurchaseOrderRepository) FindByOrderNumber(_ context.Context, orderNumber string) (*procurement.PurchaseOrder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, order := range r.orders {
		if order.OrderNumber == orderNumber {
			return cloneOrder(order), nil
		}
	}
	return nil, shared.NewNotFoundError("NOT_FOUND", fmt.Sprintf("Purchase order %s not found", orderNumber))
}

// FindAll lists orders matching the filter, sorted and paged like the SQL store
func (r *InMemoryPurchaseOrderRepository) FindAll(_ context.Context, filter procurement.OrderFilter) ([]procurement.PurchaseOrder, error) {
	r.mu.RLock()
	matched := r.match(filter)
	r.mu.RUnlock()

	sortOrders(matched, filter.OrderBy, filter.OrderDir)

	start := filter.Offset()
	if start > len(matched) {
		start = len(matched)
	}
	end := len(matched)
	if filter.PageSize > 0 && start+filter.PageSize < end {
		end = start + filter.PageSize
	}

	result := make([]procurement.PurchaseOrder, 0, end-start)
	for _, order := range matched[start:end] {
		result = append(result, *order)
	}
	return result, nil
}

// Count counts orders matching the filter
func (r *InMemoryPurchaseOrderRepository) Count(_ context.Context, filter procurement.OrderFilter) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.match(filter))), nil
}

// Save inserts a new order
func (r *InMemoryPurchaseOrderRepository) Save(_ context.Context, order *procurement.PurchaseOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orders[order.ID]; exists {
		return shared.NewConcurrencyError("DUPLICATE_ORDER", fmt.Sprintf("Purchase order %s already exists", order.ID))
	}
	for _, stored := range r.orders {
		if stored.OrderNumber == order.OrderNumber {
			return shared.NewConcurrencyError("DUPLICATE_ORDER_NUMBER",
				fmt.Sprintf("Order number %s is already in use", order.OrderNumber))
		}
	}
	r.orders[order.ID] = cloneOrder(order)
	return nil
}

// SaveWithLock replaces the stored order when the versions match
func (r *InMemoryPurchaseOrderRepository) SaveWithLock(_ context.Context, order *procurement.PurchaseOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.orders[order.ID]
	if !ok {
		return shared.NewNotFoundError("NOT_FOUND", fmt.Sprintf("Purchase order %s not found", order.ID))
	}
	if stored.Version != order.Version {
		return shared.NewConcurrencyError("CONCURRENCY_CONFLICT",
			fmt.Sprintf("Purchase order %s was modified by another request (version %d, expected %d)",
				order.OrderNumber, stored.Version, order.Version))
	}

	order.Version++
	order.UpdatedAt = r.now()
	r.orders[order.ID] = cloneOrder(order)
	return nil
}

// GenerateOrderNumber returns the next PREFIX-YYYY-NNNNN number
func (r *InMemoryPurchaseOrderRepository) GenerateOrderNumber(_ context.Context) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	prefix := fmt.Sprintf("%s-%d-", r.prefix, r.now().Year())
	var highest int64
	for _, order := range r.orders {
		if !strings.HasPrefix(order.OrderNumber, prefix) {
			continue
		}
		var num int64
		if _, err := fmt.Sscanf(strings.TrimPrefix(order.OrderNumber, prefix), "%d", &num); err == nil && num > highest {
			highest = num
		}
	}
	return fmt.Sprintf("%s%05d", prefix, highest+1), nil
}

// Len returns the number of stored orders
func (r *InMemoryPurchaseOrderRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.orders)
}

// match returns copies of the orders passing the filter. Callers hold the read lock.
func (r *InMemoryPurchaseOrderRepository) match(filter procurement.OrderFilter) []*procurement.PurchaseOrder {
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	var matched []*procurement.PurchaseOrder
	for _, order := range r.orders {
		if filter.Status != "" && order.Status != filter.Status {
			continue
		}
		if filter.PaymentStatus != "" && order.PaymentStatus != filter.PaymentStatus {
			continue
		}
		if filter.SupplierID != nil && order.SupplierID != *filter.SupplierID {
			continue
		}
		if filter.CreatedFrom != nil && order.CreatedAt.Before(*filter.CreatedFrom) {
			continue
		}
		if filter.CreatedTo != nil && order.CreatedAt.After(*filter.CreatedTo) {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(order.OrderNumber), search) &&
			!strings.Contains(strings.ToLower(order.SupplierName), search) &&
			!strings.Contains(strings.ToLower(order.Notes), search) {
			continue
		}
		matched = append(matched, cloneOrder(order))
	}
	return matched
}

func sortOrders(orders []*procurement.PurchaseOrder, orderBy, orderDir string) {
	field := ValidateSortField(orderBy, PurchaseOrderSortFields, "created_at")
	desc := ValidateSortOrder(orderDir) == "DESC"

	less := func(a, b *procurement.PurchaseOrder) int {
		switch field {
		case "order_number":
			return strings.Compare(a.OrderNumber, b.OrderNumber)
		case "supplier_name":
			return strings.Compare(a.SupplierName, b.SupplierName)
		case "status":
			return strings.Compare(string(a.Status), string(b.Status))
		case "payment_status":
			return strings.Compare(string(a.PaymentStatus), string(b.PaymentStatus))
		case "total_amount":
			return a.TotalAmount.Cmp(b.TotalAmount)
		case "paid_amount":
			return a.PaidAmount.Cmp(b.PaidAmount)
		case "balance_amount":
			return a.BalanceAmount.Cmp(b.BalanceAmount)
		case "updated_at":
			return a.UpdatedAt.Compare(b.UpdatedAt)
		default:
			return a.CreatedAt.Compare(b.CreatedAt)
		}
	}

	sort.SliceStable(orders, func(i, j int) bool {
		c := less(orders[i], orders[j])
		if c == 0 {
			c = strings.Compare(orders[i].ID.String(), orders[j].ID.String())
		}
		if desc {
			return c > 0
		}
		return c < 0
	})
}

// cloneOrder deep-copies the owned slices and drops pending events
func cloneOrder(o *procurement.PurchaseOrder) *procurement.PurchaseOrder {
	c := *o
	c.ClearDomainEvents()
	c.Items = append([]procurement.PurchaseOrderLineItem(nil), o.Items...)
	c.Receipts = make([]procurement.GoodsReceiptRecord, len(o.Receipts))
	for i, r := range o.Receipts {
		r.Items = append([]procurement.GoodsReceiptItem(nil), r.Items...)
		c.Receipts[i] = r
	}
	c.Returns = make([]procurement.PurchaseReturnRecord, len(o.Returns))
	for i, r := range o.Returns {
		r.Items = append([]procurement.ReturnItem(nil), r.Items...)
		c.Returns[i] = r
	}
	c.Payments = append([]procurement.PaymentRecord(nil), o.Payments...)
	return &c
}

var _ procurement.PurchaseOrderRepository = (*InMemoryPurchaseOrderRepository)(nil)
