package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/erp/procurement/internal/domain/procurement"
	"github.com/erp/procurement/internal/domain/shared"
	"github.com/erp/procurement/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultOrderNumberPrefix is used when no prefix is configured
const DefaultOrderNumberPrefix = "PO"

// GormPurchaseOrderRepository implements PurchaseOrderRepository using GORM
type GormPurchaseOrderRepository struct {
	db     *gorm.DB
	prefix string
	now    func() time.Time
}

// PurchaseOrderRepositoryOption configures a GormPurchaseOrderRepository
type PurchaseOrderRepositoryOption func(*GormPurchaseOrderRepository)

// WithOrderNumberPrefix sets the prefix of generated order numbers
func WithOrderNumberPrefix(prefix string) PurchaseOrderRepositoryOption {
	return func(r *GormPurchaseOrderRepository) {
		if prefix != "" {
			r.prefix = prefix
		}
	}
}

// WithClock overrides the time source used for timestamps and order numbers
func WithClock(now func() time.Time) PurchaseOrderRepositoryOption {
	return func(r *GormPurchaseOrderRepository) {
		r.now = now
	}
}

// NewGormPurchaseOrderRepository creates a new GormPurchaseOrderRepository
func NewGormPurchaseOrderRepository(db *gorm.DB, opts ...PurchaseOrderRepositoryOption) *GormPurchaseOrderRepository {
	r := &GormPurchaseOrderRepository{
		db:     db,
		prefix: DefaultOrderNumberPrefix,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func byPosition(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

// withOwnedRecords preloads everything the aggregate owns
func withOwnedRecords(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Items", byPosition).
		Preload("Receipts", byPosition).
		Preload("Receipts.Items", byPosition).
		Preload("Returns", byPosition).
		Preload("Returns.Items", byPosition).
		Preload("Payments", byPosition)
}

// FindByID finds a purchase order by its ID
func (r *GormPurchaseOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*procurement.PurchaseOrder, error) {
	var model models.PurchaseOrderModel
	if err := withOwnedRecords(r.db.WithContext(ctx)).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("NOT_FOUND", fmt.Sprintf("Purchase order %s not found", id))
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByOrderNumber finds a purchase order by order number
func (r *GormPurchaseOrderRepository) FindByOrderNumber(ctx context.Context, orderNumber string) (*procurement.PurchaseOrder, error) {
	var model models.PurchaseOrderModel
	if err := withOwnedRecords(r.db.WithContext(ctx)).
		Where("order_number = ?", orderNumber).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("NOT_FOUND", fmt.Sprintf("Purchase order %s not found", orderNumber))
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll lists purchase orders with their line items. Receipts, returns
// and payments are not loaded for listings.
func (r *GormPurchaseOrderRepository) FindAll(ctx context.Context, filter procurement.OrderFilter) ([]procurement.PurchaseOrder, error) {
	var rows []models.PurchaseOrderModel
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.PurchaseOrderModel{}), filter)
	if err := query.Preload("Items", byPosition).Find(&rows).Error; err != nil {
		return nil, err
	}

	orders := make([]procurement.PurchaseOrder, len(rows))
	for i := range rows {
		orders[i] = *rows[i].ToDomain()
	}
	return orders, nil
}

// Count counts purchase orders matching the filter
func (r *GormPurchaseOrderRepository) Count(ctx context.Context, filter procurement.OrderFilter) (int64, error) {
	var count int64
	query := r.applyFilterWithoutPagination(r.db.WithContext(ctx).Model(&models.PurchaseOrderModel{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Save inserts a new purchase order with its owned records
func (r *GormPurchaseOrderRepository) Save(ctx context.Context, order *procurement.PurchaseOrder) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model := models.PurchaseOrderModelFromDomain(order)

		if err := tx.Omit(clause.Associations).Create(model).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return shared.NewConcurrencyError("DUPLICATE_ORDER_NUMBER",
					fmt.Sprintf("Order number %s is already in use", order.OrderNumber))
			}
			return err
		}
		if err := createItems(tx, model.Items); err != nil {
			return err
		}
		if err := createReceipts(tx, model.Receipts); err != nil {
			return err
		}
		if err := createReturns(tx, model.Returns); err != nil {
			return err
		}
		return createPayments(tx, model.Payments)
	})
}

// SaveWithLock saves with optimistic locking (version check). On success the
// order's version is incremented to match the stored row.
func (r *GormPurchaseOrderRepository) SaveWithLock(ctx context.Context, order *procurement.PurchaseOrder) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var currentVersion int
		result := tx.Model(&models.PurchaseOrderModel{}).
			Where("id = ?", order.ID).
			Select("version").
			Scan(&currentVersion)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.NewNotFoundError("NOT_FOUND", fmt.Sprintf("Purchase order %s not found", order.ID))
		}

		if currentVersion != order.Version {
			return shared.NewConcurrencyError("CONCURRENCY_CONFLICT",
				fmt.Sprintf("Purchase order %s was modified by another request (version %d, expected %d)",
					order.OrderNumber, currentVersion, order.Version))
		}

		nextVersion := order.Version + 1
		updatedAt := r.now()

		model := &models.PurchaseOrderModel{}
		model.FromDomain(order)

		// Update order with version check
		result = tx.Model(&models.PurchaseOrderModel{}).
			Where("id = ? AND version = ?", order.ID, currentVersion).
			Updates(map[string]any{
				"supplier_id":            model.SupplierID,
				"supplier_name":          model.SupplierName,
				"status":                 model.Status,
				"payment_status":         model.PaymentStatus,
				"subtotal":               model.Subtotal,
				"discount_amount":        model.DiscountAmount,
				"tax_amount":             model.TaxAmount,
				"shipping_cost":          model.ShippingCost,
				"total_amount":           model.TotalAmount,
				"paid_amount":            model.PaidAmount,
				"balance_amount":         model.BalanceAmount,
				"expected_delivery_date": model.ExpectedDeliveryDate,
				"actual_delivery_date":   model.ActualDeliveryDate,
				"notes":                  model.Notes,
				"submitted_at":           model.SubmittedAt,
				"approved_at":            model.ApprovedAt,
				"ordered_at":             model.OrderedAt,
				"cancelled_at":           model.CancelledAt,
				"cancel_reason":          model.CancelReason,
				"version":                nextVersion,
				"updated_at":             updatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.NewConcurrencyError("CONCURRENCY_CONFLICT",
				fmt.Sprintf("Purchase order %s was modified by another request", order.OrderNumber))
		}

		// Line items are rewritten as a whole; received quantities change on
		// every receipt and items may be replaced while the order is editable.
		if err := tx.Where("order_id = ?", order.ID).Delete(&models.PurchaseOrderItemModel{}).Error; err != nil {
			return err
		}
		if err := createItems(tx, models.ItemModelsFromDomain(order)); err != nil {
			return err
		}

		if err := r.appendReceipts(tx, order); err != nil {
			return err
		}
		if err := r.syncReturns(tx, order); err != nil {
			return err
		}
		if err := r.appendPayments(tx, order); err != nil {
			return err
		}

		order.Version = nextVersion
		order.UpdatedAt = updatedAt
		return nil
	})
}

// appendReceipts inserts receipts that are not stored yet. Stored receipts
// are immutable.
func (r *GormPurchaseOrderRepository) appendReceipts(tx *gorm.DB, order *procurement.PurchaseOrder) error {
	stored, err := storedIDs(tx, &models.GoodsReceiptModel{}, order.ID)
	if err != nil {
		return err
	}
	var fresh []models.GoodsReceiptModel
	for i := range order.Receipts {
		if _, ok := stored[order.Receipts[i].ID]; !ok {
			fresh = append(fresh, models.GoodsReceiptModelFromDomain(order.ID, i, &order.Receipts[i]))
		}
	}
	return createReceipts(tx, fresh)
}

// syncReturns inserts new returns and updates the status of stored ones
func (r *GormPurchaseOrderRepository) syncReturns(tx *gorm.DB, order *procurement.PurchaseOrder) error {
	stored, err := storedIDs(tx, &models.PurchaseReturnModel{}, order.ID)
	if err != nil {
		return err
	}
	var fresh []models.PurchaseReturnModel
	for i := range order.Returns {
		ret := &order.Returns[i]
		if _, ok := stored[ret.ID]; !ok {
			fresh = append(fresh, models.PurchaseReturnModelFromDomain(order.ID, i, ret))
			continue
		}
		if err := tx.Model(&models.PurchaseReturnModel{}).
			Where("id = ?", ret.ID).
			Updates(map[string]any{
				"status":     string(ret.Status),
				"updated_at": ret.UpdatedAt,
			}).Error; err != nil {
			return err
		}
	}
	return createReturns(tx, fresh)
}

// appendPayments inserts payments that are not stored yet
func (r *GormPurchaseOrderRepository) appendPayments(tx *gorm.DB, order *procurement.PurchaseOrder) error {
	stored, err := storedIDs(tx, &models.PaymentModel{}, order.ID)
	if err != nil {
		return err
	}
	var fresh []models.PaymentModel
	for i := range order.Payments {
		if _, ok := stored[order.Payments[i].ID]; !ok {
			fresh = append(fresh, models.PaymentModelFromDomain(order.ID, i, &order.Payments[i]))
		}
	}
	return createPayments(tx, fresh)
}

func storedIDs(tx *gorm.DB, model any, orderID uuid.UUID) (map[uuid.UUID]struct{}, error) {
	var ids []uuid.UUID
	if err := tx.Model(model).Where("order_id = ?", orderID).Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	set := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

func createItems(tx *gorm.DB, items []models.PurchaseOrderItemModel) error {
	if len(items) == 0 {
		return nil
	}
	return tx.Create(&items).Error
}

func createReceipts(tx *gorm.DB, receipts []models.GoodsReceiptModel) error {
	for i := range receipts {
		if err := tx.Omit(clause.Associations).Create(&receipts[i]).Error; err != nil {
			return err
		}
		if len(receipts[i].Items) > 0 {
			if err := tx.Create(&receipts[i].Items).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

func createReturns(tx *gorm.DB, returns []models.PurchaseReturnModel) error {
	for i := range returns {
		if err := tx.Omit(clause.Associations).Create(&returns[i]).Error; err != nil {
			return err
		}
		if len(returns[i].Items) > 0 {
			if err := tx.Create(&returns[i].Items).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

func createPayments(tx *gorm.DB, payments []models.PaymentModel) error {
	if len(payments) == 0 {
		return nil
	}
	return tx.Create(&payments).Error
}

// ExistsByOrderNumber checks if an order number is already taken
func (r *GormPurchaseOrderRepository) ExistsByOrderNumber(ctx context.Context, orderNumber string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.PurchaseOrderModel{}).
		Where("order_number = ?", orderNumber).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GenerateOrderNumber generates a unique order number.
// Format: PREFIX-YYYY-NNNNN (e.g., PO-2026-00001)
func (r *GormPurchaseOrderRepository) GenerateOrderNumber(ctx context.Context) (string, error) {
	prefix := fmt.Sprintf("%s-%d-", r.prefix, r.now().Year())

	// Get the highest order number for this year
	var lastOrder models.PurchaseOrderModel
	err := r.db.WithContext(ctx).
		Model(&models.PurchaseOrderModel{}).
		Where("order_number LIKE ?", prefix+"%").
		Order("order_number DESC").
		First(&lastOrder).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	var nextNum int64 = 1
	if err == nil {
		var num int64
		if _, parseErr := fmt.Sscanf(strings.TrimPrefix(lastOrder.OrderNumber, prefix), "%d", &num); parseErr == nil {
			nextNum = num + 1
		}
	}

	// The last number may have been taken concurrently, so probe forward
	for i := 0; i < 100; i++ {
		orderNumber := fmt.Sprintf("%s%05d", prefix, nextNum)
		exists, err := r.ExistsByOrderNumber(ctx, orderNumber)
		if err != nil {
			return "", err
		}
		if !exists {
			return orderNumber, nil
		}
		nextNum++
	}
	return "", shared.NewConcurrencyError("ORDER_NUMBER_EXHAUSTED",
		fmt.Sprintf("Could not find a free order number after %s%05d", prefix, nextNum))
}

// applyFilter applies filter options, ordering and pagination
func (r *GormPurchaseOrderRepository) applyFilter(query *gorm.DB, filter procurement.OrderFilter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	// Apply ordering with whitelist validation to prevent SQL injection
	sortField := ValidateSortField(filter.OrderBy, PurchaseOrderSortFields, "created_at")
	sortOrder := ValidateSortOrder(filter.OrderDir)
	query = query.Order(sortField + " " + sortOrder)
	if sortField != "id" {
		query = query.Order("id " + sortOrder)
	}
	return query
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormPurchaseOrderRepository) applyFilterWithoutPagination(query *gorm.DB, filter procurement.OrderFilter) *gorm.DB {
	if search := strings.TrimSpace(filter.Search); search != "" {
		// LOWER ... LIKE works on both postgres and sqlite; sqlite has no
		// default escape character so it is named explicitly
		pattern := "%" + escapeLikePattern(strings.ToLower(search)) + "%"
		query = query.Where(`LOWER(order_number) LIKE ? ESCAPE '\' OR LOWER(supplier_name) LIKE ? ESCAPE '\' OR LOWER(notes) LIKE ? ESCAPE '\'`,
			pattern, pattern, pattern)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}
	if filter.PaymentStatus != "" {
		query = query.Where("payment_status = ?", string(filter.PaymentStatus))
	}
	if filter.SupplierID != nil {
		query = query.Where("supplier_id = ?", *filter.SupplierID)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}
	return query
}

// Ensure GormPurchaseOrderRepository implements PurchaseOrderRepository
var _ procurement.PurchaseOrderRepository = (*GormPurchaseOrderRepository)(nil)

// escapeLikePattern escapes special characters in LIKE patterns
func escapeLikePattern(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "%", "\\%")
	s = strings.ReplaceAll(s, "_", "\\_")
	return s
}
