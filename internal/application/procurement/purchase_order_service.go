package procurement

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/erp/procurement/internal/domain/procurement"
	"github.com/erp/procurement/internal/domain/shared"
	"github.com/erp/procurement/internal/domain/shared/valueobject"
	"github.com/erp/procurement/internal/infrastructure/logger"
	"github.com/erp/procurement/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultIdempotencyTTL is how long a processed request key is remembered
const DefaultIdempotencyTTL = 24 * time.Hour

// PurchaseOrderService handles purchase order business operations.
// Every mutation of one order runs under that order's lock, so two
// concurrent receipts never observe the same pending quantity.
type PurchaseOrderService struct {
	orderRepo      procurement.PurchaseOrderRepository
	locker         shared.OrderLocker
	idempotency    shared.IdempotencyStore
	idempotencyTTL time.Duration
	eventPublisher shared.EventPublisher
	metrics        *telemetry.ProcurementMetrics
	currency       valueobject.Currency
	logger         *zap.Logger
}

// NewPurchaseOrderService creates a new PurchaseOrderService
func NewPurchaseOrderService(
	orderRepo procurement.PurchaseOrderRepository,
	locker shared.OrderLocker,
	logger *zap.Logger,
) *PurchaseOrderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PurchaseOrderService{
		orderRepo:      orderRepo,
		locker:         locker,
		idempotencyTTL: DefaultIdempotencyTTL,
		currency:       valueobject.DefaultCurrency,
		logger:         logger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *PurchaseOrderService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetMetrics sets the procurement metrics collector
func (s *PurchaseOrderService) SetMetrics(m *telemetry.ProcurementMetrics) {
	s.metrics = m
}

// SetIdempotencyStore enables duplicate detection for receipts and payments
func (s *PurchaseOrderService) SetIdempotencyStore(store shared.IdempotencyStore, ttl time.Duration) {
	s.idempotency = store
	if ttl > 0 {
		s.idempotencyTTL = ttl
	}
}

func (s *PurchaseOrderService) log(ctx context.Context) *logger.ContextLogger {
	return logger.WithLogger(ctx, s.logger)
}

// SetCurrency sets the currency amounts are rendered in
func (s *PurchaseOrderService) SetCurrency(currency valueobject.Currency) {
	if currency != "" {
		s.currency = currency
	}
}

// Create creates a new purchase order in draft status
func (s *PurchaseOrderService) Create(ctx context.Context, req CreatePurchaseOrderRequest) (*PurchaseOrderResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "purchase_order", "create")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrSupplierID, req.SupplierID.String(),
		telemetry.SpanAttrSupplierName, req.SupplierName,
		telemetry.SpanAttrItemCount, len(req.Items),
	)

	orderNumber, err := s.orderRepo.GenerateOrderNumber(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	order, err := procurement.NewPurchaseOrder(orderNumber, procurement.NewOrderInput{
		SupplierID:           req.SupplierID,
		SupplierName:         req.SupplierName,
		Items:                toLineInputs(req.Items),
		ShippingCost:         req.ShippingCost,
		ExpectedDeliveryDate: req.ExpectedDeliveryDate,
		Notes:                req.Notes,
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	events := order.GetDomainEvents()
	order.ClearDomainEvents()

	if err := s.orderRepo.Save(ctx, order); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrOrderID, order.ID.String(),
		telemetry.SpanAttrOrderNumber, order.OrderNumber,
		telemetry.SpanAttrAmount, order.TotalAmount.String(),
	)
	telemetry.SetOK(span)

	if s.metrics != nil {
		s.metrics.RecordOrderCreated(ctx, order.TotalAmount)
	}
	s.publishEvents(ctx, events)

	s.log(ctx).Info("purchase order created",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.String("total_amount", order.TotalAmount.String()),
	)

	response := ToPurchaseOrderResponse(order, s.currency)
	return &response, nil
}

// GetByID retrieves a purchase order by ID
func (s *PurchaseOrderService) GetByID(ctx context.Context, orderID uuid.UUID) (*PurchaseOrderResponse, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	response := ToPurchaseOrderResponse(order, s.currency)
	return &response, nil
}

// GetByOrderNumber retrieves a purchase order by order number
func (s *PurchaseOrderService) GetByOrderNumber(ctx context.Context, orderNumber string) (*PurchaseOrderResponse, error) {
	order, err := s.orderRepo.FindByOrderNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	response := ToPurchaseOrderResponse(order, s.currency)
	return &response, nil
}

// List retrieves a list of purchase orders with filtering and pagination
func (s *PurchaseOrderService) List(ctx context.Context, filter PurchaseOrderListFilter) ([]PurchaseOrderListItemResponse, int64, error) {
	domainFilter, err := toOrderFilter(filter)
	if err != nil {
		return nil, 0, err
	}

	orders, err := s.orderRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.orderRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	items := make([]PurchaseOrderListItemResponse, len(orders))
	for i := range orders {
		items[i] = ToPurchaseOrderListItemResponse(&orders[i], s.currency)
	}
	return items, total, nil
}

// CountByStatus returns the number of purchase orders in each status
func (s *PurchaseOrderService) CountByStatus(ctx context.Context) (map[string]int64, error) {
	counts := make(map[string]int64)
	for _, status := range procurement.AllOrderStatuses() {
		filter := procurement.DefaultOrderFilter()
		filter.Status = status
		n, err := s.orderRepo.Count(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("failed to count %s orders: %w", status, err)
		}
		counts[string(status)] = n
	}
	return counts, nil
}

func toOrderFilter(filter PurchaseOrderListFilter) (procurement.OrderFilter, error) {
	domainFilter := procurement.DefaultOrderFilter()
	if filter.Page > 0 {
		domainFilter.Page = filter.Page
	}
	if filter.PageSize > 0 {
		domainFilter.PageSize = filter.PageSize
	}
	if filter.OrderBy != "" {
		domainFilter.OrderBy = filter.OrderBy
	}
	if filter.OrderDir != "" {
		domainFilter.OrderDir = strings.ToLower(filter.OrderDir)
	}
	domainFilter.Search = filter.Search

	if filter.Status != "" {
		status := procurement.OrderStatus(filter.Status)
		if !status.IsValid() {
			return domainFilter, shared.NewValidationError("INVALID_STATUS",
				fmt.Sprintf("Unknown order status %q", filter.Status))
		}
		domainFilter.Status = status
	}
	if filter.PaymentStatus != "" {
		ps := procurement.PaymentStatus(filter.PaymentStatus)
		if !ps.IsValid() {
			return domainFilter, shared.NewValidationError("INVALID_PAYMENT_STATUS",
				fmt.Sprintf("Unknown payment status %q", filter.PaymentStatus))
		}
		domainFilter.PaymentStatus = ps
	}
	if filter.SupplierID != "" {
		supplierID, err := uuid.Parse(filter.SupplierID)
		if err != nil {
			return domainFilter, shared.NewValidationError("INVALID_SUPPLIER", "Supplier ID must be a UUID")
		}
		domainFilter.SupplierID = &supplierID
	}
	domainFilter.CreatedFrom = filter.CreatedFrom
	domainFilter.CreatedTo = filter.CreatedTo
	return domainFilter, nil
}

// Update applies a partial update to a purchase order
func (s *PurchaseOrderService) Update(ctx context.Context, orderID uuid.UUID, req UpdatePurchaseOrderRequest) (*PurchaseOrderResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "purchase_order", "update")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrOrderID, orderID.String())

	order, err := s.mutate(ctx, "update", orderID, "", func(order *procurement.PurchaseOrder) error {
		return order.Update(req.toPatch())
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	response := ToPurchaseOrderResponse(order, s.currency)
	return &response, nil
}

// ChangeStatus performs a manual workflow transition
// (submit, approve, mark ordered or cancel)
func (s *PurchaseOrderService) ChangeStatus(ctx context.Context, orderID uuid.UUID, req ChangeStatusRequest) (*PurchaseOrderResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "purchase_order", "change_status")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrOrderID, orderID.String(),
		telemetry.SpanAttrOrderStatus, req.Status,
	)

	order, err := s.mutate(ctx, "change_status", orderID, "", func(order *procurement.PurchaseOrder) error {
		return order.ChangeStatus(procurement.OrderStatus(req.Status), req.Reason)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	response := ToPurchaseOrderResponse(order, s.currency)
	return &response, nil
}

// ReceiveGoods applies a goods receipt to an order. Accepted quantities
// are added to the lines and the order status is re-derived; the receipt
// is recorded either way.
func (s *PurchaseOrderService) ReceiveGoods(ctx context.Context, orderID uuid.UUID, req ReceiveGoodsRequest) (*ReceiveGoodsResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "purchase_order", "receive_goods")
	defer span.End()
	start := time.Now()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrOrderID, orderID.String(),
		telemetry.SpanAttrItemCount, len(req.Items),
	)
	if req.IdempotencyKey != "" {
		telemetry.SetAttribute(span, telemetry.SpanAttrIdempotencyKey, req.IdempotencyKey)
	}

	var receipt *procurement.GoodsReceiptRecord
	order, err := s.mutate(ctx, "receive_goods", orderID, idempotencyKey("receipt", orderID, req.IdempotencyKey),
		func(order *procurement.PurchaseOrder) error {
			var err error
			receipt, err = order.ReceiveGoods(req.toInput())
			return err
		})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrReceiptNumber, receipt.ReceiptNumber,
		telemetry.SpanAttrOrderStatus, string(order.Status),
	)
	telemetry.AddEvent(span, "receipt_applied",
		"accepted", receipt.TotalAccepted().String(),
		"rejected", receipt.TotalRejected().String(),
	)
	telemetry.SetOK(span)
	if s.metrics != nil {
		s.metrics.RecordGoodsReceipt(ctx, string(order.Status), receipt.TotalAccepted(), time.Since(start))
	}

	s.log(ctx).Info("goods received",
		zap.String("order_id", order.ID.String()),
		zap.String("receipt_number", receipt.ReceiptNumber),
		zap.String("accepted", receipt.TotalAccepted().String()),
		zap.String("rejected", receipt.TotalRejected().String()),
		zap.String("status", string(order.Status)),
	)

	return &ReceiveGoodsResponse{
		Order:   ToPurchaseOrderResponse(order, s.currency),
		Receipt: ToReceiptResponse(receipt),
	}, nil
}

// AddPayment records a supplier payment against an order
func (s *PurchaseOrderService) AddPayment(ctx context.Context, orderID uuid.UUID, req AddPaymentRequest) (*PaymentResultResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "purchase_order", "add_payment")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrOrderID, orderID.String(),
		telemetry.SpanAttrAmount, req.Amount.String(),
		telemetry.SpanAttrPaymentMethod, req.Method,
	)
	if req.IdempotencyKey != "" {
		telemetry.SetAttribute(span, telemetry.SpanAttrIdempotencyKey, req.IdempotencyKey)
	}

	var payment *procurement.PaymentRecord
	order, err := s.mutate(ctx, "add_payment", orderID, idempotencyKey("payment", orderID, req.IdempotencyKey),
		func(order *procurement.PurchaseOrder) error {
			var err error
			payment, err = order.AddPayment(req.toInput())
			return err
		})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrPaymentID, payment.ID.String(),
		"payment_status", string(order.PaymentStatus),
	)
	telemetry.SetOK(span)
	if s.metrics != nil {
		s.metrics.RecordPayment(ctx, string(payment.Method), payment.Amount)
	}

	return &PaymentResultResponse{
		Order:   ToPurchaseOrderResponse(order, s.currency),
		Payment: ToPaymentResponse(payment, s.currency),
	}, nil
}

// CreateReturn records goods being sent back to the supplier
func (s *PurchaseOrderService) CreateReturn(ctx context.Context, orderID uuid.UUID, req CreateReturnRequest) (*ReturnResultResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "purchase_order", "create_return")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrOrderID, orderID.String())

	var ret *procurement.PurchaseReturnRecord
	order, err := s.mutate(ctx, "create_return", orderID, "", func(order *procurement.PurchaseOrder) error {
		var err error
		ret, err = order.CreateReturn(req.toInput())
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrReturnNumber, ret.ReturnNumber,
		telemetry.SpanAttrAmount, ret.ReturnAmount.String(),
	)
	telemetry.SetOK(span)
	if s.metrics != nil {
		s.metrics.RecordReturnCreated(ctx, ret.ReturnAmount)
	}

	return &ReturnResultResponse{
		Order:  ToPurchaseOrderResponse(order, s.currency),
		Return: ToReturnResponse(ret, s.currency),
	}, nil
}

// ChangeReturnStatus moves a purchase return along its lifecycle
func (s *PurchaseOrderService) ChangeReturnStatus(ctx context.Context, orderID, returnID uuid.UUID, req ChangeReturnStatusRequest) (*ReturnResultResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "purchase_order", "change_return_status")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrOrderID, orderID.String(),
		telemetry.SpanAttrReturnStatus, req.Status,
	)

	var ret *procurement.PurchaseReturnRecord
	order, err := s.mutate(ctx, "change_return_status", orderID, "", func(order *procurement.PurchaseOrder) error {
		var err error
		ret, err = order.ChangeReturnStatus(returnID, procurement.ReturnStatus(req.Status))
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttribute(span, telemetry.SpanAttrReturnNumber, ret.ReturnNumber)
	telemetry.SetOK(span)
	return &ReturnResultResponse{
		Order:  ToPurchaseOrderResponse(order, s.currency),
		Return: ToReturnResponse(ret, s.currency),
	}, nil
}

// mutate loads an order under its lock, applies a domain operation and
// saves the result with an optimistic version check. Events are
// published only after a successful save. A non-empty key makes the
// operation idempotent: a key seen before yields shared.ErrDuplicateRequest.
func (s *PurchaseOrderService) mutate(
	ctx context.Context,
	operation string,
	orderID uuid.UUID,
	key string,
	apply func(order *procurement.PurchaseOrder) error,
) (*procurement.PurchaseOrder, error) {
	release, err := s.locker.Lock(ctx, orderLockKey(orderID))
	if err != nil {
		return nil, err
	}
	defer release()

	if key != "" && s.idempotency != nil {
		processed, err := s.idempotency.IsProcessed(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("check idempotency key: %w", err)
		}
		if processed {
			telemetry.AddEvent(telemetry.SpanFromContext(ctx), "duplicate_request",
				telemetry.SpanAttrIdempotencyKey, key)
			return nil, shared.ErrDuplicateRequest
		}
	}

	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	var applyErr error
	telemetry.WithProfilingLabels(ctx, telemetry.OperationLabels(operation, nil), func(context.Context) {
		applyErr = apply(order)
	})
	if applyErr != nil {
		return nil, applyErr
	}

	events := order.GetDomainEvents()
	order.ClearDomainEvents()

	if err := s.orderRepo.SaveWithLock(ctx, order); err != nil {
		if shared.IsConcurrency(err) {
			s.log(ctx).Warn("purchase order save conflict",
				zap.String("order_id", orderID.String()),
				zap.String("operation", operation),
			)
			if s.metrics != nil {
				s.metrics.RecordConflict(ctx, operation)
			}
		}
		return nil, err
	}

	if key != "" && s.idempotency != nil {
		if _, err := s.idempotency.MarkProcessed(ctx, key, s.idempotencyTTL); err != nil {
			// The write already happened; a lost key only weakens duplicate detection.
			s.log(ctx).Warn("failed to mark idempotency key",
				zap.String("key", key),
				zap.Error(err),
			)
		}
	}

	s.publishEvents(ctx, events)
	return order, nil
}

func (s *PurchaseOrderService) publishEvents(ctx context.Context, events []shared.DomainEvent) {
	for _, event := range events {
		if sc, ok := event.(*procurement.StatusChangedEvent); ok && s.metrics != nil {
			s.metrics.RecordStatusChange(ctx, string(sc.FromStatus), string(sc.ToStatus))
		}
	}
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.log(ctx).Error("failed to publish domain events",
			zap.Int("count", len(events)),
			zap.Error(err),
		)
	}
}

func orderLockKey(orderID uuid.UUID) string {
	return "purchase_order:" + orderID.String()
}

func idempotencyKey(kind string, orderID uuid.UUID, key string) string {
	if key == "" {
		return ""
	}
	return kind + ":" + orderID.String() + ":" + key
}
