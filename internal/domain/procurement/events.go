package procurement

import (
	"time"

	"github.com/erp/procurement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate type constant
const AggregateTypePurchaseOrder = "PurchaseOrder"

// Event type constants
const (
	EventTypePurchaseOrderCreated       = "PurchaseOrderCreated"
	EventTypePurchaseOrderStatusChanged = "PurchaseOrderStatusChanged"
	EventTypeGoodsReceived              = "PurchaseOrderGoodsReceived"
	EventTypePaymentRecorded            = "PurchaseOrderPaymentRecorded"
	EventTypeReturnCreated              = "PurchaseReturnCreated"
	EventTypeReturnStatusChanged        = "PurchaseReturnStatusChanged"
)

// PurchaseOrderCreatedEvent is raised when a new purchase order is created
type PurchaseOrderCreatedEvent struct {
	shared.BaseDomainEvent
	OrderID      uuid.UUID       `json:"order_id"`
	OrderNumber  string          `json:"order_number"`
	SupplierID   uuid.UUID       `json:"supplier_id"`
	SupplierName string          `json:"supplier_name"`
	ItemCount    int             `json:"item_count"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
}

// NewPurchaseOrderCreatedEvent creates a new PurchaseOrderCreatedEvent
func NewPurchaseOrderCreatedEvent(order *PurchaseOrder) *PurchaseOrderCreatedEvent {
	return &PurchaseOrderCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePurchaseOrderCreated, AggregateTypePurchaseOrder, order.ID),
		OrderID:         order.ID,
		OrderNumber:     order.OrderNumber,
		SupplierID:      order.SupplierID,
		SupplierName:    order.SupplierName,
		ItemCount:       len(order.Items),
		TotalAmount:     order.TotalAmount,
	}
}

// StatusChangedEvent is raised on every order status change, manual or
// receiving-driven
type StatusChangedEvent struct {
	shared.BaseDomainEvent
	OrderID     uuid.UUID   `json:"order_id"`
	OrderNumber string      `json:"order_number"`
	FromStatus  OrderStatus `json:"from_status"`
	ToStatus    OrderStatus `json:"to_status"`
	Reason      string      `json:"reason,omitempty"`
}

// NewStatusChangedEvent creates a new StatusChangedEvent
func NewStatusChangedEvent(order *PurchaseOrder, from OrderStatus, reason string) *StatusChangedEvent {
	return &StatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePurchaseOrderStatusChanged, AggregateTypePurchaseOrder, order.ID),
		OrderID:         order.ID,
		OrderNumber:     order.OrderNumber,
		FromStatus:      from,
		ToStatus:        order.Status,
		Reason:          reason,
	}
}

// ReceivedItemInfo describes the accepted quantity of one line for
// downstream stock handling
type ReceivedItemInfo struct {
	LineItemID       uuid.UUID       `json:"line_item_id"`
	ProductID        uuid.UUID       `json:"product_id"`
	ProductName      string          `json:"product_name"`
	SKU              string          `json:"sku"`
	QuantityAccepted decimal.Decimal `json:"quantity_accepted"`
	QuantityRejected decimal.Decimal `json:"quantity_rejected"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	BatchNumber      string          `json:"batch_number,omitempty"`
	ExpiryDate       *time.Time      `json:"expiry_date,omitempty"`
}

// GoodsReceivedEvent is raised when a goods receipt is applied
type GoodsReceivedEvent struct {
	shared.BaseDomainEvent
	OrderID         uuid.UUID          `json:"order_id"`
	OrderNumber     string             `json:"order_number"`
	SupplierID      uuid.UUID          `json:"supplier_id"`
	ReceiptID       uuid.UUID          `json:"receipt_id"`
	ReceiptNumber   string             `json:"receipt_number"`
	ReceivedDate    time.Time          `json:"received_date"`
	ReceivedBy      string             `json:"received_by"`
	QualityApproved bool               `json:"quality_approved"`
	Items           []ReceivedItemInfo `json:"items"`
	OrderStatus     OrderStatus        `json:"order_status"`
}

// NewGoodsReceivedEvent creates a new GoodsReceivedEvent
func NewGoodsReceivedEvent(order *PurchaseOrder, receipt *GoodsReceiptRecord) *GoodsReceivedEvent {
	items := make([]ReceivedItemInfo, 0, len(receipt.Items))
	for _, ri := range receipt.Items {
		info := ReceivedItemInfo{
			LineItemID:       ri.LineItemID,
			ProductID:        ri.ProductID,
			ProductName:      ri.ProductName,
			QuantityAccepted: ri.QuantityAccepted,
			QuantityRejected: ri.QuantityRejected,
			BatchNumber:      ri.BatchNumber,
			ExpiryDate:       ri.ExpiryDate,
		}
		if line := order.GetItem(ri.LineItemID); line != nil {
			info.SKU = line.SKU
			info.UnitPrice = line.UnitPrice
		}
		items = append(items, info)
	}
	return &GoodsReceivedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeGoodsReceived, AggregateTypePurchaseOrder, order.ID),
		OrderID:         order.ID,
		OrderNumber:     order.OrderNumber,
		SupplierID:      order.SupplierID,
		ReceiptID:       receipt.ID,
		ReceiptNumber:   receipt.ReceiptNumber,
		ReceivedDate:    receipt.ReceivedDate,
		ReceivedBy:      receipt.ReceivedBy,
		QualityApproved: receipt.QualityApproved,
		Items:           items,
		OrderStatus:     order.Status,
	}
}

// PaymentRecordedEvent is raised when a supplier payment is recorded
type PaymentRecordedEvent struct {
	shared.BaseDomainEvent
	OrderID       uuid.UUID       `json:"order_id"`
	OrderNumber   string          `json:"order_number"`
	PaymentID     uuid.UUID       `json:"payment_id"`
	Amount        decimal.Decimal `json:"amount"`
	Method        PaymentMethod   `json:"method"`
	PaidAmount    decimal.Decimal `json:"paid_amount"`
	BalanceAmount decimal.Decimal `json:"balance_amount"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
}

// NewPaymentRecordedEvent creates a new PaymentRecordedEvent
func NewPaymentRecordedEvent(order *PurchaseOrder, payment *PaymentRecord) *PaymentRecordedEvent {
	return &PaymentRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentRecorded, AggregateTypePurchaseOrder, order.ID),
		OrderID:         order.ID,
		OrderNumber:     order.OrderNumber,
		PaymentID:       payment.ID,
		Amount:          payment.Amount,
		Method:          payment.Method,
		PaidAmount:      order.PaidAmount,
		BalanceAmount:   order.BalanceAmount,
		PaymentStatus:   order.PaymentStatus,
	}
}

// ReturnCreatedEvent is raised when a purchase return is created
type ReturnCreatedEvent struct {
	shared.BaseDomainEvent
	OrderID      uuid.UUID       `json:"order_id"`
	OrderNumber  string          `json:"order_number"`
	ReturnID     uuid.UUID       `json:"return_id"`
	ReturnNumber string          `json:"return_number"`
	Reason       string          `json:"reason"`
	ReturnAmount decimal.Decimal `json:"return_amount"`
}

// NewReturnCreatedEvent creates a new ReturnCreatedEvent
func NewReturnCreatedEvent(order *PurchaseOrder, r *PurchaseReturnRecord) *ReturnCreatedEvent {
	return &ReturnCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReturnCreated, AggregateTypePurchaseOrder, order.ID),
		OrderID:         order.ID,
		OrderNumber:     order.OrderNumber,
		ReturnID:        r.ID,
		ReturnNumber:    r.ReturnNumber,
		Reason:          r.Reason,
		ReturnAmount:    r.ReturnAmount,
	}
}

// ReturnStatusChangedEvent is raised when a return moves along its lifecycle
type ReturnStatusChangedEvent struct {
	shared.BaseDomainEvent
	OrderID      uuid.UUID    `json:"order_id"`
	ReturnID     uuid.UUID    `json:"return_id"`
	ReturnNumber string       `json:"return_number"`
	OrderNumber  string       `json:"order_number"`
	FromStatus   ReturnStatus `json:"from_status"`
	ToStatus     ReturnStatus `json:"to_status"`
	Items        []ReturnItem `json:"items"`
}

// NewReturnStatusChangedEvent creates a new ReturnStatusChangedEvent
func NewReturnStatusChangedEvent(order *PurchaseOrder, r *PurchaseReturnRecord, from ReturnStatus) *ReturnStatusChangedEvent {
	return &ReturnStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReturnStatusChanged, AggregateTypePurchaseOrder, order.ID),
		OrderID:         order.ID,
		ReturnID:        r.ID,
		ReturnNumber:    r.ReturnNumber,
		OrderNumber:     order.OrderNumber,
		FromStatus:      from,
		ToStatus:        r.Status,
		Items:           append([]ReturnItem(nil), r.Items...),
	}
}
