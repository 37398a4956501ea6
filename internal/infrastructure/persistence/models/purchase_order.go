package models

import (
	"time"

	"github.com/erp/procurement/internal/domain/procurement"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PurchaseOrderModel is the persistence model for the PurchaseOrder aggregate root.
type PurchaseOrderModel struct {
	AggregateModel
	OrderNumber          string                   `gorm:"type:varchar(50);not null;uniqueIndex:idx_purchase_orders_number"`
	SupplierID           uuid.UUID                `gorm:"type:uuid;not null;index"`
	SupplierName         string                   `gorm:"type:varchar(200);not null"`
	Status               string                   `gorm:"type:varchar(20);not null;default:'draft';index"`
	PaymentStatus        string                   `gorm:"type:varchar(20);not null;default:'unpaid';index"`
	Subtotal             decimal.Decimal          `gorm:"type:decimal(18,4);not null;default:0"`
	DiscountAmount       decimal.Decimal          `gorm:"type:decimal(18,4);not null;default:0"`
	TaxAmount            decimal.Decimal          `gorm:"type:decimal(18,4);not null;default:0"`
	ShippingCost         decimal.Decimal          `gorm:"type:decimal(18,4);not null;default:0"`
	TotalAmount          decimal.Decimal          `gorm:"type:decimal(18,4);not null;default:0"`
	PaidAmount           decimal.Decimal          `gorm:"type:decimal(18,4);not null;default:0"`
	BalanceAmount        decimal.Decimal          `gorm:"type:decimal(18,4);not null;default:0"`
	ExpectedDeliveryDate *time.Time               `gorm:"index"`
	ActualDeliveryDate   *time.Time
	Notes                string                   `gorm:"type:text"`
	SubmittedAt          *time.Time
	ApprovedAt           *time.Time
	OrderedAt            *time.Time
	CancelledAt          *time.Time
	CancelReason         string                   `gorm:"type:varchar(500)"`
	Items                []PurchaseOrderItemModel `gorm:"foreignKey:OrderID;references:ID"`
	Receipts             []GoodsReceiptModel      `gorm:"foreignKey:OrderID;references:ID"`
	Returns              []PurchaseReturnModel    `gorm:"foreignKey:OrderID;references:ID"`
	Payments             []PaymentModel           `gorm:"foreignKey:OrderID;references:ID"`
}

// TableName returns the table name for GORM
func (PurchaseOrderModel) TableName() string {
	return "purchase_orders"
}

// ToDomain converts the persistence model to a domain PurchaseOrder.
// Child slices that were not preloaded come back empty.
func (m *PurchaseOrderModel) ToDomain() *procurement.PurchaseOrder {
	order := &procurement.PurchaseOrder{
		BaseAggregateRoot:    m.ToDomainAggregateRoot(),
		OrderNumber:          m.OrderNumber,
		SupplierID:           m.SupplierID,
		SupplierName:         m.SupplierName,
		Status:               procurement.OrderStatus(m.Status),
		Subtotal:             m.Subtotal,
		DiscountAmount:       m.DiscountAmount,
		TaxAmount:            m.TaxAmount,
		ShippingCost:         m.ShippingCost,
		TotalAmount:          m.TotalAmount,
		PaidAmount:           m.PaidAmount,
		BalanceAmount:        m.BalanceAmount,
		PaymentStatus:        procurement.PaymentStatus(m.PaymentStatus),
		ExpectedDeliveryDate: m.ExpectedDeliveryDate,
		ActualDeliveryDate:   m.ActualDeliveryDate,
		Notes:                m.Notes,
		SubmittedAt:          m.SubmittedAt,
		ApprovedAt:           m.ApprovedAt,
		OrderedAt:            m.OrderedAt,
		CancelledAt:          m.CancelledAt,
		CancelReason:         m.CancelReason,
		Items:                make([]procurement.PurchaseOrderLineItem, len(m.Items)),
		Receipts:             make([]procurement.GoodsReceiptRecord, len(m.Receipts)),
		Returns:              make([]procurement.PurchaseReturnRecord, len(m.Returns)),
		Payments:             make([]procurement.PaymentRecord, len(m.Payments)),
	}
	for i := range m.Items {
		order.Items[i] = m.Items[i].ToDomain()
	}
	for i := range m.Receipts {
		order.Receipts[i] = m.Receipts[i].ToDomain()
	}
	for i := range m.Returns {
		order.Returns[i] = m.Returns[i].ToDomain()
	}
	for i := range m.Payments {
		order.Payments[i] = m.Payments[i].ToDomain()
	}
	return order
}

// FromDomain populates the model's own columns from a domain order.
// Owned records are converted separately by the ...ModelsFromDomain helpers.
func (m *PurchaseOrderModel) FromDomain(o *procurement.PurchaseOrder) {
	m.FromDomainAggregateRoot(o.BaseAggregateRoot)
	m.OrderNumber = o.OrderNumber
	m.SupplierID = o.SupplierID
	m.SupplierName = o.SupplierName
	m.Status = string(o.Status)
	m.PaymentStatus = string(o.PaymentStatus)
	m.Subtotal = o.Subtotal
	m.DiscountAmount = o.DiscountAmount
	m.TaxAmount = o.TaxAmount
	m.ShippingCost = o.ShippingCost
	m.TotalAmount = o.TotalAmount
	m.PaidAmount = o.PaidAmount
	m.BalanceAmount = o.BalanceAmount
	m.ExpectedDeliveryDate = o.ExpectedDeliveryDate
	m.ActualDeliveryDate = o.ActualDeliveryDate
	m.Notes = o.Notes
	m.SubmittedAt = o.SubmittedAt
	m.ApprovedAt = o.ApprovedAt
	m.OrderedAt = o.OrderedAt
	m.CancelledAt = o.CancelledAt
	m.CancelReason = o.CancelReason
}

// PurchaseOrderModelFromDomain creates a persistence model, including all
// owned records, from a domain PurchaseOrder.
func PurchaseOrderModelFromDomain(o *procurement.PurchaseOrder) *PurchaseOrderModel {
	m := &PurchaseOrderModel{}
	m.FromDomain(o)
	m.Items = ItemModelsFromDomain(o)
	m.Receipts = make([]GoodsReceiptModel, len(o.Receipts))
	for i := range o.Receipts {
		m.Receipts[i] = GoodsReceiptModelFromDomain(o.ID, i, &o.Receipts[i])
	}
	m.Returns = make([]PurchaseReturnModel, len(o.Returns))
	for i := range o.Returns {
		m.Returns[i] = PurchaseReturnModelFromDomain(o.ID, i, &o.Returns[i])
	}
	m.Payments = make([]PaymentModel, len(o.Payments))
	for i := range o.Payments {
		m.Payments[i] = PaymentModelFromDomain(o.ID, i, &o.Payments[i])
	}
	return m
}

// PurchaseOrderItemModel is the persistence model for an order line item
type PurchaseOrderItemModel struct {
	ID               uuid.UUID       `gorm:"type:uuid;primary_key"`
	OrderID          uuid.UUID       `gorm:"type:uuid;not null;index"`
	Position         int             `gorm:"not null;default:0"`
	ProductID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductName      string          `gorm:"type:varchar(200);not null"`
	SKU              string          `gorm:"column:sku;type:varchar(100)"`
	OrderedQuantity  decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	ReceivedQuantity decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	UnitPrice        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	DiscountPercent  decimal.Decimal `gorm:"type:decimal(7,4);not null;default:0"`
	TaxPercent       decimal.Decimal `gorm:"type:decimal(7,4);not null;default:0"`
	LineTotal        decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (PurchaseOrderItemModel) TableName() string {
	return "purchase_order_items"
}

// ToDomain converts the persistence model to a domain line item
func (m *PurchaseOrderItemModel) ToDomain() procurement.PurchaseOrderLineItem {
	return procurement.PurchaseOrderLineItem{
		ID:               m.ID,
		ProductID:        m.ProductID,
		ProductName:      m.ProductName,
		SKU:              m.SKU,
		OrderedQuantity:  m.OrderedQuantity,
		ReceivedQuantity: m.ReceivedQuantity,
		UnitPrice:        m.UnitPrice,
		DiscountPercent:  m.DiscountPercent,
		TaxPercent:       m.TaxPercent,
		LineTotal:        m.LineTotal,
	}
}

// ItemModelsFromDomain converts the order's line items, keeping their order
func ItemModelsFromDomain(o *procurement.PurchaseOrder) []PurchaseOrderItemModel {
	items := make([]PurchaseOrderItemModel, len(o.Items))
	for i, item := range o.Items {
		items[i] = PurchaseOrderItemModel{
			ID:               item.ID,
			OrderID:          o.ID,
			Position:         i,
			ProductID:        item.ProductID,
			ProductName:      item.ProductName,
			SKU:              item.SKU,
			OrderedQuantity:  item.OrderedQuantity,
			ReceivedQuantity: item.ReceivedQuantity,
			UnitPrice:        item.UnitPrice,
			DiscountPercent:  item.DiscountPercent,
			TaxPercent:       item.TaxPercent,
			LineTotal:        item.LineTotal,
		}
	}
	return items
}

// GoodsReceiptModel is the persistence model for a goods receipt.
// Receipts are insert-only.
type GoodsReceiptModel struct {
	ID              uuid.UUID               `gorm:"type:uuid;primary_key"`
	OrderID         uuid.UUID               `gorm:"type:uuid;not null;index"`
	Position        int                     `gorm:"not null;default:0"`
	ReceiptNumber   string                  `gorm:"type:varchar(80);not null;uniqueIndex"`
	ReceivedDate    time.Time               `gorm:"not null"`
	ReceivedBy      string                  `gorm:"type:varchar(100);not null"`
	QualityApproved bool                    `gorm:"not null;default:false"`
	Notes           string                  `gorm:"type:text"`
	CreatedAt       time.Time               `gorm:"not null"`
	Items           []GoodsReceiptItemModel `gorm:"foreignKey:ReceiptID;references:ID"`
}

// TableName returns the table name for GORM
func (GoodsReceiptModel) TableName() string {
	return "purchase_order_receipts"
}

// ToDomain converts the persistence model to a domain goods receipt
func (m *GoodsReceiptModel) ToDomain() procurement.GoodsReceiptRecord {
	r := procurement.GoodsReceiptRecord{
		ID:              m.ID,
		ReceiptNumber:   m.ReceiptNumber,
		ReceivedDate:    m.ReceivedDate,
		ReceivedBy:      m.ReceivedBy,
		QualityApproved: m.QualityApproved,
		Notes:           m.Notes,
		CreatedAt:       m.CreatedAt,
		Items:           make([]procurement.GoodsReceiptItem, len(m.Items)),
	}
	for i, item := range m.Items {
		r.Items[i] = procurement.GoodsReceiptItem{
			LineItemID:       item.LineItemID,
			ProductID:        item.ProductID,
			ProductName:      item.ProductName,
			QuantityReceived: item.QuantityReceived,
			QuantityAccepted: item.QuantityAccepted,
			QuantityRejected: item.QuantityRejected,
			RejectionReason:  item.RejectionReason,
			BatchNumber:      item.BatchNumber,
			ExpiryDate:       item.ExpiryDate,
		}
	}
	return r
}

// GoodsReceiptModelFromDomain converts a domain receipt at the given position
func GoodsReceiptModelFromDomain(orderID uuid.UUID, position int, r *procurement.GoodsReceiptRecord) GoodsReceiptModel {
	m := GoodsReceiptModel{
		ID:              r.ID,
		OrderID:         orderID,
		Position:        position,
		ReceiptNumber:   r.ReceiptNumber,
		ReceivedDate:    r.ReceivedDate,
		ReceivedBy:      r.ReceivedBy,
		QualityApproved: r.QualityApproved,
		Notes:           r.Notes,
		CreatedAt:       r.CreatedAt,
		Items:           make([]GoodsReceiptItemModel, len(r.Items)),
	}
	for i, item := range r.Items {
		m.Items[i] = GoodsReceiptItemModel{
			ID:               uuid.New(),
			ReceiptID:        r.ID,
			Position:         i,
			LineItemID:       item.LineItemID,
			ProductID:        item.ProductID,
			ProductName:      item.ProductName,
			QuantityReceived: item.QuantityReceived,
			QuantityAccepted: item.QuantityAccepted,
			QuantityRejected: item.QuantityRejected,
			RejectionReason:  item.RejectionReason,
			BatchNumber:      item.BatchNumber,
			ExpiryDate:       item.ExpiryDate,
		}
	}
	return m
}

// GoodsReceiptItemModel is the persistence model for a goods receipt line
type GoodsReceiptItemModel struct {
	ID               uuid.UUID       `gorm:"type:uuid;primary_key"`
	ReceiptID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	Position         int             `gorm:"not null;default:0"`
	LineItemID       uuid.UUID       `gorm:"type:uuid;not null"`
	ProductID        uuid.UUID       `gorm:"type:uuid;not null"`
	ProductName      string          `gorm:"type:varchar(200);not null"`
	QuantityReceived decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	QuantityAccepted decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	QuantityRejected decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	RejectionReason  string          `gorm:"type:varchar(500)"`
	BatchNumber      string          `gorm:"type:varchar(100)"`
	ExpiryDate       *time.Time
}

// TableName returns the table name for GORM
func (GoodsReceiptItemModel) TableName() string {
	return "purchase_order_receipt_items"
}

// PurchaseReturnModel is the persistence model for a purchase return.
// Only status and updated_at change after insert.
type PurchaseReturnModel struct {
	ID           uuid.UUID         `gorm:"type:uuid;primary_key"`
	OrderID      uuid.UUID         `gorm:"type:uuid;not null;index"`
	Position     int               `gorm:"not null;default:0"`
	ReturnNumber string            `gorm:"type:varchar(80);not null;uniqueIndex"`
	ReturnDate   time.Time         `gorm:"not null"`
	Reason       string            `gorm:"type:varchar(500);not null"`
	ReturnAmount decimal.Decimal   `gorm:"type:decimal(18,4);not null;default:0"`
	Status       string            `gorm:"type:varchar(20);not null;default:'pending'"`
	CreatedAt    time.Time         `gorm:"not null"`
	UpdatedAt    time.Time         `gorm:"not null"`
	Items        []ReturnItemModel `gorm:"foreignKey:ReturnID;references:ID"`
}

// TableName returns the table name for GORM
func (PurchaseReturnModel) TableName() string {
	return "purchase_returns"
}

// ToDomain converts the persistence model to a domain return
func (m *PurchaseReturnModel) ToDomain() procurement.PurchaseReturnRecord {
	r := procurement.PurchaseReturnRecord{
		ID:           m.ID,
		ReturnNumber: m.ReturnNumber,
		ReturnDate:   m.ReturnDate,
		Reason:       m.Reason,
		ReturnAmount: m.ReturnAmount,
		Status:       procurement.ReturnStatus(m.Status),
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
		Items:        make([]procurement.ReturnItem, len(m.Items)),
	}
	for i, item := range m.Items {
		r.Items[i] = procurement.ReturnItem{
			LineItemID:  item.LineItemID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			Amount:      item.Amount,
			Reason:      item.Reason,
		}
	}
	return r
}

// PurchaseReturnModelFromDomain converts a domain return at the given position
func PurchaseReturnModelFromDomain(orderID uuid.UUID, position int, r *procurement.PurchaseReturnRecord) PurchaseReturnModel {
	m := PurchaseReturnModel{
		ID:           r.ID,
		OrderID:      orderID,
		Position:     position,
		ReturnNumber: r.ReturnNumber,
		ReturnDate:   r.ReturnDate,
		Reason:       r.Reason,
		ReturnAmount: r.ReturnAmount,
		Status:       string(r.Status),
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
		Items:        make([]ReturnItemModel, len(r.Items)),
	}
	for i, item := range r.Items {
		m.Items[i] = ReturnItemModel{
			ID:          uuid.New(),
			ReturnID:    r.ID,
			Position:    i,
			LineItemID:  item.LineItemID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			Amount:      item.Amount,
			Reason:      item.Reason,
		}
	}
	return m
}

// ReturnItemModel is the persistence model for a purchase return line
type ReturnItemModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key"`
	ReturnID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	Position    int             `gorm:"not null;default:0"`
	LineItemID  uuid.UUID       `gorm:"type:uuid;not null"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null"`
	ProductName string          `gorm:"type:varchar(200);not null"`
	Quantity    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Amount      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Reason      string          `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (ReturnItemModel) TableName() string {
	return "purchase_return_items"
}

// PaymentModel is the persistence model for a supplier payment.
// Payments are insert-only.
type PaymentModel struct {
	ID        uuid.UUID       `gorm:"type:uuid;primary_key"`
	OrderID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	Position  int             `gorm:"not null;default:0"`
	Amount    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Method    string          `gorm:"type:varchar(30);not null"`
	Date      time.Time       `gorm:"column:payment_date;not null"`
	Reference string          `gorm:"type:varchar(200)"`
	CreatedAt time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "purchase_order_payments"
}

// ToDomain converts the persistence model to a domain payment
func (m *PaymentModel) ToDomain() procurement.PaymentRecord {
	return procurement.PaymentRecord{
		ID:        m.ID,
		Amount:    m.Amount,
		Method:    procurement.PaymentMethod(m.Method),
		Date:      m.Date,
		Reference: m.Reference,
		CreatedAt: m.CreatedAt,
	}
}

// PaymentModelFromDomain converts a domain payment at the given position
func PaymentModelFromDomain(orderID uuid.UUID, position int, p *procurement.PaymentRecord) PaymentModel {
	return PaymentModel{
		ID:        p.ID,
		OrderID:   orderID,
		Position:  position,
		Amount:    p.Amount,
		Method:    string(p.Method),
		Date:      p.Date,
		Reference: p.Reference,
		CreatedAt: p.CreatedAt,
	}
}

// AllModels lists every model for schema auto-migration in tests and
// the sqlite development setup
func AllModels() []any {
	return []any{
		&PurchaseOrderModel{},
		&PurchaseOrderItemModel{},
		&GoodsReceiptModel{},
		&GoodsReceiptItemModel{},
		&PurchaseReturnModel{},
		&ReturnItemModel{},
		&PaymentModel{},
	}
}
