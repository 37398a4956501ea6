package procurement

import (
	"time"

	"github.com/erp/procurement/internal/domain/procurement"
	"github.com/erp/procurement/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LineItemRequest represents one line in a create or update request.
// ID is set when an existing line is edited in place.
type LineItemRequest struct {
	ID              *uuid.UUID      `json:"id,omitempty"`
	ProductID       uuid.UUID       `json:"product_id" binding:"required"`
	ProductName     string          `json:"product_name" binding:"required,min=1,max=200"`
	SKU             string          `json:"sku" binding:"max=100"`
	Quantity        decimal.Decimal `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	TaxPercent      decimal.Decimal `json:"tax_percent"`
}

func (r LineItemRequest) toInput() procurement.LineItemInput {
	return procurement.LineItemInput{
		ID:              r.ID,
		ProductID:       r.ProductID,
		ProductName:     r.ProductName,
		SKU:             r.SKU,
		Quantity:        r.Quantity,
		UnitPrice:       r.UnitPrice,
		DiscountPercent: r.DiscountPercent,
		TaxPercent:      r.TaxPercent,
	}
}

func toLineInputs(items []LineItemRequest) []procurement.LineItemInput {
	inputs := make([]procurement.LineItemInput, len(items))
	for i, item := range items {
		inputs[i] = item.toInput()
	}
	return inputs
}

// CreatePurchaseOrderRequest represents a request to create a purchase order
type CreatePurchaseOrderRequest struct {
	SupplierID           uuid.UUID         `json:"supplier_id" binding:"required"`
	SupplierName         string            `json:"supplier_name" binding:"required,min=1,max=200"`
	Items                []LineItemRequest `json:"items" binding:"required,min=1,dive"`
	ShippingCost         decimal.Decimal   `json:"shipping_cost"`
	ExpectedDeliveryDate *time.Time        `json:"expected_delivery_date"`
	Notes                string            `json:"notes" binding:"max=2000"`
}

// UpdatePurchaseOrderRequest represents a partial update. Nil fields are left unchanged.
type UpdatePurchaseOrderRequest struct {
	SupplierName         *string            `json:"supplier_name" binding:"omitempty,min=1,max=200"`
	Items                *[]LineItemRequest `json:"items"`
	ShippingCost         *decimal.Decimal   `json:"shipping_cost"`
	ExpectedDeliveryDate *time.Time         `json:"expected_delivery_date"`
	Notes                *string            `json:"notes" binding:"omitempty,max=2000"`
}

func (r UpdatePurchaseOrderRequest) toPatch() procurement.OrderPatch {
	patch := procurement.OrderPatch{
		SupplierName:         r.SupplierName,
		ShippingCost:         r.ShippingCost,
		ExpectedDeliveryDate: r.ExpectedDeliveryDate,
		Notes:                r.Notes,
	}
	if r.Items != nil {
		inputs := toLineInputs(*r.Items)
		patch.Items = &inputs
	}
	return patch
}

// ChangeStatusRequest represents a manual workflow transition
type ChangeStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Reason string `json:"reason" binding:"max=500"`
}

// ReceiveItemRequest represents a single line of a goods receipt
type ReceiveItemRequest struct {
	LineItemID       uuid.UUID       `json:"line_item_id" binding:"required"`
	QuantityReceived decimal.Decimal `json:"quantity_received"`
	QuantityAccepted decimal.Decimal `json:"quantity_accepted"`
	QuantityRejected decimal.Decimal `json:"quantity_rejected"`
	RejectionReason  string          `json:"rejection_reason" binding:"max=500"`
	BatchNumber      string          `json:"batch_number" binding:"max=50"`
	ExpiryDate       *time.Time      `json:"expiry_date"`
}

// ReceiveGoodsRequest represents a goods-receipt submission.
// IdempotencyKey is usually taken from the Idempotency-Key header.
type ReceiveGoodsRequest struct {
	Items           []ReceiveItemRequest `json:"items" binding:"required,min=1,dive"`
	ReceivedBy      string               `json:"received_by" binding:"required,max=100"`
	ReceivedDate    *time.Time           `json:"received_date"`
	Notes           string               `json:"notes" binding:"max=2000"`
	QualityApproved bool                 `json:"quality_approved"`
	IdempotencyKey  string               `json:"-"`
}

func (r ReceiveGoodsRequest) toInput() procurement.ReceiveGoodsInput {
	items := make([]procurement.ReceiptItemInput, len(r.Items))
	for i, item := range r.Items {
		items[i] = procurement.ReceiptItemInput{
			LineItemID:       item.LineItemID,
			QuantityReceived: item.QuantityReceived,
			QuantityAccepted: item.QuantityAccepted,
			QuantityRejected: item.QuantityRejected,
			RejectionReason:  item.RejectionReason,
			BatchNumber:      item.BatchNumber,
			ExpiryDate:       item.ExpiryDate,
		}
	}
	input := procurement.ReceiveGoodsInput{
		Items:           items,
		ReceivedBy:      r.ReceivedBy,
		Notes:           r.Notes,
		QualityApproved: r.QualityApproved,
	}
	if r.ReceivedDate != nil {
		input.ReceivedDate = *r.ReceivedDate
	}
	return input
}

// AddPaymentRequest represents a supplier payment
type AddPaymentRequest struct {
	Amount         decimal.Decimal `json:"amount"`
	Method         string          `json:"method" binding:"required,oneof=cash bank_transfer check credit_card other"`
	Date           *time.Time      `json:"date"`
	Reference      string          `json:"reference" binding:"max=100"`
	IdempotencyKey string          `json:"-"`
}

func (r AddPaymentRequest) toInput() procurement.PaymentInput {
	input := procurement.PaymentInput{
		Amount:    r.Amount,
		Method:    procurement.PaymentMethod(r.Method),
		Reference: r.Reference,
	}
	if r.Date != nil {
		input.Date = *r.Date
	}
	return input
}

// ReturnItemRequest represents one line of a return request
type ReturnItemRequest struct {
	LineItemID uuid.UUID       `json:"line_item_id" binding:"required"`
	Quantity   decimal.Decimal `json:"quantity"`
	Reason     string          `json:"reason" binding:"max=500"`
}

// CreateReturnRequest represents a request to return received goods
type CreateReturnRequest struct {
	Reason     string              `json:"reason" binding:"required,max=500"`
	ReturnDate *time.Time          `json:"return_date"`
	Items      []ReturnItemRequest `json:"items" binding:"required,min=1,dive"`
}

func (r CreateReturnRequest) toInput() procurement.CreateReturnInput {
	items := make([]procurement.ReturnItemInput, len(r.Items))
	for i, item := range r.Items {
		items[i] = procurement.ReturnItemInput{
			LineItemID: item.LineItemID,
			Quantity:   item.Quantity,
			Reason:     item.Reason,
		}
	}
	input := procurement.CreateReturnInput{Reason: r.Reason, Items: items}
	if r.ReturnDate != nil {
		input.ReturnDate = *r.ReturnDate
	}
	return input
}

// ChangeReturnStatusRequest represents a return lifecycle transition
type ChangeReturnStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=pending approved completed rejected"`
}

// PurchaseOrderListFilter represents filter options for the order list
type PurchaseOrderListFilter struct {
	Search        string     `form:"search"`
	Status        string     `form:"status"`
	PaymentStatus string     `form:"payment_status"`
	SupplierID    string     `form:"supplier_id"`
	CreatedFrom   *time.Time `form:"from" time_format:"2006-01-02"`
	CreatedTo     *time.Time `form:"to" time_format:"2006-01-02"`
	Page          int        `form:"page" binding:"min=0"`
	PageSize      int        `form:"page_size" binding:"min=0,max=100"`
	OrderBy       string     `form:"order_by"`
	OrderDir      string     `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// LineItemResponse represents a line item in API responses
type LineItemResponse struct {
	ID               uuid.UUID       `json:"id"`
	ProductID        uuid.UUID       `json:"product_id"`
	ProductName      string          `json:"product_name"`
	SKU              string          `json:"sku,omitempty"`
	OrderedQuantity  decimal.Decimal `json:"ordered_quantity"`
	ReceivedQuantity decimal.Decimal `json:"received_quantity"`
	PendingQuantity  decimal.Decimal `json:"pending_quantity"`
	UnitPrice        string          `json:"unit_price"`
	DiscountPercent  decimal.Decimal `json:"discount_percent"`
	TaxPercent       decimal.Decimal `json:"tax_percent"`
	LineTotal        string          `json:"line_total"`
}

// ReceiptItemResponse represents a goods-receipt line in API responses
type ReceiptItemResponse struct {
	LineItemID       uuid.UUID       `json:"line_item_id"`
	ProductID        uuid.UUID       `json:"product_id"`
	ProductName      string          `json:"product_name"`
	QuantityReceived decimal.Decimal `json:"quantity_received"`
	QuantityAccepted decimal.Decimal `json:"quantity_accepted"`
	QuantityRejected decimal.Decimal `json:"quantity_rejected"`
	RejectionReason  string          `json:"rejection_reason,omitempty"`
	BatchNumber      string          `json:"batch_number,omitempty"`
	ExpiryDate       *time.Time      `json:"expiry_date,omitempty"`
}

// ReceiptResponse represents a goods receipt in API responses
type ReceiptResponse struct {
	ID              uuid.UUID             `json:"id"`
	ReceiptNumber   string                `json:"receipt_number"`
	ReceivedDate    time.Time             `json:"received_date"`
	ReceivedBy      string                `json:"received_by"`
	QualityApproved bool                  `json:"quality_approved"`
	Notes           string                `json:"notes,omitempty"`
	Items           []ReceiptItemResponse `json:"items"`
	CreatedAt       time.Time             `json:"created_at"`
}

// PaymentResponse represents a payment in API responses
type PaymentResponse struct {
	ID        uuid.UUID `json:"id"`
	Amount    string    `json:"amount"`
	Method    string    `json:"method"`
	Date      time.Time `json:"date"`
	Reference string    `json:"reference,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ReturnItemResponse represents a return line in API responses
type ReturnItemResponse struct {
	LineItemID  uuid.UUID       `json:"line_item_id"`
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    decimal.Decimal `json:"quantity"`
	Amount      string          `json:"amount"`
	Reason      string          `json:"reason,omitempty"`
}

// ReturnResponse represents a purchase return in API responses
type ReturnResponse struct {
	ID           uuid.UUID            `json:"id"`
	ReturnNumber string               `json:"return_number"`
	ReturnDate   time.Time            `json:"return_date"`
	Reason       string               `json:"reason"`
	Status       string               `json:"status"`
	ReturnAmount string               `json:"return_amount"`
	Items        []ReturnItemResponse `json:"items"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

// PurchaseOrderResponse represents a purchase order in API responses.
// Monetary amounts are rendered to two decimal places.
type PurchaseOrderResponse struct {
	ID                   uuid.UUID          `json:"id"`
	OrderNumber          string             `json:"order_number"`
	SupplierID           uuid.UUID          `json:"supplier_id"`
	SupplierName         string             `json:"supplier_name"`
	Status               string             `json:"status"`
	PaymentStatus        string             `json:"payment_status"`
	Currency             string             `json:"currency"`
	Items                []LineItemResponse `json:"items"`
	Receipts             []ReceiptResponse  `json:"receipts"`
	Returns              []ReturnResponse   `json:"returns"`
	Payments             []PaymentResponse  `json:"payments"`
	Subtotal             string             `json:"subtotal"`
	DiscountAmount       string             `json:"discount_amount"`
	TaxAmount            string             `json:"tax_amount"`
	ShippingCost         string             `json:"shipping_cost"`
	TotalAmount          string             `json:"total_amount"`
	PaidAmount           string             `json:"paid_amount"`
	BalanceAmount        string             `json:"balance_amount"`
	ReceiveProgress      decimal.Decimal    `json:"receive_progress"`
	ExpectedDeliveryDate *time.Time         `json:"expected_delivery_date,omitempty"`
	ActualDeliveryDate   *time.Time         `json:"actual_delivery_date,omitempty"`
	Notes                string             `json:"notes,omitempty"`
	SubmittedAt          *time.Time         `json:"submitted_at,omitempty"`
	ApprovedAt           *time.Time         `json:"approved_at,omitempty"`
	OrderedAt            *time.Time         `json:"ordered_at,omitempty"`
	CancelledAt          *time.Time         `json:"cancelled_at,omitempty"`
	CancelReason         string             `json:"cancel_reason,omitempty"`
	Version              int                `json:"version"`
	CreatedAt            time.Time          `json:"created_at"`
	UpdatedAt            time.Time          `json:"updated_at"`
}

// PurchaseOrderListItemResponse represents a purchase order in list responses
type PurchaseOrderListItemResponse struct {
	ID              uuid.UUID       `json:"id"`
	OrderNumber     string          `json:"order_number"`
	SupplierID      uuid.UUID       `json:"supplier_id"`
	SupplierName    string          `json:"supplier_name"`
	Status          string          `json:"status"`
	PaymentStatus   string          `json:"payment_status"`
	ItemCount       int             `json:"item_count"`
	TotalAmount     string          `json:"total_amount"`
	BalanceAmount   string          `json:"balance_amount"`
	ReceiveProgress decimal.Decimal `json:"receive_progress"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// ReceiveGoodsResponse is the result of a goods receipt
type ReceiveGoodsResponse struct {
	Order   PurchaseOrderResponse `json:"order"`
	Receipt ReceiptResponse       `json:"receipt"`
}

// PaymentResultResponse is the result of recording a payment
type PaymentResultResponse struct {
	Order   PurchaseOrderResponse `json:"order"`
	Payment PaymentResponse       `json:"payment"`
}

// ReturnResultResponse is the result of a return operation
type ReturnResultResponse struct {
	Order  PurchaseOrderResponse `json:"order"`
	Return ReturnResponse        `json:"return"`
}

func display(amount decimal.Decimal, currency valueobject.Currency) string {
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}
	return valueobject.MustMoney(amount, currency).Display()
}

// ToPurchaseOrderResponse converts a domain order to a response DTO
func ToPurchaseOrderResponse(order *procurement.PurchaseOrder, currency valueobject.Currency) PurchaseOrderResponse {
	items := make([]LineItemResponse, len(order.Items))
	for i := range order.Items {
		items[i] = ToLineItemResponse(&order.Items[i], currency)
	}
	receipts := make([]ReceiptResponse, len(order.Receipts))
	for i := range order.Receipts {
		receipts[i] = ToReceiptResponse(&order.Receipts[i])
	}
	returns := make([]ReturnResponse, len(order.Returns))
	for i := range order.Returns {
		returns[i] = ToReturnResponse(&order.Returns[i], currency)
	}
	payments := make([]PaymentResponse, len(order.Payments))
	for i := range order.Payments {
		payments[i] = ToPaymentResponse(&order.Payments[i], currency)
	}

	return PurchaseOrderResponse{
		ID:                   order.ID,
		OrderNumber:          order.OrderNumber,
		SupplierID:           order.SupplierID,
		SupplierName:         order.SupplierName,
		Status:               string(order.Status),
		PaymentStatus:        string(order.PaymentStatus),
		Currency:             string(currency),
		Items:                items,
		Receipts:             receipts,
		Returns:              returns,
		Payments:             payments,
		Subtotal:             display(order.Subtotal, currency),
		DiscountAmount:       display(order.DiscountAmount, currency),
		TaxAmount:            display(order.TaxAmount, currency),
		ShippingCost:         display(order.ShippingCost, currency),
		TotalAmount:          display(order.TotalAmount, currency),
		PaidAmount:           display(order.PaidAmount, currency),
		BalanceAmount:        display(order.BalanceAmount, currency),
		ReceiveProgress:      order.ReceiveProgress(),
		ExpectedDeliveryDate: order.ExpectedDeliveryDate,
		ActualDeliveryDate:   order.ActualDeliveryDate,
		Notes:                order.Notes,
		SubmittedAt:          order.SubmittedAt,
		ApprovedAt:           order.ApprovedAt,
		OrderedAt:            order.OrderedAt,
		CancelledAt:          order.CancelledAt,
		CancelReason:         order.CancelReason,
		Version:              order.Version,
		CreatedAt:            order.CreatedAt,
		UpdatedAt:            order.UpdatedAt,
	}
}

// ToPurchaseOrderListItemResponse converts a domain order to a list item DTO
func ToPurchaseOrderListItemResponse(order *procurement.PurchaseOrder, currency valueobject.Currency) PurchaseOrderListItemResponse {
	return PurchaseOrderListItemResponse{
		ID:              order.ID,
		OrderNumber:     order.OrderNumber,
		SupplierID:      order.SupplierID,
		SupplierName:    order.SupplierName,
		Status:          string(order.Status),
		PaymentStatus:   string(order.PaymentStatus),
		ItemCount:       len(order.Items),
		TotalAmount:     display(order.TotalAmount, currency),
		BalanceAmount:   display(order.BalanceAmount, currency),
		ReceiveProgress: order.ReceiveProgress(),
		CreatedAt:       order.CreatedAt,
		UpdatedAt:       order.UpdatedAt,
	}
}

// ToLineItemResponse converts a line item to a response DTO
func ToLineItemResponse(item *procurement.PurchaseOrderLineItem, currency valueobject.Currency) LineItemResponse {
	return LineItemResponse{
		ID:               item.ID,
		ProductID:        item.ProductID,
		ProductName:      item.ProductName,
		SKU:              item.SKU,
		OrderedQuantity:  item.OrderedQuantity,
		ReceivedQuantity: item.ReceivedQuantity,
		PendingQuantity:  item.PendingQuantity(),
		UnitPrice:        display(item.UnitPrice, currency),
		DiscountPercent:  item.DiscountPercent,
		TaxPercent:       item.TaxPercent,
		LineTotal:        display(item.LineTotal, currency),
	}
}

// ToReceiptResponse converts a goods receipt to a response DTO
func ToReceiptResponse(r *procurement.GoodsReceiptRecord) ReceiptResponse {
	items := make([]ReceiptItemResponse, len(r.Items))
	for i, item := range r.Items {
		items[i] = ReceiptItemResponse{
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
	return ReceiptResponse{
		ID:              r.ID,
		ReceiptNumber:   r.ReceiptNumber,
		ReceivedDate:    r.ReceivedDate,
		ReceivedBy:      r.ReceivedBy,
		QualityApproved: r.QualityApproved,
		Notes:           r.Notes,
		Items:           items,
		CreatedAt:       r.CreatedAt,
	}
}

// ToPaymentResponse converts a payment to a response DTO
func ToPaymentResponse(p *procurement.PaymentRecord, currency valueobject.Currency) PaymentResponse {
	return PaymentResponse{
		ID:        p.ID,
		Amount:    display(p.Amount, currency),
		Method:    string(p.Method),
		Date:      p.Date,
		Reference: p.Reference,
		CreatedAt: p.CreatedAt,
	}
}

// ToReturnResponse converts a purchase return to a response DTO
func ToReturnResponse(r *procurement.PurchaseReturnRecord, currency valueobject.Currency) ReturnResponse {
	items := make([]ReturnItemResponse, len(r.Items))
	for i, item := range r.Items {
		items[i] = ReturnItemResponse{
			LineItemID:  item.LineItemID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			Amount:      display(item.Amount, currency),
			Reason:      item.Reason,
		}
	}
	return ReturnResponse{
		ID:           r.ID,
		ReturnNumber: r.ReturnNumber,
		ReturnDate:   r.ReturnDate,
		Reason:       r.Reason,
		Status:       string(r.Status),
		ReturnAmount: display(r.ReturnAmount, currency),
		Items:        items,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}
