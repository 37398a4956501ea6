package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ProcurementMetrics records purchase order activity: orders created,
// status transitions, goods receipts, payments and supplier returns.
type ProcurementMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	ordersCreatedTotal  *Counter
	orderAmountTotal    *Counter
	statusChangesTotal  *Counter
	goodsReceiptsTotal  *Counter
	receivedUnitsTotal  *Counter
	paymentsTotal       *Counter
	paymentAmountTotal  *Counter
	returnsCreatedTotal *Counter
	returnAmountTotal   *Counter
	conflictsTotal      *Counter

	receiptDuration *Histogram

	ordersByStatus *Gauge

	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once
}

// OrderStatusCounter reports the current number of purchase orders per status
type OrderStatusCounter interface {
	CountByStatus(ctx context.Context) (map[string]int64, error)
}

// ProcurementMetricsConfig holds configuration for procurement metrics.
type ProcurementMetricsConfig struct {
	Meter  metric.Meter
	Logger *zap.Logger
}

// NewProcurementMetrics creates all procurement instruments on the given meter.
func NewProcurementMetrics(cfg ProcurementMetricsConfig) (*ProcurementMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	pm := &ProcurementMetrics{
		meter:    cfg.Meter,
		logger:   logger,
		stopChan: make(chan struct{}),
	}

	counters := []struct {
		target      **Counter
		name        string
		description string
		unit        string
	}{
		{&pm.ordersCreatedTotal, "procurement_orders_created_total", "Total number of purchase orders created", "{orders}"},
		{&pm.orderAmountTotal, "procurement_order_amount_total", "Total purchase order amount in cents", "{cents}"},
		{&pm.statusChangesTotal, "procurement_status_changes_total", "Total number of purchase order status transitions", "{transitions}"},
		{&pm.goodsReceiptsTotal, "procurement_goods_receipts_total", "Total number of goods receipts recorded", "{receipts}"},
		{&pm.receivedUnitsTotal, "procurement_received_units_total", "Total accepted units across goods receipts", "{units}"},
		{&pm.paymentsTotal, "procurement_payments_total", "Total number of supplier payments recorded", "{payments}"},
		{&pm.paymentAmountTotal, "procurement_payment_amount_total", "Total supplier payment amount in cents", "{cents}"},
		{&pm.returnsCreatedTotal, "procurement_returns_created_total", "Total number of supplier returns created", "{returns}"},
		{&pm.returnAmountTotal, "procurement_return_amount_total", "Total supplier return amount in cents", "{cents}"},
		{&pm.conflictsTotal, "procurement_concurrency_conflicts_total", "Total number of writes rejected by a stale version", "{conflicts}"},
	}

	var err error
	for _, c := range counters {
		*c.target, err = NewCounter(cfg.Meter, c.name, c.description, c.unit)
		if err != nil {
			return nil, err
		}
	}

	pm.receiptDuration, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "procurement_goods_receipt_duration_seconds",
		Description: "Time taken to apply a goods receipt to a purchase order",
		Unit:        "s",
		Boundaries:  HTTPDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	pm.ordersByStatus, err = NewGauge(
		cfg.Meter,
		"procurement_orders_by_status",
		"Current number of purchase orders per status",
		"{orders}",
	)
	if err != nil {
		return nil, err
	}

	return pm, nil
}

// RecordOrderCreated records a new purchase order and its total
func (pm *ProcurementMetrics) RecordOrderCreated(ctx context.Context, total decimal.Decimal) {
	pm.ordersCreatedTotal.Inc(ctx)
	pm.orderAmountTotal.Add(ctx, toCents(total))
}

// RecordStatusChange records a status transition
func (pm *ProcurementMetrics) RecordStatusChange(ctx context.Context, from, to string) {
	pm.statusChangesTotal.Inc(ctx,
		AttrFromStatus.String(from),
		AttrToStatus.String(to),
	)
}

// RecordGoodsReceipt records an applied receipt. orderStatus is the status
// the order ended in; accepted is counted in whole units.
func (pm *ProcurementMetrics) RecordGoodsReceipt(ctx context.Context, orderStatus string, accepted decimal.Decimal, elapsed time.Duration) {
	pm.goodsReceiptsTotal.Inc(ctx, AttrOrderStatus.String(orderStatus))
	pm.receivedUnitsTotal.Add(ctx, accepted.IntPart())
	pm.receiptDuration.RecordDuration(ctx, elapsed, AttrOrderStatus.String(orderStatus))
}

// RecordPayment records a supplier payment
func (pm *ProcurementMetrics) RecordPayment(ctx context.Context, method string, amount decimal.Decimal) {
	pm.paymentsTotal.Inc(ctx, AttrPaymentMethod.String(method))
	pm.paymentAmountTotal.Add(ctx, toCents(amount), AttrPaymentMethod.String(method))
}

// RecordReturnCreated records a supplier return
func (pm *ProcurementMetrics) RecordReturnCreated(ctx context.Context, amount decimal.Decimal) {
	pm.returnsCreatedTotal.Inc(ctx)
	pm.returnAmountTotal.Add(ctx, toCents(amount))
}

// RecordConflict records a write lost to a concurrent modification
func (pm *ProcurementMetrics) RecordConflict(ctx context.Context, operation string) {
	pm.conflictsTotal.Inc(ctx, AttrOperation.String(operation))
}

// RecordOrdersByStatus records the current order count for one status
func (pm *ProcurementMetrics) RecordOrdersByStatus(ctx context.Context, status string, count int64) {
	pm.ordersByStatus.Record(ctx, count, AttrOrderStatus.String(status))
}

// StartPeriodicCollection samples order counts per status every interval
// (default: 5 minutes) until Stop is called or ctx is done.
func (pm *ProcurementMetrics) StartPeriodicCollection(ctx context.Context, counter OrderStatusCounter, interval time.Duration) {
	pm.collectOnce.Do(func() {
		if interval <= 0 {
			interval = 5 * time.Minute
		}
		go pm.runPeriodicCollection(ctx, counter, interval)
	})
}

func (pm *ProcurementMetrics) runPeriodicCollection(ctx context.Context, counter OrderStatusCounter, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	pm.collectOrderCounts(ctx, counter)

	for {
		select {
		case <-pm.stopChan:
			pm.logger.Info("Stopping periodic procurement metrics collection")
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			pm.collectOrderCounts(ctx, counter)
		}
	}
}

func (pm *ProcurementMetrics) collectOrderCounts(ctx context.Context, counter OrderStatusCounter) {
	counts, err := counter.CountByStatus(ctx)
	if err != nil {
		pm.logger.Warn("Failed to count purchase orders by status", zap.Error(err))
		return
	}
	for status, count := range counts {
		pm.RecordOrdersByStatus(ctx, status, count)
	}
}

// Stop stops the periodic collection.
func (pm *ProcurementMetrics) Stop() {
	pm.stopOnce.Do(func() {
		close(pm.stopChan)
	})
}

func toCents(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewProcurementMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
