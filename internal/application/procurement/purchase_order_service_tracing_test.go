package procurement

import (
	"context"
	"testing"

	"github.com/erp/procurement/internal/domain/shared"
	"github.com/erp/procurement/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(original)
		_ = tp.Shutdown(context.Background())
	})
	return sr
}

// endedSpans returns the ended spans with the given name, oldest first
func endedSpans(sr *tracetest.SpanRecorder, name string) []sdktrace.ReadOnlySpan {
	var spans []sdktrace.ReadOnlySpan
	for _, s := range sr.Ended() {
		if s.Name() == name {
			spans = append(spans, s)
		}
	}
	return spans
}

func spanAttrs(span sdktrace.ReadOnlySpan) map[string]string {
	attrs := make(map[string]string)
	for _, kv := range span.Attributes() {
		if kv.Value.Type() == attribute.STRING {
			attrs[string(kv.Key)] = kv.Value.AsString()
		}
	}
	return attrs
}

func TestPurchaseOrderService_Spans(t *testing.T) {
	sr := recordSpans(t)
	f := newServiceFixture(t)
	ctx := context.Background()

	order := f.createApproved(t)

	create := endedSpans(sr, "purchase_order.create")
	require.Len(t, create, 1)
	assert.Equal(t, "Acme Foods", spanAttrs(create[0])[telemetry.SpanAttrSupplierName])
	assert.NotEmpty(t, spanAttrs(create[0])[telemetry.SpanAttrSupplierID])
	assert.Equal(t, codes.Ok, create[0].Status().Code)

	t.Run("payment", func(t *testing.T) {
		resp, err := f.service.AddPayment(ctx, order.ID, AddPaymentRequest{
			Amount:         decimal.NewFromInt(100),
			Method:         "cash",
			IdempotencyKey: "pay-span",
		})
		require.NoError(t, err)

		_, err = f.service.AddPayment(ctx, order.ID, AddPaymentRequest{
			Amount:         decimal.NewFromInt(100),
			Method:         "cash",
			IdempotencyKey: "pay-span",
		})
		require.ErrorIs(t, err, shared.ErrDuplicateRequest)

		spans := endedSpans(sr, "purchase_order.add_payment")
		require.Len(t, spans, 2)

		attrs := spanAttrs(spans[0])
		assert.Equal(t, resp.Payment.ID.String(), attrs[telemetry.SpanAttrPaymentID])
		assert.Equal(t, "cash", attrs[telemetry.SpanAttrPaymentMethod])
		assert.Equal(t, "pay-span", attrs[telemetry.SpanAttrIdempotencyKey])
		assert.Equal(t, codes.Ok, spans[0].Status().Code)

		assert.Equal(t, codes.Error, spans[1].Status().Code)
		assert.NotContains(t, spanAttrs(spans[1]), telemetry.SpanAttrPaymentID)
		var names []string
		for _, e := range spans[1].Events() {
			names = append(names, e.Name)
		}
		assert.Contains(t, names, "duplicate_request")
	})

	t.Run("receipt and return", func(t *testing.T) {
		flour := order.Items[0]
		_, err := f.service.ReceiveGoods(ctx, order.ID, ReceiveGoodsRequest{
			ReceivedBy:     "dock",
			IdempotencyKey: "grn-span",
			Items: []ReceiveItemRequest{{
				LineItemID:       flour.ID,
				QuantityReceived: decimal.NewFromInt(20),
				QuantityAccepted: decimal.NewFromInt(20),
			}},
		})
		require.NoError(t, err)

		receive := endedSpans(sr, "purchase_order.receive_goods")
		require.Len(t, receive, 1)
		assert.Equal(t, "grn-span", spanAttrs(receive[0])[telemetry.SpanAttrIdempotencyKey])
		require.Len(t, receive[0].Events(), 1)
		assert.Equal(t, "receipt_applied", receive[0].Events()[0].Name)

		created, err := f.service.CreateReturn(ctx, order.ID, CreateReturnRequest{
			Reason: "mould",
			Items:  []ReturnItemRequest{{LineItemID: flour.ID, Quantity: decimal.NewFromInt(5)}},
		})
		require.NoError(t, err)
		_, err = f.service.ChangeReturnStatus(ctx, order.ID, created.Return.ID, ChangeReturnStatusRequest{Status: "approved"})
		require.NoError(t, err)

		for _, name := range []string{"purchase_order.create_return", "purchase_order.change_return_status"} {
			spans := endedSpans(sr, name)
			require.Len(t, spans, 1, name)
			assert.Equal(t, created.Return.ReturnNumber, spanAttrs(spans[0])[telemetry.SpanAttrReturnNumber], name)
			assert.Equal(t, codes.Ok, spans[0].Status().Code, name)
		}
		assert.Equal(t, "approved", spanAttrs(endedSpans(sr, "purchase_order.change_return_status")[0])[telemetry.SpanAttrReturnStatus])
	})
}
