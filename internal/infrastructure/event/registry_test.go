package event

import (
	"context"
	"testing"

	"github.com/erp/procurement/internal/domain/procurement"
	"github.com/erp/procurement/internal/domain/shared"
	"github.com/stretchr/testify/assert"
)

type recordingHandler struct {
	eventTypes []string
	handled    []shared.DomainEvent
}

func newRecordingHandler(eventTypes ...string) *recordingHandler {
	return &recordingHandler{eventTypes: eventTypes}
}

func (h *recordingHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	h.handled = append(h.handled, event)
	return nil
}

func (h *recordingHandler) EventTypes() []string {
	return h.eventTypes
}

func TestHandlerRegistry_Register(t *testing.T) {
	t.Run("specific types", func(t *testing.T) {
		registry := NewHandlerRegistry()
		handler := newRecordingHandler()
		registry.Register(handler, procurement.EventTypeGoodsReceived, procurement.EventTypePaymentRecorded)

		assert.Equal(t, []shared.EventHandler{handler}, registry.GetHandlers(procurement.EventTypeGoodsReceived))
		assert.Equal(t, []shared.EventHandler{handler}, registry.GetHandlers(procurement.EventTypePaymentRecorded))
		assert.Empty(t, registry.GetHandlers(procurement.EventTypeReturnCreated))
		assert.Equal(t, 1, registry.Len())
	})

	t.Run("wildcard follows typed handlers", func(t *testing.T) {
		registry := NewHandlerRegistry()
		typed := newRecordingHandler()
		wildcard := newRecordingHandler()
		registry.Register(wildcard)
		registry.Register(typed, procurement.EventTypeGoodsReceived)

		handlers := registry.GetHandlers(procurement.EventTypeGoodsReceived)
		assert.Equal(t, []shared.EventHandler{typed, wildcard}, handlers)
		assert.Equal(t, []shared.EventHandler{wildcard}, registry.GetHandlers("anything"))
		assert.Equal(t, 2, registry.Len())
	})
}

func TestHandlerRegistry_Unregister(t *testing.T) {
	registry := NewHandlerRegistry()
	a := newRecordingHandler()
	b := newRecordingHandler()
	registry.Register(a, procurement.EventTypeGoodsReceived, procurement.EventTypeReturnCreated)
	registry.Register(b, procurement.EventTypeGoodsReceived)
	registry.Register(a)

	registry.Unregister(a)

	assert.Equal(t, []shared.EventHandler{b}, registry.GetHandlers(procurement.EventTypeGoodsReceived))
	assert.Empty(t, registry.GetHandlers(procurement.EventTypeReturnCreated))
	assert.Equal(t, 1, registry.Len())
}
