package event

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/erp/procurement/internal/domain/shared"
	"go.uber.org/zap"
)

// DefaultEventDedupTTL is how long a delivered event id is remembered
const DefaultEventDedupTTL = 24 * time.Hour

// HandlerStats counts what an IdempotentHandler did with its events
type HandlerStats struct {
	Processed atomic.Int64
	Duplicate atomic.Int64
	Failed    atomic.Int64
}

// IdempotentHandler wraps a handler so each event id reaches it at most
// once within the TTL. It guards the inventory hand-off against a
// republished goods receipt adding stock twice.
type IdempotentHandler struct {
	handler shared.EventHandler
	store   shared.IdempotencyStore
	ttl     time.Duration
	prefix  string
	logger  *zap.Logger
	stats   *HandlerStats
}

// IdempotentHandlerOption configures an IdempotentHandler
type IdempotentHandlerOption func(*IdempotentHandler)

// WithDedupTTL sets how long delivered event ids are remembered
func WithDedupTTL(ttl time.Duration) IdempotentHandlerOption {
	return func(h *IdempotentHandler) {
		if ttl > 0 {
			h.ttl = ttl
		}
	}
}

// WithKeyPrefix namespaces the stored keys, so two wrapped handlers can
// each see the same event once
func WithKeyPrefix(prefix string) IdempotentHandlerOption {
	return func(h *IdempotentHandler) {
		h.prefix = prefix
	}
}

// NewIdempotentHandler wraps handler with duplicate detection backed by store
func NewIdempotentHandler(
	handler shared.EventHandler,
	store shared.IdempotencyStore,
	logger *zap.Logger,
	opts ...IdempotentHandlerOption,
) *IdempotentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &IdempotentHandler{
		handler: handler,
		store:   store,
		ttl:     DefaultEventDedupTTL,
		prefix:  "event:",
		logger:  logger,
		stats:   &HandlerStats{},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// EventTypes returns the wrapped handler's event types
func (h *IdempotentHandler) EventTypes() []string {
	return h.handler.EventTypes()
}

// Handle forwards the event unless its id was already handled.
// A store failure does not block delivery.
func (h *IdempotentHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	key := h.prefix + event.EventID().String()

	isNew, err := h.store.MarkProcessed(ctx, key, h.ttl)
	switch {
	case err != nil:
		h.logger.Warn("idempotency store unavailable, handling event anyway",
			zap.String("event_id", event.EventID().String()),
			zap.String("event_type", event.EventType()),
			zap.Error(err),
		)
	case !isNew:
		h.stats.Duplicate.Add(1)
		h.logger.Debug("duplicate event skipped",
			zap.String("event_id", event.EventID().String()),
			zap.String("event_type", event.EventType()),
		)
		return nil
	}

	if err := h.handler.Handle(ctx, event); err != nil {
		h.stats.Failed.Add(1)
		return err
	}
	h.stats.Processed.Add(1)
	return nil
}

// Stats returns the handler's counters
func (h *IdempotentHandler) Stats() *HandlerStats {
	return h.stats
}

var _ shared.EventHandler = (*IdempotentHandler)(nil)
