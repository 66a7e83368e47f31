package event

import (
	"context"

	"go.uber.org/zap"

	"github.com/stockops/backend/internal/domain/shared"
)

// AuditHandler logs every domain event it receives. It is the default
// subscriber so stock movements show up in the application log even when no
// other consumer is registered.
type AuditHandler struct {
	logger *zap.Logger
}

// NewAuditHandler creates an audit handler
func NewAuditHandler(logger *zap.Logger) *AuditHandler {
	return &AuditHandler{logger: logger}
}

// Handle logs the event
func (h *AuditHandler) Handle(_ context.Context, evt shared.DomainEvent) error {
	h.logger.Info("domain event",
		zap.String("event_type", evt.EventType()),
		zap.String("event_id", evt.EventID().String()),
		zap.String("aggregate_type", evt.AggregateType()),
		zap.String("aggregate_id", evt.AggregateID().String()))
	return nil
}

// EventTypes returns nil: the audit handler receives all events
func (h *AuditHandler) EventTypes() []string {
	return nil
}
