package inventory

import (
	"github.com/shopspring/decimal"
	"github.com/stockops/backend/internal/domain/shared"
)

// Event types for the balance store
const (
	EventTypeStockMoved     = "inventory.stock_moved"
	EventTypeBalanceCreated = "inventory.balance_created"
)

// StockMovedEvent is emitted for every successful delta application
type StockMovedEvent struct {
	shared.BaseDomainEvent
	MaterialID   string          `json:"material_id"`
	LocationID   string          `json:"location_id"`
	Deltas       CategoryDeltas  `json:"deltas"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	DocType      string          `json:"doc_type"`
	DocNo        string          `json:"doc_no"`
}

// NewStockMovedEvent creates a new stock moved event
func NewStockMovedEvent(balance *InventoryBalance, deltas CategoryDeltas, source MovementSource) *StockMovedEvent {
	return &StockMovedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockMoved, "InventoryBalance", balance.ID),
		MaterialID:      balance.MaterialID.String(),
		LocationID:      balance.LocationID.String(),
		Deltas:          deltas,
		BalanceAfter:    balance.BalanceQty,
		DocType:         source.DocType,
		DocNo:           source.DocNo,
	}
}

// BalanceCreatedEvent is emitted when a balance row is created on first receipt
type BalanceCreatedEvent struct {
	shared.BaseDomainEvent
	MaterialID string `json:"material_id"`
	LocationID string `json:"location_id"`
}

// NewBalanceCreatedEvent creates a new balance created event
func NewBalanceCreatedEvent(balance *InventoryBalance) *BalanceCreatedEvent {
	return &BalanceCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBalanceCreated, "InventoryBalance", balance.ID),
		MaterialID:      balance.MaterialID.String(),
		LocationID:      balance.LocationID.String(),
	}
}
