package costing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stockops/backend/internal/domain/shared"
)

// FIFOCostLayer is one cost layer in the sequence-ordered FIFO ledger for a
// material (optionally per batch). Sequence numbers start at 1, are assigned
// append-only per material and are never reused. AvailableQty is set once on
// creation and only ever decreases afterwards.
type FIFOCostLayer struct {
	shared.BaseEntity
	MaterialID   uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_fifo_seq,priority:1"`
	BatchID      *uuid.UUID      `gorm:"type:uuid;uniqueIndex:idx_fifo_seq,priority:2"`
	Sequence     int64           `gorm:"not null;uniqueIndex:idx_fifo_seq,priority:3"`
	CostPrice    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	InitialQty   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	AvailableQty decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (FIFOCostLayer) TableName() string {
	return "fifo_cost_layers"
}

// NewFIFOCostLayer creates a new cost layer from a receipt
func NewFIFOCostLayer(materialID uuid.UUID, batchID *uuid.UUID, sequence int64, costPrice, quantity decimal.Decimal) (*FIFOCostLayer, error) {
	if materialID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_MATERIAL", "Material ID cannot be empty")
	}
	if sequence < 1 {
		return nil, shared.NewDomainError("INVALID_SEQUENCE", "FIFO sequence must start at 1")
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Layer quantity must be positive")
	}
	if costPrice.IsNegative() {
		return nil, shared.NewDomainError("INVALID_COST", "Cost price cannot be negative")
	}

	return &FIFOCostLayer{
		BaseEntity:   shared.NewBaseEntity(),
		MaterialID:   materialID,
		BatchID:      batchID,
		Sequence:     sequence,
		CostPrice:    costPrice,
		InitialQty:   quantity,
		AvailableQty: quantity,
	}, nil
}

// Consume takes up to the requested quantity from the layer and returns the
// quantity actually taken
func (l *FIFOCostLayer) Consume(quantity decimal.Decimal) decimal.Decimal {
	if quantity.LessThanOrEqual(decimal.Zero) || l.AvailableQty.IsZero() {
		return decimal.Zero
	}

	taken := decimal.Min(quantity, l.AvailableQty)
	l.AvailableQty = l.AvailableQty.Sub(taken)
	l.UpdatedAt = time.Now()
	return taken
}

// IsExhausted returns true if the layer has no quantity left
func (l *FIFOCostLayer) IsExhausted() bool {
	return l.AvailableQty.LessThanOrEqual(decimal.Zero)
}

// NextSequence returns the sequence number a fresh layer should get given the
// existing layers of a material: max(existing)+1, starting at 1.
// The caller must hold the material's sequence lock while reading the existing
// layers and saving the new one (see SequenceAllocator).
func NextSequence(layers []FIFOCostLayer) int64 {
	var max int64
	for _, l := range layers {
		if l.Sequence > max {
			max = l.Sequence
		}
	}
	return max + 1
}
