package costing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stockops/backend/internal/domain/shared"
)

// WeightedAverageRecord holds the running quantity and average cost for a
// material (optionally per batch). At most one record may exist per key;
// duplicates are a data-integrity error, not a tie-break situation.
type WeightedAverageRecord struct {
	shared.BaseEntity
	MaterialID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_wa_key,priority:1"`
	BatchID    *uuid.UUID      `gorm:"type:uuid;uniqueIndex:idx_wa_key,priority:2"`
	Quantity   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CostPrice  decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (WeightedAverageRecord) TableName() string {
	return "weighted_average_records"
}

// NewWeightedAverageRecord creates a new weighted-average record
func NewWeightedAverageRecord(materialID uuid.UUID, batchID *uuid.UUID, quantity, costPrice decimal.Decimal) (*WeightedAverageRecord, error) {
	if materialID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_MATERIAL", "Material ID cannot be empty")
	}
	if quantity.IsNegative() {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity cannot be negative")
	}
	if costPrice.IsNegative() {
		return nil, shared.NewDomainError("INVALID_COST", "Cost price cannot be negative")
	}

	return &WeightedAverageRecord{
		BaseEntity: shared.NewBaseEntity(),
		MaterialID: materialID,
		BatchID:    batchID,
		Quantity:   quantity,
		CostPrice:  costPrice,
	}, nil
}

// Consume removes quantity from the record and returns the unit cost of the
// consumed stock. Consuming from a homogeneous pool leaves the average cost
// unchanged; the quantity floors at zero rather than erroring when the request
// exceeds the pool.
func (r *WeightedAverageRecord) Consume(quantity decimal.Decimal) decimal.Decimal {
	cost := r.CostPrice
	if quantity.GreaterThanOrEqual(r.Quantity) {
		r.Quantity = decimal.Zero
	} else {
		r.Quantity = r.Quantity.Sub(quantity)
	}
	r.UpdatedAt = time.Now()
	return cost
}

// Replenish adds received quantity at the given cost and recomputes the
// weighted average
func (r *WeightedAverageRecord) Replenish(quantity, costPrice decimal.Decimal) error {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_QUANTITY", "Replenish quantity must be positive")
	}
	if costPrice.IsNegative() {
		return shared.NewDomainError("INVALID_COST", "Cost price cannot be negative")
	}

	newQty := r.Quantity.Add(quantity)
	if newQty.GreaterThan(decimal.Zero) {
		totalValue := r.Quantity.Mul(r.CostPrice).Add(quantity.Mul(costPrice))
		r.CostPrice = totalValue.Div(newQty).Round(4)
	} else {
		r.CostPrice = costPrice
	}
	r.Quantity = newQty
	r.UpdatedAt = time.Now()
	return nil
}
