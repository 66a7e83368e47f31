package inventory

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stockops/backend/internal/domain/shared"
)

// StockCategory identifies one of the quantity pools a balance is split into
type StockCategory string

const (
	// CategoryUnrestricted is freely usable stock
	CategoryUnrestricted StockCategory = "UNRESTRICTED"
	// CategoryReserved is stock reserved for demand documents
	CategoryReserved StockCategory = "RESERVED"
	// CategoryBlocked is stock blocked from any use
	CategoryBlocked StockCategory = "BLOCKED"
	// CategoryQualityInsp is stock held for quality inspection
	CategoryQualityInsp StockCategory = "QUALITY_INSPECTION"
	// CategoryInTransit is stock moving between locations
	CategoryInTransit StockCategory = "IN_TRANSIT"
)

// AllStockCategories returns every quantity pool
func AllStockCategories() []StockCategory {
	return []StockCategory{
		CategoryUnrestricted,
		CategoryReserved,
		CategoryBlocked,
		CategoryQualityInsp,
		CategoryInTransit,
	}
}

// DeltaMode controls how negative results of a delta application are handled
type DeltaMode int

const (
	// DeltaModeStrict rejects any delta that would drive a category negative.
	// No mutation happens on rejection.
	DeltaModeStrict DeltaMode = iota
	// DeltaModeClamp clamps negative results at zero. Used by cancellation and
	// reversal paths where the recorded quantities may already have drifted.
	DeltaModeClamp
)

// CategoryDeltas describes a signed quantity change per pool
type CategoryDeltas struct {
	Unrestricted decimal.Decimal
	Reserved     decimal.Decimal
	Blocked      decimal.Decimal
	QualityInsp  decimal.Decimal
	InTransit    decimal.Decimal
}

// IsZero returns true if no pool changes
func (d CategoryDeltas) IsZero() bool {
	return d.Unrestricted.IsZero() && d.Reserved.IsZero() && d.Blocked.IsZero() &&
		d.QualityInsp.IsZero() && d.InTransit.IsZero()
}

// Net returns the net quantity change across all pools
func (d CategoryDeltas) Net() decimal.Decimal {
	return d.Unrestricted.Add(d.Reserved).Add(d.Blocked).Add(d.QualityInsp).Add(d.InTransit)
}

// MovementSource identifies the document responsible for a balance change
type MovementSource struct {
	DocType   string
	DocNo     string
	ParentNo  string
	LineID    string
	UnitPrice decimal.Decimal
}

// InventoryBalance tracks the quantity pools for one material at one location,
// optionally split by batch and serial number. It is the aggregate root of the
// balance store. Balances are created on first receipt and never hard-deleted;
// zero-quantity rows persist.
type InventoryBalance struct {
	shared.BaseAggregateRoot
	MaterialID      uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_balance_key,priority:1"`
	LocationID      uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_balance_key,priority:2"`
	BatchID         *uuid.UUID      `gorm:"type:uuid;uniqueIndex:idx_balance_key,priority:3"`
	SerialNumber    string          `gorm:"type:varchar(100);uniqueIndex:idx_balance_key,priority:4"`
	UnrestrictedQty decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	ReservedQty     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	BlockedQty      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	QualityInspQty  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	InTransitQty    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	BalanceQty      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (InventoryBalance) TableName() string {
	return "inventory_balances"
}

// NewInventoryBalance creates an empty balance row for a material-location key
func NewInventoryBalance(materialID, locationID uuid.UUID, batchID *uuid.UUID, serialNumber string) (*InventoryBalance, error) {
	if materialID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_MATERIAL", "Material ID cannot be empty")
	}
	if locationID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_LOCATION", "Location ID cannot be empty")
	}

	return &InventoryBalance{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		MaterialID:        materialID,
		LocationID:        locationID,
		BatchID:           batchID,
		SerialNumber:      serialNumber,
		UnrestrictedQty:   decimal.Zero,
		ReservedQty:       decimal.Zero,
		BlockedQty:        decimal.Zero,
		QualityInspQty:    decimal.Zero,
		InTransitQty:      decimal.Zero,
		BalanceQty:        decimal.Zero,
	}, nil
}

// CategoryQty returns the quantity in the given pool
func (b *InventoryBalance) CategoryQty(category StockCategory) decimal.Decimal {
	switch category {
	case CategoryUnrestricted:
		return b.UnrestrictedQty
	case CategoryReserved:
		return b.ReservedQty
	case CategoryBlocked:
		return b.BlockedQty
	case CategoryQualityInsp:
		return b.QualityInspQty
	case CategoryInTransit:
		return b.InTransitQty
	}
	return decimal.Zero
}

// recomputeTotal derives BalanceQty from the pools. The total is never taken
// from callers.
func (b *InventoryBalance) recomputeTotal() {
	b.BalanceQty = b.UnrestrictedQty.
		Add(b.ReservedQty).
		Add(b.BlockedQty).
		Add(b.QualityInspQty).
		Add(b.InTransitQty)
}

// ApplyDelta applies signed per-pool deltas to the balance.
//
// In DeltaModeStrict, a delta that would drive any pool negative is rejected
// and the balance is left untouched. In DeltaModeClamp, negative results are
// clamped to zero. BalanceQty is always recomputed from the resulting pools.
// Every successful application emits one StockMovedEvent describing the change.
func (b *InventoryBalance) ApplyDelta(deltas CategoryDeltas, mode DeltaMode, source MovementSource) error {
	if deltas.IsZero() {
		return nil
	}

	next := map[StockCategory]decimal.Decimal{
		CategoryUnrestricted: b.UnrestrictedQty.Add(deltas.Unrestricted),
		CategoryReserved:     b.ReservedQty.Add(deltas.Reserved),
		CategoryBlocked:      b.BlockedQty.Add(deltas.Blocked),
		CategoryQualityInsp:  b.QualityInspQty.Add(deltas.QualityInsp),
		CategoryInTransit:    b.InTransitQty.Add(deltas.InTransit),
	}

	for category, qty := range next {
		if qty.IsNegative() {
			if mode == DeltaModeStrict {
				return shared.NewDomainError("NEGATIVE_BALANCE",
					fmt.Sprintf("Delta would drive %s below zero: have %s, delta %s",
						category, b.CategoryQty(category).String(), qty.Sub(b.CategoryQty(category)).String()))
			}
			next[category] = decimal.Zero
		}
	}

	b.UnrestrictedQty = next[CategoryUnrestricted]
	b.ReservedQty = next[CategoryReserved]
	b.BlockedQty = next[CategoryBlocked]
	b.QualityInspQty = next[CategoryQualityInsp]
	b.InTransitQty = next[CategoryInTransit]
	b.recomputeTotal()
	b.UpdatedAt = time.Now()
	b.IncrementVersion()

	b.AddDomainEvent(NewStockMovedEvent(b, deltas, source))

	return nil
}

// AvailableUnrestricted returns the unrestricted quantity, the figure the
// picking strategies allocate from
func (b *InventoryBalance) AvailableUnrestricted() decimal.Decimal {
	return b.UnrestrictedQty
}

// HasStock returns true if any pool holds quantity
func (b *InventoryBalance) HasStock() bool {
	return b.BalanceQty.GreaterThan(decimal.Zero)
}

// Key returns the composite balance key as a string, used by the allocation
// session to track per-(location,batch) claims
func (b *InventoryBalance) Key() string {
	batch := ""
	if b.BatchID != nil {
		batch = b.BatchID.String()
	}
	return b.LocationID.String() + "|" + batch + "|" + b.SerialNumber
}
