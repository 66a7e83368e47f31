package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stockops/backend/internal/domain/shared"
)

// MovementDirection indicates whether stock entered or left a pool
type MovementDirection string

const (
	// MovementIn is stock entering the location/pool
	MovementIn MovementDirection = "IN"
	// MovementOut is stock leaving the location/pool
	MovementOut MovementDirection = "OUT"
)

// IsValid checks if the direction is valid
func (d MovementDirection) IsValid() bool {
	return d == MovementIn || d == MovementOut
}

// MovementKind classifies what a movement did between pools
type MovementKind string

const (
	// MovementKindReceipt is stock received into unrestricted (or inspection)
	MovementKindReceipt MovementKind = "RECEIPT"
	// MovementKindUnrestrictedToReserved moves stock into the reserved pool
	MovementKindUnrestrictedToReserved MovementKind = "UNRESTRICTED_TO_RESERVED"
	// MovementKindReservedToUnrestricted releases reserved stock
	MovementKindReservedToUnrestricted MovementKind = "RESERVED_TO_UNRESTRICTED"
	// MovementKindDelivery is reserved stock physically leaving
	MovementKindDelivery MovementKind = "DELIVERY"
	// MovementKindDeliveryUnrestricted is unrestricted stock leaving directly
	MovementKindDeliveryUnrestricted MovementKind = "DELIVERY_UNRESTRICTED"
	// MovementKindReturn is stock leaving on a purchase return
	MovementKindReturn MovementKind = "RETURN"
	// MovementKindReversal is a cancellation putting stock back
	MovementKindReversal MovementKind = "REVERSAL"
)

// InventoryMovement is an immutable audit record of one stock movement.
// Records are write-once; corrections are made with new movements.
type InventoryMovement struct {
	shared.BaseEntity
	MaterialID      uuid.UUID         `gorm:"type:uuid;not null;index:idx_movement_material"`
	LocationID      uuid.UUID         `gorm:"type:uuid;not null;index:idx_movement_location"`
	BatchID         *uuid.UUID        `gorm:"type:uuid;index"`
	TransactionType string            `gorm:"type:varchar(40);not null"` // source document type
	TrxNo           string            `gorm:"type:varchar(50);not null;index:idx_movement_trx"`
	ParentTrxNo     string            `gorm:"type:varchar(50)"`
	Movement        MovementDirection `gorm:"type:varchar(5);not null"`
	Kind            MovementKind      `gorm:"type:varchar(40);not null"`
	Quantity        decimal.Decimal   `gorm:"type:decimal(18,4);not null"` // always positive
	UnitPrice       decimal.Decimal   `gorm:"type:decimal(18,4);not null"`
	TotalPrice      decimal.Decimal   `gorm:"type:decimal(18,4);not null"`
	MovementDate    time.Time         `gorm:"type:timestamptz;not null;index"`
}

// TableName returns the table name for GORM
func (InventoryMovement) TableName() string {
	return "inventory_movements"
}

// NewInventoryMovement creates a new movement record
func NewInventoryMovement(
	materialID, locationID uuid.UUID,
	batchID *uuid.UUID,
	direction MovementDirection,
	kind MovementKind,
	quantity, unitPrice decimal.Decimal,
	source MovementSource,
) (*InventoryMovement, error) {
	if materialID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_MATERIAL", "Material ID cannot be empty")
	}
	if locationID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_LOCATION", "Location ID cannot be empty")
	}
	if !direction.IsValid() {
		return nil, shared.NewDomainError("INVALID_MOVEMENT", "Invalid movement direction")
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Movement quantity must be positive")
	}
	if unitPrice.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Unit price cannot be negative")
	}

	return &InventoryMovement{
		BaseEntity:      shared.NewBaseEntity(),
		MaterialID:      materialID,
		LocationID:      locationID,
		BatchID:         batchID,
		TransactionType: source.DocType,
		TrxNo:           source.DocNo,
		ParentTrxNo:     source.ParentNo,
		Movement:        direction,
		Kind:            kind,
		Quantity:        quantity,
		UnitPrice:       unitPrice,
		TotalPrice:      quantity.Mul(unitPrice),
		MovementDate:    time.Now(),
	}, nil
}
