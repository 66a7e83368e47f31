package catalog

import (
	"github.com/shopspring/decimal"
	"github.com/stockops/backend/internal/domain/shared"
	"github.com/stockops/backend/internal/domain/shared/valueobject"
)

// CostingMethod selects how outbound cost is calculated for a material
type CostingMethod string

const (
	// CostingMethodFIFO consumes sequence-ordered cost layers oldest first
	CostingMethodFIFO CostingMethod = "FIFO"
	// CostingMethodWeightedAverage uses the single weighted-average record
	CostingMethodWeightedAverage CostingMethod = "WEIGHTED_AVERAGE"
	// CostingMethodFixed uses the material's fixed cost price
	CostingMethodFixed CostingMethod = "FIXED"
)

// IsValid checks if the costing method is valid
func (m CostingMethod) IsValid() bool {
	switch m {
	case CostingMethodFIFO, CostingMethodWeightedAverage, CostingMethodFixed:
		return true
	}
	return false
}

// String returns the string representation
func (m CostingMethod) String() string {
	return string(m)
}

// Material is the material master record. The inventory core only reads it:
// stock control flags, costing method, unit conversions and delivery tolerance.
type Material struct {
	shared.BaseAggregateRoot
	Code                  string                         `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name                  string                         `gorm:"type:varchar(255);not null"`
	StockControl          bool                           `gorm:"not null;default:true"`
	BatchManaged          bool                           `gorm:"not null;default:false"`
	SerialManaged         bool                           `gorm:"not null;default:false"`
	CostingMethod         CostingMethod                  `gorm:"type:varchar(30);not null;default:'FIFO'"`
	FixedCostPrice        decimal.Decimal                `gorm:"type:decimal(18,4);not null;default:0"`
	BaseUOM               string                         `gorm:"type:varchar(20);not null"`
	UOMConversions        valueobject.UOMConversionTable `gorm:"serializer:json"`
	OverDeliveryTolerance decimal.Decimal                `gorm:"type:decimal(8,4);not null;default:0"` // percent, 0 = none
}

// TableName returns the table name for GORM
func (Material) TableName() string {
	return "materials"
}

// MaterialOption is a functional option for creating materials
type MaterialOption func(*Material)

// WithBatchManaged enables batch tracking
func WithBatchManaged() MaterialOption {
	return func(m *Material) {
		m.BatchManaged = true
	}
}

// WithSerialManaged enables serial number tracking
func WithSerialManaged() MaterialOption {
	return func(m *Material) {
		m.SerialManaged = true
	}
}

// WithoutStockControl marks the material as non-stock-controlled; the
// inventory core skips such materials entirely
func WithoutStockControl() MaterialOption {
	return func(m *Material) {
		m.StockControl = false
	}
}

// WithFixedCostPrice sets the fixed cost price
func WithFixedCostPrice(price decimal.Decimal) MaterialOption {
	return func(m *Material) {
		m.FixedCostPrice = price
	}
}

// WithBaseUOM sets the base unit of measure
func WithBaseUOM(uom string) MaterialOption {
	return func(m *Material) {
		m.BaseUOM = uom
		m.UOMConversions.BaseUOM = uom
	}
}

// WithUOMConversions sets the unit conversion table
func WithUOMConversions(table valueobject.UOMConversionTable) MaterialOption {
	return func(m *Material) {
		m.UOMConversions = table
		m.BaseUOM = table.BaseUOM
	}
}

// WithOverDeliveryTolerance sets the allowed over-delivery percentage
func WithOverDeliveryTolerance(percent decimal.Decimal) MaterialOption {
	return func(m *Material) {
		m.OverDeliveryTolerance = percent
	}
}

// NewMaterial creates a new material master record
func NewMaterial(code, name string, method CostingMethod, opts ...MaterialOption) (*Material, error) {
	if code == "" {
		return nil, shared.NewDomainError("INVALID_CODE", "Material code cannot be empty")
	}
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Material name cannot be empty")
	}
	if !method.IsValid() {
		return nil, shared.NewDomainError("INVALID_COSTING_METHOD", "Invalid costing method: "+method.String())
	}

	m := &Material{
		BaseAggregateRoot:     shared.NewBaseAggregateRoot(),
		Code:                  code,
		Name:                  name,
		StockControl:          true,
		CostingMethod:         method,
		FixedCostPrice:        decimal.Zero,
		BaseUOM:               "PCS",
		OverDeliveryTolerance: decimal.Zero,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// MaxDeliverableQty returns the maximum quantity that may be delivered against
// an ordered quantity, applying the over-delivery tolerance percentage.
func (m *Material) MaxDeliverableQty(orderedQty decimal.Decimal) decimal.Decimal {
	if m.OverDeliveryTolerance.LessThanOrEqual(decimal.Zero) {
		return orderedQty
	}
	factor := decimal.NewFromInt(1).Add(m.OverDeliveryTolerance.Div(decimal.NewFromInt(100)))
	return orderedQty.Mul(factor)
}

// ConvertQty converts a quantity between two of the material's units
func (m *Material) ConvertQty(qty decimal.Decimal, from, to string) (decimal.Decimal, error) {
	return m.UOMConversions.Convert(qty, from, to)
}
