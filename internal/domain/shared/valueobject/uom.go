package valueobject

import (
	"strings"

	"github.com/shopspring/decimal"
)

// QuantityScale is the number of decimal places quantities are rounded to
// after a unit conversion. Rounding is half away from zero.
const QuantityScale = 3

// UOMConversion defines how one alternative unit relates to the base unit:
// 1 alternative unit = Factor base units.
type UOMConversion struct {
	UOM    string          `json:"uom"`
	Factor decimal.Decimal `json:"factor"`
}

// UOMConversionTable is the per-material set of unit conversions.
// The base unit is implicit with factor 1 and does not need an entry.
type UOMConversionTable struct {
	BaseUOM     string          `json:"base_uom"`
	Conversions []UOMConversion `json:"conversions"`
}

// NewUOMConversionTable creates a conversion table for a base unit
func NewUOMConversionTable(baseUOM string, conversions ...UOMConversion) UOMConversionTable {
	return UOMConversionTable{
		BaseUOM:     strings.TrimSpace(baseUOM),
		Conversions: conversions,
	}
}

// FactorFor returns the base-unit factor for the given unit.
// The base unit itself always resolves to 1.
func (t UOMConversionTable) FactorFor(uom string) (decimal.Decimal, bool) {
	if strings.EqualFold(uom, t.BaseUOM) {
		return decimal.NewFromInt(1), true
	}
	for _, c := range t.Conversions {
		if strings.EqualFold(c.UOM, uom) {
			if c.Factor.LessThanOrEqual(decimal.Zero) {
				return decimal.Zero, false
			}
			return c.Factor, true
		}
	}
	return decimal.Zero, false
}

// Convert converts a quantity between two units. Conversion always routes
// through the base unit: qty in `from` -> base units -> qty in `to`.
// The result is rounded half away from zero at the 3rd decimal place.
func (t UOMConversionTable) Convert(qty decimal.Decimal, from, to string) (decimal.Decimal, error) {
	if strings.EqualFold(from, to) {
		return RoundQuantity(qty), nil
	}

	fromFactor, ok := t.FactorFor(from)
	if !ok {
		return decimal.Zero, &UnknownUOMError{UOM: from}
	}
	toFactor, ok := t.FactorFor(to)
	if !ok {
		return decimal.Zero, &UnknownUOMError{UOM: to}
	}

	baseQty := qty.Mul(fromFactor)
	return RoundQuantity(baseQty.Div(toFactor)), nil
}

// ToBase converts a quantity in the given unit to the base unit
func (t UOMConversionTable) ToBase(qty decimal.Decimal, from string) (decimal.Decimal, error) {
	return t.Convert(qty, from, t.BaseUOM)
}

// RoundQuantity rounds a quantity at the conversion scale, half away from zero
func RoundQuantity(qty decimal.Decimal) decimal.Decimal {
	return qty.Round(QuantityScale)
}

// UnknownUOMError indicates a unit that is not present in the conversion table
type UnknownUOMError struct {
	UOM string
}

// Error implements the error interface
func (e *UnknownUOMError) Error() string {
	return "unknown unit of measure: " + e.UOM
}
