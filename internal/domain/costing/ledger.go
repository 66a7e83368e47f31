package costing

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/stockops/backend/internal/domain/catalog"
	"github.com/stockops/backend/internal/domain/shared"
)

// LayerConsumption records how much was taken from one FIFO layer
type LayerConsumption struct {
	Sequence  int64           `json:"sequence"`
	QtyTaken  decimal.Decimal `json:"qty_taken"`
	CostPrice decimal.Decimal `json:"cost_price"`
}

// ConsumptionResult is the outcome of consuming stock from the cost ledger
type ConsumptionResult struct {
	Consumptions []LayerConsumption `json:"consumptions"`
	TotalTaken   decimal.Decimal    `json:"total_taken"`
	TotalCost    decimal.Decimal    `json:"total_cost"`
	// Shortfall is the quantity the layers could not cover. A shortfall is a
	// logged warning for the caller, never an error: the operation proceeds
	// with partial consumption.
	Shortfall decimal.Decimal `json:"shortfall"`
}

// UnitCost returns the average unit cost of the consumed quantity
func (r ConsumptionResult) UnitCost() decimal.Decimal {
	if r.TotalTaken.IsZero() {
		return decimal.Zero
	}
	return r.TotalCost.Div(r.TotalTaken).Round(4)
}

// ConsumeFIFO consumes quantity from the given layers in ascending sequence
// order, taking min(available, remaining) from each. The layers are mutated
// in place. Exhaustion is reported as a shortfall, not an error.
func ConsumeFIFO(layers []*FIFOCostLayer, quantity decimal.Decimal) (*ConsumptionResult, error) {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Consumption quantity must be positive")
	}

	ordered := make([]*FIFOCostLayer, len(layers))
	copy(ordered, layers)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Sequence < ordered[j].Sequence
	})

	result := &ConsumptionResult{
		Consumptions: make([]LayerConsumption, 0),
		TotalTaken:   decimal.Zero,
		TotalCost:    decimal.Zero,
	}

	remaining := quantity
	for _, layer := range ordered {
		if remaining.IsZero() {
			break
		}
		taken := layer.Consume(remaining)
		if taken.IsZero() {
			continue
		}

		result.Consumptions = append(result.Consumptions, LayerConsumption{
			Sequence:  layer.Sequence,
			QtyTaken:  taken,
			CostPrice: layer.CostPrice,
		})
		result.TotalTaken = result.TotalTaken.Add(taken)
		result.TotalCost = result.TotalCost.Add(taken.Mul(layer.CostPrice))
		remaining = remaining.Sub(taken)
	}

	result.Shortfall = remaining
	return result, nil
}

// ConsumeWeightedAverage consumes quantity from the single weighted-average
// record for a key and returns the unit cost. More than one record for the
// same key is a hard integrity error; it is never silently resolved by
// picking the most recent one.
func ConsumeWeightedAverage(records []*WeightedAverageRecord, quantity decimal.Decimal) (decimal.Decimal, error) {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, shared.NewDomainError("INVALID_QUANTITY", "Consumption quantity must be positive")
	}
	if len(records) == 0 {
		return decimal.Zero, shared.ErrNotFound
	}
	if len(records) > 1 {
		return decimal.Zero, shared.NewDomainError("DUPLICATE_WA_RECORD",
			"Multiple weighted-average records exist for one material/batch")
	}

	return records[0].Consume(quantity), nil
}

// CurrentUnitCost returns the unit cost a reversal would use right now for the
// given costing method. Cancellations recompute cost from the current ledger
// state rather than restoring the originally recorded cost, so the result can
// differ from the original posting when layers have shifted since.
func CurrentUnitCost(material *catalog.Material, layers []*FIFOCostLayer, records []*WeightedAverageRecord) (decimal.Decimal, error) {
	switch material.CostingMethod {
	case catalog.CostingMethodFixed:
		return material.FixedCostPrice, nil

	case catalog.CostingMethodWeightedAverage:
		if len(records) == 0 {
			return decimal.Zero, shared.ErrNotFound
		}
		if len(records) > 1 {
			return decimal.Zero, shared.NewDomainError("DUPLICATE_WA_RECORD",
				"Multiple weighted-average records exist for one material/batch")
		}
		return records[0].CostPrice, nil

	case catalog.CostingMethodFIFO:
		// Oldest layer with remaining quantity; fall back to the newest layer
		// when everything is consumed.
		ordered := make([]*FIFOCostLayer, len(layers))
		copy(ordered, layers)
		sort.Slice(ordered, func(i, j int) bool {
			return ordered[i].Sequence < ordered[j].Sequence
		})
		for _, layer := range ordered {
			if !layer.IsExhausted() {
				return layer.CostPrice, nil
			}
		}
		if len(ordered) > 0 {
			return ordered[len(ordered)-1].CostPrice, nil
		}
		return decimal.Zero, shared.ErrNotFound

	default:
		return decimal.Zero, shared.NewDomainError("INVALID_COSTING_METHOD",
			"Unknown costing method: "+material.CostingMethod.String())
	}
}
