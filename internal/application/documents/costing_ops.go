package documents

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/stockops/backend/internal/domain/catalog"
	"github.com/stockops/backend/internal/domain/costing"
	"github.com/stockops/backend/internal/domain/shared"
)

// costingDeps is the slice of a document service the costing helpers need
type costingDeps struct {
	fifoLayers costing.FIFOLayerRepository
	waRecords  costing.WeightedAverageRepository
	logger     *zap.Logger
}

// consumeCostingLedger consumes qty from the material's costing ledger under
// the unit of work and returns the unit cost for movement pricing. FIFO
// shortfalls are logged, never fatal.
func consumeCostingLedger(ctx context.Context, uow *UnitOfWork, deps costingDeps,
	material *catalog.Material, batchID *uuid.UUID, qty decimal.Decimal) (decimal.Decimal, error) {

	if qty.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, nil
	}
	materialID := material.GetID()

	switch material.CostingMethod {
	case catalog.CostingMethodFixed:
		return material.FixedCostPrice, nil

	case catalog.CostingMethodFIFO:
		values, err := deps.fifoLayers.FindAvailable(ctx, materialID, batchID)
		if err != nil {
			return decimal.Zero, err
		}
		layers := make([]*costing.FIFOCostLayer, len(values))
		for i := range values {
			layers[i] = &values[i]
		}

		consumption, err := costing.ConsumeFIFO(layers, qty)
		if err != nil {
			return decimal.Zero, err
		}
		if consumption.Shortfall.GreaterThan(decimal.Zero) {
			deps.logger.Warn("fifo layers insufficient, proceeding with partial consumption",
				zap.String("material_id", materialID.String()),
				zap.String("shortfall", consumption.Shortfall.String()))
		}

		layerBySeq := make(map[int64]*costing.FIFOCostLayer, len(layers))
		for _, layer := range layers {
			layerBySeq[layer.Sequence] = layer
		}
		for _, taken := range consumption.Consumptions {
			layer := layerBySeq[taken.Sequence]
			qtyTaken := taken.QtyTaken
			if err := uow.RunStep(ctx, "costing.fifo.consume",
				func(ctx context.Context) error {
					return deps.fifoLayers.Save(ctx, layer)
				},
				func(ctx context.Context) error {
					layer.AvailableQty = layer.AvailableQty.Add(qtyTaken)
					return deps.fifoLayers.Save(ctx, layer)
				}); err != nil {
				return decimal.Zero, err
			}
		}
		return consumption.UnitCost(), nil

	case catalog.CostingMethodWeightedAverage:
		values, err := deps.waRecords.FindByMaterial(ctx, materialID, batchID)
		if err != nil {
			return decimal.Zero, err
		}
		records := make([]*costing.WeightedAverageRecord, len(values))
		for i := range values {
			records[i] = &values[i]
		}

		var prevQty, prevCost decimal.Decimal
		if len(records) > 0 {
			prevQty, prevCost = records[0].Quantity, records[0].CostPrice
		}

		cost, err := costing.ConsumeWeightedAverage(records, qty)
		if err != nil {
			return decimal.Zero, err
		}
		record := records[0]
		if err := uow.RunStep(ctx, "costing.wa.consume",
			func(ctx context.Context) error {
				return deps.waRecords.Save(ctx, record)
			},
			func(ctx context.Context) error {
				record.Quantity = prevQty
				record.CostPrice = prevCost
				return deps.waRecords.Save(ctx, record)
			}); err != nil {
			return decimal.Zero, err
		}
		return cost, nil

	default:
		return decimal.Zero, shared.NewDomainError("INVALID_COSTING_METHOD",
			"Unknown costing method: "+material.CostingMethod.String())
	}
}

// currentCostingUnitCost prices reversal and reallocation movements from the
// current costing state; failures degrade to a zero cost with a warning.
func currentCostingUnitCost(ctx context.Context, deps costingDeps,
	material *catalog.Material, batchID *uuid.UUID) decimal.Decimal {

	materialID := material.GetID()

	var layers []*costing.FIFOCostLayer
	var records []*costing.WeightedAverageRecord

	switch material.CostingMethod {
	case catalog.CostingMethodFIFO:
		values, err := deps.fifoLayers.FindByMaterial(ctx, materialID, batchID)
		if err != nil {
			deps.logger.Warn("cost lookup failed", zap.Error(err))
			return decimal.Zero
		}
		layers = make([]*costing.FIFOCostLayer, len(values))
		for i := range values {
			layers[i] = &values[i]
		}
	case catalog.CostingMethodWeightedAverage:
		values, err := deps.waRecords.FindByMaterial(ctx, materialID, batchID)
		if err != nil {
			deps.logger.Warn("cost lookup failed", zap.Error(err))
			return decimal.Zero
		}
		records = make([]*costing.WeightedAverageRecord, len(values))
		for i := range values {
			records[i] = &values[i]
		}
	}

	cost, err := costing.CurrentUnitCost(material, layers, records)
	if err != nil {
		deps.logger.Warn("cost lookup failed", zap.Error(err))
		return decimal.Zero
	}
	return cost
}
