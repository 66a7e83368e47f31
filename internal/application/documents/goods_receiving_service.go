package documents

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/stockops/backend/internal/domain/catalog"
	"github.com/stockops/backend/internal/domain/costing"
	"github.com/stockops/backend/internal/domain/inventory"
	"github.com/stockops/backend/internal/domain/shared"
)

// GoodsReceivingService commits goods receiving documents: stock enters the
// unrestricted pool, the costing ledger is replenished and a movement record
// is appended, all under one unit of work with compensating rollback.
type GoodsReceivingService struct {
	materials   catalog.MaterialRepository
	balances    inventory.BalanceRepository
	movements   inventory.MovementRepository
	fifoLayers  costing.FIFOLayerRepository
	waRecords   costing.WeightedAverageRepository
	sequences   *costing.SequenceAllocator
	idempotency shared.IdempotencyStore
	idemConfig  shared.IdempotencyConfig
	publisher   shared.EventPublisher
	logger      *zap.Logger
}

// NewGoodsReceivingService creates a goods receiving service
func NewGoodsReceivingService(
	materials catalog.MaterialRepository,
	balances inventory.BalanceRepository,
	movements inventory.MovementRepository,
	fifoLayers costing.FIFOLayerRepository,
	waRecords costing.WeightedAverageRepository,
	sequences *costing.SequenceAllocator,
	idempotency shared.IdempotencyStore,
	logger *zap.Logger,
) *GoodsReceivingService {
	return &GoodsReceivingService{
		materials:   materials,
		balances:    balances,
		movements:   movements,
		fifoLayers:  fifoLayers,
		waRecords:   waRecords,
		sequences:   sequences,
		idempotency: idempotency,
		idemConfig:  shared.DefaultIdempotencyConfig(),
		logger:      logger,
	}
}

// WithEventPublisher sets the publisher stock-moved events are emitted on
// after each successful commit
func (s *GoodsReceivingService) WithEventPublisher(publisher shared.EventPublisher) *GoodsReceivingService {
	s.publisher = publisher
	return s
}

// Commit posts a goods receiving document. Lines whose material cannot be
// found are logged and skipped; any other failure rolls the whole document
// back and returns the error.
func (s *GoodsReceivingService) Commit(ctx context.Context, doc ReceiptDocument) (*CommitResult, error) {
	if doc.DocNo == "" {
		return nil, shared.NewDomainError("INVALID_DOCUMENT", "Document number is required")
	}

	result := &CommitResult{DocNo: doc.DocNo, Lines: make([]LineOutcome, 0, len(doc.Lines))}

	if s.idemConfig.Enabled && s.idempotency != nil {
		processed, err := s.idempotency.IsProcessed(ctx, receiptKey(doc.DocNo))
		if err != nil {
			return nil, fmt.Errorf("idempotency check: %w", err)
		}
		if processed {
			s.logger.Info("goods receipt already committed, skipping",
				zap.String("doc_no", doc.DocNo))
			result.AlreadyProcessed = true
			return result, nil
		}
	}

	uow := NewUnitOfWork(s.logger)

	for _, line := range doc.Lines {
		outcome, err := s.commitLine(ctx, uow, doc, line)
		if err != nil {
			uow.Rollback(ctx)
			return nil, err
		}
		result.Lines = append(result.Lines, outcome)
	}

	events := uow.Events()
	uow.Commit()
	if s.publisher != nil && len(events) > 0 {
		if err := s.publisher.Publish(ctx, events...); err != nil {
			s.logger.Warn("failed to publish stock events",
				zap.String("doc_no", doc.DocNo), zap.Error(err))
		}
	}

	if s.idemConfig.Enabled && s.idempotency != nil {
		if _, err := s.idempotency.MarkProcessed(ctx, receiptKey(doc.DocNo), s.idemConfig.TTL); err != nil {
			s.logger.Warn("failed to mark goods receipt as processed",
				zap.String("doc_no", doc.DocNo), zap.Error(err))
		}
	}

	s.logger.Info("goods receipt committed",
		zap.String("doc_no", doc.DocNo),
		zap.Int("lines", result.processed()))
	return result, nil
}

func (s *GoodsReceivingService) commitLine(ctx context.Context, uow *UnitOfWork,
	doc ReceiptDocument, line ReceiptLine) (LineOutcome, error) {

	if line.Quantity.LessThanOrEqual(decimal.Zero) {
		return LineOutcome{}, shared.NewDomainError("INVALID_QUANTITY",
			fmt.Sprintf("Receipt quantity for line %s must be positive", line.LineID))
	}

	material, err := s.materials.FindByID(ctx, line.MaterialID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.logger.Warn("material not found, skipping receipt line",
				zap.String("doc_no", doc.DocNo),
				zap.String("line_id", line.LineID.String()))
			return LineOutcome{LineID: line.LineID, Skipped: true, Message: "material not found"}, nil
		}
		return LineOutcome{}, err
	}
	if !material.StockControl {
		return LineOutcome{LineID: line.LineID, Skipped: true, Message: "material is not stock-controlled"}, nil
	}

	baseQty, err := s.toBaseQty(material, line.Quantity, line.UOM)
	if err != nil {
		return LineOutcome{}, err
	}

	source := inventory.MovementSource{
		DocType:   "GOODS_RECEIVING",
		DocNo:     doc.DocNo,
		ParentNo:  doc.ParentNo,
		LineID:    line.LineID.String(),
		UnitPrice: line.UnitPrice,
	}

	// balance first: stock enters unrestricted
	balance, err := s.balances.GetOrCreate(ctx, line.MaterialID, line.LocationID, line.BatchID, line.SerialNumber)
	if err != nil {
		return LineOutcome{}, err
	}
	err = uow.RunStep(ctx, "balance.receive",
		func(ctx context.Context) error {
			deltas := inventory.CategoryDeltas{Unrestricted: baseQty}
			if err := balance.ApplyDelta(deltas, inventory.DeltaModeStrict, source); err != nil {
				return err
			}
			if err := s.balances.Save(ctx, balance); err != nil {
				return err
			}
			uow.CollectEvents(balance)
			return nil
		},
		func(ctx context.Context) error {
			deltas := inventory.CategoryDeltas{Unrestricted: baseQty.Neg()}
			if err := balance.ApplyDelta(deltas, inventory.DeltaModeClamp, source); err != nil {
				return err
			}
			return s.balances.Save(ctx, balance)
		})
	if err != nil {
		return LineOutcome{}, err
	}

	if err := s.replenishCosting(ctx, uow, material, line, baseQty); err != nil {
		return LineOutcome{}, err
	}

	var movement *inventory.InventoryMovement
	err = uow.RunStep(ctx, "movement.append",
		func(ctx context.Context) error {
			movement, err = inventory.NewInventoryMovement(
				line.MaterialID, line.LocationID, line.BatchID,
				inventory.MovementIn, inventory.MovementKindReceipt,
				baseQty, line.UnitPrice, source)
			if err != nil {
				return err
			}
			return s.movements.Create(ctx, movement)
		},
		func(ctx context.Context) error {
			return s.movements.Delete(ctx, movement.GetID())
		})
	if err != nil {
		return LineOutcome{}, err
	}

	return LineOutcome{LineID: line.LineID, Code: "200"}, nil
}

// replenishCosting posts the receipt into the material's costing ledger
func (s *GoodsReceivingService) replenishCosting(ctx context.Context, uow *UnitOfWork,
	material *catalog.Material, line ReceiptLine, baseQty decimal.Decimal) error {

	switch material.CostingMethod {
	case catalog.CostingMethodFIFO:
		var layer *costing.FIFOCostLayer
		return uow.RunStep(ctx, "costing.fifo.replenish",
			func(ctx context.Context) error {
				release := s.sequences.Acquire(line.MaterialID, line.BatchID)
				defer release()

				existing, err := s.fifoLayers.FindByMaterial(ctx, line.MaterialID, line.BatchID)
				if err != nil {
					return err
				}
				layer, err = costing.NewFIFOCostLayer(line.MaterialID, line.BatchID,
					costing.NextSequence(existing), line.UnitPrice, baseQty)
				if err != nil {
					return err
				}
				return s.fifoLayers.Create(ctx, layer)
			},
			func(ctx context.Context) error {
				return s.fifoLayers.Delete(ctx, layer.GetID())
			})

	case catalog.CostingMethodWeightedAverage:
		records, err := s.waRecords.FindByMaterial(ctx, line.MaterialID, line.BatchID)
		if err != nil {
			return err
		}
		if len(records) > 1 {
			return shared.NewDomainError("DUPLICATE_WA_RECORD",
				"Multiple weighted-average records exist for one material/batch")
		}

		if len(records) == 0 {
			var record *costing.WeightedAverageRecord
			return uow.RunStep(ctx, "costing.wa.create",
				func(ctx context.Context) error {
					record, err = costing.NewWeightedAverageRecord(line.MaterialID, line.BatchID,
						baseQty, line.UnitPrice)
					if err != nil {
						return err
					}
					return s.waRecords.Create(ctx, record)
				},
				func(ctx context.Context) error {
					record.Consume(baseQty)
					return s.waRecords.Save(ctx, record)
				})
		}

		record := &records[0]
		prevQty, prevCost := record.Quantity, record.CostPrice
		return uow.RunStep(ctx, "costing.wa.replenish",
			func(ctx context.Context) error {
				if err := record.Replenish(baseQty, line.UnitPrice); err != nil {
					return err
				}
				return s.waRecords.Save(ctx, record)
			},
			func(ctx context.Context) error {
				record.Quantity = prevQty
				record.CostPrice = prevCost
				return s.waRecords.Save(ctx, record)
			})

	case catalog.CostingMethodFixed:
		// fixed-cost materials carry no ledger state
		return nil

	default:
		return shared.NewDomainError("INVALID_COSTING_METHOD",
			"Unknown costing method: "+material.CostingMethod.String())
	}
}

func (s *GoodsReceivingService) toBaseQty(material *catalog.Material, qty decimal.Decimal, uom string) (decimal.Decimal, error) {
	if uom == "" || uom == material.BaseUOM {
		return qty, nil
	}
	return material.ConvertQty(qty, uom, material.BaseUOM)
}

func receiptKey(docNo string) string {
	return "goods-receiving:" + docNo
}
