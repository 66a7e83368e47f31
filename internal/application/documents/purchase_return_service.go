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

// PurchaseReturnService posts purchase return documents: returned stock leaves
// the unrestricted pool at the current ledger cost and the costing ledger is
// consumed, mirroring an outbound delivery without a reservation.
type PurchaseReturnService struct {
	materials   catalog.MaterialRepository
	balances    inventory.BalanceRepository
	movements   inventory.MovementRepository
	fifoLayers  costing.FIFOLayerRepository
	waRecords   costing.WeightedAverageRepository
	idempotency shared.IdempotencyStore
	idemConfig  shared.IdempotencyConfig
	publisher   shared.EventPublisher
	logger      *zap.Logger
}

// NewPurchaseReturnService creates a purchase return service
func NewPurchaseReturnService(
	materials catalog.MaterialRepository,
	balances inventory.BalanceRepository,
	movements inventory.MovementRepository,
	fifoLayers costing.FIFOLayerRepository,
	waRecords costing.WeightedAverageRepository,
	idempotency shared.IdempotencyStore,
	logger *zap.Logger,
) *PurchaseReturnService {
	return &PurchaseReturnService{
		materials:   materials,
		balances:    balances,
		movements:   movements,
		fifoLayers:  fifoLayers,
		waRecords:   waRecords,
		idempotency: idempotency,
		idemConfig:  shared.DefaultIdempotencyConfig(),
		logger:      logger,
	}
}

// WithEventPublisher sets the publisher stock-moved events are emitted on
// after each successful commit
func (s *PurchaseReturnService) WithEventPublisher(publisher shared.EventPublisher) *PurchaseReturnService {
	s.publisher = publisher
	return s
}

// Commit posts a purchase return document. Lines whose material cannot be
// found are logged and skipped; any other failure rolls the whole document
// back and returns the error.
func (s *PurchaseReturnService) Commit(ctx context.Context, doc ReturnDocument) (*CommitResult, error) {
	if doc.DocNo == "" {
		return nil, shared.NewDomainError("INVALID_DOCUMENT", "Document number is required")
	}

	result := &CommitResult{DocNo: doc.DocNo, Lines: make([]LineOutcome, 0, len(doc.Lines))}

	if s.idemConfig.Enabled && s.idempotency != nil {
		processed, err := s.idempotency.IsProcessed(ctx, returnKey(doc.DocNo))
		if err != nil {
			return nil, fmt.Errorf("idempotency check: %w", err)
		}
		if processed {
			s.logger.Info("purchase return already committed, skipping",
				zap.String("doc_no", doc.DocNo))
			result.AlreadyProcessed = true
			return result, nil
		}
	}

	uow := NewUnitOfWork(s.logger)

	for _, line := range doc.Lines {
		outcome, err := s.returnLine(ctx, uow, doc, line)
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
		if _, err := s.idempotency.MarkProcessed(ctx, returnKey(doc.DocNo), s.idemConfig.TTL); err != nil {
			s.logger.Warn("failed to mark purchase return as processed",
				zap.String("doc_no", doc.DocNo), zap.Error(err))
		}
	}

	s.logger.Info("purchase return committed",
		zap.String("doc_no", doc.DocNo),
		zap.Int("lines", result.processed()))
	return result, nil
}

// returnLine issues one returned line: unrestricted stock out first, then
// costing consumption, then the movement record
func (s *PurchaseReturnService) returnLine(ctx context.Context, uow *UnitOfWork,
	doc ReturnDocument, line ReturnLine) (LineOutcome, error) {

	if line.Quantity.LessThanOrEqual(decimal.Zero) {
		return LineOutcome{}, shared.NewDomainError("INVALID_QUANTITY",
			fmt.Sprintf("Return quantity for line %s must be positive", line.LineID))
	}

	material, err := s.materials.FindByID(ctx, line.MaterialID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.logger.Warn("material not found, skipping return line",
				zap.String("doc_no", doc.DocNo),
				zap.String("line_id", line.LineID.String()))
			return LineOutcome{LineID: line.LineID, Skipped: true, Message: "material not found"}, nil
		}
		return LineOutcome{}, err
	}
	if !material.StockControl {
		return LineOutcome{LineID: line.LineID, Skipped: true, Message: "material is not stock-controlled"}, nil
	}

	baseQty := line.Quantity
	if line.UOM != "" && line.UOM != material.BaseUOM {
		baseQty, err = material.ConvertQty(line.Quantity, line.UOM, material.BaseUOM)
		if err != nil {
			return LineOutcome{}, err
		}
	}

	source := inventory.MovementSource{
		DocType:  "PURCHASE_RETURN",
		DocNo:    doc.DocNo,
		ParentNo: doc.ParentNo,
		LineID:   line.LineID.String(),
	}

	// stock leaves first: an insufficient balance fails the line before the
	// costing ledger is touched
	balance, err := s.balances.GetOrCreate(ctx, line.MaterialID, line.LocationID, line.BatchID, line.SerialNumber)
	if err != nil {
		return LineOutcome{}, err
	}
	err = uow.RunStep(ctx, "balance.return",
		func(ctx context.Context) error {
			deltas := inventory.CategoryDeltas{Unrestricted: baseQty.Neg()}
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
			deltas := inventory.CategoryDeltas{Unrestricted: baseQty}
			if err := balance.ApplyDelta(deltas, inventory.DeltaModeClamp, source); err != nil {
				return err
			}
			return s.balances.Save(ctx, balance)
		})
	if err != nil {
		return LineOutcome{}, err
	}

	deps := costingDeps{fifoLayers: s.fifoLayers, waRecords: s.waRecords, logger: s.logger}
	unitCost, err := consumeCostingLedger(ctx, uow, deps, material, line.BatchID, baseQty)
	if err != nil {
		return LineOutcome{}, err
	}
	source.UnitPrice = unitCost

	var movement *inventory.InventoryMovement
	err = uow.RunStep(ctx, "movement.append",
		func(ctx context.Context) error {
			movement, err = inventory.NewInventoryMovement(
				line.MaterialID, line.LocationID, line.BatchID,
				inventory.MovementOut, inventory.MovementKindReturn,
				baseQty, unitCost, source)
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

func returnKey(docNo string) string {
	return "purchase-return:" + docNo
}
