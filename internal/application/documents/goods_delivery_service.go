package documents

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/stockops/backend/internal/domain/catalog"
	"github.com/stockops/backend/internal/domain/costing"
	"github.com/stockops/backend/internal/domain/inventory"
	"github.com/stockops/backend/internal/domain/reservation"
	"github.com/stockops/backend/internal/domain/shared"
)

// GoodsDeliveryService drives the reservation engine for goods delivery
// documents: allocation on create, stock issue and costing on deliver,
// reversal on cancel. Every document commit runs under one unit of work.
type GoodsDeliveryService struct {
	materials    catalog.MaterialRepository
	balances     inventory.BalanceRepository
	movements    inventory.MovementRepository
	reservations reservation.Repository
	fifoLayers   costing.FIFOLayerRepository
	waRecords    costing.WeightedAverageRepository
	idempotency  shared.IdempotencyStore
	idemConfig   shared.IdempotencyConfig
	publisher    shared.EventPublisher
	logger       *zap.Logger
}

// NewGoodsDeliveryService creates a goods delivery service
func NewGoodsDeliveryService(
	materials catalog.MaterialRepository,
	balances inventory.BalanceRepository,
	movements inventory.MovementRepository,
	reservations reservation.Repository,
	fifoLayers costing.FIFOLayerRepository,
	waRecords costing.WeightedAverageRepository,
	idempotency shared.IdempotencyStore,
	logger *zap.Logger,
) *GoodsDeliveryService {
	return &GoodsDeliveryService{
		materials:    materials,
		balances:     balances,
		movements:    movements,
		reservations: reservations,
		fifoLayers:   fifoLayers,
		waRecords:    waRecords,
		idempotency:  idempotency,
		idemConfig:   shared.DefaultIdempotencyConfig(),
		logger:       logger,
	}
}

// WithEventPublisher sets the publisher stock-moved events are emitted on
// after each successful commit
func (s *GoodsDeliveryService) WithEventPublisher(publisher shared.EventPublisher) *GoodsDeliveryService {
	s.publisher = publisher
	return s
}

// publishEvents emits the unit of work's collected events; must be called
// before Commit clears them
func (s *GoodsDeliveryService) publishEvents(ctx context.Context, doc DeliveryDocument, uow *UnitOfWork) {
	events := uow.Events()
	if s.publisher == nil || len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish stock events",
			zap.String("doc_no", doc.DocNo), zap.Error(err))
	}
}

// CommitCreated reallocates reservations after delivery quantities were set or
// edited on a created (not yet delivered) document.
func (s *GoodsDeliveryService) CommitCreated(ctx context.Context, doc DeliveryDocument) (*CommitResult, error) {
	result := &CommitResult{DocNo: doc.DocNo, Lines: make([]LineOutcome, 0, len(doc.Lines))}
	uow := NewUnitOfWork(s.logger)

	for _, line := range doc.Lines {
		outcome, err := s.reallocateLine(ctx, uow, doc, line)
		if err != nil {
			uow.Rollback(ctx)
			return nil, err
		}
		result.Lines = append(result.Lines, outcome)
		if outcome.Code == reservation.CodeIntegrityViolation {
			uow.Rollback(ctx)
			return result, nil
		}
	}

	s.publishEvents(ctx, doc, uow)
	uow.Commit()
	return result, nil
}

// CommitDelivered posts the physical goods issue: reservations flip to
// Delivered, the costing ledger is consumed and stock leaves the balance.
func (s *GoodsDeliveryService) CommitDelivered(ctx context.Context, doc DeliveryDocument) (*CommitResult, error) {
	result := &CommitResult{DocNo: doc.DocNo, Lines: make([]LineOutcome, 0, len(doc.Lines))}

	if s.idemConfig.Enabled && s.idempotency != nil {
		processed, err := s.idempotency.IsProcessed(ctx, deliveryKey(doc.DocNo))
		if err != nil {
			return nil, fmt.Errorf("idempotency check: %w", err)
		}
		if processed {
			s.logger.Info("goods delivery already committed, skipping",
				zap.String("doc_no", doc.DocNo))
			result.AlreadyProcessed = true
			return result, nil
		}
	}

	uow := NewUnitOfWork(s.logger)

	for _, line := range doc.Lines {
		outcome, err := s.deliverLine(ctx, uow, doc, line)
		if err != nil {
			uow.Rollback(ctx)
			return nil, err
		}
		result.Lines = append(result.Lines, outcome)
		if outcome.Code == reservation.CodeIntegrityViolation {
			uow.Rollback(ctx)
			return result, nil
		}
	}

	s.publishEvents(ctx, doc, uow)
	uow.Commit()

	if s.idemConfig.Enabled && s.idempotency != nil {
		if _, err := s.idempotency.MarkProcessed(ctx, deliveryKey(doc.DocNo), s.idemConfig.TTL); err != nil {
			s.logger.Warn("failed to mark goods delivery as processed",
				zap.String("doc_no", doc.DocNo), zap.Error(err))
		}
	}

	s.logger.Info("goods delivery committed",
		zap.String("doc_no", doc.DocNo),
		zap.Int("lines", result.processed()))
	return result, nil
}

// CommitCancelCreated releases everything a created document holds. Reversal
// prices come from the current costing state, not from the quantities
// originally posted.
func (s *GoodsDeliveryService) CommitCancelCreated(ctx context.Context, doc DeliveryDocument) (*CommitResult, error) {
	result := &CommitResult{DocNo: doc.DocNo, Lines: make([]LineOutcome, 0, len(doc.Lines))}
	uow := NewUnitOfWork(s.logger)

	for _, line := range doc.Lines {
		line.RequestedQty = decimal.Zero
		outcome, err := s.reallocateLine(ctx, uow, doc, line)
		if err != nil {
			uow.Rollback(ctx)
			return nil, err
		}
		result.Lines = append(result.Lines, outcome)
		if outcome.Code == reservation.CodeIntegrityViolation {
			uow.Rollback(ctx)
			return result, nil
		}
	}

	s.publishEvents(ctx, doc, uow)
	uow.Commit()
	return result, nil
}

// reallocateLine runs the engine for one line and commits its intents
func (s *GoodsDeliveryService) reallocateLine(ctx context.Context, uow *UnitOfWork,
	doc DeliveryDocument, line DeliveryLine) (LineOutcome, error) {

	material, skip, err := s.loadMaterial(ctx, doc, line)
	if err != nil || skip != nil {
		return skipOutcome(skip, line), err
	}

	input, err := s.buildEngineInput(ctx, doc, line)
	if err != nil {
		return LineOutcome{}, err
	}

	snapshots := snapshotRecords(input.Allocated, input.Pending)

	engineResult, err := reservation.Reallocate(input)
	if err != nil {
		return LineOutcome{}, err
	}
	if engineResult.Code != reservation.CodeOK {
		return LineOutcome{LineID: line.LineID, Code: engineResult.Code, Message: engineResult.Message}, nil
	}

	unitCost := s.currentUnitCost(ctx, material, line)
	if err := s.commitEngineResult(ctx, uow, doc, line, engineResult, snapshots, unitCost); err != nil {
		return LineOutcome{}, err
	}
	return LineOutcome{LineID: line.LineID, Code: engineResult.Code, Message: engineResult.Message}, nil
}

// deliverLine runs the delivery variant for one line: tolerance check, engine,
// costing consumption, stock issue.
func (s *GoodsDeliveryService) deliverLine(ctx context.Context, uow *UnitOfWork,
	doc DeliveryDocument, line DeliveryLine) (LineOutcome, error) {

	material, skip, err := s.loadMaterial(ctx, doc, line)
	if err != nil || skip != nil {
		return skipOutcome(skip, line), err
	}

	if line.OrderedQty.GreaterThan(decimal.Zero) {
		maxQty := material.MaxDeliverableQty(line.OrderedQty)
		if line.RequestedQty.GreaterThan(maxQty) {
			return LineOutcome{}, shared.NewDomainError("OVER_DELIVERY",
				fmt.Sprintf("Delivery quantity %s exceeds maximum %s for line %s",
					line.RequestedQty.String(), maxQty.String(), line.LineID))
		}
	}

	input, err := s.buildEngineInput(ctx, doc, line)
	if err != nil {
		return LineOutcome{}, err
	}

	snapshots := snapshotRecords(input.Allocated, input.Pending)

	engineResult, err := reservation.Deliver(input)
	if err != nil {
		return LineOutcome{}, err
	}
	if engineResult.Code != reservation.CodeOK {
		return LineOutcome{LineID: line.LineID, Code: engineResult.Code, Message: engineResult.Message}, nil
	}

	unitCost, err := s.consumeCosting(ctx, uow, material, line)
	if err != nil {
		return LineOutcome{}, err
	}

	if err := s.commitEngineResult(ctx, uow, doc, line, engineResult, snapshots, unitCost); err != nil {
		return LineOutcome{}, err
	}
	return LineOutcome{LineID: line.LineID, Code: engineResult.Code, Message: engineResult.Message}, nil
}

// loadMaterial resolves the line's material; not-found is a logged skip
func (s *GoodsDeliveryService) loadMaterial(ctx context.Context, doc DeliveryDocument,
	line DeliveryLine) (*catalog.Material, *LineOutcome, error) {

	material, err := s.materials.FindByID(ctx, line.MaterialID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.logger.Warn("material not found, skipping delivery line",
				zap.String("doc_no", doc.DocNo),
				zap.String("line_id", line.LineID.String()))
			return nil, &LineOutcome{LineID: line.LineID, Skipped: true, Message: "material not found"}, nil
		}
		return nil, nil, err
	}
	if !material.StockControl {
		return nil, &LineOutcome{LineID: line.LineID, Skipped: true, Message: "material is not stock-controlled"}, nil
	}
	return material, nil, nil
}

func skipOutcome(skip *LineOutcome, line DeliveryLine) LineOutcome {
	if skip != nil {
		return *skip
	}
	return LineOutcome{LineID: line.LineID}
}

// buildEngineInput loads the matched reservation records for one line
func (s *GoodsDeliveryService) buildEngineInput(ctx context.Context, doc DeliveryDocument,
	line DeliveryLine) (reservation.EngineInput, error) {

	allocated, err := s.reservations.FindAllocatedByTarget(ctx, doc.DocID,
		line.MaterialID, line.BatchID, line.LocationID)
	if err != nil {
		return reservation.EngineInput{}, err
	}
	pending, err := s.reservations.FindPendingByKey(ctx, line.MaterialID, line.BatchID, line.LocationID)
	if err != nil {
		return reservation.EngineInput{}, err
	}

	return reservation.EngineInput{
		TargetDocID:  doc.DocID,
		TargetLineID: line.LineID,
		MaterialID:   line.MaterialID,
		BatchID:      line.BatchID,
		LocationID:   line.LocationID,
		PreviousQty:  line.PreviousQty,
		RequestedQty: line.RequestedQty,
		Allocated:    allocated,
		Pending:      pending,
	}, nil
}

// reservationSnapshot captures the mutable fields of a matched reservation
// record before the engine rewrites them, so a failed commit can put the row
// back the way it was.
type reservationSnapshot struct {
	status       reservation.Status
	reservedQty  decimal.Decimal
	deliveredQty decimal.Decimal
	openQty      decimal.Decimal
	targetDocID  *uuid.UUID
}

func snapshotRecords(groups ...[]*reservation.ReservationRecord) map[uuid.UUID]reservationSnapshot {
	snapshots := make(map[uuid.UUID]reservationSnapshot)
	for _, group := range groups {
		for _, record := range group {
			snapshots[record.GetID()] = reservationSnapshot{
				status:       record.Status,
				reservedQty:  record.ReservedQty,
				deliveredQty: record.DeliveredQty,
				openQty:      record.OpenQty,
				targetDocID:  record.TargetDocID,
			}
		}
	}
	return snapshots
}

func (snap reservationSnapshot) restore(record *reservation.ReservationRecord) {
	record.Status = snap.status
	record.ReservedQty = snap.reservedQty
	record.DeliveredQty = snap.deliveredQty
	record.OpenQty = snap.openQty
	record.TargetDocID = snap.targetDocID
	record.Touch()
}

// commitEngineResult persists record intents and posts balance deltas plus
// movement records for the engine's movement intents. Updated records roll
// back to their snapshot; created records are deleted again.
func (s *GoodsDeliveryService) commitEngineResult(ctx context.Context, uow *UnitOfWork,
	doc DeliveryDocument, line DeliveryLine, engineResult *reservation.EngineResult,
	snapshots map[uuid.UUID]reservationSnapshot, unitCost decimal.Decimal) error {

	for _, record := range engineResult.RecordsToUpdate {
		record := record
		snap, snapped := snapshots[record.GetID()]
		if err := uow.RunStep(ctx, "reservation.save",
			func(ctx context.Context) error {
				return s.reservations.Save(ctx, record)
			},
			func(ctx context.Context) error {
				if !snapped {
					return nil
				}
				snap.restore(record)
				return s.reservations.Save(ctx, record)
			}); err != nil {
			return err
		}
	}
	for _, record := range engineResult.RecordsToCreate {
		record := record
		if err := uow.RunStep(ctx, "reservation.create",
			func(ctx context.Context) error {
				return s.reservations.Create(ctx, record)
			},
			func(ctx context.Context) error {
				return s.reservations.Delete(ctx, record.GetID())
			}); err != nil {
			return err
		}
	}

	source := inventory.MovementSource{
		DocType:   "GOODS_DELIVERY",
		DocNo:     doc.DocNo,
		ParentNo:  doc.ParentNo,
		LineID:    line.LineID.String(),
		UnitPrice: unitCost,
	}

	for _, intent := range engineResult.Movements {
		if err := s.applyMovementIntent(ctx, uow, line, intent, source, unitCost); err != nil {
			return err
		}
	}
	return nil
}

// applyMovementIntent translates one engine movement intent into a balance
// delta and an appended movement record
func (s *GoodsDeliveryService) applyMovementIntent(ctx context.Context, uow *UnitOfWork,
	line DeliveryLine, intent reservation.MovementIntent, source inventory.MovementSource,
	unitCost decimal.Decimal) error {

	var deltas inventory.CategoryDeltas
	var direction inventory.MovementDirection
	mode := inventory.DeltaModeStrict

	switch intent.Kind {
	case inventory.MovementKindUnrestrictedToReserved:
		deltas = inventory.CategoryDeltas{Unrestricted: intent.Quantity.Neg(), Reserved: intent.Quantity}
		direction = inventory.MovementOut
	case inventory.MovementKindReservedToUnrestricted:
		deltas = inventory.CategoryDeltas{Reserved: intent.Quantity.Neg(), Unrestricted: intent.Quantity}
		direction = inventory.MovementIn
		mode = inventory.DeltaModeClamp
	case inventory.MovementKindDelivery:
		deltas = inventory.CategoryDeltas{Reserved: intent.Quantity.Neg()}
		direction = inventory.MovementOut
	case inventory.MovementKindDeliveryUnrestricted:
		deltas = inventory.CategoryDeltas{Unrestricted: intent.Quantity.Neg()}
		direction = inventory.MovementOut
	default:
		return shared.NewDomainError("INVALID_MOVEMENT", "Unsupported movement kind: "+string(intent.Kind))
	}

	balance, err := s.balances.GetOrCreate(ctx, line.MaterialID, line.LocationID, line.BatchID, "")
	if err != nil {
		return err
	}

	if err := uow.RunStep(ctx, "balance."+string(intent.Kind),
		func(ctx context.Context) error {
			if err := balance.ApplyDelta(deltas, mode, source); err != nil {
				return err
			}
			if err := s.balances.Save(ctx, balance); err != nil {
				return err
			}
			uow.CollectEvents(balance)
			return nil
		},
		func(ctx context.Context) error {
			inverse := inventory.CategoryDeltas{
				Unrestricted: deltas.Unrestricted.Neg(),
				Reserved:     deltas.Reserved.Neg(),
			}
			if err := balance.ApplyDelta(inverse, inventory.DeltaModeClamp, source); err != nil {
				return err
			}
			return s.balances.Save(ctx, balance)
		}); err != nil {
		return err
	}

	var movement *inventory.InventoryMovement
	return uow.RunStep(ctx, "movement."+string(intent.Kind),
		func(ctx context.Context) error {
			movement, err = inventory.NewInventoryMovement(
				line.MaterialID, line.LocationID, line.BatchID,
				direction, intent.Kind, intent.Quantity, unitCost, source)
			if err != nil {
				return err
			}
			return s.movements.Create(ctx, movement)
		},
		func(ctx context.Context) error {
			return s.movements.Delete(ctx, movement.GetID())
		})
}

// consumeCosting consumes the delivered quantity from the material's costing
// ledger and returns the unit cost for movement pricing
func (s *GoodsDeliveryService) consumeCosting(ctx context.Context, uow *UnitOfWork,
	material *catalog.Material, line DeliveryLine) (decimal.Decimal, error) {
	return consumeCostingLedger(ctx, uow, s.costingDeps(), material, line.BatchID, line.RequestedQty)
}

// currentUnitCost prices reversal and reallocation movements from the current
// costing state
func (s *GoodsDeliveryService) currentUnitCost(ctx context.Context, material *catalog.Material,
	line DeliveryLine) decimal.Decimal {
	return currentCostingUnitCost(ctx, s.costingDeps(), material, line.BatchID)
}

func (s *GoodsDeliveryService) costingDeps() costingDeps {
	return costingDeps{fifoLayers: s.fifoLayers, waRecords: s.waRecords, logger: s.logger}
}

func deliveryKey(docNo string) string {
	return "goods-delivery:" + docNo
}
