package pickingplan

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/stockops/backend/internal/domain/catalog"
	"github.com/stockops/backend/internal/domain/inventory"
	"github.com/stockops/backend/internal/domain/picking"
	"github.com/stockops/backend/internal/domain/shared"
)

// PlanRow is one row of a picking plan being edited
type PlanRow struct {
	RowID       uuid.UUID            `json:"row_id"`
	MaterialID  uuid.UUID            `json:"material_id"`
	RequiredQty decimal.Decimal      `json:"required_qty"`
	Strategy    picking.StrategyType `json:"strategy" binding:"required,picking_strategy"`
	DefaultBin  *uuid.UUID           `json:"default_bin,omitempty"` // fixed-bin strategy only
	Fallback    bool                 `json:"fallback"`              // spill past the default bin
}

// RowSuggestion is the proposed picks for one plan row
type RowSuggestion struct {
	RowID       uuid.UUID            `json:"row_id"`
	Allocations []picking.Allocation `json:"allocations"`
	Shortfall   decimal.Decimal      `json:"shortfall"`
	Status      picking.LineStatus   `json:"status"`
}

// PlanService suggests stock picks for picking plan rows. Each call works on
// one in-flight document: a fresh allocation session scopes the rows' mutual
// claims so two rows never pick the same stock twice.
type PlanService struct {
	materials catalog.MaterialRepository
	balances  inventory.BalanceRepository
	logger    *zap.Logger
}

// NewPlanService creates a picking plan service
func NewPlanService(materials catalog.MaterialRepository, balances inventory.BalanceRepository, logger *zap.Logger) *PlanService {
	return &PlanService{
		materials: materials,
		balances:  balances,
		logger:    logger,
	}
}

// SuggestAllocations proposes picks for every row of one document, in row
// order. Rows claim stock as they are processed; later rows only see what the
// earlier ones left.
func (s *PlanService) SuggestAllocations(ctx context.Context, rows []PlanRow) ([]RowSuggestion, error) {
	session := picking.NewAllocationSession()
	suggestions := make([]RowSuggestion, 0, len(rows))

	for _, row := range rows {
		suggestion, err := s.suggestRow(ctx, session, row)
		if err != nil {
			return nil, fmt.Errorf("row %s: %w", row.RowID, err)
		}
		suggestions = append(suggestions, *suggestion)
	}
	return suggestions, nil
}

func (s *PlanService) suggestRow(ctx context.Context, session *picking.AllocationSession, row PlanRow) (*RowSuggestion, error) {
	material, err := s.materials.FindByID(ctx, row.MaterialID)
	if err != nil {
		return nil, err
	}

	strategy, err := s.buildStrategy(row, material)
	if err != nil {
		return nil, err
	}

	balances, err := s.balances.FindWithUnrestrictedStock(ctx, row.MaterialID)
	if err != nil {
		return nil, err
	}
	candidates := make([]picking.CandidateBalance, 0, len(balances))
	for _, b := range balances {
		candidates = append(candidates, picking.CandidateBalance{
			BalanceID:    b.ID,
			LocationID:   b.LocationID,
			BatchID:      b.BatchID,
			AvailableQty: b.AvailableUnrestricted(),
		})
	}

	effective := session.EffectiveCandidates(row.RowID, candidates)
	result, err := strategy.Allocate(row.RequiredQty, effective)
	if err != nil {
		return nil, err
	}
	if !result.FullyAllocated() {
		s.logger.Warn("picking row under-allocated",
			zap.String("row_id", row.RowID.String()),
			zap.String("material_id", row.MaterialID.String()),
			zap.String("shortfall", result.Shortfall.String()))
	}

	session.SetRowClaims(row.RowID, result.Allocations)

	return &RowSuggestion{
		RowID:       row.RowID,
		Allocations: result.Allocations,
		Shortfall:   result.Shortfall,
		Status:      picking.LineStatusFor(result.TotalAllocated, row.RequiredQty),
	}, nil
}

func (s *PlanService) buildStrategy(row PlanRow, material *catalog.Material) (picking.AllocationStrategy, error) {
	switch row.Strategy {
	case picking.StrategyTypeManual:
		return picking.NewManualStrategy(material.BatchManaged), nil
	case picking.StrategyTypeSequential:
		return picking.NewSequentialStrategy(), nil
	case picking.StrategyTypeFixedBin:
		if row.DefaultBin == nil {
			return nil, shared.NewDomainError("INVALID_LOCATION", "Fixed-bin picking requires a default bin")
		}
		var opts []picking.FixedBinStrategyOption
		if row.Fallback {
			opts = append(opts, picking.WithSequentialFallback())
		}
		return picking.NewFixedBinStrategy(*row.DefaultBin, opts...)
	default:
		return nil, shared.NewDomainError("INVALID_STRATEGY", "Unknown picking strategy: "+row.Strategy.String())
	}
}
