package picking

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stockops/backend/internal/domain/shared"
)

// StrategyType identifies a picking allocation strategy
type StrategyType string

const (
	// StrategyTypeManual requires a single unambiguous candidate
	StrategyTypeManual StrategyType = "MANUAL"
	// StrategyTypeFixedBin drains the configured default bin first
	StrategyTypeFixedBin StrategyType = "FIXED_BIN"
	// StrategyTypeSequential walks candidates in list order
	StrategyTypeSequential StrategyType = "SEQUENTIAL"
)

// IsValid checks if the strategy type is valid
func (t StrategyType) IsValid() bool {
	switch t {
	case StrategyTypeManual, StrategyTypeFixedBin, StrategyTypeSequential:
		return true
	}
	return false
}

// String returns the string representation
func (t StrategyType) String() string {
	return string(t)
}

// CandidateBalance is one (location, batch) pool offered to a strategy, with
// the unrestricted quantity already adjusted for claims by other in-flight
// document rows (see AllocationSession).
type CandidateBalance struct {
	BalanceID    uuid.UUID       `json:"balance_id"`
	LocationID   uuid.UUID       `json:"location_id"`
	BatchID      *uuid.UUID      `json:"batch_id,omitempty"`
	AvailableQty decimal.Decimal `json:"available_qty"`
}

// Allocation is one (location, batch, quantity) pick chosen by a strategy.
// It is the typed form of the pending allocation a document line carries
// until the document is saved.
type Allocation struct {
	LocationID uuid.UUID       `json:"location_id"`
	BatchID    *uuid.UUID      `json:"batch_id,omitempty"`
	Quantity   decimal.Decimal `json:"quantity"`
}

// AllocationResult is a strategy outcome. Under-allocation is reported as
// Shortfall and left to the caller to log; only the manual strategy treats
// ambiguity as an error.
type AllocationResult struct {
	Allocations    []Allocation    `json:"allocations"`
	TotalAllocated decimal.Decimal `json:"total_allocated"`
	Shortfall      decimal.Decimal `json:"shortfall"`
}

// FullyAllocated reports whether the full required quantity was covered
func (r *AllocationResult) FullyAllocated() bool {
	return r.Shortfall.IsZero()
}

// AllocationStrategy chooses which candidate pools satisfy a required quantity
type AllocationStrategy interface {
	// StrategyType returns the strategy type
	StrategyType() StrategyType
	// Allocate distributes requiredQty over the candidates
	Allocate(requiredQty decimal.Decimal, candidates []CandidateBalance) (*AllocationResult, error)
}

func validateRequired(requiredQty decimal.Decimal) error {
	if requiredQty.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_QUANTITY", "Required quantity must be positive")
	}
	return nil
}

// ManualStrategy expects the user to have narrowed the choice down to exactly
// one candidate (one batch for batch-managed materials). Any other cardinality
// is an error; no partial allocation is attempted.
type ManualStrategy struct {
	batchManaged bool
}

// NewManualStrategy creates a manual strategy
func NewManualStrategy(batchManaged bool) *ManualStrategy {
	return &ManualStrategy{batchManaged: batchManaged}
}

// StrategyType returns the strategy type
func (s *ManualStrategy) StrategyType() StrategyType {
	return StrategyTypeManual
}

// Allocate assigns the full required quantity to the single matching candidate
func (s *ManualStrategy) Allocate(requiredQty decimal.Decimal, candidates []CandidateBalance) (*AllocationResult, error) {
	if err := validateRequired(requiredQty); err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, shared.NewDomainError("AMBIGUOUS_ALLOCATION",
			"Manual picking requires exactly one candidate balance, found 0")
	}

	if s.batchManaged {
		batches := make(map[string]bool)
		for _, c := range candidates {
			if c.BatchID == nil {
				return nil, shared.NewDomainError("MISSING_BATCH",
					"Batch-managed material has a candidate balance without a batch")
			}
			batches[c.BatchID.String()] = true
		}
		if len(batches) != 1 {
			return nil, shared.NewDomainError("AMBIGUOUS_ALLOCATION",
				fmt.Sprintf("Manual picking requires exactly one batch, found %d", len(batches)))
		}
	} else if len(candidates) != 1 {
		return nil, shared.NewDomainError("AMBIGUOUS_ALLOCATION",
			fmt.Sprintf("Manual picking requires exactly one candidate balance, found %d", len(candidates)))
	}

	target := candidates[0]
	return &AllocationResult{
		Allocations: []Allocation{{
			LocationID: target.LocationID,
			BatchID:    target.BatchID,
			Quantity:   requiredQty,
		}},
		TotalAllocated: requiredQty,
		Shortfall:      decimal.Zero,
	}, nil
}

// SequentialStrategy allocates in candidate-list order until the quantity is
// satisfied or the candidates run out. An optional location is skipped, used
// when a fixed-bin pass already drained it.
type SequentialStrategy struct {
	skipLocation uuid.UUID
}

// SequentialStrategyOption is a functional option for the sequential strategy
type SequentialStrategyOption func(*SequentialStrategy)

// WithSkipLocation excludes a location already tried by a previous pass
func WithSkipLocation(locationID uuid.UUID) SequentialStrategyOption {
	return func(s *SequentialStrategy) {
		s.skipLocation = locationID
	}
}

// NewSequentialStrategy creates a sequential strategy
func NewSequentialStrategy(opts ...SequentialStrategyOption) *SequentialStrategy {
	s := &SequentialStrategy{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StrategyType returns the strategy type
func (s *SequentialStrategy) StrategyType() StrategyType {
	return StrategyTypeSequential
}

// Allocate walks the candidates in order, taking what each has
func (s *SequentialStrategy) Allocate(requiredQty decimal.Decimal, candidates []CandidateBalance) (*AllocationResult, error) {
	if err := validateRequired(requiredQty); err != nil {
		return nil, err
	}

	result := &AllocationResult{
		Allocations:    make([]Allocation, 0),
		TotalAllocated: decimal.Zero,
	}
	remaining := requiredQty

	for _, c := range candidates {
		if remaining.IsZero() {
			break
		}
		if s.skipLocation != uuid.Nil && c.LocationID == s.skipLocation {
			continue
		}
		if c.AvailableQty.LessThanOrEqual(decimal.Zero) {
			continue
		}

		take := decimal.Min(remaining, c.AvailableQty)
		result.Allocations = append(result.Allocations, Allocation{
			LocationID: c.LocationID,
			BatchID:    c.BatchID,
			Quantity:   take,
		})
		result.TotalAllocated = result.TotalAllocated.Add(take)
		remaining = remaining.Sub(take)
	}

	result.Shortfall = remaining
	return result, nil
}

// FixedBinStrategy drains the plant's configured default bin first, then
// optionally spills to the remaining candidates in list order.
type FixedBinStrategy struct {
	defaultBin uuid.UUID
	fallback   bool
}

// FixedBinStrategyOption is a functional option for the fixed-bin strategy
type FixedBinStrategyOption func(*FixedBinStrategy)

// WithSequentialFallback spills to other locations when the default bin is
// insufficient
func WithSequentialFallback() FixedBinStrategyOption {
	return func(s *FixedBinStrategy) {
		s.fallback = true
	}
}

// NewFixedBinStrategy creates a fixed-bin strategy for the given default bin
func NewFixedBinStrategy(defaultBin uuid.UUID, opts ...FixedBinStrategyOption) (*FixedBinStrategy, error) {
	if defaultBin == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_LOCATION", "Default bin location cannot be empty")
	}
	s := &FixedBinStrategy{defaultBin: defaultBin}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// StrategyType returns the strategy type
func (s *FixedBinStrategy) StrategyType() StrategyType {
	return StrategyTypeFixedBin
}

// Allocate takes from the default bin first, up to its availability
func (s *FixedBinStrategy) Allocate(requiredQty decimal.Decimal, candidates []CandidateBalance) (*AllocationResult, error) {
	if err := validateRequired(requiredQty); err != nil {
		return nil, err
	}

	result := &AllocationResult{
		Allocations:    make([]Allocation, 0),
		TotalAllocated: decimal.Zero,
	}
	remaining := requiredQty

	for _, c := range candidates {
		if remaining.IsZero() {
			break
		}
		if c.LocationID != s.defaultBin || c.AvailableQty.LessThanOrEqual(decimal.Zero) {
			continue
		}

		take := decimal.Min(remaining, c.AvailableQty)
		result.Allocations = append(result.Allocations, Allocation{
			LocationID: c.LocationID,
			BatchID:    c.BatchID,
			Quantity:   take,
		})
		result.TotalAllocated = result.TotalAllocated.Add(take)
		remaining = remaining.Sub(take)
	}

	if remaining.GreaterThan(decimal.Zero) && s.fallback {
		spill := NewSequentialStrategy(WithSkipLocation(s.defaultBin))
		spillResult, err := spill.Allocate(remaining, candidates)
		if err != nil {
			return nil, err
		}
		result.Allocations = append(result.Allocations, spillResult.Allocations...)
		result.TotalAllocated = result.TotalAllocated.Add(spillResult.TotalAllocated)
		remaining = spillResult.Shortfall
	}

	result.Shortfall = remaining
	return result, nil
}
