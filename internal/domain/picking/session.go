package picking

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AllocationSession tracks, for one document-edit session, how much of each
// (location, batch) pool the document's not-yet-saved rows have claimed. The
// availability a strategy sees for the row being edited is the stored
// unrestricted quantity minus every other row's claims.
//
// A session belongs to exactly one in-flight document and is discarded when
// the edit ends; it is never shared across documents or users.
type AllocationSession struct {
	// claims[rowID][poolKey] = quantity claimed by that row
	claims map[uuid.UUID]map[string]decimal.Decimal
}

// NewAllocationSession creates an empty session for one document edit
func NewAllocationSession() *AllocationSession {
	return &AllocationSession{
		claims: make(map[uuid.UUID]map[string]decimal.Decimal),
	}
}

func poolKey(locationID uuid.UUID, batchID *uuid.UUID) string {
	if batchID == nil {
		return locationID.String()
	}
	return locationID.String() + "|" + batchID.String()
}

// SetRowClaims replaces a row's claims with the given allocations. Called
// every time the row's picks change.
func (s *AllocationSession) SetRowClaims(rowID uuid.UUID, allocations []Allocation) {
	row := make(map[string]decimal.Decimal, len(allocations))
	for _, a := range allocations {
		key := poolKey(a.LocationID, a.BatchID)
		row[key] = row[key].Add(a.Quantity)
	}
	s.claims[rowID] = row
}

// ClearRow drops a row's claims, freeing its pools for other rows
func (s *AllocationSession) ClearRow(rowID uuid.UUID) {
	delete(s.claims, rowID)
}

// ClaimedByOthers returns how much of a pool rows other than rowID have claimed
func (s *AllocationSession) ClaimedByOthers(rowID uuid.UUID, locationID uuid.UUID, batchID *uuid.UUID) decimal.Decimal {
	key := poolKey(locationID, batchID)
	total := decimal.Zero
	for id, row := range s.claims {
		if id == rowID {
			continue
		}
		total = total.Add(row[key])
	}
	return total
}

// EffectiveCandidates returns the candidates with availability reduced by
// other rows' claims, floored at zero. This must be recomputed whenever any
// row's requested quantity changes.
func (s *AllocationSession) EffectiveCandidates(rowID uuid.UUID, candidates []CandidateBalance) []CandidateBalance {
	out := make([]CandidateBalance, len(candidates))
	for i, c := range candidates {
		claimed := s.ClaimedByOthers(rowID, c.LocationID, c.BatchID)
		available := c.AvailableQty.Sub(claimed)
		if available.IsNegative() {
			available = decimal.Zero
		}
		out[i] = CandidateBalance{
			BalanceID:    c.BalanceID,
			LocationID:   c.LocationID,
			BatchID:      c.BatchID,
			AvailableQty: available,
		}
	}
	return out
}
