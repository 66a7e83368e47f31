package picking

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func candidate(locationID uuid.UUID, batchID *uuid.UUID, qty string) CandidateBalance {
	return CandidateBalance{
		BalanceID:    uuid.New(),
		LocationID:   locationID,
		BatchID:      batchID,
		AvailableQty: dec(qty),
	}
}

func TestManualStrategy(t *testing.T) {
	binA := uuid.New()
	binB := uuid.New()

	t.Run("single candidate gets the full quantity", func(t *testing.T) {
		strategy := NewManualStrategy(false)
		result, err := strategy.Allocate(dec("10"), []CandidateBalance{
			candidate(binA, nil, "50"),
		})
		require.NoError(t, err)
		require.Len(t, result.Allocations, 1)
		assert.Equal(t, binA, result.Allocations[0].LocationID)
		assert.True(t, result.Allocations[0].Quantity.Equal(dec("10")))
		assert.True(t, result.FullyAllocated())
	})

	t.Run("multiple candidates rejected", func(t *testing.T) {
		strategy := NewManualStrategy(false)
		_, err := strategy.Allocate(dec("10"), []CandidateBalance{
			candidate(binA, nil, "50"),
			candidate(binB, nil, "50"),
		})
		assert.Error(t, err)
	})

	t.Run("no candidates rejected", func(t *testing.T) {
		strategy := NewManualStrategy(false)
		_, err := strategy.Allocate(dec("10"), nil)
		assert.Error(t, err)
	})

	t.Run("batch-managed requires exactly one batch", func(t *testing.T) {
		strategy := NewManualStrategy(true)
		batchA := uuid.New()
		batchB := uuid.New()

		_, err := strategy.Allocate(dec("10"), []CandidateBalance{
			candidate(binA, &batchA, "50"),
			candidate(binB, &batchB, "50"),
		})
		assert.Error(t, err)

		result, err := strategy.Allocate(dec("10"), []CandidateBalance{
			candidate(binA, &batchA, "50"),
		})
		require.NoError(t, err)
		assert.Equal(t, &batchA, result.Allocations[0].BatchID)
	})
}

func TestSequentialStrategy(t *testing.T) {
	binA := uuid.New()
	binB := uuid.New()
	binC := uuid.New()

	t.Run("allocates in list order", func(t *testing.T) {
		strategy := NewSequentialStrategy()
		result, err := strategy.Allocate(dec("30"), []CandidateBalance{
			candidate(binA, nil, "20"),
			candidate(binB, nil, "20"),
		})
		require.NoError(t, err)
		require.Len(t, result.Allocations, 2)
		assert.True(t, result.Allocations[0].Quantity.Equal(dec("20")))
		assert.True(t, result.Allocations[1].Quantity.Equal(dec("10")))
		assert.True(t, result.FullyAllocated())
	})

	t.Run("shortfall is not an error", func(t *testing.T) {
		strategy := NewSequentialStrategy()
		result, err := strategy.Allocate(dec("30"), []CandidateBalance{
			candidate(binA, nil, "12"),
		})
		require.NoError(t, err)
		assert.True(t, result.TotalAllocated.Equal(dec("12")))
		assert.True(t, result.Shortfall.Equal(dec("18")))
		assert.False(t, result.FullyAllocated())
	})

	t.Run("skips the excluded location and empty pools", func(t *testing.T) {
		strategy := NewSequentialStrategy(WithSkipLocation(binA))
		result, err := strategy.Allocate(dec("10"), []CandidateBalance{
			candidate(binA, nil, "50"),
			candidate(binB, nil, "0"),
			candidate(binC, nil, "50"),
		})
		require.NoError(t, err)
		require.Len(t, result.Allocations, 1)
		assert.Equal(t, binC, result.Allocations[0].LocationID)
	})
}

func TestFixedBinStrategy(t *testing.T) {
	binB := uuid.New()
	binFix := uuid.New()
	binC := uuid.New()
	candidates := []CandidateBalance{
		candidate(binB, nil, "15"),
		candidate(binFix, nil, "10"),
		candidate(binC, nil, "20"),
	}

	t.Run("default bin drained first", func(t *testing.T) {
		strategy, err := NewFixedBinStrategy(binFix)
		require.NoError(t, err)

		result, err := strategy.Allocate(dec("8"), candidates)
		require.NoError(t, err)
		require.Len(t, result.Allocations, 1)
		assert.Equal(t, binFix, result.Allocations[0].LocationID)
		assert.True(t, result.FullyAllocated())
	})

	t.Run("no fallback leaves a shortfall", func(t *testing.T) {
		strategy, err := NewFixedBinStrategy(binFix)
		require.NoError(t, err)

		result, err := strategy.Allocate(dec("18"), candidates)
		require.NoError(t, err)
		assert.True(t, result.TotalAllocated.Equal(dec("10")))
		assert.True(t, result.Shortfall.Equal(dec("8")))
	})

	t.Run("sequential fallback spills in list order, skipping the default bin", func(t *testing.T) {
		strategy, err := NewFixedBinStrategy(binFix, WithSequentialFallback())
		require.NoError(t, err)

		result, err := strategy.Allocate(dec("30"), candidates)
		require.NoError(t, err)
		require.Len(t, result.Allocations, 3)
		assert.Equal(t, binFix, result.Allocations[0].LocationID)
		assert.Equal(t, binB, result.Allocations[1].LocationID)
		assert.True(t, result.Allocations[1].Quantity.Equal(dec("15")))
		assert.Equal(t, binC, result.Allocations[2].LocationID)
		assert.True(t, result.Allocations[2].Quantity.Equal(dec("5")))
		assert.True(t, result.FullyAllocated())
	})

	t.Run("empty default bin rejected", func(t *testing.T) {
		_, err := NewFixedBinStrategy(uuid.Nil)
		assert.Error(t, err)
	})
}

func TestAllocationSession(t *testing.T) {
	binA := uuid.New()
	binB := uuid.New()

	t.Run("other rows' claims reduce availability", func(t *testing.T) {
		session := NewAllocationSession()
		rowA := uuid.New()
		rowB := uuid.New()

		session.SetRowClaims(rowA, []Allocation{
			{LocationID: binA, Quantity: dec("30")},
		})

		candidates := session.EffectiveCandidates(rowB, []CandidateBalance{
			candidate(binA, nil, "50"),
			candidate(binB, nil, "50"),
		})
		assert.True(t, candidates[0].AvailableQty.Equal(dec("20")))
		assert.True(t, candidates[1].AvailableQty.Equal(dec("50")))
	})

	t.Run("a row's own claims are not subtracted", func(t *testing.T) {
		session := NewAllocationSession()
		rowA := uuid.New()

		session.SetRowClaims(rowA, []Allocation{
			{LocationID: binA, Quantity: dec("30")},
		})

		candidates := session.EffectiveCandidates(rowA, []CandidateBalance{
			candidate(binA, nil, "50"),
		})
		assert.True(t, candidates[0].AvailableQty.Equal(dec("50")))
	})

	t.Run("claims replace on recompute and clear on row removal", func(t *testing.T) {
		session := NewAllocationSession()
		rowA := uuid.New()
		rowB := uuid.New()

		session.SetRowClaims(rowA, []Allocation{{LocationID: binA, Quantity: dec("30")}})
		session.SetRowClaims(rowA, []Allocation{{LocationID: binA, Quantity: dec("10")}})
		assert.True(t, session.ClaimedByOthers(rowB, binA, nil).Equal(dec("10")))

		session.ClearRow(rowA)
		assert.True(t, session.ClaimedByOthers(rowB, binA, nil).IsZero())
	})

	t.Run("over-claimed pools floor at zero", func(t *testing.T) {
		session := NewAllocationSession()
		rowA := uuid.New()
		rowB := uuid.New()

		session.SetRowClaims(rowA, []Allocation{{LocationID: binA, Quantity: dec("80")}})
		candidates := session.EffectiveCandidates(rowB, []CandidateBalance{
			candidate(binA, nil, "50"),
		})
		assert.True(t, candidates[0].AvailableQty.IsZero())
	})

	t.Run("batch pools tracked separately", func(t *testing.T) {
		session := NewAllocationSession()
		rowA := uuid.New()
		rowB := uuid.New()
		batchA := uuid.New()
		batchB := uuid.New()

		session.SetRowClaims(rowA, []Allocation{
			{LocationID: binA, BatchID: &batchA, Quantity: dec("10")},
		})
		assert.True(t, session.ClaimedByOthers(rowB, binA, &batchA).Equal(dec("10")))
		assert.True(t, session.ClaimedByOthers(rowB, binA, &batchB).IsZero())
	})
}

func TestLineStatusFor(t *testing.T) {
	cases := []struct {
		name       string
		cumulative string
		ordered    string
		expected   LineStatus
	}{
		{"nothing picked", "0", "10", LineStatusCreated},
		{"partially picked", "4", "10", LineStatusInProgress},
		{"exactly complete", "10", "10", LineStatusCompleted},
		{"over-delivered", "11", "10", LineStatusCompleted},
		{"zero ordered stays created", "0", "0", LineStatusCreated},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, LineStatusFor(dec(tc.cumulative), dec(tc.ordered)))
		})
	}
}
