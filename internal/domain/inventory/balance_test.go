package inventory

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBalance(t *testing.T) *InventoryBalance {
	t.Helper()
	b, err := NewInventoryBalance(uuid.New(), uuid.New(), nil, "")
	require.NoError(t, err)
	return b
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestNewInventoryBalance(t *testing.T) {
	t.Run("creates empty balance", func(t *testing.T) {
		b := newTestBalance(t)
		assert.True(t, b.BalanceQty.IsZero())
		assert.True(t, b.UnrestrictedQty.IsZero())
		assert.False(t, b.HasStock())
	})

	t.Run("rejects nil material", func(t *testing.T) {
		_, err := NewInventoryBalance(uuid.Nil, uuid.New(), nil, "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Material ID")
	})

	t.Run("rejects nil location", func(t *testing.T) {
		_, err := NewInventoryBalance(uuid.New(), uuid.Nil, nil, "")
		require.Error(t, err)
	})
}

func TestInventoryBalance_ApplyDelta(t *testing.T) {
	source := MovementSource{DocType: "GOODS_RECEIVING", DocNo: "GR-001"}

	t.Run("receipt into unrestricted", func(t *testing.T) {
		b := newTestBalance(t)
		err := b.ApplyDelta(CategoryDeltas{Unrestricted: dec("100")}, DeltaModeStrict, source)
		require.NoError(t, err)

		assert.True(t, b.UnrestrictedQty.Equal(dec("100")))
		assert.True(t, b.BalanceQty.Equal(dec("100")))
	})

	t.Run("move between pools keeps total", func(t *testing.T) {
		b := newTestBalance(t)
		require.NoError(t, b.ApplyDelta(CategoryDeltas{Unrestricted: dec("50")}, DeltaModeStrict, source))

		err := b.ApplyDelta(CategoryDeltas{Unrestricted: dec("-20"), Reserved: dec("20")}, DeltaModeStrict, source)
		require.NoError(t, err)

		assert.True(t, b.UnrestrictedQty.Equal(dec("30")))
		assert.True(t, b.ReservedQty.Equal(dec("20")))
		assert.True(t, b.BalanceQty.Equal(dec("50")))
	})

	t.Run("total is always the sum of pools", func(t *testing.T) {
		b := newTestBalance(t)
		require.NoError(t, b.ApplyDelta(CategoryDeltas{
			Unrestricted: dec("10"),
			Reserved:     dec("5"),
			Blocked:      dec("2"),
			QualityInsp:  dec("1.5"),
			InTransit:    dec("0.5"),
		}, DeltaModeStrict, source))

		sum := b.UnrestrictedQty.Add(b.ReservedQty).Add(b.BlockedQty).Add(b.QualityInspQty).Add(b.InTransitQty)
		assert.True(t, b.BalanceQty.Equal(sum))
	})

	t.Run("strict mode rejects negative result without mutation", func(t *testing.T) {
		b := newTestBalance(t)
		require.NoError(t, b.ApplyDelta(CategoryDeltas{Unrestricted: dec("10")}, DeltaModeStrict, source))

		err := b.ApplyDelta(CategoryDeltas{Unrestricted: dec("-15")}, DeltaModeStrict, source)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "below zero")
		assert.True(t, b.UnrestrictedQty.Equal(dec("10")), "balance must be untouched")
		assert.True(t, b.BalanceQty.Equal(dec("10")))
	})

	t.Run("clamp mode floors at zero", func(t *testing.T) {
		b := newTestBalance(t)
		require.NoError(t, b.ApplyDelta(CategoryDeltas{Reserved: dec("10")}, DeltaModeStrict, source))

		err := b.ApplyDelta(CategoryDeltas{Reserved: dec("-15")}, DeltaModeClamp, source)
		require.NoError(t, err)
		assert.True(t, b.ReservedQty.IsZero())
		assert.True(t, b.BalanceQty.IsZero())
	})

	t.Run("zero delta is a no-op without events", func(t *testing.T) {
		b := newTestBalance(t)
		b.ClearDomainEvents()
		err := b.ApplyDelta(CategoryDeltas{}, DeltaModeStrict, source)
		require.NoError(t, err)
		assert.Empty(t, b.GetDomainEvents())
	})

	t.Run("every application emits one movement event", func(t *testing.T) {
		b := newTestBalance(t)
		b.ClearDomainEvents()

		require.NoError(t, b.ApplyDelta(CategoryDeltas{Unrestricted: dec("5")}, DeltaModeStrict, source))
		require.NoError(t, b.ApplyDelta(CategoryDeltas{Unrestricted: dec("-2"), Reserved: dec("2")}, DeltaModeStrict, source))

		events := b.GetDomainEvents()
		require.Len(t, events, 2)
		moved, ok := events[1].(*StockMovedEvent)
		require.True(t, ok)
		assert.Equal(t, "GR-001", moved.DocNo)
		assert.True(t, moved.BalanceAfter.Equal(dec("5")))
	})

	t.Run("no pool goes negative under random-ish sequences", func(t *testing.T) {
		b := newTestBalance(t)
		deltas := []CategoryDeltas{
			{Unrestricted: dec("100")},
			{Unrestricted: dec("-30"), Reserved: dec("30")},
			{Reserved: dec("-30")},
			{Reserved: dec("-10")},            // would go negative
			{Unrestricted: dec("-80")},        // would go negative
			{Unrestricted: dec("-70")},        // fits
			{Blocked: dec("5"), InTransit: dec("1")},
		}
		for _, d := range deltas {
			_ = b.ApplyDelta(d, DeltaModeStrict, source)
			for _, c := range AllStockCategories() {
				assert.False(t, b.CategoryQty(c).IsNegative(), "category %s negative", c)
			}
			sum := b.UnrestrictedQty.Add(b.ReservedQty).Add(b.BlockedQty).Add(b.QualityInspQty).Add(b.InTransitQty)
			assert.True(t, b.BalanceQty.Equal(sum))
		}
	})
}

func TestNewInventoryMovement(t *testing.T) {
	source := MovementSource{DocType: "GOODS_DELIVERY", DocNo: "GD-042", ParentNo: "SO-007"}

	t.Run("computes total price", func(t *testing.T) {
		m, err := NewInventoryMovement(uuid.New(), uuid.New(), nil, MovementOut, MovementKindDelivery, dec("4"), dec("2.5"), source)
		require.NoError(t, err)
		assert.True(t, m.TotalPrice.Equal(dec("10")))
		assert.Equal(t, "GD-042", m.TrxNo)
		assert.Equal(t, "SO-007", m.ParentTrxNo)
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		_, err := NewInventoryMovement(uuid.New(), uuid.New(), nil, MovementOut, MovementKindDelivery, decimal.Zero, dec("1"), source)
		require.Error(t, err)
	})

	t.Run("rejects negative price", func(t *testing.T) {
		_, err := NewInventoryMovement(uuid.New(), uuid.New(), nil, MovementIn, MovementKindReceipt, dec("1"), dec("-1"), source)
		require.Error(t, err)
	})
}
