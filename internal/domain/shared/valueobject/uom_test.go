package valueobject

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTable() UOMConversionTable {
	return NewUOMConversionTable("PCS",
		UOMConversion{UOM: "BOX", Factor: decimal.NewFromInt(12)},
		UOMConversion{UOM: "PALLET", Factor: decimal.NewFromInt(288)},
		UOMConversion{UOM: "KG", Factor: decimal.RequireFromString("2.345")},
	)
}

func TestUOMConversionTable_Convert(t *testing.T) {
	table := testTable()

	t.Run("alternative to base", func(t *testing.T) {
		got, err := table.Convert(decimal.NewFromInt(2), "BOX", "PCS")
		require.NoError(t, err)
		assert.True(t, got.Equal(decimal.NewFromInt(24)), "got %s", got)
	})

	t.Run("base to alternative", func(t *testing.T) {
		got, err := table.Convert(decimal.NewFromInt(30), "PCS", "BOX")
		require.NoError(t, err)
		assert.True(t, got.Equal(decimal.RequireFromString("2.5")), "got %s", got)
	})

	t.Run("alternative to alternative routes through base", func(t *testing.T) {
		got, err := table.Convert(decimal.NewFromInt(48), "BOX", "PALLET")
		require.NoError(t, err)
		assert.True(t, got.Equal(decimal.NewFromInt(2)), "got %s", got)
	})

	t.Run("same unit is identity up to rounding", func(t *testing.T) {
		got, err := table.Convert(decimal.RequireFromString("1.23456"), "BOX", "BOX")
		require.NoError(t, err)
		assert.True(t, got.Equal(decimal.RequireFromString("1.235")), "got %s", got)
	})

	t.Run("rounds half away from zero at third decimal", func(t *testing.T) {
		// 1 PCS in KG = 1/2.345 = 0.426439... -> 0.426
		got, err := table.Convert(decimal.NewFromInt(1), "PCS", "KG")
		require.NoError(t, err)
		assert.True(t, got.Equal(decimal.RequireFromString("0.426")), "got %s", got)

		// 0.0005 rounds up, not to even
		assert.True(t, RoundQuantity(decimal.RequireFromString("0.0005")).Equal(decimal.RequireFromString("0.001")))
		assert.True(t, RoundQuantity(decimal.RequireFromString("-0.0005")).Equal(decimal.RequireFromString("-0.001")))
	})

	t.Run("unknown unit", func(t *testing.T) {
		_, err := table.Convert(decimal.NewFromInt(1), "CARTON", "PCS")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "CARTON")
	})
}

func TestUOMConversionTable_RoundTrip(t *testing.T) {
	table := testTable()
	tolerance := decimal.RequireFromString("0.001")

	// Converting into the base unit and back divides the rounding loss by the
	// conversion factor, so the 0.001 tolerance holds for factor >= 1 pairs.
	quantities := []string{"1", "7.5", "0.333", "120", "2.345"}
	units := [][2]string{{"BOX", "PCS"}, {"PALLET", "PCS"}, {"KG", "PCS"}, {"PCS", "KG"}}

	for _, q := range quantities {
		for _, pair := range units {
			qty := decimal.RequireFromString(q)
			there, err := table.Convert(qty, pair[0], pair[1])
			require.NoError(t, err)
			back, err := table.Convert(there, pair[1], pair[0])
			require.NoError(t, err)

			diff := back.Sub(qty).Abs()
			assert.True(t, diff.LessThanOrEqual(tolerance),
				"%s %s -> %s -> back: got %s (diff %s)", q, pair[0], pair[1], back, diff)
		}
	}
}
