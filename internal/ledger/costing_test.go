package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestNewAverageCostBlends(t *testing.T) {
	// 100 units @ 10.00 plus 50 units @ 13.00 = 150 units @ 11.00.
	got := NewAverageCost(dec("100"), dec("10"), dec("50"), dec("13"))
	require.True(t, got.Equal(dec("11")), "got %s", got)
}

func TestNewAverageCostFirstReceipt(t *testing.T) {
	got := NewAverageCost(decimal.Zero, decimal.Zero, dec("25"), dec("4.50"))
	require.True(t, got.Equal(dec("4.50")), "got %s", got)
}

func TestNewAverageCostZeroTotalKeepsOldCost(t *testing.T) {
	// A count variance can bring the key back to zero. The last known
	// average survives so the next receipt does not blend against garbage.
	got := NewAverageCost(dec("10"), dec("7.25"), dec("-10"), decimal.Zero)
	require.True(t, got.Equal(dec("7.25")), "got %s", got)
}

func TestNewAverageCostRounding(t *testing.T) {
	// 3 @ 10 plus 1 @ 11 = 41/4 = 10.25 exactly; 1 @ 10 plus 2 @ 10.10
	// exercises the six-decimal rounding.
	got := NewAverageCost(dec("1"), dec("10"), dec("2"), dec("10.10"))
	require.True(t, got.Equal(dec("10.066667")), "got %s", got)
}

func TestLotNormalize(t *testing.T) {
	lot := Lot{Number: "  LOT-9 "}
	norm := lot.Normalize()
	require.Equal(t, "LOT-9", norm.Number)
	require.False(t, norm.HasExpiry())
	require.True(t, Lot{}.Normalize().IsZero())
}
