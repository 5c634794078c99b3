package reconcile

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/ledger"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

func TestCarryForwardDescription(t *testing.T) {
	period := shared.MonthWindow(2024, time.January)
	require.Equal(t,
		"[sales] Net profit carry-forward 2024/01/01 - 2024/01/31",
		CarryForwardDescription(period),
	)

	// The posted description round-trips through the tag grammar, so a
	// carried-forward profit counts as sales revenue in later periods.
	tx, _ := NormalizeTransaction(ledger.RawTransaction{
		ID:          1,
		Direction:   "income",
		Amount:      "50",
		Description: CarryForwardDescription(period),
		CreatedAt:   "2024-02-01",
	})
	category, rest := Categorize(tx)
	require.Equal(t, CategorySales, category)
	require.Equal(t, "Net profit carry-forward 2024/01/01 - 2024/01/31", rest)
}

func TestBuildCarryForward(t *testing.T) {
	period := shared.MonthWindow(2024, time.January)
	summary := FinancialSummary{NetProfit: decimal.RequireFromString("123.45")}

	input, err := BuildCarryForward(summary, period)
	require.NoError(t, err)
	require.Equal(t, ledger.DirectionIncome, input.Direction)
	require.Equal(t, "123.45", input.Amount.String())
	require.Equal(t, CarryForwardDescription(period), input.Description)
	require.Nil(t, input.OrderID)
}

func TestBuildCarryForwardRefusesNonPositive(t *testing.T) {
	period := shared.MonthWindow(2024, time.January)

	for _, net := range []string{"0", "-10"} {
		summary := FinancialSummary{NetProfit: decimal.RequireFromString(net)}
		_, err := BuildCarryForward(summary, period)
		require.ErrorIs(t, err, ErrNothingToCarry, "net profit %s", net)
	}
}
