package reconcile

import (
	"errors"
	"fmt"

	"github.com/meridian-erp/meridian-erp/internal/ledger"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// carryForwardPrefix opens every carry-forward description. The period label
// after it is what the duplicate guard searches for.
const carryForwardPrefix = "Net profit carry-forward"

var (
	// ErrNothingToCarry indicates a zero or negative net profit; such a
	// period is reported but never carried forward.
	ErrNothingToCarry = errors.New("reconcile: no positive net profit to carry forward")
	// ErrCarryForwardConflict indicates the period was already carried forward.
	ErrCarryForwardConflict = errors.New("reconcile: period already carried forward")
)

// CarryForwardDescription renders the description for a period, following
// the wire convention: "[sales] Net profit carry-forward 2024/01/01 - 2024/01/31".
func CarryForwardDescription(period shared.Window) string {
	return fmt.Sprintf("[%s] %s %s", CategorySales, carryForwardPrefix, period.Label())
}

// BuildCarryForward composes the income transaction that rolls a period's
// net profit into the next one. It refuses when there is nothing to carry;
// the duplicate guard against double-posting lives in the service, next to
// the store that can answer it.
func BuildCarryForward(summary FinancialSummary, period shared.Window) (ledger.TransactionInput, error) {
	if !summary.NetProfit.IsPositive() {
		return ledger.TransactionInput{}, fmt.Errorf("%w: net profit %s", ErrNothingToCarry, summary.NetProfit)
	}
	return ledger.TransactionInput{
		Direction:   ledger.DirectionIncome,
		Amount:      summary.NetProfit,
		Description: CarryForwardDescription(period),
	}, nil
}
