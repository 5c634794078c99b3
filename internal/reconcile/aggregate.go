package reconcile

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/ledger"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// RecognitionModel declares which source a summary trusts for revenue.
// Exactly one source per summary; mixing both would double-count.
type RecognitionModel string

const (
	// RecognitionOrders derives revenue from order subtotals: the
	// product-margin view.
	RecognitionOrders RecognitionModel = "orders"
	// RecognitionCollections derives revenue from sales-tagged income
	// transactions only: the cash-flow view.
	RecognitionCollections RecognitionModel = "collections"
)

// Valid reports whether the model is one of the two recognised variants.
func (m RecognitionModel) Valid() bool {
	return m == RecognitionOrders || m == RecognitionCollections
}

// MonthlyPoint is one month of the trend series, keyed "YYYY-MM".
type MonthlyPoint struct {
	Period   string          `json:"period"`
	Sales    decimal.Decimal `json:"sales"`
	Costs    decimal.Decimal `json:"costs"`
	Expenses decimal.Decimal `json:"expenses"`
	Net      decimal.Decimal `json:"net"`
}

// FinancialSummary is the derived report for one window. Recomputed on
// every invocation, never persisted.
type FinancialSummary struct {
	Model RecognitionModel `json:"model"`

	TotalSales            decimal.Decimal `json:"total_sales"`
	TotalCosts            decimal.Decimal `json:"total_costs"`
	TotalShipping         decimal.Decimal `json:"total_shipping"`
	TotalDeposits         decimal.Decimal `json:"total_deposits"`
	TotalCollections      decimal.Decimal `json:"total_collections"`
	TotalShippingPayments decimal.Decimal `json:"total_shipping_payments"`
	TotalCostPayments     decimal.Decimal `json:"total_cost_payments"`
	TotalExpenses         decimal.Decimal `json:"total_expenses"`
	TotalOtherIncome      decimal.Decimal `json:"total_other_income"`

	NetProfit         decimal.Decimal `json:"net_profit"`
	CashFlow          decimal.Decimal `json:"cash_flow"`
	RemainingCosts    decimal.Decimal `json:"remaining_costs"`
	RemainingShipping decimal.Decimal `json:"remaining_shipping"`

	ExpenseByCategory map[Category]decimal.Decimal `json:"expense_by_category"`
	Monthly           []MonthlyPoint               `json:"monthly"`
	AvailableYears    []int                        `json:"available_years"`
	Diagnostics       []Diagnostic                 `json:"diagnostics,omitempty"`
}

// Aggregate reduces normalized orders and transactions into a summary.
//
// The reduction is pure and deterministic: inputs are sorted by ID before
// folding and all money math is exact decimal arithmetic, so the same input
// multiset always yields the same output regardless of iteration order.
//
// Cancelled orders contribute nothing to revenue, cost, or deposit totals.
// Records with an unreadable timestamp stay in the window totals but are
// excluded from the monthly trend and counted in diagnostics.
func Aggregate(orders []OrderFinancials, txns []ledger.Transaction, model RecognitionModel) FinancialSummary {
	sortedOrders := make([]OrderFinancials, len(orders))
	copy(sortedOrders, orders)
	sort.Slice(sortedOrders, func(i, j int) bool { return sortedOrders[i].OrderID < sortedOrders[j].OrderID })

	sortedTxns := make([]ledger.Transaction, len(txns))
	copy(sortedTxns, txns)
	sort.Slice(sortedTxns, func(i, j int) bool { return sortedTxns[i].ID < sortedTxns[j].ID })

	s := FinancialSummary{
		Model:             model,
		ExpenseByCategory: make(map[Category]decimal.Decimal),
	}
	months := make(map[string]*MonthlyPoint)
	years := make(map[int]struct{})

	monthOf := func(f OrderFinancials) *MonthlyPoint {
		if f.CreatedAt.IsZero() {
			return nil
		}
		return monthPoint(months, years, f.CreatedAt)
	}

	for _, o := range sortedOrders {
		if o.Status == ledger.OrderStatusCancelled {
			continue
		}
		s.TotalCosts = s.TotalCosts.Add(o.ProductCost)
		s.TotalShipping = s.TotalShipping.Add(o.Shipping)
		s.TotalDeposits = s.TotalDeposits.Add(o.Deposit)

		if o.CreatedAt.IsZero() {
			s.Diagnostics = append(s.Diagnostics, Diagnostic{
				Kind: DiagBadTimestamp, Record: "order", ID: o.OrderID,
				Field: "created_at", Detail: "excluded from monthly trend",
			})
		}
		if model == RecognitionOrders {
			s.TotalSales = s.TotalSales.Add(o.Subtotal)
			if p := monthOf(o); p != nil {
				p.Sales = p.Sales.Add(o.Subtotal)
				p.Costs = p.Costs.Add(o.ProductCost)
			}
		} else if p := monthOf(o); p != nil {
			p.Costs = p.Costs.Add(o.ProductCost)
		}
	}

	for _, tx := range sortedTxns {
		cat, _ := categorizeWithDiagnostics(tx, &s.Diagnostics)

		var point *MonthlyPoint
		if tx.CreatedAt.IsZero() {
			s.Diagnostics = append(s.Diagnostics, Diagnostic{
				Kind: DiagBadTimestamp, Record: "transaction", ID: tx.ID,
				Field: "created_at", Detail: "excluded from monthly trend",
			})
		} else {
			point = monthPoint(months, years, tx.CreatedAt)
		}

		switch tx.Direction {
		case ledger.DirectionIncome:
			if cat == CategorySales {
				if tx.OrderID != nil {
					s.TotalCollections = s.TotalCollections.Add(tx.Amount)
				}
				// Sales-tagged income is revenue, never "other income"; in
				// the orders model it is already represented by the order
				// subtotals it collects against.
				if model == RecognitionCollections {
					s.TotalSales = s.TotalSales.Add(tx.Amount)
					if point != nil {
						point.Sales = point.Sales.Add(tx.Amount)
					}
				}
			} else {
				s.TotalOtherIncome = s.TotalOtherIncome.Add(tx.Amount)
				if point != nil {
					point.Sales = point.Sales.Add(tx.Amount)
				}
			}
		case ledger.DirectionExpense:
			switch cat {
			case CategoryCost:
				s.TotalCostPayments = s.TotalCostPayments.Add(tx.Amount)
			case CategoryShipping:
				s.TotalShippingPayments = s.TotalShippingPayments.Add(tx.Amount)
			default:
				s.TotalExpenses = s.TotalExpenses.Add(tx.Amount)
				s.ExpenseByCategory[cat] = s.ExpenseByCategory[cat].Add(tx.Amount)
				if point != nil {
					point.Expenses = point.Expenses.Add(tx.Amount)
				}
			}
		}
	}

	switch model {
	case RecognitionCollections:
		// Cash view: everything collected minus everything paid out.
		totalIncome := s.TotalSales.Add(s.TotalOtherIncome)
		totalOut := s.TotalExpenses.Add(s.TotalCostPayments).Add(s.TotalShippingPayments)
		s.NetProfit = totalIncome.Sub(totalOut)
	default:
		s.NetProfit = s.TotalSales.
			Sub(s.TotalCosts).
			Sub(s.TotalShipping).
			Add(s.TotalOtherIncome).
			Sub(s.TotalExpenses)
	}

	s.CashFlow = s.TotalCollections.
		Add(s.TotalDeposits).
		Add(s.TotalOtherIncome).
		Sub(s.TotalShippingPayments).
		Sub(s.TotalCostPayments).
		Sub(s.TotalExpenses)

	// Never clamped: negative remainders surface overpayment.
	s.RemainingCosts = s.TotalCosts.Sub(s.TotalCostPayments)
	s.RemainingShipping = s.TotalShipping.Sub(s.TotalShippingPayments)

	s.Monthly = make([]MonthlyPoint, 0, len(months))
	for _, p := range months {
		p.Net = p.Sales.Sub(p.Costs).Sub(p.Expenses)
		s.Monthly = append(s.Monthly, *p)
	}
	sort.Slice(s.Monthly, func(i, j int) bool { return s.Monthly[i].Period < s.Monthly[j].Period })

	s.AvailableYears = make([]int, 0, len(years))
	for y := range years {
		s.AvailableYears = append(s.AvailableYears, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(s.AvailableYears)))

	return s
}

func monthPoint(months map[string]*MonthlyPoint, years map[int]struct{}, t time.Time) *MonthlyPoint {
	key := shared.MonthKey(t)
	p, ok := months[key]
	if !ok {
		p = &MonthlyPoint{Period: key}
		months[key] = p
	}
	years[t.Year()] = struct{}{}
	return p
}
