package reconcile

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/ledger"
)

// OrderFinancials is the fully-defaulted financial view of one order.
// Recomputed on every invocation, never persisted.
type OrderFinancials struct {
	OrderID   int64              `json:"order_id"`
	AccountID int64              `json:"account_id"`
	CreatedAt time.Time          `json:"created_at"`
	Status    ledger.OrderStatus `json:"status"`

	// Subtotal and ProductCost cover items only: the narrow, product-margin
	// view. Total is the full order amount including shipping and discount.
	Subtotal    decimal.Decimal `json:"subtotal"`
	ProductCost decimal.Decimal `json:"product_cost"`
	Shipping    decimal.Decimal `json:"shipping"`
	Discount    decimal.Decimal `json:"discount"`
	Deposit     decimal.Decimal `json:"deposit"`
	Total       decimal.Decimal `json:"total"`

	Paid      decimal.Decimal `json:"paid"`
	Remaining decimal.Decimal `json:"remaining"`
}

// timestampLayouts covers the formats the store has produced over time.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// NormalizeOrderRecord converts a raw row into the canonical order. Missing
// numerics become zero, unreadable ones become zero with a MalformedRecord
// diagnostic, a nil item list becomes empty. It never fails.
func NormalizeOrderRecord(raw ledger.RawOrder) (ledger.Order, []Diagnostic) {
	var diags []Diagnostic

	o := ledger.Order{
		ID:        raw.ID,
		AccountID: raw.AccountID,
		Status:    ledger.OrderStatus(raw.Status),
	}
	o.CreatedAt = parseTimestamp(raw.CreatedAt, "order", raw.ID, &diags)
	o.ShippingCost = parseAmount(raw.ShippingCost, "shipping_cost", "order", raw.ID, &diags)
	o.Discount = parseAmount(raw.Discount, "discount", "order", raw.ID, &diags)
	o.Deposit = parseAmount(raw.Deposit, "deposit", "order", raw.ID, &diags)
	o.Total = parseAmount(raw.Total, "total", "order", raw.ID, &diags)

	for i, item := range raw.Items {
		field := "items[" + strconv.Itoa(i) + "]"
		o.Items = append(o.Items, ledger.OrderItem{
			ProductType: item.ProductType,
			Size:        item.Size,
			Quantity:    parseQuantity(item.Quantity, field+".quantity", raw.ID, &diags),
			UnitPrice:   parseAmount(item.UnitPrice, field+".price", "order", raw.ID, &diags),
			UnitCost:    parseAmount(item.UnitCost, field+".cost", "order", raw.ID, &diags),
			Discount:    parseAmount(item.Discount, field+".discount", "order", raw.ID, &diags),
		})
	}
	return o, diags
}

// NormalizeOrder converts a raw order row into a fully-defaulted financial
// view via the canonical order.
//
// The subtotal is always recomputed from items. The stored denormalized
// total wins when readable, since older rows were written under a schema
// that folded deposits differently; otherwise the canonical formula
// total = subtotal + shipping - discount applies.
func NormalizeOrder(raw ledger.RawOrder) (OrderFinancials, []Diagnostic) {
	order, diags := NormalizeOrderRecord(raw)

	f := OrderFinancials{
		OrderID:   order.ID,
		AccountID: order.AccountID,
		CreatedAt: order.CreatedAt,
		Status:    order.Status,
		Shipping:  order.ShippingCost,
		Discount:  order.Discount,
		Deposit:   order.Deposit,
	}
	for _, item := range order.Items {
		f.Subtotal = f.Subtotal.Add(item.UnitPrice.Mul(item.Quantity).Sub(item.Discount))
		f.ProductCost = f.ProductCost.Add(item.UnitCost.Mul(item.Quantity))
	}

	if _, err := decimal.NewFromString(raw.Total); raw.Total != "" && err == nil {
		f.Total = order.Total
	} else {
		f.Total = f.Subtotal.Add(f.Shipping).Sub(f.Discount)
	}

	// Paid and Remaining start from the deposit; collections are matched in
	// ApplyCollections once transactions are normalized. Negative remainders
	// are kept as-is to surface refund and overpayment situations.
	f.Paid = f.Deposit
	f.Remaining = f.Total.Sub(f.Paid)
	return f, diags
}

// NormalizeTransaction converts a raw transaction row, applying the same
// defaulting policy as NormalizeOrder.
func NormalizeTransaction(raw ledger.RawTransaction) (ledger.Transaction, []Diagnostic) {
	var diags []Diagnostic

	tx := ledger.Transaction{
		ID:          raw.ID,
		Type:        ledger.LegacyType(raw.Type),
		Description: raw.Description,
		OrderID:     raw.OrderID,
	}
	tx.Amount = parseAmount(raw.Amount, "amount", "transaction", raw.ID, &diags)
	tx.CreatedAt = parseTimestamp(raw.CreatedAt, "transaction", raw.ID, &diags)

	switch ledger.Direction(raw.Direction) {
	case ledger.DirectionIncome, ledger.DirectionExpense:
		tx.Direction = ledger.Direction(raw.Direction)
	default:
		// Legacy rows encode direction through the type column.
		switch tx.Type {
		case ledger.LegacyOrderCollection, ledger.LegacyOtherIncome:
			tx.Direction = ledger.DirectionIncome
		case ledger.LegacyShippingPayment, ledger.LegacyCostPayment, ledger.LegacyExpense:
			tx.Direction = ledger.DirectionExpense
		default:
			tx.Direction = ledger.DirectionExpense
			diags = append(diags, Diagnostic{
				Kind: DiagMalformedRecord, Record: "transaction", ID: raw.ID,
				Field: "direction", Detail: raw.Direction,
			})
		}
	}
	return tx, diags
}

// NormalizeOrders converts a batch, concatenating diagnostics.
func NormalizeOrders(raws []ledger.RawOrder) ([]OrderFinancials, []Diagnostic) {
	out := make([]OrderFinancials, 0, len(raws))
	var diags []Diagnostic
	for _, raw := range raws {
		f, d := NormalizeOrder(raw)
		out = append(out, f)
		diags = append(diags, d...)
	}
	return out, diags
}

// NormalizeTransactions converts a batch, concatenating diagnostics.
func NormalizeTransactions(raws []ledger.RawTransaction) ([]ledger.Transaction, []Diagnostic) {
	out := make([]ledger.Transaction, 0, len(raws))
	var diags []Diagnostic
	for _, raw := range raws {
		tx, d := NormalizeTransaction(raw)
		out = append(out, tx)
		diags = append(diags, d...)
	}
	return out, diags
}

// ApplyCollections folds matched collection transactions into each order's
// paid amount: paid = deposit + sum of sales-tagged income referencing the
// order. An order may receive any number of partial collections.
func ApplyCollections(orders []OrderFinancials, txns []ledger.Transaction) []OrderFinancials {
	collected := make(map[int64]decimal.Decimal)
	for _, tx := range txns {
		if tx.Direction != ledger.DirectionIncome || tx.OrderID == nil {
			continue
		}
		if cat, _ := Categorize(tx); cat != CategorySales {
			continue
		}
		collected[*tx.OrderID] = collected[*tx.OrderID].Add(tx.Amount)
	}
	out := make([]OrderFinancials, len(orders))
	for i, o := range orders {
		o.Paid = o.Deposit.Add(collected[o.OrderID])
		o.Remaining = o.Total.Sub(o.Paid)
		out[i] = o
	}
	return out
}

func parseAmount(s, field, record string, id int64, diags *[]Diagnostic) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		*diags = append(*diags, Diagnostic{
			Kind: DiagMalformedRecord, Record: record, ID: id,
			Field: field, Detail: s,
		})
		return decimal.Zero
	}
	return d
}

func parseQuantity(s, field string, id int64, diags *[]Diagnostic) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return decimal.NewFromInt(n)
	}
	// Some legacy rows stored quantities with a decimal point.
	if d, err := decimal.NewFromString(s); err == nil {
		return d
	}
	*diags = append(*diags, Diagnostic{
		Kind: DiagMalformedRecord, Record: "order", ID: id,
		Field: field, Detail: s,
	})
	return decimal.Zero
}

func parseTimestamp(s, record string, id int64, diags *[]Diagnostic) time.Time {
	if s == "" {
		*diags = append(*diags, Diagnostic{
			Kind: DiagBadTimestamp, Record: record, ID: id, Field: "created_at",
		})
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	*diags = append(*diags, Diagnostic{
		Kind: DiagBadTimestamp, Record: record, ID: id,
		Field: "created_at", Detail: s,
	})
	return time.Time{}
}
