package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus enumerates order lifecycle states.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// Direction distinguishes money in from money out.
type Direction string

const (
	DirectionIncome  Direction = "income"
	DirectionExpense Direction = "expense"
)

// LegacyType is the finer transaction taxonomy kept for historical rows.
// New writers should tag the description instead; the categorizer owns the
// mapping between the two encodings.
type LegacyType string

const (
	LegacyOrderCollection LegacyType = "order_collection"
	LegacyShippingPayment LegacyType = "shipping_payment"
	LegacyCostPayment     LegacyType = "cost_payment"
	LegacyExpense         LegacyType = "expense"
	LegacyOtherIncome     LegacyType = "other_income"
)

// Order is a customer purchase record. Orders are immutable inputs to the
// reporting engine; only external actors create or amend them.
type Order struct {
	ID           int64
	CreatedAt    time.Time
	Status       OrderStatus
	Items        []OrderItem
	ShippingCost decimal.Decimal
	Discount     decimal.Decimal
	Deposit      decimal.Decimal
	Total        decimal.Decimal
	AccountID    int64
}

// OrderItem is a single purchased line. Quantity is decimal because legacy
// rows stored fractional quantities.
type OrderItem struct {
	ProductType string
	Size        string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	UnitCost    decimal.Decimal
	Discount    decimal.Decimal
}

// Profit returns the item's product margin contribution.
func (i OrderItem) Profit() decimal.Decimal {
	return i.UnitPrice.Sub(i.UnitCost).Mul(i.Quantity).Sub(i.Discount)
}

// Transaction is a ledger entry. Amount is a non-negative magnitude; the
// sign is implied by Direction.
type Transaction struct {
	ID          int64
	Direction   Direction
	Type        LegacyType
	Amount      decimal.Decimal
	Description string
	OrderID     *int64
	CreatedAt   time.Time
}

// TransactionInput carries the fields callers supply when appending a transaction.
type TransactionInput struct {
	Direction   Direction
	Type        LegacyType
	Amount      decimal.Decimal
	Description string
	OrderID     *int64
}
