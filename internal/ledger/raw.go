package ledger

// Raw record shapes as returned by the hosted store. The schema went
// through two generations: the older one kept numeric columns as text and
// allowed them to be empty, the newer one is typed but still nullable.
// Reading everything as strings lets the normalizer apply one defaulting
// policy instead of scattering null checks across call sites.

// RawOrder is an order row before normalization.
type RawOrder struct {
	ID           int64          `json:"id"`
	CreatedAt    string         `json:"created_at"`
	Status       string         `json:"status"`
	Items        []RawOrderItem `json:"items"`
	ShippingCost string         `json:"shipping_cost"`
	Discount     string         `json:"discount"`
	Deposit      string         `json:"deposit"`
	Total        string         `json:"total"`
	AccountID    int64          `json:"account_id"`
}

// RawOrderItem is an order line before normalization.
type RawOrderItem struct {
	ProductType string `json:"product_type"`
	Size        string `json:"size"`
	Quantity    string `json:"quantity"`
	UnitPrice   string `json:"price"`
	UnitCost    string `json:"cost"`
	Discount    string `json:"discount"`
}

// RawTransaction is a transaction row before normalization.
type RawTransaction struct {
	ID          int64  `json:"id"`
	Direction   string `json:"direction"`
	Type        string `json:"type"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
	OrderID     *int64 `json:"order_id"`
	CreatedAt   string `json:"created_at"`
}
