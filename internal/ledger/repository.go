package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// ErrNotFound indicates resource not found.
var ErrNotFound = errors.New("ledger: not found")

// Repository provides PostgreSQL backed access to orders and transactions.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// FetchOrders returns raw order rows created inside the window.
func (r *Repository) FetchOrders(ctx context.Context, w shared.Window) ([]RawOrder, error) {
	query := `
		SELECT id, created_at::text, status, items, shipping_cost::text,
			discount::text, deposit::text, total::text, account_id
		FROM orders
		WHERE 1=1`

	args := []any{}
	argNum := 1
	if !w.From.IsZero() {
		query += fmt.Sprintf(" AND created_at >= $%d", argNum)
		args = append(args, w.From)
		argNum++
	}
	if !w.To.IsZero() {
		query += fmt.Sprintf(" AND created_at < $%d", argNum)
		args = append(args, w.To)
	}
	query += " ORDER BY id"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch orders: %v", shared.ErrSourceUnavailable, err)
	}
	defer rows.Close()

	var out []RawOrder
	for rows.Next() {
		var o RawOrder
		var createdAt, status, shipping, discount, deposit, total pgtype.Text
		var items []byte
		if err := rows.Scan(&o.ID, &createdAt, &status, &items, &shipping,
			&discount, &deposit, &total, &o.AccountID); err != nil {
			return nil, fmt.Errorf("%w: scan order: %v", shared.ErrSourceUnavailable, err)
		}
		o.CreatedAt = createdAt.String
		o.Status = status.String
		o.ShippingCost = shipping.String
		o.Discount = discount.String
		o.Deposit = deposit.String
		o.Total = total.String
		if len(items) > 0 {
			// Items are stored as a jsonb array; a row that fails to decode
			// keeps a nil list and is reported by the normalizer.
			_ = json.Unmarshal(items, &o.Items)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: fetch orders: %v", shared.ErrSourceUnavailable, err)
	}
	return out, nil
}

// FetchTransactions returns raw transaction rows created inside the window.
func (r *Repository) FetchTransactions(ctx context.Context, w shared.Window) ([]RawTransaction, error) {
	query := `
		SELECT id, direction, type, amount::text, description, order_id, created_at::text
		FROM transactions
		WHERE 1=1`

	args := []any{}
	argNum := 1
	if !w.From.IsZero() {
		query += fmt.Sprintf(" AND created_at >= $%d", argNum)
		args = append(args, w.From)
		argNum++
	}
	if !w.To.IsZero() {
		query += fmt.Sprintf(" AND created_at < $%d", argNum)
		args = append(args, w.To)
	}
	query += " ORDER BY id"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch transactions: %v", shared.ErrSourceUnavailable, err)
	}
	defer rows.Close()

	var out []RawTransaction
	for rows.Next() {
		var t RawTransaction
		var direction, typ, amount, description, createdAt pgtype.Text
		var orderID pgtype.Int8
		if err := rows.Scan(&t.ID, &direction, &typ, &amount, &description, &orderID, &createdAt); err != nil {
			return nil, fmt.Errorf("%w: scan transaction: %v", shared.ErrSourceUnavailable, err)
		}
		t.Direction = direction.String
		t.Type = typ.String
		t.Amount = amount.String
		t.Description = description.String
		t.CreatedAt = createdAt.String
		if orderID.Valid {
			id := orderID.Int64
			t.OrderID = &id
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: fetch transactions: %v", shared.ErrSourceUnavailable, err)
	}
	return out, nil
}

// InsertTransaction appends a transaction and returns the stored row.
func (r *Repository) InsertTransaction(ctx context.Context, input TransactionInput) (*Transaction, error) {
	query := `
		INSERT INTO transactions (direction, type, amount, description, order_id, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id, created_at`

	var orderID pgtype.Int8
	if input.OrderID != nil {
		orderID = pgtype.Int8{Int64: *input.OrderID, Valid: true}
	}

	tx := Transaction{
		Direction:   input.Direction,
		Type:        input.Type,
		Amount:      input.Amount,
		Description: input.Description,
		OrderID:     input.OrderID,
	}
	err := r.pool.QueryRow(ctx, query,
		string(input.Direction),
		string(input.Type),
		input.Amount.String(),
		input.Description,
		orderID,
	).Scan(&tx.ID, &tx.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}
	return &tx, nil
}

// FindTransactionByDescription returns the first income transaction whose
// description contains the given fragment. Used by the carry-forward guard.
func (r *Repository) FindTransactionByDescription(ctx context.Context, fragment string) (*Transaction, error) {
	query := `
		SELECT id, direction, type, amount, description, order_id, created_at
		FROM transactions
		WHERE direction = 'income' AND description LIKE '%' || $1 || '%'
		ORDER BY id
		LIMIT 1`

	var tx Transaction
	var amount pgtype.Numeric
	var orderID pgtype.Int8
	err := r.pool.QueryRow(ctx, query, fragment).Scan(
		&tx.ID, &tx.Direction, &tx.Type, &amount, &tx.Description, &orderID, &tx.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: find transaction: %v", shared.ErrSourceUnavailable, err)
	}
	tx.Amount = NumericToDecimal(amount)
	if orderID.Valid {
		id := orderID.Int64
		tx.OrderID = &id
	}
	return &tx, nil
}
