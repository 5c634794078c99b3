package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/ledger"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

type memoryLedger struct {
	orders     []ledger.RawOrder
	txns       []ledger.RawTransaction
	nextTxnID  int64
	failFetch  bool
	failInsert bool
}

func (m *memoryLedger) FetchOrders(ctx context.Context, w shared.Window) ([]ledger.RawOrder, error) {
	if m.failFetch {
		return nil, shared.ErrSourceUnavailable
	}
	var out []ledger.RawOrder
	for _, o := range m.orders {
		if inWindow(o.CreatedAt, w) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *memoryLedger) FetchTransactions(ctx context.Context, w shared.Window) ([]ledger.RawTransaction, error) {
	if m.failFetch {
		return nil, shared.ErrSourceUnavailable
	}
	var out []ledger.RawTransaction
	for _, t := range m.txns {
		if inWindow(t.CreatedAt, w) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memoryLedger) InsertTransaction(ctx context.Context, input ledger.TransactionInput) (*ledger.Transaction, error) {
	if m.failInsert {
		return nil, errors.New("insert refused")
	}
	m.nextTxnID++
	now := time.Now().UTC()
	m.txns = append(m.txns, ledger.RawTransaction{
		ID:          m.nextTxnID,
		Direction:   string(input.Direction),
		Type:        string(input.Type),
		Amount:      input.Amount.String(),
		Description: input.Description,
		OrderID:     input.OrderID,
		CreatedAt:   now.Format(time.RFC3339),
	})
	return &ledger.Transaction{
		ID:          m.nextTxnID,
		Direction:   input.Direction,
		Type:        input.Type,
		Amount:      input.Amount,
		Description: input.Description,
		OrderID:     input.OrderID,
		CreatedAt:   now,
	}, nil
}

func (m *memoryLedger) FindTransactionByDescription(ctx context.Context, fragment string) (*ledger.Transaction, error) {
	for _, raw := range m.txns {
		if raw.Direction == "income" && strings.Contains(raw.Description, fragment) {
			tx, _ := NormalizeTransaction(raw)
			return &tx, nil
		}
	}
	return nil, ledger.ErrNotFound
}

func inWindow(createdAt string, w shared.Window) bool {
	if w.IsZero() {
		return true
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, createdAt); err == nil {
			return w.Contains(t)
		}
	}
	return true
}

type memoryGuard struct {
	claimed map[string]string
}

func newMemoryGuard() *memoryGuard {
	return &memoryGuard{claimed: make(map[string]string)}
}

func (g *memoryGuard) Claim(ctx context.Context, key, module string) error {
	if _, ok := g.claimed[key]; ok {
		return shared.ErrIdempotencyConflict
	}
	g.claimed[key] = module
	return nil
}

func (g *memoryGuard) Release(ctx context.Context, key string) error {
	delete(g.claimed, key)
	return nil
}

func seededLedger() *memoryLedger {
	return &memoryLedger{
		orders: []ledger.RawOrder{
			{
				ID:           1,
				CreatedAt:    "2024-01-05",
				Status:       "delivered",
				Items:        []ledger.RawOrderItem{{Quantity: "1", UnitPrice: "500", UnitCost: "300"}},
				ShippingCost: "50",
				Total:        "500",
			},
		},
		txns: []ledger.RawTransaction{
			{ID: 1, Direction: "expense", Amount: "100", Description: "[materials] glue", CreatedAt: "2024-01-08"},
		},
		nextTxnID: 1,
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestServiceSummary(t *testing.T) {
	svc := NewService(seededLedger(), nil, nil, nil, testLogger())

	window := shared.MonthWindow(2024, time.January)
	summary, err := svc.Summary(context.Background(), window, RecognitionOrders)
	require.NoError(t, err)
	require.Equal(t, "500", summary.TotalSales.String())
	require.Equal(t, "50", summary.NetProfit.String())
}

func TestServiceSummaryUnknownModel(t *testing.T) {
	svc := NewService(seededLedger(), nil, nil, nil, testLogger())
	_, err := svc.Summary(context.Background(), shared.Window{}, RecognitionModel("blended"))
	require.Error(t, err)
}

func TestServiceSummaryFailClosed(t *testing.T) {
	repo := seededLedger()
	repo.failFetch = true
	svc := NewService(repo, nil, nil, nil, testLogger())

	summary, err := svc.Summary(context.Background(), shared.Window{}, RecognitionOrders)
	require.ErrorIs(t, err, shared.ErrSourceUnavailable)
	require.Nil(t, summary, "no partial summary on source failure")
}

func TestServiceSummaryCached(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	svcCache := NewCache(client, time.Minute)

	repo := seededLedger()
	svc := NewService(repo, svcCache, nil, nil, testLogger())

	window := shared.MonthWindow(2024, time.January)
	first, err := svc.Summary(context.Background(), window, RecognitionOrders)
	require.NoError(t, err)

	// A repo failure is invisible while the cache holds the window.
	repo.failFetch = true
	second, err := svc.Summary(context.Background(), window, RecognitionOrders)
	require.NoError(t, err)
	require.Equal(t, first.NetProfit.String(), second.NetProfit.String())
}

func TestServiceOrderBalances(t *testing.T) {
	repo := seededLedger()
	orderID := int64(1)
	repo.txns = append(repo.txns, ledger.RawTransaction{
		ID: 2, Direction: "income", Amount: "200",
		Description: "[sales] instalment", OrderID: &orderID, CreatedAt: "2024-01-09",
	})
	svc := NewService(repo, nil, nil, nil, testLogger())

	balances, diags, err := svc.OrderBalances(context.Background(), shared.MonthWindow(2024, time.January))
	require.NoError(t, err)
	require.Empty(t, diags)
	require.Len(t, balances, 1)
	require.Equal(t, "200", balances[0].Paid.String())
	require.Equal(t, "300", balances[0].Remaining.String())
}

func TestServiceCarryForward(t *testing.T) {
	repo := seededLedger()
	svc := NewService(repo, nil, newMemoryGuard(), nil, testLogger())

	window := shared.MonthWindow(2024, time.January)
	tx, err := svc.CarryForward(context.Background(), window, RecognitionOrders, "")
	require.NoError(t, err)
	require.Equal(t, ledger.DirectionIncome, tx.Direction)
	require.Equal(t, "50", tx.Amount.String())
	require.Equal(t, "[sales] Net profit carry-forward 2024/01/01 - 2024/01/31", tx.Description)

	// Same period again: refused by the existence check.
	_, err = svc.CarryForward(context.Background(), window, RecognitionOrders, "")
	require.ErrorIs(t, err, ErrCarryForwardConflict)
}

func TestServiceCarryForwardRefusesNonPositive(t *testing.T) {
	repo := seededLedger()
	// Heavy expense flips the period to a loss.
	repo.txns = append(repo.txns, ledger.RawTransaction{
		ID: 2, Direction: "expense", Amount: "900", Description: "[other] rent", CreatedAt: "2024-01-15",
	})
	svc := NewService(repo, nil, newMemoryGuard(), nil, testLogger())

	before := len(repo.txns)
	_, err := svc.CarryForward(context.Background(), shared.MonthWindow(2024, time.January), RecognitionOrders, "")
	require.ErrorIs(t, err, ErrNothingToCarry)
	require.Len(t, repo.txns, before, "refusal must not append a transaction")
}

func TestServiceCarryForwardIdempotencyKey(t *testing.T) {
	guard := newMemoryGuard()
	require.NoError(t, guard.Claim(context.Background(), "report-42", idempotencyModule))

	svc := NewService(seededLedger(), nil, guard, nil, testLogger())
	_, err := svc.CarryForward(context.Background(), shared.MonthWindow(2024, time.January), RecognitionOrders, "report-42")
	require.ErrorIs(t, err, ErrCarryForwardConflict)
}

func TestServiceCarryForwardReleasesKeyOnInsertFailure(t *testing.T) {
	repo := seededLedger()
	repo.failInsert = true
	guard := newMemoryGuard()
	svc := NewService(repo, nil, guard, nil, testLogger())

	_, err := svc.CarryForward(context.Background(), shared.MonthWindow(2024, time.January), RecognitionOrders, "report-7")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrCarryForwardConflict)
	require.Empty(t, guard.claimed, "failed insert must release the key for retry")
}

func TestServiceCarryForwardBumpsCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	svcCache := NewCache(client, time.Minute)

	repo := seededLedger()
	svc := NewService(repo, svcCache, newMemoryGuard(), nil, testLogger())

	ctx := context.Background()
	window := shared.MonthWindow(2024, time.January)
	_, err := svc.Summary(ctx, window, RecognitionOrders)
	require.NoError(t, err)

	_, err = svc.CarryForward(ctx, window, RecognitionOrders, "")
	require.NoError(t, err)

	// The bump invalidates every cached window, so the next summary is a
	// fresh computation against the store.
	repo.failFetch = true
	_, err = svc.Summary(ctx, window, RecognitionOrders)
	require.ErrorIs(t, err, shared.ErrSourceUnavailable)
}
