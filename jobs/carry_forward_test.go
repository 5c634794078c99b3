package jobs

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/ledger"
	"github.com/meridian-erp/meridian-erp/internal/reconcile"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

type stubLedger struct {
	orders   []ledger.RawOrder
	inserted []ledger.TransactionInput
}

func (s *stubLedger) FetchOrders(ctx context.Context, w shared.Window) ([]ledger.RawOrder, error) {
	return s.orders, nil
}

func (s *stubLedger) FetchTransactions(ctx context.Context, w shared.Window) ([]ledger.RawTransaction, error) {
	return nil, nil
}

func (s *stubLedger) InsertTransaction(ctx context.Context, input ledger.TransactionInput) (*ledger.Transaction, error) {
	s.inserted = append(s.inserted, input)
	return &ledger.Transaction{
		ID:          int64(len(s.inserted)),
		Direction:   input.Direction,
		Amount:      input.Amount,
		Description: input.Description,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

func (s *stubLedger) FindTransactionByDescription(ctx context.Context, fragment string) (*ledger.Transaction, error) {
	for i, input := range s.inserted {
		if strings.Contains(input.Description, fragment) {
			return &ledger.Transaction{ID: int64(i + 1), Description: input.Description}, nil
		}
	}
	return nil, ledger.ErrNotFound
}

func newCarryForwardFixture(t *testing.T, profitable bool) (*CarryForwardJob, *stubLedger) {
	t.Helper()
	repo := &stubLedger{}
	if profitable {
		repo.orders = []ledger.RawOrder{{
			ID:        1,
			CreatedAt: "2024-01-05",
			Status:    "delivered",
			Items:     []ledger.RawOrderItem{{Quantity: "1", UnitPrice: "500", UnitCost: "300"}},
			Total:     "500",
		}}
	}
	svc := reconcile.NewService(repo, nil, nil, nil, slog.New(slog.DiscardHandler))
	job := NewCarryForwardJob(svc, slog.New(slog.DiscardHandler))
	job.clock = func() time.Time {
		return time.Date(2024, time.February, 10, 9, 0, 0, 0, time.UTC)
	}
	return job, repo
}

func TestCarryForwardJobDefaultsToPreviousMonth(t *testing.T) {
	job, repo := newCarryForwardFixture(t, true)

	task, err := NewCarryForwardTask(CarryForwardPayload{})
	require.NoError(t, err)

	require.NoError(t, job.Handle(context.Background(), task))
	require.Len(t, repo.inserted, 1)
	require.Contains(t, repo.inserted[0].Description, "2024/01/01 - 2024/01/31")
}

func TestCarryForwardJobPreviousMonthAtMonthEnd(t *testing.T) {
	job, repo := newCarryForwardFixture(t, true)
	// The 31st of a month following a shorter one is where naive month
	// arithmetic lands in the current month instead of the previous one.
	job.clock = func() time.Time {
		return time.Date(2024, time.March, 31, 23, 30, 0, 0, time.UTC)
	}

	task, err := NewCarryForwardTask(CarryForwardPayload{})
	require.NoError(t, err)

	require.NoError(t, job.Handle(context.Background(), task))
	require.Len(t, repo.inserted, 1)
	require.Contains(t, repo.inserted[0].Description, "2024/02/01 - 2024/02/29")
}

func TestCarryForwardJobConflictCompletesTask(t *testing.T) {
	job, repo := newCarryForwardFixture(t, true)

	task, err := NewCarryForwardTask(CarryForwardPayload{Year: 2024, Month: 1})
	require.NoError(t, err)

	require.NoError(t, job.Handle(context.Background(), task))
	// A second run is already posted; the task still completes so the
	// scheduler does not retry it.
	require.NoError(t, job.Handle(context.Background(), task))
	require.Len(t, repo.inserted, 1)
}

func TestCarryForwardJobNothingToCarry(t *testing.T) {
	job, repo := newCarryForwardFixture(t, false)

	task, err := NewCarryForwardTask(CarryForwardPayload{Year: 2024, Month: 1})
	require.NoError(t, err)

	require.NoError(t, job.Handle(context.Background(), task))
	require.Empty(t, repo.inserted)
}

func TestCarryForwardJobBadPayload(t *testing.T) {
	job, _ := newCarryForwardFixture(t, true)

	task := asynq.NewTask(TaskCarryForward, []byte("{not json"))
	err := job.Handle(context.Background(), task)
	require.ErrorIs(t, err, asynq.SkipRetry)
}
