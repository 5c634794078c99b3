package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/meridian-erp/meridian-erp/internal/ledger"
	"github.com/meridian-erp/meridian-erp/internal/observability"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Repository is the persistent-store boundary the engine reads from and
// appends through. Implemented by ledger.Repository.
type Repository interface {
	FetchOrders(ctx context.Context, w shared.Window) ([]ledger.RawOrder, error)
	FetchTransactions(ctx context.Context, w shared.Window) ([]ledger.RawTransaction, error)
	InsertTransaction(ctx context.Context, input ledger.TransactionInput) (*ledger.Transaction, error)
	FindTransactionByDescription(ctx context.Context, fragment string) (*ledger.Transaction, error)
}

// IdempotencyGuard claims caller-supplied keys for carry-forward postings.
// Implemented by shared.IdempotencyStore.
type IdempotencyGuard interface {
	Claim(ctx context.Context, key, module string) error
	Release(ctx context.Context, key string) error
}

const idempotencyModule = "finance.carry_forward"

// Service coordinates the reporting engine with the store, cache and metrics.
type Service struct {
	repo    Repository
	cache   *Cache
	idem    IdempotencyGuard
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewService wires the engine's collaborators. cache, idem and metrics may
// be nil; the service then runs uncached with the existence check as the
// only duplicate guard.
func NewService(repo Repository, cache *Cache, idem IdempotencyGuard, metrics *observability.Metrics, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: cache, idem: idem, metrics: metrics, logger: logger}
}

// Summary computes the financial summary for a window under an explicit
// recognition model. Store failures are fatal: no partial summary is ever
// returned.
func (s *Service) Summary(ctx context.Context, w shared.Window, model RecognitionModel) (*FinancialSummary, error) {
	if !model.Valid() {
		return nil, fmt.Errorf("reconcile: unknown recognition model %q", model)
	}

	loader := func(ctx context.Context) (interface{}, error) {
		summary, err := s.compute(ctx, w, model)
		if err != nil {
			return nil, err
		}
		return summary, nil
	}

	if s.cache == nil {
		value, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		summary := value.(FinancialSummary)
		return &summary, nil
	}

	key, err := s.cache.BuildKey(ctx, summaryKey(w, model)...)
	if err != nil {
		return nil, err
	}
	var summary FinancialSummary
	if err := s.cache.FetchJSON(ctx, key, &summary, loader); err != nil {
		return nil, err
	}
	return &summary, nil
}

// Trend returns the monthly points of the window's summary.
func (s *Service) Trend(ctx context.Context, w shared.Window, model RecognitionModel) ([]MonthlyPoint, error) {
	summary, err := s.Summary(ctx, w, model)
	if err != nil {
		return nil, err
	}
	return summary.Monthly, nil
}

// OrderBalances returns the per-order financial views for the window,
// with collections applied, sorted by order ID. This serves the
// outstanding-balance screens.
func (s *Service) OrderBalances(ctx context.Context, w shared.Window) ([]OrderFinancials, []Diagnostic, error) {
	orders, txns, diags, err := s.fetch(ctx, w)
	if err != nil {
		return nil, nil, err
	}
	balances := ApplyCollections(orders, txns)
	sort.Slice(balances, func(i, j int) bool { return balances[i].OrderID < balances[j].OrderID })
	return balances, diags, nil
}

// CarryForward posts the window's net profit as a sales-tagged income
// transaction. It refuses when profit is not positive, when the period was
// already carried forward, or when the idempotency key was already claimed.
// An empty key derives one from the period label, so repeated invocations
// are refused even without caller-supplied keys.
func (s *Service) CarryForward(ctx context.Context, w shared.Window, model RecognitionModel, key string) (*ledger.Transaction, error) {
	// Always a fresh computation; a cached summary could post stale profit.
	summary, err := s.compute(ctx, w, model)
	if err != nil {
		return nil, err
	}
	input, err := BuildCarryForward(summary, w)
	if err != nil {
		s.metrics.ObserveCarryForward("refused")
		return nil, err
	}

	label := w.Label()
	existing, err := s.repo.FindTransactionByDescription(ctx, carryForwardPrefix+" "+label)
	if err != nil && !errors.Is(err, ledger.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		s.metrics.ObserveCarryForward("conflict")
		return nil, fmt.Errorf("%w: %s", ErrCarryForwardConflict, label)
	}

	if s.idem != nil {
		if key == "" {
			key = uuid.NewSHA1(uuid.NameSpaceOID, []byte(idempotencyModule+":"+label)).String()
		}
		if err := s.idem.Claim(ctx, key, idempotencyModule); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				s.metrics.ObserveCarryForward("conflict")
				return nil, fmt.Errorf("%w: %s", ErrCarryForwardConflict, label)
			}
			return nil, err
		}
	}

	tx, err := s.repo.InsertTransaction(ctx, input)
	if err != nil {
		if s.idem != nil {
			if relErr := s.idem.Release(ctx, key); relErr != nil {
				s.logger.Warn("release idempotency key", slog.Any("error", relErr))
			}
		}
		return nil, fmt.Errorf("carry forward: %w", err)
	}

	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("bump summary cache", slog.Any("error", err))
	}
	s.metrics.ObserveCarryForward("posted")
	s.logger.Info("carry-forward posted",
		slog.String("period", label),
		slog.String("amount", input.Amount.String()),
	)
	return tx, nil
}

func (s *Service) compute(ctx context.Context, w shared.Window, model RecognitionModel) (FinancialSummary, error) {
	start := time.Now()
	orders, txns, diags, err := s.fetch(ctx, w)
	if err != nil {
		return FinancialSummary{}, err
	}

	orders = ApplyCollections(orders, txns)
	summary := Aggregate(orders, txns, model)
	summary.Diagnostics = append(diags, summary.Diagnostics...)

	kinds := make(map[string]int)
	for _, d := range summary.Diagnostics {
		kinds[string(d.Kind)]++
	}
	s.metrics.ObserveSummary(string(model), time.Since(start), kinds)
	if len(summary.Diagnostics) > 0 {
		s.logger.Warn("summary computed with anomalies",
			slog.String("model", string(model)),
			slog.Int("diagnostics", len(summary.Diagnostics)),
		)
	}
	return summary, nil
}

// fetch reads one consistent window of orders and transactions and
// normalizes both. The two reads run concurrently; either failure aborts
// the whole computation.
func (s *Service) fetch(ctx context.Context, w shared.Window) ([]OrderFinancials, []ledger.Transaction, []Diagnostic, error) {
	var rawOrders []ledger.RawOrder
	var rawTxns []ledger.RawTransaction

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rawOrders, err = s.repo.FetchOrders(gctx, w)
		return err
	})
	g.Go(func() error {
		var err error
		rawTxns, err = s.repo.FetchTransactions(gctx, w)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, nil, err
	}

	orders, orderDiags := NormalizeOrders(rawOrders)
	txns, txnDiags := NormalizeTransactions(rawTxns)
	return orders, txns, append(orderDiags, txnDiags...), nil
}
