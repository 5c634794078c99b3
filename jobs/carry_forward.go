package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/meridian-erp/meridian-erp/internal/reconcile"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// CarryForwardJob posts a period's net profit on schedule. A refusal
// (nothing to carry, or the period already posted) completes the task;
// only store failures are retried.
type CarryForwardJob struct {
	Service *reconcile.Service
	Logger  *slog.Logger
	clock   func() time.Time
}

// NewCarryForwardJob wires dependencies for the handler.
func NewCarryForwardJob(service *reconcile.Service, logger *slog.Logger) *CarryForwardJob {
	return &CarryForwardJob{
		Service: service,
		Logger:  logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes finance:carry_forward tasks.
func (j *CarryForwardJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Service == nil {
		return errors.New("carry forward: handler not configured")
	}
	var payload CarryForwardPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.Model == "" {
		payload.Model = string(reconcile.RecognitionOrders)
	}

	year, month := payload.Year, time.Month(payload.Month)
	if year == 0 || payload.Month == 0 {
		// Anchor on the first of the current month before stepping back.
		// AddDate on the raw clock normalizes short months forward (March 31
		// minus one month is "February 31", i.e. early March) and would
		// target the still-open month when run on the 29th-31st.
		now := j.clock()
		prev := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
		year, month = prev.Year(), prev.Month()
	}
	window := shared.MonthWindow(year, month)

	tx, err := j.Service.CarryForward(ctx, window, reconcile.RecognitionModel(payload.Model), "")
	switch {
	case errors.Is(err, reconcile.ErrNothingToCarry):
		j.logger().Info("carry-forward skipped, nothing to carry", slog.String("period", window.Label()))
		return nil
	case errors.Is(err, reconcile.ErrCarryForwardConflict):
		j.logger().Info("carry-forward already posted", slog.String("period", window.Label()))
		return nil
	case err != nil:
		return err
	}
	j.logger().Info("carry-forward posted",
		slog.String("period", window.Label()),
		slog.Int64("transaction_id", tx.ID),
	)
	return nil
}

func (j *CarryForwardJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
