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

// SummaryWarmupJob recomputes recent monthly summaries so dashboards hit a
// warm cache after invalidation.
type SummaryWarmupJob struct {
	Service *reconcile.Service
	Logger  *slog.Logger
	clock   func() time.Time
}

// NewSummaryWarmupJob wires dependencies for the handler.
func NewSummaryWarmupJob(service *reconcile.Service, logger *slog.Logger) *SummaryWarmupJob {
	return &SummaryWarmupJob{
		Service: service,
		Logger:  logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes finance:summary_warmup tasks.
func (j *SummaryWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Service == nil {
		return errors.New("summary warmup: handler not configured")
	}
	var payload SummaryWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.Months <= 0 {
		payload.Months = 3
	}
	if payload.Model == "" {
		payload.Model = string(reconcile.RecognitionOrders)
	}

	now := j.clock()
	for i := 0; i < payload.Months; i++ {
		at := now.AddDate(0, -i, 0)
		window := shared.MonthWindow(at.Year(), at.Month())
		if _, err := j.Service.Summary(ctx, window, reconcile.RecognitionModel(payload.Model)); err != nil {
			// Warmup is best effort per window; keep going.
			j.logger().Warn("summary warmup window failed",
				slog.String("period", window.Label()),
				slog.Any("error", err),
			)
		}
	}
	return nil
}

func (j *SummaryWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
