package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskCarryForward posts the previous period's net profit.
	TaskCarryForward = "finance:carry_forward"
	// TaskSummaryWarmup pre-populates the summary cache for recent windows.
	TaskSummaryWarmup = "finance:summary_warmup"
)

// CarryForwardPayload selects the period and recognition model to post.
// A zero Year/Month means the month before the task runs.
type CarryForwardPayload struct {
	Year  int    `json:"year,omitempty"`
	Month int    `json:"month,omitempty"`
	Model string `json:"model"`
}

// NewCarryForwardTask constructs an Asynq task.
func NewCarryForwardTask(payload CarryForwardPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCarryForward, data), nil
}

// SummaryWarmupPayload selects how many trailing months to warm.
type SummaryWarmupPayload struct {
	Months int    `json:"months"`
	Model  string `json:"model"`
}

// NewSummaryWarmupTask constructs an Asynq task.
func NewSummaryWarmupTask(payload SummaryWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSummaryWarmup, data), nil
}
