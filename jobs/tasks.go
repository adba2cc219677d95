package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/eventreg/eventreg/internal/jobs"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeNoticeDeliver delivers a principal notice out of band.
	TaskTypeNoticeDeliver = "notice:deliver"
)

// NoticePayload carries a principal notice to the worker.
type NoticePayload struct {
	ID          string    `json:"id"`
	PrincipalID string    `json:"principal_id"`
	Kind        string    `json:"kind"`
	Code        string    `json:"code"`
	Message     string    `json:"message"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewNoticeTask constructs an Asynq task. The notice ID doubles as the task
// ID so a notice is enqueued at most once.
func NewNoticeTask(payload NoticePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	opts := []asynq.Option{asynq.Queue(QueueDefault), asynq.MaxRetry(5)}
	if payload.ID != "" {
		opts = append(opts, asynq.TaskID(payload.ID))
	}
	return asynq.NewTask(TaskTypeNoticeDeliver, data, opts...), nil
}

// NoticeHandler processes TaskTypeNoticeDeliver tasks.
type NoticeHandler struct {
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// ProcessTask implements asynq.Handler.
func (h NoticeHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	tracker := h.Metrics.Track("notice_deliver")
	var payload NoticePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return tracker.End(asynq.SkipRetry)
	}
	if payload.PrincipalID == "" {
		return tracker.End(asynq.SkipRetry)
	}
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}
	// Delivery channel is the log stream until the mail relay is wired.
	logger.Info("notice delivered",
		slog.String("notice_id", payload.ID),
		slog.String("principal_id", payload.PrincipalID),
		slog.String("code", payload.Code),
		slog.String("kind", payload.Kind),
	)
	h.Metrics.NoticeDelivered(payload.Code)
	return tracker.End(nil)
}
