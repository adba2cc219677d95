package notify

import (
	"context"

	"github.com/eventreg/eventreg/jobs"
)

// Enqueuer is satisfied by *jobs.Client.
type Enqueuer interface {
	EnqueueNotice(ctx context.Context, payload jobs.NoticePayload) error
}

// TaskSink hands notices to the background worker for out-of-band delivery.
type TaskSink struct {
	Enqueuer Enqueuer
}

// Notify implements Sink.
func (s TaskSink) Notify(ctx context.Context, n Notice) error {
	if s.Enqueuer == nil {
		return nil
	}
	return s.Enqueuer.EnqueueNotice(ctx, jobs.NoticePayload{
		ID:          n.ID,
		PrincipalID: n.PrincipalID,
		Kind:        string(n.Kind),
		Code:        n.Code,
		Message:     n.Message,
		CreatedAt:   n.CreatedAt,
	})
}
