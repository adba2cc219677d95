package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/eventreg/eventreg/internal/jobs"
)

func TestNewNoticeTaskUsesNoticeID(t *testing.T) {
	task, err := NewNoticeTask(NoticePayload{ID: "n-1", PrincipalID: "w1", Code: "switch_approved", CreatedAt: time.Unix(0, 0).UTC()})
	require.NoError(t, err)
	assert.Equal(t, TaskTypeNoticeDeliver, task.Type())
	assert.Contains(t, string(task.Payload()), `"principal_id":"w1"`)
}

func TestNoticeHandlerProcessTask(t *testing.T) {
	h := NoticeHandler{Metrics: jobmetrics.NewMetrics(prometheus.NewRegistry())}

	task, err := NewNoticeTask(NoticePayload{ID: "n-1", PrincipalID: "w1", Code: "switch_approved"})
	require.NoError(t, err)
	assert.NoError(t, h.ProcessTask(context.Background(), task))

	orphan, err := NewNoticeTask(NoticePayload{ID: "n-2"})
	require.NoError(t, err)
	assert.ErrorIs(t, h.ProcessTask(context.Background(), orphan), asynq.SkipRetry)

	garbage := asynq.NewTask(TaskTypeNoticeDeliver, []byte("{"))
	assert.ErrorIs(t, h.ProcessTask(context.Background(), garbage), asynq.SkipRetry)
}
