package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/hibiken/asynq"

	"github.com/eventreg/eventreg/internal/notify"
	"github.com/eventreg/eventreg/jobs"
)

// JobsCLI wraps manual management helpers for notice delivery jobs.
type JobsCLI struct {
	client    *jobs.Client
	inspector *asynq.Inspector
}

// NewJobsCLI initialises the CLI helpers using the provided Redis settings.
func NewJobsCLI(opts asynq.RedisClientOpt) *JobsCLI {
	return &JobsCLI{client: jobs.NewClient(opts), inspector: asynq.NewInspector(opts)}
}

// Close releases underlying resources.
func (c *JobsCLI) Close() error {
	var errs []error
	if c.inspector != nil {
		errs = append(errs, c.inspector.Close())
	}
	if c.client != nil {
		errs = append(errs, c.client.Close())
	}
	return errors.Join(errs...)
}

// Notify enqueues a one-off notice for principalID, e.g. after a manual
// grant change made directly in the database.
func (c *JobsCLI) Notify(ctx context.Context, principalID, message string) error {
	if c == nil || c.client == nil {
		return errors.New("jobs cli: client not configured")
	}
	if principalID == "" || message == "" {
		return errors.New("jobs cli: principal and message are required")
	}
	sink := notify.TaskSink{Enqueuer: c.client}
	return sink.Notify(ctx, notify.New(principalID, notify.KindInfo, notify.CodeSessionInvalidated, message))
}

// QueueStats summarises the current queue state.
type QueueStats struct {
	Queue     string
	Pending   int
	Active    int
	Scheduled int
	Retry     int
	Archived  int
}

// InspectQueue reports the queue metrics for the default queue.
func (c *JobsCLI) InspectQueue() (QueueStats, error) {
	if c == nil || c.inspector == nil {
		return QueueStats{}, errors.New("jobs cli: inspector not configured")
	}
	info, err := c.inspector.GetQueueInfo(jobs.QueueDefault)
	if err != nil {
		return QueueStats{}, err
	}
	stats := QueueStats{Queue: jobs.QueueDefault}
	if info != nil {
		stats.Pending = info.Pending
		stats.Active = info.Active
		stats.Scheduled = info.Scheduled
		stats.Retry = info.Retry
		stats.Archived = info.Archived
	}
	return stats, nil
}

// Run executes a jobs subcommand and writes its result to out.
func Run(ctx context.Context, c *JobsCLI, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errors.New("usage: eventreg jobs stats | eventreg jobs notify <principal-id> <message>")
	}
	switch args[0] {
	case "stats":
		stats, err := c.InspectQueue()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(out, "queue=%s pending=%d active=%d scheduled=%d retry=%d archived=%d\n",
			stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry, stats.Archived)
		return err
	case "notify":
		if len(args) != 3 {
			return errors.New("usage: eventreg jobs notify <principal-id> <message>")
		}
		return c.Notify(ctx, args[1], args[2])
	default:
		return fmt.Errorf("jobs cli: unsupported command %s", args[0])
	}
}
