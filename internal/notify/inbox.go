package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultInboxLimit = 50

// Inbox keeps undelivered notices per principal in a Redis list. Drain
// returns and removes them, so each notice renders once.
type Inbox struct {
	client *redis.Client
	ttl    time.Duration
	limit  int64
}

// NewInbox constructs an Inbox. ttl bounds how long unread notices survive.
func NewInbox(client *redis.Client, ttl time.Duration) *Inbox {
	return &Inbox{client: client, ttl: ttl, limit: defaultInboxLimit}
}

// Notify implements Sink.
func (i *Inbox) Notify(ctx context.Context, n Notice) error {
	if n.PrincipalID == "" {
		return fmt.Errorf("notify: inbox: principal id required")
	}
	data, err := json.Marshal(n)
	if err != nil {
		return err
	}
	key := i.key(n.PrincipalID)
	_, err = i.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, data)
		pipe.LTrim(ctx, key, -i.limit, -1)
		if i.ttl > 0 {
			pipe.Expire(ctx, key, i.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("notify: inbox push: %w", err)
	}
	return nil
}

// Drain returns pending notices oldest first and clears the inbox.
func (i *Inbox) Drain(ctx context.Context, principalID string) ([]Notice, error) {
	key := i.key(principalID)
	var rangeCmd *redis.StringSliceCmd
	_, err := i.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		rangeCmd = pipe.LRange(ctx, key, 0, -1)
		pipe.Del(ctx, key)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("notify: inbox drain: %w", err)
	}
	raw := rangeCmd.Val()
	notices := make([]Notice, 0, len(raw))
	for _, item := range raw {
		var n Notice
		if err := json.Unmarshal([]byte(item), &n); err != nil {
			continue
		}
		notices = append(notices, n)
	}
	return notices, nil
}

func (i *Inbox) key(principalID string) string {
	return "notices:" + principalID
}
