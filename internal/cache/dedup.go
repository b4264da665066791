package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// IMessageDedup records inbound email message ids so that replayed SNS
// deliveries of the same notification are acknowledged without reprocessing.
type IMessageDedup interface {
	// MarkSeen returns true if the message id was already recorded.
	// The first caller for a given id gets false and claims it.
	MarkSeen(ctx context.Context, messageID string) (bool, error)
}

// messageDedup implements IMessageDedup on top of Redis SETNX with a TTL.
type messageDedup struct {
	client *redis.Client
	ttl    time.Duration
}

// NewMessageDedup creates a Redis-backed message dedup guard.
func NewMessageDedup(client *redis.Client, ttl time.Duration) IMessageDedup {
	return &messageDedup{client: client, ttl: ttl}
}

func (d *messageDedup) MarkSeen(ctx context.Context, messageID string) (bool, error) {
	key := fmt.Sprintf("inboundmsg:%s", messageID)
	claimed, err := d.client.SetNX(ctx, key, 1, d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to record message id %s: %w", messageID, err)
	}
	return !claimed, nil
}
