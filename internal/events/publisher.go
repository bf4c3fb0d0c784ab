// Package events publishes sync outcomes to Redis for downstream
// consumers and tracks per-source cooldown keys.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"jobfeed/sync-service/internal/model"
)

// ChannelSyncCompleted carries one JSON SyncResult per finished sync.
const ChannelSyncCompleted = "jobs.sync.completed"

// Publisher wraps the Redis client. All operations are best-effort: a
// Redis failure degrades to a warning, never to a sync failure.
type Publisher struct {
	rdb      *redis.Client
	cooldown time.Duration
}

// NewPublisher returns a Publisher with the given per-source cooldown.
func NewPublisher(rdb *redis.Client, cooldown time.Duration) *Publisher {
	return &Publisher{rdb: rdb, cooldown: cooldown}
}

// PublishSyncCompleted broadcasts the result on ChannelSyncCompleted.
func (p *Publisher) PublishSyncCompleted(ctx context.Context, res model.SyncResult) {
	payload, err := json.Marshal(res)
	if err != nil {
		slog.Warn("marshal sync result failed", "err", err)
		return
	}
	if err := p.rdb.Publish(ctx, ChannelSyncCompleted, payload).Err(); err != nil {
		slog.Warn("publish sync result failed", "channel", ChannelSyncCompleted, "err", err)
	}
}

// RecentlySynced reports whether the source was marked within the
// cooldown window. Fails open: on Redis errors it returns false so a
// broken Redis never blocks syncing.
func (p *Publisher) RecentlySynced(ctx context.Context, source string) bool {
	if p.cooldown <= 0 {
		return false
	}
	n, err := p.rdb.Exists(ctx, cooldownKey(source)).Result()
	if err != nil {
		slog.Warn("cooldown lookup failed", "source", source, "err", err)
		return false
	}
	return n > 0
}

// MarkSynced records a completed sync for the source, expiring after the
// cooldown window.
func (p *Publisher) MarkSynced(ctx context.Context, source string) {
	if p.cooldown <= 0 {
		return
	}
	now := time.Now().UTC().Format(time.RFC3339)
	if err := p.rdb.Set(ctx, cooldownKey(source), now, p.cooldown).Err(); err != nil {
		slog.Warn("cooldown mark failed", "source", source, "err", err)
	}
}

func cooldownKey(source string) string {
	return fmt.Sprintf("sync:last:%s", source)
}
