// Package statscache puts a short-TTL Redis cache in front of the stats
// aggregation so dashboard polling does not hammer the lead table.
package statscache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/advisorhq/lead-intake-platform/internal/leads"
	"github.com/advisorhq/lead-intake-platform/pkg/logging"
)

const statsKey = "leads:stats"

// Cache is a read-through cache over a leads.StatsProvider. A nil Redis
// client degrades to direct queries.
type Cache struct {
	source leads.StatsProvider
	client *redis.Client
	ttl    time.Duration
	logger *logging.Logger
}

// New wraps source with a Redis cache. When client is nil the cache is a
// pass-through.
func New(source leads.StatsProvider, client *redis.Client, ttl time.Duration, logger *logging.Logger) *Cache {
	if source == nil {
		panic("statscache: source required")
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Cache{
		source: source,
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// Stats returns the cached payload when fresh, otherwise queries the
// source and refills. Redis errors fall back to the source silently.
func (c *Cache) Stats(ctx context.Context) (*leads.Stats, error) {
	if c.client == nil {
		return c.source.Stats(ctx)
	}

	raw, err := c.client.Get(ctx, statsKey).Bytes()
	if err == nil {
		var cached leads.Stats
		if err := json.Unmarshal(raw, &cached); err == nil {
			return &cached, nil
		}
		// Corrupt entry; drop it and refill below.
		c.client.Del(ctx, statsKey)
	} else if err != redis.Nil {
		c.logger.Warn("stats cache read failed", "error", err)
	}

	stats, err := c.source.Stats(ctx)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(stats); err == nil {
		if err := c.client.Set(ctx, statsKey, payload, c.ttl).Err(); err != nil {
			c.logger.Warn("stats cache write failed", "error", err)
		}
	}
	return stats, nil
}

// Invalidate drops the cached payload; called after every lead create.
func (c *Cache) Invalidate(ctx context.Context) {
	if c.client == nil {
		return
	}
	if err := c.client.Del(ctx, statsKey).Err(); err != nil {
		c.logger.Warn("stats cache invalidation failed", "error", err)
	}
}
