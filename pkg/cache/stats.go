package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/elonfeng/feedpulse/internal/logger"
	"github.com/elonfeng/feedpulse/pkg/metrics"
	"github.com/elonfeng/feedpulse/pkg/stats"
)

const (
	// StatsKey is the single key holding the dashboard snapshot.
	StatsKey = "feedpulse:stats:dashboard"
	// DefaultStatsTTL bounds how stale a cached snapshot can get.
	DefaultStatsTTL = 300 * time.Second
)

// StatsCache stores the latest stats snapshot. Backend failures behave as a
// miss on read and as a no-op on write; they are logged, never returned.
type StatsCache struct {
	backend Backend
	ttl     time.Duration
	log     *logger.Logger
}

func NewStatsCache(backend Backend, ttl time.Duration, log *logger.Logger) *StatsCache {
	if ttl <= 0 {
		ttl = DefaultStatsTTL
	}
	if log == nil {
		log = logger.Nop()
	}
	return &StatsCache{backend: backend, ttl: ttl, log: log}
}

// Get returns the cached snapshot, if any.
func (c *StatsCache) Get(ctx context.Context) (*stats.Stats, bool) {
	data, err := c.backend.Get(ctx, StatsKey)
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			c.log.Warn("stats cache read failed", "error", err)
		}
		metrics.StatsCache.WithLabelValues("miss").Inc()
		return nil, false
	}

	var s stats.Stats
	if err := json.Unmarshal(data, &s); err != nil {
		c.log.Warn("stats cache entry undecodable", "error", err)
		metrics.StatsCache.WithLabelValues("miss").Inc()
		return nil, false
	}
	metrics.StatsCache.WithLabelValues("hit").Inc()
	return &s, true
}

// Put stores s under the fixed key with the configured TTL.
func (c *StatsCache) Put(ctx context.Context, s stats.Stats) {
	data, err := json.Marshal(s)
	if err != nil {
		c.log.Warn("encode stats for cache", "error", err)
		return
	}
	if err := c.backend.Set(ctx, StatsKey, data, c.ttl); err != nil {
		c.log.Warn("stats cache write failed", "error", err)
	}
}

// Invalidate drops the snapshot so the next read recomputes it.
func (c *StatsCache) Invalidate(ctx context.Context) {
	if err := c.backend.Delete(ctx, StatsKey); err != nil {
		c.log.Warn("stats cache invalidate failed", "error", err)
	}
}
