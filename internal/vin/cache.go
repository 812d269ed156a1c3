package vin

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mpalmer79/quirk-trade-appraisal-VolkswagenMA/internal/observability/metrics"
	"github.com/mpalmer79/quirk-trade-appraisal-VolkswagenMA/pkg/logging"
)

// DefaultCacheTTL keeps decoded vehicles for a day.
const DefaultCacheTTL = 24 * time.Hour

// CachedLookup serves decodes from Redis and falls back to the wrapped
// Lookup. Redis failures are logged and never fail a decode.
type CachedLookup struct {
	next    Lookup
	redis   *redis.Client
	ttl     time.Duration
	metrics *metrics.LeadMetrics
	logger  *logging.Logger
}

// NewCachedLookup wraps next with a Redis cache. A nil client disables caching.
func NewCachedLookup(next Lookup, client *redis.Client, ttl time.Duration, m *metrics.LeadMetrics, logger *logging.Logger) *CachedLookup {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &CachedLookup{next: next, redis: client, ttl: ttl, metrics: m, logger: logger}
}

// Decode implements Lookup.
func (c *CachedLookup) Decode(ctx context.Context, vin string) (*Vehicle, error) {
	vin = Normalize(vin)
	if !Valid(vin) {
		c.metrics.ObserveVINLookup("invalid")
		return nil, ErrInvalidVIN
	}

	if c.redis != nil {
		data, err := c.redis.Get(ctx, cacheKey(vin)).Bytes()
		switch {
		case err == nil:
			var v Vehicle
			if err := json.Unmarshal(data, &v); err == nil {
				c.metrics.ObserveVINLookup("hit")
				return &v, nil
			}
			c.logger.Warn("vin cache entry unreadable", "vin", vin)
		case !errors.Is(err, redis.Nil):
			c.logger.Warn("vin cache read failed", "vin", vin, "error", err)
		}
	}

	v, err := c.next.Decode(ctx, vin)
	if err != nil {
		c.metrics.ObserveVINLookup("error")
		return nil, err
	}
	c.metrics.ObserveVINLookup("miss")

	if c.redis != nil {
		if data, err := json.Marshal(v); err == nil {
			if err := c.redis.Set(ctx, cacheKey(vin), data, c.ttl).Err(); err != nil {
				c.logger.Warn("vin cache write failed", "vin", vin, "error", err)
			}
		}
	}
	return v, nil
}

func cacheKey(vin string) string {
	return "vin:decode:" + vin
}

var _ Lookup = (*CachedLookup)(nil)
