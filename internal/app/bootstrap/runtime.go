package bootstrap

import (
	"context"
	"crypto/tls"
	"net/http"
	"strings"

	"github.com/redis/go-redis/v9"

	appconfig "github.com/mpalmer79/quirk-trade-appraisal-VolkswagenMA/internal/config"
	"github.com/mpalmer79/quirk-trade-appraisal-VolkswagenMA/internal/observability/metrics"
	"github.com/mpalmer79/quirk-trade-appraisal-VolkswagenMA/internal/vin"
	"github.com/mpalmer79/quirk-trade-appraisal-VolkswagenMA/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		client.Close()
		return nil
	}
	return client
}

// BuildVINLookup returns the vPIC decoder, cached in Redis when a client is
// given, or nil when VIN_DECODE_URL is empty.
func BuildVINLookup(cfg *appconfig.Config, redisClient *redis.Client, httpClient *http.Client, m *metrics.LeadMetrics, logger *logging.Logger) vin.Lookup {
	if cfg == nil || strings.TrimSpace(cfg.VINDecodeURL) == "" {
		return nil
	}
	decoder := vin.NewDecoder(cfg.VINDecodeURL, httpClient)
	if redisClient == nil {
		return decoder
	}
	return vin.NewCachedLookup(decoder, redisClient, cfg.VINCacheTTL, m, logger)
}
