package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/andresuchdata/pantrywise/backend-go/internal/analytics"
	"github.com/andresuchdata/pantrywise/backend-go/internal/config"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	reportKeyPrefix     = "insights:report"
	reportScanBatchSize = 100
)

// ReportCache memoizes engine reports. Entries are keyed by a hash of the
// inputs and parameters, so a hit is always the report those inputs produce.
type ReportCache interface {
	Get(ctx context.Context, key string) (*analytics.Report, bool, error)
	Set(ctx context.Context, key string, report *analytics.Report) error
	InvalidateTenant(ctx context.Context, tenant string) error
	InvalidateAll(ctx context.Context) error
}

type redisReportCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopReportCache struct{}

func NewReportCache(cfg config.CacheConfig) (ReportCache, error) {
	if !cfg.Enabled {
		return &noopReportCache{}, nil
	}

	client, ttl, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return &redisReportCache{
		client: client,
		ttl:    ttl,
	}, nil
}

func NewNoopReportCache() ReportCache {
	return &noopReportCache{}
}

func (c *redisReportCache) Get(ctx context.Context, key string) (*analytics.Report, bool, error) {
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var report analytics.Report
	if err := json.Unmarshal(payload, &report); err != nil {
		return nil, false, fmt.Errorf("decode report cache: %w", err)
	}

	return &report, true, nil
}

func (c *redisReportCache) Set(ctx context.Context, key string, report *analytics.Report) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report cache: %w", err)
	}

	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisReportCache) InvalidateTenant(ctx context.Context, tenant string) error {
	removed, err := unlinkKeysWithPrefix(ctx, c.client, tenantPrefix(tenant)+":", reportScanBatchSize)
	if err != nil {
		return err
	}
	log.Debug().Str("tenant", tenant).Int("removed", removed).Msg("report cache invalidated")
	return nil
}

func (c *redisReportCache) InvalidateAll(ctx context.Context) error {
	_, err := unlinkKeysWithPrefix(ctx, c.client, reportKeyPrefix+":", reportScanBatchSize)
	return err
}

func (n *noopReportCache) Get(ctx context.Context, key string) (*analytics.Report, bool, error) {
	return nil, false, nil
}

func (n *noopReportCache) Set(ctx context.Context, key string, report *analytics.Report) error {
	return nil
}

func (n *noopReportCache) InvalidateTenant(ctx context.Context, tenant string) error {
	return nil
}

func (n *noopReportCache) InvalidateAll(ctx context.Context) error {
	return nil
}

// ReportKey builds the cache key for a tenant's input and options.
func ReportKey(tenant string, in analytics.Input, opts analytics.Options) (string, error) {
	hash, err := reportHash(in, opts)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%s", tenantPrefix(tenant), hash), nil
}

// tenantPrefix is the key namespace of one tenant. The tenant is query
// escaped so it never contains the ':' separator or glob characters, and
// one tenant's prefix cannot match another tenant's keys.
func tenantPrefix(tenant string) string {
	t := strings.ToLower(strings.TrimSpace(tenant))
	if t == "" {
		t = "_"
	}
	return fmt.Sprintf("%s:%s", reportKeyPrefix, url.QueryEscape(t))
}

func reportHash(in analytics.Input, opts analytics.Options) (string, error) {
	loc := "UTC"
	if opts.Location != nil {
		loc = opts.Location.String()
	}

	payload, err := json.Marshal(struct {
		Input    analytics.Input   `json:"input"`
		Options  analytics.Options `json:"options"`
		Location string            `json:"location"`
	}{in, opts, loc})
	if err != nil {
		return "", fmt.Errorf("encode report key: %w", err)
	}

	sum := sha1.Sum(payload)
	return hex.EncodeToString(sum[:]), nil
}
