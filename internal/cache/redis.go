package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"siterent-backend/internal/domain"
	"siterent-backend/internal/logger"
)

const (
	SiteBalanceKeyFmt = "siterent:site:%s:balance"
	StockListKey      = "siterent:stock:list"

	invalidateTimeout = 2 * time.Second
)

// RedisCache is a read-through cache for site balances and the stock list.
// A nil *RedisCache or one without a client is a valid no-op cache, so
// callers keep working when Redis is down.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects to Redis and pings it.
func New(addr, password string, db int, ttl time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return NewWithClient(client, ttl), nil
}

func NewWithClient(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) enabled() bool {
	return c != nil && c.client != nil
}

// Close releases the connection pool.
func (c *RedisCache) Close() error {
	if !c.enabled() {
		return nil
	}
	return c.client.Close()
}

func SiteBalanceKey(siteID string) string {
	return fmt.Sprintf(SiteBalanceKeyFmt, siteID)
}

func (c *RedisCache) getJSON(ctx context.Context, key string, dst any) bool {
	if !c.enabled() {
		return false
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Warn("cache read failed", "key", key, "error", err)
		}
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		logger.Warn("cache entry undecodable, dropping", "key", key, "error", err)
		c.client.Del(ctx, key)
		return false
	}
	return true
}

func (c *RedisCache) setJSON(ctx context.Context, key string, v any) {
	if !c.enabled() {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		logger.Warn("cache write failed", "key", key, "error", err)
	}
}

func (c *RedisCache) GetSiteBalance(ctx context.Context, siteID string) (*domain.SiteBalance, bool) {
	var b domain.SiteBalance
	if !c.getJSON(ctx, SiteBalanceKey(siteID), &b) {
		return nil, false
	}
	return &b, true
}

func (c *RedisCache) SetSiteBalance(ctx context.Context, b *domain.SiteBalance) {
	c.setJSON(ctx, SiteBalanceKey(b.SiteID), b)
}

func (c *RedisCache) GetStockList(ctx context.Context) ([]domain.StockEntry, bool) {
	var entries []domain.StockEntry
	if !c.getJSON(ctx, StockListKey, &entries) {
		return nil, false
	}
	return entries, true
}

func (c *RedisCache) SetStockList(ctx context.Context, entries []domain.StockEntry) {
	c.setJSON(ctx, StockListKey, entries)
}

// invalidationContext detaches from the caller's cancellation: the write
// has already committed, so the stale key must go even if the request ended.
func invalidationContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), invalidateTimeout)
}

// InvalidateSites removes the cached balances of the given sites.
func (c *RedisCache) InvalidateSites(ctx context.Context, siteIDs ...string) {
	if !c.enabled() || len(siteIDs) == 0 {
		return
	}
	keys := make([]string, len(siteIDs))
	for i, id := range siteIDs {
		keys[i] = SiteBalanceKey(id)
	}
	ctx, cancel := invalidationContext(ctx)
	defer cancel()
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		logger.Warn("cache invalidation failed", "keys", keys, "error", err)
	}
}

// InvalidateStock removes the cached stock list.
func (c *RedisCache) InvalidateStock(ctx context.Context) {
	if !c.enabled() {
		return
	}
	ctx, cancel := invalidationContext(ctx)
	defer cancel()
	if err := c.client.Del(ctx, StockListKey).Err(); err != nil {
		logger.Warn("cache invalidation failed", "key", StockListKey, "error", err)
	}
}
