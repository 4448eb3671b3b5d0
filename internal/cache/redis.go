package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"

	"github.com/halleyx/storefront-api/internal/domain/cart"
	"github.com/halleyx/storefront-api/internal/domain/product"
)

const (
	baseTTL   = 15 * time.Minute
	jitterTTL = 5 * time.Minute

	// catalogVersionKey namespaces every summary key. Bumping it turns all
	// cached summaries into misses at once; the superseded keys age out
	// through their TTL.
	catalogVersionKey = "catalog:version"
)

var (
	_ cart.SummaryCache        = (*RedisSummaryCache)(nil)
	_ product.CacheInvalidator = (*RedisSummaryCache)(nil)
)

// RedisSummaryCache caches cart summaries in Redis, keyed by customer ID and
// the current catalog version.
type RedisSummaryCache struct {
	client *redis.Client
}

// NewRedisSummaryCache creates a cache backed by the given Redis client.
func NewRedisSummaryCache(client *redis.Client) *RedisSummaryCache {
	return &RedisSummaryCache{client: client}
}

// Get returns the cached summary for a customer, or ErrMiss.
func (c *RedisSummaryCache) Get(ctx context.Context, customerID string) (*cart.Summary, error) {
	key, err := c.summaryKey(ctx, customerID)
	if err != nil {
		return nil, err
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var s cart.Summary
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshal cached summary: %w", err)
	}
	return &s, nil
}

// Set stores a summary with a jittered TTL so a burst of carts written
// together does not expire together.
func (c *RedisSummaryCache) Set(ctx context.Context, customerID string, s *cart.Summary) error {
	key, err := c.summaryKey(ctx, customerID)
	if err != nil {
		return err
	}

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}

	ttl := baseTTL + rand.N(jitterTTL)
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Invalidate drops the cached summary for a customer.
func (c *RedisSummaryCache) Invalidate(ctx context.Context, customerID string) error {
	key, err := c.summaryKey(ctx, customerID)
	if err != nil {
		return err
	}
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// InvalidateCatalog bumps the catalog version, orphaning every cached summary
// so the next read recomputes against current product data.
func (c *RedisSummaryCache) InvalidateCatalog(ctx context.Context) error {
	if err := c.client.Incr(ctx, catalogVersionKey).Err(); err != nil {
		return fmt.Errorf("redis incr catalog version: %w", err)
	}
	return nil
}

func (c *RedisSummaryCache) summaryKey(ctx context.Context, customerID string) (string, error) {
	ver, err := c.client.Get(ctx, catalogVersionKey).Result()
	if errors.Is(err, redis.Nil) {
		ver = "0"
	} else if err != nil {
		return "", fmt.Errorf("redis get catalog version: %w", err)
	}
	return "cart:summary:v" + ver + ":" + customerID, nil
}
