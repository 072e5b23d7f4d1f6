package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vietddude/dlqdiag/internal/core/domain"
)

const defaultTruthTTL = 5 * time.Minute

// TruthCache stores ground-truth snapshots so repeated runs do not hammer
// ClickHouse and Kafka Connect.
type TruthCache struct {
	rdb   *redis.Client
	scope string
	ttl   time.Duration
}

// NewTruthCache creates a cache namespaced by scope, usually
// "<database>:<connector>".
func NewTruthCache(client *Client, scope string, ttl time.Duration) *TruthCache {
	if ttl <= 0 {
		ttl = defaultTruthTTL
	}
	return &TruthCache{
		rdb:   client.rdb,
		scope: scope,
		ttl:   ttl,
	}
}

func (c *TruthCache) key() string {
	return fmt.Sprintf("dlqdiag:truth:%s", c.scope)
}

// Get returns the cached snapshot. found is false on a miss.
func (c *TruthCache) Get(ctx context.Context) (truth *domain.GroundTruth, found bool, err error) {
	data, err := c.rdb.Get(ctx, c.key()).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get failed: %w", err)
	}

	var gt domain.GroundTruth
	if err := json.Unmarshal(data, &gt); err != nil {
		// Corrupt entry, drop it
		c.rdb.Del(ctx, c.key())
		return nil, false, nil
	}
	return &gt, true, nil
}

// Set stores truth with the cache TTL.
func (c *TruthCache) Set(ctx context.Context, truth *domain.GroundTruth) error {
	data, err := json.Marshal(truth)
	if err != nil {
		return fmt.Errorf("failed to marshal ground truth: %w", err)
	}
	if err := c.rdb.Set(ctx, c.key(), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set ground truth: %w", err)
	}
	return nil
}

// Invalidate removes the cached snapshot.
func (c *TruthCache) Invalidate(ctx context.Context) error {
	return c.rdb.Del(ctx, c.key()).Err()
}
