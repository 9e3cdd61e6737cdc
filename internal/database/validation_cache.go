package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/intent/dashboard/internal/models"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultCacheTTL bounds how long a validation result is reused.
const DefaultCacheTTL = 10 * time.Minute

// ValidationCache stores /validate results in Redis under their request
// digest.
type ValidationCache struct {
	client redis.Cmdable
	ttl    time.Duration
	logger *zap.Logger
}

// NewValidationCache returns a cache backed by r. A non-positive ttl uses
// DefaultCacheTTL.
func NewValidationCache(r *Redis, ttl time.Duration, logger *zap.Logger) *ValidationCache {
	return newValidationCache(r.client, ttl, logger)
}

func newValidationCache(client redis.Cmdable, ttl time.Duration, logger *zap.Logger) *ValidationCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &ValidationCache{client: client, ttl: ttl, logger: logger}
}

// Get returns the cached results of key.
func (c *ValidationCache) Get(ctx context.Context, key string) (models.Results, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read validation cache: %w", err)
	}
	var results models.Results
	if err := json.Unmarshal(data, &results); err != nil {
		// A corrupt entry is treated as a miss and overwritten later.
		c.logger.Warn("discarding undecodable validation cache entry", zap.String("key", key), zap.Error(err))
		return nil, false, nil
	}
	return results, true, nil
}

// Set stores results under key.
func (c *ValidationCache) Set(ctx context.Context, key string, results models.Results) error {
	data, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("encode validation results: %w", err)
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("write validation cache: %w", err)
	}
	return nil
}
