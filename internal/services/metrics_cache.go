package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const cacheKeyPrefix = "storemetrics"

// MetricsCacheService caches dashboard range queries
type MetricsCacheService struct {
	redis  *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewMetricsCacheService creates a new metrics cache service. A nil client disables caching.
func NewMetricsCacheService(redisClient *redis.Client, ttl time.Duration, logger *zap.Logger) *MetricsCacheService {
	if ttl == 0 {
		ttl = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MetricsCacheService{
		redis:  redisClient,
		ttl:    ttl,
		logger: logger,
	}
}

func storeRangeKey(storeID, startDate, endDate string) string {
	return fmt.Sprintf("%s:store:%s:%s:%s", cacheKeyPrefix, storeID, startDate, endDate)
}

func aggregateKey(startDate, endDate string) string {
	return fmt.Sprintf("%s:aggregate:%s:%s", cacheKeyPrefix, startDate, endDate)
}

// Get loads a cached value into out. It reports false on a miss or any cache failure.
func (s *MetricsCacheService) Get(ctx context.Context, key string, out interface{}) bool {
	if s == nil || s.redis == nil {
		return false
	}

	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("failed to get metrics from cache", zap.Error(err), zap.String("key", key))
		}
		return false
	}

	if err := json.Unmarshal(data, out); err != nil {
		s.logger.Warn("failed to unmarshal cached metrics", zap.Error(err), zap.String("key", key))
		return false
	}

	s.logger.Debug("cache hit for metrics", zap.String("key", key))
	return true
}

// Set stores a value under key with the configured TTL.
func (s *MetricsCacheService) Set(ctx context.Context, key string, value interface{}) error {
	if s == nil || s.redis == nil {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		s.logger.Warn("failed to marshal metrics for cache", zap.Error(err))
		return err
	}

	if err := s.redis.Set(ctx, key, data, s.ttl).Err(); err != nil {
		s.logger.Warn("failed to set metrics in cache", zap.Error(err), zap.String("key", key))
		return err
	}
	return nil
}

// Invalidate removes the store's cached ranges and every cross-store aggregate.
func (s *MetricsCacheService) Invalidate(ctx context.Context, storeID string) error {
	if s == nil || s.redis == nil {
		return nil
	}

	removed := 0
	for _, pattern := range []string{
		fmt.Sprintf("%s:store:%s:*", cacheKeyPrefix, storeID),
		fmt.Sprintf("%s:aggregate:*", cacheKeyPrefix),
	} {
		var keys []string
		iter := s.redis.Scan(ctx, 0, pattern, 100).Iterator()
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
		}
		if err := iter.Err(); err != nil {
			s.logger.Warn("failed to find cache keys to invalidate", zap.Error(err))
			return err
		}
		if len(keys) == 0 {
			continue
		}
		if err := s.redis.Del(ctx, keys...).Err(); err != nil {
			s.logger.Warn("failed to invalidate metrics cache", zap.Error(err))
			return err
		}
		removed += len(keys)
	}

	s.logger.Debug("invalidated metrics cache", zap.String("store_id", storeID), zap.Int("keys_removed", removed))
	return nil
}
