// Package cache wraps the Redis client used to serve directory reads of
// derived business stats without hitting Postgres on every page load.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/trustrail/trustrail/internal/monitoring"
)

// ErrCacheMiss is returned when no cached value exists for a key
var ErrCacheMiss = errors.New("cache miss")

// statsTTL bounds staleness if an invalidation is ever lost; the projector
// rewrites the cache on every recompute anyway.
const statsTTL = 15 * time.Minute

// Redis wraps the Redis client
type Redis struct {
	Client *redis.Client
}

// New creates a new Redis cache from a connection URL
func New(redisURL string) (*Redis, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Info().Msg("Redis connection established")
	return &Redis{Client: client}, nil
}

// Close closes the Redis connection
func (r *Redis) Close() {
	if err := r.Client.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close redis connection")
	}
}

// Health checks if Redis is reachable
func (r *Redis) Health(ctx context.Context) error {
	return r.Client.Ping(ctx).Err()
}

// BusinessStats is the cached shape of a business's derived aggregate
type BusinessStats struct {
	AverageRating string `json:"average_rating"`
	ReviewCount   int    `json:"review_count"`
}

func statsKey(businessID string) string {
	return fmt.Sprintf("stats:business:%s", businessID)
}

// GetBusinessStats reads cached stats for a business
func (r *Redis) GetBusinessStats(ctx context.Context, businessID string) (*BusinessStats, error) {
	raw, err := r.Client.Get(ctx, statsKey(businessID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			monitoring.RecordCacheMiss("business_stats")
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to read stats cache: %w", err)
	}

	var stats BusinessStats
	if err := json.Unmarshal([]byte(raw), &stats); err != nil {
		return nil, fmt.Errorf("failed to decode cached stats: %w", err)
	}

	monitoring.RecordCacheHit("business_stats")
	return &stats, nil
}

// SetBusinessStats writes stats for a business to the cache
func (r *Redis) SetBusinessStats(ctx context.Context, businessID string, stats *BusinessStats) error {
	raw, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to encode stats: %w", err)
	}
	if err := r.Client.Set(ctx, statsKey(businessID), raw, statsTTL).Err(); err != nil {
		return fmt.Errorf("failed to write stats cache: %w", err)
	}
	return nil
}

// InvalidateBusinessStats drops cached stats for a business
func (r *Redis) InvalidateBusinessStats(ctx context.Context, businessID string) error {
	if err := r.Client.Del(ctx, statsKey(businessID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate stats cache: %w", err)
	}
	return nil
}
