package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKey = "aiservice:ratelimit"

// RedisLimiter shares one sliding window across replicas via a Redis sorted
// set of request timestamps.
type RedisLimiter struct {
	client      *redis.Client
	maxRequests int
	window      time.Duration
}

func NewRedisLimiter(redisURL string, maxRequests int, window time.Duration) (*RedisLimiter, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	if maxRequests <= 0 {
		maxRequests = DefaultMaxRequests
	}
	if window <= 0 {
		window = DefaultWindow
	}

	return &RedisLimiter{client: client, maxRequests: maxRequests, window: window}, nil
}

func (r *RedisLimiter) Allow(ctx context.Context) (bool, error) {
	now := time.Now()
	cutoff := now.Add(-r.window)

	pipe := r.client.Pipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "0", strconv.FormatInt(cutoff.UnixNano(), 10))
	countCmd := pipe.ZCard(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}

	if int(countCmd.Val()) >= r.maxRequests {
		return false, nil
	}

	add := r.client.Pipeline()
	add.ZAdd(ctx, redisKey, redis.Z{Score: float64(now.UnixNano()), Member: now.UnixNano()})
	add.Expire(ctx, redisKey, r.window)
	if _, err := add.Exec(ctx); err != nil {
		return false, err
	}

	return true, nil
}

func (r *RedisLimiter) ResetAfter(ctx context.Context) (time.Duration, error) {
	vals, err := r.client.ZRangeWithScores(ctx, redisKey, 0, 0).Result()
	if err != nil {
		return 0, err
	}
	if len(vals) == 0 {
		return 0, nil
	}

	oldest := time.Unix(0, int64(vals[0].Score))
	remaining := time.Until(oldest.Add(r.window))
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

func (r *RedisLimiter) Close() error {
	return r.client.Close()
}
