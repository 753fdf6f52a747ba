// Package ratelimit holds a Redis backed sliding window limiter, shared by
// every relay instance pointing at the same Redis.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// slidingWindow trims the window, then admits the call if it fits.
var slidingWindow = redis.NewScript(`
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local window_start = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	local window_ms = tonumber(ARGV[4])

	redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)
	local current = redis.call('ZCARD', key)
	if current >= limit then
		return 0
	end
	local counter = redis.call('INCR', key .. ':counter')
	redis.call('ZADD', key, now, now .. ':' .. counter)
	local expire_seconds = math.ceil(window_ms / 1000)
	redis.call('EXPIRE', key, expire_seconds)
	redis.call('EXPIRE', key .. ':counter', expire_seconds)
	return 1
`)

type RedisLimiter struct {
	client    *redis.Client
	keyPrefix string
	limit     int
	window    time.Duration
	timeout   time.Duration
}

// Connect parses a redis:// URL and pings the server.
func Connect(ctx context.Context, url string, limit int, window time.Duration) (*RedisLimiter, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	log.Info().Str("module", "ratelimit").Str("addr", opts.Addr).Msg("redis rate limiter ready")
	return NewRedisLimiter(client, "chatrelay:rl:", limit, window), nil
}

func NewRedisLimiter(client *redis.Client, keyPrefix string, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client:    client,
		keyPrefix: keyPrefix,
		limit:     limit,
		window:    window,
		timeout:   500 * time.Millisecond,
	}
}

// Allow fails open: when Redis cannot answer, the message goes through.
func (l *RedisLimiter) Allow(ctx context.Context, key string) bool {
	if l.limit <= 0 {
		return true
	}
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	now := time.Now()
	res, err := slidingWindow.Run(ctx, l.client, []string{l.keyPrefix + key},
		now.UnixMilli(), now.Add(-l.window).UnixMilli(), l.limit, l.window.Milliseconds()).Int64()
	if err != nil {
		log.Warn().Err(err).Str("module", "ratelimit").Str("key", key).Msg("rate limit check failed, allowing")
		return true
	}
	return res == 1
}

// Forget is a no-op, windows expire on their own.
func (l *RedisLimiter) Forget(string) {}

func (l *RedisLimiter) Close() error {
	return l.client.Close()
}
