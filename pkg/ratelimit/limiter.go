// Package ratelimit provides Redis-backed rate limiting for the intake API.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds rate limiter configuration.
type Config struct {
	RequestsPerSecond int // default: 10
	BurstSize         int // default: 20
}

// DefaultConfig returns default configuration.
func DefaultConfig() *Config {
	return &Config{
		RequestsPerSecond: 10,
		BurstSize:         20,
	}
}

// SlidingWindowLimiter implements sliding window rate limiting using Redis.
// Without Redis, or on Redis errors, requests are allowed through.
type SlidingWindowLimiter struct {
	redis     *redis.Client
	rate      int
	window    time.Duration
	burstSize int
}

// NewSlidingWindowLimiter creates a new sliding window rate limiter.
func NewSlidingWindowLimiter(redisClient *redis.Client, cfg *Config) *SlidingWindowLimiter {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &SlidingWindowLimiter{
		redis:     redisClient,
		rate:      cfg.RequestsPerSecond,
		window:    time.Second,
		burstSize: cfg.BurstSize,
	}
}

// slidingWindowScript removes expired entries, counts the window, and either
// admits the request or returns the negative wait time in milliseconds.
var slidingWindowScript = redis.NewScript(`
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local window_start = tonumber(ARGV[2])
	local max_requests = tonumber(ARGV[3])
	local window_ms = tonumber(ARGV[4])

	redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)

	local count = redis.call('ZCARD', key)

	if count < max_requests then
		redis.call('ZADD', key, now, now .. '-' .. math.random())
		redis.call('PEXPIRE', key, window_ms * 2)
		return 1
	else
		local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
		if #oldest > 0 then
			return -(oldest[2] + window_ms - now)
		end
		return 0
	end
`)

// Allow checks if a request under key is admitted and returns the suggested
// wait duration when it is not.
func (l *SlidingWindowLimiter) Allow(ctx context.Context, key string) (bool, time.Duration) {
	if l.redis == nil {
		return true, 0
	}

	now := time.Now()
	windowStart := now.Add(-l.window)
	redisKey := fmt.Sprintf("ratelimit:%s", key)

	result, err := slidingWindowScript.Run(ctx, l.redis, []string{redisKey},
		now.UnixMilli(),
		windowStart.UnixMilli(),
		l.rate+l.burstSize,
		l.window.Milliseconds(),
	).Int64()
	if err != nil {
		// Fail open on Redis errors
		return true, 0
	}

	if result == 1 {
		return true, 0
	}
	if result < 0 {
		return false, time.Duration(-result) * time.Millisecond
	}
	return false, l.window
}
