package signal

import (
	"context"
	"sync"
	"time"
)

// MessageLimiter admits or rejects one inbound message for key.
type MessageLimiter interface {
	Allow(ctx context.Context, key string) bool
	Forget(key string)
}

// RoomRateLimiter is an in-process sliding window limiter.
// A nil limiter allows everything.
type RoomRateLimiter struct {
	mu       sync.Mutex
	history  map[string][]time.Time
	limit    int
	interval time.Duration
	now      func() time.Time
}

func NewRoomRateLimiter(limit int, interval time.Duration) *RoomRateLimiter {
	return &RoomRateLimiter{
		history:  make(map[string][]time.Time),
		limit:    limit,
		interval: interval,
		now:      time.Now,
	}
}

func (rl *RoomRateLimiter) Allow(_ context.Context, key string) bool {
	if rl == nil || rl.limit <= 0 {
		return true
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	windowStart := now.Add(-rl.interval)

	attempts := rl.history[key]
	fresh := attempts[:0]
	for _, t := range attempts {
		if t.After(windowStart) {
			fresh = append(fresh, t)
		}
	}
	if len(fresh) >= rl.limit {
		rl.history[key] = fresh
		return false
	}
	rl.history[key] = append(fresh, now)
	return true
}

// Forget drops the window of a closed connection.
func (rl *RoomRateLimiter) Forget(key string) {
	if rl == nil {
		return
	}
	rl.mu.Lock()
	delete(rl.history, key)
	rl.mu.Unlock()
}
