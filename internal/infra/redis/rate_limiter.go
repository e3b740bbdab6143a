package redis

import (
	"context"
	"fmt"
	"time"
)

// RateLimiter is a fixed-window counter over Redis INCR/EXPIRE.
type RateLimiter struct {
	client RedisClient
}

func NewRateLimiter(client RedisClient) *RateLimiter {
	return &RateLimiter{client: client}
}

// Allow increments the window counter for key and reports whether the caller
// is still under limit. The first hit in a window sets the TTL.
func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	count, err := r.client.Incr(ctx, key)
	if err != nil {
		return false, err
	}

	if count == 1 {
		if err := r.client.Expire(ctx, key, window); err != nil {
			return false, err
		}
	}

	return count <= int64(limit), nil
}

// ClientRouteKey namespaces the counter per caller IP and route group.
func ClientRouteKey(ip, route string) string {
	return fmt.Sprintf("rate_limit:%s:%s", ip, route)
}
