package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/straightdeal/marketplace-api/internal/core/domain"
)

const throttlePrefix = "otp_rate_limit:"

// SendThrottle is a fixed-window counter per destination.
// Key format: otp_rate_limit:<channel>:<destination>
type SendThrottle struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

func NewSendThrottle(client *redis.Client, limit int, window time.Duration) *SendThrottle {
	if limit <= 0 {
		limit = 5
	}
	if window <= 0 {
		window = time.Hour
	}
	return &SendThrottle{client: client, limit: int64(limit), window: window}
}

// Allow counts one send for key. The window starts with the first send.
func (t *SendThrottle) Allow(ctx context.Context, key string) error {
	k := throttlePrefix + key
	n, err := t.client.Incr(ctx, k).Result()
	if err != nil {
		return fmt.Errorf("throttle incr: %w", err)
	}
	if n == 1 {
		if err := t.client.Expire(ctx, k, t.window).Err(); err != nil {
			return fmt.Errorf("throttle expire: %w", err)
		}
	}
	if n > t.limit {
		return domain.ErrRateLimited
	}
	return nil
}
