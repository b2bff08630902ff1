package shared

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// LoginThrottle counts failed login attempts per username+IP in Redis and
// blocks further attempts once the limit is reached within the window. The
// block response is identical for existing and non-existing usernames.
type LoginThrottle struct {
	client *redis.Client
	limit  int
	window time.Duration
}

// NewLoginThrottle constructs a throttle. A nil client disables throttling.
func NewLoginThrottle(client *redis.Client, limit int, window time.Duration) *LoginThrottle {
	return &LoginThrottle{client: client, limit: limit, window: window}
}

// Allow reports whether another attempt is permitted right now.
func (t *LoginThrottle) Allow(ctx context.Context, username, ip string) (bool, error) {
	if t == nil || t.client == nil || t.limit <= 0 {
		return true, nil
	}
	count, err := t.client.Get(ctx, t.key(username, ip)).Int()
	if err != nil {
		if err == redis.Nil {
			return true, nil
		}
		// Redis being down must not lock everyone out.
		return true, err
	}
	return count < t.limit, nil
}

// RecordFailure bumps the failure counter and refreshes the window.
func (t *LoginThrottle) RecordFailure(ctx context.Context, username, ip string) error {
	if t == nil || t.client == nil || t.limit <= 0 {
		return nil
	}
	key := t.key(username, ip)
	pipe := t.client.TxPipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, t.window)
	_, err := pipe.Exec(ctx)
	return err
}

// Reset clears the counter after a successful login.
func (t *LoginThrottle) Reset(ctx context.Context, username, ip string) error {
	if t == nil || t.client == nil || t.limit <= 0 {
		return nil
	}
	return t.client.Del(ctx, t.key(username, ip)).Err()
}

func (t *LoginThrottle) key(username, ip string) string {
	host := ip
	if idx := strings.LastIndexByte(ip, ':'); idx > 0 {
		host = ip[:idx]
	}
	return "login_attempts:" + FoldName(username) + ":" + host
}
