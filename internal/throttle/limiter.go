package throttle

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "handover:attempts:"

// AttemptLimiter counts failed handover codes per order in Redis. Once an
// order reaches max failures inside window it stays locked until the key
// expires or Reset is called after a successful handover.
type AttemptLimiter struct {
	client *redis.Client
	max    int64
	window time.Duration
}

func NewAttemptLimiter(client *redis.Client, max int, window time.Duration) *AttemptLimiter {
	return &AttemptLimiter{client: client, max: int64(max), window: window}
}

func attemptKey(orderNumber string) string {
	return keyPrefix + orderNumber
}

func (l *AttemptLimiter) Locked(ctx context.Context, orderNumber string) (bool, error) {
	raw, err := l.client.Get(ctx, attemptKey(orderNumber)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read attempt counter: %w", err)
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return false, fmt.Errorf("parse attempt counter: %w", err)
	}
	return n >= l.max, nil
}

// recordFailure bumps the counter and starts the window in one step. A key
// found without a TTL gets one too, so a counter can never lock an order
// forever.
var recordFailure = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if redis.call("PTTL", KEYS[1]) < 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

// RecordFailure increments the counter. The window starts at the first
// failure and is not extended by later ones.
func (l *AttemptLimiter) RecordFailure(ctx context.Context, orderNumber string) (int64, error) {
	n, err := recordFailure.Run(ctx, l.client, []string{attemptKey(orderNumber)}, l.window.Milliseconds()).Int64()
	if err != nil {
		return 0, fmt.Errorf("record attempt: %w", err)
	}
	return n, nil
}

func (l *AttemptLimiter) Reset(ctx context.Context, orderNumber string) error {
	if err := l.client.Del(ctx, attemptKey(orderNumber)).Err(); err != nil {
		return fmt.Errorf("reset attempt counter: %w", err)
	}
	return nil
}
