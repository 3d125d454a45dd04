package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// incrWithTTL increments a counter and sets its expiry only when the key has
// none, in one round trip.
var incrWithTTL = redis.NewScript(`
local n = redis.call('INCRBY', KEYS[1], ARGV[1])
if tonumber(ARGV[2]) > 0 and redis.call('PTTL', KEYS[1]) < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
return n
`)

// delIfEqual deletes KEYS[1] only while it still holds ARGV[1].
var delIfEqual = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0
`)

// IncrByWithTTL adds delta to the counter at key. The TTL is applied once, when
// the key first appears.
func (c *Client) IncrByWithTTL(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error) {
	if c.store == nil {
		return 0, errNotInitialized
	}
	return incrWithTTL.Run(ctx, c.store, []string{key}, delta, ttl.Milliseconds()).Int64()
}

// DelIfEqual removes key when its value matches and reports whether it did.
func (c *Client) DelIfEqual(ctx context.Context, key, value string) (bool, error) {
	if c.store == nil {
		return false, errNotInitialized
	}
	n, err := delIfEqual.Run(ctx, c.store, []string{key}, value).Int64()
	return n == 1, err
}
