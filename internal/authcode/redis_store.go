package authcode

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "extension-auth-code:"

// redisCodeEntry is the JSON document stored per code. ExpiresAt is kept as
// unix seconds so the consume script can compare it against Redis TIME.
type redisCodeEntry struct {
	UserID    string `json:"user_id"`
	ExpiresAt int64  `json:"expires_at"`
	Used      bool   `json:"used"`
	CreatedAt int64  `json:"created_at"`
}

// consumeScript performs the whole check-and-set server-side, so concurrent
// exchanges against a shared Redis still have exactly one winner.
// Returns {0,""} not found, {-1,""} used, {-2,""} expired, {1,user_id} ok.
var consumeScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if not val then return {0, ""} end
local obj = cjson.decode(val)
if obj.used then return {-1, ""} end
local now = tonumber(redis.call("TIME")[1])
if obj.expires_at and now > obj.expires_at then
  redis.call("DEL", KEYS[1])
  return {-2, ""}
end
obj.used = true
local ttl = redis.call("PTTL", KEYS[1])
if ttl and ttl > 0 then
  redis.call("SET", KEYS[1], cjson.encode(obj), "PX", ttl)
else
  redis.call("SET", KEYS[1], cjson.encode(obj))
end
return {1, obj.user_id}
`)

// RedisStore keeps authorization codes in Redis so several instances can
// resolve each other's codes. The key TTL runs past the logical expiry so a
// just-expired or consumed code is still distinguishable from an unknown one.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisStore creates a Redis-backed code store.
func NewRedisStore(client *redis.Client, keyPrefix string) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &RedisStore{client: client, keyPrefix: keyPrefix}
}

func (s *RedisStore) key(code string) string {
	return s.keyPrefix + code
}

// Put implements Store.Put.
func (s *RedisStore) Put(ctx context.Context, code, userID string, ttl time.Duration) error {
	now := time.Now()
	raw, err := json.Marshal(redisCodeEntry{
		UserID:    userID,
		ExpiresAt: now.Add(ttl).Unix(),
		Used:      false,
		CreatedAt: now.Unix(),
	})
	if err != nil {
		return err
	}
	// Tombstone grace: the key outlives the logical expiry by one TTL.
	return s.client.Set(ctx, s.key(code), raw, 2*ttl).Err()
}

// TryConsume implements Store.TryConsume.
func (s *RedisStore) TryConsume(ctx context.Context, code string) (string, error) {
	res, err := consumeScript.Run(ctx, s.client, []string{s.key(code)}).Slice()
	if err != nil {
		return "", fmt.Errorf("redis consume failed: %w", err)
	}
	if len(res) != 2 {
		return "", fmt.Errorf("redis consume returned unexpected reply: %v", res)
	}
	status, _ := res[0].(int64)
	switch status {
	case 0:
		return "", ErrCodeNotFound
	case -1:
		return "", ErrCodeUsed
	case -2:
		return "", ErrCodeExpired
	}
	userID, _ := res[1].(string)
	return userID, nil
}

// SweepExpired implements Store.SweepExpired. Redis evicts keys by TTL on
// its own; nothing to do here.
func (s *RedisStore) SweepExpired(context.Context) error {
	return nil
}
