package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"haulgate/internal/credential/models"
)

// DefaultRedisKey holds the credential when no key is configured.
const DefaultRedisKey = "haulgate:credential"

// RedisClient is the subset of go-redis used by the store.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd
	Ping(ctx context.Context) *redis.StatusCmd
}

// releaseLock deletes the lock only while it still carries our token.
const releaseLock = `if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

// Redis shares the credential between workers through a single key. The key
// carries no TTL: expiry is judged by the manager at day granularity and a
// key evicted early would only cost one extra refresh anyway. Refreshes are
// serialized across workers through a second key, "<key>:lock".
type Redis struct {
	client RedisClient
	key    string
}

func NewRedis(client RedisClient, key string) *Redis {
	if key == "" {
		key = DefaultRedisKey
	}
	return &Redis{client: client, key: key}
}

// Load reads the stored credential with a single GET.
func (r *Redis) Load(ctx context.Context) (*models.AccessCredential, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load credential: %w", err)
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return doc.credential()
}

// Save overwrites the stored credential with a single SET.
func (r *Redis) Save(ctx context.Context, cred models.AccessCredential) error {
	if err := validate(cred); err != nil {
		return err
	}
	payload, err := json.Marshal(toDocument(cred))
	if err != nil {
		return fmt.Errorf("encode credential: %w", err)
	}
	if err := r.client.Set(ctx, r.key, payload, 0).Err(); err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	return nil
}

func (r *Redis) Health(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// TryLock sets "<key>:lock" to a random token with SET NX PX. The lock
// expires on its own if the holder dies mid-refresh.
func (r *Redis) TryLock(ctx context.Context, ttl time.Duration) (func(context.Context) error, bool, error) {
	lockKey := r.key + ":lock"
	token := uuid.NewString()
	ok, err := r.client.SetNX(ctx, lockKey, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire refresh lock: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	release := func(ctx context.Context) error {
		if err := r.client.Eval(ctx, releaseLock, []string{lockKey}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("release refresh lock: %w", err)
		}
		return nil
	}
	return release, true, nil
}
