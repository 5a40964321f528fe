package adns

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBackendOptions configures a Redis-backed CacheBackend, used to share
// cached answers across resolver processes.
type RedisBackendOptions struct {
	RedisOptions redis.Options
	KeyPrefix    string

	// RequestTimeout bounds each individual Redis round-trip, default
	// 100ms so a slow or unreachable Redis never stalls a lookup for
	// longer than the query timeout itself would.
	RequestTimeout time.Duration
}

type redisBackend struct {
	client *redis.Client
	opt    RedisBackendOptions
}

var _ CacheBackend = (*redisBackend)(nil)

// NewRedisBackend returns a CacheBackend backed by a Redis server, directly
// grounded on the teacher's cache-redis.go.
func NewRedisBackend(opt RedisBackendOptions) *redisBackend {
	if opt.RequestTimeout <= 0 {
		opt.RequestTimeout = 100 * time.Millisecond
	}
	return &redisBackend{
		client: redis.NewClient(&opt.RedisOptions),
		opt:    opt,
	}
}

func (b *redisBackend) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), b.opt.RequestTimeout)
}

func (b *redisBackend) Get(name string, rtype RecordType) ([]Record, bool) {
	ctx, cancel := b.ctx()
	defer cancel()

	raw, err := b.client.Get(ctx, b.key(name, rtype)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			Log.WithError(err).Error("failed to read from redis")
		}
		return nil, false
	}

	var records []Record
	if err := json.Unmarshal(raw, &records); err != nil {
		Log.WithError(err).Error("failed to decode cached record from redis")
		return nil, false
	}
	return records, true
}

func (b *redisBackend) Put(name string, rtype RecordType, records []Record, ttl time.Duration) {
	value, err := json.Marshal(records)
	if err != nil {
		Log.WithError(err).Error("failed to encode cache record")
		return
	}

	ctx, cancel := b.ctx()
	defer cancel()
	if err := b.client.Set(ctx, b.key(name, rtype), value, ttl).Err(); err != nil {
		Log.WithError(err).Error("failed to write to redis")
	}
}

func (b *redisBackend) Remove(name string, rtype RecordType) {
	ctx, cancel := b.ctx()
	defer cancel()
	if err := b.client.Del(ctx, b.key(name, rtype)).Err(); err != nil {
		Log.WithError(err).Error("failed to delete key in redis")
	}
}

func (b *redisBackend) Size() int {
	ctx, cancel := b.ctx()
	defer cancel()
	size, err := b.client.DBSize(ctx).Result()
	if err != nil {
		Log.WithError(err).Error("failed to run dbsize command on redis")
	}
	return int(size)
}

func (b *redisBackend) Close() error {
	return b.client.Close()
}

func (b *redisBackend) key(name string, rtype RecordType) string {
	var key strings.Builder
	key.WriteString(b.opt.KeyPrefix)
	key.WriteString(strings.ToLower(name))
	key.WriteByte(':')
	key.WriteString(rtype.String())
	return key.String()
}
