package snapshotcache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	redisstore "github.com/eko/gocache/store/redis/v4"
	"github.com/redis/go-redis/v9"
	"github.com/travigo/railcommute/pkg/ctdf"
)

const DefaultExpiration = 2 * time.Hour

// RedisStore keeps the snapshot as JSON in redis so it survives restarts and can be shared between instances
type RedisStore struct {
	Cache *cache.Cache[string]
	Key   string
}

// NewRedisStore keeps snapshots for expiration, DefaultExpiration when it is not positive
func NewRedisStore(client *redis.Client, key string, expiration time.Duration) *RedisStore {
	if expiration <= 0 {
		expiration = DefaultExpiration
	}

	redisStore := redisstore.NewRedis(client, store.WithExpiration(expiration))

	return &RedisStore{
		Cache: cache.New[string](redisStore),
		Key:   key,
	}
}

func (r *RedisStore) Put(ctx context.Context, snapshot *ctdf.Snapshot) error {
	snapshotJSON, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}

	return r.Cache.Set(ctx, r.Key, string(snapshotJSON))
}

func (r *RedisStore) Get(ctx context.Context) (*ctdf.Snapshot, error) {
	snapshotJSON, err := r.Cache.Get(ctx, r.Key)

	var notFound *store.NotFound
	if errors.As(err, &notFound) || errors.Is(err, store.NotFound{}) {
		return nil, ErrNoSnapshot
	} else if err != nil {
		return nil, err
	}

	var snapshot *ctdf.Snapshot
	if err := json.Unmarshal([]byte(snapshotJSON), &snapshot); err != nil {
		return nil, err
	}
	if snapshot == nil {
		return nil, ErrNoSnapshot
	}

	// JSON decoding gives next_train its own copy, point it back into the service list
	return Copy(snapshot)
}
