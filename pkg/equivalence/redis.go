package equivalence

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/agentstation/attrmap/pkg/constants"
	"github.com/agentstation/attrmap/pkg/errors"
)

// RedisStore keeps the cache as one JSON document under a single key.
// Upsert is a WATCH/MULTI transaction retried on conflict, so concurrent
// writers never lose each other's entries.
type RedisStore struct {
	client *redis.Client
	key    string
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Key      string
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, constants.DefaultTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.WrapResource("connect", "redis", cfg.Addr, err)
	}

	return NewRedisStoreWithClient(client, cfg.Key), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = constants.DefaultRedisKey
	}
	return &RedisStore{client: client, key: key}
}

// Location implements Store.
func (s *RedisStore) Location() string {
	return fmt.Sprintf("redis://%s/%s", s.client.Options().Addr, s.key)
}

// Load implements Store.
func (s *RedisStore) Load(ctx context.Context) (Cache, error) {
	c, err := s.read(ctx, s.client)
	if c == nil {
		c = Cache{}
	}
	return c, err
}

// Save implements Store.
func (s *RedisStore) Save(ctx context.Context, c Cache) error {
	data, err := Encode(c)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return errors.WrapResource("save", "cache", s.key, err)
	}
	return nil
}

// Upsert implements Store.
func (s *RedisStore) Upsert(ctx context.Context, entries Cache) (Cache, error) {
	var merged Cache
	txn := func(tx *redis.Tx) error {
		current, err := s.read(ctx, tx)
		if err != nil && current == nil {
			return err
		}
		current.Merge(entries)
		data, err := Encode(current)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, s.key, data, 0)
			return nil
		})
		if err == nil {
			merged = current
		}
		return err
	}

	for i := 0; i < constants.MaxRetries; i++ {
		err := s.client.Watch(ctx, txn, s.key)
		if err == nil {
			return merged, nil
		}
		if stderrors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, errors.WrapResource("upsert", "cache", s.key, err)
	}
	return nil, errors.WrapResource("upsert", "cache", s.key, errors.ErrConflict)
}

// Clear deletes the cache key.
func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return errors.WrapResource("clear", "cache", s.key, err)
	}
	return nil
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// read loads the cache through c. A corrupt value yields an empty cache and
// the parse error.
func (s *RedisStore) read(ctx context.Context, c getter) (Cache, error) {
	data, err := c.Get(ctx, s.key).Bytes()
	if stderrors.Is(err, redis.Nil) {
		return Cache{}, nil
	}
	if err != nil {
		return nil, errors.WrapResource("load", "cache", s.key, err)
	}
	cache, err := Decode(data)
	if err != nil {
		return Cache{}, err
	}
	return cache, nil
}

// getter is satisfied by both *redis.Client and *redis.Tx.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

var _ Store = (*RedisStore)(nil)
