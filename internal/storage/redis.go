package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const clientKeyPrefix = "schooldesk:client:"

// RedisProvider keeps each client's entries in one Redis hash.
type RedisProvider struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisProvider constructs a RedisProvider. Every write refreshes the hash
// expiry to ttl; a zero ttl keeps hashes forever.
func NewRedisProvider(client *redis.Client, ttl time.Duration) *RedisProvider {
	return &RedisProvider{client: client, ttl: ttl}
}

// Client returns the store for client id.
func (p *RedisProvider) Client(id string) Store {
	return &redisStore{provider: p, key: clientKeyPrefix + id}
}

// EachClient scans the keyspace for client hashes.
func (p *RedisProvider) EachClient(ctx context.Context, fn func(id string) error) error {
	iter := p.client.Scan(ctx, 0, clientKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		id := strings.TrimPrefix(iter.Val(), clientKeyPrefix)
		if id == "" {
			continue
		}
		if err := fn(id); err != nil {
			return err
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("storage/redis: scan: %w", err)
	}
	return nil
}

type redisStore struct {
	provider *RedisProvider
	key      string
}

func (s *redisStore) Get(ctx context.Context, key string) (Entry, error) {
	value, err := s.provider.client.HGet(ctx, s.key, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return AbsentEntry(), nil
		}
		return Entry{}, fmt.Errorf("storage/redis: get %s: %w", key, err)
	}
	return fromWire(value, true), nil
}

func (s *redisStore) GetMany(ctx context.Context, keys ...string) (map[string]Entry, error) {
	out := make(map[string]Entry, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	values, err := s.provider.client.HMGet(ctx, s.key, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("storage/redis: get many: %w", err)
	}
	for i, key := range keys {
		raw, ok := values[i].(string)
		out[key] = fromWire(raw, ok)
	}
	return out, nil
}

func (s *redisStore) Put(ctx context.Context, key string, entry Entry) error {
	return s.PutMany(ctx, map[string]Entry{key: entry})
}

func (s *redisStore) PutMany(ctx context.Context, entries map[string]Entry) error {
	if len(entries) == 0 {
		return nil
	}
	set := make(map[string]any, len(entries))
	var del []string
	for key, entry := range entries {
		if value, ok := entry.wire(); ok {
			set[key] = value
		} else {
			del = append(del, key)
		}
	}
	_, err := s.provider.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(set) > 0 {
			pipe.HSet(ctx, s.key, set)
		}
		if len(del) > 0 {
			pipe.HDel(ctx, s.key, del...)
		}
		if s.provider.ttl > 0 {
			pipe.Expire(ctx, s.key, s.provider.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("storage/redis: put: %w", err)
	}
	return nil
}

func (s *redisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.provider.client.HDel(ctx, s.key, keys...).Err(); err != nil {
		return fmt.Errorf("storage/redis: delete: %w", err)
	}
	return nil
}

func (s *redisStore) Keys(ctx context.Context) ([]string, error) {
	keys, err := s.provider.client.HKeys(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("storage/redis: keys: %w", err)
	}
	return keys, nil
}

var _ Provider = (*RedisProvider)(nil)
