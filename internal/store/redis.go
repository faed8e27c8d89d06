package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix = "hotseat:save:"
	redisIndexKey  = "hotseat:saves"
)

// RedisStore keeps each save as a JSON string plus a set indexing the names.
// A zero ttl keeps saves forever.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisStore connects to a redis:// or rediss:// URL.
func NewRedisStore(ctx context.Context, redisURL string, ttl time.Duration) (*RedisStore, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("redis url is required")
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisStoreFromClient(rdb, ttl), nil
}

func NewRedisStoreFromClient(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (s *RedisStore) key(name string) string { return redisKeyPrefix + name }

func (s *RedisStore) Save(ctx context.Context, rec Record) error {
	name, err := NormalizeName(rec.Name)
	if err != nil {
		return err
	}
	rec.Name = name
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, s.key(name), raw, s.ttl)
	pipe.SAdd(ctx, redisIndexKey, name)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) Load(ctx context.Context, name string) (*Record, error) {
	name, err := NormalizeName(name)
	if err != nil {
		return nil, err
	}
	raw, err := s.rdb.Get(ctx, s.key(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode save %q: %w", name, err)
	}
	return &rec, nil
}

// List drops index entries whose save has expired.
func (s *RedisStore) List(ctx context.Context) ([]Record, error) {
	names, err := s.rdb.SMembers(ctx, redisIndexKey).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(names))
	for _, name := range names {
		rec, err := s.Load(ctx, name)
		if errors.Is(err, ErrNotFound) {
			_ = s.rdb.SRem(ctx, redisIndexKey, name).Err()
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *RedisStore) Delete(ctx context.Context, name string) error {
	name, err := NormalizeName(name)
	if err != nil {
		return err
	}
	n, err := s.rdb.Del(ctx, s.key(name)).Result()
	if err != nil {
		return err
	}
	if err := s.rdb.SRem(ctx, redisIndexKey, name).Err(); err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *RedisStore) DeleteAll(ctx context.Context) error {
	names, err := s.rdb.SMembers(ctx, redisIndexKey).Result()
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(names)+1)
	for _, name := range names {
		keys = append(keys, s.key(name))
	}
	keys = append(keys, redisIndexKey)
	return s.rdb.Del(ctx, keys...).Err()
}

func (s *RedisStore) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}
