package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/quangtm/stashsync/internal/cache"
	"github.com/quangtm/stashsync/internal/core/domain"
)

// Config holds Redis connection configuration.
type Config struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
}

// Store implements cache.Store on Redis. Used by daemon deployments where
// several sync workers share one region cache.
type Store struct {
	rdb *redis.Client
}

// NewStore connects to Redis and verifies the connection.
func NewStore(cfg Config) (*Store, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Store{rdb: rdb}, nil
}

// Close closes the Redis connection.
func (s *Store) Close() error {
	return s.rdb.Close()
}

// Ping checks the connection, for health reporting.
func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func regionKey(key domain.RegionKey) string {
	return fmt.Sprintf("stash:region:%s", key)
}

const invalidatedKey = "stash:invalidated"

func (s *Store) Region(ctx context.Context, key domain.RegionKey) (cache.Region, bool, error) {
	data, err := s.rdb.Get(ctx, regionKey(key)).Bytes()
	if err == redis.Nil {
		return cache.Region{}, false, nil
	}
	if err != nil {
		return cache.Region{}, false, fmt.Errorf("get region: %w", err)
	}

	var r cache.Region
	if err := json.Unmarshal(data, &r); err != nil {
		return cache.Region{}, false, fmt.Errorf("decode region: %w", err)
	}
	return r, true, nil
}

func (s *Store) PutRegion(ctx context.Context, r cache.Region) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode region: %w", err)
	}
	if err := s.rdb.Set(ctx, regionKey(r.Key), data, 0).Err(); err != nil {
		return fmt.Errorf("put region: %w", err)
	}
	return nil
}

func (s *Store) DeleteRegion(ctx context.Context, key domain.RegionKey) error {
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, regionKey(key))
	pipe.SRem(ctx, invalidatedKey, string(key))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete region: %w", err)
	}
	return nil
}

func (s *Store) Invalidate(ctx context.Context, key domain.RegionKey) error {
	if err := s.rdb.SAdd(ctx, invalidatedKey, string(key)).Err(); err != nil {
		return fmt.Errorf("invalidate region: %w", err)
	}
	return nil
}

func (s *Store) TakeInvalidated(ctx context.Context) ([]domain.RegionKey, error) {
	members, err := s.rdb.SPopN(ctx, invalidatedKey, 1024).Result()
	if err != nil {
		return nil, fmt.Errorf("take invalidated: %w", err)
	}
	if len(members) == 0 {
		return nil, nil
	}
	keys := make([]domain.RegionKey, len(members))
	for i, m := range members {
		keys[i] = domain.RegionKey(m)
	}
	return keys, nil
}
