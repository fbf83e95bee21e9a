package checkpoint

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the key used when the config names none.
const DefaultRedisKey = "dredge:checkpoint"

// RedisStore persists the checkpoint document as a single Redis value.
// Used by deployments where the crawler host is ephemeral but a shared
// Redis survives restarts.
type RedisStore struct {
	client *goredis.Client
	key    string
}

// NewRedisStore creates a Redis-backed store from a connection URL.
// Format: redis://[:password@]host:port[/db]
func NewRedisStore(url, key string) (*RedisStore, error) {
	if url == "" {
		return nil, errors.New("checkpoint: redis store requires a URL")
	}
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: invalid redis URL: %w", err)
	}
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{client: goredis.NewClient(opts), key: key}, nil
}

// Load implements Store.
func (s *RedisStore) Load(ctx context.Context) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("checkpoint: redis get %s: %w", s.key, err)
	}
	return data, nil
}

// Save implements Store.
func (s *RedisStore) Save(ctx context.Context, data []byte) error {
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("checkpoint: redis set %s: %w", s.key, err)
	}
	return nil
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("checkpoint: redis del %s: %w", s.key, err)
	}
	return nil
}

// Close releases the underlying Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Verify RedisStore implements the store interface.
var _ Store = (*RedisStore)(nil)
