package throttle

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "infocms:throttle:"

// RedisStore is a fiber.Storage backed by redis, for deployments running more
// than one server instance
type RedisStore struct {
	client  *redis.Client
	prefix  string
	timeout time.Duration
}

// NewRedisStore connects to redis and verifies the connection
func NewRedisStore(opts *redis.Options, prefix string) (*RedisStore, error) {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	s := &RedisStore{
		client:  redis.NewClient(opts),
		prefix:  prefix,
		timeout: 2 * time.Second,
	}
	ctx, cancel := s.ctx()
	defer cancel()
	if err := s.client.Ping(ctx).Err(); err != nil {
		_ = s.client.Close()
		return nil, errors.Wrap(err, "could not reach redis")
	}
	return s, nil
}

func (s *RedisStore) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}

// Get returns the value for key or nil if it does not exist
func (s *RedisStore) Get(key string) ([]byte, error) {
	if key == "" {
		return nil, nil
	}
	ctx, cancel := s.ctx()
	defer cancel()
	val, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return val, errors.WithStack(err)
}

// Set stores val under key; exp == 0 means no expiry
func (s *RedisStore) Set(key string, val []byte, exp time.Duration) error {
	if key == "" || len(val) == 0 {
		return nil
	}
	ctx, cancel := s.ctx()
	defer cancel()
	return errors.WithStack(s.client.Set(ctx, s.prefix+key, val, exp).Err())
}

// Delete removes key
func (s *RedisStore) Delete(key string) error {
	if key == "" {
		return nil
	}
	ctx, cancel := s.ctx()
	defer cancel()
	return errors.WithStack(s.client.Del(ctx, s.prefix+key).Err())
}

// Reset removes all keys under the store prefix
func (s *RedisStore) Reset() error {
	ctx := context.Background()
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 100 {
			if err := s.client.Del(ctx, batch...).Err(); err != nil {
				return errors.WithStack(err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return errors.WithStack(err)
	}
	if len(batch) > 0 {
		return errors.WithStack(s.client.Del(ctx, batch...).Err())
	}
	return nil
}

// Close closes the client
func (s *RedisStore) Close() error {
	return errors.WithStack(s.client.Close())
}
