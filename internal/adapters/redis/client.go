package redis

import (
	"context"

	"github.com/redis/go-redis/v9"

	"leverguard/internal/adapters/config"
	"leverguard/pkg/errors"
)

// ErrNil reports a missing key
var ErrNil = redis.Nil

// Client wraps the Redis client used for the price cache and alert pub/sub
type Client struct {
	rdb *redis.Client
}

// NewClient connects and verifies the connection
func NewClient(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrapf(err, "redis ping %s", cfg.Addr())
	}

	return &Client{rdb: rdb}, nil
}

// Wrap adopts an existing client
func Wrap(rdb *redis.Client) *Client {
	return &Client{rdb: rdb}
}

// Client returns the underlying Redis client
func (c *Client) Client() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Health checks Redis connectivity
func (c *Client) Health(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// GetString returns the raw value of key. Missing keys return ErrNil.
func (c *Client) GetString(ctx context.Context, key string) (string, error) {
	return c.rdb.Get(ctx, key).Result()
}

// Publish sends payload to a pub/sub channel and returns the receiver count
func (c *Client) Publish(ctx context.Context, channel string, payload []byte) (int64, error) {
	return c.rdb.Publish(ctx, channel, payload).Result()
}
