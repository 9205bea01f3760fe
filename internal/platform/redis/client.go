// Package redis connects the optional identity cache.
package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"clientauth/internal/platform/config"
)

const pingBackoff = 200 * time.Millisecond

// Client is a connected go-redis client.
type Client struct {
	*redis.Client
}

// Options turns the cache settings into go-redis options. Zero pool sizes
// keep the go-redis defaults.
func Options(cfg config.RedisConfig) (*redis.Options, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, oops.Code("REDIS_URL_INVALID").Wrapf(err, "parse redis URL")
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	if cfg.MinIdleConns > 0 {
		opts.MinIdleConns = cfg.MinIdleConns
	}
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if cfg.ReadTimeout > 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}
	return opts, nil
}

// New connects and waits until the server answers PING. It returns a nil
// client when no URL is configured.
func New(ctx context.Context, cfg config.RedisConfig, retries uint64) (*Client, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	opts, err := Options(cfg)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	backoff := retry.WithMaxRetries(retries, retry.NewExponential(pingBackoff))
	if err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		return retry.RetryableError(client.Ping(ctx).Err())
	}); err != nil {
		_ = client.Close()
		return nil, oops.Code("REDIS_UNAVAILABLE").With("addr", opts.Addr).Wrapf(err, "redis ping failed")
	}
	return &Client{Client: client}, nil
}

// Health reports whether the server still answers PING.
func (c *Client) Health(ctx context.Context) error {
	return c.Ping(ctx).Err()
}
