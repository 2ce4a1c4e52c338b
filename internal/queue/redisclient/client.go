// Package redisclient owns the shared go-redis connection used by the rate
// limiter, the tour cache and the job queue.
package redisclient

import (
	"context"
	"time"

	"github.com/geocoder89/tourhub/internal/config"
	"github.com/redis/go-redis/v9"
)

type Client struct {
	redisdb *redis.Client
}

type Config struct {
	Addr     string
	Password string
	DB       int
}

func New(cfg Config) *Client {
	redisdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	return &Client{redisdb: redisdb}
}

// FromConfig returns nil when no Redis address is configured; callers then
// fall back to in-process implementations.
func FromConfig(cfg config.Config) *Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	return New(Config{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
}

func (c *Client) Ping(ctx context.Context) error {
	return c.redisdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.redisdb.Close()
}

// Raw exposes the go-redis client to the packages built on it.
func (c *Client) Raw() *redis.Client {
	return c.redisdb
}
