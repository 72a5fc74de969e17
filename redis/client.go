package redis

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kbukum/gears/errors"
	"github.com/kbukum/gears/logger"
)

// Client wraps a go-redis client with gears logging.
type Client struct {
	rdb    *goredis.Client
	log    *logger.Logger
	cfg    Config
	closed bool
	mu     sync.Mutex
}

// New creates a Redis client.
func New(cfg Config, log *logger.Logger) (*Client, error) {
	cfg.ApplyDefaults()

	if !cfg.Enabled {
		return nil, fmt.Errorf("redis is disabled")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("redis config: %w", err)
	}

	dialTimeout, _ := time.ParseDuration(cfg.DialTimeout)
	readTimeout, _ := time.ParseDuration(cfg.ReadTimeout)
	writeTimeout, _ := time.ParseDuration(cfg.WriteTimeout)
	tlsConfig, err := cfg.TLS.Build()
	if err != nil {
		return nil, fmt.Errorf("redis tls: %w", err)
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  dialTimeout,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		TLSConfig:    tlsConfig,
	})

	log.Info("redis client created", logger.Fields(
		"addr", cfg.Addr,
		"db", cfg.DB,
		"pool_size", cfg.PoolSize,
		"tls", cfg.TLS.IsEnabled(),
	))
	return &Client{rdb: rdb, log: log, cfg: cfg}, nil
}

// Config returns the effective configuration.
func (c *Client) Config() Config { return c.cfg }

// Ping verifies the Redis connection is alive.
func (c *Client) Ping(ctx context.Context) error {
	pong, err := c.rdb.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	if pong != "PONG" {
		return fmt.Errorf("unexpected redis ping response: %s", pong)
	}
	return nil
}

// Do runs an arbitrary command and returns the reply as decoded by go-redis.
// A nil reply is returned as (nil, nil).
func (c *Client) Do(ctx context.Context, args ...any) (any, error) {
	reply, err := c.rdb.Do(ctx, args...).Result()
	if err == goredis.Nil {
		return nil, nil
	}
	return reply, err
}

// ConfigGet reads one server configuration parameter.
func (c *Client) ConfigGet(ctx context.Context, key string) (string, bool, error) {
	values, err := c.rdb.ConfigGet(ctx, key).Result()
	if err != nil {
		return "", false, err
	}
	for k, v := range values {
		if strings.EqualFold(k, key) {
			return v, true, nil
		}
	}
	return "", false, nil
}

// Get retrieves a string value. A missing key is (", false, nil).
func (c *Client) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := c.rdb.Get(ctx, key).Result()
	if err == goredis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// Set stores a value with an expiration. Zero means no expiration.
func (c *Client) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	return c.rdb.Set(ctx, key, value, expiration).Err()
}

// Del deletes one or more keys.
func (c *Client) Del(ctx context.Context, keys ...string) error {
	return c.rdb.Del(ctx, keys...).Err()
}

// Scan returns one page of keys matching pattern and the next cursor. A zero
// cursor ends the iteration.
func (c *Client) Scan(ctx context.Context, cursor uint64, pattern string) ([]string, uint64, error) {
	return c.rdb.Scan(ctx, cursor, pattern, c.cfg.ScanCount).Result()
}

// Value returns the type of key and its value: a string, a map for hashes, a
// slice for lists and sets. A missing key has type "none" and a nil value.
func (c *Client) Value(ctx context.Context, key string) (string, any, error) {
	typ, err := c.rdb.Type(ctx, key).Result()
	if err != nil {
		return "", nil, err
	}

	var v any
	switch typ {
	case "none":
		return typ, nil, nil
	case "string":
		v, err = c.rdb.Get(ctx, key).Result()
	case "hash":
		v, err = c.rdb.HGetAll(ctx, key).Result()
	case "list":
		v, err = c.rdb.LRange(ctx, key, 0, -1).Result()
	case "set":
		v, err = c.rdb.SMembers(ctx, key).Result()
	case "zset":
		v, err = c.rdb.ZRange(ctx, key, 0, -1).Result()
	default:
		return typ, nil, errors.InvalidInput("key", fmt.Sprintf("%s has unsupported type %s", key, typ))
	}
	if err == goredis.Nil {
		return "none", nil, nil
	}
	return typ, v, err
}

// XAdd appends an entry to a stream and returns its id.
func (c *Client) XAdd(ctx context.Context, stream string, values map[string]any) (string, error) {
	return c.rdb.XAdd(ctx, &goredis.XAddArgs{Stream: stream, Values: values}).Result()
}

// XRange returns the entries of stream between start and stop.
func (c *Client) XRange(ctx context.Context, stream, start, stop string) ([]goredis.XMessage, error) {
	return c.rdb.XRange(ctx, stream, start, stop).Result()
}

// XRead blocks up to block for entries after lastID. A timeout returns no
// entries and no error.
func (c *Client) XRead(ctx context.Context, stream, lastID string, count int64, block time.Duration) ([]goredis.XMessage, error) {
	res, err := c.rdb.XRead(ctx, &goredis.XReadArgs{
		Streams: []string{stream, lastID},
		Count:   count,
		Block:   block,
	}).Result()
	if err == goredis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var msgs []goredis.XMessage
	for _, s := range res {
		msgs = append(msgs, s.Messages...)
	}
	return msgs, nil
}

// PSubscribe subscribes to channel patterns. The caller closes the returned
// subscription.
func (c *Client) PSubscribe(ctx context.Context, patterns ...string) *goredis.PubSub {
	return c.rdb.PSubscribe(ctx, patterns...)
}

// KeyspaceChannel returns the keyspace notification channel pattern for
// keys matching pattern in the client's database.
func (c *Client) KeyspaceChannel(pattern string) string {
	return fmt.Sprintf("__keyspace@%d__:%s", c.cfg.DB, pattern)
}

// Close closes the Redis connection. Safe to call multiple times.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.log.Info("closing redis connection")
	c.closed = true
	return c.rdb.Close()
}

// Unwrap returns the underlying go-redis client.
func (c *Client) Unwrap() *goredis.Client {
	return c.rdb
}
