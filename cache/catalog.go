// Package cache puts a Redis read-through cache in front of a
// flowgraph.Store for the persona and special-node catalogs.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/meikuraledutech/flowgraph"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Config holds the Redis connection and cache policy.
type Config struct {
	Addr      string        `yaml:"addr" json:"addr"`
	Password  string        `yaml:"password" json:"password"`
	DB        int           `yaml:"db" json:"db"`
	TTL       time.Duration `yaml:"ttl" json:"ttl"`
	KeyPrefix string        `yaml:"key_prefix" json:"key_prefix"`
	PoolSize  int           `yaml:"pool_size" json:"pool_size"`
}

// DefaultConfig returns a config for a local Redis with a five minute TTL.
func DefaultConfig() Config {
	return Config{
		Addr:      "localhost:6379",
		TTL:       5 * time.Minute,
		KeyPrefix: "flowgraph:",
		PoolSize:  10,
	}
}

const (
	personasKey = "catalog:personas"
	specialsKey = "catalog:special_nodes"
)

// Catalog is a flowgraph.Store whose catalog reads are served from Redis.
// Every other method goes straight to the wrapped store. Redis failures
// are logged and fall back to the store.
type Catalog struct {
	flowgraph.Store
	redis  *redis.Client
	config Config
	logger *zap.Logger
}

// New connects to Redis and wraps store.
func New(store flowgraph.Store, config Config, logger *zap.Logger) (*Catalog, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
		PoolSize: config.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("cache: connect to redis: %w", err)
	}

	c := &Catalog{
		Store:  store,
		redis:  client,
		config: config,
		logger: logger.With(zap.String("component", "cache")),
	}
	c.logger.Info("catalog cache initialized",
		zap.String("addr", config.Addr),
		zap.Duration("ttl", config.TTL),
	)
	return c, nil
}

// Close releases the Redis connection. The wrapped store is left open.
func (c *Catalog) Close() error {
	return c.redis.Close()
}

func (c *Catalog) ListPersonas(ctx context.Context) ([]flowgraph.Persona, error) {
	return readThrough(ctx, c, personasKey, c.Store.ListPersonas)
}

func (c *Catalog) ListSpecialNodes(ctx context.Context) ([]flowgraph.SpecialNodeDef, error) {
	return readThrough(ctx, c, specialsKey, c.Store.ListSpecialNodes)
}

func (c *Catalog) CreatePersona(ctx context.Context, p *flowgraph.Persona) error {
	defer c.invalidate(ctx, personasKey)
	return c.Store.CreatePersona(ctx, p)
}

func (c *Catalog) UpdatePersona(ctx context.Context, name string, p *flowgraph.Persona) error {
	defer c.invalidate(ctx, personasKey)
	return c.Store.UpdatePersona(ctx, name, p)
}

func (c *Catalog) DeletePersona(ctx context.Context, name string) (*flowgraph.Persona, error) {
	defer c.invalidate(ctx, personasKey)
	return c.Store.DeletePersona(ctx, name)
}

func (c *Catalog) PutSpecialNode(ctx context.Context, def *flowgraph.SpecialNodeDef) error {
	defer c.invalidate(ctx, specialsKey)
	return c.Store.PutSpecialNode(ctx, def)
}

func (c *Catalog) CreateSchema(ctx context.Context) error {
	defer c.invalidate(ctx, personasKey, specialsKey)
	return c.Store.CreateSchema(ctx)
}

func (c *Catalog) DropSchema(ctx context.Context) error {
	defer c.invalidate(ctx, personasKey, specialsKey)
	return c.Store.DropSchema(ctx)
}

// readThrough serves key from Redis or fills it from load. The fill is a
// WATCH transaction on the key's generation counter, so a write that
// invalidates while load is running aborts the fill instead of caching
// the list it replaced.
func readThrough[T any](ctx context.Context, c *Catalog, key string, load func(context.Context) ([]T, error)) ([]T, error) {
	full := c.config.KeyPrefix + key

	var (
		out      []T
		loaded   bool
		storeErr error
	)
	err := c.redis.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, full).Bytes()
		switch {
		case err == nil:
			if err := json.Unmarshal(raw, &out); err == nil {
				return nil
			}
			out = nil
			c.logger.Warn("discarding undecodable cache entry", zap.String("key", full))
		case !errors.Is(err, redis.Nil):
			return err
		}

		if out, storeErr = load(ctx); storeErr != nil {
			return nil
		}
		loaded = true
		data, err := json.Marshal(out)
		if err != nil {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, full, data, c.config.TTL)
			return nil
		})
		return err
	}, generationKey(full))

	switch {
	case storeErr != nil:
		return nil, storeErr
	case err == nil:
		return out, nil
	case errors.Is(err, redis.TxFailedErr):
		c.logger.Debug("catalog changed during fill, not caching", zap.String("key", full))
	default:
		c.logger.Warn("cache read failed", zap.String("key", full), zap.Error(err))
	}
	if loaded {
		return out, nil
	}
	return load(ctx)
}

// invalidate bumps the generation of each key, aborting in-flight fills,
// and deletes the cached lists.
func (c *Catalog) invalidate(ctx context.Context, keys ...string) {
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.config.KeyPrefix + k
	}
	_, err := c.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, k := range full {
			pipe.Incr(ctx, generationKey(k))
		}
		pipe.Del(ctx, full...)
		return nil
	})
	if err != nil {
		c.logger.Warn("cache invalidate failed", zap.Strings("keys", full), zap.Error(err))
	}
}

func generationKey(key string) string {
	return key + ":gen"
}
