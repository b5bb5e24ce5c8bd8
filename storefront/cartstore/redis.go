package cartstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/m3rciful/partsbot/core/logger"
	"github.com/m3rciful/partsbot/storefront/cart"
)

// DefaultKeyPrefix namespaces cart keys when none is configured.
const DefaultKeyPrefix = "partsbot:cart:"

const (
	maxTxAttempts   = 16
	initAttempts    = 5
	initBackoffBase = 500 * time.Millisecond
)

var emptyCartJSON = []byte(`{"items":[]}`)

// RedisStore keeps each cart as a JSON value under <prefix><userID>.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore builds a client from cfg.
func NewRedisStore(cfg RedisConfig) *RedisStore {
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisStore{client: redis.NewClient(redisOptions(cfg)), prefix: prefix}
}

// redisOptions accepts Addr as a redis:// URL or a plain host:port. Password
// and DB fill in whatever the URL leaves unset.
func redisOptions(cfg RedisConfig) *redis.Options {
	opts, err := redis.ParseURL(cfg.Addr)
	if err != nil {
		opts = &redis.Options{Addr: cfg.Addr}
	}
	if opts.Password == "" {
		opts.Password = cfg.Password
	}
	if opts.DB == 0 {
		opts.DB = cfg.DB
	}
	opts.MinIdleConns = 1
	opts.MaxRetries = 3
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	opts.PoolSize = 10
	return opts
}

// Initialize pings the server with exponential backoff until it answers.
func (s *RedisStore) Initialize(ctx context.Context) error {
	var lastErr error
	for i := 0; i < initAttempts; i++ {
		if lastErr = s.Ping(ctx); lastErr == nil {
			logger.Info(ctx, logger.CompStore, "redis.ready",
				slog.String("status", "ok"),
				slog.String("driver", DriverRedis),
				slog.Int("attempts", i+1),
			)
			return nil
		}
		backoff := initBackoffBase << uint(i)
		logger.Warn(ctx, logger.CompStore, "redis.ping",
			slog.String("status", "retry"),
			slog.Int("attempts", i+1),
			slog.Duration("backoff", backoff),
			slog.String("err", lastErr.Error()),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return fmt.Errorf("redis not reachable after %d attempts: %w", initAttempts, lastErr)
}

// Ping checks connectivity with a short timeout.
func (s *RedisStore) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.client.Ping(pingCtx).Err()
}

func (s *RedisStore) key(userID string) string {
	return s.prefix + userID
}

func decodeCart(data []byte) (cart.Cart, error) {
	var c cart.Cart
	if err := json.Unmarshal(data, &c); err != nil {
		return cart.Cart{}, fmt.Errorf("decode cart: %w", err)
	}
	return normalizeCart(c), nil
}

func (s *RedisStore) Get(ctx context.Context, userID string) (cart.Cart, error) {
	key := s.key(userID)
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		if err := s.client.SetNX(ctx, key, emptyCartJSON, 0).Err(); err != nil {
			return cart.Cart{}, fmt.Errorf("create cart: %w", err)
		}
		return emptyCart(), nil
	}
	if err != nil {
		return cart.Cart{}, fmt.Errorf("get cart: %w", err)
	}
	return decodeCart(data)
}

func (s *RedisStore) Update(ctx context.Context, userID string, c cart.Cart) error {
	data, err := json.Marshal(normalizeCart(c))
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := s.client.Set(ctx, s.key(userID), data, 0).Err(); err != nil {
		return fmt.Errorf("update cart: %w", err)
	}
	return nil
}

// AddItem appends inside WATCH/MULTI and retries when another writer touched
// the key between the read and the commit.
func (s *RedisStore) AddItem(ctx context.Context, userID string, it cart.Item) (cart.Cart, error) {
	key := s.key(userID)
	var result cart.Cart
	txf := func(tx *redis.Tx) error {
		c := emptyCart()
		data, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			if c, err = decodeCart(data); err != nil {
				return err
			}
		}
		c.Items = append(c.Items, it)
		out, err := json.Marshal(c)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, out, 0)
			return nil
		})
		if err == nil {
			result = c
		}
		return err
	}

	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return cart.Cart{}, fmt.Errorf("add cart item: %w", err)
		}
		logger.Debug(ctx, logger.CompStore, "redis.tx",
			slog.String("status", "retry"),
			slog.Int("attempts", attempt),
		)
	}
	return cart.Cart{}, fmt.Errorf("add cart item: %w after %d attempts", redis.TxFailedErr, maxTxAttempts)
}

func (s *RedisStore) Clear(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, s.key(userID)).Err(); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

func (s *RedisStore) Stats(ctx context.Context) (cart.Stats, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return cart.Stats{}, fmt.Errorf("scan carts: %w", err)
	}
	if len(keys) == 0 {
		return cart.Stats{}, nil
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return cart.Stats{}, fmt.Errorf("load carts: %w", err)
	}
	carts := make([]cart.Cart, 0, len(vals))
	for _, v := range vals {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		c, err := decodeCart([]byte(raw))
		if err != nil {
			continue
		}
		carts = append(carts, c)
	}
	return statsOf(carts...), nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
