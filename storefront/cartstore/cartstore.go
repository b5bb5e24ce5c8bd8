// Package cartstore provides the cart.Store backends: a JSON document file,
// PostgreSQL rows and Redis keys.
package cartstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	coredatabase "github.com/m3rciful/partsbot/core/database"
	"github.com/m3rciful/partsbot/storefront/cart"
)

// Storage drivers.
const (
	DriverFile     = "file"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// DefaultFilePath is the cart document used when storage.path is empty.
const DefaultFilePath = "carts.json"

// ErrUnknownDriver is returned for a storage.driver outside the supported set.
var ErrUnknownDriver = errors.New("cartstore: unknown driver")

// RedisConfig configures the redis backend.
type RedisConfig struct {
	// Addr is host:port or a redis:// URL. Password and DB apply when the URL
	// carries no password or database of its own.
	Addr      string `yaml:"addr" envconfig:"REDIS_ADDR"`
	Password  string `yaml:"password" envconfig:"REDIS_PASSWORD"`
	DB        int    `yaml:"db" envconfig:"REDIS_DB"`
	KeyPrefix string `yaml:"key_prefix" envconfig:"REDIS_KEY_PREFIX"`
}

// Config selects and configures a backend.
type Config struct {
	Driver   string              `yaml:"driver" envconfig:"STORAGE_DRIVER"`
	Path     string              `yaml:"path" envconfig:"CARTS_FILE"`
	Redis    RedisConfig         `yaml:"redis"`
	Database coredatabase.Config `yaml:"database"`
}

// Normalize lowercases the driver and fills per-driver defaults.
func (c *Config) Normalize() error {
	c.Driver = strings.ToLower(strings.TrimSpace(c.Driver))
	if c.Driver == "" {
		c.Driver = DriverFile
	}
	switch c.Driver {
	case DriverFile:
		if strings.TrimSpace(c.Path) == "" {
			c.Path = DefaultFilePath
		}
	case DriverPostgres:
		if c.Database.Host == "" || c.Database.Name == "" {
			return fmt.Errorf("storage.database.host and storage.database.name are required for the postgres driver")
		}
		if c.Database.Port == "" {
			c.Database.Port = "5432"
		}
	case DriverRedis:
		if strings.TrimSpace(c.Redis.Addr) == "" {
			return fmt.Errorf("storage.redis.addr is required for the redis driver")
		}
		if c.Redis.KeyPrefix == "" {
			c.Redis.KeyPrefix = DefaultKeyPrefix
		}
	default:
		return fmt.Errorf("%w %q; allowed: file, postgres, redis", ErrUnknownDriver, c.Driver)
	}
	return nil
}

// Open builds the backend named by cfg.Driver. db must be non-nil for the
// postgres driver and is ignored otherwise.
func Open(ctx context.Context, cfg Config, db *sqlx.DB) (cart.Store, error) {
	switch cfg.Driver {
	case DriverFile, "":
		path := cfg.Path
		if path == "" {
			path = DefaultFilePath
		}
		return NewFileStore(path), nil
	case DriverPostgres:
		if db == nil {
			return nil, fmt.Errorf("cartstore: postgres driver needs a database handle")
		}
		return NewPostgresStore(db), nil
	case DriverRedis:
		s := NewRedisStore(cfg.Redis)
		if err := s.Initialize(ctx); err != nil {
			_ = s.Close()
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownDriver, cfg.Driver)
	}
}

func statsOf(carts ...cart.Cart) cart.Stats {
	var st cart.Stats
	for _, c := range carts {
		if c.Empty() {
			continue
		}
		st.OpenCarts++
		st.Items += len(c.Items)
	}
	return st
}

func emptyCart() cart.Cart {
	return cart.Cart{Items: []cart.Item{}}
}
