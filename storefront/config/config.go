// Package config loads the storefront configuration: the shared core settings
// plus cart storage, catalog and sender tuning.
package config

import (
	"fmt"
	"strings"

	coreconfig "github.com/m3rciful/partsbot/core/config"
	"github.com/m3rciful/partsbot/storefront/cartstore"
)

// DefaultPath is read when CONFIG_PATH is not set.
const DefaultPath = "config.yaml"

// CatalogConfig points at an optional catalog YAML file.
type CatalogConfig struct {
	// Path is empty to use the catalog compiled into the binary.
	Path string `yaml:"path" envconfig:"CATALOG_PATH"`
	// FallbackPartPrice prices part keys missing from the catalog; 0 rejects them.
	FallbackPartPrice int `yaml:"fallback_part_price" envconfig:"CATALOG_FALLBACK_PART_PRICE"`
}

// SenderConfig tunes the outgoing message queue.
type SenderConfig struct {
	QueueSize      int `yaml:"queue_size" envconfig:"SENDER_QUEUE_SIZE"`
	Workers        int `yaml:"workers" envconfig:"SENDER_WORKERS"`
	MaxRetries     int `yaml:"max_retries" envconfig:"SENDER_MAX_RETRIES"`
	RetryBackoffMS int `yaml:"retry_backoff_ms" envconfig:"SENDER_RETRY_BACKOFF_MS"`
}

// Config is the full storefront configuration.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Storage cartstore.Config `yaml:"storage"`
	Catalog CatalogConfig    `yaml:"catalog"`
	Sender  SenderConfig     `yaml:"sender"`
}

// CoreConfig returns the embedded core settings.
func (c *Config) CoreConfig() *coreconfig.Config {
	return &c.Config
}

// Load reads the YAML file at path, overlays the environment and validates
// the result.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates cfg and fills defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return err
	}
	if cfg.Telegram.AdminID == 0 {
		return fmt.Errorf("telegram.admin_id is required to receive orders")
	}
	if err := cfg.Storage.Normalize(); err != nil {
		return err
	}
	cfg.Catalog.Path = strings.TrimSpace(cfg.Catalog.Path)
	if cfg.Catalog.FallbackPartPrice < 0 {
		return fmt.Errorf("catalog.fallback_part_price must be >= 0")
	}
	if cfg.Sender.QueueSize < 0 || cfg.Sender.Workers < 0 || cfg.Sender.MaxRetries < 0 || cfg.Sender.RetryBackoffMS < 0 {
		return fmt.Errorf("sender settings must be >= 0")
	}
	return nil
}
