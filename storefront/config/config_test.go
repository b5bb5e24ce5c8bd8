package config

import (
	"os"
	"path/filepath"
	"testing"

	coreconfig "github.com/m3rciful/partsbot/core/config"
	"github.com/m3rciful/partsbot/storefront/cartstore"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaultsToFileStorage(t *testing.T) {
	path := writeConfig(t, "telegram:\n  token: t\n  admin_id: 7\ncatalog:\n  fallback_part_price: 50\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Storage.Driver != cartstore.DriverFile || cfg.Storage.Path != cartstore.DefaultFilePath {
		t.Fatalf("storage = %+v", cfg.Storage)
	}
	if cfg.Catalog.FallbackPartPrice != 50 {
		t.Fatalf("fallback price = %d", cfg.Catalog.FallbackPartPrice)
	}
	if cfg.CoreConfig().Telegram.RunMode != coreconfig.RunModeLongpoll {
		t.Fatalf("run mode = %q", cfg.CoreConfig().Telegram.RunMode)
	}
}

func TestLoadEnvSelectsRedis(t *testing.T) {
	path := writeConfig(t, "telegram:\n  token: t\n  admin_id: 7\nstorage:\n  driver: file\n")
	t.Setenv("STORAGE_DRIVER", "Redis")
	t.Setenv("REDIS_ADDR", "127.0.0.1:6379")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Storage.Driver != cartstore.DriverRedis || cfg.Storage.Redis.Addr != "127.0.0.1:6379" {
		t.Fatalf("storage = %+v", cfg.Storage)
	}
	if cfg.Storage.Redis.KeyPrefix == "" {
		t.Fatal("redis key prefix must be defaulted")
	}
}

func TestLoadMissingFileUsesEnv(t *testing.T) {
	t.Setenv("BOT_TOKEN", "env-token")
	t.Setenv("TELEGRAM_ADMIN_ID", "99")
	t.Setenv("CARTS_FILE", "/tmp/carts.json")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Telegram.Token != "env-token" || cfg.Telegram.AdminID != 99 || cfg.Storage.Path != "/tmp/carts.json" {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestNormalizeRejects(t *testing.T) {
	base := func() Config {
		return Config{Config: coreconfig.Config{Telegram: coreconfig.TelegramConfig{Token: "t", AdminID: 1}}}
	}
	noAdmin := base()
	noAdmin.Telegram.AdminID = 0

	badDriver := base()
	badDriver.Storage.Driver = "sqlite"

	pgNoHost := base()
	pgNoHost.Storage.Driver = cartstore.DriverPostgres

	negPrice := base()
	negPrice.Catalog.FallbackPartPrice = -1

	negQueue := base()
	negQueue.Sender.QueueSize = -5

	cases := map[string]Config{
		"no admin":        noAdmin,
		"bad driver":      badDriver,
		"postgres host":   pgNoHost,
		"negative price":  negPrice,
		"negative sender": negQueue,
	}
	for name, cfg := range cases {
		cfg := cfg
		if err := Normalize(&cfg); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
	if err := Normalize(nil); err == nil {
		t.Fatal("nil config must fail")
	}
}
