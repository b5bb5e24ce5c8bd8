// Package app wires the storefront: catalog, cart storage, router and the
// telebot handlers on top of the core runtime.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/partsbot/core/bootstrap"
	"github.com/m3rciful/partsbot/core/buildinfo"
	"github.com/m3rciful/partsbot/core/cmd"
	coreconfig "github.com/m3rciful/partsbot/core/config"
	coredatabase "github.com/m3rciful/partsbot/core/database"
	"github.com/m3rciful/partsbot/core/logger"
	tg "github.com/m3rciful/partsbot/core/telegram"
	corerouter "github.com/m3rciful/partsbot/core/telegram/router"
	tgsender "github.com/m3rciful/partsbot/core/telegram/sender"
	"github.com/m3rciful/partsbot/storefront/bot"
	"github.com/m3rciful/partsbot/storefront/cart"
	"github.com/m3rciful/partsbot/storefront/cartstore"
	"github.com/m3rciful/partsbot/storefront/catalog"
	"github.com/m3rciful/partsbot/storefront/config"
	"github.com/m3rciful/partsbot/storefront/menu"
	"github.com/m3rciful/partsbot/storefront/order"
	"github.com/m3rciful/partsbot/storefront/router"
)

// Options override infrastructure hooks, mostly for tests.
type Options struct {
	LoggerInit func(*coreconfig.Config) error
	Connect    func(context.Context, coredatabase.Config) (*sqlx.DB, error)
	Migrate    func(context.Context, coredatabase.Config) error
}

// App owns everything built at startup.
type App struct {
	cfg      *config.Config
	db       *sqlx.DB
	catalog  *catalog.Catalog
	store    cart.Store
	handlers *bot.Handlers
}

// Bootstrap adapts New to the cmd runner.
func Bootstrap(carrier cmd.ConfigCarrier) (cmd.TelegramApp, error) {
	cfg, ok := carrier.(*config.Config)
	if !ok {
		return nil, fmt.Errorf("app: unexpected config type %T", carrier)
	}
	return New(context.Background(), cfg, Options{})
}

// New initializes logging, the optional database, the catalog and the cart
// store, then builds the handlers.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}

	var dbCfg *coredatabase.Config
	if cfg.Storage.Driver == cartstore.DriverPostgres {
		d := cfg.Storage.Database
		dbCfg = &d
	}
	res, err := bootstrap.Run(ctx, bootstrap.Options{
		Config:     &cfg.Config,
		Database:   dbCfg,
		LoggerInit: opts.LoggerInit,
		Connect:    opts.Connect,
		Migrate:    opts.Migrate,
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, logger.CompApp, "start",
		slog.String("version", buildinfo.String()),
		slog.String("run_mode", cfg.Telegram.RunMode),
		slog.String("storage", cfg.Storage.Driver),
	)

	a := &App{cfg: cfg, db: res.DB}

	cat, err := loadCatalog(ctx, cfg.Catalog)
	if err != nil {
		a.closeDB()
		return nil, err
	}
	a.catalog = cat

	store, err := cartstore.Open(ctx, cfg.Storage, res.DB)
	if err != nil {
		a.closeDB()
		return nil, fmt.Errorf("app: cart store: %w", err)
	}
	a.store = store

	nav := menu.New(cat)
	a.handlers = bot.New(bot.Options{
		Router:  router.New(nav, store, order.NewSubmitter(store, nav)),
		AdminID: cfg.Telegram.AdminID,
	})
	return a, nil
}

func loadCatalog(ctx context.Context, cfg config.CatalogConfig) (*catalog.Catalog, error) {
	start := time.Now()
	cat, err := catalog.Load(cfg.Path)
	if err != nil {
		logger.Error(ctx, logger.CompCatalog, "load",
			slog.String("status", "fail"),
			slog.String("path", cfg.Path),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("app: catalog: %w", err)
	}
	if cfg.FallbackPartPrice > 0 {
		cat.FallbackPartPrice = cfg.FallbackPartPrice
	}
	source := cfg.Path
	if source == "" {
		source = "builtin"
	}
	logger.Info(ctx, logger.CompCatalog, "load",
		slog.String("status", "ok"),
		slog.String("source", source),
		slog.Int("brands", len(cat.Brands)),
		slog.Int("parts", len(cat.Parts)),
		slog.Int("fallback_part_price", cat.FallbackPartPrice),
		slog.Duration("took", logger.Took(start)),
	)
	return cat, nil
}

// TelegramRunOptions registers the storefront and describes how to run it.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	reg := tg.NewRegistry()
	if err := a.handlers.Register(reg); err != nil {
		return tg.RunOptions{}, fmt.Errorf("app: register handlers: %w", err)
	}

	core := &a.cfg.Config
	routes := corerouter.CommandRoutes(reg, corerouter.CommandRouteOptions{
		AdminID:       core.Telegram.AdminID,
		OnAdminReject: a.handlers.RejectAdmin,
	})
	routes = append(routes, corerouter.CallbackRoute(reg, corerouter.CallbackOptions{}))
	routes = append(routes, corerouter.TextRoutes(reg, corerouter.TextOptions{})...)

	return tg.RunOptions{
		Config:            core,
		Registry:          reg,
		DispatcherOptions: senderOptions(a.cfg.Sender),
		Middlewares:       tg.DefaultMiddlewares(core, a.handlers.Limited),
		Routes:            routes,
		OnStop: func(context.Context, tg.Runtime) error {
			return a.Close()
		},
	}, nil
}

func senderOptions(s config.SenderConfig) tgsender.Options {
	return tgsender.Options{
		QueueSize:    s.QueueSize,
		Workers:      s.Workers,
		MaxRetries:   s.MaxRetries,
		RetryBackoff: time.Duration(s.RetryBackoffMS) * time.Millisecond,
	}
}

// Close releases the cart store and the database.
func (a *App) Close() error {
	var errs []error
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close cart store: %w", err))
		}
		a.store = nil
	}
	if err := a.closeDB(); err != nil {
		errs = append(errs, fmt.Errorf("close database: %w", err))
	}
	return errors.Join(errs...)
}

func (a *App) closeDB() error {
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	return err
}
