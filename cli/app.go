package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alecthomas/kong"

	"github.com/robinvdvleuten/stockcard/config"
	"github.com/robinvdvleuten/stockcard/editor"
	"github.com/robinvdvleuten/stockcard/stockcard"
	"github.com/robinvdvleuten/stockcard/store"
)

// app holds what commands need to work on stock cards: the configured
// backend, an allocation engine on top of it and a logger.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	backend store.Backend
	engine  *stockcard.Engine

	postgres *store.Postgres      // Set for the postgres backend
	cache    *store.CachedQuerier // Set when Redis is configured and reachable

	closers []func()
}

// openApp loads the configuration and connects to the backend. The --book
// flag selects a file backend regardless of the configuration. Commands that
// are not long-running log warnings and errors only, unless a level is
// configured.
func openApp(ctx context.Context, kctx *kong.Context, globals *Globals, server bool) (*app, error) {
	cfg, err := config.Load(globals.Config)
	if err != nil {
		return nil, err
	}
	if globals.Book != "" {
		cfg.Backend = "file"
		cfg.Book.Path = globals.Book
	}
	if !server && cfg.App.LogLevel == "" && cfg.App.Env != "dev" {
		cfg.App.LogLevel = "warn"
	}

	a := &app{cfg: cfg, logger: config.NewLogger(kctx.Stderr, cfg)}

	switch cfg.Backend {
	case "postgres":
		pg, err := store.Connect(ctx, cfg.Postgres.DSN, a.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		a.postgres = pg
		a.backend = pg
		a.closers = append(a.closers, pg.Close)
	default:
		a.backend = store.NewFileStore(cfg.Book.Path)
	}

	// Book files are read into memory and reloaded when they change, so only
	// the postgres backend gets the item cache. A cache in front of a file
	// store would keep serving on-hand counts from before a reload.
	var items stockcard.ItemQuerier = a.backend
	if cfg.Redis.Addr != "" && a.postgres != nil {
		client, err := store.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			a.logger.Warn("redis unavailable, item cache disabled", "err", err)
		} else {
			a.cache = store.NewCachedQuerier(a.backend, client, a.logger, store.WithTTL(cfg.Redis.TTL))
			items = a.cache
			a.closers = append(a.closers, func() { _ = client.Close() })
		}
	}
	a.engine = stockcard.NewEngine(items)

	return a, nil
}

// Close releases connections in reverse order of opening.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// session loads a card and starts editing it.
func (a *app) session(ctx context.Context, cardID string) (*editor.Session, error) {
	card, err := a.backend.Card(ctx, cardID)
	if err != nil {
		return nil, err
	}
	return editor.NewSession(card, a.engine, a.backend, a.logger), nil
}
