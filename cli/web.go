package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/robinvdvleuten/stockcard/export"
	"github.com/robinvdvleuten/stockcard/output"
	"github.com/robinvdvleuten/stockcard/web"
)

type WebCmd struct {
	Addr     string `help:"Address to listen on (overrides http.addr)."`
	ReadOnly bool   `help:"Enable read-only mode (no write operations allowed)." short:"r"`
	NoWatch  bool   `help:"Do not reload when book files change."`
}

func (cmd *WebCmd) Run(ctx *kong.Context, globals *Globals) error {
	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runCtx, report := startTelemetry(runCtx, ctx, globals, "web")
	defer report()

	a, err := openApp(runCtx, ctx, globals, true)
	if err != nil {
		return err
	}
	defer a.Close()

	opts := []web.Option{web.WithLogger(a.logger)}
	if cfg, ok := a.cfg.S3Config(); ok {
		uploader, err := export.NewUploader(runCtx, cfg)
		if err != nil {
			return err
		}
		opts = append(opts, web.WithUploader(uploader))
	}

	server := web.New(a.backend, a.engine, opts...)
	server.Addr = a.cfg.HTTP.Addr
	if cmd.Addr != "" {
		server.Addr = cmd.Addr
	}
	server.Version = BuildVersion()
	server.ReadOnly = a.cfg.HTTP.ReadOnly || cmd.ReadOnly
	server.WatchEnabled = !cmd.NoWatch
	server.Metrics = a.cfg.Metrics.Enabled

	styles := output.NewStyles(ctx.Stdout)
	printInfof(ctx.Stdout, "Starting server on %s", styles.FilePath("http://"+server.Addr))
	if a.cfg.Backend == "file" {
		printInfof(ctx.Stdout, "Serving book: %s", styles.FilePath(a.cfg.Book.Path))
	} else {
		printInfof(ctx.Stdout, "Serving stock cards from %s", a.cfg.Backend)
	}
	if server.ReadOnly {
		printInfof(ctx.Stdout, "Server running in READ-ONLY mode")
	}

	return server.Start(runCtx)
}
