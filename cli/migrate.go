package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alecthomas/kong"

	"github.com/robinvdvleuten/stockcard/config"
	"github.com/robinvdvleuten/stockcard/loader"
	"github.com/robinvdvleuten/stockcard/output"
	"github.com/robinvdvleuten/stockcard/store"
)

// MigrateCmd manages the Postgres backend.
type MigrateCmd struct {
	Up      MigrateUpCmd      `cmd:"" default:"1" help:"Apply all pending migrations."`
	Down    MigrateDownCmd    `cmd:"" help:"Revert the most recent migration."`
	Version MigrateVersionCmd `cmd:"" help:"Show the current schema version."`
	Import  MigrateImportCmd  `cmd:"" help:"Import the reports and stock cards of a book."`
}

// migrationTarget returns the configured DSN and a logger for goose output.
// Migrations only need the DSN, whichever backend is selected.
func migrationTarget(kctx *kong.Context, globals *Globals) (string, *slog.Logger, error) {
	cfg, err := config.Load(globals.Config)
	if err != nil {
		return "", nil, err
	}
	if cfg.Postgres.DSN == "" {
		return "", nil, errors.New("postgres.dsn is not configured (set STOCKCARD_POSTGRES_DSN)")
	}
	return cfg.Postgres.DSN, config.NewLogger(kctx.Stderr, cfg), nil
}

type MigrateUpCmd struct{}

func (cmd *MigrateUpCmd) Run(ctx *kong.Context, globals *Globals) error {
	dsn, logger, err := migrationTarget(ctx, globals)
	if err != nil {
		return err
	}
	runCtx := context.Background()
	if err := store.Migrate(runCtx, dsn, logger); err != nil {
		return err
	}
	printSuccess(ctx.Stdout, "Schema is up to date")
	return nil
}

type MigrateDownCmd struct {
	Yes bool `help:"Do not ask for confirmation." short:"y"`
}

func (cmd *MigrateDownCmd) Run(ctx *kong.Context, globals *Globals) error {
	dsn, logger, err := migrationTarget(ctx, globals)
	if err != nil {
		return err
	}

	ok, err := confirm(cmd.Yes, "Revert the most recent migration? Data in dropped tables is lost.")
	if err != nil {
		return err
	}
	if !ok {
		printInfof(ctx.Stdout, "Nothing reverted")
		return nil
	}

	if err := store.Rollback(context.Background(), dsn, logger); err != nil {
		return err
	}
	printSuccess(ctx.Stdout, "Reverted one migration")
	return nil
}

type MigrateVersionCmd struct{}

func (cmd *MigrateVersionCmd) Run(ctx *kong.Context, globals *Globals) error {
	dsn, logger, err := migrationTarget(ctx, globals)
	if err != nil {
		return err
	}
	version, err := store.MigrationVersion(context.Background(), dsn, logger)
	if err != nil {
		return err
	}
	printInfof(ctx.Stdout, "Schema version %d", version)
	return nil
}

type MigrateImportCmd struct {
	Book string `help:"Book file to import (includes are followed)." arg:"" type:"existingfile"`
}

func (cmd *MigrateImportCmd) Run(ctx *kong.Context, globals *Globals) error {
	runCtx, report := startTelemetry(context.Background(), ctx, globals, "migrate import")
	defer report()

	// The book flag names the source here, not the backend.
	target := *globals
	target.Book = ""

	a, err := openApp(runCtx, ctx, &target, false)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.postgres == nil {
		return errors.New("import requires the postgres backend (set backend: postgres)")
	}

	result, err := loader.New(loader.WithFollowIncludes()).Load(runCtx, cmd.Book)
	if err != nil {
		var parseErr *loader.ParseError
		if errors.As(err, &parseErr) {
			_, _ = fmt.Fprintln(ctx.Stderr, NewErrorRenderer(ctx.Stderr).Render(parseErr))
			_, _ = fmt.Fprintln(ctx.Stderr)
			printError(ctx.Stderr, "parse error")
			return NewCommandError(1)
		}
		return err
	}

	if err := a.postgres.Import(runCtx, result.Book); err != nil {
		return err
	}

	if a.cache != nil {
		for _, ir := range result.Book.InventoryReports {
			if err := a.cache.Invalidate(runCtx, ir.ID); err != nil {
				a.logger.Warn("failed to invalidate cached items", "report", ir.ID, "err", err)
			}
		}
	}

	styles := output.NewStyles(ctx.Stdout)
	printSuccess(ctx.Stdout, fmt.Sprintf("Imported %d inventory report(s), %d issued report(s) and %d stock card(s) from %s",
		len(result.Book.InventoryReports), len(result.Book.IssuedReports), len(result.Book.StockCards),
		styles.FilePath(cmd.Book)))
	return nil
}
