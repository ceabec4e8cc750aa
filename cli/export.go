package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/robinvdvleuten/stockcard/export"
	"github.com/robinvdvleuten/stockcard/output"
)

type ExportCmd struct {
	Card   string `help:"Stock card id." arg:""`
	Format string `help:"Document format." enum:"xlsx,pdf" default:"xlsx" short:"f"`
	Output string `help:"Output file (defaults to stock-card-<stock number>.<format>, '-' for stdout)." short:"o"`
	Upload bool   `help:"Upload to the configured S3 bucket instead of writing a file."`
}

func (cmd *ExportCmd) Run(ctx *kong.Context, globals *Globals) error {
	runCtx, report := startTelemetry(context.Background(), ctx, globals, fmt.Sprintf("export %s", cmd.Card))
	defer report()

	format, err := export.ParseFormat(cmd.Format)
	if err != nil {
		return err
	}

	a, err := openApp(runCtx, ctx, globals, false)
	if err != nil {
		return err
	}
	defer a.Close()

	card, err := a.backend.Card(runCtx, cmd.Card)
	if err != nil {
		return err
	}

	styles := output.NewStyles(ctx.Stdout)

	if cmd.Upload {
		cfg, ok := a.cfg.S3Config()
		if !ok {
			return errors.New("no S3 bucket configured (set s3.bucket)")
		}
		uploader, err := export.NewUploader(runCtx, cfg)
		if err != nil {
			return err
		}
		key, err := uploader.Upload(runCtx, card, format)
		if err != nil {
			return err
		}
		printSuccess(ctx.Stdout, fmt.Sprintf("Uploaded %s", styles.FilePath(fmt.Sprintf("s3://%s/%s", cfg.Bucket, key))))
		return nil
	}

	if cmd.Output == "-" {
		return export.Write(ctx.Stdout, card, format)
	}

	filename := cmd.Output
	if filename == "" {
		filename = format.Filename(card)
	}

	data, err := export.Render(card, format)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filename, err)
	}

	printSuccess(ctx.Stdout, fmt.Sprintf("Exported %s to %s", card.ID, styles.FilePath(filename)))
	return nil
}
