package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/huh"

	"github.com/robinvdvleuten/stockcard/editor"
	"github.com/robinvdvleuten/stockcard/output"
	"github.com/robinvdvleuten/stockcard/stockcard"
)

type AllocateCmd struct {
	Card   string `help:"Stock card id." arg:""`
	Entry  string `help:"Entry id." arg:""`
	Report string `help:"Inventory report to source the entry from (prompted for when omitted)." short:"r"`
	Yes    bool   `help:"Save without asking for confirmation." short:"y"`
}

func (cmd *AllocateCmd) Run(ctx *kong.Context, globals *Globals) error {
	runCtx, report := startTelemetry(context.Background(), ctx, globals, fmt.Sprintf("allocate %s %s", cmd.Card, cmd.Entry))
	defer report()

	a, err := openApp(runCtx, ctx, globals, false)
	if err != nil {
		return err
	}
	defer a.Close()

	session, err := a.session(runCtx, cmd.Card)
	if err != nil {
		return err
	}
	card := session.Snapshot()

	reportID := cmd.Report
	if reportID == "" {
		reportID, err = pickReport(runCtx, a, card)
		if err != nil {
			return err
		}
	}

	delta, err := session.Allocate(runCtx, cmd.Entry, reportID)
	if err != nil {
		var notFound *stockcard.EntryNotFoundError
		if stockcard.IsRejection(err) || errors.As(err, &notFound) {
			_, _ = fmt.Fprintln(ctx.Stderr, NewErrorRenderer(ctx.Stderr, WithCard(card)).Render(err))
			_, _ = fmt.Fprintln(ctx.Stderr)
			printError(ctx.Stderr, "allocation rejected, stock card unchanged")
			return NewCommandError(1)
		}
		return err
	}

	styles := output.NewStyles(ctx.Stdout)
	printInfof(ctx.Stdout, "%s", delta)
	if delta.FirstUse {
		printInfof(ctx.Stdout, "First use of %s", styles.Report(reportID))
	}

	return saveSession(runCtx, ctx, session, cmd.Yes)
}

// saveSession asks for confirmation and saves the session.
func saveSession(ctx context.Context, kctx *kong.Context, session *editor.Session, yes bool) error {
	ok, err := confirm(yes, "Save stock card?")
	if err != nil {
		return err
	}
	if !ok {
		printInfof(kctx.Stdout, "Not saved")
		return nil
	}

	if err := session.Save(ctx); err != nil {
		printError(kctx.Stderr, err.Error())
		return NewCommandError(1)
	}
	printSuccess(kctx.Stdout, fmt.Sprintf("Saved stock card %s", session.Snapshot().ID))
	return nil
}

// pickReport lets the user choose among the inventory reports carrying the
// card's stock number.
func pickReport(ctx context.Context, a *app, card stockcard.StockCard) (string, error) {
	if !isTerminal() {
		return "", errors.New("--report is required when not running in a terminal")
	}

	reports, err := a.backend.InventoryReports(ctx, card.StockNumber)
	if err != nil {
		return "", err
	}
	if len(reports) == 0 {
		return "", fmt.Errorf("no inventory report carries stock number %s", card.StockNumber)
	}

	options := make([]huh.Option[string], 0, len(reports))
	for _, report := range reports {
		label := fmt.Sprintf("%s  %s", report.ID, report.AccountabilityDate.Format("2006-01-02"))
		if items := stockcard.ItemsFromReports(reports, report.ID, card.StockNumber); len(items) > 0 {
			label += fmt.Sprintf("  on hand %s", items[0].OnHandCount)
		}
		if sb, used := card.Balances.Get(report.ID); used {
			label += fmt.Sprintf("  remaining %s", sb.Remaining)
		}
		options = append(options, huh.NewOption(label, report.ID))
	}

	var reportID string
	err = huh.NewSelect[string]().
		Title(fmt.Sprintf("Inventory report for %s", card.StockNumber)).
		Options(options...).
		Value(&reportID).
		Run()
	if err != nil {
		return "", fmt.Errorf("failed to read selection: %w", err)
	}
	return reportID, nil
}

type RemoveCmd struct {
	Card    string   `help:"Stock card id." arg:""`
	Entries []string `help:"Entry ids to remove." arg:""`
	Yes     bool     `help:"Save without asking for confirmation." short:"y"`
}

func (cmd *RemoveCmd) Run(ctx *kong.Context, globals *Globals) error {
	runCtx, report := startTelemetry(context.Background(), ctx, globals, fmt.Sprintf("remove %s", cmd.Card))
	defer report()

	a, err := openApp(runCtx, ctx, globals, false)
	if err != nil {
		return err
	}
	defer a.Close()

	session, err := a.session(runCtx, cmd.Card)
	if err != nil {
		return err
	}

	removed := session.RemoveEntries(cmd.Entries)
	if removed == 0 {
		printError(ctx.Stderr, "no matching entries")
		return NewCommandError(1)
	}

	printInfof(ctx.Stdout, "Removed %d of %d entries", removed, len(cmd.Entries))
	printInfof(ctx.Stdout, "Report balances are unchanged; run verify to list stale attributions")

	return saveSession(runCtx, ctx, session, cmd.Yes)
}

type SeedCmd struct {
	Card    string `help:"Stock card id." arg:""`
	Replace bool   `help:"Replace existing entries."`
	Yes     bool   `help:"Save without asking for confirmation." short:"y"`
}

func (cmd *SeedCmd) Run(ctx *kong.Context, globals *Globals) error {
	runCtx, report := startTelemetry(context.Background(), ctx, globals, fmt.Sprintf("seed %s", cmd.Card))
	defer report()

	a, err := openApp(runCtx, ctx, globals, false)
	if err != nil {
		return err
	}
	defer a.Close()

	session, err := a.session(runCtx, cmd.Card)
	if err != nil {
		return err
	}
	card := session.Snapshot()

	if len(card.Entries) > 0 && !cmd.Replace {
		printError(ctx.Stderr, fmt.Sprintf("stock card %s already has %d entries, use --replace to overwrite them", card.ID, len(card.Entries)))
		return NewCommandError(1)
	}

	issued, err := a.backend.IssuedReports(runCtx)
	if err != nil {
		return err
	}

	entries := stockcard.FromIssuedReports(card.StockNumber, issued)
	if len(entries) == 0 {
		printInfof(ctx.Stdout, "No issued reports carry stock number %s", card.StockNumber)
		return nil
	}

	session.ReplaceEntries(entries)
	writeCard(ctx.Stdout, session.Snapshot())
	_, _ = fmt.Fprintln(ctx.Stdout)
	printInfof(ctx.Stdout, "Created %d entries from issued reports", len(entries))

	return saveSession(runCtx, ctx, session, cmd.Yes)
}
