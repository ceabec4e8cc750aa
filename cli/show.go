package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/alecthomas/kong"

	"github.com/robinvdvleuten/stockcard/output"
	"github.com/robinvdvleuten/stockcard/stockcard"
)

type ShowCmd struct {
	Card string `help:"Stock card id." arg:""`
}

func (cmd *ShowCmd) Run(ctx *kong.Context, globals *Globals) error {
	runCtx, report := startTelemetry(context.Background(), ctx, globals, fmt.Sprintf("show %s", cmd.Card))
	defer report()

	a, err := openApp(runCtx, ctx, globals, false)
	if err != nil {
		return err
	}
	defer a.Close()

	card, err := a.backend.Card(runCtx, cmd.Card)
	if err != nil {
		return err
	}

	writeCard(ctx.Stdout, card)
	return nil
}

// writeCard prints the card header, its entries and the report balances.
func writeCard(w io.Writer, card stockcard.StockCard) {
	styles := output.NewStyles(w)

	header := styles.StockNumber(card.StockNumber)
	if card.Description != "" {
		header += " " + styles.Keyword(card.Description)
	}
	if card.Unit != "" {
		header += styles.Dim(fmt.Sprintf(" (%s)", card.Unit))
	}
	_, _ = fmt.Fprintf(w, "%s %s\n\n", header, styles.Dim("["+card.ID+"]"))

	if len(card.Entries) == 0 {
		_, _ = fmt.Fprintln(w, styles.Dim("No entries"))
		return
	}

	t := newTable("ID", "DATE", "REFERENCE", "RECEIVED", "REQUESTED", "ISSUED", "BALANCE", "OFFICE", "SOURCE").
		alignRight(3, 4, 5, 6)
	for _, e := range card.Entries {
		date := ""
		if e.Date != nil {
			date = e.Date.Format("2006-01-02")
		}
		t.add(
			e.ID,
			date,
			e.Reference,
			e.ReceivedQuantity.String(),
			e.RequestedQuantity.String(),
			e.IssueQuantity.String(),
			e.Balance().String(),
			e.IssueOffice,
			e.InventoryReportSourceID,
		)
	}
	totals := card.Totals()
	t.add("Total", "", "", totals.Received.String(), totals.Requested.String(), totals.Issued.String())

	last := len(t.rows) - 1
	t.render(w, func(row, col int, cell string) string {
		switch {
		case row < 0, row == last:
			return styles.Keyword(cell)
		case col >= 3 && col <= 6:
			return styles.Quantity(cell)
		case col == 8:
			return styles.Report(cell)
		case col == 0:
			return styles.Dim(cell)
		}
		return cell
	})

	if len(card.Balances) == 0 {
		return
	}

	_, _ = fmt.Fprintf(w, "\n%s\n", styles.Keyword("Balances"))
	for _, reportID := range card.Balances.ReportIDs() {
		sb := card.Balances[reportID]
		_, _ = fmt.Fprintf(w, "  %s  remaining %s\n", styles.Report(reportID), styles.Quantity(sb.Remaining.String()))
		for _, entryID := range sb.Entries.IDs() {
			_, _ = fmt.Fprintf(w, "    %s %s\n", styles.Dim(entryID), sb.Entries[entryID])
		}
	}
}
