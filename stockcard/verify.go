package stockcard

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/robinvdvleuten/stockcard/telemetry"
)

// Verify checks the card's balances against the current on-hand counts of
// their inventory reports. For every report in the balances, remaining must
// equal the on-hand count minus the issue quantities of the entries sourced
// from it. Attributions to entries that were removed or re-sourced are
// reported too.
//
// Returns *VerificationErrors when problems are found.
func (e *Engine) Verify(ctx context.Context, card StockCard) error {
	timer := telemetry.StartTimer(ctx, fmt.Sprintf("stockcard.verify %s", card.ID))
	defer timer.End()

	var errs []error

	byID := make(map[string]Entry, len(card.Entries))
	for _, entry := range card.Entries {
		byID[entry.ID] = entry
	}

	for _, reportID := range card.Balances.ReportIDs() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		sb := card.Balances[reportID]

		items, err := e.items.Items(ctx, reportID, card.StockNumber)
		if err != nil {
			return fmt.Errorf("failed to query inventory report %s: %w", reportID, err)
		}
		if len(items) == 0 {
			errs = append(errs, &SourceNotFoundError{ReportID: reportID, StockNumber: card.StockNumber})
			continue
		}

		expected := items[0].OnHandCount
		for _, sourced := range SourcedFrom(card.Entries, reportID) {
			expected = expected.Sub(sourced.IssueQuantity)
		}
		if !sb.Remaining.Equal(expected) {
			errs = append(errs, &BalanceMismatchError{ReportID: reportID, Remaining: sb.Remaining, Expected: expected})
		}

		for _, entryID := range sb.Entries.IDs() {
			entry, ok := byID[entryID]
			switch {
			case !ok:
				errs = append(errs, &StaleAttributionError{ReportID: reportID, EntryID: entryID, Removed: true})
			case entry.InventoryReportSourceID != reportID:
				errs = append(errs, &StaleAttributionError{ReportID: reportID, EntryID: entryID})
			}
		}
	}

	if len(errs) > 0 {
		return &VerificationErrors{CardID: card.ID, Errors: errs}
	}
	return nil
}

// Totals summarizes the quantities recorded on a card.
type Totals struct {
	Received  decimal.Decimal `json:"received"`
	Requested decimal.Decimal `json:"requested"`
	Issued    decimal.Decimal `json:"issued"`
	Remaining decimal.Decimal `json:"remaining"` // Sum of remaining over all source reports
}

// Totals returns the summed quantities of the card.
func (c StockCard) Totals() Totals {
	var t Totals
	for _, e := range c.Entries {
		t.Received = t.Received.Add(e.ReceivedQuantity)
		t.Requested = t.Requested.Add(e.RequestedQuantity)
		t.Issued = t.Issued.Add(e.IssueQuantity)
	}
	for _, sb := range c.Balances {
		t.Remaining = t.Remaining.Add(sb.Remaining)
	}
	return t
}
