// Package stockcard implements stock card bookkeeping: the entries recorded
// against one inventory item and the balances that track how much of each
// inventory report's on-hand count has been drawn down by those entries.
//
// A stock card holds an ordered list of entries. Each entry may take its
// received quantity from an inventory report (its source). The Balances table
// records, per inventory report, the quantity that remains unallocated and the
// per-entry attribution written at allocation time.
//
// All operations are pure: they take the current entries and balances and
// return new values, leaving their inputs untouched. Persistence belongs to
// the caller.
//
// Example usage:
//
//	engine := stockcard.NewEngine(book)
//	alloc, err := engine.Allocate(ctx, card.StockNumber, entry, "ir-2024-q1", card.Balances, card.Entries)
//	if err != nil {
//	    if stockcard.IsRejection(err) {
//	        // inform the user, nothing changed
//	    }
//	    return err
//	}
//	card.Entries, card.Balances = alloc.Entries, alloc.Balances
package stockcard

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// StockCard is the ledger document for one inventory item, identified by its
// stock number.
type StockCard struct {
	ID          string   `json:"id"`
	StockNumber string   `json:"stockNumber"`
	Description string   `json:"description,omitempty"`
	Unit        string   `json:"unit,omitempty"`
	Entries     []Entry  `json:"entries"`
	Balances    Balances `json:"balances"`
}

// Entry is one line of movement on a stock card.
type Entry struct {
	ID                string          `json:"id"`
	Date              *time.Time      `json:"date,omitempty"`
	Reference         string          `json:"reference,omitempty"`
	ReceivedQuantity  decimal.Decimal `json:"receivedQuantity"`
	RequestedQuantity decimal.Decimal `json:"requestedQuantity"`
	IssueQuantity     decimal.Decimal `json:"issueQuantity"`
	IssueOffice       string          `json:"issueOffice,omitempty"`

	// InventoryReportSourceID names the inventory report the received
	// quantity was drawn from. Empty while the entry is unsourced.
	InventoryReportSourceID string `json:"inventoryReportSourceId,omitempty"`
}

// Sourced reports whether the entry draws its received quantity from an
// inventory report.
func (e Entry) Sourced() bool {
	return e.InventoryReportSourceID != ""
}

// Balance returns the quantity left on hand after this entry's issue.
func (e Entry) Balance() decimal.Decimal {
	return e.ReceivedQuantity.Sub(e.IssueQuantity)
}

// Clone returns a copy of the card whose entries and balances can be replaced
// without affecting the original.
func (c StockCard) Clone() StockCard {
	entries := make([]Entry, len(c.Entries))
	copy(entries, c.Entries)
	c.Entries = entries
	c.Balances = c.Balances.clone()
	return c
}

// InventoryReport is a snapshot of on-hand counts as of an accountability date.
type InventoryReport struct {
	ID                 string                `json:"id"`
	AccountabilityDate time.Time             `json:"accountabilityDate"`
	Items              []InventoryReportItem `json:"items"`
}

// InventoryReportItem is the on-hand count of one stock number within an
// inventory report.
type InventoryReportItem struct {
	StockNumber string          `json:"stockNumber"`
	Article     string          `json:"article,omitempty"`
	Description string          `json:"description,omitempty"`
	Unit        string          `json:"unit,omitempty"`
	UnitValue   decimal.Decimal `json:"unitValue"`
	OnHandCount decimal.Decimal `json:"onHandCount"`
}

// IssuedReport records assets issued out to an office. Its items seed stock
// card entries.
type IssuedReport struct {
	ID           string             `json:"id"`
	SerialNumber string             `json:"serialNumber,omitempty"`
	Date         time.Time          `json:"date"`
	Office       string             `json:"office,omitempty"`
	Items        []IssuedReportItem `json:"items"`
}

// IssuedReportItem is one issued line of an issued report.
type IssuedReportItem struct {
	StockNumber string          `json:"stockNumber"`
	Description string          `json:"description,omitempty"`
	Unit        string          `json:"unit,omitempty"`
	IssuedCount decimal.Decimal `json:"issuedCount"`
}

// ItemQuerier returns the items of an inventory report that carry the given
// stock number.
type ItemQuerier interface {
	Items(ctx context.Context, reportID, stockNumber string) ([]InventoryReportItem, error)
}

// ItemQuerierFunc adapts a function to the ItemQuerier interface.
type ItemQuerierFunc func(ctx context.Context, reportID, stockNumber string) ([]InventoryReportItem, error)

// Items calls f.
func (f ItemQuerierFunc) Items(ctx context.Context, reportID, stockNumber string) ([]InventoryReportItem, error) {
	return f(ctx, reportID, stockNumber)
}

// ItemsFromReports returns the items of report matching stockNumber.
func ItemsFromReports(reports []InventoryReport, reportID, stockNumber string) []InventoryReportItem {
	var items []InventoryReportItem
	for _, report := range reports {
		if report.ID != reportID {
			continue
		}
		for _, item := range report.Items {
			if item.StockNumber == stockNumber {
				items = append(items, item)
			}
		}
	}
	return items
}
