package stockcard

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/exp/slices"

	"github.com/robinvdvleuten/stockcard/telemetry"
)

// Allocations are computed in two steps, like the rest of this package:
// Plan validates a request against the current state and returns a delta,
// Apply turns a delta into new entries and balances. Neither step mutates
// its inputs.

// AllocationDelta describes the change an allocation makes to a stock card.
type AllocationDelta struct {
	Index    int           // Position of the entry in the entry list
	Entry    Entry         // Entry after allocation
	ReportID string        // Inventory report used as source
	Balance  SourceBalance // Report balance after allocation
	FirstUse bool          // Report had no balance before this allocation
}

// String returns a human-readable representation of the delta
func (d *AllocationDelta) String() string {
	var sb strings.Builder
	sb.WriteString("Allocate ")
	sb.WriteString(d.Entry.IssueQuantity.String())
	sb.WriteString(" for entry ")
	sb.WriteString(d.Entry.ID)
	sb.WriteString(" from ")
	sb.WriteString(d.ReportID)
	sb.WriteString(" (received ")
	sb.WriteString(d.Entry.ReceivedQuantity.String())
	sb.WriteString(", remaining ")
	sb.WriteString(d.Balance.Remaining.String())
	sb.WriteByte(')')
	return sb.String()
}

// Apply returns new entries and balances with the delta applied. The given
// slices and maps are not modified.
func (d *AllocationDelta) Apply(balances Balances, entries []Entry) ([]Entry, Balances) {
	next := make([]Entry, len(entries))
	copy(next, entries)
	next[d.Index] = d.Entry
	return next, balances.with(d.ReportID, d.Balance)
}

// Allocation is the result of a successful allocation.
type Allocation struct {
	Entries  []Entry
	Balances Balances
	Delta    *AllocationDelta
}

// Engine allocates inventory report quantities to stock card entries.
type Engine struct {
	items ItemQuerier
}

// NewEngine creates an engine that looks up report items through items.
func NewEngine(items ItemQuerier) *Engine {
	return &Engine{items: items}
}

// Plan validates assigning reportID as the source of entry and returns the
// resulting delta.
//
// The sufficiency check compares the issue quantity with the on-hand count
// freshly read from the report item, not with the remaining balance already
// tracked for that report.
func (e *Engine) Plan(ctx context.Context, stockNumber string, entry Entry, reportID string, balances Balances, entries []Entry) (*AllocationDelta, error) {
	timer := telemetry.StartTimer(ctx, fmt.Sprintf("stockcard.allocate %s <- %s", entry.ID, reportID))
	defer timer.End()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	items, err := e.items.Items(ctx, reportID, stockNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to query inventory report %s: %w", reportID, err)
	}
	if len(items) == 0 {
		return nil, &SourceNotFoundError{ReportID: reportID, StockNumber: stockNumber, EntryID: entry.ID}
	}

	onHand := items[0].OnHandCount
	if onHand.LessThan(entry.IssueQuantity) {
		return nil, &InsufficientQuantityError{
			ReportID:      reportID,
			StockNumber:   stockNumber,
			EntryID:       entry.ID,
			OnHandCount:   onHand,
			IssueQuantity: entry.IssueQuantity,
		}
	}

	index := slices.IndexFunc(entries, func(e Entry) bool { return e.ID == entry.ID })
	if index < 0 {
		return nil, &EntryNotFoundError{EntryID: entry.ID}
	}

	delta := &AllocationDelta{Index: index, Entry: entry, ReportID: reportID}
	delta.Entry.InventoryReportSourceID = reportID

	if current, ok := balances.Get(reportID); ok {
		// The attribution records the remaining balance after this
		// allocation, not the consumed quantity.
		remaining := current.Remaining.Sub(entry.IssueQuantity)
		delta.Balance = current.withEntry(entry.ID, remaining, remaining)
		delta.Entry.ReceivedQuantity = current.Remaining
		return delta, nil
	}

	remaining := onHand.Sub(entry.IssueQuantity)
	delta.Balance = SourceBalance{
		Remaining: remaining,
		Entries:   EntryQuantity{entry.ID: remaining},
	}
	delta.Entry.ReceivedQuantity = onHand
	delta.FirstUse = true

	return delta, nil
}

// Allocate assigns reportID as the source of entry. On success exactly one
// entry and one balance key differ from the inputs; on failure nothing is
// returned and the inputs are unchanged.
func (e *Engine) Allocate(ctx context.Context, stockNumber string, entry Entry, reportID string, balances Balances, entries []Entry) (*Allocation, error) {
	delta, err := e.Plan(ctx, stockNumber, entry, reportID, balances, entries)
	if err != nil {
		return nil, err
	}

	nextEntries, nextBalances := delta.Apply(balances, entries)
	return &Allocation{Entries: nextEntries, Balances: nextBalances, Delta: delta}, nil
}

// AllocateCard allocates reportID to the card entry with the given id and
// returns the updated card. The entry is looked up before the report is
// queried.
func (e *Engine) AllocateCard(ctx context.Context, card StockCard, entryID, reportID string) (StockCard, error) {
	entry, ok := FindEntry(card.Entries, entryID)
	if !ok {
		return card, &EntryNotFoundError{EntryID: entryID}
	}

	alloc, err := e.Allocate(ctx, card.StockNumber, entry, reportID, card.Balances, card.Entries)
	if err != nil {
		return card, err
	}

	card.Entries = alloc.Entries
	card.Balances = alloc.Balances
	return card, nil
}
