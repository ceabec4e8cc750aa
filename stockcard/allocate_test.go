package stockcard

import (
	"context"
	"errors"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/shopspring/decimal"
)

func qty(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func assertQty(t *testing.T, want int64, got decimal.Decimal) {
	t.Helper()
	assert.Equal(t, decimal.NewFromInt(want).String(), got.String())
}

// reportQuerier serves items from a fixed set of inventory reports.
func reportQuerier(reports ...InventoryReport) ItemQuerier {
	return ItemQuerierFunc(func(ctx context.Context, reportID, stockNumber string) ([]InventoryReportItem, error) {
		return ItemsFromReports(reports, reportID, stockNumber), nil
	})
}

func report(id string, onHand int64) InventoryReport {
	return InventoryReport{
		ID: id,
		Items: []InventoryReportItem{
			{StockNumber: "SN-0001", Description: "Bond paper A4", OnHandCount: qty(onHand)},
			{StockNumber: "SN-0002", Description: "Ballpen", OnHandCount: qty(1000)},
		},
	}
}

func entry(id string, issue int64) Entry {
	return Entry{ID: id, RequestedQuantity: qty(issue), IssueQuantity: qty(issue)}
}

func TestAllocateFirstUse(t *testing.T) {
	engine := NewEngine(reportQuerier(report("ir-1", 100)))
	entries := []Entry{entry("A", 30)}

	alloc, err := engine.Allocate(context.Background(), "SN-0001", entries[0], "ir-1", Balances{}, entries)
	assert.NoError(t, err)

	sb, ok := alloc.Balances.Get("ir-1")
	assert.True(t, ok)
	assertQty(t, 70, sb.Remaining)
	assert.Equal(t, []string{"A"}, sb.Entries.IDs())
	assertQty(t, 70, sb.Entries["A"])

	assertQty(t, 100, alloc.Entries[0].ReceivedQuantity)
	assert.Equal(t, "ir-1", alloc.Entries[0].InventoryReportSourceID)
	assert.True(t, alloc.Delta.FirstUse)
}

func TestAllocateRepeatedSource(t *testing.T) {
	engine := NewEngine(reportQuerier(report("ir-1", 100)))
	a := entry("A", 30)
	a.ReceivedQuantity = qty(100)
	a.InventoryReportSourceID = "ir-1"
	entries := []Entry{a, entry("B", 20)}
	balances := Balances{
		"ir-1": {Remaining: qty(70), Entries: EntryQuantity{"A": qty(70)}},
	}

	alloc, err := engine.Allocate(context.Background(), "SN-0001", entries[1], "ir-1", balances, entries)
	assert.NoError(t, err)

	sb := alloc.Balances["ir-1"]
	assertQty(t, 50, sb.Remaining)
	assert.Equal(t, []string{"A", "B"}, sb.Entries.IDs())
	assertQty(t, 70, sb.Entries["A"])
	assertQty(t, 50, sb.Entries["B"])
	assert.Equal(t, "{remaining: 50, A: 70, B: 50}", sb.String())

	// Received quantity is the balance before this allocation.
	assertQty(t, 70, alloc.Entries[1].ReceivedQuantity)
	assert.Equal(t, "ir-1", alloc.Entries[1].InventoryReportSourceID)
	assert.False(t, alloc.Delta.FirstUse)
}

func TestAllocateRejectionLeavesStateUntouched(t *testing.T) {
	engine := NewEngine(reportQuerier(report("ir-1", 10)))

	tests := []struct {
		name     string
		entry    Entry
		reportID string
		stock    string
		check    func(t *testing.T, err error)
	}{
		{
			name:     "InsufficientQuantity",
			entry:    entry("A", 11),
			reportID: "ir-1",
			stock:    "SN-0001",
			check: func(t *testing.T, err error) {
				var target *InsufficientQuantityError
				assert.True(t, errors.As(err, &target))
				assertQty(t, 10, target.OnHandCount)
				assertQty(t, 11, target.IssueQuantity)
				assert.Contains(t, err.Error(), "Insufficient quantity")
			},
		},
		{
			name:     "SourceNotFoundUnknownReport",
			entry:    entry("A", 1),
			reportID: "ir-missing",
			stock:    "SN-0001",
			check: func(t *testing.T, err error) {
				var target *SourceNotFoundError
				assert.True(t, errors.As(err, &target))
				assert.Equal(t, "ir-missing", target.GetReportID())
			},
		},
		{
			name:     "SourceNotFoundUnknownStockNumber",
			entry:    entry("A", 1),
			reportID: "ir-1",
			stock:    "SN-9999",
			check: func(t *testing.T, err error) {
				var target *SourceNotFoundError
				assert.True(t, errors.As(err, &target))
				assert.Contains(t, err.Error(), "SN-9999")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries := []Entry{entry("A", 5), entry("B", 3)}
			balances := Balances{"ir-0": {Remaining: qty(4), Entries: EntryQuantity{"B": qty(4)}}}
			entriesBefore := []Entry{entry("A", 5), entry("B", 3)}
			balancesBefore := Balances{"ir-0": {Remaining: qty(4), Entries: EntryQuantity{"B": qty(4)}}}

			alloc, err := engine.Allocate(context.Background(), tt.stock, tt.entry, tt.reportID, balances, entries)
			assert.Error(t, err)
			assert.Zero(t, alloc)
			assert.True(t, IsRejection(err))
			tt.check(t, err)

			assert.Equal(t, len(entriesBefore), len(entries))
			for i := range entries {
				assert.Equal(t, entriesBefore[i].ID, entries[i].ID)
				assert.Equal(t, entriesBefore[i].ReceivedQuantity.String(), entries[i].ReceivedQuantity.String())
				assert.Equal(t, "", entries[i].InventoryReportSourceID)
			}
			assert.Equal(t, balancesBefore["ir-0"].String(), balances["ir-0"].String())
			assert.Equal(t, 1, len(balances))
		})
	}
}

func TestAllocateEntryNotFound(t *testing.T) {
	engine := NewEngine(reportQuerier(report("ir-1", 100)))
	entries := []Entry{entry("A", 5)}

	_, err := engine.Allocate(context.Background(), "SN-0001", entry("ghost", 5), "ir-1", Balances{}, entries)
	var target *EntryNotFoundError
	assert.True(t, errors.As(err, &target))
	assert.Equal(t, "ghost", target.GetEntryID())
	assert.False(t, IsRejection(err))
}

func TestAllocateBoundary(t *testing.T) {
	engine := NewEngine(reportQuerier(report("ir-1", 50)))
	entries := []Entry{entry("A", 50), entry("B", 1)}

	t.Run("IssueEqualToOnHandIsAccepted", func(t *testing.T) {
		alloc, err := engine.Allocate(context.Background(), "SN-0001", entries[0], "ir-1", Balances{}, entries)
		assert.NoError(t, err)
		assertQty(t, 0, alloc.Balances["ir-1"].Remaining)
	})

	t.Run("GuardUsesOnHandCountNotRemaining", func(t *testing.T) {
		first, err := engine.Allocate(context.Background(), "SN-0001", entries[0], "ir-1", Balances{}, entries)
		assert.NoError(t, err)

		// The report is exhausted, but the guard compares against the
		// on-hand count of the report item, so the allocation goes through
		// and drives the remaining balance negative.
		second, err := engine.Allocate(context.Background(), "SN-0001", first.Entries[1], "ir-1", first.Balances, first.Entries)
		assert.NoError(t, err)
		assertQty(t, -1, second.Balances["ir-1"].Remaining)
		assertQty(t, 0, second.Entries[1].ReceivedQuantity)
	})

	t.Run("IssueAboveOnHandIsRejected", func(t *testing.T) {
		over := entry("C", 51)
		_, err := engine.Allocate(context.Background(), "SN-0001", over, "ir-1", Balances{}, append(entries, over))
		var target *InsufficientQuantityError
		assert.True(t, errors.As(err, &target))
	})
}

func TestAllocateConservation(t *testing.T) {
	const onHand = 100
	issues := []int64{10, 25, 5, 30, 0, 20}

	engine := NewEngine(reportQuerier(report("ir-1", onHand)))

	var entries []Entry
	for i, issue := range issues {
		entries = append(entries, entry(string(rune('A'+i)), issue))
	}

	balances := Balances{}
	var issued int64
	for i, issue := range issues {
		alloc, err := engine.Allocate(context.Background(), "SN-0001", entries[i], "ir-1", balances, entries)
		assert.NoError(t, err)
		entries, balances = alloc.Entries, alloc.Balances

		issued += issue
		remaining := balances["ir-1"].Remaining
		assertQty(t, onHand-issued, remaining)
		assert.False(t, remaining.IsNegative())
	}

	assert.NoError(t, engine.Verify(context.Background(), StockCard{
		ID:          "sc-1",
		StockNumber: "SN-0001",
		Entries:     entries,
		Balances:    balances,
	}))
}

func TestAllocateDoesNotMutateInputs(t *testing.T) {
	engine := NewEngine(reportQuerier(report("ir-1", 100), report("ir-2", 40)))
	entries := []Entry{entry("A", 10), entry("B", 5), entry("C", 1)}
	balances := Balances{
		"ir-1": {Remaining: qty(90), Entries: EntryQuantity{"A": qty(90)}},
		"ir-2": {Remaining: qty(40), Entries: EntryQuantity{}},
	}

	alloc, err := engine.Allocate(context.Background(), "SN-0001", entries[1], "ir-1", balances, entries)
	assert.NoError(t, err)

	// Inputs unchanged.
	assert.Equal(t, "", entries[1].InventoryReportSourceID)
	assertQty(t, 90, balances["ir-1"].Remaining)
	assert.Equal(t, 1, len(balances["ir-1"].Entries))

	// Exactly one entry changed, in place, order preserved.
	assert.Equal(t, []string{"A", "B", "C"}, ids(alloc.Entries))
	assert.Equal(t, entries[0], alloc.Entries[0])
	assert.Equal(t, entries[2], alloc.Entries[2])
	assert.Equal(t, "ir-1", alloc.Entries[1].InventoryReportSourceID)

	// Exactly one balance key changed.
	assert.Equal(t, 2, len(alloc.Balances))
	assert.Equal(t, balances["ir-2"].String(), alloc.Balances["ir-2"].String())
	assertQty(t, 85, alloc.Balances["ir-1"].Remaining)
}

func TestAllocateResourcingKeepsOldAttribution(t *testing.T) {
	engine := NewEngine(reportQuerier(report("ir-1", 100), report("ir-2", 60)))
	entries := []Entry{entry("A", 10)}

	first, err := engine.Allocate(context.Background(), "SN-0001", entries[0], "ir-1", Balances{}, entries)
	assert.NoError(t, err)

	second, err := engine.Allocate(context.Background(), "SN-0001", first.Entries[0], "ir-2", first.Balances, first.Entries)
	assert.NoError(t, err)

	assert.Equal(t, "ir-2", second.Entries[0].InventoryReportSourceID)
	assertQty(t, 60, second.Entries[0].ReceivedQuantity)
	// The previous source keeps its remaining and attribution.
	assertQty(t, 90, second.Balances["ir-1"].Remaining)
	assertQty(t, 90, second.Balances["ir-1"].Entries["A"])
	assertQty(t, 50, second.Balances["ir-2"].Remaining)
}

func TestAllocateQuerierFailure(t *testing.T) {
	boom := errors.New("connection refused")
	engine := NewEngine(ItemQuerierFunc(func(ctx context.Context, reportID, stockNumber string) ([]InventoryReportItem, error) {
		return nil, boom
	}))
	entries := []Entry{entry("A", 1)}

	_, err := engine.Allocate(context.Background(), "SN-0001", entries[0], "ir-1", Balances{}, entries)
	assert.True(t, errors.Is(err, boom))
	assert.False(t, IsRejection(err))
}

func TestAllocateCanceledContext(t *testing.T) {
	engine := NewEngine(reportQuerier(report("ir-1", 100)))
	entries := []Entry{entry("A", 1)}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.Allocate(ctx, "SN-0001", entries[0], "ir-1", Balances{}, entries)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestAllocateCard(t *testing.T) {
	engine := NewEngine(reportQuerier(report("ir-1", 100)))
	card := StockCard{
		ID:          "sc-1",
		StockNumber: "SN-0001",
		Entries:     []Entry{entry("A", 30)},
	}

	t.Run("UpdatesCard", func(t *testing.T) {
		next, err := engine.AllocateCard(context.Background(), card, "A", "ir-1")
		assert.NoError(t, err)
		assertQty(t, 100, next.Entries[0].ReceivedQuantity)
		assertQty(t, 70, next.Balances["ir-1"].Remaining)
		assert.Equal(t, 0, len(card.Balances))
	})

	t.Run("UnknownEntry", func(t *testing.T) {
		_, err := engine.AllocateCard(context.Background(), card, "Z", "ir-1")
		var target *EntryNotFoundError
		assert.True(t, errors.As(err, &target))
	})
}

func TestAllocationDeltaString(t *testing.T) {
	engine := NewEngine(reportQuerier(report("ir-1", 100)))
	entries := []Entry{entry("A", 30)}

	delta, err := engine.Plan(context.Background(), "SN-0001", entries[0], "ir-1", Balances{}, entries)
	assert.NoError(t, err)
	assert.Equal(t, "Allocate 30 for entry A from ir-1 (received 100, remaining 70)", delta.String())
}

func ids(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}
