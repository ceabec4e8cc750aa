package stockcard

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Balances maps an inventory report id to the allocation state of that report.
type Balances map[string]SourceBalance

// SourceBalance is the allocation state of one inventory report used as a
// quantity source.
type SourceBalance struct {
	// Remaining is the running unallocated quantity of the report.
	Remaining decimal.Decimal `json:"remaining"`

	// Entries holds, per stock card entry, the value recorded when that entry
	// was allocated against this report. It is kept for display and audit and
	// is never used to re-derive Remaining.
	Entries EntryQuantity `json:"entries"`
}

// EntryQuantity maps a stock card entry id to a quantity.
type EntryQuantity map[string]decimal.Decimal

// Get returns the balance for a report and whether the report has been used
// as a source before.
func (b Balances) Get(reportID string) (SourceBalance, bool) {
	sb, ok := b[reportID]
	return sb, ok
}

// ReportIDs returns the report ids in sorted order.
func (b Balances) ReportIDs() []string {
	ids := make([]string, 0, len(b))
	for id := range b {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// with returns a copy of b where reportID is set to sb. Unchanged report
// entries are shared with b.
func (b Balances) with(reportID string, sb SourceBalance) Balances {
	next := make(Balances, len(b)+1)
	for id, v := range b {
		next[id] = v
	}
	next[reportID] = sb
	return next
}

// clone returns a copy of b. Entry maps are copied too.
func (b Balances) clone() Balances {
	if b == nil {
		return nil
	}
	next := make(Balances, len(b))
	for id, v := range b {
		next[id] = SourceBalance{Remaining: v.Remaining, Entries: v.Entries.clone()}
	}
	return next
}

// withEntry returns a copy of sb with remaining set and entryID recorded as qty.
func (sb SourceBalance) withEntry(entryID string, remaining, qty decimal.Decimal) SourceBalance {
	entries := make(EntryQuantity, len(sb.Entries)+1)
	for id, v := range sb.Entries {
		entries[id] = v
	}
	entries[entryID] = qty
	return SourceBalance{Remaining: remaining, Entries: entries}
}

// IDs returns the entry ids in sorted order.
func (q EntryQuantity) IDs() []string {
	ids := make([]string, 0, len(q))
	for id := range q {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (q EntryQuantity) clone() EntryQuantity {
	if q == nil {
		return nil
	}
	next := make(EntryQuantity, len(q))
	for id, v := range q {
		next[id] = v
	}
	return next
}

// String returns a deterministic representation, e.g. "{remaining: 50, A: 70, B: 50}".
func (sb SourceBalance) String() string {
	var buf strings.Builder
	buf.WriteString("{remaining: ")
	buf.WriteString(sb.Remaining.String())
	for _, id := range sb.Entries.IDs() {
		buf.WriteString(", ")
		buf.WriteString(id)
		buf.WriteString(": ")
		buf.WriteString(sb.Entries[id].String())
	}
	buf.WriteByte('}')
	return buf.String()
}
