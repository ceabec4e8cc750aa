package stockcard

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/exp/slices"
)

// NewEntryID returns a fresh entry identifier.
func NewEntryID() string {
	return uuid.NewString()
}

// FindEntry returns the entry with the given id.
func FindEntry(entries []Entry, id string) (Entry, bool) {
	i := slices.IndexFunc(entries, func(e Entry) bool { return e.ID == id })
	if i < 0 {
		return Entry{}, false
	}
	return entries[i], true
}

// RemoveEntries returns the entries whose id is not in ids, in their original
// order. Balances are not touched: quantities attributed to removed entries
// stay recorded against their source reports.
func RemoveEntries(entries []Entry, ids []string) []Entry {
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}

	kept := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if _, ok := drop[e.ID]; ok {
			continue
		}
		kept = append(kept, e)
	}
	return kept
}

// AddEntry appends e to entries. An empty id is replaced by a new one.
func AddEntry(entries []Entry, e Entry) ([]Entry, Entry, error) {
	if e.ID == "" {
		e.ID = NewEntryID()
	}
	if _, exists := FindEntry(entries, e.ID); exists {
		return nil, Entry{}, &DuplicateEntryError{EntryID: e.ID}
	}
	if err := validateQuantities(e); err != nil {
		return nil, Entry{}, err
	}

	next := make([]Entry, len(entries), len(entries)+1)
	copy(next, entries)
	return append(next, e), e, nil
}

// EntryPatch holds the editable fields of an entry. Nil fields are left as is.
// The received quantity and source are owned by allocation and cannot be
// patched. Changing the issue quantity of a sourced entry does not touch the
// report balance, whose remaining quantity still reflects the old issue;
// Verify reports the difference as a BalanceMismatchError.
type EntryPatch struct {
	Date              *time.Time       `json:"date,omitempty"`
	Reference         *string          `json:"reference,omitempty"`
	RequestedQuantity *decimal.Decimal `json:"requestedQuantity,omitempty"`
	IssueQuantity     *decimal.Decimal `json:"issueQuantity,omitempty"`
	IssueOffice       *string          `json:"issueOffice,omitempty"`
}

// UpdateEntry returns entries with the patch applied to the entry with the
// given id.
func UpdateEntry(entries []Entry, id string, patch EntryPatch) ([]Entry, Entry, error) {
	i := slices.IndexFunc(entries, func(e Entry) bool { return e.ID == id })
	if i < 0 {
		return nil, Entry{}, &EntryNotFoundError{EntryID: id}
	}

	e := entries[i]
	if patch.Date != nil {
		d := *patch.Date
		e.Date = &d
	}
	if patch.Reference != nil {
		e.Reference = *patch.Reference
	}
	if patch.RequestedQuantity != nil {
		e.RequestedQuantity = *patch.RequestedQuantity
	}
	if patch.IssueQuantity != nil {
		e.IssueQuantity = *patch.IssueQuantity
	}
	if patch.IssueOffice != nil {
		e.IssueOffice = *patch.IssueOffice
	}
	if err := validateQuantities(e); err != nil {
		return nil, Entry{}, err
	}

	next := make([]Entry, len(entries))
	copy(next, entries)
	next[i] = e
	return next, e, nil
}

func validateQuantities(e Entry) error {
	fields := []struct {
		name  string
		value decimal.Decimal
	}{
		{"receivedQuantity", e.ReceivedQuantity},
		{"requestedQuantity", e.RequestedQuantity},
		{"issueQuantity", e.IssueQuantity},
	}
	for _, f := range fields {
		if f.value.IsNegative() {
			return &InvalidQuantityError{EntryID: e.ID, Field: f.name, Value: f.value}
		}
	}
	return nil
}

// FromIssuedReports builds unsourced entries from the issued report items
// carrying stockNumber, ordered by report date.
func FromIssuedReports(stockNumber string, reports []IssuedReport) []Entry {
	sorted := make([]IssuedReport, len(reports))
	copy(sorted, reports)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	var entries []Entry
	for _, report := range sorted {
		reference := report.SerialNumber
		if reference == "" {
			reference = report.ID
		}
		for _, item := range report.Items {
			if item.StockNumber != stockNumber {
				continue
			}
			date := report.Date
			entries = append(entries, Entry{
				ID:                NewEntryID(),
				Date:              &date,
				Reference:         reference,
				RequestedQuantity: item.IssuedCount,
				IssueQuantity:     item.IssuedCount,
				IssueOffice:       report.Office,
			})
		}
	}
	return entries
}

// SourcedFrom returns the entries currently drawing from reportID.
func SourcedFrom(entries []Entry, reportID string) []Entry {
	var sourced []Entry
	for _, e := range entries {
		if e.InventoryReportSourceID == reportID {
			sourced = append(sourced, e)
		}
	}
	return sourced
}
