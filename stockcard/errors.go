package stockcard

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Error types for stock card operations

// SourceNotFoundError is returned when the chosen inventory report has no item
// for the stock card's stock number.
type SourceNotFoundError struct {
	ReportID    string
	StockNumber string
	EntryID     string
}

func (e *SourceNotFoundError) Error() string {
	return fmt.Sprintf("Inventory report %s has no item for stock number %s", e.ReportID, e.StockNumber)
}

func (e *SourceNotFoundError) GetReportID() string {
	return e.ReportID
}

func (e *SourceNotFoundError) GetEntryID() string {
	return e.EntryID
}

// InsufficientQuantityError is returned when an entry's issue quantity
// exceeds the on-hand count of the chosen inventory report item.
type InsufficientQuantityError struct {
	ReportID      string
	StockNumber   string
	EntryID       string
	OnHandCount   decimal.Decimal
	IssueQuantity decimal.Decimal
}

func (e *InsufficientQuantityError) Error() string {
	return fmt.Sprintf("Insufficient quantity for entry %s: inventory report %s has %s on hand for stock number %s, issue requires %s",
		e.EntryID, e.ReportID, e.OnHandCount, e.StockNumber, e.IssueQuantity)
}

func (e *InsufficientQuantityError) GetReportID() string {
	return e.ReportID
}

func (e *InsufficientQuantityError) GetEntryID() string {
	return e.EntryID
}

// EntryNotFoundError is returned when the entry being changed is not part of
// the entry list. It signals a broken caller invariant.
type EntryNotFoundError struct {
	EntryID string
}

func (e *EntryNotFoundError) Error() string {
	return fmt.Sprintf("Stock card entry %s not found", e.EntryID)
}

func (e *EntryNotFoundError) GetEntryID() string {
	return e.EntryID
}

// DuplicateEntryError is returned when adding an entry whose id already exists.
type DuplicateEntryError struct {
	EntryID string
}

func (e *DuplicateEntryError) Error() string {
	return fmt.Sprintf("Stock card entry %s already exists", e.EntryID)
}

func (e *DuplicateEntryError) GetEntryID() string {
	return e.EntryID
}

// InvalidQuantityError is returned when an entry carries a negative quantity.
type InvalidQuantityError struct {
	EntryID string
	Field   string
	Value   decimal.Decimal
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("Invalid %s %s for entry %s: must not be negative", e.Field, e.Value, e.EntryID)
}

func (e *InvalidQuantityError) GetEntryID() string {
	return e.EntryID
}

// PersistenceError is returned when saving a stock card fails. The in-memory
// state that was being saved is left intact so the save can be retried.
type PersistenceError struct {
	CardID string
	Err    error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("Failed to save stock card %s: %v", e.CardID, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// BalanceMismatchError is reported by Verify when a report's remaining
// quantity differs from its on-hand count minus the issues sourced from it.
type BalanceMismatchError struct {
	ReportID  string
	Remaining decimal.Decimal
	Expected  decimal.Decimal
}

func (e *BalanceMismatchError) Error() string {
	return fmt.Sprintf("Balance for inventory report %s does not match: remaining %s, expected %s (difference %s)",
		e.ReportID, e.Remaining, e.Expected, e.Remaining.Sub(e.Expected))
}

func (e *BalanceMismatchError) GetReportID() string {
	return e.ReportID
}

// StaleAttributionError is reported by Verify when a report still attributes
// a quantity to an entry that was removed or re-sourced elsewhere.
type StaleAttributionError struct {
	ReportID string
	EntryID  string
	Removed  bool // true when the entry is gone from the card
}

func (e *StaleAttributionError) Error() string {
	if e.Removed {
		return fmt.Sprintf("Inventory report %s still attributes a quantity to removed entry %s", e.ReportID, e.EntryID)
	}
	return fmt.Sprintf("Inventory report %s still attributes a quantity to entry %s, which is now sourced elsewhere", e.ReportID, e.EntryID)
}

func (e *StaleAttributionError) GetReportID() string {
	return e.ReportID
}

func (e *StaleAttributionError) GetEntryID() string {
	return e.EntryID
}

// VerificationErrors wraps all problems found by Verify.
type VerificationErrors struct {
	CardID string
	Errors []error
}

func (e *VerificationErrors) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d verification errors occurred", len(e.Errors))
}

// Unwrap returns the underlying errors for error unwrapping
func (e *VerificationErrors) Unwrap() []error {
	return e.Errors
}

// IsRejection reports whether err is a validation failure that left the
// stock card untouched and should be shown to the user.
func IsRejection(err error) bool {
	var notFound *SourceNotFoundError
	var insufficient *InsufficientQuantityError
	return errors.As(err, &notFound) || errors.As(err, &insufficient)
}
