// Package store persists stock cards and serves inventory report items to the
// allocation engine. Two backends are provided: FileStore keeps everything in
// book files on disk, Postgres keeps it in a database. CachedQuerier puts a
// Redis cache in front of either one's item lookups.
package store

import (
	"context"
	"fmt"

	"github.com/robinvdvleuten/stockcard/stockcard"
)

// Backend is implemented by every store.
type Backend interface {
	stockcard.ItemQuerier

	// Card returns the stock card with the given id, or *CardNotFoundError.
	Card(ctx context.Context, id string) (stockcard.StockCard, error)

	// Cards returns all stock cards ordered by stock number.
	Cards(ctx context.Context) ([]stockcard.StockCard, error)

	// Save writes the card in a single write. Failures are returned as
	// *stockcard.PersistenceError.
	Save(ctx context.Context, card stockcard.StockCard) error

	// InventoryReports returns the reports that carry stockNumber, ordered by
	// accountability date.
	InventoryReports(ctx context.Context, stockNumber string) ([]stockcard.InventoryReport, error)

	// IssuedReports returns all issued reports.
	IssuedReports(ctx context.Context) ([]stockcard.IssuedReport, error)
}

// CardNotFoundError is returned when a stock card does not exist.
type CardNotFoundError struct {
	ID string
}

func (e *CardNotFoundError) Error() string {
	return fmt.Sprintf("Stock card %s not found", e.ID)
}

func persistenceError(cardID string, err error) error {
	return &stockcard.PersistenceError{CardID: cardID, Err: err}
}
