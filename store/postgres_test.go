package store

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"
	"github.com/shopspring/decimal"

	"github.com/robinvdvleuten/stockcard/loader"
	"github.com/robinvdvleuten/stockcard/stockcard"
)

func testEnv(t *testing.T, name string) string {
	t.Helper()
	value := os.Getenv(name)
	if value == "" {
		t.Skipf("%s not set", name)
	}
	return value
}

func TestPostgres(t *testing.T) {
	dsn := testEnv(t, "STOCKCARD_TEST_POSTGRES_DSN")
	ctx := context.Background()
	logger := discardLogger()

	assert.NoError(t, Migrate(ctx, dsn, logger))
	version, err := MigrationVersion(ctx, dsn, logger)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), version)

	db, err := Connect(ctx, dsn, logger)
	assert.NoError(t, err)
	defer db.Close()

	suffix := stockcard.NewEntryID()
	reportID := "ir-" + suffix
	cardID := "sc-" + suffix
	stockNumber := "SN-" + suffix

	book := &loader.Book{
		InventoryReports: []stockcard.InventoryReport{{
			ID:                 reportID,
			AccountabilityDate: time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
			Items: []stockcard.InventoryReportItem{
				{StockNumber: stockNumber, Description: "Bond paper A4", UnitValue: decimal.RequireFromString("215.50"), OnHandCount: decimal.NewFromInt(100)},
			},
		}},
		IssuedReports: []stockcard.IssuedReport{{
			ID:   "ris-" + suffix,
			Date: time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC),
			Items: []stockcard.IssuedReportItem{
				{StockNumber: stockNumber, IssuedCount: decimal.NewFromInt(30)},
			},
		}},
		StockCards: []stockcard.StockCard{{ID: cardID, StockNumber: stockNumber}},
	}
	assert.NoError(t, db.Import(ctx, book))

	t.Run("Items", func(t *testing.T) {
		items, err := db.Items(ctx, reportID, stockNumber)
		assert.NoError(t, err)
		assert.Equal(t, 1, len(items))
		assert.Equal(t, "100", items[0].OnHandCount.String())
		assert.Equal(t, "215.5", items[0].UnitValue.String())
	})

	t.Run("InventoryReports", func(t *testing.T) {
		reports, err := db.InventoryReports(ctx, stockNumber)
		assert.NoError(t, err)
		assert.Equal(t, 1, len(reports))
		assert.Equal(t, reportID, reports[0].ID)
	})

	t.Run("AllocateAndSave", func(t *testing.T) {
		card, err := db.Card(ctx, cardID)
		assert.NoError(t, err)

		issued, err := db.IssuedReports(ctx)
		assert.NoError(t, err)
		card.Entries = stockcard.FromIssuedReports(stockNumber, issued)
		assert.Equal(t, 1, len(card.Entries))

		engine := stockcard.NewEngine(db)
		card, err = engine.AllocateCard(ctx, card, card.Entries[0].ID, reportID)
		assert.NoError(t, err)
		assert.NoError(t, db.Save(ctx, card))

		saved, err := db.Card(ctx, cardID)
		assert.NoError(t, err)
		assert.Equal(t, "70", saved.Balances[reportID].Remaining.String())
		assert.NoError(t, engine.Verify(ctx, saved))
	})

	t.Run("CardNotFound", func(t *testing.T) {
		_, err := db.Card(ctx, "sc-missing-"+suffix)
		var notFound *CardNotFoundError
		assert.True(t, errors.As(err, &notFound))
	})
}
