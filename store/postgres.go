package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/robinvdvleuten/stockcard/loader"
	"github.com/robinvdvleuten/stockcard/stockcard"
	"github.com/robinvdvleuten/stockcard/telemetry"
)

// Postgres stores stock cards as JSONB documents and inventory and issued
// reports in relational tables.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// Connect opens a connection pool for dsn and checks it is reachable.
func Connect(ctx context.Context, dsn string, logger *slog.Logger) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}

	return NewPostgres(pool, logger), nil
}

// NewPostgres wraps an existing pool.
func NewPostgres(pool *pgxpool.Pool, logger *slog.Logger) *Postgres {
	return &Postgres{pool: pool, logger: logger}
}

// Close closes the pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

func (p *Postgres) Items(ctx context.Context, reportID, stockNumber string) ([]stockcard.InventoryReportItem, error) {
	timer := telemetry.StartTimer(ctx, "postgres.items "+reportID)
	defer timer.End()

	rows, err := p.pool.Query(ctx, `
		SELECT stock_number, article, description, unit, unit_value::text, on_hand_count::text
		FROM inventory_report_items
		WHERE report_id = $1 AND stock_number = $2
		ORDER BY position
	`, reportID, stockNumber)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []stockcard.InventoryReportItem
	for rows.Next() {
		item, err := scanInventoryItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanInventoryItem(row pgx.Row, extra ...any) (stockcard.InventoryReportItem, error) {
	var item stockcard.InventoryReportItem
	var unitValue, onHand string

	dest := append(extra, &item.StockNumber, &item.Article, &item.Description, &item.Unit, &unitValue, &onHand)
	if err := row.Scan(dest...); err != nil {
		return item, err
	}

	var err error
	if item.UnitValue, err = decimal.NewFromString(unitValue); err != nil {
		return item, fmt.Errorf("invalid unit value %q: %w", unitValue, err)
	}
	if item.OnHandCount, err = decimal.NewFromString(onHand); err != nil {
		return item, fmt.Errorf("invalid on-hand count %q: %w", onHand, err)
	}
	return item, nil
}

func (p *Postgres) Card(ctx context.Context, id string) (stockcard.StockCard, error) {
	var card stockcard.StockCard
	var document []byte

	err := p.pool.QueryRow(ctx, `SELECT document FROM stock_cards WHERE id = $1`, id).Scan(&document)
	if errors.Is(err, pgx.ErrNoRows) {
		return card, &CardNotFoundError{ID: id}
	}
	if err != nil {
		return card, err
	}

	if err := json.Unmarshal(document, &card); err != nil {
		return card, fmt.Errorf("invalid stock card document %s: %w", id, err)
	}
	return card, nil
}

func (p *Postgres) Cards(ctx context.Context) ([]stockcard.StockCard, error) {
	rows, err := p.pool.Query(ctx, `SELECT id, document FROM stock_cards ORDER BY stock_number, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cards []stockcard.StockCard
	for rows.Next() {
		var id string
		var document []byte
		if err := rows.Scan(&id, &document); err != nil {
			return nil, err
		}
		var card stockcard.StockCard
		if err := json.Unmarshal(document, &card); err != nil {
			return nil, fmt.Errorf("invalid stock card document %s: %w", id, err)
		}
		cards = append(cards, card)
	}
	return cards, rows.Err()
}

// Save upserts the card document in one statement.
func (p *Postgres) Save(ctx context.Context, card stockcard.StockCard) error {
	timer := telemetry.StartTimer(ctx, "postgres.save "+card.ID)
	defer timer.End()

	document, err := json.Marshal(card)
	if err != nil {
		return persistenceError(card.ID, err)
	}

	_, err = p.pool.Exec(ctx, `
		INSERT INTO stock_cards (id, stock_number, document, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (id)
		DO UPDATE SET stock_number = EXCLUDED.stock_number, document = EXCLUDED.document, updated_at = now()
	`, card.ID, card.StockNumber, document)
	if err != nil {
		p.logger.Error("saving stock card failed", "card", card.ID, "err", err)
		return persistenceError(card.ID, err)
	}
	return nil
}

func (p *Postgres) InventoryReports(ctx context.Context, stockNumber string) ([]stockcard.InventoryReport, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT r.id, r.accountability_date,
		       i.stock_number, i.article, i.description, i.unit, i.unit_value::text, i.on_hand_count::text
		FROM inventory_reports r
		JOIN inventory_report_items i ON i.report_id = r.id
		WHERE r.id IN (SELECT report_id FROM inventory_report_items WHERE stock_number = $1)
		ORDER BY r.accountability_date, r.id, i.position
	`, stockNumber)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []stockcard.InventoryReport
	for rows.Next() {
		var id string
		var date time.Time
		item, err := scanInventoryItem(rows, &id, &date)
		if err != nil {
			return nil, err
		}
		if n := len(reports); n == 0 || reports[n-1].ID != id {
			reports = append(reports, stockcard.InventoryReport{ID: id, AccountabilityDate: date})
		}
		last := &reports[len(reports)-1]
		last.Items = append(last.Items, item)
	}
	return reports, rows.Err()
}

func (p *Postgres) IssuedReports(ctx context.Context) ([]stockcard.IssuedReport, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT r.id, r.serial_number, r.date, r.office,
		       i.stock_number, i.description, i.unit, i.issued_count::text
		FROM issued_reports r
		JOIN issued_report_items i ON i.report_id = r.id
		ORDER BY r.date, r.id, i.position
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []stockcard.IssuedReport
	for rows.Next() {
		var report stockcard.IssuedReport
		var item stockcard.IssuedReportItem
		var count string
		if err := rows.Scan(&report.ID, &report.SerialNumber, &report.Date, &report.Office,
			&item.StockNumber, &item.Description, &item.Unit, &count); err != nil {
			return nil, err
		}
		if item.IssuedCount, err = decimal.NewFromString(count); err != nil {
			return nil, fmt.Errorf("invalid issued count %q: %w", count, err)
		}
		if n := len(reports); n == 0 || reports[n-1].ID != report.ID {
			reports = append(reports, report)
		}
		last := &reports[len(reports)-1]
		last.Items = append(last.Items, item)
	}
	return reports, rows.Err()
}

// Import copies the reports and stock cards of a book into the database in
// one transaction. Existing rows with the same ids are replaced.
func (p *Postgres) Import(ctx context.Context, book *loader.Book) error {
	timer := telemetry.StartTimer(ctx, "postgres.import")
	defer timer.End()

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for _, report := range book.InventoryReports {
		batch.Queue(`
			INSERT INTO inventory_reports (id, accountability_date) VALUES ($1, $2)
			ON CONFLICT (id) DO UPDATE SET accountability_date = EXCLUDED.accountability_date
		`, report.ID, report.AccountabilityDate)
		batch.Queue(`DELETE FROM inventory_report_items WHERE report_id = $1`, report.ID)
		for i, item := range report.Items {
			batch.Queue(`
				INSERT INTO inventory_report_items
					(report_id, position, stock_number, article, description, unit, unit_value, on_hand_count)
				VALUES ($1, $2, $3, $4, $5, $6, $7::numeric, $8::numeric)
			`, report.ID, i, item.StockNumber, item.Article, item.Description, item.Unit,
				item.UnitValue.String(), item.OnHandCount.String())
		}
	}

	for _, report := range book.IssuedReports {
		batch.Queue(`
			INSERT INTO issued_reports (id, serial_number, date, office) VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE SET serial_number = EXCLUDED.serial_number, date = EXCLUDED.date, office = EXCLUDED.office
		`, report.ID, report.SerialNumber, report.Date, report.Office)
		batch.Queue(`DELETE FROM issued_report_items WHERE report_id = $1`, report.ID)
		for i, item := range report.Items {
			batch.Queue(`
				INSERT INTO issued_report_items (report_id, position, stock_number, description, unit, issued_count)
				VALUES ($1, $2, $3, $4, $5, $6::numeric)
			`, report.ID, i, item.StockNumber, item.Description, item.Unit, item.IssuedCount.String())
		}
	}

	for _, card := range book.StockCards {
		document, err := json.Marshal(card)
		if err != nil {
			return fmt.Errorf("failed to encode stock card %s: %w", card.ID, err)
		}
		batch.Queue(`
			INSERT INTO stock_cards (id, stock_number, document, updated_at) VALUES ($1, $2, $3, now())
			ON CONFLICT (id) DO UPDATE SET stock_number = EXCLUDED.stock_number, document = EXCLUDED.document, updated_at = now()
		`, card.ID, card.StockNumber, document)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("import failed: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}

	p.logger.Info("book imported",
		"inventoryReports", len(book.InventoryReports),
		"issuedReports", len(book.IssuedReports),
		"stockCards", len(book.StockCards))
	return nil
}
