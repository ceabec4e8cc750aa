package loader

import (
	"context"
	"sort"

	"github.com/robinvdvleuten/stockcard/stockcard"
)

// Result is a merged book together with the files it was loaded from.
type Result struct {
	Book *Book

	// Root is the absolute path of the book passed to Load.
	Root string

	// Includes lists the absolute paths of the included books in load order.
	Includes []string

	// sources maps a stock card id to the absolute path of its book.
	sources map[string]string
	reports map[string]int
	cards   map[string]int
	origins map[string]string
}

func newResult(root string) *Result {
	return &Result{
		Book:    &Book{},
		Root:    root,
		sources: make(map[string]string),
		reports: make(map[string]int),
		cards:   make(map[string]int),
		origins: make(map[string]string),
	}
}

func (r *Result) merge(filename string, book *Book) error {
	for _, report := range book.InventoryReports {
		if prev, ok := r.origins["ir:"+report.ID]; ok {
			return &DuplicateError{Kind: "inventory report", ID: report.ID, Filename: filename, Previous: prev}
		}
		r.origins["ir:"+report.ID] = filename
		r.reports[report.ID] = len(r.Book.InventoryReports)
		r.Book.InventoryReports = append(r.Book.InventoryReports, report)
	}

	for _, report := range book.IssuedReports {
		if prev, ok := r.origins["is:"+report.ID]; ok {
			return &DuplicateError{Kind: "issued report", ID: report.ID, Filename: filename, Previous: prev}
		}
		r.origins["is:"+report.ID] = filename
		r.Book.IssuedReports = append(r.Book.IssuedReports, report)
	}

	for _, card := range book.StockCards {
		if prev, ok := r.sources[card.ID]; ok {
			return &DuplicateError{Kind: "stock card", ID: card.ID, Filename: filename, Previous: prev}
		}
		r.sources[card.ID] = filename
		r.cards[card.ID] = len(r.Book.StockCards)
		r.Book.StockCards = append(r.Book.StockCards, card)
	}
	return nil
}

// Files returns the root book followed by every included book.
func (r *Result) Files() []string {
	files := make([]string, 0, len(r.Includes)+1)
	files = append(files, r.Root)
	return append(files, r.Includes...)
}

// Source returns the file the stock card with the given id was loaded from.
func (r *Result) Source(cardID string) (string, bool) {
	filename, ok := r.sources[cardID]
	return filename, ok
}

// Card returns a copy of the stock card with the given id.
func (r *Result) Card(id string) (stockcard.StockCard, bool) {
	i, ok := r.cards[id]
	if !ok {
		return stockcard.StockCard{}, false
	}
	return r.Book.StockCards[i].Clone(), true
}

// Cards returns copies of all stock cards ordered by stock number.
func (r *Result) Cards() []stockcard.StockCard {
	cards := make([]stockcard.StockCard, len(r.Book.StockCards))
	for i, card := range r.Book.StockCards {
		cards[i] = card.Clone()
	}
	sort.SliceStable(cards, func(i, j int) bool {
		return cards[i].StockNumber < cards[j].StockNumber
	})
	return cards
}

// Report returns the inventory report with the given id.
func (r *Result) Report(id string) (stockcard.InventoryReport, bool) {
	i, ok := r.reports[id]
	if !ok {
		return stockcard.InventoryReport{}, false
	}
	return r.Book.InventoryReports[i], true
}

// ReportsFor returns the inventory reports that carry stockNumber, ordered by
// accountability date.
func (r *Result) ReportsFor(stockNumber string) []stockcard.InventoryReport {
	var reports []stockcard.InventoryReport
	for _, report := range r.Book.InventoryReports {
		for _, item := range report.Items {
			if item.StockNumber == stockNumber {
				reports = append(reports, report)
				break
			}
		}
	}
	sort.SliceStable(reports, func(i, j int) bool {
		return reports[i].AccountabilityDate.Before(reports[j].AccountabilityDate)
	})
	return reports
}

// Items implements stockcard.ItemQuerier.
func (r *Result) Items(ctx context.Context, reportID, stockNumber string) ([]stockcard.InventoryReportItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	report, ok := r.Report(reportID)
	if !ok {
		return nil, nil
	}
	return stockcard.ItemsFromReports([]stockcard.InventoryReport{report}, reportID, stockNumber), nil
}
