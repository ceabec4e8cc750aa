package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/robinvdvleuten/stockcard/stockcard"
)

const (
	cardSheet     = "Stock Card"
	balancesSheet = "Balances"
)

var entryHeader = []interface{}{
	"Date", "Reference", "Received", "Requested", "Issued", "Balance", "Office", "Source",
}

// WriteXLSX writes card as a workbook with a stock card sheet and a balances
// sheet.
func WriteXLSX(w io.Writer, card stockcard.StockCard) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), cardSheet); err != nil {
		return err
	}

	rows := [][]interface{}{
		{"Stock No.", card.StockNumber},
		{"Description", card.Description},
		{"Unit", card.Unit},
		{},
		entryHeader,
	}
	for _, e := range card.Entries {
		rows = append(rows, []interface{}{
			formatDate(e),
			e.Reference,
			e.ReceivedQuantity.InexactFloat64(),
			e.RequestedQuantity.InexactFloat64(),
			e.IssueQuantity.InexactFloat64(),
			e.Balance().InexactFloat64(),
			e.IssueOffice,
			e.InventoryReportSourceID,
		})
	}
	totals := card.Totals()
	rows = append(rows, []interface{}{
		"Total", "",
		totals.Received.InexactFloat64(),
		totals.Requested.InexactFloat64(),
		totals.Issued.InexactFloat64(),
	})

	if err := setRows(f, cardSheet, rows); err != nil {
		return err
	}

	if _, err := f.NewSheet(balancesSheet); err != nil {
		return err
	}
	balanceRows := [][]interface{}{{"Inventory Report", "Remaining", "Entry", "Attributed"}}
	for _, reportID := range card.Balances.ReportIDs() {
		sb := card.Balances[reportID]
		balanceRows = append(balanceRows, []interface{}{reportID, sb.Remaining.InexactFloat64()})
		for _, entryID := range sb.Entries.IDs() {
			balanceRows = append(balanceRows, []interface{}{"", "", entryID, sb.Entries[entryID].InexactFloat64()})
		}
	}
	if err := setRows(f, balancesSheet, balanceRows); err != nil {
		return err
	}

	if err := f.SetColWidth(cardSheet, "A", "H", 14); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func setRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}
