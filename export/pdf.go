package export

import (
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf/v2"

	"github.com/robinvdvleuten/stockcard/stockcard"
)

var pdfColumns = []struct {
	title string
	width float64
	align string
}{
	{"Date", 22, "C"},
	{"Reference", 32, "L"},
	{"Received", 22, "R"},
	{"Requested", 22, "R"},
	{"Issued", 22, "R"},
	{"Balance", 22, "R"},
	{"Office", 28, "L"},
	{"Source", 20, "L"},
}

// WritePDF writes card as a one-table stock card form.
func WritePDF(w io.Writer, card stockcard.StockCard) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(190, 10, "STOCK CARD", "", 1, "C", false, 0, "")
	pdf.Ln(3)

	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(95, 7, fmt.Sprintf("Stock No.: %s", card.StockNumber), "1", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("Unit: %s", card.Unit), "1", 1, "L", false, 0, "")
	pdf.CellFormat(190, 7, fmt.Sprintf("Description: %s", card.Description), "1", 1, "L", false, 0, "")
	pdf.Ln(4)

	header := func() {
		pdf.SetFont("Arial", "B", 9)
		pdf.SetFillColor(220, 220, 220)
		for _, col := range pdfColumns {
			pdf.CellFormat(col.width, 7, col.title, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 9)
	}
	pdf.SetHeaderFunc(func() {
		if pdf.PageNo() > 1 {
			header()
		}
	})
	header()

	for _, e := range card.Entries {
		values := []string{
			formatDate(e),
			e.Reference,
			e.ReceivedQuantity.String(),
			e.RequestedQuantity.String(),
			e.IssueQuantity.String(),
			e.Balance().String(),
			e.IssueOffice,
			e.InventoryReportSourceID,
		}
		for i, col := range pdfColumns {
			pdf.CellFormat(col.width, 6, truncate(pdf, values[i], col.width-2), "1", 0, col.align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	totals := card.Totals()
	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(pdfColumns[0].width+pdfColumns[1].width, 7, "Total", "1", 0, "R", false, 0, "")
	pdf.CellFormat(pdfColumns[2].width, 7, totals.Received.String(), "1", 0, "R", false, 0, "")
	pdf.CellFormat(pdfColumns[3].width, 7, totals.Requested.String(), "1", 0, "R", false, 0, "")
	pdf.CellFormat(pdfColumns[4].width, 7, totals.Issued.String(), "1", 1, "R", false, 0, "")

	if len(card.Balances) > 0 {
		pdf.Ln(5)
		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(190, 7, "Inventory report balances", "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 9)
		for _, reportID := range card.Balances.ReportIDs() {
			pdf.CellFormat(190, 6, fmt.Sprintf("%s %s", reportID, card.Balances[reportID]), "1", 1, "L", false, 0, "")
		}
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to write pdf: %w", err)
	}
	return nil
}

func truncate(pdf *gofpdf.Fpdf, s string, width float64) string {
	if pdf.GetStringWidth(s) <= width {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && pdf.GetStringWidth(string(runes)+"...") > width {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}
