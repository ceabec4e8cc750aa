// Package export renders stock cards as spreadsheet and PDF documents and
// uploads them to S3-compatible storage.
package export

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/robinvdvleuten/stockcard/stockcard"
)

// Format is an export document format.
type Format string

const (
	XLSX Format = "xlsx"
	PDF  Format = "pdf"
)

// ParseFormat returns the format named by s.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimPrefix(s, "."))) {
	case XLSX:
		return XLSX, nil
	case PDF:
		return PDF, nil
	}
	return "", fmt.Errorf("unsupported export format %q (expected xlsx or pdf)", s)
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	switch f {
	case XLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case PDF:
		return "application/pdf"
	}
	return "application/octet-stream"
}

// Filename returns the default file name of a card exported in this format.
func (f Format) Filename(card stockcard.StockCard) string {
	name := card.StockNumber
	if name == "" {
		name = card.ID
	}
	return fmt.Sprintf("stock-card-%s.%s", sanitize(name), f)
}

// Write renders card in the given format.
func Write(w io.Writer, card stockcard.StockCard, format Format) error {
	switch format {
	case XLSX:
		return WriteXLSX(w, card)
	case PDF:
		return WritePDF(w, card)
	}
	return fmt.Errorf("unsupported export format %q", format)
}

// Render returns card rendered in the given format.
func Render(card stockcard.StockCard, format Format) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, card, format); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '-'
	}, s)
}

func formatDate(e stockcard.Entry) string {
	if e.Date == nil {
		return ""
	}
	return e.Date.Format("2006-01-02")
}
