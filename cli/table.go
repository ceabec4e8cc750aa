package cli

import (
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
)

// table lays out rows in aligned columns. Widths are measured in terminal
// cells so wide characters in descriptions do not break the alignment.
type table struct {
	headers []string
	right   []bool // Right-align the column
	rows    [][]string
}

func newTable(headers ...string) *table {
	return &table{headers: headers, right: make([]bool, len(headers))}
}

// alignRight right-aligns the given columns.
func (t *table) alignRight(cols ...int) *table {
	for _, c := range cols {
		t.right[c] = true
	}
	return t
}

func (t *table) add(cells ...string) {
	t.rows = append(t.rows, cells)
}

func (t *table) widths() []int {
	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], runewidth.StringWidth(cell))
			}
		}
	}
	return widths
}

// render writes the table. style is applied per cell after padding, so
// escape sequences do not count towards column widths.
func (t *table) render(w io.Writer, style func(row, col int, cell string) string) {
	widths := t.widths()

	line := func(row int, cells []string) {
		var buf strings.Builder
		for i := range t.headers {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			var padded string
			if t.right[i] {
				padded = runewidth.FillLeft(cell, widths[i])
			} else {
				padded = runewidth.FillRight(cell, widths[i])
			}
			if style != nil {
				padded = style(row, i, padded)
			}
			if i > 0 {
				buf.WriteString("  ")
			}
			buf.WriteString(padded)
		}
		_, _ = io.WriteString(w, strings.TrimRight(buf.String(), " ")+"\n")
	}

	line(-1, t.headers)
	for i, row := range t.rows {
		line(i, row)
	}
}
