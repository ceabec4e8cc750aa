// Package errors renders stock card and book errors for different consumers.
// Domain error types stay in their packages (stockcard, loader, store); this
// package only handles presentation.
//
// Two formatters are provided:
//   - TextFormatter: plain text for logs and command-line output
//   - JSONFormatter: structured JSON for the HTTP API
package errors

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/robinvdvleuten/stockcard/loader"
	"github.com/robinvdvleuten/stockcard/stockcard"
)

// Formatter formats errors for output in different formats.
type Formatter interface {
	// Format formats a single error.
	Format(err error) string

	// FormatAll formats multiple errors.
	FormatAll(errs []error) string
}

// Unwrap flattens err into its individual errors. Multi-errors such as
// *stockcard.VerificationErrors are expanded; anything else is returned as is.
func Unwrap(err error) []error {
	if err == nil {
		return nil
	}
	if multi, ok := err.(interface{ Unwrap() []error }); ok {
		var errs []error
		for _, e := range multi.Unwrap() {
			errs = append(errs, Unwrap(e)...)
		}
		return errs
	}
	return []error{err}
}

// TextFormatter formats errors as plain text.
type TextFormatter struct {
	card *stockcard.StockCard // Optional card for entry context
}

// TextFormatterOption is an option for configuring TextFormatter.
type TextFormatterOption func(*TextFormatter)

// WithCard shows the affected entry of card below entry errors.
func WithCard(card stockcard.StockCard) TextFormatterOption {
	return func(tf *TextFormatter) {
		tf.card = &card
	}
}

// NewTextFormatter creates a new text formatter.
func NewTextFormatter(opts ...TextFormatterOption) *TextFormatter {
	tf := &TextFormatter{}
	for _, opt := range opts {
		opt(tf)
	}
	return tf
}

// Format formats a single error.
func (tf *TextFormatter) Format(err error) string {
	if e, ok := err.(*loader.ParseError); ok && e.Source != nil {
		return formatWithSourceContext(e.Pos, e.Error(), e.Source)
	}

	if e, ok := err.(interface {
		GetEntryID() string
		Error() string
	}); ok && tf.card != nil {
		if entry, found := stockcard.FindEntry(tf.card.Entries, e.GetEntryID()); found {
			return e.Error() + "\n\n   " + EntryLine(entry) + "\n"
		}
	}

	return err.Error()
}

// FormatAll formats multiple errors, separating them with blank lines.
func (tf *TextFormatter) FormatAll(errs []error) string {
	if len(errs) == 0 {
		return ""
	}

	var buf bytes.Buffer
	for i, err := range errs {
		buf.WriteString(strings.TrimRight(tf.Format(err), "\n"))
		if i < len(errs)-1 {
			buf.WriteString("\n\n")
		}
	}
	return buf.String()
}

// EntryLine returns a one-line description of an entry.
func EntryLine(e stockcard.Entry) string {
	var buf strings.Builder
	if e.Date != nil {
		buf.WriteString(e.Date.Format("2006-01-02"))
		buf.WriteByte(' ')
	}
	buf.WriteString(e.ID)
	if e.Reference != "" {
		fmt.Fprintf(&buf, " %q", e.Reference)
	}
	fmt.Fprintf(&buf, " issue %s", e.IssueQuantity)
	if e.Sourced() {
		fmt.Fprintf(&buf, " from %s (received %s)", e.InventoryReportSourceID, e.ReceivedQuantity)
	}
	return buf.String()
}

// formatWithSourceContext shows the error message followed by the source
// lines around the error position, with a caret under the error column.
func formatWithSourceContext(pos loader.Position, message string, source []byte) string {
	var buf bytes.Buffer

	buf.WriteString(message)
	buf.WriteString("\n\n")

	lines := strings.Split(string(source), "\n")

	// Two lines before the error line and one after.
	start := pos.Line - 3
	end := pos.Line
	if start < 0 {
		start = 0
	}
	if end >= len(lines) {
		end = len(lines) - 1
	}

	for i := start; i <= end; i++ {
		buf.WriteString("   ")
		buf.WriteString(lines[i])
		buf.WriteByte('\n')

		if i == pos.Line-1 && pos.Column > 0 {
			buf.WriteString("   ")
			buf.WriteString(strings.Repeat(" ", pos.Column-1))
			buf.WriteString("^\n")
		}
	}

	return buf.String()
}

// JSONFormatter formats errors as JSON.
type JSONFormatter struct{}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// ErrorJSON represents an error in JSON format.
type ErrorJSON struct {
	Type     string         `json:"type"`
	Message  string         `json:"message"`
	Position *PositionJSON  `json:"position,omitempty"`
	Details  map[string]any `json:"details,omitempty"`
}

// PositionJSON represents a file position in JSON format.
type PositionJSON struct {
	Filename string `json:"filename"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
}

// Format formats a single error as JSON.
func (jf *JSONFormatter) Format(err error) string {
	data, _ := json.Marshal(jf.ToJSON(err))
	return string(data)
}

// FormatAll formats multiple errors as a JSON array.
func (jf *JSONFormatter) FormatAll(errs []error) string {
	data, _ := json.MarshalIndent(jf.FormatAllToSlice(errs), "", "  ")
	return string(data)
}

// FormatAllToSlice returns errors as a slice of ErrorJSON structs.
func (jf *JSONFormatter) FormatAllToSlice(errs []error) []ErrorJSON {
	result := make([]ErrorJSON, 0, len(errs))
	for _, err := range errs {
		result = append(result, jf.ToJSON(err))
	}
	return result
}

// ToJSON converts an error to ErrorJSON.
func (jf *JSONFormatter) ToJSON(err error) ErrorJSON {
	errJSON := ErrorJSON{
		Type:    typeName(err),
		Message: err.Error(),
		Details: make(map[string]any),
	}

	if e, ok := err.(interface{ GetPosition() loader.Position }); ok {
		pos := e.GetPosition()
		errJSON.Position = &PositionJSON{
			Filename: pos.Filename,
			Line:     pos.Line,
			Column:   pos.Column,
		}
	}

	if e, ok := err.(interface{ GetReportID() string }); ok && e.GetReportID() != "" {
		errJSON.Details["reportId"] = e.GetReportID()
	}
	if e, ok := err.(interface{ GetEntryID() string }); ok && e.GetEntryID() != "" {
		errJSON.Details["entryId"] = e.GetEntryID()
	}

	switch e := err.(type) {
	case *stockcard.InsufficientQuantityError:
		errJSON.Details["onHandCount"] = e.OnHandCount.String()
		errJSON.Details["issueQuantity"] = e.IssueQuantity.String()
	case *stockcard.BalanceMismatchError:
		errJSON.Details["remaining"] = e.Remaining.String()
		errJSON.Details["expected"] = e.Expected.String()
	case *stockcard.InvalidQuantityError:
		errJSON.Details["field"] = e.Field
	}

	if len(errJSON.Details) == 0 {
		errJSON.Details = nil
	}
	return errJSON
}

// typeName returns a short name for the error's type, e.g.
// "InsufficientQuantityError".
func typeName(err error) string {
	name := fmt.Sprintf("%T", err)
	name = strings.TrimPrefix(name, "*")
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return name
}
