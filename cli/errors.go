package cli

import (
	"io"
	"strings"

	errfmt "github.com/robinvdvleuten/stockcard/errors"
	"github.com/robinvdvleuten/stockcard/loader"
	"github.com/robinvdvleuten/stockcard/output"
	"github.com/robinvdvleuten/stockcard/stockcard"
)

// ErrorRenderer renders errors with terminal styling and context: the
// offending lines of a book file, or the affected stock card entry.
type ErrorRenderer struct {
	styles *output.Styles
	card   *stockcard.StockCard
}

// RendererOption configures an ErrorRenderer.
type RendererOption func(*ErrorRenderer)

// WithCard shows the affected entry of card below entry errors.
func WithCard(card stockcard.StockCard) RendererOption {
	return func(r *ErrorRenderer) {
		r.card = &card
	}
}

// NewErrorRenderer creates a renderer styled for w.
func NewErrorRenderer(w io.Writer, opts ...RendererOption) *ErrorRenderer {
	r := &ErrorRenderer{styles: output.NewStyles(w)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render formats a single error with styling and context.
func (r *ErrorRenderer) Render(err error) string {
	if e, ok := err.(*loader.ParseError); ok && e.Source != nil {
		return r.renderWithSourceContext(e.Pos, e.Error(), e.Source)
	}

	if e, ok := err.(interface {
		GetEntryID() string
		Error() string
	}); ok && r.card != nil {
		if entry, found := stockcard.FindEntry(r.card.Entries, e.GetEntryID()); found {
			return r.styles.Error(e.Error()) + "\n\n   " + r.styles.Dim(errfmt.EntryLine(entry)) + "\n"
		}
	}

	if errs := errfmt.Unwrap(err); len(errs) > 1 {
		return r.RenderAll(errs)
	}

	return r.styles.Error(err.Error())
}

// RenderAll formats multiple errors, separating them with blank lines.
func (r *ErrorRenderer) RenderAll(errs []error) string {
	if len(errs) == 0 {
		return ""
	}

	var buf strings.Builder
	for i, err := range errs {
		buf.WriteString(strings.TrimRight(r.Render(err), "\n"))

		if i < len(errs)-1 {
			buf.WriteString("\n\n")
		}
	}

	return buf.String()
}

func (r *ErrorRenderer) renderWithSourceContext(pos loader.Position, message string, sourceContent []byte) string {
	var buf strings.Builder

	buf.WriteString(r.styles.Error(message))
	buf.WriteString("\n\n")

	sourceLines := strings.Split(string(sourceContent), "\n")

	startLine := pos.Line - 3
	endLine := pos.Line

	if startLine < 0 {
		startLine = 0
	}
	if endLine >= len(sourceLines) {
		endLine = len(sourceLines) - 1
	}

	for i := startLine; i <= endLine; i++ {
		buf.WriteString("   ")
		buf.WriteString(r.styles.Dim(sourceLines[i]))
		buf.WriteByte('\n')

		if i == pos.Line-1 && pos.Column > 0 {
			buf.WriteString("   ")
			buf.WriteString(strings.Repeat(" ", pos.Column-1))
			buf.WriteString(r.styles.Error("^"))
			buf.WriteByte('\n')
		}
	}

	return buf.String()
}
