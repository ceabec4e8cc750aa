// Package output provides styling helpers for terminal output.
package output

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Styles provides styled output helpers for the CLI.
type Styles struct {
	renderer *lipgloss.Renderer

	success     lipgloss.Style
	err         lipgloss.Style
	warning     lipgloss.Style
	dim         lipgloss.Style
	keyword     lipgloss.Style
	path        lipgloss.Style
	stockNumber lipgloss.Style
	report      lipgloss.Style
	quantity    lipgloss.Style
	negative    lipgloss.Style
}

// NewStyles creates a new Styles instance for the given writer. Colors are
// dropped automatically when w is not a terminal.
func NewStyles(w io.Writer) *Styles {
	r := lipgloss.NewRenderer(w)
	return &Styles{
		renderer:    r,
		success:     r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#00D787", Dark: "#00D787"}).Bold(true),
		err:         r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#FF5F87", Dark: "#FF5F87"}).Bold(true),
		warning:     r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#D7AF00", Dark: "#FFD75F"}).Bold(true),
		dim:         r.NewStyle().Faint(true),
		keyword:     r.NewStyle().Bold(true),
		path:        r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#00D7D7", Dark: "#00D7D7"}),
		stockNumber: r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#AF8700", Dark: "#FFD75F"}),
		report:      r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#5F5FD7", Dark: "#5FAFFF"}),
		quantity:    r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#AF00AF", Dark: "#D787FF"}),
		negative:    r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#FF5F87", Dark: "#FF5F87"}),
	}
}

// Success returns a styled success string (green + bold).
func (s *Styles) Success(text string) string {
	return s.success.Render(text)
}

// Error returns a styled error string (red + bold).
func (s *Styles) Error(text string) string {
	return s.err.Render(text)
}

// Warning returns a styled warning (yellow + bold).
func (s *Styles) Warning(text string) string {
	return s.warning.Render(text)
}

// FilePath returns a styled file path (cyan).
func (s *Styles) FilePath(text string) string {
	return s.path.Render(text)
}

// StockNumber returns a styled stock number (yellow).
func (s *Styles) StockNumber(text string) string {
	return s.stockNumber.Render(text)
}

// Report returns a styled inventory report id (blue).
func (s *Styles) Report(text string) string {
	return s.report.Render(text)
}

// Quantity returns a styled quantity. Negative values are shown in red.
func (s *Styles) Quantity(text string) string {
	if len(text) > 0 && text[0] == '-' {
		return s.negative.Render(text)
	}
	return s.quantity.Render(text)
}

// Keyword returns a styled keyword (bold).
func (s *Styles) Keyword(text string) string {
	return s.keyword.Render(text)
}

// Dim returns dimmed text (for secondary information).
func (s *Styles) Dim(text string) string {
	return s.dim.Render(text)
}

// Timing returns a styled timing string. Slow operations are highlighted.
func (s *Styles) Timing(text string, isSlowOperation bool) string {
	if isSlowOperation {
		return s.Warning(text)
	}
	return s.Dim(text)
}

// Renderer returns the underlying lipgloss renderer for advanced usage.
func (s *Styles) Renderer() *lipgloss.Renderer {
	return s.renderer
}
