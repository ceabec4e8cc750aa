// Package cli implements the stockcard command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/robinvdvleuten/stockcard/output"
	"github.com/robinvdvleuten/stockcard/telemetry"
)

var (
	successSymbol = "✓"
	errorSymbol   = "✗"
	infoSymbol    = "→"
)

func printSuccess(w io.Writer, message string) {
	styles := output.NewStyles(w)
	_, _ = fmt.Fprintf(w, "%s %s\n", styles.Success(successSymbol), message)
}

func printError(w io.Writer, message string) {
	styles := output.NewStyles(w)
	_, _ = fmt.Fprintf(w, "%s %s\n", styles.Error(errorSymbol), styles.Error(message))
}

func printInfof(w io.Writer, format string, args ...interface{}) {
	styles := output.NewStyles(w)
	_, _ = fmt.Fprintf(w, "%s %s\n", styles.Report(infoSymbol), fmt.Sprintf(format, args...))
}

// promptYesNo prompts the user with a yes/no question.
// Returns false by default if stdin is not a terminal.
func promptYesNo(question string) (bool, error) {
	if !isTerminal() {
		return false, nil
	}

	var confirm bool

	form := huh.NewConfirm().
		Title(question).
		WithButtonAlignment(lipgloss.Left).
		Value(&confirm)

	if err := form.Run(); err != nil {
		return false, fmt.Errorf("failed to read response: %w", err)
	}

	return confirm, nil
}

// confirm returns true when yes is set, and asks otherwise.
func confirm(yes bool, question string) (bool, error) {
	if yes {
		return true, nil
	}
	return promptYesNo(question)
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// startTelemetry attaches a timing collector to ctx when telemetry is
// enabled. The returned function ends the root timer and prints the report
// to stderr; it is safe to call more than once.
func startTelemetry(ctx context.Context, kctx *kong.Context, globals *Globals, name string) (context.Context, func()) {
	if !globals.Telemetry {
		return ctx, func() {}
	}

	collector := telemetry.NewTimingCollector().WithStyles(output.NewStyles(kctx.Stderr))
	ctx = telemetry.WithCollector(ctx, collector)

	timer := collector.Start(name)
	ctx = telemetry.WithRootTimer(ctx, timer)

	var once sync.Once
	return ctx, func() {
		once.Do(func() {
			timer.End()
			_, _ = fmt.Fprintln(kctx.Stderr)
			collector.Report(kctx.Stderr)
		})
	}
}
