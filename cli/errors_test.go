package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/shopspring/decimal"

	"github.com/robinvdvleuten/stockcard/loader"
	"github.com/robinvdvleuten/stockcard/stockcard"
)

func TestErrorRenderer_RenderParseErrorWithSourceContext(t *testing.T) {
	source := `{
  "stockCards": [
    {"id": "sc-1", "stockNumber": "SN-0001",}
  ]
}`
	_, err := loader.ParseBook("cards.json", []byte(source))
	assert.Error(t, err)

	output := NewErrorRenderer(&bytes.Buffer{}).Render(err)

	assert.Contains(t, output, "cards.json:3: ")
	assert.Contains(t, output, `"stockNumber": "SN-0001",}`)
	assert.Contains(t, output, "^")

	// Source lines are indented with 3 spaces
	foundIndentedLine := false
	for _, line := range strings.Split(output, "\n") {
		if strings.HasPrefix(line, "   ") && strings.Contains(line, `"stockCards"`) {
			foundIndentedLine = true
			break
		}
	}
	assert.True(t, foundIndentedLine, "Expected indented source lines")
}

func TestErrorRenderer_RenderParseErrorWithoutSource(t *testing.T) {
	err := &loader.ParseError{
		Pos:     loader.Position{Filename: "cards.json", Line: 6, Column: 4},
		Message: "unexpected end of JSON input",
	}

	output := NewErrorRenderer(&bytes.Buffer{}).Render(err)
	assert.Equal(t, "cards.json:6: unexpected end of JSON input", output)
}

func TestErrorRenderer_RenderWithSourceContext_BoundsChecking(t *testing.T) {
	source := `{"stockCards": 1}`
	renderer := NewErrorRenderer(&bytes.Buffer{})

	output := renderer.renderWithSourceContext(loader.Position{Filename: "a.json", Line: 1, Column: 16}, "error", []byte(source))
	assert.Equal(t, "error\n\n   {\"stockCards\": 1}\n                  ^\n", output)

	// Positions past the end of the source do not panic
	output = renderer.renderWithSourceContext(loader.Position{Filename: "a.json", Line: 9, Column: 1}, "error", []byte(source))
	assert.Contains(t, output, "error")
}

func TestErrorRenderer_EntryContext(t *testing.T) {
	card := stockcard.StockCard{
		StockNumber: "SN-0001",
		Entries: []stockcard.Entry{
			{ID: "A", Reference: "RIS-0001", IssueQuantity: decimal.NewFromInt(30)},
		},
	}
	err := &stockcard.InsufficientQuantityError{
		ReportID:      "ir-2",
		StockNumber:   "SN-0001",
		EntryID:       "A",
		OnHandCount:   decimal.NewFromInt(10),
		IssueQuantity: decimal.NewFromInt(30),
	}

	t.Run("WithCard", func(t *testing.T) {
		output := NewErrorRenderer(&bytes.Buffer{}, WithCard(card)).Render(err)
		assert.Equal(t, err.Error()+"\n\n   A \"RIS-0001\" issue 30\n", output)
	})

	t.Run("WithoutCard", func(t *testing.T) {
		output := NewErrorRenderer(&bytes.Buffer{}).Render(err)
		assert.Equal(t, err.Error(), output)
	})
}

func TestErrorRenderer_RenderAll(t *testing.T) {
	verrs := &stockcard.VerificationErrors{CardID: "sc-1", Errors: []error{
		&stockcard.StaleAttributionError{ReportID: "ir-1", EntryID: "A", Removed: true},
		&stockcard.BalanceMismatchError{ReportID: "ir-1", Remaining: decimal.NewFromInt(70), Expected: decimal.NewFromInt(100)},
	}}

	output := NewErrorRenderer(&bytes.Buffer{}).Render(verrs)
	assert.Equal(t,
		"Inventory report ir-1 still attributes a quantity to removed entry A\n\n"+
			"Balance for inventory report ir-1 does not match: remaining 70, expected 100 (difference -30)",
		output)

	assert.Equal(t, "", NewErrorRenderer(&bytes.Buffer{}).RenderAll(nil))
}
