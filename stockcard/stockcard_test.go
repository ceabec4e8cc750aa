package stockcard

import (
	"encoding/json"
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestStockCardJSON(t *testing.T) {
	input := `{
  "id": "sc-1",
  "stockNumber": "SN-0001",
  "description": "Bond paper A4",
  "unit": "ream",
  "entries": [
    {"id": "A", "reference": "RIS-1", "receivedQuantity": 100, "requestedQuantity": 30, "issueQuantity": 30, "inventoryReportSourceId": "ir-1"},
    {"id": "B", "receivedQuantity": "0", "requestedQuantity": "5", "issueQuantity": "5"}
  ],
  "balances": {
    "ir-1": {"remaining": 70, "entries": {"A": 70}}
  }
}`

	var card StockCard
	assert.NoError(t, json.Unmarshal([]byte(input), &card))

	assert.Equal(t, "SN-0001", card.StockNumber)
	assert.Equal(t, 2, len(card.Entries))
	assert.True(t, card.Entries[0].Sourced())
	assert.False(t, card.Entries[1].Sourced())
	assertQty(t, 5, card.Entries[1].IssueQuantity)
	assert.Equal(t, "{remaining: 70, A: 70}", card.Balances["ir-1"].String())

	out, err := json.Marshal(card.Entries[1])
	assert.NoError(t, err)
	assert.NotContains(t, string(out), "inventoryReportSourceId")
	assert.NotContains(t, string(out), "date")
}

func TestStockCardClone(t *testing.T) {
	card := StockCard{
		ID:       "sc-1",
		Entries:  []Entry{entry("A", 1)},
		Balances: Balances{"ir-1": {Remaining: qty(9), Entries: EntryQuantity{"A": qty(9)}}},
	}

	clone := card.Clone()
	clone.Entries[0].Reference = "changed"
	clone.Balances["ir-1"].Entries["A"] = qty(0)
	clone.Balances["ir-2"] = SourceBalance{}

	assert.Equal(t, "", card.Entries[0].Reference)
	assertQty(t, 9, card.Balances["ir-1"].Entries["A"])
	assert.Equal(t, 1, len(card.Balances))
}

func TestBalancesReportIDs(t *testing.T) {
	balances := Balances{"ir-b": {}, "ir-a": {}, "ir-c": {}}
	assert.Equal(t, []string{"ir-a", "ir-b", "ir-c"}, balances.ReportIDs())
	assert.Equal(t, []string{}, Balances{}.ReportIDs())
}

func TestItemsFromReports(t *testing.T) {
	reports := []InventoryReport{report("ir-1", 10), report("ir-2", 20)}

	items := ItemsFromReports(reports, "ir-2", "SN-0001")
	assert.Equal(t, 1, len(items))
	assertQty(t, 20, items[0].OnHandCount)

	assert.Equal(t, 0, len(ItemsFromReports(reports, "ir-3", "SN-0001")))
	assert.Equal(t, 0, len(ItemsFromReports(reports, "ir-1", "SN-0404")))
}
