package loader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/assert/v2"
)

func writeBook(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	assert.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	assert.NoError(t, os.WriteFile(path, []byte(content), 0644))
	abs, err := filepath.Abs(path)
	assert.NoError(t, err)
	return abs
}

const reportsBook = `{
  "inventoryReports": [
    {
      "id": "ir-2024-q1",
      "accountabilityDate": "2024-03-31T00:00:00Z",
      "items": [
        {"stockNumber": "SN-0001", "description": "Bond paper A4", "unit": "ream", "unitValue": "215.50", "onHandCount": 100},
        {"stockNumber": "SN-0002", "description": "Ballpen, black", "unit": "box", "onHandCount": 40}
      ]
    },
    {
      "id": "ir-2023-q4",
      "accountabilityDate": "2023-12-31T00:00:00Z",
      "items": [
        {"stockNumber": "SN-0001", "onHandCount": 20}
      ]
    }
  ]
}`

func TestLoadSingleFile(t *testing.T) {
	dir := t.TempDir()
	root := writeBook(t, dir, "main.json", reportsBook)

	for _, opts := range [][]Option{nil, {WithFollowIncludes()}} {
		result, err := New(opts...).Load(context.Background(), root)
		assert.NoError(t, err)
		assert.Equal(t, 2, len(result.Book.InventoryReports))
		assert.Equal(t, root, result.Root)
		assert.Equal(t, 0, len(result.Includes))
		assert.Equal(t, []string{root}, result.Files())
	}
}

func TestLoadWithIncludeNoFollow(t *testing.T) {
	dir := t.TempDir()
	writeBook(t, dir, "reports.json", reportsBook)
	root := writeBook(t, dir, "main.json", `{
  "include": ["reports.json"],
  "stockCards": [{"id": "sc-1", "stockNumber": "SN-0001", "entries": [], "balances": {}}]
}`)

	result, err := New().Load(context.Background(), root)
	assert.NoError(t, err)

	assert.Equal(t, 0, len(result.Book.InventoryReports))
	assert.Equal(t, 1, len(result.Book.StockCards))
	assert.Equal(t, []string{"reports.json"}, result.Book.Include)
	assert.Equal(t, 0, len(result.Includes))
}

func TestLoadWithIncludeFollow(t *testing.T) {
	dir := t.TempDir()
	reports := writeBook(t, dir, "reports.json", reportsBook)
	cards := writeBook(t, dir, "cards/supplies.json", `{
  "stockCards": [{"id": "sc-2", "stockNumber": "SN-0002", "entries": [], "balances": {}}]
}`)
	root := writeBook(t, dir, "main.json", `{
  "include": ["reports.json", "cards/supplies.json"],
  "stockCards": [{"id": "sc-1", "stockNumber": "SN-0001", "entries": [], "balances": {}}]
}`)

	result, err := New(WithFollowIncludes()).Load(context.Background(), root)
	assert.NoError(t, err)

	assert.Equal(t, 2, len(result.Book.InventoryReports))
	assert.Equal(t, 2, len(result.Book.StockCards))
	assert.Equal(t, []string{reports, cards}, result.Includes)

	source, ok := result.Source("sc-2")
	assert.True(t, ok)
	assert.Equal(t, cards, source)

	source, ok = result.Source("sc-1")
	assert.True(t, ok)
	assert.Equal(t, root, source)

	_, ok = result.Source("sc-404")
	assert.False(t, ok)
}

func TestLoadNestedRelativeIncludes(t *testing.T) {
	dir := t.TempDir()
	writeBook(t, dir, "books/2024/reports.json", reportsBook)
	writeBook(t, dir, "books/index.json", `{"include": ["2024/reports.json"]}`)
	root := writeBook(t, dir, "main.json", `{"include": ["books/index.json"]}`)

	result, err := New(WithFollowIncludes()).Load(context.Background(), root)
	assert.NoError(t, err)
	assert.Equal(t, 2, len(result.Book.InventoryReports))
	assert.Equal(t, 2, len(result.Includes))
}

func TestLoadCircularAndRepeatedIncludes(t *testing.T) {
	dir := t.TempDir()
	writeBook(t, dir, "reports.json", reportsBook)
	writeBook(t, dir, "a.json", `{"include": ["reports.json", "b.json"]}`)
	writeBook(t, dir, "b.json", `{"include": ["a.json", "reports.json"]}`)
	root := writeBook(t, dir, "main.json", `{"include": ["a.json", "b.json", "./reports.json"]}`)

	result, err := New(WithFollowIncludes()).Load(context.Background(), root)
	assert.NoError(t, err)

	// Every file is loaded once, so the reports are not duplicated.
	assert.Equal(t, 2, len(result.Book.InventoryReports))
	assert.Equal(t, 3, len(result.Includes))
}

func TestLoadAbsoluteInclude(t *testing.T) {
	dir := t.TempDir()
	other := t.TempDir()
	reports := writeBook(t, other, "reports.json", reportsBook)
	root := writeBook(t, dir, "main.json", `{"include": ["`+filepath.ToSlash(reports)+`"]}`)

	result, err := New(WithFollowIncludes()).Load(context.Background(), root)
	assert.NoError(t, err)
	assert.Equal(t, 2, len(result.Book.InventoryReports))
}

func TestLoadErrors(t *testing.T) {
	t.Run("MissingFile", func(t *testing.T) {
		_, err := New().Load(context.Background(), filepath.Join(t.TempDir(), "missing.json"))
		assert.Error(t, err)
		assert.True(t, errors.Is(err, os.ErrNotExist))
	})

	t.Run("MissingInclude", func(t *testing.T) {
		dir := t.TempDir()
		root := writeBook(t, dir, "main.json", `{"include": ["nope.json"]}`)

		_, err := New(WithFollowIncludes()).Load(context.Background(), root)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "in file "+root)
		assert.True(t, errors.Is(err, os.ErrNotExist))
	})

	t.Run("SyntaxError", func(t *testing.T) {
		dir := t.TempDir()
		root := writeBook(t, dir, "main.json", "{\n  \"stockCards\": [\n    {\"id\": \"sc-1\",}\n  ]\n}")

		_, err := New().Load(context.Background(), root)
		var parseErr *ParseError
		assert.True(t, errors.As(err, &parseErr))
		assert.Equal(t, 3, parseErr.GetPosition().Line)
		assert.Equal(t, root, parseErr.GetPosition().Filename)
		assert.Contains(t, err.Error(), root+":3: ")
		assert.NotEqual(t, 0, len(parseErr.GetSource()))
	})

	t.Run("TypeError", func(t *testing.T) {
		dir := t.TempDir()
		root := writeBook(t, dir, "main.json", "{\n  \"stockCards\": \"sc-1\"\n}")

		_, err := New().Load(context.Background(), root)
		var parseErr *ParseError
		assert.True(t, errors.As(err, &parseErr))
		assert.Equal(t, 2, parseErr.GetPosition().Line)
	})

	t.Run("UnknownField", func(t *testing.T) {
		dir := t.TempDir()
		root := writeBook(t, dir, "main.json", `{"stockcards": []}`)

		_, err := New().Load(context.Background(), root)
		var parseErr *ParseError
		assert.True(t, errors.As(err, &parseErr))
		assert.Contains(t, err.Error(), "stockcards")
	})

	t.Run("DuplicateCard", func(t *testing.T) {
		dir := t.TempDir()
		other := writeBook(t, dir, "other.json", `{"stockCards": [{"id": "sc-1", "stockNumber": "SN-0002"}]}`)
		root := writeBook(t, dir, "main.json", `{
  "include": ["other.json"],
  "stockCards": [{"id": "sc-1", "stockNumber": "SN-0001"}]
}`)

		_, err := New(WithFollowIncludes()).Load(context.Background(), root)
		var dup *DuplicateError
		assert.True(t, errors.As(err, &dup))
		assert.Equal(t, "stock card", dup.Kind)
		assert.Equal(t, other, dup.Filename)
		assert.Equal(t, root, dup.Previous)
	})

	t.Run("DuplicateReport", func(t *testing.T) {
		dir := t.TempDir()
		writeBook(t, dir, "reports.json", reportsBook)
		root := writeBook(t, dir, "main.json", `{
  "include": ["reports.json"],
  "inventoryReports": [{"id": "ir-2024-q1", "accountabilityDate": "2024-03-31T00:00:00Z", "items": []}]
}`)

		_, err := New(WithFollowIncludes()).Load(context.Background(), root)
		var dup *DuplicateError
		assert.True(t, errors.As(err, &dup))
		assert.Equal(t, "inventory report", dup.Kind)
	})
}

func TestLoadCanceled(t *testing.T) {
	dir := t.TempDir()
	writeBook(t, dir, "reports.json", reportsBook)
	root := writeBook(t, dir, "main.json", `{"include": ["reports.json"]}`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(WithFollowIncludes()).Load(ctx, root)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestLoadEmptyFile(t *testing.T) {
	dir := t.TempDir()
	root := writeBook(t, dir, "main.json", "\n")

	result, err := New().Load(context.Background(), root)
	assert.NoError(t, err)
	assert.Equal(t, 0, len(result.Book.StockCards))
}

func TestResultQueries(t *testing.T) {
	dir := t.TempDir()
	root := writeBook(t, dir, "main.json", reportsBook)

	result, err := New().Load(context.Background(), root)
	assert.NoError(t, err)

	t.Run("Items", func(t *testing.T) {
		items, err := result.Items(context.Background(), "ir-2024-q1", "SN-0001")
		assert.NoError(t, err)
		assert.Equal(t, 1, len(items))
		assert.Equal(t, "100", items[0].OnHandCount.String())
		assert.Equal(t, "215.5", items[0].UnitValue.String())
	})

	t.Run("ItemsUnknownReport", func(t *testing.T) {
		items, err := result.Items(context.Background(), "ir-missing", "SN-0001")
		assert.NoError(t, err)
		assert.Equal(t, 0, len(items))
	})

	t.Run("ReportsFor", func(t *testing.T) {
		reports := result.ReportsFor("SN-0001")
		assert.Equal(t, 2, len(reports))
		assert.Equal(t, "ir-2023-q4", reports[0].ID)
		assert.Equal(t, "ir-2024-q1", reports[1].ID)

		assert.Equal(t, 1, len(result.ReportsFor("SN-0002")))
		assert.Equal(t, 0, len(result.ReportsFor("SN-0404")))
	})
}

func TestMarshalBookRoundTrip(t *testing.T) {
	book, err := ParseBook("main.json", []byte(reportsBook))
	assert.NoError(t, err)

	data, err := MarshalBook(book)
	assert.NoError(t, err)
	assert.Equal(t, byte('\n'), data[len(data)-1])

	again, err := ParseBook("main.json", data)
	assert.NoError(t, err)
	assert.Equal(t, len(book.InventoryReports), len(again.InventoryReports))
	assert.Equal(t, "215.5", again.InventoryReports[0].Items[0].UnitValue.String())
}
