package sheet

import (
	"fmt"
	"strings"

	"scribe/internal/services"
)

// Table is an ordered tabular dataset with a header row. Row order is
// load order and is preserved through column edits and writes.
type Table struct {
	Headers []string
	Rows    [][]string
}

// ColumnIndex locates a column by name. Matching ignores case and
// surrounding whitespace.
func (t *Table) ColumnIndex(name string) (int, bool) {
	want := strings.TrimSpace(name)
	for i, header := range t.Headers {
		if strings.EqualFold(strings.TrimSpace(header), want) {
			return i, true
		}
	}
	return 0, false
}

// RequireColumns verifies the named columns exist, reporting every missing
// one in a single validation error.
func (t *Table) RequireColumns(names ...string) error {
	var missing []string
	for _, name := range names {
		if _, ok := t.ColumnIndex(name); !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return services.Wrap(
			services.ErrValidation,
			"sheet",
			"validate columns",
			fmt.Sprintf("missing required columns: %s", strings.Join(missing, ", ")),
			nil,
		)
	}
	return nil
}

// Value returns the cell under the named column for the given row index, or
// an empty string when the row or column does not exist.
func (t *Table) Value(row int, column string) string {
	if row < 0 || row >= len(t.Rows) {
		return ""
	}
	idx, ok := t.ColumnIndex(column)
	if !ok || idx >= len(t.Rows[row]) {
		return ""
	}
	return t.Rows[row][idx]
}

// AppendColumn adds a column with one value per row. When a column of the
// same name already exists its values are replaced in place, so reprocessing
// an augmented file does not stack duplicate columns.
func (t *Table) AppendColumn(name string, values []string) error {
	if len(values) != len(t.Rows) {
		return fmt.Errorf("sheet: column %q needs %d values, got %d", name, len(t.Rows), len(values))
	}
	if idx, ok := t.ColumnIndex(name); ok {
		for i := range t.Rows {
			t.Rows[i] = padRow(t.Rows[i], idx+1)
			t.Rows[i][idx] = values[i]
		}
		return nil
	}
	t.Headers = append(t.Headers, name)
	for i := range t.Rows {
		t.Rows[i] = append(padRow(t.Rows[i], len(t.Headers)-1), values[i])
	}
	return nil
}

// normalizeRows forces every row to exactly the header width so later cell
// addressing is positional and stable.
func (t *Table) normalizeRows() {
	width := len(t.Headers)
	for i, row := range t.Rows {
		if len(row) > width {
			t.Rows[i] = row[:width]
			continue
		}
		t.Rows[i] = padRow(row, width)
	}
}

func padRow(row []string, width int) []string {
	for len(row) < width {
		row = append(row, "")
	}
	return row
}
