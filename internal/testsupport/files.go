package testsupport

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

// DefaultTemplate is the prompt template used by test fixtures.
const DefaultTemplate = "Generate a structured description with hosts, classification, and scope.\n\nFormat:\nHosts: <hosts> | Classification: <class>\n\nScope\n<details>\n"

// WriteTemplate writes the default prompt template to path and returns it.
func WriteTemplate(t testing.TB, path string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("create template dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(DefaultTemplate), 0o644); err != nil {
		t.Fatalf("write template: %v", err)
	}
	return path
}

// WriteCSV writes a control spreadsheet with the given header and rows and
// returns the file path.
func WriteCSV(t testing.TB, path string, header []string, rows [][]string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("create csv dir: %v", err)
	}
	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("create csv: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(header); err != nil {
		t.Fatalf("write csv header: %v", err)
	}
	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			t.Fatalf("write csv row: %v", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		t.Fatalf("flush csv: %v", err)
	}
	return path
}

// ControlsCSV writes a minimal title/description dataset and returns its path.
func ControlsCSV(t testing.TB, dir string, rows [][]string) string {
	t.Helper()
	return WriteCSV(t, filepath.Join(dir, "controls.csv"), []string{"title", "description"}, rows)
}

// ControlsWorkbook writes an xlsx workbook whose first sheet carries unrelated
// data and whose named sheet holds the title/description dataset. It returns
// the file path.
func ControlsWorkbook(t testing.TB, dir, sheetName string, rows [][]string) string {
	t.Helper()
	path := filepath.Join(dir, "controls.xlsx")

	file := excelize.NewFile()
	defer file.Close()
	if err := file.SetSheetRow("Sheet1", "A1", &[]any{"name", "notes"}); err != nil {
		t.Fatalf("write decoy header: %v", err)
	}
	if _, err := file.NewSheet(sheetName); err != nil {
		t.Fatalf("create sheet %q: %v", sheetName, err)
	}
	if err := file.SetSheetRow(sheetName, "A1", &[]any{"title", "description"}); err != nil {
		t.Fatalf("write header: %v", err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			t.Fatalf("address row %d: %v", i+2, err)
		}
		values := make([]any, len(row))
		for j, value := range row {
			values[j] = value
		}
		if err := file.SetSheetRow(sheetName, cell, &values); err != nil {
			t.Fatalf("write row %d: %v", i+2, err)
		}
	}
	if err := file.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
	return path
}
