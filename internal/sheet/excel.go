package sheet

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"scribe/internal/services"
)

func readExcel(path, sheetName string) (*Table, error) {
	file, err := excelize.OpenFile(path)
	if err != nil {
		if normalizedExt(path) == extXLS {
			return nil, services.Wrap(
				services.ErrValidation,
				"sheet",
				"read excel",
				fmt.Sprintf("legacy .xls workbook %s could not be opened, convert it to .xlsx or .csv", path),
				err,
			)
		}
		return nil, services.Wrap(services.ErrValidation, "sheet", "read excel", fmt.Sprintf("open %s", path), err)
	}
	defer file.Close()

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		return &Table{}, nil
	}
	selected := sheets[0]
	if want := strings.TrimSpace(sheetName); want != "" {
		selected = ""
		for _, name := range sheets {
			if strings.EqualFold(name, want) {
				selected = name
				break
			}
		}
		if selected == "" {
			return nil, services.Wrap(
				services.ErrValidation,
				"sheet",
				"read excel",
				fmt.Sprintf("worksheet %q not found in %s (available: %s)", want, path, strings.Join(sheets, ", ")),
				nil,
			)
		}
	}
	rows, err := file.GetRows(selected)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "sheet", "read excel", fmt.Sprintf("read sheet %q from %s", selected, path), err)
	}
	if len(rows) == 0 {
		return &Table{}, nil
	}
	return &Table{Headers: rows[0], Rows: rows[1:]}, nil
}

func writeExcel(path string, table *Table) error {
	file := excelize.NewFile()
	defer file.Close()

	sheetName := sheetTitle(path)
	if err := file.SetSheetName("Sheet1", sheetName); err != nil {
		return services.Wrap(services.ErrValidation, "sheet", "write excel", fmt.Sprintf("name sheet for %s", path), err)
	}

	for i, row := range append([][]string{table.Headers}, table.Rows...) {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return services.Wrap(services.ErrValidation, "sheet", "write excel", fmt.Sprintf("address row %d", i+1), err)
		}
		padded := padRow(row, len(table.Headers))
		values := make([]any, len(padded))
		for j, value := range padded {
			values[j] = value
		}
		if err := file.SetSheetRow(sheetName, cell, &values); err != nil {
			return services.Wrap(services.ErrValidation, "sheet", "write excel", fmt.Sprintf("write row %d to %s", i+1, path), err)
		}
	}

	// SaveAs validates the extension and refuses .xls, so write the OPC
	// archive directly. The reader accepts OPC content under .xls the same
	// way.
	out, err := os.Create(path)
	if err != nil {
		return services.Wrap(services.ErrValidation, "sheet", "write excel", fmt.Sprintf("create %s", path), err)
	}
	defer out.Close()
	if err := file.Write(out); err != nil {
		return services.Wrap(services.ErrValidation, "sheet", "write excel", fmt.Sprintf("save %s", path), err)
	}
	if err := out.Close(); err != nil {
		return services.Wrap(services.ErrValidation, "sheet", "write excel", fmt.Sprintf("save %s", path), err)
	}
	return nil
}

// sheetTitle derives a readable worksheet name from the output filename.
func sheetTitle(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	cleaned := strings.Builder{}
	prevSpace := false
	for _, r := range base {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			cleaned.WriteRune(r)
			prevSpace = false
		case unicode.IsSpace(r) || r == '-' || r == '_' || r == '.':
			if !prevSpace {
				cleaned.WriteRune(' ')
				prevSpace = true
			}
		}
	}
	title := strings.TrimSpace(cleaned.String())
	if title == "" {
		return "Records"
	}
	title = cases.Title(language.Und).String(title)
	// Worksheet names cap at 31 characters.
	if len(title) > 31 {
		title = strings.TrimSpace(title[:31])
	}
	return title
}
