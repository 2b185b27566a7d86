package sheet

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"scribe/internal/services"
)

const (
	extCSV  = ".csv"
	extXLSX = ".xlsx"
	extXLSM = ".xlsm"
	extXLS  = ".xls"
)

// Read loads a tabular input file, selecting the codec by extension.
// Workbooks are read from their first sheet.
func Read(path string) (*Table, error) {
	return ReadSheet(path, "")
}

// ReadSheet is Read with an explicit worksheet name for workbook inputs.
// The name is ignored for CSV files.
func ReadSheet(path, sheetName string) (*Table, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, "sheet", "read", fmt.Sprintf("input file not found: %s", path), nil)
		}
		return nil, services.Wrap(services.ErrValidation, "sheet", "read", fmt.Sprintf("stat input file %s", path), err)
	}

	var (
		table *Table
		err   error
	)
	switch ext := normalizedExt(path); ext {
	case extCSV:
		table, err = readCSV(path)
	case extXLSX, extXLSM, extXLS:
		table, err = readExcel(path, sheetName)
	default:
		return nil, services.Wrap(
			services.ErrValidation,
			"sheet",
			"read",
			fmt.Sprintf("unsupported file type %q, use .csv, .xlsx, or .xls", ext),
			nil,
		)
	}
	if err != nil {
		return nil, err
	}
	table.normalizeRows()
	return table, nil
}

// Write stores the table at the requested path, selecting the codec by
// extension. Unrecognized extensions are rewritten to .csv. The returned
// path is the one actually written.
func Write(path string, table *Table) (string, error) {
	switch normalizedExt(path) {
	case extCSV:
		return path, writeCSV(path, table)
	case extXLSX, extXLSM, extXLS:
		return path, writeExcel(path, table)
	default:
		forced := strings.TrimSuffix(path, filepath.Ext(path)) + extCSV
		return forced, writeCSV(forced, table)
	}
}

// DerivedOutputPath builds the default output path for an input file by
// inserting "_generated" before the extension.
func DerivedOutputPath(inputPath string) string {
	ext := filepath.Ext(inputPath)
	base := strings.TrimSuffix(filepath.Base(inputPath), ext)
	return filepath.Join(filepath.Dir(inputPath), base+"_generated"+ext)
}

func normalizedExt(path string) string {
	return strings.ToLower(filepath.Ext(path))
}
