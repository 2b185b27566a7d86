package sheet

import (
	"encoding/csv"
	"fmt"
	"os"

	"scribe/internal/services"
)

func readCSV(path string) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "sheet", "read csv", fmt.Sprintf("open %s", path), err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "sheet", "read csv", fmt.Sprintf("parse %s", path), err)
	}
	if len(records) == 0 {
		return &Table{}, nil
	}
	return &Table{Headers: records[0], Rows: records[1:]}, nil
}

func writeCSV(path string, table *Table) error {
	file, err := os.Create(path)
	if err != nil {
		return services.Wrap(services.ErrValidation, "sheet", "write csv", fmt.Sprintf("create %s", path), err)
	}

	writer := csv.NewWriter(file)
	if err := writer.Write(table.Headers); err != nil {
		file.Close()
		return services.Wrap(services.ErrValidation, "sheet", "write csv", fmt.Sprintf("write header to %s", path), err)
	}
	for _, row := range table.Rows {
		if err := writer.Write(padRow(row, len(table.Headers))); err != nil {
			file.Close()
			return services.Wrap(services.ErrValidation, "sheet", "write csv", fmt.Sprintf("write row to %s", path), err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		file.Close()
		return services.Wrap(services.ErrValidation, "sheet", "write csv", fmt.Sprintf("flush %s", path), err)
	}
	if err := file.Close(); err != nil {
		return services.Wrap(services.ErrValidation, "sheet", "write csv", fmt.Sprintf("close %s", path), err)
	}
	return nil
}
