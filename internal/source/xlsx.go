package source

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/fnly/tana/internal/models"
)

// ReadXLSX reads records from the first sheet of an Excel workbook. The first
// row is the header naming the fields; each following row becomes one record.
// Cell values are kept as strings; normalization handles typing.
func ReadXLSX(path string) ([]models.Record, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("catalog workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("get rows for sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	header := rows[0]
	records := make([]models.Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) == 0 {
			continue
		}
		rec := make(models.Record, len(header))
		for i, field := range header {
			if field == "" {
				continue
			}
			if i < len(row) {
				rec[field] = row[i]
			} else {
				// Trailing empty cells are dropped by excelize.
				rec[field] = ""
			}
		}
		records = append(records, rec)
	}
	return records, nil
}
