package importer

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// decodeExcel reads the first sheet of an .xlsx workbook into a header row
// and data rows. Excel cells never carry bracket-protected commas, but
// bracket-wrapped values are still honored so the same source content works
// in either format.
func decodeExcel(path string) (header []string, rows [][]string, err error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, fmt.Errorf("workbook has no sheets")
	}

	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}

	if len(records) == 0 {
		return nil, nil, fmt.Errorf("sheet %q has no header row", sheets[0])
	}

	return records[0], records[1:], nil
}
