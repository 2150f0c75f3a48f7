package tabular

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// EncodeXLSX writes t as a single-sheet workbook: headers in the first row,
// then every data row. Strings stay text even when they look numeric.
func EncodeXLSX(t *Table) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := t.FirstSheet()
	if sheet == "" {
		sheet = "Sheet1"
	}
	if sheet != "Sheet1" {
		if err := f.SetSheetName("Sheet1", sheet); err != nil {
			return nil, fmt.Errorf("rename sheet: %w", err)
		}
	}

	set := func(col, row int, v Cell) error {
		if v == nil {
			return nil
		}
		axis, err := excelize.CoordinatesToCellName(col+1, row+1)
		if err != nil {
			return err
		}
		return f.SetCellValue(sheet, axis, v)
	}

	for c, h := range t.Headers {
		if err := set(c, 0, h); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
	}
	for r, row := range t.Rows {
		for c, v := range row {
			if err := set(c, r+1, v); err != nil {
				return nil, fmt.Errorf("write row %d: %w", r+1, err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("encode workbook: %w", err)
	}
	return buf.Bytes(), nil
}
