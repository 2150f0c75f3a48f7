package tabular

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// decodeXLSX returns the cell grid of the first sheet and all sheet names.
func decodeXLSX(data []byte) ([][]Cell, []string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: open workbook: %w", ErrDecode, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, fmt.Errorf("%w: workbook has no sheets", ErrDecode)
	}
	first := sheets[0]

	rows, err := f.GetRows(first, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: read rows of sheet %q: %w", ErrDecode, first, err)
	}

	grid := make([][]Cell, len(rows))
	for r, row := range rows {
		cells := make([]Cell, len(row))
		for c, raw := range row {
			if raw == "" {
				continue
			}
			axis, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return nil, nil, fmt.Errorf("%w: %w", ErrDecode, err)
			}
			typ, err := f.GetCellType(first, axis)
			if err != nil {
				return nil, nil, fmt.Errorf("%w: cell %s: %w", ErrDecode, axis, err)
			}
			cells[c] = typedCell(raw, typ)
		}
		grid[r] = trimTrailing(cells)
	}
	return grid, sheets, nil
}

// typedCell converts the raw text of a cell into string, float64 or bool.
func typedCell(raw string, typ excelize.CellType) Cell {
	switch typ {
	case excelize.CellTypeBool:
		switch strings.ToUpper(raw) {
		case "1", "TRUE":
			return true
		case "0", "FALSE":
			return false
		}
		return raw
	case excelize.CellTypeNumber, excelize.CellTypeUnset:
		if v, ok := parseNumber(raw); ok {
			return v
		}
		return raw
	default:
		return raw
	}
}

// parseNumber accepts plain decimal or exponent notation only. Spellings such
// as "Inf", "NaN" or hex floats stay text.
func parseNumber(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '.', r == '-', r == '+', r == 'e', r == 'E':
		default:
			return 0, false
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
