package google

import (
	"sheetcharts/internal/tabular"
)

// parseValues converts a values matrix (as returned by Sheets API with
// UNFORMATTED_VALUE) into table cells. Numbers arrive as float64 and booleans
// as bool; anything else is kept as its string form.
func parseValues(values [][]interface{}) [][]tabular.Cell {
	grid := make([][]tabular.Cell, len(values))
	for i, row := range values {
		cells := make([]tabular.Cell, len(row))
		for j, v := range row {
			cells[j] = toCell(v)
		}
		grid[i] = cells
	}
	return grid
}

func toCell(v interface{}) tabular.Cell {
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		if x == "" {
			return nil
		}
		return x
	case float64, bool:
		return x
	case int:
		return float64(x)
	case int64:
		return float64(x)
	default:
		return tabular.FormatCell(x)
	}
}
