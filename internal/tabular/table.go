// Package tabular turns spreadsheet files into an in-memory Table built from
// the first sheet of the workbook.
package tabular

import (
	"fmt"
	"strconv"
	"strings"
)

// Cell is a raw cell value: string, float64, bool, or nil when the cell is absent.
type Cell = any

// Table is the header row plus the remaining rows of the first sheet.
// Rows may be shorter or longer than Headers. A Table is read-only once built.
type Table struct {
	Headers    []string
	Rows       [][]Cell
	SheetNames []string
}

// ColumnIndex resolves a header name to its column index. The first matching
// header wins.
func (t *Table) ColumnIndex(name string) (int, bool) {
	if t == nil {
		return -1, false
	}
	for i, h := range t.Headers {
		if h == name {
			return i, true
		}
	}
	return -1, false
}

// Cell returns the cell at (row, col), or nil when the row is too short.
func (t *Table) Cell(row, col int) Cell {
	if row < 0 || row >= len(t.Rows) || col < 0 {
		return nil
	}
	r := t.Rows[row]
	if col >= len(r) {
		return nil
	}
	return r[col]
}

// Width returns the widest row length, header row included.
func (t *Table) Width() int {
	w := len(t.Headers)
	for _, r := range t.Rows {
		if len(r) > w {
			w = len(r)
		}
	}
	return w
}

// FirstSheet returns the name of the ingested sheet.
func (t *Table) FirstSheet() string {
	if len(t.SheetNames) == 0 {
		return ""
	}
	return t.SheetNames[0]
}

// FormatCell renders a cell the way it is shown to users: numbers without
// trailing zeros, booleans as true/false, absent cells as "".
func FormatCell(c Cell) string {
	switch v := c.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return FormatNumber(v)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

// FormatNumber formats a float the way a JavaScript runtime stringifies numbers,
// so labels match what charting front ends display.
func FormatNumber(v float64) string {
	switch {
	case v != v:
		return "NaN"
	case v > 1.7976931348623157e308:
		return "Infinity"
	case v < -1.7976931348623157e308:
		return "-Infinity"
	case v == 0:
		return "0"
	}
	abs := v
	if abs < 0 {
		abs = -abs
	}
	if abs >= 1e21 || abs < 1e-6 {
		// Go pads exponents to two digits ("1e-07"); JavaScript does not.
		s := strconv.FormatFloat(v, 'e', -1, 64)
		mant, exp, _ := strings.Cut(s, "e")
		sign, digits := exp[:1], strings.TrimLeft(exp[1:], "0")
		return mant + "e" + sign + digits
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func headerStrings(row []Cell) []string {
	headers := make([]string, len(row))
	for i, c := range row {
		headers[i] = FormatCell(c)
	}
	return headers
}

// trimTrailing drops absent cells at the end of a row.
func trimTrailing(row []Cell) []Cell {
	n := len(row)
	for n > 0 && row[n-1] == nil {
		n--
	}
	return row[:n]
}

// trimTrailingRows drops empty rows at the end of a grid.
func trimTrailingRows(grid [][]Cell) [][]Cell {
	n := len(grid)
	for n > 0 && len(grid[n-1]) == 0 {
		n--
	}
	return grid[:n]
}

// usedRange crops grid to the rectangle that holds data: leading blank rows
// are dropped and every row is shifted left past columns that are empty in
// all rows, so a sheet starting at B3 reads the same as one starting at A1.
func usedRange(grid [][]Cell) [][]Cell {
	top := 0
	for top < len(grid) && len(grid[top]) == 0 {
		top++
	}
	grid = grid[top:]

	left := -1
	for _, row := range grid {
		for c, cell := range row {
			if cell != nil {
				if left < 0 || c < left {
					left = c
				}
				break
			}
		}
	}
	if left <= 0 {
		return grid
	}
	out := make([][]Cell, len(grid))
	for i, row := range grid {
		if len(row) > left {
			out[i] = row[left:]
		} else {
			out[i] = row[:0]
		}
	}
	return out
}

// fromGrid crops grid to its used range and promotes the first row to headers.
func fromGrid(grid [][]Cell, sheetNames []string) (*Table, error) {
	grid = usedRange(trimTrailingRows(grid))
	if len(grid) == 0 {
		return nil, ErrEmptyInput
	}
	return &Table{
		Headers:    headerStrings(grid[0]),
		Rows:       grid[1:],
		SheetNames: sheetNames,
	}, nil
}

// FromGrid builds a Table from a row-major grid produced outside this package,
// applying the same header, trailing-cell and empty-input rules as Parse.
// Empty strings count as absent cells.
func FromGrid(grid [][]Cell, sheetNames []string) (*Table, error) {
	rows := make([][]Cell, len(grid))
	for i, row := range grid {
		cells := make([]Cell, len(row))
		for j, c := range row {
			if s, ok := c.(string); ok && s == "" {
				continue
			}
			cells[j] = c
		}
		rows[i] = trimTrailing(cells)
	}
	return fromGrid(rows, sheetNames)
}
