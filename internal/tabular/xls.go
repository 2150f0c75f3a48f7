package tabular

import (
	"bytes"
	"fmt"

	"github.com/extrame/xls"
)

// decodeXLS reads a legacy BIFF workbook. The reader exposes formatted text
// only, so every non-empty cell stays a string; "00123" keeps its zeros and
// numeric text is coerced later, at projection time.
func decodeXLS(data []byte) (grid [][]Cell, sheets []string, err error) {
	// The BIFF reader panics on some truncated streams.
	defer func() {
		if r := recover(); r != nil {
			grid, sheets = nil, nil
			err = fmt.Errorf("%w: corrupt xls stream: %v", ErrDecode, r)
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, nil, fmt.Errorf("%w: open workbook: %w", ErrDecode, err)
	}
	if wb == nil {
		return nil, nil, fmt.Errorf("%w: no workbook stream", ErrDecode)
	}
	n := wb.NumSheets()
	if n == 0 {
		return nil, nil, fmt.Errorf("%w: workbook has no sheets", ErrDecode)
	}
	sheets = make([]string, 0, n)
	for i := 0; i < n; i++ {
		if s := wb.GetSheet(i); s != nil {
			sheets = append(sheets, s.Name)
		}
	}

	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, nil, fmt.Errorf("%w: first sheet unreadable", ErrDecode)
	}
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := rowAt(sheet, i)
		if row == nil {
			grid = append(grid, []Cell{})
			continue
		}
		// LastCol is one past the last used column.
		cells := make([]Cell, max(row.LastCol(), 0))
		for c := row.FirstCol(); c < row.LastCol(); c++ {
			if v := row.Col(c); v != "" {
				cells[c] = v
			}
		}
		grid = append(grid, trimTrailing(cells))
	}
	return grid, sheets, nil
}

// rowAt returns row i of s, or nil when the sheet has no record for it. The
// reader dereferences missing rows, so that panic is contained here.
func rowAt(s *xls.WorkSheet, i int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return s.Row(i)
}
