package tabular

import (
	"bytes"
	"context"
	"fmt"
	"io"
)

// Format identifies a spreadsheet container.
type Format string

const (
	FormatUnknown Format = ""
	// FormatXLSX is the zip-based Office Open XML workbook.
	FormatXLSX Format = "xlsx"
	// FormatXLS is the legacy BIFF workbook inside an OLE2 compound file.
	FormatXLS Format = "xls"
)

var (
	zipMagic = []byte("PK\x03\x04")
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

// Sniff inspects the leading bytes of a file and reports its container format.
func Sniff(data []byte) Format {
	switch {
	case bytes.HasPrefix(data, zipMagic):
		return FormatXLSX
	case bytes.HasPrefix(data, oleMagic):
		return FormatXLS
	default:
		return FormatUnknown
	}
}

// Parse reads a spreadsheet from r and builds a Table from its first sheet.
// The first row becomes the headers and every following row is kept as is.
//
// Errors wrap ErrRead, ErrDecode or ErrEmptyInput.
func Parse(ctx context.Context, r io.Reader) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}
	return ParseBytes(ctx, data)
}

// ParseBytes is Parse for data already in memory.
func ParseBytes(ctx context.Context, data []byte) (*Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		grid   [][]Cell
		sheets []string
		err    error
	)
	switch Sniff(data) {
	case FormatXLSX:
		grid, sheets, err = decodeXLSX(data)
	case FormatXLS:
		grid, sheets, err = decodeXLS(data)
	default:
		return nil, fmt.Errorf("%w: unrecognised container (%d bytes)", ErrDecode, len(data))
	}
	if err != nil {
		return nil, err
	}
	return fromGrid(grid, sheets)
}
