package tabular

import "errors"

var (
	// ErrRead indicates the input stream could not be consumed.
	ErrRead = errors.New("read spreadsheet")

	// ErrDecode indicates the bytes are not a recognised spreadsheet container
	// or the container is corrupt.
	ErrDecode = errors.New("decode spreadsheet")

	// ErrEmptyInput indicates the first sheet has no rows, so there is no
	// header row to build a Table from.
	ErrEmptyInput = errors.New("empty spreadsheet: no header row")
)
