// Package chart projects two columns of a tabular.Table into chart points and
// shapes those points into chart-library datasets.
package chart

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"sheetcharts/internal/tabular"
)

var (
	// ErrColumnNotFound indicates a requested column name is not among the
	// table headers.
	ErrColumnNotFound = errors.New("column not found")

	// ErrUnknownKind indicates an unsupported chart kind name.
	ErrUnknownKind = errors.New("unknown chart kind")
)

// Point is one plotted value: the raw X cell and the coerced Y value.
type Point struct {
	Category tabular.Cell `json:"category"`
	Measure  float64      `json:"measure"`
}

// Project maps column x (categories) and column y (measures) of t into points.
// Rows missing either cell are skipped; the rest keep their table order.
// Non-numeric measures become 0, see ToNumber.
func Project(t *tabular.Table, x, y string) ([]Point, error) {
	xi, ok := t.ColumnIndex(x)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, x)
	}
	yi, ok := t.ColumnIndex(y)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, y)
	}

	points := make([]Point, 0, len(t.Rows))
	for r := range t.Rows {
		xc, yc := t.Cell(r, xi), t.Cell(r, yi)
		if xc == nil || yc == nil {
			continue
		}
		points = append(points, Point{Category: xc, Measure: ToNumber(yc)})
	}
	return points, nil
}

// ToNumber coerces a cell to a float. Numbers pass through. Strings yield
// their longest leading decimal literal after leading whitespace, so "12abc"
// is 12 and "1e3" is 1000. Anything else, NaN and negative zero become 0.
func ToNumber(c tabular.Cell) float64 {
	var v float64
	switch c := c.(type) {
	case float64:
		v = c
	case int:
		v = float64(c)
	case int64:
		v = float64(c)
	case string:
		v = parseLeadingFloat(c)
	default:
		return 0
	}
	if math.IsNaN(v) || v == 0 {
		return 0
	}
	return v
}

func parseLeadingFloat(s string) float64 {
	s = strings.TrimLeftFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == '\uFEFF'
	})

	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	if strings.HasPrefix(s[i:], "Infinity") {
		if s[0] == '-' {
			return math.Inf(-1)
		}
		return math.Inf(1)
	}

	digits := 0
	for i < len(s) && isDigit(s[i]) {
		i++
		digits++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && isDigit(s[i]) {
			i++
			digits++
		}
	}
	if digits == 0 {
		return math.NaN()
	}
	end := i
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		k := j
		for k < len(s) && isDigit(s[k]) {
			k++
		}
		if k > j {
			end = k
		}
	}

	v, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		// Out-of-range literals saturate the way IEEE parsing does.
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			return v
		}
		return math.NaN()
	}
	return v
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
