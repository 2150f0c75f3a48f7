// Package export renders a chart dataset to PNG and PDF documents.
package export

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"sheetcharts/internal/chart"
	"sheetcharts/internal/tabular"
)

// ErrNoData is returned when a dataset has no points to draw.
var ErrNoData = errors.New("nothing to draw: dataset has no points")

type rgb struct{ R, G, B uint8 }

// parseHex reads "#RRGGBB"; anything else falls back to mid grey.
func parseHex(s string) rgb {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return rgb{128, 128, 128}
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return rgb{128, 128, 128}
	}
	return rgb{uint8(v >> 16), uint8(v >> 8), uint8(v)}
}

// plotValues returns the first series with non-finite measures drawn as zero.
func plotValues(ds chart.Dataset) []float64 {
	values := ds.Values()
	out := make([]float64, len(values))
	for i, v := range values {
		if !math.IsInf(v, 0) && !math.IsNaN(v) {
			out[i] = v
		}
	}
	return out
}

// valueRange returns the axis bounds for values, always including zero.
func valueRange(values []float64) (lo, hi float64) {
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi == lo {
		hi = lo + 1
	}
	return lo, hi
}

// slices returns the share of each positive value in the total. Non-positive
// values get no slice.
func slices(values []float64) []float64 {
	total := 0.0
	for _, v := range values {
		if v > 0 {
			total += v
		}
	}
	out := make([]float64, len(values))
	if total == 0 {
		return out
	}
	for i, v := range values {
		if v > 0 {
			out[i] = v / total
		}
	}
	return out
}

// ticks returns n+1 evenly spaced values from lo to hi.
func ticks(lo, hi float64, n int) []float64 {
	out := make([]float64, n+1)
	for i := range out {
		out[i] = lo + (hi-lo)*float64(i)/float64(n)
	}
	return out
}

func formatValue(v float64) string {
	return tabular.FormatNumber(math.Round(v*100) / 100)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}

func validate(ds chart.Dataset, kind chart.Kind) error {
	if !kind.IsValid() {
		return fmt.Errorf("export: %w", chart.ErrUnknownKind)
	}
	if len(ds.Values()) == 0 {
		return ErrNoData
	}
	return nil
}

func legendLabel(label string, share float64) string {
	return fmt.Sprintf("%s (%.1f%%)", label, share*100)
}

func labelAt(ds chart.Dataset, i int) string {
	if i < len(ds.Labels) {
		return ds.Labels[i]
	}
	return ""
}
