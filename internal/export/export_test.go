package export

import (
	"bytes"
	"context"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sheetcharts/internal/chart"
	"sheetcharts/internal/tabular"
)

func salesDataset(kind chart.Kind) chart.Dataset {
	points := []chart.Point{
		{Category: "North", Measure: 100},
		{Category: "South", Measure: 200},
		{Category: "East", Measure: -50},
	}
	return chart.BuildDataset(points, kind, "Sales")
}

func TestPNG_AllKinds(t *testing.T) {
	for _, kind := range chart.Kinds() {
		t.Run(kind.String(), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, PNG(&buf, salesDataset(kind), kind, "Sales by region"))

			img, err := png.Decode(&buf)
			require.NoError(t, err)
			assert.Equal(t, pngWidth, img.Bounds().Dx())
			assert.Equal(t, pngHeight, img.Bounds().Dy())
		})
	}
}

func TestPNG_Errors(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, PNG(&buf, chart.Dataset{}, chart.Bar, "empty"), ErrNoData)
	assert.ErrorIs(t, PNG(&buf, salesDataset(chart.Bar), chart.Kind("radar"), "bad"), chart.ErrUnknownKind)
	assert.Zero(t, buf.Len())
}

func TestPNG_SinglePoint(t *testing.T) {
	ds := chart.BuildDataset([]chart.Point{{Category: "Only", Measure: 7}}, chart.Line, "Sales")
	for _, kind := range chart.Kinds() {
		var buf bytes.Buffer
		require.NoError(t, PNG(&buf, ds, kind, "One"), kind.String())
	}
}

func TestPNG_NonFiniteMeasuresDrawAsZero(t *testing.T) {
	ds := chart.BuildDataset([]chart.Point{
		{Category: "North", Measure: 100},
		{Category: "South", Measure: math.Inf(1)},
	}, chart.Bar, "Sales")
	assert.Equal(t, []float64{100, 0}, plotValues(ds))

	var buf bytes.Buffer
	require.NoError(t, PNG(&buf, ds, chart.Bar, "Sales"))
	_, err := png.Decode(&buf)
	require.NoError(t, err)
}

func TestPNG_PieWithoutPositiveValues(t *testing.T) {
	ds := chart.BuildDataset([]chart.Point{
		{Category: "North", Measure: 0},
		{Category: "South", Measure: -3},
	}, chart.Pie, "Sales")

	var buf bytes.Buffer
	assert.ErrorIs(t, PNG(&buf, ds, chart.Pie, "Sales"), ErrNoData)
}

func TestTickLabelThinsCrowdedAxes(t *testing.T) {
	points := make([]chart.Point, 30)
	for i := range points {
		points[i] = chart.Point{Category: float64(i), Measure: 1}
	}
	ds := chart.BuildDataset(points, chart.Line, "n")

	assert.Equal(t, "0", tickLabel(ds, 0, 30))
	assert.Equal(t, "", tickLabel(ds, 1, 30))
	assert.Equal(t, "2", tickLabel(ds, 2, 30))
	assert.Equal(t, "1", tickLabel(chart.BuildDataset(points[:5], chart.Line, "n"), 1, 5))
}

func TestPDF_WritesDocument(t *testing.T) {
	for _, kind := range chart.Kinds() {
		t.Run(kind.String(), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "chart.pdf")
			require.NoError(t, PDF(context.Background(), path, salesDataset(kind), kind, "Sales by region"))

			data, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")), "missing PDF header")
		})
	}
}

func TestPDFBytes(t *testing.T) {
	data, err := PDFBytes(context.Background(), salesDataset(chart.Line), chart.Line, "Trend")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))

	_, err = PDFBytes(context.Background(), chart.Dataset{}, chart.Line, "Trend")
	assert.ErrorIs(t, err, ErrNoData)
}

func TestSlices(t *testing.T) {
	shares := slices([]float64{1, 3, -2, 0})
	assert.InDeltaSlice(t, []float64{0.25, 0.75, 0, 0}, shares, 1e-9)
	assert.Equal(t, []float64{0, 0}, slices([]float64{0, -1}))
}

func TestValueRange(t *testing.T) {
	lo, hi := valueRange([]float64{5, 10})
	assert.Equal(t, 0.0, lo)
	assert.Equal(t, 10.0, hi)

	lo, hi = valueRange([]float64{-4, 2})
	assert.Equal(t, -4.0, lo)
	assert.Equal(t, 2.0, hi)

	lo, hi = valueRange([]float64{0})
	assert.Equal(t, 0.0, lo)
	assert.Equal(t, 1.0, hi)
}

func TestHelpers(t *testing.T) {
	assert.Equal(t, rgb{0x3B, 0x82, 0xF6}, parseHex("#3B82F6"))
	assert.Equal(t, rgb{128, 128, 128}, parseHex("nope"))
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
	assert.Equal(t, "North (25.0%)", legendLabel("North", 0.25))
	assert.Equal(t, tabular.FormatNumber(1.5), formatValue(1.5))
}
