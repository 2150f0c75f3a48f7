package export

import (
	"fmt"
	"io"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"sheetcharts/internal/chart"
)

const (
	pngWidth  = 900
	pngHeight = 560

	maxTickLabels = 15
)

// PNG draws ds as a kind chart titled title and encodes it to w.
func PNG(w io.Writer, ds chart.Dataset, kind chart.Kind, title string) error {
	if err := validate(ds, kind); err != nil {
		return err
	}

	var r interface {
		Render(gochart.RendererProvider, io.Writer) error
	}
	switch kind {
	case chart.Bar:
		r = barChart(ds, title)
	case chart.Pie:
		pc, err := pieChart(ds, title)
		if err != nil {
			return err
		}
		r = pc
	default:
		r = seriesChart(ds, kind, title)
	}

	if err := r.Render(gochart.PNG, w); err != nil {
		return fmt.Errorf("render %s chart: %w", kind, err)
	}
	return nil
}

func barChart(ds chart.Dataset, title string) gochart.BarChart {
	values := plotValues(ds)
	lo, hi := valueRange(values)

	bars := make([]gochart.Value, len(values))
	for i, v := range values {
		col := seriesColor(0)
		bars[i] = gochart.Value{
			Value: v,
			Label: truncate(tickLabel(ds, i, len(values)), 10),
			Style: gochart.Style{FillColor: col, StrokeColor: col, StrokeWidth: 1},
		}
	}

	// Fit every bar into the plot area; go-chart defaults assume a handful.
	slot := (pngWidth - 120) / len(bars)
	barWidth := max(slot*7/10, 1)

	return gochart.BarChart{
		Title:        title,
		Width:        pngWidth,
		Height:       pngHeight,
		Background:   gochart.Style{Padding: gochart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		BarWidth:     barWidth,
		BarSpacing:   max(slot-barWidth, 1),
		UseBaseValue: true,
		BaseValue:    0,
		YAxis: gochart.YAxis{
			Range:          &gochart.ContinuousRange{Min: lo, Max: hi},
			ValueFormatter: axisFormatter,
		},
		Bars: bars,
	}
}

// seriesChart plots line and scatter charts on evenly spaced category slots.
func seriesChart(ds chart.Dataset, kind chart.Kind, title string) gochart.Chart {
	values := plotValues(ds)
	lo, hi := valueRange(values)
	n := len(values)

	xs := make([]float64, n)
	ticks := make([]gochart.Tick, 0, n)
	for i := range values {
		xs[i] = float64(i + 1)
		if label := tickLabel(ds, i, n); label != "" {
			ticks = append(ticks, gochart.Tick{Value: xs[i], Label: truncate(label, 10)})
		}
	}

	col := seriesColor(0)
	style := gochart.Style{StrokeColor: col, StrokeWidth: 2, DotColor: col, DotWidth: 3}
	if kind == chart.Scatter {
		style = gochart.Style{StrokeColor: drawing.ColorTransparent, StrokeWidth: 0, DotColor: col, DotWidth: 4}
	}

	label := ""
	if len(ds.Datasets) > 0 {
		label = ds.Datasets[0].Label
	}

	c := gochart.Chart{
		Title:      title,
		Width:      pngWidth,
		Height:     pngHeight,
		Background: gochart.Style{Padding: gochart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis: gochart.XAxis{
			Ticks: ticks,
			// Half a slot of padding on each side keeps a single point drawable.
			Range: &gochart.ContinuousRange{Min: 0.5, Max: float64(n) + 0.5},
		},
		YAxis: gochart.YAxis{
			Range:          &gochart.ContinuousRange{Min: lo, Max: hi},
			ValueFormatter: axisFormatter,
		},
		Series: []gochart.Series{
			gochart.ContinuousSeries{Name: label, XValues: xs, YValues: values, Style: style},
		},
	}
	c.Elements = []gochart.Renderable{gochart.Legend(&c)}
	return c
}

// pieChart keeps only positive measures; a pie with none has nothing to show.
func pieChart(ds chart.Dataset, title string) (gochart.PieChart, error) {
	shares := slices(plotValues(ds))

	var values []gochart.Value
	for i, s := range shares {
		if s <= 0 {
			continue
		}
		col := seriesColor(i)
		values = append(values, gochart.Value{
			Value: s,
			Label: truncate(legendLabel(labelAt(ds, i), s), 24),
			Style: gochart.Style{FillColor: col, StrokeColor: drawing.ColorWhite, StrokeWidth: 1},
		})
	}
	if len(values) == 0 {
		return gochart.PieChart{}, fmt.Errorf("pie chart: %w", ErrNoData)
	}

	return gochart.PieChart{
		Title:      title,
		Width:      pngWidth,
		Height:     pngHeight,
		Background: gochart.Style{Padding: gochart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		Values:     values,
	}, nil
}

// tickLabel returns the i-th category label, or "" when the axis is too
// crowded to label every slot.
func tickLabel(ds chart.Dataset, i, n int) string {
	step := 1
	if n > maxTickLabels {
		step = (n + maxTickLabels - 1) / maxTickLabels
	}
	if i%step != 0 {
		return ""
	}
	return labelAt(ds, i)
}

func axisFormatter(v any) string {
	if f, ok := v.(float64); ok {
		return formatValue(f)
	}
	return fmt.Sprint(v)
}

func seriesColor(i int) drawing.Color {
	h := parseHex(chart.ColorAt(i))
	return drawing.Color{R: h.R, G: h.G, B: h.B, A: 255}
}
