package main

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"sheetcharts/internal/chart"
	"sheetcharts/internal/tabular"
)

const (
	barRune     = "█"
	markerRune  = "●"
	minBarWidth = 10
)

// renderTextChart draws points as horizontal bars scaled to width columns.
// Pie charts show each slice's share; line and scatter charts mark the value
// instead of filling the bar.
func renderTextChart(points []chart.Point, kind chart.Kind, width int) string {
	if len(points) == 0 {
		return labelStyle.Render("no data points")
	}

	labels := chart.Labels(points)
	labelWidth := 0
	for _, l := range labels {
		labelWidth = max(labelWidth, lipgloss.Width(l))
	}
	labelWidth = min(labelWidth, 24)

	values := make([]string, len(points))
	valueWidth := 0
	for i, p := range points {
		values[i] = tabular.FormatNumber(p.Measure)
		if kind == chart.Pie {
			values[i] = fmt.Sprintf("%s (%s)", values[i], share(points, i))
		}
		valueWidth = max(valueWidth, len(values[i]))
	}

	barWidth := max(width-labelWidth-valueWidth-4, minBarWidth)
	scale := maxAbs(points)

	var b strings.Builder
	for i, p := range points {
		label := truncate(labels[i], labelWidth)
		n := 0
		if scale > 0 && !math.IsNaN(p.Measure) {
			// Infinite measures fill the whole bar.
			n = int(math.Round(math.Min(math.Abs(p.Measure)/scale, 1) * float64(barWidth)))
		}
		color := lipgloss.Color(chart.ColorAt(0))
		if kind == chart.Pie {
			color = lipgloss.Color(chart.ColorAt(i))
		}
		style := lipgloss.NewStyle().Foreground(color)

		var bar string
		switch kind {
		case chart.Line, chart.Scatter:
			bar = strings.Repeat(" ", max(n-1, 0)) + style.Render(markerRune)
			n = max(n, 1)
		default:
			bar = style.Render(strings.Repeat(barRune, n))
		}
		pad := strings.Repeat(" ", barWidth-min(n, barWidth))

		label += strings.Repeat(" ", max(labelWidth-lipgloss.Width(label), 0))
		fmt.Fprintf(&b, "%s │%s%s %s\n", label, bar, pad, values[i])
	}
	return strings.TrimRight(b.String(), "\n")
}

// maxAbs returns the largest finite magnitude among points.
func maxAbs(points []chart.Point) float64 {
	m := 0.0
	for _, p := range points {
		if finite(p.Measure) {
			m = math.Max(m, math.Abs(p.Measure))
		}
	}
	return m
}

// share formats point i's percentage of the absolute total of finite values.
func share(points []chart.Point, i int) string {
	if !finite(points[i].Measure) {
		return "-"
	}
	total := 0.0
	for _, p := range points {
		if finite(p.Measure) {
			total += math.Abs(p.Measure)
		}
	}
	if total == 0 {
		return "0%"
	}
	return fmt.Sprintf("%.1f%%", math.Abs(points[i].Measure)/total*100)
}

func finite(v float64) bool {
	return !math.IsInf(v, 0) && !math.IsNaN(v)
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
