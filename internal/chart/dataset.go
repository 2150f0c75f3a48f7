package chart

import (
	"encoding/json"
	"math"

	"sheetcharts/internal/tabular"
)

// Palette is the colour cycle used for series and pie slices.
var Palette = []string{
	"#3B82F6", "#10B981", "#F59E0B", "#EF4444", "#8B5CF6",
	"#06B6D4", "#84CC16", "#F97316", "#EC4899", "#6366F1",
}

// Dataset is chart-library input: parallel labels and values plus styling.
type Dataset struct {
	Labels   []string `json:"labels"`
	Datasets []Series `json:"datasets"`
}

// Series is one plotted series. BackgroundColor and BorderColor hold either a
// single colour or one colour per point (pie charts).
type Series struct {
	Label           string    `json:"label"`
	Data            []float64 `json:"data"`
	BackgroundColor any       `json:"backgroundColor"`
	BorderColor     any       `json:"borderColor"`
	BorderWidth     int       `json:"borderWidth"`
	Fill            *bool     `json:"fill,omitempty"`
}

// MarshalJSON writes non-finite data as null, since JSON has no infinity.
func (s Series) MarshalJSON() ([]byte, error) {
	type series Series
	var data []any
	if s.Data != nil {
		data = make([]any, len(s.Data))
		for i, v := range s.Data {
			data[i] = jsonNumber(v)
		}
	}
	return json.Marshal(struct {
		series
		Data []any `json:"data"`
	}{series(s), data})
}

// MarshalJSON writes a non-finite measure as null.
func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Category tabular.Cell `json:"category"`
		Measure  any          `json:"measure"`
	}{p.Category, jsonNumber(p.Measure)})
}

func jsonNumber(v float64) any {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}
	return v
}

// Values returns the data of the first series.
func (d Dataset) Values() []float64 {
	if len(d.Datasets) == 0 {
		return nil
	}
	return d.Datasets[0].Data
}

// Labels renders point categories as display strings, in order.
func Labels(points []Point) []string {
	labels := make([]string, len(points))
	for i, p := range points {
		labels[i] = tabular.FormatCell(p.Category)
	}
	return labels
}

// BuildDataset shapes points into a single-series dataset for kind. label is
// usually the Y column name.
func BuildDataset(points []Point, kind Kind, label string) Dataset {
	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.Measure
	}

	s := Series{
		Label:       label,
		Data:        values,
		BorderWidth: 1,
	}
	if kind == Pie {
		colors := append([]string(nil), Palette...)
		s.BackgroundColor = colors
		s.BorderColor = colors
	} else {
		s.BackgroundColor = Palette[0]
		s.BorderColor = Palette[0]
	}
	if kind == Line {
		noFill := false
		s.BorderWidth = 2
		s.Fill = &noFill
	}

	return Dataset{
		Labels:   Labels(points),
		Datasets: []Series{s},
	}
}

// Options returns chart-library options for kind with title shown on top.
func Options(kind Kind, title string) map[string]any {
	opts := map[string]any{
		"responsive": true,
		"plugins": map[string]any{
			"legend": map[string]any{"position": "top"},
			"title": map[string]any{
				"display": true,
				"text":    title,
				"font":    map[string]any{"size": 16, "weight": "bold"},
			},
		},
	}
	if kind != Pie {
		opts["scales"] = map[string]any{
			"y": map[string]any{"beginAtZero": true},
		}
	}
	return opts
}

// Config is the persisted form of a chart: its options and dataset.
type Config struct {
	Options map[string]any `json:"options"`
	Data    Dataset        `json:"data"`
}

// NewConfig bundles options and dataset for storage alongside an analysis.
func NewConfig(kind Kind, title string, data Dataset) Config {
	return Config{Options: Options(kind, title), Data: data}
}

// ColorAt returns the palette colour for the i-th point, wrapping around.
func ColorAt(i int) string {
	return Palette[i%len(Palette)]
}
