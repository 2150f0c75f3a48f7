package chart

import (
	"encoding/json"
	"math"
	"reflect"
	"testing"

	"sheetcharts/internal/tabular"
)

func TestBuildDatasetPerKind(t *testing.T) {
	points := []Point{
		{Category: "North", Measure: 100},
		{Category: 2024.0, Measure: 0},
		{Category: true, Measure: 50},
	}

	for _, kind := range Kinds() {
		t.Run(string(kind), func(t *testing.T) {
			ds := BuildDataset(points, kind, "Sales")

			if want := []string{"North", "2024", "true"}; !reflect.DeepEqual(ds.Labels, want) {
				t.Errorf("labels = %v, want %v", ds.Labels, want)
			}
			if want := []float64{100, 0, 50}; !reflect.DeepEqual(ds.Values(), want) {
				t.Errorf("values = %v, want %v", ds.Values(), want)
			}
			s := ds.Datasets[0]
			if s.Label != "Sales" {
				t.Errorf("label = %q", s.Label)
			}

			switch kind {
			case Pie:
				if colors, ok := s.BackgroundColor.([]string); !ok || len(colors) != len(Palette) {
					t.Errorf("pie background = %#v", s.BackgroundColor)
				}
			default:
				if s.BackgroundColor != Palette[0] {
					t.Errorf("background = %#v", s.BackgroundColor)
				}
			}

			if kind == Line {
				if s.BorderWidth != 2 || s.Fill == nil || *s.Fill {
					t.Errorf("line border=%d fill=%v", s.BorderWidth, s.Fill)
				}
			} else if s.BorderWidth != 1 || s.Fill != nil {
				t.Errorf("border=%d fill=%v", s.BorderWidth, s.Fill)
			}
		})
	}
}

func TestOptionsOmitScalesForPie(t *testing.T) {
	if _, ok := Options(Pie, "t")["scales"]; ok {
		t.Error("pie options include scales")
	}
	if _, ok := Options(Bar, "t")["scales"]; !ok {
		t.Error("bar options missing scales")
	}
}

func TestConfigJSONShape(t *testing.T) {
	cfg := NewConfig(Line, "My Chart", BuildDataset([]Point{{Category: "a", Measure: 1}}, Line, "v"))
	raw, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded struct {
		Options struct {
			Plugins struct {
				Title struct {
					Text string `json:"text"`
				} `json:"title"`
			} `json:"plugins"`
		} `json:"options"`
		Data struct {
			Labels   []string `json:"labels"`
			Datasets []struct {
				Fill *bool `json:"fill"`
			} `json:"datasets"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Options.Plugins.Title.Text != "My Chart" {
		t.Errorf("title = %q", decoded.Options.Plugins.Title.Text)
	}
	if len(decoded.Data.Datasets) != 1 || decoded.Data.Datasets[0].Fill == nil {
		t.Errorf("datasets = %s", raw)
	}
}

func TestColorAtWraps(t *testing.T) {
	if ColorAt(len(Palette)) != Palette[0] {
		t.Error("ColorAt did not wrap")
	}
}

func TestOutOfRangeMeasuresMarshalAsNull(t *testing.T) {
	table := &tabular.Table{
		Headers: []string{"Region", "Sales"},
		Rows: [][]tabular.Cell{
			{"North", 100.0},
			{"South", "1e999"},
			{"West", "-Infinity"},
		},
	}
	points, err := Project(table, "Region", "Sales")
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	if !math.IsInf(points[1].Measure, 1) || !math.IsInf(points[2].Measure, -1) {
		t.Fatalf("measures = %v, want +Inf and -Inf", points)
	}

	raw, err := json.Marshal(NewConfig(Bar, "Sales", BuildDataset(points, Bar, "Sales")))
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	var cfg struct {
		Data struct {
			Datasets []struct {
				Data  []*float64 `json:"data"`
				Label string     `json:"label"`
			} `json:"datasets"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	data := cfg.Data.Datasets[0].Data
	if len(data) != 3 || data[0] == nil || *data[0] != 100 || data[1] != nil || data[2] != nil {
		t.Errorf("data = %s", raw)
	}
	if cfg.Data.Datasets[0].Label != "Sales" {
		t.Errorf("label lost in %s", raw)
	}

	raw, err = json.Marshal(points)
	if err != nil {
		t.Fatalf("marshal points: %v", err)
	}
	if want := `[{"category":"North","measure":100},{"category":"South","measure":null},{"category":"West","measure":null}]`; string(raw) != want {
		t.Errorf("points = %s, want %s", raw, want)
	}
}
