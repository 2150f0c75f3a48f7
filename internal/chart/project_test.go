package chart

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"sheetcharts/internal/tabular"
)

func salesTable() *tabular.Table {
	return &tabular.Table{
		Headers: []string{"Region", "Sales"},
		Rows: [][]tabular.Cell{
			{"North", 100.0},
			{"South", "bad"},
			{"East", 50.0},
		},
	}
}

func TestProjectSalesScenario(t *testing.T) {
	got, err := Project(salesTable(), "Region", "Sales")
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	want := []Point{
		{Category: "North", Measure: 100},
		{Category: "South", Measure: 0},
		{Category: "East", Measure: 50},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Project = %#v, want %#v", got, want)
	}
}

func TestProjectColumnNotFound(t *testing.T) {
	tests := []struct {
		name string
		x, y string
	}{
		{"missing x with valid y", "Missing", "Sales"},
		{"missing x with missing y", "Missing", "Nope"},
		{"missing y", "Region", "Nope"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Project(salesTable(), tt.x, tt.y)
			if !errors.Is(err, ErrColumnNotFound) {
				t.Fatalf("err = %v, want ErrColumnNotFound", err)
			}
		})
	}
}

func TestProjectSkipsAbsentCellsOnly(t *testing.T) {
	tbl := &tabular.Table{
		Headers: []string{"k", "v", "extra"},
		Rows: [][]tabular.Cell{
			{"a", 1.0},
			{"b"},
			{nil, 2.0},
			{"", 0.0},
			{false, "3"},
			{"c", nil, "x"},
			{},
		},
	}
	got, err := Project(tbl, "k", "v")
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	want := []Point{
		{Category: "a", Measure: 1},
		{Category: "", Measure: 0},
		{Category: false, Measure: 3},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Project = %#v, want %#v", got, want)
	}
}

func TestProjectLengthMatchesPresentRows(t *testing.T) {
	tbl := &tabular.Table{
		Headers: []string{"a", "b", "c"},
		Rows: [][]tabular.Cell{
			{"x", nil, 1.0},
			{"y", 2.0, 3.0},
			{nil, 4.0},
			{"z", "q", nil},
		},
	}
	for _, pair := range [][2]string{{"a", "b"}, {"a", "c"}, {"b", "c"}, {"c", "a"}} {
		want := 0
		xi, _ := tbl.ColumnIndex(pair[0])
		yi, _ := tbl.ColumnIndex(pair[1])
		for r := range tbl.Rows {
			if tbl.Cell(r, xi) != nil && tbl.Cell(r, yi) != nil {
				want++
			}
		}
		got, err := Project(tbl, pair[0], pair[1])
		if err != nil {
			t.Fatalf("Project(%v): %v", pair, err)
		}
		if len(got) != want {
			t.Errorf("Project(%v) len = %d, want %d", pair, len(got), want)
		}
	}
}

func TestProjectIsIdempotent(t *testing.T) {
	tbl := salesTable()
	first, err := Project(tbl, "Region", "Sales")
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	second, err := Project(tbl, "Region", "Sales")
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("repeat projection differs: %v vs %v", first, second)
	}
	if !reflect.DeepEqual(tbl, salesTable()) {
		t.Fatal("projection mutated the table")
	}
}

func TestProjectSameColumnTwice(t *testing.T) {
	got, err := Project(salesTable(), "Sales", "Sales")
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	if len(got) != 3 || got[1].Category != "bad" || got[1].Measure != 0 {
		t.Fatalf("Project = %#v", got)
	}
}

func TestToNumber(t *testing.T) {
	tests := []struct {
		in   tabular.Cell
		want float64
	}{
		{"abc", 0},
		{"42.5", 42.5},
		{42.0, 42},
		{"", 0},
		{"   7", 7},
		{"12abc", 12},
		{"1e3", 1000},
		{"1e", 1},
		{"-3.5kg", -3.5},
		{".5", 0.5},
		{"+.", 0},
		{"-0", 0},
		{true, 0},
		{false, 0},
		{nil, 0},
		{math.NaN(), 0},
		{"Infinity", math.Inf(1)},
		{"-Infinity and beyond", math.Inf(-1)},
		{"1e999", math.Inf(1)},
	}
	for _, tt := range tests {
		if got := ToNumber(tt.in); got != tt.want {
			t.Errorf("ToNumber(%#v) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if got := ToNumber(math.Copysign(0, -1)); math.Signbit(got) {
		t.Error("ToNumber(-0) kept the sign bit")
	}
}

func TestParseKind(t *testing.T) {
	for _, k := range Kinds() {
		got, err := ParseKind(" " + string(k) + " ")
		if err != nil || got != k {
			t.Errorf("ParseKind(%q) = %q, %v", k, got, err)
		}
	}
	if got, err := ParseKind("PIE"); err != nil || got != Pie {
		t.Errorf("ParseKind(PIE) = %q, %v", got, err)
	}
	if _, err := ParseKind("3d-column"); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("ParseKind(3d-column) err = %v", err)
	}
}
