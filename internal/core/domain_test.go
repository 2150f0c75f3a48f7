package core

import (
	"errors"
	"strings"
	"testing"

	"sheetcharts/internal/chart"
)

func TestValidateUpload(t *testing.T) {
	cases := []struct {
		name string
		size int64
		want error
	}{
		{"report.xlsx", 10, nil},
		{"REPORT.XLS", 10, nil},
		{"data.csv", 10, ErrUnsupportedFile},
		{"noext", 10, ErrUnsupportedFile},
		{"empty.xlsx", 0, ErrEmptyFile},
		{"big.xlsx", 2048, ErrFileTooLarge},
	}
	for _, tc := range cases {
		err := ValidateUpload(tc.name, tc.size, 1024)
		if !errors.Is(err, tc.want) {
			t.Errorf("ValidateUpload(%q, %d) = %v, want %v", tc.name, tc.size, err, tc.want)
		}
	}
}

func TestValidateSignUp(t *testing.T) {
	cases := []struct {
		email, password, name string
		want                  error
	}{
		{"ada@example.com", "longenough", "Ada", nil},
		{"not-an-email", "longenough", "Ada", ErrInvalidEmail},
		{"ada@example.com", "short", "Ada", ErrWeakPassword},
		{"ada@example.com", "longenough", "  ", ErrEmptyFullName},
	}
	for i, tc := range cases {
		if err := ValidateSignUp(tc.email, tc.password, tc.name); !errors.Is(err, tc.want) {
			t.Errorf("case %d: got %v, want %v", i, err, tc.want)
		}
	}
}

func TestUserValidate(t *testing.T) {
	u := User{Email: "a@b.co", FullName: "A", Role: RoleUser}
	if err := u.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	u.Role = "root"
	if err := u.Validate(); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
}

func TestAnalysisNormalizeAndValidate(t *testing.T) {
	a := Analysis{ChartKind: chart.Bar, XColumn: "Region", YColumn: "Sales", Title: "   "}
	a.Normalize()
	if a.Title != DefaultTitle {
		t.Fatalf("title = %q, want default", a.Title)
	}
	if err := a.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bad := a
	bad.ChartKind = "3d-column"
	if err := bad.Validate(); !errors.Is(err, ErrInvalidChartKind) {
		t.Errorf("kind: got %v", err)
	}
	bad = a
	bad.YColumn = ""
	if err := bad.Validate(); !errors.Is(err, ErrEmptyColumn) {
		t.Errorf("column: got %v", err)
	}
	bad = a
	bad.Title = strings.Repeat("t", MaxTitleLength+1)
	if err := bad.Validate(); !errors.Is(err, ErrTitleTooLong) {
		t.Errorf("title: got %v", err)
	}
}

func TestNewDashboardStatsKeepsRecentFive(t *testing.T) {
	files := make([]UploadedFile, 7)
	for i := range files {
		files[i].ID = string(rune('a' + i))
	}
	stats := NewDashboardStats(files, nil)
	if stats.TotalFiles != 7 || len(stats.RecentFiles) != RecentLimit {
		t.Fatalf("stats = %+v", stats)
	}
	if stats.RecentFiles[0].ID != "a" {
		t.Errorf("recent files not in input order")
	}
	if stats.TotalAnalyses != 0 || len(stats.RecentAnalyses) != 0 {
		t.Errorf("analyses = %+v", stats.RecentAnalyses)
	}
}

func TestFormatFileSize(t *testing.T) {
	cases := map[int64]string{
		512:             "0.5 KB",
		1024:            "1.0 KB",
		1024 * 1024:     "1024.0 KB",
		3 * 1024 * 1024: "3.0 MB",
	}
	for in, want := range cases {
		if got := FormatFileSize(in); got != want {
			t.Errorf("FormatFileSize(%d) = %q, want %q", in, got, want)
		}
	}
}
