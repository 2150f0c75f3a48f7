package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"sheetcharts/internal/blob"
	"sheetcharts/internal/cache"
	"sheetcharts/internal/chart"
	"sheetcharts/internal/core"
	"sheetcharts/internal/log"
	"sheetcharts/internal/storage"
	"sheetcharts/internal/storage/memory"
	"sheetcharts/internal/tabular"
)

type fixture struct {
	repo    *memory.Store
	blobs   *blob.FS
	tables  *cache.TableCache
	logger  *log.Logger
	clock   *testClock
	service *AnalysisService
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

// Now advances by one second per call.
func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

type fakePublisher struct {
	mu        sync.Mutex
	published []string
	err       error
}

func (p *fakePublisher) PublishFileUploaded(_ context.Context, fileID, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, fileID)
	return nil
}

type fakeSheets struct {
	table *tabular.Table
	title string
	err   error
}

func (f fakeSheets) ReadTable(context.Context, string) (*tabular.Table, string, error) {
	return f.table, f.title, f.err
}

func newFixture(t *testing.T, opts ...AnalysisOption) *fixture {
	t.Helper()
	blobs, err := blob.NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	fx := &fixture{
		repo:   memory.New(),
		blobs:  blobs,
		tables: cache.NewTableCache(16, time.Minute),
		logger: log.New(log.Config{Output: io.Discard}),
		clock:  &testClock{t: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)},
	}
	opts = append([]AnalysisOption{WithServiceClock(fx.clock.Now), WithMaxUploadBytes(1 << 20)}, opts...)
	fx.service = NewAnalysisService(fx.repo, fx.blobs, fx.tables, fx.logger, opts...)
	return fx
}

func (fx *fixture) user(t *testing.T, id string, role core.Role) core.User {
	t.Helper()
	u := core.User{ID: id, Email: id + "@example.com", FullName: id, Role: role, CreatedAt: fx.clock.Now()}
	if err := fx.repo.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return u
}

func salesXLSX(t *testing.T) []byte {
	t.Helper()
	data, err := tabular.EncodeXLSX(&tabular.Table{
		Headers: []string{"Region", "Sales"},
		Rows: [][]tabular.Cell{
			{"North", 100.0},
			{"South", 200.0},
			{"East", "n/a"},
			{"West"},
		},
		SheetNames: []string{"Q1"},
	})
	if err != nil {
		t.Fatalf("EncodeXLSX: %v", err)
	}
	return data
}

func (fx *fixture) upload(t *testing.T, u core.User, name string, data []byte) core.UploadedFile {
	t.Helper()
	f, err := fx.service.Upload(context.Background(), u, name, int64(len(data)), bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Upload(%s): %v", name, err)
	}
	return f
}

func TestUpload_InlineCompletes(t *testing.T) {
	fx := newFixture(t)
	u := fx.user(t, "alice", core.RoleUser)
	ctx := context.Background()

	f := fx.upload(t, u, "sales.xlsx", salesXLSX(t))
	if f.Status != core.StatusCompleted {
		t.Fatalf("Status = %s, want completed", f.Status)
	}
	if !strings.HasPrefix(f.Filename, "alice/") || !strings.HasSuffix(f.Filename, ".xlsx") {
		t.Errorf("Filename = %q, want alice/<millis>-<id>.xlsx", f.Filename)
	}

	stored, err := fx.repo.GetFile(ctx, u.ID, f.ID)
	if err != nil {
		t.Fatalf("GetFile: %v", err)
	}
	if stored.Status != core.StatusCompleted {
		t.Errorf("stored Status = %s, want completed", stored.Status)
	}

	table, _, err := fx.service.Table(ctx, u, f.ID)
	if err != nil {
		t.Fatalf("Table: %v", err)
	}
	if len(table.Headers) != 2 || table.Headers[1] != "Sales" {
		t.Errorf("Headers = %v", table.Headers)
	}
	if stats := fx.tables.Stats(); stats.Hits != 1 {
		t.Errorf("expected a cache hit after inline ingestion, got %+v", stats)
	}
}

func TestUpload_SameInstantKeepsFilesApart(t *testing.T) {
	fixed := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	fx := newFixture(t, WithServiceClock(func() time.Time { return fixed }))
	u := fx.user(t, "alice", core.RoleUser)
	ctx := context.Background()

	first := fx.upload(t, u, "a.xlsx", salesXLSX(t))
	other, err := tabular.EncodeXLSX(&tabular.Table{
		Headers: []string{"Month", "Revenue"},
		Rows:    [][]tabular.Cell{{"Jan", 1.0}},
	})
	if err != nil {
		t.Fatalf("EncodeXLSX: %v", err)
	}
	second := fx.upload(t, u, "b.xlsx", other)

	if first.Filename == second.Filename {
		t.Fatalf("both uploads stored under %q", first.Filename)
	}

	fx.tables.Delete(first.ID)
	table, _, err := fx.service.Table(ctx, u, first.ID)
	if err != nil {
		t.Fatalf("Table: %v", err)
	}
	if table.Headers[0] != "Region" {
		t.Errorf("first upload reads headers %v, want the Region sheet", table.Headers)
	}
}

func TestUpload_Rejections(t *testing.T) {
	fx := newFixture(t)
	u := fx.user(t, "alice", core.RoleUser)

	tests := []struct {
		name    string
		file    string
		size    int64
		data    []byte
		wantErr error
	}{
		{"csv extension", "sales.csv", 10, []byte("a,b\n1,2\n"), core.ErrUnsupportedFile},
		{"empty", "sales.xlsx", 0, nil, core.ErrEmptyFile},
		{"declared too large", "sales.xlsx", 2 << 20, []byte("x"), core.ErrFileTooLarge},
		{"actually too large", "sales.xlsx", 1, bytes.Repeat([]byte("x"), 2<<20), core.ErrFileTooLarge},
		{"not a spreadsheet", "sales.xlsx", 5, []byte("hello"), tabular.ErrDecode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fx.service.Upload(context.Background(), u, tt.file, tt.size, bytes.NewReader(tt.data))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Upload() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	files, err := fx.repo.ListFiles(context.Background(), u.ID, "")
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}
	if len(files) != 0 {
		t.Errorf("rejected uploads left %d file records", len(files))
	}
}

func TestUpload_QueuedThenIngested(t *testing.T) {
	pub := &fakePublisher{}
	fx := newFixture(t, WithPublisher(pub))
	u := fx.user(t, "alice", core.RoleUser)
	ctx := context.Background()

	f := fx.upload(t, u, "sales.xlsx", salesXLSX(t))
	if f.Status != core.StatusProcessing {
		t.Fatalf("Status = %s, want processing", f.Status)
	}
	if len(pub.published) != 1 || pub.published[0] != f.ID {
		t.Fatalf("published = %v, want [%s]", pub.published, f.ID)
	}

	if _, _, err := fx.service.Table(ctx, u, f.ID); !errors.Is(err, ErrFileNotReady) {
		t.Fatalf("Table() before ingestion error = %v, want ErrFileNotReady", err)
	}

	ing := NewIngester(fx.repo, fx.blobs, fx.tables, fx.logger)
	if err := ing.Ingest(ctx, f.ID); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	if _, _, err := fx.service.Table(ctx, u, f.ID); err != nil {
		t.Fatalf("Table() after ingestion: %v", err)
	}
}

func TestUpload_PublishFailureCompletesInline(t *testing.T) {
	fx := newFixture(t, WithPublisher(&fakePublisher{err: errors.New("circuit breaker is open")}))
	u := fx.user(t, "alice", core.RoleUser)

	f := fx.upload(t, u, "sales.xlsx", salesXLSX(t))
	if f.Status != core.StatusCompleted {
		t.Errorf("Status = %s, want completed", f.Status)
	}
}

func TestProject(t *testing.T) {
	fx := newFixture(t)
	alice := fx.user(t, "alice", core.RoleUser)
	bob := fx.user(t, "bob", core.RoleUser)
	ctx := context.Background()
	f := fx.upload(t, alice, "sales.xlsx", salesXLSX(t))

	p, err := fx.service.Project(ctx, alice, f.ID, "Region", "Sales", chart.Bar)
	if err != nil {
		t.Fatalf("Project: %v", err)
	}
	want := []chart.Point{
		{Category: "North", Measure: 100},
		{Category: "South", Measure: 200},
		{Category: "East", Measure: 0},
	}
	if len(p.Points) != len(want) {
		t.Fatalf("Points = %v, want %v", p.Points, want)
	}
	for i := range want {
		if p.Points[i] != want[i] {
			t.Errorf("Points[%d] = %v, want %v", i, p.Points[i], want[i])
		}
	}
	if got := p.Dataset.Labels; len(got) != 3 || got[0] != "North" {
		t.Errorf("Dataset labels = %v", got)
	}

	tests := []struct {
		name    string
		user    core.User
		x, y    string
		kind    chart.Kind
		wantErr error
	}{
		{"missing column", alice, "Region", "Revenue", chart.Bar, chart.ErrColumnNotFound},
		{"empty column", alice, "", "Sales", chart.Bar, core.ErrEmptyColumn},
		{"bad kind", alice, "Region", "Sales", chart.Kind("radar"), core.ErrInvalidChartKind},
		{"other user's file", bob, "Region", "Sales", chart.Bar, storage.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fx.service.Project(ctx, tt.user, f.ID, tt.x, tt.y, tt.kind)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Project() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSaveAnalysisHistoryAndDashboard(t *testing.T) {
	fx := newFixture(t)
	admin := fx.user(t, "root", core.RoleAdmin)
	alice := fx.user(t, "alice", core.RoleUser)
	ctx := context.Background()
	f := fx.upload(t, alice, "sales.xlsx", salesXLSX(t))

	a, err := fx.service.SaveAnalysis(ctx, alice, SaveRequest{
		FileID:    f.ID,
		ChartKind: chart.Pie,
		XColumn:   "Region",
		YColumn:   "Sales",
		Title:     "   ",
	})
	if err != nil {
		t.Fatalf("SaveAnalysis: %v", err)
	}
	if a.Title != core.DefaultTitle {
		t.Errorf("Title = %q, want %q", a.Title, core.DefaultTitle)
	}

	var cfg chart.Config
	if err := json.Unmarshal(a.ChartConfig, &cfg); err != nil {
		t.Fatalf("ChartConfig is not JSON: %v", err)
	}
	if got := cfg.Data.Values(); len(got) != 3 || got[1] != 200 {
		t.Errorf("stored data = %v", got)
	}
	if _, ok := cfg.Options["scales"]; ok {
		t.Error("pie chart config should not carry scales")
	}

	if _, err := fx.service.SaveAnalysis(ctx, alice, SaveRequest{FileID: f.ID, ChartKind: chart.Bar, XColumn: "Region", YColumn: "Nope"}); !errors.Is(err, chart.ErrColumnNotFound) {
		t.Errorf("SaveAnalysis() with missing column error = %v", err)
	}

	h, err := fx.service.History(ctx, alice)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(h.Analyses) != 1 || len(h.Files) != 1 {
		t.Fatalf("History = %d analyses, %d files", len(h.Analyses), len(h.Files))
	}
	if h.Analyses[0].FileName != "sales.xlsx" {
		t.Errorf("FileName = %q, want sales.xlsx", h.Analyses[0].FileName)
	}

	stats, err := fx.service.Dashboard(ctx, alice)
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	if stats.TotalFiles != 1 || stats.TotalAnalyses != 1 || stats.TotalUsers != nil {
		t.Errorf("user dashboard = %+v", stats)
	}

	adminStats, err := fx.service.Dashboard(ctx, admin)
	if err != nil {
		t.Fatalf("Dashboard(admin): %v", err)
	}
	if adminStats.TotalUsers == nil || *adminStats.TotalUsers != 2 {
		t.Errorf("admin TotalUsers = %v, want 2", adminStats.TotalUsers)
	}

	if err := fx.service.DeleteAnalysis(ctx, alice, a.ID); err != nil {
		t.Fatalf("DeleteAnalysis: %v", err)
	}
	if err := fx.service.DeleteAnalysis(ctx, alice, a.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("second DeleteAnalysis() error = %v, want ErrNotFound", err)
	}
}

func TestExport(t *testing.T) {
	fx := newFixture(t)
	u := fx.user(t, "alice", core.RoleUser)
	ctx := context.Background()
	f := fx.upload(t, u, "sales.xlsx", salesXLSX(t))

	a, err := fx.service.SaveAnalysis(ctx, u, SaveRequest{FileID: f.ID, ChartKind: chart.Line, XColumn: "Region", YColumn: "Sales", Title: "Sales"})
	if err != nil {
		t.Fatalf("SaveAnalysis: %v", err)
	}

	img, _, err := fx.service.ExportPNG(ctx, u, a.ID)
	if err != nil {
		t.Fatalf("ExportPNG: %v", err)
	}
	if !bytes.HasPrefix(img, []byte("\x89PNG")) {
		t.Errorf("ExportPNG did not return a PNG")
	}

	doc, _, err := fx.service.ExportPDF(ctx, u, a.ID)
	if err != nil {
		t.Fatalf("ExportPDF: %v", err)
	}
	if !bytes.HasPrefix(doc, []byte("%PDF")) {
		t.Errorf("ExportPDF did not return a PDF")
	}

	if _, _, err := fx.service.ExportPNG(ctx, u, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("ExportPNG(missing) error = %v", err)
	}
}

func TestImportGoogleSheet(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		fx := newFixture(t)
		u := fx.user(t, "alice", core.RoleUser)
		if _, err := fx.service.ImportGoogleSheet(context.Background(), u, "abc"); !errors.Is(err, ErrSheetsDisabled) {
			t.Errorf("ImportGoogleSheet() error = %v, want ErrSheetsDisabled", err)
		}
	})

	t.Run("stores an xlsx", func(t *testing.T) {
		sheet := &tabular.Table{
			Headers:    []string{"Month", "Visits"},
			Rows:       [][]tabular.Cell{{"Jan", 10.0}, {"Feb", 12.5}},
			SheetNames: []string{"Traffic"},
		}
		fx := newFixture(t, WithSheetReader(fakeSheets{table: sheet, title: "Web stats"}))
		u := fx.user(t, "alice", core.RoleUser)
		ctx := context.Background()

		f, err := fx.service.ImportGoogleSheet(ctx, u, "1AbC_def-GHIjkl")
		if err != nil {
			t.Fatalf("ImportGoogleSheet: %v", err)
		}
		if f.OriginalName != "Web stats.xlsx" {
			t.Errorf("OriginalName = %q", f.OriginalName)
		}

		p, err := fx.service.Project(ctx, u, f.ID, "Month", "Visits", chart.Bar)
		if err != nil {
			t.Fatalf("Project: %v", err)
		}
		if len(p.Points) != 2 || p.Points[1].Measure != 12.5 {
			t.Errorf("Points = %v", p.Points)
		}
	})

	t.Run("reader error", func(t *testing.T) {
		readErr := errors.New("permission denied")
		fx := newFixture(t, WithSheetReader(fakeSheets{err: readErr}))
		u := fx.user(t, "alice", core.RoleUser)
		if _, err := fx.service.ImportGoogleSheet(context.Background(), u, "x"); !errors.Is(err, readErr) {
			t.Errorf("ImportGoogleSheet() error = %v", err)
		}
	})
}

func TestListFilesStatusFilter(t *testing.T) {
	fx := newFixture(t)
	u := fx.user(t, "alice", core.RoleUser)
	fx.upload(t, u, "sales.xlsx", salesXLSX(t))

	if _, err := fx.service.ListFiles(context.Background(), u, core.FileStatus("archived")); err == nil {
		t.Error("expected error for unknown status filter")
	}
	files, err := fx.service.ListFiles(context.Background(), u, core.StatusCompleted)
	if err != nil || len(files) != 1 {
		t.Errorf("ListFiles(completed) = %d files, %v", len(files), err)
	}
}
