package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"sheetcharts/internal/blob"
	"sheetcharts/internal/cache"
	"sheetcharts/internal/chart"
	"sheetcharts/internal/core"
	"sheetcharts/internal/export"
	"sheetcharts/internal/log"
	"sheetcharts/internal/storage"
	"sheetcharts/internal/tabular"
)

var (
	// ErrFileNotReady is returned when a file is still processing or failed ingestion.
	ErrFileNotReady = errors.New("file is not ready")
	// ErrSheetsDisabled is returned when no Google credentials are configured.
	ErrSheetsDisabled = errors.New("google sheets import is not configured")
)

// Publisher announces new uploads to the ingestion worker.
type Publisher interface {
	PublishFileUploaded(ctx context.Context, fileID, userID string) error
}

// SheetReader reads the first sheet of a remote spreadsheet as a table.
type SheetReader interface {
	ReadTable(ctx context.Context, ref string) (*tabular.Table, string, error)
}

// Projection is a chart-ready view of two columns of an uploaded file.
type Projection struct {
	File    core.UploadedFile
	Kind    chart.Kind
	XColumn string
	YColumn string
	Points  []chart.Point
	Dataset chart.Dataset
}

// SaveRequest describes an analysis to persist.
type SaveRequest struct {
	FileID    string
	ChartKind chart.Kind
	XColumn   string
	YColumn   string
	Title     string
}

// AnalysisService orchestrates uploads, projections and saved charts.
type AnalysisService struct {
	repo      storage.Repository
	blobs     blob.Store
	tables    *cache.TableCache
	publisher Publisher
	sheets    SheetReader
	maxUpload int64
	now       func() time.Time
	logger    *log.Logger
}

// AnalysisOption customises an AnalysisService.
type AnalysisOption func(*AnalysisService)

// WithPublisher routes ingestion through the queue instead of running it inline.
func WithPublisher(p Publisher) AnalysisOption {
	return func(s *AnalysisService) { s.publisher = p }
}

// WithSheetReader enables Google Sheets import.
func WithSheetReader(r SheetReader) AnalysisOption {
	return func(s *AnalysisService) { s.sheets = r }
}

func WithMaxUploadBytes(n int64) AnalysisOption {
	return func(s *AnalysisService) { s.maxUpload = n }
}

func WithServiceClock(now func() time.Time) AnalysisOption {
	return func(s *AnalysisService) { s.now = now }
}

func NewAnalysisService(repo storage.Repository, blobs blob.Store, tables *cache.TableCache, logger *log.Logger, opts ...AnalysisOption) *AnalysisService {
	s := &AnalysisService{
		repo:      repo,
		blobs:     blobs,
		tables:    tables,
		maxUpload: 10 << 20,
		now:       time.Now,
		logger:    logger.WithComponent(log.ComponentAnalysis),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Upload validates and stores a spreadsheet. The bytes are parsed up front so
// a broken file is rejected before anything is written.
func (s *AnalysisService) Upload(ctx context.Context, user core.User, name string, size int64, r io.Reader) (core.UploadedFile, error) {
	if err := core.ValidateUpload(name, size, s.maxUpload); err != nil {
		return core.UploadedFile{}, err
	}

	data, err := io.ReadAll(io.LimitReader(r, s.maxUpload+1))
	if err != nil {
		return core.UploadedFile{}, fmt.Errorf("%w: %w", tabular.ErrRead, err)
	}
	if int64(len(data)) > s.maxUpload {
		return core.UploadedFile{}, core.ErrFileTooLarge
	}
	if len(data) == 0 {
		return core.UploadedFile{}, core.ErrEmptyFile
	}

	table, err := tabular.ParseBytes(ctx, data)
	if err != nil {
		return core.UploadedFile{}, err
	}

	id := uuid.NewString()
	now := s.now().UTC()
	key := blob.Key(user.ID, id, now, core.Extension(name))
	written, err := s.blobs.Put(ctx, key, bytes.NewReader(data))
	if err != nil {
		return core.UploadedFile{}, fmt.Errorf("store upload: %w", err)
	}

	f := core.UploadedFile{
		ID:           id,
		UserID:       user.ID,
		Filename:     key,
		OriginalName: name,
		FileSize:     written,
		UploadDate:   now,
		Status:       core.StatusProcessing,
	}
	if err := s.repo.CreateFile(ctx, f); err != nil {
		if derr := s.blobs.Delete(ctx, key); derr != nil && !errors.Is(derr, blob.ErrNotFound) {
			s.logger.WarnContext(ctx, "Failed to remove orphaned blob", "key", key, log.FieldError, derr)
		}
		return core.UploadedFile{}, fmt.Errorf("save file record: %w", err)
	}

	s.logger.InfoContext(ctx, "File uploaded",
		log.FieldUserID, user.ID,
		log.FieldFileID, f.ID,
		log.FieldFileName, name,
		log.FieldFileSize, written)

	if s.publisher != nil {
		err := s.publisher.PublishFileUploaded(ctx, f.ID, user.ID)
		if err == nil {
			return f, nil
		}
		s.logger.WarnContext(ctx, "Failed to publish upload, completing inline",
			log.FieldFileID, f.ID,
			log.FieldError, err)
	}

	if err := s.repo.UpdateFileStatus(ctx, f.ID, core.StatusCompleted, ""); err != nil {
		return core.UploadedFile{}, fmt.Errorf("complete file record: %w", err)
	}
	f.Status = core.StatusCompleted
	s.tables.Set(f.ID, table)

	log.NewStructuredLogger(s.logger).LogFileIngested(ctx, user.ID, f.ID, name, len(table.Headers), len(table.Rows))
	return f, nil
}

// Table returns the parsed table of a completed file owned by user.
func (s *AnalysisService) Table(ctx context.Context, user core.User, fileID string) (*tabular.Table, core.UploadedFile, error) {
	f, err := s.repo.GetFile(ctx, user.ID, fileID)
	if err != nil {
		return nil, core.UploadedFile{}, err
	}
	if f.Status != core.StatusCompleted {
		if f.Error != "" {
			return nil, f, fmt.Errorf("%w: %s: %s", ErrFileNotReady, f.Status, f.Error)
		}
		return nil, f, fmt.Errorf("%w: %s", ErrFileNotReady, f.Status)
	}

	table, hit, err := s.tables.GetOrLoad(f.ID, func() (*tabular.Table, error) {
		return loadTable(ctx, s.blobs, f)
	})
	if err != nil {
		return nil, f, err
	}
	s.logger.DebugContext(ctx, "Table loaded", log.FieldFileID, f.ID, "cache_hit", hit)
	return table, f, nil
}

// Project reads the x and y columns of a file as chart points.
func (s *AnalysisService) Project(ctx context.Context, user core.User, fileID, x, y string, kind chart.Kind) (Projection, error) {
	if !kind.IsValid() {
		return Projection{}, core.ErrInvalidChartKind
	}
	if strings.TrimSpace(x) == "" || strings.TrimSpace(y) == "" {
		return Projection{}, core.ErrEmptyColumn
	}

	table, f, err := s.Table(ctx, user, fileID)
	if err != nil {
		return Projection{}, err
	}
	points, err := chart.Project(table, x, y)
	if err != nil {
		return Projection{}, err
	}

	s.logger.DebugContext(ctx, "Projection computed",
		log.NewFields().WithFile(f.ID, f.OriginalName, f.FileSize).
			WithProjection(string(kind), x, y, len(points)).ToSlice()...)

	return Projection{
		File:    f,
		Kind:    kind,
		XColumn: x,
		YColumn: y,
		Points:  points,
		Dataset: chart.BuildDataset(points, kind, y),
	}, nil
}

// SaveAnalysis recomputes the projection and stores it with its chart config.
func (s *AnalysisService) SaveAnalysis(ctx context.Context, user core.User, req SaveRequest) (core.Analysis, error) {
	a := core.Analysis{
		UserID:    user.ID,
		FileID:    req.FileID,
		ChartKind: req.ChartKind,
		XColumn:   req.XColumn,
		YColumn:   req.YColumn,
		Title:     req.Title,
	}
	a.Normalize()
	if err := a.Validate(); err != nil {
		return core.Analysis{}, err
	}

	p, err := s.Project(ctx, user, a.FileID, a.XColumn, a.YColumn, a.ChartKind)
	if err != nil {
		return core.Analysis{}, err
	}

	cfg, err := json.Marshal(chart.NewConfig(a.ChartKind, a.Title, p.Dataset))
	if err != nil {
		return core.Analysis{}, fmt.Errorf("encode chart config: %w", err)
	}
	a.ID = uuid.NewString()
	a.ChartConfig = cfg
	a.CreatedAt = s.now().UTC()
	a.FileName = p.File.OriginalName

	if err := s.repo.CreateAnalysis(ctx, a); err != nil {
		return core.Analysis{}, fmt.Errorf("save analysis: %w", err)
	}

	log.NewStructuredLogger(s.logger).LogAnalysisSaved(ctx, user.ID, a.ID, string(a.ChartKind), a.XColumn, a.YColumn, len(p.Points))
	return a, nil
}

func (s *AnalysisService) ListFiles(ctx context.Context, user core.User, status core.FileStatus) ([]core.UploadedFile, error) {
	if status != "" && !status.IsValid() {
		return nil, fmt.Errorf("invalid status filter %q", status)
	}
	return s.repo.ListFiles(ctx, user.ID, status)
}

func (s *AnalysisService) ListAnalyses(ctx context.Context, user core.User) ([]core.Analysis, error) {
	return s.repo.ListAnalyses(ctx, user.ID)
}

func (s *AnalysisService) DeleteAnalysis(ctx context.Context, user core.User, id string) error {
	if err := s.repo.DeleteAnalysis(ctx, user.ID, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Analysis deleted", log.FieldUserID, user.ID, log.FieldAnalysisID, id)
	return nil
}

// History loads the user's analyses and files concurrently.
func (s *AnalysisService) History(ctx context.Context, user core.User) (core.History, error) {
	var h core.History
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		h.Analyses, err = s.repo.ListAnalyses(gctx, user.ID)
		return err
	})
	g.Go(func() error {
		var err error
		h.Files, err = s.repo.ListFiles(gctx, user.ID, "")
		return err
	})
	if err := g.Wait(); err != nil {
		return core.History{}, fmt.Errorf("load history: %w", err)
	}
	return h, nil
}

// Dashboard summarises the user's files and analyses. Admins also see the user count.
func (s *AnalysisService) Dashboard(ctx context.Context, user core.User) (core.DashboardStats, error) {
	h, err := s.History(ctx, user)
	if err != nil {
		return core.DashboardStats{}, err
	}
	stats := core.NewDashboardStats(h.Files, h.Analyses)
	if user.IsAdmin() {
		n, err := s.repo.CountUsers(ctx)
		if err != nil {
			return core.DashboardStats{}, fmt.Errorf("count users: %w", err)
		}
		stats.TotalUsers = &n
	}
	return stats, nil
}

// ExportPNG renders a saved analysis as a PNG image.
func (s *AnalysisService) ExportPNG(ctx context.Context, user core.User, analysisID string) ([]byte, core.Analysis, error) {
	a, ds, err := s.exportDataset(ctx, user, analysisID)
	if err != nil {
		return nil, a, err
	}
	var buf bytes.Buffer
	if err := export.PNG(&buf, ds, a.ChartKind, a.Title); err != nil {
		return nil, a, fmt.Errorf("render png: %w", err)
	}
	s.logger.InfoContext(ctx, "Analysis exported", log.FieldAnalysisID, a.ID, log.FieldOperation, log.OpExport, "format", "png")
	return buf.Bytes(), a, nil
}

// ExportPDF renders a saved analysis as a single-page PDF.
func (s *AnalysisService) ExportPDF(ctx context.Context, user core.User, analysisID string) ([]byte, core.Analysis, error) {
	a, ds, err := s.exportDataset(ctx, user, analysisID)
	if err != nil {
		return nil, a, err
	}
	data, err := export.PDFBytes(ctx, ds, a.ChartKind, a.Title)
	if err != nil {
		return nil, a, fmt.Errorf("render pdf: %w", err)
	}
	s.logger.InfoContext(ctx, "Analysis exported", log.FieldAnalysisID, a.ID, log.FieldOperation, log.OpExport, "format", "pdf")
	return data, a, nil
}

// exportDataset returns the dataset stored with the analysis, re-projecting the
// file when the stored config is missing or unreadable.
func (s *AnalysisService) exportDataset(ctx context.Context, user core.User, analysisID string) (core.Analysis, chart.Dataset, error) {
	a, err := s.repo.GetAnalysis(ctx, user.ID, analysisID)
	if err != nil {
		return core.Analysis{}, chart.Dataset{}, err
	}

	var cfg chart.Config
	if len(a.ChartConfig) > 0 && json.Unmarshal(a.ChartConfig, &cfg) == nil && len(cfg.Data.Datasets) > 0 {
		return a, cfg.Data, nil
	}

	p, err := s.Project(ctx, user, a.FileID, a.XColumn, a.YColumn, a.ChartKind)
	if err != nil {
		return a, chart.Dataset{}, err
	}
	return a, p.Dataset, nil
}

// ImportGoogleSheet reads the first sheet of a spreadsheet and uploads it as an
// .xlsx file so it follows the normal ingestion path.
func (s *AnalysisService) ImportGoogleSheet(ctx context.Context, user core.User, ref string) (core.UploadedFile, error) {
	if s.sheets == nil {
		return core.UploadedFile{}, ErrSheetsDisabled
	}

	table, title, err := s.sheets.ReadTable(ctx, ref)
	if err != nil {
		return core.UploadedFile{}, err
	}
	data, err := tabular.EncodeXLSX(table)
	if err != nil {
		return core.UploadedFile{}, fmt.Errorf("encode imported sheet: %w", err)
	}

	name := strings.TrimSpace(title)
	if name == "" {
		name = "Google Sheet"
	}
	s.logger.InfoContext(ctx, "Importing Google spreadsheet",
		log.FieldUserID, user.ID,
		log.FieldOperation, log.OpImport,
		log.FieldRows, len(table.Rows))

	return s.Upload(ctx, user, name+".xlsx", int64(len(data)), bytes.NewReader(data))
}
