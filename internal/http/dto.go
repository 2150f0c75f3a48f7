package http

import (
	"encoding/json"
	"time"

	"sheetcharts/internal/chart"
	"sheetcharts/internal/core"
	"sheetcharts/internal/services"
	"sheetcharts/internal/tabular"
)

type signUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type projectionRequest struct {
	X    string `json:"x"`
	Y    string `json:"y"`
	Kind string `json:"kind"`
}

type saveAnalysisRequest struct {
	FileID    string `json:"file_id"`
	ChartType string `json:"chart_type"`
	XColumn   string `json:"x_column"`
	YColumn   string `json:"y_column"`
	Title     string `json:"title"`
}

type importSheetRequest struct {
	Spreadsheet string `json:"spreadsheet"`
}

type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Role      core.Role `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

type sessionResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      userResponse `json:"user"`
}

type fileResponse struct {
	ID            string          `json:"id"`
	OriginalName  string          `json:"original_name"`
	FileSize      int64           `json:"file_size"`
	FileSizeHuman string          `json:"file_size_human"`
	UploadDate    time.Time       `json:"upload_date"`
	Status        core.FileStatus `json:"status"`
	Error         string          `json:"error,omitempty"`
}

type tableResponse struct {
	File       fileResponse     `json:"file"`
	Headers    []string         `json:"headers"`
	Rows       [][]tabular.Cell `json:"rows"`
	TotalRows  int              `json:"total_rows"`
	SheetNames []string         `json:"sheet_names"`
}

type projectionResponse struct {
	FileID  string        `json:"file_id"`
	Kind    chart.Kind    `json:"kind"`
	XColumn string        `json:"x_column"`
	YColumn string        `json:"y_column"`
	Points  []chart.Point `json:"points"`
	Dataset chart.Dataset `json:"dataset"`
}

type analysisResponse struct {
	ID          string          `json:"id"`
	FileID      string          `json:"file_id"`
	FileName    string          `json:"file_name,omitempty"`
	ChartType   chart.Kind      `json:"chart_type"`
	XColumn     string          `json:"x_column"`
	YColumn     string          `json:"y_column"`
	Title       string          `json:"title"`
	ChartConfig json.RawMessage `json:"chart_config,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

type dashboardResponse struct {
	TotalFiles     int                `json:"total_files"`
	TotalAnalyses  int                `json:"total_analyses"`
	TotalUsers     *int64             `json:"total_users,omitempty"`
	RecentFiles    []fileResponse     `json:"recent_files"`
	RecentAnalyses []analysisResponse `json:"recent_analyses"`
}

type historyResponse struct {
	Analyses []analysisResponse `json:"analyses"`
	Files    []fileResponse     `json:"files"`
}

func toUser(u core.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		FullName:  u.FullName,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

func toFile(f core.UploadedFile) fileResponse {
	return fileResponse{
		ID:            f.ID,
		OriginalName:  f.OriginalName,
		FileSize:      f.FileSize,
		FileSizeHuman: core.FormatFileSize(f.FileSize),
		UploadDate:    f.UploadDate,
		Status:        f.Status,
		Error:         f.Error,
	}
}

func toFiles(in []core.UploadedFile) []fileResponse {
	out := make([]fileResponse, 0, len(in))
	for _, f := range in {
		out = append(out, toFile(f))
	}
	return out
}

func toAnalysis(a core.Analysis) analysisResponse {
	return analysisResponse{
		ID:          a.ID,
		FileID:      a.FileID,
		FileName:    a.FileName,
		ChartType:   a.ChartKind,
		XColumn:     a.XColumn,
		YColumn:     a.YColumn,
		Title:       a.Title,
		ChartConfig: a.ChartConfig,
		CreatedAt:   a.CreatedAt,
	}
}

func toAnalyses(in []core.Analysis) []analysisResponse {
	out := make([]analysisResponse, 0, len(in))
	for _, a := range in {
		out = append(out, toAnalysis(a))
	}
	return out
}

func toProjection(p services.Projection) projectionResponse {
	points := p.Points
	if points == nil {
		points = []chart.Point{}
	}
	return projectionResponse{
		FileID:  p.File.ID,
		Kind:    p.Kind,
		XColumn: p.XColumn,
		YColumn: p.YColumn,
		Points:  points,
		Dataset: p.Dataset,
	}
}

// toTable renders t, keeping at most limit rows when limit > 0.
func toTable(f core.UploadedFile, t *tabular.Table, limit int) tableResponse {
	rows := t.Rows
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	if rows == nil {
		rows = [][]tabular.Cell{}
	}
	return tableResponse{
		File:       toFile(f),
		Headers:    t.Headers,
		Rows:       rows,
		TotalRows:  len(t.Rows),
		SheetNames: t.SheetNames,
	}
}
