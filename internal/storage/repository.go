package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"sheetcharts/internal/chart"
	"sheetcharts/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

var _ Repository = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	repo := &SQLiteRepository{
		db:      db,
		queries: New(db),
	}

	return repo, nil
}

// dsn enables foreign keys and a busy timeout so the server and worker can
// share one database file.
func dsn(path string) string {
	return "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// CreateUser implements UserStore
func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User) error {
	err := r.queries.CreateUser(ctx, CreateUserParams{
		ID:           u.ID,
		Email:        u.Email,
		FullName:     u.FullName,
		Role:         string(u.Role),
		PasswordHash: u.PasswordHash,
		CreatedAt:    toMillis(u.CreatedAt),
	})
	if err != nil {
		if isUniqueViolation(err) {
			return ErrEmailTaken
		}
		return fmt.Errorf("create user: %w", err)
	}

	slog.InfoContext(ctx, "User saved to SQLite", "user_id", u.ID, "role", u.Role)
	return nil
}

func (r *SQLiteRepository) GetUser(ctx context.Context, id string) (core.User, error) {
	row, err := r.queries.GetUser(ctx, id)
	if err != nil {
		return core.User{}, notFound("get user", err)
	}
	return userFromRow(row), nil
}

func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	row, err := r.queries.GetUserByEmail(ctx, email)
	if err != nil {
		return core.User{}, notFound("get user by email", err)
	}
	return userFromRow(row), nil
}

func (r *SQLiteRepository) CountUsers(ctx context.Context) (int64, error) {
	n, err := r.queries.CountUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// CreateSession implements SessionStore
func (r *SQLiteRepository) CreateSession(ctx context.Context, s core.Session) error {
	err := r.queries.CreateSession(ctx, CreateSessionParams{
		Token:     s.Token,
		UserID:    s.UserID,
		ExpiresAt: toMillis(s.ExpiresAt),
		CreatedAt: toMillis(s.CreatedAt),
	})
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetSession(ctx context.Context, token string, now time.Time) (core.Session, error) {
	row, err := r.queries.GetSession(ctx, GetSessionParams{Token: token, Now: toMillis(now)})
	if err != nil {
		return core.Session{}, notFound("get session", err)
	}
	return core.Session{
		Token:     row.Token,
		UserID:    row.UserID,
		ExpiresAt: fromMillis(row.ExpiresAt),
		CreatedAt: fromMillis(row.CreatedAt),
	}, nil
}

func (r *SQLiteRepository) DeleteSession(ctx context.Context, token string) error {
	if err := r.queries.DeleteSession(ctx, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	n, err := r.queries.DeleteExpiredSessions(ctx, toMillis(now))
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return n, nil
}

// CreateFile implements FileStore
func (r *SQLiteRepository) CreateFile(ctx context.Context, f core.UploadedFile) error {
	err := r.queries.CreateFile(ctx, CreateFileParams{
		ID:           f.ID,
		UserID:       f.UserID,
		Filename:     f.Filename,
		OriginalName: f.OriginalName,
		FileSize:     f.FileSize,
		UploadDate:   toMillis(f.UploadDate),
		Status:       string(f.Status),
		Error:        f.Error,
	})
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}

	slog.InfoContext(ctx, "File record saved to SQLite",
		"file_id", f.ID,
		"user_id", f.UserID,
		"file_size", f.FileSize,
		"status", f.Status)

	return nil
}

func (r *SQLiteRepository) GetFile(ctx context.Context, userID, id string) (core.UploadedFile, error) {
	row, err := r.queries.GetFile(ctx, GetFileParams{ID: id, UserID: userID})
	if err != nil {
		return core.UploadedFile{}, notFound("get file", err)
	}
	return fileFromRow(row), nil
}

func (r *SQLiteRepository) ListFiles(ctx context.Context, userID string, status core.FileStatus) ([]core.UploadedFile, error) {
	rows, err := r.queries.ListFiles(ctx, ListFilesParams{UserID: userID, Status: string(status)})
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	files := make([]core.UploadedFile, len(rows))
	for i, row := range rows {
		files[i] = fileFromRow(row)
	}
	return files, nil
}

func (r *SQLiteRepository) UpdateFileStatus(ctx context.Context, id string, status core.FileStatus, reason string) error {
	n, err := r.queries.UpdateFileStatus(ctx, UpdateFileStatusParams{
		Status: string(status),
		Error:  reason,
		ID:     id,
	})
	if err != nil {
		return fmt.Errorf("update file status: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	slog.InfoContext(ctx, "File status updated", "file_id", id, "status", status)
	return nil
}

func (r *SQLiteRepository) ListPendingFiles(ctx context.Context, olderThan time.Time, limit int) ([]core.UploadedFile, error) {
	rows, err := r.queries.ListPendingFiles(ctx, ListPendingFilesParams{
		OlderThan: toMillis(olderThan),
		Limit:     int64(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("list pending files: %w", err)
	}
	files := make([]core.UploadedFile, len(rows))
	for i, row := range rows {
		files[i] = fileFromRow(row)
	}
	return files, nil
}

// CreateAnalysis implements AnalysisStore
func (r *SQLiteRepository) CreateAnalysis(ctx context.Context, a core.Analysis) error {
	err := r.queries.CreateAnalysis(ctx, CreateAnalysisParams{
		ID:          a.ID,
		UserID:      a.UserID,
		FileID:      a.FileID,
		ChartType:   a.ChartKind.String(),
		XColumn:     a.XColumn,
		YColumn:     a.YColumn,
		Title:       a.Title,
		ChartConfig: string(a.ChartConfig),
		CreatedAt:   toMillis(a.CreatedAt),
	})
	if err != nil {
		return fmt.Errorf("create analysis: %w", err)
	}

	slog.InfoContext(ctx, "Analysis saved to SQLite",
		"analysis_id", a.ID,
		"chart_kind", a.ChartKind,
		"x_column", a.XColumn,
		"y_column", a.YColumn)

	return nil
}

func (r *SQLiteRepository) GetAnalysis(ctx context.Context, userID, id string) (core.Analysis, error) {
	row, err := r.queries.GetAnalysis(ctx, GetAnalysisParams{ID: id, UserID: userID})
	if err != nil {
		return core.Analysis{}, notFound("get analysis", err)
	}
	return analysisFromRow(row), nil
}

func (r *SQLiteRepository) ListAnalyses(ctx context.Context, userID string) ([]core.Analysis, error) {
	rows, err := r.queries.ListAnalyses(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	out := make([]core.Analysis, len(rows))
	for i, row := range rows {
		out[i] = analysisFromRow(row)
	}
	return out, nil
}

func (r *SQLiteRepository) DeleteAnalysis(ctx context.Context, userID, id string) error {
	n, err := r.queries.DeleteAnalysis(ctx, DeleteAnalysisParams{ID: id, UserID: userID})
	if err != nil {
		return fmt.Errorf("delete analysis: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func notFound(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func userFromRow(row User) core.User {
	return core.User{
		ID:           row.ID,
		Email:        row.Email,
		FullName:     row.FullName,
		Role:         core.Role(row.Role),
		PasswordHash: row.PasswordHash,
		CreatedAt:    fromMillis(row.CreatedAt),
	}
}

func fileFromRow(row UploadedFile) core.UploadedFile {
	return core.UploadedFile{
		ID:           row.ID,
		UserID:       row.UserID,
		Filename:     row.Filename,
		OriginalName: row.OriginalName,
		FileSize:     row.FileSize,
		UploadDate:   fromMillis(row.UploadDate),
		Status:       core.FileStatus(row.Status),
		Error:        row.Error,
	}
}

func analysisFromRow(row Analysis) core.Analysis {
	return core.Analysis{
		ID:          row.ID,
		UserID:      row.UserID,
		FileID:      row.FileID,
		FileName:    row.OriginalName,
		ChartKind:   chart.Kind(row.ChartType),
		XColumn:     row.XColumn,
		YColumn:     row.YColumn,
		Title:       row.Title,
		ChartConfig: json.RawMessage(row.ChartConfig),
		CreatedAt:   fromMillis(row.CreatedAt),
	}
}
