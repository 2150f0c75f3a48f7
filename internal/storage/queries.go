package storage

import (
	"context"
)

const createUser = `
INSERT INTO users (id, email, full_name, role, password_hash, created_at)
VALUES (?, ?, ?, ?, ?, ?)
`

type CreateUserParams struct {
	ID           string
	Email        string
	FullName     string
	Role         string
	PasswordHash string
	CreatedAt    int64
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) error {
	_, err := q.db.ExecContext(ctx, createUser,
		arg.ID,
		arg.Email,
		arg.FullName,
		arg.Role,
		arg.PasswordHash,
		arg.CreatedAt,
	)
	return err
}

const getUser = `
SELECT id, email, full_name, role, password_hash, created_at FROM users WHERE id = ?
`

func (q *Queries) GetUser(ctx context.Context, id string) (User, error) {
	row := q.db.QueryRowContext(ctx, getUser, id)
	var i User
	err := row.Scan(
		&i.ID,
		&i.Email,
		&i.FullName,
		&i.Role,
		&i.PasswordHash,
		&i.CreatedAt,
	)
	return i, err
}

const getUserByEmail = `
SELECT id, email, full_name, role, password_hash, created_at FROM users WHERE email = ?
`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := q.db.QueryRowContext(ctx, getUserByEmail, email)
	var i User
	err := row.Scan(
		&i.ID,
		&i.Email,
		&i.FullName,
		&i.Role,
		&i.PasswordHash,
		&i.CreatedAt,
	)
	return i, err
}

const countUsers = `
SELECT COUNT(*) FROM users
`

func (q *Queries) CountUsers(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countUsers)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const createSession = `
INSERT INTO sessions (token, user_id, expires_at, created_at) VALUES (?, ?, ?, ?)
`

type CreateSessionParams struct {
	Token     string
	UserID    string
	ExpiresAt int64
	CreatedAt int64
}

func (q *Queries) CreateSession(ctx context.Context, arg CreateSessionParams) error {
	_, err := q.db.ExecContext(ctx, createSession,
		arg.Token,
		arg.UserID,
		arg.ExpiresAt,
		arg.CreatedAt,
	)
	return err
}

const getSession = `
SELECT token, user_id, expires_at, created_at FROM sessions WHERE token = ? AND expires_at > ?
`

type GetSessionParams struct {
	Token string
	Now   int64
}

func (q *Queries) GetSession(ctx context.Context, arg GetSessionParams) (Session, error) {
	row := q.db.QueryRowContext(ctx, getSession, arg.Token, arg.Now)
	var i Session
	err := row.Scan(
		&i.Token,
		&i.UserID,
		&i.ExpiresAt,
		&i.CreatedAt,
	)
	return i, err
}

const deleteSession = `
DELETE FROM sessions WHERE token = ?
`

func (q *Queries) DeleteSession(ctx context.Context, token string) error {
	_, err := q.db.ExecContext(ctx, deleteSession, token)
	return err
}

const deleteExpiredSessions = `
DELETE FROM sessions WHERE expires_at <= ?
`

func (q *Queries) DeleteExpiredSessions(ctx context.Context, now int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteExpiredSessions, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const createFile = `
INSERT INTO uploaded_files (id, user_id, filename, original_name, file_size, upload_date, status, error)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`

type CreateFileParams struct {
	ID           string
	UserID       string
	Filename     string
	OriginalName string
	FileSize     int64
	UploadDate   int64
	Status       string
	Error        string
}

func (q *Queries) CreateFile(ctx context.Context, arg CreateFileParams) error {
	_, err := q.db.ExecContext(ctx, createFile,
		arg.ID,
		arg.UserID,
		arg.Filename,
		arg.OriginalName,
		arg.FileSize,
		arg.UploadDate,
		arg.Status,
		arg.Error,
	)
	return err
}

const getFile = `
SELECT id, user_id, filename, original_name, file_size, upload_date, status, error
FROM uploaded_files
WHERE id = ?1 AND (?2 = '' OR user_id = ?2)
`

type GetFileParams struct {
	ID     string
	UserID string
}

func (q *Queries) GetFile(ctx context.Context, arg GetFileParams) (UploadedFile, error) {
	row := q.db.QueryRowContext(ctx, getFile, arg.ID, arg.UserID)
	var i UploadedFile
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.Filename,
		&i.OriginalName,
		&i.FileSize,
		&i.UploadDate,
		&i.Status,
		&i.Error,
	)
	return i, err
}

const listFiles = `
SELECT id, user_id, filename, original_name, file_size, upload_date, status, error
FROM uploaded_files
WHERE user_id = ?1 AND (?2 = '' OR status = ?2)
ORDER BY upload_date DESC, rowid DESC
`

type ListFilesParams struct {
	UserID string
	Status string
}

func (q *Queries) ListFiles(ctx context.Context, arg ListFilesParams) ([]UploadedFile, error) {
	rows, err := q.db.QueryContext(ctx, listFiles, arg.UserID, arg.Status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanFiles(rows)
}

const updateFileStatus = `
UPDATE uploaded_files SET status = ?, error = ? WHERE id = ?
`

type UpdateFileStatusParams struct {
	Status string
	Error  string
	ID     string
}

func (q *Queries) UpdateFileStatus(ctx context.Context, arg UpdateFileStatusParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateFileStatus, arg.Status, arg.Error, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const listPendingFiles = `
SELECT id, user_id, filename, original_name, file_size, upload_date, status, error
FROM uploaded_files
WHERE status = 'processing' AND upload_date < ?
ORDER BY upload_date ASC, rowid ASC
LIMIT ?
`

type ListPendingFilesParams struct {
	OlderThan int64
	Limit     int64
}

func (q *Queries) ListPendingFiles(ctx context.Context, arg ListPendingFilesParams) ([]UploadedFile, error) {
	rows, err := q.db.QueryContext(ctx, listPendingFiles, arg.OlderThan, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanFiles(rows)
}

type rowScanner interface {
	Next() bool
	Scan(dest ...interface{}) error
	Close() error
	Err() error
}

func scanFiles(rows rowScanner) ([]UploadedFile, error) {
	var items []UploadedFile
	for rows.Next() {
		var i UploadedFile
		if err := rows.Scan(
			&i.ID,
			&i.UserID,
			&i.Filename,
			&i.OriginalName,
			&i.FileSize,
			&i.UploadDate,
			&i.Status,
			&i.Error,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createAnalysis = `
INSERT INTO analyses (id, user_id, file_id, chart_type, x_column, y_column, title, chart_config, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`

type CreateAnalysisParams struct {
	ID          string
	UserID      string
	FileID      string
	ChartType   string
	XColumn     string
	YColumn     string
	Title       string
	ChartConfig string
	CreatedAt   int64
}

func (q *Queries) CreateAnalysis(ctx context.Context, arg CreateAnalysisParams) error {
	_, err := q.db.ExecContext(ctx, createAnalysis,
		arg.ID,
		arg.UserID,
		arg.FileID,
		arg.ChartType,
		arg.XColumn,
		arg.YColumn,
		arg.Title,
		arg.ChartConfig,
		arg.CreatedAt,
	)
	return err
}

const getAnalysis = `
SELECT a.id, a.user_id, a.file_id, a.chart_type, a.x_column, a.y_column, a.title, a.chart_config, a.created_at,
       COALESCE(f.original_name, '')
FROM analyses a
LEFT JOIN uploaded_files f ON f.id = a.file_id
WHERE a.id = ? AND a.user_id = ?
`

type GetAnalysisParams struct {
	ID     string
	UserID string
}

func (q *Queries) GetAnalysis(ctx context.Context, arg GetAnalysisParams) (Analysis, error) {
	row := q.db.QueryRowContext(ctx, getAnalysis, arg.ID, arg.UserID)
	var i Analysis
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.FileID,
		&i.ChartType,
		&i.XColumn,
		&i.YColumn,
		&i.Title,
		&i.ChartConfig,
		&i.CreatedAt,
		&i.OriginalName,
	)
	return i, err
}

const listAnalyses = `
SELECT a.id, a.user_id, a.file_id, a.chart_type, a.x_column, a.y_column, a.title, a.chart_config, a.created_at,
       COALESCE(f.original_name, '')
FROM analyses a
LEFT JOIN uploaded_files f ON f.id = a.file_id
WHERE a.user_id = ?
ORDER BY a.created_at DESC, a.rowid DESC
`

func (q *Queries) ListAnalyses(ctx context.Context, userID string) ([]Analysis, error) {
	rows, err := q.db.QueryContext(ctx, listAnalyses, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Analysis
	for rows.Next() {
		var i Analysis
		if err := rows.Scan(
			&i.ID,
			&i.UserID,
			&i.FileID,
			&i.ChartType,
			&i.XColumn,
			&i.YColumn,
			&i.Title,
			&i.ChartConfig,
			&i.CreatedAt,
			&i.OriginalName,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteAnalysis = `
DELETE FROM analyses WHERE id = ? AND user_id = ?
`

type DeleteAnalysisParams struct {
	ID     string
	UserID string
}

func (q *Queries) DeleteAnalysis(ctx context.Context, arg DeleteAnalysisParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteAnalysis, arg.ID, arg.UserID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
