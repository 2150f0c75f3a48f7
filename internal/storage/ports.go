package storage

import (
	"context"
	"errors"
	"time"

	"sheetcharts/internal/core"
)

var (
	// ErrNotFound is returned when a record does not exist or is not visible to the caller.
	ErrNotFound = errors.New("not found")
	// ErrEmailTaken is returned when a user with the same email already exists.
	ErrEmailTaken = errors.New("email already registered")
)

// Ports implemented by the sqlite repository and the in-memory store.
type (
	UserStore interface {
		CreateUser(ctx context.Context, u core.User) error
		GetUser(ctx context.Context, id string) (core.User, error)
		GetUserByEmail(ctx context.Context, email string) (core.User, error)
		CountUsers(ctx context.Context) (int64, error)
	}

	SessionStore interface {
		CreateSession(ctx context.Context, s core.Session) error
		// GetSession returns ErrNotFound for unknown and expired tokens.
		GetSession(ctx context.Context, token string, now time.Time) (core.Session, error)
		DeleteSession(ctx context.Context, token string) error
		DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
	}

	FileStore interface {
		CreateFile(ctx context.Context, f core.UploadedFile) error
		// GetFile scopes the lookup to userID; an empty userID reads any file.
		GetFile(ctx context.Context, userID, id string) (core.UploadedFile, error)
		// ListFiles returns the user's files newest first; an empty status lists all.
		ListFiles(ctx context.Context, userID string, status core.FileStatus) ([]core.UploadedFile, error)
		UpdateFileStatus(ctx context.Context, id string, status core.FileStatus, reason string) error
		// ListPendingFiles returns processing files uploaded before olderThan, oldest first.
		ListPendingFiles(ctx context.Context, olderThan time.Time, limit int) ([]core.UploadedFile, error)
	}

	AnalysisStore interface {
		CreateAnalysis(ctx context.Context, a core.Analysis) error
		GetAnalysis(ctx context.Context, userID, id string) (core.Analysis, error)
		// ListAnalyses returns the user's analyses newest first with FileName filled.
		ListAnalyses(ctx context.Context, userID string) ([]core.Analysis, error)
		DeleteAnalysis(ctx context.Context, userID, id string) error
	}

	// Repository is everything the application needs from the metadata store.
	Repository interface {
		UserStore
		SessionStore
		FileStore
		AnalysisStore
		Ping(ctx context.Context) error
		Close() error
	}
)
