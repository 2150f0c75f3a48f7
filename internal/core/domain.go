package core

import (
	"encoding/json"
	"errors"
	"net/mail"
	"path/filepath"
	"strings"
	"time"

	"sheetcharts/internal/chart"
)

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"

	StatusProcessing FileStatus = "processing"
	StatusCompleted  FileStatus = "completed"
	StatusError      FileStatus = "error"

	// DefaultTitle is used when an analysis is saved without a title.
	DefaultTitle = "My Chart"

	MinPasswordLength = 8
	MaxTitleLength    = 200
)

type (
	Role       string
	FileStatus string

	User struct {
		ID           string
		Email        string
		FullName     string
		Role         Role
		PasswordHash string `json:"-"`
		CreatedAt    time.Time
	}

	// UploadedFile is the metadata record of a stored spreadsheet. Filename is
	// the blob key; OriginalName is what the user uploaded.
	UploadedFile struct {
		ID           string
		UserID       string
		Filename     string
		OriginalName string
		FileSize     int64
		UploadDate   time.Time
		Status       FileStatus
		Error        string
	}

	// Session binds an opaque bearer token to a user until ExpiresAt.
	Session struct {
		Token     string
		UserID    string
		ExpiresAt time.Time
		CreatedAt time.Time
	}

	// Analysis is a saved chart: which columns of which file, plotted how.
	Analysis struct {
		ID          string
		UserID      string
		FileID      string
		FileName    string // original name of the file, filled on reads
		ChartKind   chart.Kind
		XColumn     string
		YColumn     string
		Title       string
		ChartConfig json.RawMessage
		CreatedAt   time.Time
	}
)

var (
	ErrInvalidEmail     = errors.New("invalid email")
	ErrEmptyFullName    = errors.New("empty full name")
	ErrWeakPassword     = errors.New("password too short")
	ErrInvalidRole      = errors.New("invalid role")
	ErrUnsupportedFile  = errors.New("unsupported file type: upload an Excel file (.xlsx, .xls)")
	ErrFileTooLarge     = errors.New("file too large")
	ErrEmptyFile        = errors.New("empty file")
	ErrEmptyColumn      = errors.New("column name required")
	ErrTitleTooLong     = errors.New("title too long (max 200 characters)")
	ErrInvalidChartKind = errors.New("invalid chart kind")
)

// AcceptedExtensions are the upload extensions the ingestion pipeline can decode.
var AcceptedExtensions = []string{".xlsx", ".xls"}

func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleAdmin
}

func (s FileStatus) IsValid() bool {
	switch s {
	case StatusProcessing, StatusCompleted, StatusError:
		return true
	default:
		return false
	}
}

// Extension returns the lower-cased extension of an uploaded file name.
func Extension(name string) string {
	return strings.ToLower(filepath.Ext(name))
}

// ValidateUpload checks name and size of a file before it is read.
func ValidateUpload(name string, size, maxSize int64) error {
	ext := Extension(name)
	accepted := false
	for _, e := range AcceptedExtensions {
		if ext == e {
			accepted = true
			break
		}
	}
	if !accepted {
		return ErrUnsupportedFile
	}
	if size == 0 {
		return ErrEmptyFile
	}
	if maxSize > 0 && size > maxSize {
		return ErrFileTooLarge
	}
	return nil
}

// ValidateSignUp checks the fields of a new account.
func ValidateSignUp(email, password, fullName string) error {
	if _, err := mail.ParseAddress(strings.TrimSpace(email)); err != nil {
		return ErrInvalidEmail
	}
	if strings.TrimSpace(fullName) == "" {
		return ErrEmptyFullName
	}
	if len(password) < MinPasswordLength {
		return ErrWeakPassword
	}
	return nil
}

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func (u User) Validate() error {
	if _, err := mail.ParseAddress(u.Email); err != nil {
		return ErrInvalidEmail
	}
	if strings.TrimSpace(u.FullName) == "" {
		return ErrEmptyFullName
	}
	if !u.Role.IsValid() {
		return ErrInvalidRole
	}
	return nil
}

// Normalize fills defaults before validation: a blank title becomes DefaultTitle.
func (a *Analysis) Normalize() {
	a.Title = strings.TrimSpace(a.Title)
	if a.Title == "" {
		a.Title = DefaultTitle
	}
}

func (a Analysis) Validate() error {
	if !a.ChartKind.IsValid() {
		return ErrInvalidChartKind
	}
	if strings.TrimSpace(a.XColumn) == "" || strings.TrimSpace(a.YColumn) == "" {
		return ErrEmptyColumn
	}
	if len(a.Title) > MaxTitleLength {
		return ErrTitleTooLong
	}
	return nil
}

// Expired reports whether the session is no longer valid at now.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
