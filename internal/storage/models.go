package storage

// Row types mirror the tables in migrations/. Times are unix milliseconds.

type User struct {
	ID           string
	Email        string
	FullName     string
	Role         string
	PasswordHash string
	CreatedAt    int64
}

type Session struct {
	Token     string
	UserID    string
	ExpiresAt int64
	CreatedAt int64
}

type UploadedFile struct {
	ID           string
	UserID       string
	Filename     string
	OriginalName string
	FileSize     int64
	UploadDate   int64
	Status       string
	Error        string
}

type Analysis struct {
	ID           string
	UserID       string
	FileID       string
	ChartType    string
	XColumn      string
	YColumn      string
	Title        string
	ChartConfig  string
	CreatedAt    int64
	OriginalName string
}
