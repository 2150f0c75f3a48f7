package core

// RecentLimit is how many recent files and analyses the dashboard shows.
const RecentLimit = 5

// DashboardStats summarises a user's activity. TotalUsers is only set for admins.
type DashboardStats struct {
	TotalFiles     int
	TotalAnalyses  int
	TotalUsers     *int64
	RecentFiles    []UploadedFile
	RecentAnalyses []Analysis
}

// History lists everything a user has uploaded and saved, newest first.
type History struct {
	Analyses []Analysis
	Files    []UploadedFile
}

// NewDashboardStats builds stats from full, newest-first lists.
func NewDashboardStats(files []UploadedFile, analyses []Analysis) DashboardStats {
	return DashboardStats{
		TotalFiles:     len(files),
		TotalAnalyses:  len(analyses),
		RecentFiles:    headFiles(files, RecentLimit),
		RecentAnalyses: headAnalyses(analyses, RecentLimit),
	}
}

func headFiles(in []UploadedFile, n int) []UploadedFile {
	if len(in) > n {
		in = in[:n]
	}
	return append([]UploadedFile(nil), in...)
}

func headAnalyses(in []Analysis, n int) []Analysis {
	if len(in) > n {
		in = in[:n]
	}
	return append([]Analysis(nil), in...)
}
