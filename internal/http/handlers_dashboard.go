package http

import "net/http"

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := s.analyses.Dashboard(r.Context(), currentUser(r))
	if err != nil {
		writeError(w, r, "dashboard", err)
		return
	}
	NewJSONResponse().Body(dashboardResponse{
		TotalFiles:     stats.TotalFiles,
		TotalAnalyses:  stats.TotalAnalyses,
		TotalUsers:     stats.TotalUsers,
		RecentFiles:    toFiles(stats.RecentFiles),
		RecentAnalyses: toAnalyses(stats.RecentAnalyses),
	}).Write(w, r)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	h, err := s.analyses.History(r.Context(), currentUser(r))
	if err != nil {
		writeError(w, r, "history", err)
		return
	}
	NewJSONResponse().Body(historyResponse{
		Analyses: toAnalyses(h.Analyses),
		Files:    toFiles(h.Files),
	}).Write(w, r)
}
