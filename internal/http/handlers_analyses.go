package http

import (
	"net/http"

	"sheetcharts/internal/chart"
	"sheetcharts/internal/core"
	"sheetcharts/internal/services"
)

func (s *Server) handleSaveAnalysis(w http.ResponseWriter, r *http.Request) {
	var req saveAnalysisRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, "save_analysis", err)
		return
	}

	kind, err := chart.ParseKind(req.ChartType)
	if err != nil {
		writeError(w, r, "save_analysis", err)
		return
	}

	a, err := s.analyses.SaveAnalysis(r.Context(), currentUser(r), services.SaveRequest{
		FileID:    req.FileID,
		ChartKind: kind,
		XColumn:   req.XColumn,
		YColumn:   req.YColumn,
		Title:     sanitizeInput(req.Title),
	})
	if err != nil {
		writeError(w, r, "save_analysis", err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(toAnalysis(a)).Write(w, r)
}

func (s *Server) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	list, err := s.analyses.ListAnalyses(r.Context(), currentUser(r))
	if err != nil {
		writeError(w, r, "list_analyses", err)
		return
	}
	NewJSONResponse().Body(map[string]any{"analyses": toAnalyses(list)}).Write(w, r)
}

func (s *Server) handleDeleteAnalysis(w http.ResponseWriter, r *http.Request) {
	if err := s.analyses.DeleteAnalysis(r.Context(), currentUser(r), r.PathValue("id")); err != nil {
		writeError(w, r, "delete_analysis", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExportPNG(w http.ResponseWriter, r *http.Request) {
	data, a, err := s.analyses.ExportPNG(r.Context(), currentUser(r), r.PathValue("id"))
	if err != nil {
		writeError(w, r, "export_png", err)
		return
	}
	writeExport(w, data, "image/png", exportName(a, ".png"))
}

func (s *Server) handleExportPDF(w http.ResponseWriter, r *http.Request) {
	data, a, err := s.analyses.ExportPDF(r.Context(), currentUser(r), r.PathValue("id"))
	if err != nil {
		writeError(w, r, "export_pdf", err)
		return
	}
	writeExport(w, data, "application/pdf", exportName(a, ".pdf"))
}

func writeExport(w http.ResponseWriter, data []byte, contentType, name string) {
	NewJSONResponse().
		Header("Content-Type", contentType).
		Header("Content-Disposition", contentDisposition(name)).
		Raw(data).
		Write(w)
}

func exportName(a core.Analysis, ext string) string {
	title := a.Title
	if title == "" {
		title = core.DefaultTitle
	}
	return title + ext
}
