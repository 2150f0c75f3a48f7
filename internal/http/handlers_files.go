package http

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"sheetcharts/internal/chart"
	"sheetcharts/internal/core"
)

// multipartOverhead is the slack allowed above the upload limit for the
// multipart envelope.
const multipartOverhead = 1 << 20

// handleUpload accepts a multipart form with the spreadsheet in field "file".
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+multipartOverhead)
	if err := r.ParseMultipartForm(multipartOverhead); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large") {
			writeError(w, r, "upload", core.ErrFileTooLarge)
			return
		}
		writeError(w, r, "upload", fmt.Errorf("%w: expected multipart form: %v", errBadRequest, err))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, "upload", fmt.Errorf("%w: missing form field \"file\"", errBadRequest))
		return
	}
	defer file.Close()

	name := filepath.Base(sanitizeInput(header.Filename))
	f, err := s.analyses.Upload(r.Context(), currentUser(r), name, header.Size, file)
	if err != nil {
		writeError(w, r, "upload", err)
		return
	}

	status := http.StatusCreated
	if f.Status == core.StatusProcessing {
		status = http.StatusAccepted
	}
	NewJSONResponse().Status(status).Body(toFile(f)).Write(w, r)
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	status := core.FileStatus(r.URL.Query().Get("status"))
	if status != "" && !status.IsValid() {
		writeError(w, r, "list_files", fmt.Errorf("%w: invalid status %q", errBadRequest, status))
		return
	}

	files, err := s.analyses.ListFiles(r.Context(), currentUser(r), status)
	if err != nil {
		writeError(w, r, "list_files", err)
		return
	}
	NewJSONResponse().Body(map[string]any{"files": toFiles(files)}).Write(w, r)
}

// handleTable returns the parsed table; ?limit=N caps the rows returned.
func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r.URL.Query(), "limit", 0)
	if err != nil {
		writeError(w, r, "table", err)
		return
	}

	table, f, err := s.analyses.Table(r.Context(), currentUser(r), r.PathValue("id"))
	if err != nil {
		writeError(w, r, "table", err)
		return
	}
	NewJSONResponse().Body(toTable(f, table, limit)).Write(w, r)
}

func (s *Server) handleProjection(w http.ResponseWriter, r *http.Request) {
	var req projectionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, "projection", err)
		return
	}

	kind := chart.Bar
	if req.Kind != "" {
		k, err := chart.ParseKind(req.Kind)
		if err != nil {
			writeError(w, r, "projection", err)
			return
		}
		kind = k
	}

	p, err := s.analyses.Project(r.Context(), currentUser(r), r.PathValue("id"), req.X, req.Y, kind)
	if err != nil {
		writeError(w, r, "projection", err)
		return
	}
	NewJSONResponse().Body(toProjection(p)).Write(w, r)
}

func (s *Server) handleImportSheet(w http.ResponseWriter, r *http.Request) {
	var req importSheetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, "import_sheet", err)
		return
	}

	f, err := s.analyses.ImportGoogleSheet(r.Context(), currentUser(r), sanitizeInput(req.Spreadsheet))
	if err != nil {
		writeError(w, r, "import_sheet", err)
		return
	}

	status := http.StatusCreated
	if f.Status == core.StatusProcessing {
		status = http.StatusAccepted
	}
	NewJSONResponse().Status(status).Body(toFile(f)).Write(w, r)
}
