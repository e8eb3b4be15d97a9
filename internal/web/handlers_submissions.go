package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/formconsole/internal/core"
)

func parseSubmissionFilter(r *http.Request) (core.SubmissionFilter, error) {
	q := r.URL.Query()
	from, err := parseDateParam(r, "from", false)
	if err != nil {
		return core.SubmissionFilter{}, err
	}
	to, err := parseDateParam(r, "to", true)
	if err != nil {
		return core.SubmissionFilter{}, err
	}
	return core.SubmissionFilter{
		TemplateID: q.Get("templateId"),
		UserID:     q.Get("userId"),
		From:       from,
		To:         to,
		Search:     q.Get("q"),
	}, nil
}

func parseExportOptions(r *http.Request) (core.ExportOptions, error) {
	detailed, err := parseBoolParam(r, "detailed")
	if err != nil {
		return core.ExportOptions{}, err
	}
	format, err := core.ParseExportFormat(r.URL.Query().Get("format"))
	if err != nil {
		return core.ExportOptions{}, badRequest("format", "must be csv or xlsx")
	}
	return core.ExportOptions{Detailed: detailed, Format: format}, nil
}

func (s *Server) handleListSubmissions(w http.ResponseWriter, r *http.Request) {
	f, err := parseSubmissionFilter(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	rows, err := s.service.ListSubmissions(r.Context(), f)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"submissions": rows, "count": len(rows)})
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, s.service.Statistics(r.Context()))
}

func (s *Server) handleGetSubmission(w http.ResponseWriter, r *http.Request) {
	view, err := s.service.ReconcileSubmission(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, view)
}

func (s *Server) handleExportSubmissions(w http.ResponseWriter, r *http.Request) {
	f, err := parseSubmissionFilter(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	opts, err := parseExportOptions(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	file, err := s.service.ExportSubmissions(r.Context(), f, opts)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeDownload(w, file.Name, file.ContentType, file.Data)
}

func (s *Server) handleExportSubmission(w http.ResponseWriter, r *http.Request) {
	opts, err := parseExportOptions(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	file, err := s.service.ExportSubmission(r.Context(), chi.URLParam(r, "id"), opts)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeDownload(w, file.Name, file.ContentType, file.Data)
}
