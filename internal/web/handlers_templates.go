package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/formconsole/internal/core"
)

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	tmpls, err := s.service.ListTemplates(r.Context(), core.TemplateFilter{
		Tab:    r.URL.Query().Get("tab"),
		Search: r.URL.Query().Get("q"),
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"templates": tmpls, "count": len(tmpls)})
}

func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	t, err := s.service.GetTemplate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, t)
}

func (s *Server) handleApproveTemplate(w http.ResponseWriter, r *http.Request) {
	var req approveRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	if err := s.service.ApproveTemplate(requestContext(r), actor(r), id, req.Note); err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"templateId": id, "status": string(core.TemplateApproved)})
}

func (s *Server) handleRejectTemplate(w http.ResponseWriter, r *http.Request) {
	var req rejectRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	if err := s.service.RejectTemplate(requestContext(r), actor(r), id, req.Reason); err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"templateId": id, "status": string(core.TemplateRejected)})
}

func (s *Server) handleBulkApproveTemplates(w http.ResponseWriter, r *http.Request) {
	var req bulkRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	res, err := s.service.BulkApproveTemplates(requestContext(r), actor(r), req.IDs, req.Note)
	s.respondBulk(w, r, res, err)
}

func (s *Server) handleBulkRejectTemplates(w http.ResponseWriter, r *http.Request) {
	var req bulkRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	res, err := s.service.BulkRejectTemplates(requestContext(r), actor(r), req.IDs, req.Reason)
	s.respondBulk(w, r, res, err)
}
