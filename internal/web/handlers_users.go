package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/formconsole/internal/core"
	"github.com/JonMunkholm/formconsole/internal/logging"
)

type approveRequest struct {
	Note string `json:"note"`
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

type bulkRequest struct {
	IDs    []string `json:"ids"`
	Note   string   `json:"note"`
	Reason string   `json:"reason"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Ping(r.Context()); err != nil {
		writeJSON(w, r, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.service.Dashboard(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, d)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.service.ListUserRequests(r.Context(), core.UserFilter{
		Tab:    r.URL.Query().Get("tab"),
		Search: r.URL.Query().Get("q"),
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"users": users, "count": len(users)})
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	u, err := s.service.GetUser(r.Context(), chi.URLParam(r, "uid"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, u)
}

func (s *Server) handleApproveUser(w http.ResponseWriter, r *http.Request) {
	var req approveRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	uid := chi.URLParam(r, "uid")
	if err := s.service.ApproveUser(requestContext(r), actor(r), uid, req.Note); err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"uid": uid, "status": string(core.UserApproved)})
}

func (s *Server) handleRejectUser(w http.ResponseWriter, r *http.Request) {
	var req rejectRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	uid := chi.URLParam(r, "uid")
	if err := s.service.RejectUser(requestContext(r), actor(r), uid, req.Reason); err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"uid": uid, "status": string(core.UserRejected)})
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")
	if err := s.service.DeleteUser(requestContext(r), actor(r), uid); err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"uid": uid, "status": "deleted"})
}

func (s *Server) handleBulkApproveUsers(w http.ResponseWriter, r *http.Request) {
	var req bulkRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	res, err := s.service.BulkApproveUsers(requestContext(r), actor(r), req.IDs, req.Note)
	s.respondBulk(w, r, res, err)
}

func (s *Server) handleBulkRejectUsers(w http.ResponseWriter, r *http.Request) {
	var req bulkRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	res, err := s.service.BulkRejectUsers(requestContext(r), actor(r), req.IDs, req.Reason)
	s.respondBulk(w, r, res, err)
}

// respondBulk writes a bulk result: 200 when every item succeeded, 207 when
// some failed.
func (s *Server) respondBulk(w http.ResponseWriter, r *http.Request, res *core.BulkResult, err error) {
	if err != nil {
		respondError(w, r, err)
		return
	}
	status := http.StatusOK
	if bulkErr := res.Err(); bulkErr != nil {
		status = http.StatusMultiStatus
		logging.FromContext(r.Context()).Warn("bulk operation incomplete", "batch_id", res.BatchID, "error", bulkErr)
	}
	writeJSON(w, r, status, res)
}
