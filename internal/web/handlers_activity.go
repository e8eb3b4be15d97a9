package web

import (
	"io"
	"net/http"
	"time"

	"github.com/JonMunkholm/formconsole/internal/core"
)

func parseActivityFilter(r *http.Request) core.ActivityFilter {
	q := r.URL.Query()
	return core.ActivityFilter{
		Type:   core.ActivityType(q.Get("type")),
		Search: q.Get("q"),
		Limit:  parseIntParam(r, "limit", core.DefaultActivityLimit),
	}
}

func (s *Server) handleListActivity(w http.ResponseWriter, r *http.Request) {
	recs, err := s.service.Activity().List(r.Context(), parseActivityFilter(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"activity": recs, "count": len(recs)})
}

func (s *Server) handleExportActivity(w http.ResponseWriter, r *http.Request) {
	body, err := s.service.Activity().Export(r.Context(), parseActivityFilter(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	data, err := io.ReadAll(body)
	if err != nil {
		respondError(w, r, err)
		return
	}
	name := "activity_" + time.Now().UTC().Format("2006-01-02") + ".csv"
	writeDownload(w, name, core.FormatCSV.ContentType(), data)
}
