package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/CharlesDeJager/dprof/internal/export"
	"github.com/CharlesDeJager/dprof/internal/log"
	"github.com/CharlesDeJager/dprof/internal/profile"
)

// ExportRequest selects which completed results to download and how to
// encode them. An empty Tables list exports every profiled table.
type ExportRequest struct {
	SessionID    string   `json:"session_id"`
	ExportFormat string   `json:"export_format"`
	Tables       []string `json:"tables"`
}

// exportHandler streams the session's completed results as a downloadable
// report.
func (s *Server) exportHandler(w http.ResponseWriter, r *http.Request) {
	var req ExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	format, err := export.ParseFormat(req.ExportFormat)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess, ok := s.sessions.Get(req.SessionID)
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	task := sess.Task()
	if task == nil {
		writeError(w, http.StatusNotFound, "no profiling task for session")
		return
	}

	results, ok := task.Results()
	if !ok {
		writeError(w, http.StatusNotFound, "results not available")
		return
	}

	if len(req.Tables) > 0 {
		filtered := make(map[string]*profile.TableProfile, len(req.Tables))
		for _, name := range req.Tables {
			tp, ok := results[name]
			if !ok {
				writeError(w, http.StatusBadRequest, "table not in results: "+name)
				return
			}
			filtered[name] = tp
		}
		results = filtered
	}

	filename := fmt.Sprintf("profiling_report_%s.%s",
		time.Now().Format("20060102_150405"), format.Extension())

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if err := export.Write(w, format, results); err != nil {
		// Headers are already on the wire; all we can do is log.
		log.Logger.Errorf("Export of session %s failed mid-stream: %v", sess.ID, err)
	}
}
