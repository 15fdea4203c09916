package api

import (
	"encoding/json"
	"net/http"

	"github.com/CharlesDeJager/dprof/internal/config"
)

// Settings is the runtime-adjustable subset of the configuration.
type Settings struct {
	MaxThreads        int `json:"max_threads"`
	DefaultMaxRecords int `json:"default_max_records"`
	ChunkSize         int `json:"chunk_size"`
}

// getSettingsHandler reports the current adjustable limits.
func (s *Server) getSettingsHandler(w http.ResponseWriter, r *http.Request) {
	cfg := config.Snapshot()
	writeJSON(w, http.StatusOK, Settings{
		MaxThreads:        cfg.MaxThreads,
		DefaultMaxRecords: cfg.DefaultMaxRecords,
		ChunkSize:         cfg.ChunkSize,
	})
}

// updateSettingsHandler applies new limits. Fields left at zero keep their
// current value. A changed max_threads takes effect the next time the
// scheduler is started; the running worker pool keeps its size.
func (s *Server) updateSettingsHandler(w http.ResponseWriter, r *http.Request) {
	var req Settings
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.MaxThreads < 0 || req.DefaultMaxRecords < 0 || req.ChunkSize < 0 {
		writeError(w, http.StatusBadRequest, "settings must be positive")
		return
	}

	if err := config.UpdateLimits(req.MaxThreads, req.DefaultMaxRecords, req.ChunkSize); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to persist settings: "+err.Error())
		return
	}

	s.getSettingsHandler(w, r)
}
