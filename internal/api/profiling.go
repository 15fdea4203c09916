package api

import (
	"encoding/json"
	"net/http"

	"github.com/CharlesDeJager/dprof/internal/config"
	"github.com/CharlesDeJager/dprof/internal/profile"
	"github.com/CharlesDeJager/dprof/internal/scheduler"
)

// ProfileRequest selects which of a session's tables to profile and with
// which per-table record limits. Tables absent from MaxRecords use the
// configured default limit.
type ProfileRequest struct {
	SessionID  string         `json:"session_id"`
	Tables     []string       `json:"tables"`
	MaxRecords map[string]int `json:"max_records"`
}

// profileDataHandler validates a profiling request and hands it to the
// scheduler. A fresh request replaces the session's previous task; output
// from the replaced task is discarded.
func (s *Server) profileDataHandler(w http.ResponseWriter, r *http.Request) {
	var req ProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sess, ok := s.sessions.Get(req.SessionID)
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	cfg := config.Snapshot()
	job := scheduler.Job{
		Source:       sess.Source,
		Available:    sess.Tables,
		Tables:       req.Tables,
		MaxRecords:   req.MaxRecords,
		DefaultLimit: cfg.DefaultMaxRecords,
		ChunkSize:    cfg.ChunkSize,
		Options:      engineOptions(cfg),
	}

	task, err := s.scheduler.Submit(job)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess.SetTask(task)

	snap := task.Snapshot()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session_id": sess.ID,
		"task_id":    task.ID,
		"status":     snap.Status,
	})
}

// profilingStatusHandler reports the pollable status of a session's task.
func (s *Server) profilingStatusHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessions.Get(r.PathValue("session_id"))
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	task := sess.Task()
	if task == nil {
		writeError(w, http.StatusNotFound, "no profiling task for session")
		return
	}

	writeJSON(w, http.StatusOK, task.Snapshot())
}

// profilingResultsHandler returns the per-table results once the task has
// completed. Before that, and for tasks that failed at dispatch, there is
// nothing to return.
func (s *Server) profilingResultsHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessions.Get(r.PathValue("session_id"))
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

	writeJSON(w, http.StatusOK, results)
}

// engineOptions maps a configuration snapshot onto engine tunables.
func engineOptions(c config.Config) profile.Options {
	return profile.Options{
		SampleSize:            c.SampleSize,
		DistinctCap:           c.DistinctCap,
		PatternCap:            c.PatternCap,
		TopPatterns:           c.TopPatterns,
		PatternExamples:       c.PatternExamples,
		TopValues:             c.TopValues,
		TypeThreshold:         c.TypeThreshold,
		HighNullThreshold:     c.HighNullThreshold,
		HighBlankThreshold:    c.HighBlankThreshold,
		LowDiversityThreshold: c.LowDiversityThreshold,
		CompletenessWeight:    c.CompletenessWeight,
		ValidityWeight:        c.ValidityWeight,
		DiversityWeight:       c.DiversityWeight,
	}
}
