package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/CharlesDeJager/dprof/internal/config"
	"github.com/CharlesDeJager/dprof/internal/log"
	"github.com/CharlesDeJager/dprof/internal/source"
)

// maxUploadBytes caps multipart uploads held in memory before spilling to
// disk; files larger than this still upload, via a temp spool.
const maxUploadBytes = 64 << 20

// SessionResponse is the payload returned when a session is created.
type SessionResponse struct {
	SessionID  string             `json:"session_id"`
	SourceType string             `json:"source_type"`
	FileName   string             `json:"file_name,omitempty"`
	Tables     []source.TableInfo `json:"tables"`
}

// uploadFileHandler accepts a multipart file upload, stores it under the
// configured temp directory, and opens a profiling session around it.
func (s *Server) uploadFileHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart request: "+err.Error())
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	ext := filepath.Ext(header.Filename)
	tempPath := filepath.Join(config.Snapshot().TempDir, uuid.New().String()+ext)

	dst, err := os.Create(tempPath)
	if err != nil {
		log.Logger.Errorf("Failed to create temp file: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}
	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		os.Remove(tempPath)
		log.Logger.Errorf("Failed to write temp file: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}
	if err := dst.Close(); err != nil {
		os.Remove(tempPath)
		writeError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}

	src, err := source.OpenFile(tempPath)
	if err != nil {
		os.Remove(tempPath)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	tables, err := src.Tables(r.Context())
	if err != nil {
		src.Close()
		os.Remove(tempPath)
		writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to read %s structure: %v", src.Kind(), err))
		return
	}

	sess := s.sessions.Create("file", header.Filename, src, tables)
	writeJSON(w, http.StatusOK, SessionResponse{
		SessionID:  sess.ID,
		SourceType: sess.SourceType,
		FileName:   sess.FileName,
		Tables:     sess.Tables,
	})
}

// connectDatabaseHandler opens a database-backed profiling session.
func (s *Server) connectDatabaseHandler(w http.ResponseWriter, r *http.Request) {
	var info source.ConnectionInfo
	if err := json.NewDecoder(r.Body).Decode(&info); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	src, err := source.OpenSQL(ctx, info)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("connection failed: %v", err))
		return
	}

	tables, err := src.Tables(ctx)
	if err != nil {
		src.Close()
		writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to list tables: %v", err))
		return
	}

	sess := s.sessions.Create("database", "", src, tables)
	writeJSON(w, http.StatusOK, SessionResponse{
		SessionID:  sess.ID,
		SourceType: sess.SourceType,
		Tables:     sess.Tables,
	})
}

// recordCountHandler returns the full row count of one table in a session.
func (s *Server) recordCountHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessions.Get(r.PathValue("session_id"))
	if !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}

	table := r.URL.Query().Get("table_name")
	if table == "" {
		writeError(w, http.StatusBadRequest, "table_name query parameter is required")
		return
	}
	if _, ok := sess.TableInfo(table); !ok {
		writeError(w, http.StatusBadRequest, "unknown table: "+table)
		return
	}

	count, err := sess.Source.RowCount(r.Context(), table)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to count records: %v", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"table_name":   table,
		"record_count": count,
	})
}

// deleteSessionHandler discards a session and closes its source.
func (s *Server) deleteSessionHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("session_id")
	if _, ok := s.sessions.Get(id); !ok {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	s.sessions.Delete(id)
	writeJSON(w, http.StatusOK, map[string]string{"message": "session deleted"})
}
