package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/CharlesDeJager/dprof/internal/log"
	"github.com/CharlesDeJager/dprof/internal/scheduler"
	"github.com/CharlesDeJager/dprof/internal/source"
)

// Session binds one data source, its discovered table metadata, and at
// most one profiling task. It is created when a file is uploaded or a
// database connection succeeds, and lives until explicitly discarded.
type Session struct {
	ID         string
	SourceType string // "file" or "database"
	FileName   string
	Source     source.DataSource
	Tables     []source.TableInfo
	CreatedAt  time.Time

	mu   sync.RWMutex
	task *scheduler.Task
}

// Task returns the session's current profiling task, if any.
func (s *Session) Task() *scheduler.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.task
}

// SetTask installs a new profiling task, discarding the previous one.
// Workers still in flight for a discarded task keep writing into the old
// task object, which nothing references anymore; their output is dropped.
func (s *Session) SetTask(t *scheduler.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.task != nil {
		log.Logger.Infof("Session %s: replacing task %s with %s", s.ID, s.task.ID, t.ID)
	}
	s.task = t
}

// TableInfo looks up metadata for one of the session's tables.
func (s *Session) TableInfo(name string) (source.TableInfo, bool) {
	for _, info := range s.Tables {
		if info.Name == name {
			return info, true
		}
	}
	return source.TableInfo{}, false
}

// Store is the explicit session registry keyed by opaque session id. The
// API layer owns its lifetime; the engine never reaches for a global.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*Session),
	}
}

// Create registers a new session around an opened data source.
func (st *Store) Create(sourceType, fileName string, src source.DataSource, tables []source.TableInfo) *Session {
	s := &Session{
		ID:         uuid.New().String(),
		SourceType: sourceType,
		FileName:   fileName,
		Source:     src,
		Tables:     tables,
		CreatedAt:  time.Now(),
	}

	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()

	log.Logger.Infof("Created %s session %s with %d tables", sourceType, s.ID, len(tables))
	return s
}

// Get looks a session up by id.
func (st *Store) Get(id string) (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[id]
	return s, ok
}

// Delete removes a session and closes its data source. In-flight workers
// of the session's task are left to finish; their output goes nowhere.
func (st *Store) Delete(id string) {
	st.mu.Lock()
	s, ok := st.sessions[id]
	delete(st.sessions, id)
	st.mu.Unlock()

	if ok && s.Source != nil {
		if err := s.Source.Close(); err != nil {
			log.Logger.Warnf("Failed to close source for session %s: %v", id, err)
		}
	}
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}
