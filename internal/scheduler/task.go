package scheduler

import (
	"sync"
	"time"

	"github.com/CharlesDeJager/dprof/internal/profile"
)

// TaskStatus represents the current state of a profiling task.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskError     TaskStatus = "error"
)

// StatusSnapshot is the pollable view of a task exposed to the API layer.
// It is the only error channel the boundary sees; table-level errors live
// inside the results and only become visible once ResultsAvailable is true.
type StatusSnapshot struct {
	Status           TaskStatus `json:"status"`
	Progress         float64    `json:"progress"`
	Error            *string    `json:"error"`
	ResultsAvailable bool       `json:"results_available"`
}

// Task is one profiling run over a chosen set of tables. Each selected
// table gets a pre-reserved slot in the results map before dispatch, so
// workers write to disjoint slots; the shared progress counters are the
// only cross-worker state and are touched once per table completion.
//
// Terminal states are completed and error. Only the scheduler mutates a
// task; everyone else reads snapshots.
type Task struct {
	ID        string
	StartedAt time.Time

	mu               sync.RWMutex
	status           TaskStatus
	errMsg           string
	resultsAvailable bool

	results   map[string]*profile.TableProfile
	remaining int

	// Progress is weighted by each table's record limit relative to the
	// total across the task, updated per table completion.
	weights     map[string]int64
	totalWeight int64
	doneWeight  int64
}

func newTask(id string, tables []string, weights map[string]int64) *Task {
	t := &Task{
		ID:        id,
		StartedAt: time.Now(),
		status:    TaskPending,
		results:   make(map[string]*profile.TableProfile, len(tables)),
		remaining: len(tables),
		weights:   weights,
	}
	for _, table := range tables {
		t.results[table] = nil // reserved slot
		t.totalWeight += weights[table]
	}
	return t
}

// Snapshot returns the current pollable status.
func (t *Task) Snapshot() StatusSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	snap := StatusSnapshot{
		Status:           t.status,
		Progress:         t.progressLocked(),
		ResultsAvailable: t.resultsAvailable,
	}
	if t.errMsg != "" {
		msg := t.errMsg
		snap.Error = &msg
	}
	return snap
}

func (t *Task) progressLocked() float64 {
	if t.totalWeight == 0 {
		return 0
	}
	p := float64(t.doneWeight) / float64(t.totalWeight) * 100
	if p > 100 {
		p = 100
	}
	return p
}

// Results returns the aggregated results map once the task has completed.
// The second return is false while results are not yet available.
func (t *Task) Results() (map[string]*profile.TableProfile, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if !t.resultsAvailable {
		return nil, false
	}
	out := make(map[string]*profile.TableProfile, len(t.results))
	for name, tp := range t.results {
		out[name] = tp
	}
	return out, true
}

// Tables returns the set of tables this task was submitted with.
func (t *Task) Tables() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	tables := make([]string, 0, len(t.results))
	for name := range t.results {
		tables = append(tables, name)
	}
	return tables
}

// start moves the task from pending to running.
func (t *Task) start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status == TaskPending {
		t.status = TaskRunning
	}
}

// complete records one finished table: the single critical section per
// table completion. When the last table lands the task completes, whether
// or not individual tables carry table-level errors.
func (t *Task) complete(table string, tp *profile.TableProfile) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status != TaskRunning && t.status != TaskPending {
		// Task already failed at dispatch; drop the result.
		return
	}
	if existing, ok := t.results[table]; !ok || existing != nil {
		return
	}

	t.results[table] = tp
	t.doneWeight += t.weights[table]
	t.remaining--

	if t.remaining == 0 {
		t.status = TaskCompleted
		t.resultsAvailable = true
	}
}

// fail marks the whole task failed. Used only for scheduling/dispatch
// failures; individual table errors never end up here.
func (t *Task) fail(msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status == TaskCompleted || t.status == TaskError {
		return
	}
	t.status = TaskError
	t.errMsg = msg
	t.resultsAvailable = false
}
