package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/CharlesDeJager/dprof/internal/log"
	"github.com/CharlesDeJager/dprof/internal/profile"
	"github.com/CharlesDeJager/dprof/internal/source"
)

// Job is a profiling request as submitted by the API layer.
type Job struct {
	Source    source.DataSource
	Available []source.TableInfo
	Tables    []string
	// MaxRecords maps table name to its record limit. Tables absent from
	// the map fall back to DefaultLimit.
	MaxRecords   map[string]int
	DefaultLimit int
	ChunkSize    int
	Options      profile.Options
}

// tableJob is one unit of worker pool work: profile a single table and
// write its result into the task's reserved slot.
type tableJob struct {
	ctx   context.Context
	task  *Task
	src   source.DataSource
	table string
	limit int
	chunk int
	opts  profile.Options
}

// Scheduler runs table profilers concurrently on a fixed-size worker pool
// and tracks per-task progress. Tables complete in nondeterministic order;
// excess tables queue until a worker frees up.
type Scheduler struct {
	ctx        context.Context
	cancel     context.CancelFunc
	maxWorkers int
	queue      chan tableJob
	running    int32
	wg         sync.WaitGroup
}

// NewScheduler creates a scheduler with maxWorkers parallel workers. A
// non-positive worker count falls back to 4.
func NewScheduler(maxWorkers, queueSize int) *Scheduler {
	if maxWorkers <= 0 {
		maxWorkers = 4
	}
	if queueSize <= 0 {
		queueSize = maxWorkers * 16
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		ctx:        ctx,
		cancel:     cancel,
		maxWorkers: maxWorkers,
		queue:      make(chan tableJob, queueSize),
	}
}

// Start launches the worker goroutines.
func (s *Scheduler) Start() error {
	if !atomic.CompareAndSwapInt32(&s.running, 0, 1) {
		return fmt.Errorf("scheduler is already running")
	}

	log.Logger.Infof("Starting profiling scheduler with %d workers", s.maxWorkers)
	for i := 0; i < s.maxWorkers; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}
	return nil
}

// Stop shuts the pool down and waits for in-flight table jobs to finish.
func (s *Scheduler) Stop() {
	if !atomic.CompareAndSwapInt32(&s.running, 1, 0) {
		return
	}

	log.Logger.Info("Stopping profiling scheduler...")
	s.cancel()
	close(s.queue)
	s.wg.Wait()
	log.Logger.Info("Profiling scheduler stopped")
}

// Submit validates a profiling job and, if valid, dispatches one table job
// per selected table. Validation failures are returned synchronously and
// create no task; dispatch failures after validation mark the task itself
// as failed.
func (s *Scheduler) Submit(job Job) (*Task, error) {
	if atomic.LoadInt32(&s.running) == 0 {
		return nil, fmt.Errorf("scheduler is not running")
	}
	if len(job.Tables) == 0 {
		return nil, fmt.Errorf("no tables selected")
	}

	known := make(map[string]struct{}, len(job.Available))
	for _, info := range job.Available {
		known[info.Name] = struct{}{}
	}

	weights := make(map[string]int64, len(job.Tables))
	limits := make(map[string]int, len(job.Tables))
	seen := make(map[string]struct{}, len(job.Tables))
	for _, table := range job.Tables {
		if _, ok := known[table]; !ok {
			return nil, fmt.Errorf("unknown table: %s", table)
		}
		if _, dup := seen[table]; dup {
			return nil, fmt.Errorf("duplicate table: %s", table)
		}
		seen[table] = struct{}{}

		limit, ok := job.MaxRecords[table]
		if !ok {
			limit = job.DefaultLimit
		}
		if limit <= 0 {
			return nil, fmt.Errorf("non-positive record limit for table %s: %d", table, limit)
		}
		limits[table] = limit
		weights[table] = int64(limit)
	}
	for table := range job.MaxRecords {
		if _, ok := seen[table]; !ok {
			return nil, fmt.Errorf("record limit given for unselected table: %s", table)
		}
	}

	task := newTask(uuid.New().String(), job.Tables, weights)
	task.start()

	log.Logger.Infof("Task %s: profiling %d tables", task.ID, len(job.Tables))

	for _, table := range job.Tables {
		tj := tableJob{
			ctx:   s.ctx,
			task:  task,
			src:   job.Source,
			table: table,
			limit: limits[table],
			chunk: job.ChunkSize,
			opts:  job.Options,
		}
		select {
		case s.queue <- tj:
		default:
			// Queue exhausted: the dispatch layer itself failed, which is
			// fatal to the whole task.
			task.fail(fmt.Sprintf("worker queue full, could not dispatch table %s", table))
			log.Logger.Errorf("Task %s failed at dispatch: queue full", task.ID)
			return task, nil
		}
	}

	return task, nil
}

// worker pulls table jobs off the queue until the scheduler stops.
func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	log.Logger.Debugf("Worker %d started", id)
	for {
		select {
		case <-s.ctx.Done():
			log.Logger.Debugf("Worker %d stopping due to context cancellation", id)
			return
		case tj, ok := <-s.queue:
			if !ok {
				log.Logger.Debugf("Worker %d stopping due to closed job queue", id)
				return
			}
			s.execute(id, tj)
		}
	}
}

// execute runs one table profiler. A panic inside the engine is converted
// into a table-level error so sibling tables keep running.
func (s *Scheduler) execute(workerID int, tj tableJob) {
	defer func() {
		if r := recover(); r != nil {
			log.Logger.Errorf("Worker %d panic while profiling table %s: %v", workerID, tj.table, r)
			tj.task.complete(tj.table, &profile.TableProfile{
				TableName:  tj.table,
				ProfiledAt: time.Now().UTC(),
				Error:      fmt.Sprintf("profiler panicked: %v", r),
			})
		}
	}()

	start := time.Now()
	tp := profile.ProfileTable(tj.ctx, tj.src, tj.table, tj.limit, tj.chunk, tj.opts)
	tj.task.complete(tj.table, tp)

	if tp.Error != "" {
		log.Logger.Warnf("Worker %d table %s failed after %v: %s", workerID, tj.table, time.Since(start), tp.Error)
	} else {
		log.Logger.Infof("Worker %d profiled table %s (%d rows) in %v", workerID, tj.table, tp.TotalRecords, time.Since(start))
	}
}
