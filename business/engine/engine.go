// Package engine runs the background loops that advance task state: a poll
// loop claiming and executing due tasks and a janitor loop purging expired
// results.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/deferq/deferq/business/codec"
	"github.com/deferq/deferq/business/domain/result"
	"github.com/deferq/deferq/business/domain/task"
	"github.com/deferq/deferq/business/recurrence"
	"github.com/deferq/deferq/business/registry"
	"github.com/deferq/deferq/business/worker"
	"github.com/google/uuid"
)

// Lease is the optional mutual exclusion layer for deployments running more
// than one engine instance against a shared store. Acquire must be safe to
// call repeatedly by the holder, extending the lease each time.
type Lease interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// Config represents all of the required configuration to create an engine.
type Config struct {
	Logger   *slog.Logger
	Tasks    *task.Service
	Results  *result.Service
	Registry *registry.Registry

	// Lease is optional; without one the engine assumes it is the only
	// instance against the store.
	Lease Lease

	PollInterval    time.Duration
	JanitorInterval time.Duration
	MaxRunning      int
	ExecTimeout     time.Duration
}

// Engine is the single actor that advances task state.
type Engine struct {
	logger   *slog.Logger
	tasks    *task.Service
	results  *result.Service
	registry *registry.Registry
	lease    Lease

	pollInterval    time.Duration
	janitorInterval time.Duration
	execTimeout     time.Duration

	worker   *worker.Worker
	wg       sync.WaitGroup
	shutdown chan struct{}
}

// New creates an engine.
func New(conf Config) (*Engine, error) {
	if conf.Tasks == nil || conf.Results == nil {
		return nil, fmt.Errorf("task and result services are required")
	}
	if conf.Registry == nil {
		return nil, fmt.Errorf("registry is required")
	}

	logger := conf.Logger
	if logger == nil {
		logger = slog.Default()
	}

	pollInterval := conf.PollInterval
	if pollInterval <= 0 {
		pollInterval = time.Second
	}

	janitorInterval := conf.JanitorInterval
	if janitorInterval <= 0 {
		janitorInterval = time.Minute
	}

	execTimeout := conf.ExecTimeout
	if execTimeout <= 0 {
		execTimeout = time.Minute
	}

	maxRunning := conf.MaxRunning
	if maxRunning <= 0 {
		maxRunning = 1
	}

	w, err := worker.New(maxRunning)
	if err != nil {
		return nil, fmt.Errorf("new worker: %w", err)
	}

	return &Engine{
		logger:          logger,
		tasks:           conf.Tasks,
		results:         conf.Results,
		registry:        conf.Registry,
		lease:           conf.Lease,
		pollInterval:    pollInterval,
		janitorInterval: janitorInterval,
		execTimeout:     execTimeout,
		worker:          w,
		shutdown:        make(chan struct{}),
	}, nil
}

// Start launches the poll and janitor loops.
func (e *Engine) Start() {
	e.wg.Add(2)
	go e.pollLoop()
	go e.janitorLoop()
}

// Stop terminates the loops and drains the in flight executions, or gives up
// when the context expires.
func (e *Engine) Stop(ctx context.Context) error {
	close(e.shutdown)
	e.wg.Wait()

	if e.lease != nil {
		if err := e.lease.Release(ctx); err != nil {
			e.logger.Error("release lease", "msg", err.Error())
		}
	}

	if err := e.worker.Shutdown(ctx); err != nil {
		return fmt.Errorf("worker shutdown: %w", err)
	}
	return nil
}

func (e *Engine) pollLoop() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.shutdown:
			return
		case <-ticker.C:
			e.pollOnce(context.Background())
		}
	}
}

func (e *Engine) janitorLoop() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.shutdown:
			return
		case <-ticker.C:
			e.purgeOnce(context.Background())
		}
	}
}

// pollOnce claims every due task and hands it to the pool. Claiming before
// executing keeps a second instance from double running a row.
func (e *Engine) pollOnce(ctx context.Context) {
	if e.lease != nil {
		held, err := e.lease.Acquire(ctx)
		if err != nil {
			e.logger.Error("acquire lease", "msg", err.Error())
			return
		}
		if !held {
			return
		}
	}

	due, err := e.tasks.DueTasks(ctx, time.Now())
	if err != nil {
		e.logger.Error("poll due tasks", "msg", err.Error())
		return
	}

	for _, t := range due {
		claimed, err := e.tasks.ClaimTask(ctx, t.ID)
		if err != nil {
			e.logger.Error("claim task", "id", t.ID, "key", t.Key(), "msg", err.Error())
			continue
		}
		if !claimed {
			//another instance took it
			continue
		}

		tsk := t
		startCtx, cancel := context.WithTimeout(ctx, e.execTimeout)
		_, err = e.worker.Start(startCtx, func(execCtx context.Context) {
			e.execute(execCtx, tsk)
		})
		cancel()
		if err != nil {
			//the row is already gone, so this execution is lost
			e.logger.Error("start execution", "id", tsk.ID, "key", tsk.Key(), "msg", err.Error())
		}
	}
}

// purgeOnce removes every expired result record.
func (e *Engine) purgeOnce(ctx context.Context) {
	purged, err := e.results.PurgeExpired(ctx, time.Now())
	if err != nil {
		e.logger.Error("purge expired results", "msg", err.Error())
		return
	}
	if purged > 0 {
		e.logger.Info("purged expired results", "count", purged)
	}
}

// execute runs one claimed task to completion: resolve, call, record the
// outcome, and re-insert the next occurrence for periodic tasks.
func (e *Engine) execute(ctx context.Context, t task.Task) {
	h, err := e.registry.Lookup(t.Key())
	if err != nil {
		//fatal per task: the row is consumed and no result is ever written
		e.logger.Error("resolve function", "key", t.Key(), "msg", err.Error())
		return
	}

	value, execErr := call(ctx, h, t.Args)

	if t.ResultID != uuid.Nil {
		var bs []byte
		var errMessage string

		if execErr != nil {
			errMessage = execErr.Error()
		} else {
			bs, err = codec.Marshal(value)
			if err != nil {
				errMessage = fmt.Sprintf("encoding result value: %s", err)
			}
		}

		if err := e.results.Complete(ctx, t.ResultID, bs, errMessage); err != nil {
			e.logger.Error("complete result", "id", t.ResultID, "key", t.Key(), "msg", err.Error())
		}
	}

	if t.Crontab != "" {
		//next occurrence is computed from now, drift is tolerated and missed
		//runs are not caught up
		next, err := recurrence.Next(t.Crontab, time.Now())
		if err != nil {
			e.logger.Error("next occurrence", "key", t.Key(), "crontab", t.Crontab, "msg", err.Error())
			return
		}

		if _, err := e.tasks.CreateTask(ctx, task.NewTask{
			Schedule: next,
			Crontab:  t.Crontab,
			Module:   t.Module,
			Name:     t.Name,
			Args:     t.Args,
		}); err != nil {
			//the recurrence is lost, an accepted crash window of the
			//delete then reinsert design
			e.logger.Error("reinsert periodic task", "key", t.Key(), "msg", err.Error())
		}
	}
}

// call converts anything the handler does, including a panic, into a value
// or an error. No language level failure crosses the dispatch boundary.
func call(ctx context.Context, h registry.Handler, args []byte) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	return h(ctx, args)
}
