// Package scheduler provides the caller facing registration surface: defer a
// call, defer it with a retrievable result, or register it to run
// periodically.
package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/deferq/deferq/business/codec"
	"github.com/deferq/deferq/business/domain/result"
	"github.com/deferq/deferq/business/domain/task"
	"github.com/deferq/deferq/business/recurrence"
	"github.com/deferq/deferq/business/registry"
	"github.com/google/uuid"
)

// ErrResultNotFound is re-exported so callers polling for outcomes only need
// this package.
var ErrResultNotFound = result.ErrResultNotFound

// Outcome is what a polling caller gets back for an identifier.
type Outcome struct {
	Status     result.Status
	Value      json.RawMessage
	ErrMessage string
}

// Config represents all of the required configuration to create a client.
type Config struct {
	// Active gates all scheduling. When false every call degrades to a
	// synchronous invocation and nothing is persisted.
	Active   bool
	Tasks    *task.Service
	Results  *result.Service
	Registry *registry.Registry

	// Retention bounds how long outcomes of synchronous invocations stay
	// fetchable while inactive, mirroring the ttl on store records.
	// Defaults to 5 minutes.
	Retention time.Duration
}

// Client represents set of APIs for registering deferred and periodic calls.
type Client struct {
	active    bool
	tasks     *task.Service
	results   *result.Service
	registry  *registry.Registry
	retention time.Duration

	// outcomes of synchronous executions performed while inactive, so
	// FetchResult keeps working in that mode without touching the store.
	// Entries age out by their expiry.
	mu    sync.Mutex
	local map[uuid.UUID]localOutcome
}

type localOutcome struct {
	outcome Outcome
	expiry  time.Time
}

// New creates a client.
func New(conf Config) (*Client, error) {
	if conf.Tasks == nil || conf.Results == nil {
		return nil, errors.New("task and result services are required")
	}
	if conf.Registry == nil {
		return nil, errors.New("registry is required")
	}

	retention := conf.Retention
	if retention <= 0 {
		retention = time.Minute * 5
	}

	return &Client{
		active:    conf.Active,
		tasks:     conf.Tasks,
		results:   conf.Results,
		registry:  conf.Registry,
		retention: retention,
		local:     make(map[uuid.UUID]localOutcome),
	}, nil
}

// SchedulePeriodic registers key to run on the given recurrence expression.
// Re-registering the same key replaces any previous periodic rows, so
// applying the same registration twice never duplicates entries. It does not
// execute the function.
func (c *Client) SchedulePeriodic(ctx context.Context, key string, expr string, args any) error {
	if err := recurrence.Validate(expr); err != nil {
		return fmt.Errorf("invalid recurrence expression: %w", err)
	}

	if !c.active {
		_, err := c.invoke(ctx, key, args)
		return err
	}

	bs, err := codec.Marshal(args)
	if err != nil {
		return fmt.Errorf("marshal args: %w", err)
	}

	module, name := task.SplitKey(key)

	//idempotent re-registration: drop prior periodic rows for this key
	existing, err := c.tasks.GetByKey(ctx, module, name)
	if err != nil {
		return fmt.Errorf("lookup existing registrations: %w", err)
	}
	for _, t := range existing {
		if t.Crontab == "" {
			continue
		}
		if err := c.tasks.DeleteTask(ctx, t.ID); err != nil {
			return fmt.Errorf("remove prior registration: %w", err)
		}
	}

	next, err := recurrence.Next(expr, time.Now())
	if err != nil {
		return fmt.Errorf("first schedule: %w", err)
	}

	if _, err := c.tasks.CreateTask(ctx, task.NewTask{
		Schedule: next,
		Crontab:  expr,
		Module:   module,
		Name:     name,
		Args:     bs,
	}); err != nil {
		return fmt.Errorf("create periodic task: %w", err)
	}

	return nil
}

// Defer registers a fire and forget invocation due right now. The function's
// outcome has no channel back to the caller.
func (c *Client) Defer(ctx context.Context, key string, args any) error {
	if !c.active {
		_, err := c.invoke(ctx, key, args)
		return err
	}

	bs, err := codec.Marshal(args)
	if err != nil {
		return fmt.Errorf("marshal args: %w", err)
	}

	module, name := task.SplitKey(key)
	if _, err := c.tasks.CreateTask(ctx, task.NewTask{
		Module: module,
		Name:   name,
		Args:   bs,
	}); err != nil {
		return fmt.Errorf("create task: %w", err)
	}

	return nil
}

// DeferWithResult registers an invocation due right now and returns an
// identifier the caller polls through FetchResult until the status is
// terminal.
func (c *Client) DeferWithResult(ctx context.Context, key string, args any) (uuid.UUID, error) {
	id := uuid.New()

	if !c.active {
		value, err := c.invoke(ctx, key, args)
		outcome := Outcome{Status: result.StatusReady}
		if err != nil {
			outcome.Status = result.StatusError
			outcome.ErrMessage = err.Error()
		} else {
			bs, err := codec.Marshal(value)
			if err != nil {
				return uuid.Nil, fmt.Errorf("marshal value: %w", err)
			}
			outcome.Value = bs
		}

		c.mu.Lock()
		c.evictExpired(time.Now())
		c.local[id] = localOutcome{
			outcome: outcome,
			expiry:  time.Now().Add(c.retention),
		}
		c.mu.Unlock()
		return id, nil
	}

	bs, err := codec.Marshal(args)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal args: %w", err)
	}

	module, name := task.SplitKey(key)

	//the result row goes in first so the engine never completes into a
	//missing record
	if _, err := c.results.CreateResult(ctx, result.NewResult{
		ID:     id,
		Module: module,
		Name:   name,
		Args:   bs,
	}); err != nil {
		return uuid.Nil, fmt.Errorf("create result: %w", err)
	}

	if _, err := c.tasks.CreateTask(ctx, task.NewTask{
		ResultID: id,
		Module:   module,
		Name:     name,
		Args:     bs,
	}); err != nil {
		return uuid.Nil, fmt.Errorf("create task: %w", err)
	}

	return id, nil
}

// FetchResult returns the outcome for an identifier. ErrResultNotFound covers
// unknown ids, purged records and tasks lost to resolution failures, and is a
// valid transient state while the registration has not landed yet.
func (c *Client) FetchResult(ctx context.Context, id uuid.UUID) (Outcome, error) {
	c.mu.Lock()
	c.evictExpired(time.Now())
	stashed, ok := c.local[id]
	c.mu.Unlock()
	if ok {
		return stashed.outcome, nil
	}

	res, err := c.results.GetResult(ctx, id)
	if err != nil {
		if errors.Is(err, result.ErrResultNotFound) {
			return Outcome{}, ErrResultNotFound
		}
		return Outcome{}, fmt.Errorf("get result: %w", err)
	}

	return Outcome{
		Status:     res.Status,
		Value:      res.Value,
		ErrMessage: res.ErrMessage,
	}, nil
}

// evictExpired drops stashed outcomes past their expiry. Callers must hold
// the mutex.
func (c *Client) evictExpired(now time.Time) {
	for id, stashed := range c.local {
		if !stashed.expiry.After(now) {
			delete(c.local, id)
		}
	}
}

// invoke runs the function synchronously, used only while inactive.
func (c *Client) invoke(ctx context.Context, key string, args any) (any, error) {
	h, err := c.registry.Lookup(key)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", key, err)
	}

	bs, err := codec.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("marshal args: %w", err)
	}

	return h(ctx, bs)
}
