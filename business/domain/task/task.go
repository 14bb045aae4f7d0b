// Package task provides APIs for managing the pending invocation records.
package task

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrTaskNotFound = errors.New("task not found")
)

// store represents the decoupled store to interact with.
type store interface {
	Create(ctx context.Context, task Task) (int64, error)
	GetDue(ctx context.Context, at time.Time) ([]Task, error)
	GetByKey(ctx context.Context, module string, name string) ([]Task, error)
	Claim(ctx context.Context, id int64) (bool, error)
	Delete(ctx context.Context, id int64) error
	Reschedule(ctx context.Context, id int64, schedule time.Time) error
}

// Service represents set of APIs for accessing pending tasks.
type Service struct {
	store store
}

// NewService creates *Service and returns it.
func NewService(store store) *Service {
	return &Service{
		store: store,
	}
}

// CreateTask persists a new pending invocation. A zero schedule means the
// task is due right now.
func (s *Service) CreateTask(ctx context.Context, nt NewTask) (Task, error) {
	schedule := nt.Schedule
	if schedule.IsZero() {
		schedule = time.Now()
	}

	task := Task{
		ResultID: nt.ResultID,
		Schedule: schedule,
		Crontab:  nt.Crontab,
		Module:   nt.Module,
		Name:     nt.Name,
		Args:     nt.Args,
	}

	id, err := s.store.Create(ctx, task)
	if err != nil {
		return Task{}, fmt.Errorf("task creation: %w", err)
	}
	task.ID = id

	return task, nil
}

// DueTasks returns every task whose schedule is at or before the given time.
func (s *Service) DueTasks(ctx context.Context, at time.Time) ([]Task, error) {
	tasks, err := s.store.GetDue(ctx, at)
	if err != nil {
		return nil, fmt.Errorf("get due tasks: %w", err)
	}
	return tasks, nil
}

// GetByKey returns all tasks registered for a module and name pair.
func (s *Service) GetByKey(ctx context.Context, module string, name string) ([]Task, error) {
	tasks, err := s.store.GetByKey(ctx, module, name)
	if err != nil {
		return nil, fmt.Errorf("get tasks by key: %w", err)
	}
	return tasks, nil
}

// ClaimTask removes the row so no other engine instance executes it. It
// returns false when another instance already took the row.
func (s *Service) ClaimTask(ctx context.Context, id int64) (bool, error) {
	claimed, err := s.store.Claim(ctx, id)
	if err != nil {
		return false, fmt.Errorf("claim task: %w", err)
	}
	return claimed, nil
}

// DeleteTask removes a task row by its storage identifier.
func (s *Service) DeleteTask(ctx context.Context, id int64) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

// RescheduleTask moves an existing row to a new due time in place.
func (s *Service) RescheduleTask(ctx context.Context, id int64, schedule time.Time) error {
	if err := s.store.Reschedule(ctx, id, schedule); err != nil {
		return fmt.Errorf("reschedule task: %w", err)
	}
	return nil
}
