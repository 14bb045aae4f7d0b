// Package memory provides an in memory task repository used for testing.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/deferq/deferq/business/domain/task"
)

// Repository represents an in memory storage for testing.
type Repository struct {
	mu     sync.Mutex
	nextID int64
	Tasks  map[int64]task.Task
}

// NewRepository creates an empty repository.
func NewRepository() *Repository {
	return &Repository{
		Tasks: make(map[int64]task.Task),
	}
}

// Create adds a new task into the repo and returns its row id.
func (r *Repository) Create(ctx context.Context, t task.Task) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	t.ID = r.nextID
	r.Tasks[t.ID] = t
	return t.ID, nil
}

// GetDue returns all tasks due at or before the given time.
func (r *Repository) GetDue(ctx context.Context, at time.Time) ([]task.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var results []task.Task
	for _, t := range r.Tasks {
		if !t.Schedule.After(at) {
			results = append(results, t)
		}
	}
	return results, nil
}

// GetByKey returns all tasks for a module and name pair.
func (r *Repository) GetByKey(ctx context.Context, module string, name string) ([]task.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var results []task.Task
	for _, t := range r.Tasks {
		if t.Module == module && t.Name == name {
			results = append(results, t)
		}
	}
	return results, nil
}

// Claim deletes the row and reports whether this caller removed it.
func (r *Repository) Claim(ctx context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.Tasks[id]; !ok {
		return false, nil
	}
	delete(r.Tasks, id)
	return true, nil
}

// Delete removes the row by id.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	delete(r.Tasks, id)
	r.mu.Unlock()
	return nil
}

// Reschedule updates only the schedule of an existing row.
func (r *Repository) Reschedule(ctx context.Context, id int64, schedule time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.Tasks[id]
	if !ok {
		return task.ErrTaskNotFound
	}
	t.Schedule = schedule
	r.Tasks[id] = t
	return nil
}
