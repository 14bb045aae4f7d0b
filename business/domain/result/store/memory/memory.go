// Package memory provides an in memory result repository used for testing.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/deferq/deferq/business/domain/result"
	"github.com/google/uuid"
)

// Repository represents an in memory storage for testing.
type Repository struct {
	mu      sync.Mutex
	Results map[uuid.UUID]result.Result
}

// NewRepository creates an empty repository.
func NewRepository() *Repository {
	return &Repository{
		Results: make(map[uuid.UUID]result.Result),
	}
}

// Create adds a new record or fails on an identifier collision.
func (r *Repository) Create(ctx context.Context, res result.Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.Results[res.ID]; ok {
		return result.ErrNotWaiting
	}
	r.Results[res.ID] = res
	return nil
}

// Get returns the record or result.ErrResultNotFound.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (result.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, ok := r.Results[id]
	if !ok {
		return result.Result{}, result.ErrResultNotFound
	}
	return res, nil
}

// Complete mutates a waiting record into its terminal state.
func (r *Repository) Complete(ctx context.Context, id uuid.UUID, status result.Status, value []byte, errMessage string, ttl time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, ok := r.Results[id]
	if !ok {
		return result.ErrResultNotFound
	}
	if res.Status != result.StatusWaiting {
		return result.ErrNotWaiting
	}

	res.Status = status
	res.Value = value
	res.ErrMessage = errMessage
	res.TTL = ttl
	r.Results[id] = res
	return nil
}

// PurgeExpired drops every record whose ttl is at or before now.
func (r *Repository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var purged int64
	for id, res := range r.Results {
		if !res.TTL.After(now) {
			delete(r.Results, id)
			purged++
		}
	}
	return purged, nil
}
