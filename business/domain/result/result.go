// Package result provides APIs for managing the durable outcome records of
// result bearing tasks.
package result

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrResultNotFound is returned for unknown, purged or never written
	// identifiers. Callers must treat it as a valid transient state.
	ErrResultNotFound = errors.New("result not found")

	// ErrNotWaiting is returned when completing a record that is already
	// terminal. Records mutate exactly once after creation.
	ErrNotWaiting = errors.New("result is not in waiting state")
)

// store represents the decoupled store to interact with.
type store interface {
	Create(ctx context.Context, result Result) error
	Get(ctx context.Context, id uuid.UUID) (Result, error)
	Complete(ctx context.Context, id uuid.UUID, status Status, value []byte, errMessage string, ttl time.Time) error
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// Service represents set of APIs for accessing outcome records.
type Service struct {
	store     store
	retention time.Duration
}

// NewService creates *Service and returns it. The retention window drives
// the ttl stamped on every write.
func NewService(store store, retention time.Duration) *Service {
	return &Service{
		store:     store,
		retention: retention,
	}
}

// CreateResult inserts a record in waiting state. The id must be fresh, a
// collision is a caller programming error surfaced as a storage error.
func (s *Service) CreateResult(ctx context.Context, nr NewResult) (Result, error) {
	result := Result{
		ID:     nr.ID,
		Status: StatusWaiting,
		Module: nr.Module,
		Name:   nr.Name,
		Args:   nr.Args,
		TTL:    time.Now().Add(s.retention),
	}

	if err := s.store.Create(ctx, result); err != nil {
		return Result{}, fmt.Errorf("result creation: %w", err)
	}

	return result, nil
}

// GetResult returns the record for an identifier or ErrResultNotFound.
func (s *Service) GetResult(ctx context.Context, id uuid.UUID) (Result, error) {
	result, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrResultNotFound) {
			return Result{}, ErrResultNotFound
		}
		return Result{}, fmt.Errorf("get result: %w", err)
	}
	return result, nil
}

// Complete moves a waiting record to its terminal state. A non empty error
// message wins over the value, and the ttl slides forward from now.
func (s *Service) Complete(ctx context.Context, id uuid.UUID, value []byte, errMessage string) error {
	status := StatusReady
	if errMessage != "" {
		status = StatusError
		value = nil
	}

	ttl := time.Now().Add(s.retention)
	if err := s.store.Complete(ctx, id, status, value, errMessage, ttl); err != nil {
		return fmt.Errorf("complete result: %w", err)
	}
	return nil
}

// PurgeExpired removes every record whose ttl has elapsed and returns how
// many rows went away.
func (s *Service) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	purged, err := s.store.PurgeExpired(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("purge expired: %w", err)
	}
	return purged, nil
}
