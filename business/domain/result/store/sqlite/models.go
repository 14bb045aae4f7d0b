package sqlite

import (
	"fmt"
	"time"

	"github.com/deferq/deferq/business/domain/result"
	"github.com/google/uuid"
)

// Result represents a result row inside the embedded database. The ttl is
// stored as unix nanoseconds so the purge query compares integers.
type Result struct {
	UUID       string
	Status     int
	Module     string
	Name       string
	Args       []byte
	Value      []byte
	ErrMessage string
	TTL        int64
}

func toDBResult(r result.Result) Result {
	return Result{
		UUID:       r.ID.String(),
		Status:     int(r.Status),
		Module:     r.Module,
		Name:       r.Name,
		Args:       r.Args,
		Value:      r.Value,
		ErrMessage: r.ErrMessage,
		TTL:        r.TTL.UTC().UnixNano(),
	}
}

func (r Result) toDomainResult() (result.Result, error) {
	id, err := uuid.Parse(r.UUID)
	if err != nil {
		return result.Result{}, fmt.Errorf("parsing uuid: %w", err)
	}

	return result.Result{
		ID:         id,
		Status:     result.Status(r.Status),
		Module:     r.Module,
		Name:       r.Name,
		Args:       r.Args,
		Value:      r.Value,
		ErrMessage: r.ErrMessage,
		TTL:        time.Unix(0, r.TTL),
	}, nil
}
