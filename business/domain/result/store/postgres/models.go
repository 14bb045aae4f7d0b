package postgres

import (
	"time"

	"github.com/deferq/deferq/business/domain/result"
	"github.com/google/uuid"
)

// Result represents a result row inside the database.
type Result struct {
	UUID       uuid.UUID
	Status     int
	Module     string
	Name       string
	Args       []byte
	Value      []byte
	ErrMessage string
	TTL        time.Time
}

func toDBResult(r result.Result) Result {
	return Result{
		UUID:       r.ID,
		Status:     int(r.Status),
		Module:     r.Module,
		Name:       r.Name,
		Args:       r.Args,
		Value:      r.Value,
		ErrMessage: r.ErrMessage,
		TTL:        r.TTL.UTC(),
	}
}

func (r Result) toDomainResult() result.Result {
	return result.Result{
		ID:         r.UUID,
		Status:     result.Status(r.Status),
		Module:     r.Module,
		Name:       r.Name,
		Args:       r.Args,
		Value:      r.Value,
		ErrMessage: r.ErrMessage,
		TTL:        r.TTL.In(time.Local),
	}
}
