package result

import (
	"time"

	"github.com/google/uuid"
)

// Result represents the durable outcome of one task execution. Value is nil
// until the engine completes the task, ErrMessage is empty unless it failed.
type Result struct {
	ID         uuid.UUID
	Status     Status
	Module     string
	Name       string
	Args       []byte
	Value      []byte
	ErrMessage string
	TTL        time.Time
}

// NewResult represents all of the required info for creating an outcome
// record at registration time.
type NewResult struct {
	ID     uuid.UUID
	Module string
	Name   string
	Args   []byte
}
