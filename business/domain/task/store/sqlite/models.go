package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/deferq/deferq/business/domain/task"
	"github.com/google/uuid"
)

// Task represents a task row inside the embedded database. Timestamps are
// stored as unix nanoseconds so range queries compare integers.
type Task struct {
	ID       int64
	UUID     sql.Null[string]
	Schedule int64
	Crontab  string
	Module   string
	Name     string
	Args     []byte
}

func toDBTask(t task.Task) Task {
	var id sql.Null[string]
	if t.ResultID != uuid.Nil {
		id = sql.Null[string]{V: t.ResultID.String(), Valid: true}
	}

	return Task{
		ID:       t.ID,
		UUID:     id,
		Schedule: t.Schedule.UTC().UnixNano(),
		Crontab:  t.Crontab,
		Module:   t.Module,
		Name:     t.Name,
		Args:     t.Args,
	}
}

func (t Task) toDomainTask() (task.Task, error) {
	resultID := uuid.Nil
	if t.UUID.Valid {
		var err error
		resultID, err = uuid.Parse(t.UUID.V)
		if err != nil {
			return task.Task{}, fmt.Errorf("parsing uuid: %w", err)
		}
	}

	return task.Task{
		ID:       t.ID,
		ResultID: resultID,
		Schedule: time.Unix(0, t.Schedule),
		Crontab:  t.Crontab,
		Module:   t.Module,
		Name:     t.Name,
		Args:     t.Args,
	}, nil
}
