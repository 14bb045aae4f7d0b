package postgres

import (
	"time"

	"github.com/deferq/deferq/business/domain/task"
	"github.com/google/uuid"
)

// Task represents a task row inside the database.
type Task struct {
	ID       int64
	UUID     uuid.NullUUID
	Schedule time.Time
	Crontab  string
	Module   string
	Name     string
	Args     []byte
}

func toDBTask(t task.Task) Task {
	return Task{
		ID:       t.ID,
		UUID:     uuid.NullUUID{UUID: t.ResultID, Valid: t.ResultID != uuid.Nil},
		Schedule: t.Schedule.UTC(),
		Crontab:  t.Crontab,
		Module:   t.Module,
		Name:     t.Name,
		Args:     t.Args,
	}
}

func (t Task) toDomainTask() task.Task {
	resultID := uuid.Nil
	if t.UUID.Valid {
		resultID = t.UUID.UUID
	}

	return task.Task{
		ID:       t.ID,
		ResultID: resultID,
		Schedule: t.Schedule.In(time.Local),
		Crontab:  t.Crontab,
		Module:   t.Module,
		Name:     t.Name,
		Args:     t.Args,
	}
}
