// Package sqlite implements the task store against the embedded database.
package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/deferq/deferq/business/database/sqlite"
	"github.com/deferq/deferq/business/domain/task"
)

// Repository represents apis used to interact with the tasks table.
type Repository struct {
	client *sqlite.Client
}

// NewRepository creates a new store that uses *sqlite.Client as its db client.
func NewRepository(client *sqlite.Client) *Repository {
	return &Repository{
		client: client,
	}
}

// Create inserts a new task row and returns the generated row id.
func (r *Repository) Create(ctx context.Context, t task.Task) (int64, error) {
	const q = `
	INSERT INTO tasks
		(uuid, schedule, crontab, function_module, function_name, function_arguments)
	VALUES
		(?, ?, ?, ?, ?, ?);
	`

	dbTask := toDBTask(t)
	res, err := r.client.DB.ExecContext(ctx, q,
		dbTask.UUID,
		dbTask.Schedule,
		dbTask.Crontab,
		dbTask.Module,
		dbTask.Name,
		dbTask.Args,
	)
	if err != nil {
		return 0, fmt.Errorf("exec context: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// GetDue returns all rows whose schedule is at or before the given time, in
// schedule order.
func (r *Repository) GetDue(ctx context.Context, at time.Time) ([]task.Task, error) {
	const q = `
	SELECT
		id, uuid, schedule, crontab, function_module, function_name, function_arguments
	FROM
		tasks
	WHERE
		schedule <= ?
	ORDER BY
		schedule, id;
	`

	rows, err := r.client.DB.QueryContext(ctx, q, at.UTC().UnixNano())
	if err != nil {
		return nil, fmt.Errorf("query context: %w", err)
	}
	defer rows.Close()

	return collectTasks(rows)
}

// GetByKey returns all rows matching a module and name pair.
func (r *Repository) GetByKey(ctx context.Context, module string, name string) ([]task.Task, error) {
	const q = `
	SELECT
		id, uuid, schedule, crontab, function_module, function_name, function_arguments
	FROM
		tasks
	WHERE
		function_module = ? AND function_name = ?;
	`

	rows, err := r.client.DB.QueryContext(ctx, q, module, name)
	if err != nil {
		return nil, fmt.Errorf("query context: %w", err)
	}
	defer rows.Close()

	return collectTasks(rows)
}

// Claim deletes the row by id and reports whether this caller removed it.
// The single statement makes the delete-before-execute ordering atomic.
func (r *Repository) Claim(ctx context.Context, id int64) (bool, error) {
	const q = `
	DELETE FROM
		tasks
	WHERE
		id = ?;
	`

	res, err := r.client.DB.ExecContext(ctx, q, id)
	if err != nil {
		return false, fmt.Errorf("exec context: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// Delete removes a task row by its storage identifier.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	const q = `
	DELETE FROM
		tasks
	WHERE
		id = ?;
	`

	if _, err := r.client.DB.ExecContext(ctx, q, id); err != nil {
		return fmt.Errorf("exec context: %w", err)
	}
	return nil
}

// Reschedule updates only the schedule column of an existing row.
func (r *Repository) Reschedule(ctx context.Context, id int64, schedule time.Time) error {
	const q = `
	UPDATE
		tasks
	SET
		schedule = ?
	WHERE
		id = ?;
	`

	res, err := r.client.DB.ExecContext(ctx, q, schedule.UTC().UnixNano(), id)
	if err != nil {
		return fmt.Errorf("exec context: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return task.ErrTaskNotFound
	}
	return nil
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func collectTasks(rows rowScanner) ([]task.Task, error) {
	var tasks []task.Task
	for rows.Next() {
		var dbTask Task
		if err := rows.Scan(
			&dbTask.ID,
			&dbTask.UUID,
			&dbTask.Schedule,
			&dbTask.Crontab,
			&dbTask.Module,
			&dbTask.Name,
			&dbTask.Args,
		); err != nil {
			return nil, fmt.Errorf("row scan: %w", err)
		}

		t, err := dbTask.toDomainTask()
		if err != nil {
			return nil, fmt.Errorf("to domain task: %w", err)
		}
		tasks = append(tasks, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return tasks, nil
}
