// Package postgres implements the task store for deployments where several
// engine instances share one database. Claim relies on a single DELETE with
// RETURNING, so two instances never execute the same row.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/deferq/deferq/business/database/postgres"
	"github.com/deferq/deferq/business/domain/task"
)

// Repository represents apis used to interact with the tasks table.
type Repository struct {
	client *postgres.Client
}

// NewRepository creates a new store that uses *postgres.Client as its db client.
func NewRepository(client *postgres.Client) *Repository {
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
		($1, $2, $3, $4, $5, $6)
	RETURNING id;
	`

	dbTask := toDBTask(t)

	var id int64
	if err := r.client.DB.QueryRowContext(ctx, q,
		dbTask.UUID,
		dbTask.Schedule,
		dbTask.Crontab,
		dbTask.Module,
		dbTask.Name,
		dbTask.Args,
	).Scan(&id); err != nil {
		return 0, fmt.Errorf("query row context: %w", err)
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
		schedule <= $1
	ORDER BY
		schedule, id;
	`

	rows, err := r.client.DB.QueryContext(ctx, q, at.UTC())
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
		function_module = $1 AND function_name = $2;
	`

	rows, err := r.client.DB.QueryContext(ctx, q, module, name)
	if err != nil {
		return nil, fmt.Errorf("query context: %w", err)
	}
	defer rows.Close()

	return collectTasks(rows)
}

// Claim deletes the row by id and reports whether this caller removed it.
func (r *Repository) Claim(ctx context.Context, id int64) (bool, error) {
	const q = `
	DELETE FROM
		tasks
	WHERE
		id = $1
	RETURNING id;
	`

	var deleted int64
	if err := r.client.DB.QueryRowContext(ctx, q, id).Scan(&deleted); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			//another instance already took it
			return false, nil
		}
		return false, fmt.Errorf("query row context: %w", err)
	}
	return true, nil
}

// Delete removes a task row by its storage identifier.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	const q = `
	DELETE FROM
		tasks
	WHERE
		id = $1;
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
		schedule = $1
	WHERE
		id = $2;
	`

	res, err := r.client.DB.ExecContext(ctx, q, schedule.UTC(), id)
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

func collectTasks(rows *sql.Rows) ([]task.Task, error) {
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
		tasks = append(tasks, dbTask.toDomainTask())
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return tasks, nil
}
