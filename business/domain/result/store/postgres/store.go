// Package postgres implements the result store for multi process
// deployments.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/deferq/deferq/business/database/postgres"
	"github.com/deferq/deferq/business/domain/result"
	"github.com/google/uuid"
)

// Repository represents apis used to interact with the results table.
type Repository struct {
	client *postgres.Client
}

// NewRepository creates a new store that uses *postgres.Client as its db client.
func NewRepository(client *postgres.Client) *Repository {
	return &Repository{
		client: client,
	}
}

// Create inserts a new result row. The primary key rejects identifier
// collisions.
func (r *Repository) Create(ctx context.Context, res result.Result) error {
	const q = `
	INSERT INTO results
		(uuid, status, function_module, function_name, function_arguments, function_result, error_message, ttl)
	VALUES
		($1, $2, $3, $4, $5, $6, $7, $8);
	`

	dbResult := toDBResult(res)
	if _, err := r.client.DB.ExecContext(ctx, q,
		dbResult.UUID,
		dbResult.Status,
		dbResult.Module,
		dbResult.Name,
		dbResult.Args,
		dbResult.Value,
		dbResult.ErrMessage,
		dbResult.TTL,
	); err != nil {
		return fmt.Errorf("exec context: %w", err)
	}
	return nil
}

// Get returns the row or result.ErrResultNotFound.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (result.Result, error) {
	const q = `
	SELECT
		uuid, status, function_module, function_name, function_arguments, function_result, error_message, ttl
	FROM
		results
	WHERE
		uuid = $1;
	`

	var dbResult Result
	row := r.client.DB.QueryRowContext(ctx, q, id)
	if err := row.Scan(
		&dbResult.UUID,
		&dbResult.Status,
		&dbResult.Module,
		&dbResult.Name,
		&dbResult.Args,
		&dbResult.Value,
		&dbResult.ErrMessage,
		&dbResult.TTL,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return result.Result{}, result.ErrResultNotFound
		}
		return result.Result{}, fmt.Errorf("row scan: %w", err)
	}

	return dbResult.toDomainResult(), nil
}

// Complete mutates a waiting row into its terminal state. The status guard
// in the WHERE clause keeps terminal rows immutable.
func (r *Repository) Complete(ctx context.Context, id uuid.UUID, status result.Status, value []byte, errMessage string, ttl time.Time) error {
	const q = `
	UPDATE
		results
	SET
		status = $1,
		function_result = $2,
		error_message = $3,
		ttl = $4
	WHERE
		uuid = $5 AND status = $6;
	`

	res, err := r.client.DB.ExecContext(ctx, q,
		int(status),
		value,
		errMessage,
		ttl.UTC(),
		id,
		int(result.StatusWaiting),
	)
	if err != nil {
		return fmt.Errorf("exec context: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return result.ErrNotWaiting
	}
	return nil
}

// PurgeExpired drops every row whose ttl is at or before now.
func (r *Repository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	const q = `
	DELETE FROM
		results
	WHERE
		ttl <= $1;
	`

	res, err := r.client.DB.ExecContext(ctx, q, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("exec context: %w", err)
	}

	purged, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return purged, nil
}
