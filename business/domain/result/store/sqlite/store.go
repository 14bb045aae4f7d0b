// Package sqlite implements the result store against the embedded database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/deferq/deferq/business/database/sqlite"
	"github.com/deferq/deferq/business/domain/result"
	"github.com/google/uuid"
)

// Repository represents apis used to interact with the results table.
type Repository struct {
	client *sqlite.Client
}

// NewRepository creates a new store that uses *sqlite.Client as its db client.
func NewRepository(client *sqlite.Client) *Repository {
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
		(?, ?, ?, ?, ?, ?, ?, ?);
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
		uuid = ?;
	`

	var dbResult Result
	row := r.client.DB.QueryRowContext(ctx, q, id.String())
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

	return dbResult.toDomainResult()
}

// Complete mutates a waiting row into its terminal state. The status guard
// in the WHERE clause keeps terminal rows immutable.
func (r *Repository) Complete(ctx context.Context, id uuid.UUID, status result.Status, value []byte, errMessage string, ttl time.Time) error {
	const q = `
	UPDATE
		results
	SET
		status = ?,
		function_result = ?,
		error_message = ?,
		ttl = ?
	WHERE
		uuid = ? AND status = ?;
	`

	res, err := r.client.DB.ExecContext(ctx, q,
		int(status),
		value,
		errMessage,
		ttl.UTC().UnixNano(),
		id.String(),
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
		ttl <= ?;
	`

	res, err := r.client.DB.ExecContext(ctx, q, now.UTC().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("exec context: %w", err)
	}

	purged, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return purged, nil
}
