// Package sqlite provides the embedded database client used by the default
// single process deployment. The storage directory is resolved once at
// construction time.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	_ "modernc.org/sqlite"
)

var (
	//go:embed sql/*.sql
	migrationFiles embed.FS
)

// Config represents all of the mandatory configs required to open the file.
type Config struct {
	Dir  string
	File string
}

// Client represents an embedded database client and has some extended
// functionalities over database/sql.
type Client struct {
	DB   *sql.DB
	path string
}

// NewClient resolves the storage directory, opens the database file and
// returns a client.
func NewClient(conf Config) (*Client, error) {
	if err := os.MkdirAll(conf.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating storage dir: %w", err)
	}

	file := conf.File
	if file == "" {
		file = "deferq.db"
	}
	path := filepath.Join(conf.Dir, file)

	q := make(url.Values)
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "foreign_keys(1)")

	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?%s", path, q.Encode()))
	if err != nil {
		return nil, fmt.Errorf("opening database file: %w", err)
	}

	//a single writer connection avoids SQLITE_BUSY under concurrent loops
	db.SetMaxOpenConns(1)

	return &Client{
		DB:   db,
		path: path,
	}, nil
}

// Path returns the resolved database file path.
func (c *Client) Path() string {
	return c.path
}

// StatusCheck checks the status of the database file.
func (c *Client) StatusCheck(ctx context.Context) error {
	//check ctx to make sure its a deadline ctx
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Second*5)
		defer cancel()
	}

	if err := c.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}

	var result int
	const q = "SELECT 1"

	if err := c.DB.QueryRowContext(ctx, q).Scan(&result); err != nil {
		return fmt.Errorf("queryRowContext: %w", err)
	}

	return nil
}

// Migrate is going to do schema migration against the client.
func (c *Client) Migrate() error {
	driver, err := migratesqlite.WithInstance(c.DB, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("selecting driver: %w", err)
	}

	//create a source, "sql" means prefix of the path, "sql/*.sql"
	src, err := iofs.New(migrationFiles, "sql")
	if err != nil {
		return fmt.Errorf("creating migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("creating migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("migration up: %w", err)
	}
	return nil
}

// Close closes the underlying database handle.
func (c *Client) Close() error {
	return c.DB.Close()
}
