// Package dbtest provides helpers to set up databases for testing.
package dbtest

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"testing"
	"time"

	"github.com/deferq/deferq/business/database/postgres"
	"github.com/deferq/deferq/business/database/sqlite"
	"github.com/deferq/deferq/foundation/docker"
)

// NewSqliteClient opens a migrated database in a temp directory that goes away
// with the test.
func NewSqliteClient(t *testing.T) *sqlite.Client {
	t.Helper()

	client, err := sqlite.NewClient(sqlite.Config{
		Dir:  t.TempDir(),
		File: "test.db",
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %s", err)
	}

	if err := client.Migrate(); err != nil {
		t.Fatalf("failed to run migrations: %s", err)
	}

	t.Cleanup(func() {
		if err := client.Close(); err != nil {
			t.Logf("failed to close sqlite client: %s", err)
		}
	})

	return client
}

// NewPostgresClient creates a container off of a postgres image, creates a
// random database in it and returns a migrated client against that database.
func NewPostgresClient(t *testing.T, name string) *postgres.Client {
	t.Helper()

	image := "postgres:latest"
	port := "5432"
	env := []string{"POSTGRES_PASSWORD=password"}
	cmd := []string{"-c", "log_statement=all"}

	c, err := docker.Start(image, name, port, env, cmd)
	if err != nil {
		t.Fatalf("failed to start container with image %q: %s", image, err)
	}

	t.Logf("container %s at %s", c.ID, c.Address)

	//connect as the main user first
	masterClient, err := postgres.NewClient(postgres.Config{
		User:       "postgres",
		Password:   "password",
		Host:       c.Address,
		Name:       "postgres",
		DisableTLS: true,
	})
	if err != nil {
		t.Fatalf("failed to create master db client: %s", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute*5)
	defer cancel()

	if err := masterClient.StatusCheck(ctx); err != nil {
		t.Fatalf("status check failed: %s", err)
	}

	//every test run gets its own database
	bs := make([]byte, 8)
	if _, err := rand.Read(bs); err != nil {
		t.Fatalf("generating random database name: %s", err)
	}
	dbName := "a" + hex.EncodeToString(bs)

	if _, err := masterClient.DB.ExecContext(context.Background(), "CREATE DATABASE "+dbName); err != nil {
		t.Fatalf("failed to create database %q: %s", dbName, err)
	}

	client, err := postgres.NewClient(postgres.Config{
		User:       "postgres",
		Password:   "password",
		Host:       c.Address,
		Name:       dbName,
		DisableTLS: true,
	})
	if err != nil {
		t.Fatalf("failed to create a client: %s", err)
	}

	ctx, cancel = context.WithTimeout(context.Background(), time.Minute*5)
	defer cancel()

	if err := client.StatusCheck(ctx); err != nil {
		t.Fatalf("status check failed against test client: %s", err)
	}

	t.Logf("running migrations against database %q", dbName)
	if err := client.Migrate(); err != nil {
		t.Fatalf("failed to run migrations: %s", err)
	}

	t.Cleanup(func() {
		if err := client.DB.Close(); err != nil {
			t.Fatalf("failed to close client connection: %s", err)
		}

		//terminate leftover conns, the database can not be dropped otherwise
		const q = `SELECT pg_terminate_backend(pid) FROM pg_stat_activity WHERE datname=$1;`
		if _, err := masterClient.DB.ExecContext(context.Background(), q, dbName); err != nil {
			t.Fatalf("failed to remove all connections to db %q", dbName)
		}

		if _, err := masterClient.DB.ExecContext(context.Background(), "DROP DATABASE "+dbName); err != nil {
			t.Fatalf("failed to delete database %s: %s", dbName, err)
		}

		_ = masterClient.DB.Close()

		if err := c.Stop(); err != nil {
			t.Logf("failed to stop container %s: %s", c.ID, err)
		}
	})

	return client
}
