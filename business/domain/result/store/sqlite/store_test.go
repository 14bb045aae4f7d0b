package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/deferq/deferq/business/dbtest"
	"github.com/deferq/deferq/business/domain/result"
	sqliteRepo "github.com/deferq/deferq/business/domain/result/store/sqlite"
	"github.com/google/uuid"
)

func Test_ResultStore(t *testing.T) {
	client := dbtest.NewSqliteClient(t)
	store := sqliteRepo.NewRepository(client)

	ctx := context.Background()
	now := time.Now()
	id := uuid.New()

	//insert a waiting record
	err := store.Create(ctx, result.Result{
		ID:     id,
		Status: result.StatusWaiting,
		Module: "math",
		Name:   "add",
		Args:   []byte(`{"a":1,"b":2}`),
		TTL:    now.Add(time.Minute * 5),
	})
	if err != nil {
		t.Fatalf("creating result: %s", err)
	}

	//identifier collisions are rejected by the primary key
	err = store.Create(ctx, result.Result{ID: id, Status: result.StatusWaiting, TTL: now})
	if err == nil {
		t.Fatal("expected creating the same id twice to fail")
	}

	got, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("getting result: %s", err)
	}
	if got.Status != result.StatusWaiting {
		t.Errorf("expected status %s, got %s", result.StatusWaiting, got.Status)
	}
	if got.Value != nil {
		t.Errorf("expected no value yet, got %q", got.Value)
	}
	if !got.TTL.Equal(now.Add(time.Minute * 5)) {
		t.Errorf("expected ttl %s, got %s", now.Add(time.Minute*5), got.TTL)
	}

	//unknown ids map to the sentinel
	if _, err := store.Get(ctx, uuid.New()); !errors.Is(err, result.ErrResultNotFound) {
		t.Errorf("expected error %v, got %v", result.ErrResultNotFound, err)
	}

	//complete into ready
	ttl := now.Add(time.Minute * 10)
	if err := store.Complete(ctx, id, result.StatusReady, []byte(`3`), "", ttl); err != nil {
		t.Fatalf("completing result: %s", err)
	}

	got, err = store.Get(ctx, id)
	if err != nil {
		t.Fatalf("getting result after complete: %s", err)
	}
	if got.Status != result.StatusReady {
		t.Errorf("expected status %s, got %s", result.StatusReady, got.Status)
	}
	if string(got.Value) != `3` {
		t.Errorf("expected value %q, got %q", `3`, got.Value)
	}
	if !got.TTL.Equal(ttl) {
		t.Errorf("expected ttl to slide to %s, got %s", ttl, got.TTL)
	}

	//terminal rows are immutable
	err = store.Complete(ctx, id, result.StatusError, nil, "late failure", ttl)
	if !errors.Is(err, result.ErrNotWaiting) {
		t.Errorf("expected error %v, got %v", result.ErrNotWaiting, err)
	}

	got, err = store.Get(ctx, id)
	if err != nil {
		t.Fatalf("getting result after rejected complete: %s", err)
	}
	if got.Status != result.StatusReady {
		t.Errorf("expected status to stay %s, got %s", result.StatusReady, got.Status)
	}
}

func Test_ResultStore_PurgeExpired(t *testing.T) {
	client := dbtest.NewSqliteClient(t)
	store := sqliteRepo.NewRepository(client)

	ctx := context.Background()
	now := time.Now()

	expired := uuid.New()
	alive := uuid.New()

	err := store.Create(ctx, result.Result{
		ID:     expired,
		Status: result.StatusReady,
		Value:  []byte(`1`),
		TTL:    now.Add(-time.Second),
	})
	if err != nil {
		t.Fatalf("creating expired result: %s", err)
	}

	err = store.Create(ctx, result.Result{
		ID:     alive,
		Status: result.StatusWaiting,
		TTL:    now.Add(time.Minute),
	})
	if err != nil {
		t.Fatalf("creating alive result: %s", err)
	}

	purged, err := store.PurgeExpired(ctx, now)
	if err != nil {
		t.Fatalf("purging expired results: %s", err)
	}
	if purged != 1 {
		t.Fatalf("expected %d purged row, got %d", 1, purged)
	}

	if _, err := store.Get(ctx, expired); !errors.Is(err, result.ErrResultNotFound) {
		t.Errorf("expected error %v, got %v", result.ErrResultNotFound, err)
	}
	if _, err := store.Get(ctx, alive); err != nil {
		t.Errorf("expected the alive result to survive: %s", err)
	}
}
