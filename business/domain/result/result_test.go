package result_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/deferq/deferq/business/domain/result"
	"github.com/deferq/deferq/business/domain/result/store/memory"
	"github.com/google/uuid"
)

func TestCreateResult(t *testing.T) {
	store := memory.NewRepository()
	service := result.NewService(store, time.Minute*5)

	id := uuid.New()
	res, err := service.CreateResult(context.Background(), result.NewResult{
		ID:     id,
		Module: "math",
		Name:   "add",
		Args:   []byte(`{"a":2,"b":3}`),
	})
	if err != nil {
		t.Fatalf("expected the result to be saved: %s", err)
	}

	if res.Status != result.StatusWaiting {
		t.Errorf("status= %s, got %s", result.StatusWaiting, res.Status)
	}
	if res.Value != nil {
		t.Errorf("expected no value before completion, got %q", res.Value)
	}
	if res.TTL.Before(time.Now().Add(time.Minute * 4)) {
		t.Errorf("expected the ttl to sit a retention window ahead, got %s", res.TTL)
	}
}

func TestCompleteReady(t *testing.T) {
	store := memory.NewRepository()
	service := result.NewService(store, time.Minute*5)

	id := uuid.New()
	if _, err := service.CreateResult(context.Background(), result.NewResult{
		ID:   id,
		Name: "add",
	}); err != nil {
		t.Fatalf("expected the result to be saved: %s", err)
	}

	if err := service.Complete(context.Background(), id, []byte("5"), ""); err != nil {
		t.Fatalf("expected to complete the result: %s", err)
	}

	res, err := service.GetResult(context.Background(), id)
	if err != nil {
		t.Fatalf("expected to get the result: %s", err)
	}

	if res.Status != result.StatusReady {
		t.Errorf("status= %s, got %s", result.StatusReady, res.Status)
	}
	if string(res.Value) != "5" {
		t.Errorf("value= %q, got %q", "5", res.Value)
	}
	if res.ErrMessage != "" {
		t.Errorf("expected no error message, got %q", res.ErrMessage)
	}
}

func TestCompleteError(t *testing.T) {
	store := memory.NewRepository()
	service := result.NewService(store, time.Minute*5)

	id := uuid.New()
	if _, err := service.CreateResult(context.Background(), result.NewResult{
		ID:   id,
		Name: "divide",
	}); err != nil {
		t.Fatalf("expected the result to be saved: %s", err)
	}

	if err := service.Complete(context.Background(), id, []byte("ignored"), "division by zero"); err != nil {
		t.Fatalf("expected to complete the result: %s", err)
	}

	res, err := service.GetResult(context.Background(), id)
	if err != nil {
		t.Fatalf("expected to get the result: %s", err)
	}

	if res.Status != result.StatusError {
		t.Errorf("status= %s, got %s", result.StatusError, res.Status)
	}
	if res.ErrMessage != "division by zero" {
		t.Errorf("error message= %q, got %q", "division by zero", res.ErrMessage)
	}
	//the error wins over any value
	if res.Value != nil {
		t.Errorf("expected no value on a failed result, got %q", res.Value)
	}
}

func TestCompleteIsTerminal(t *testing.T) {
	store := memory.NewRepository()
	service := result.NewService(store, time.Minute*5)

	id := uuid.New()
	if _, err := service.CreateResult(context.Background(), result.NewResult{
		ID:   id,
		Name: "add",
	}); err != nil {
		t.Fatalf("expected the result to be saved: %s", err)
	}

	if err := service.Complete(context.Background(), id, []byte("5"), ""); err != nil {
		t.Fatalf("expected to complete the result: %s", err)
	}

	//records mutate exactly once
	if err := service.Complete(context.Background(), id, []byte("6"), ""); err == nil {
		t.Fatal("expected a second completion to fail")
	}
}

func TestGetResultNotFound(t *testing.T) {
	store := memory.NewRepository()
	service := result.NewService(store, time.Minute*5)

	_, err := service.GetResult(context.Background(), uuid.New())
	if !errors.Is(err, result.ErrResultNotFound) {
		t.Fatalf("expected ErrResultNotFound, got %v", err)
	}
}

func TestPurgeExpired(t *testing.T) {
	store := memory.NewRepository()
	service := result.NewService(store, time.Minute*5)

	id := uuid.New()
	if _, err := service.CreateResult(context.Background(), result.NewResult{
		ID:   id,
		Name: "add",
	}); err != nil {
		t.Fatalf("expected the result to be saved: %s", err)
	}

	//nothing expired yet
	purged, err := service.PurgeExpired(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("expected to purge: %s", err)
	}
	if purged != 0 {
		t.Errorf("purged= %d, got %d", 0, purged)
	}

	//past the retention window the record goes away
	purged, err = service.PurgeExpired(context.Background(), time.Now().Add(time.Minute*6))
	if err != nil {
		t.Fatalf("expected to purge: %s", err)
	}
	if purged != 1 {
		t.Errorf("purged= %d, got %d", 1, purged)
	}

	if _, err := service.GetResult(context.Background(), id); !errors.Is(err, result.ErrResultNotFound) {
		t.Fatalf("expected ErrResultNotFound after the purge, got %v", err)
	}
}
