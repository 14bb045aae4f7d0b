package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/deferq/deferq/business/dbtest"
	"github.com/deferq/deferq/business/domain/task"
	postgresRepo "github.com/deferq/deferq/business/domain/task/store/postgres"
	"github.com/google/uuid"
)

func Test_TaskStore(t *testing.T) {
	client := dbtest.NewPostgresClient(t, "test_task_store")
	store := postgresRepo.NewRepository(client)

	ctx := context.Background()
	//timestamptz keeps microseconds, feed it values that round trip
	now := time.Now().Truncate(time.Microsecond)
	resultId := uuid.New()

	dueId, err := store.Create(ctx, task.Task{
		ResultID: resultId,
		Schedule: now.Add(-time.Minute),
		Module:   "math",
		Name:     "add",
		Args:     []byte(`{"a":1,"b":2}`),
	})
	if err != nil {
		t.Fatalf("creating due task: %s", err)
	}

	futureId, err := store.Create(ctx, task.Task{
		Schedule: now.Add(time.Hour),
		Crontab:  "0 * * * *",
		Module:   "math",
		Name:     "add",
	})
	if err != nil {
		t.Fatalf("creating future task: %s", err)
	}

	due, err := store.GetDue(ctx, now)
	if err != nil {
		t.Fatalf("getting due tasks: %s", err)
	}
	if len(due) != 1 {
		t.Fatalf("expected %d due task, got %d", 1, len(due))
	}

	got := due[0]
	if got.ID != dueId {
		t.Errorf("expected row id %d, got %d", dueId, got.ID)
	}
	if got.ResultID != resultId {
		t.Errorf("expected result id %s, got %s", resultId, got.ResultID)
	}
	if !got.Schedule.Equal(now.Add(-time.Minute)) {
		t.Errorf("expected schedule %s, got %s", now.Add(-time.Minute), got.Schedule)
	}
	if string(got.Args) != `{"a":1,"b":2}` {
		t.Errorf("expected args to round trip, got %q", got.Args)
	}

	byKey, err := store.GetByKey(ctx, "math", "add")
	if err != nil {
		t.Fatalf("getting tasks by key: %s", err)
	}
	if len(byKey) != 2 {
		t.Fatalf("expected %d tasks for key, got %d", 2, len(byKey))
	}

	claimed, err := store.Claim(ctx, dueId)
	if err != nil {
		t.Fatalf("claiming task: %s", err)
	}
	if !claimed {
		t.Fatal("expected to claim the due task")
	}

	claimed, err = store.Claim(ctx, dueId)
	if err != nil {
		t.Fatalf("claiming task twice: %s", err)
	}
	if claimed {
		t.Fatal("expected the second claim to lose")
	}

	if err := store.Reschedule(ctx, futureId, now.Add(-time.Second)); err != nil {
		t.Fatalf("rescheduling task: %s", err)
	}

	due, err = store.GetDue(ctx, now)
	if err != nil {
		t.Fatalf("getting due tasks after reschedule: %s", err)
	}
	if len(due) != 1 {
		t.Fatalf("expected %d due task after reschedule, got %d", 1, len(due))
	}

	if err := store.Delete(ctx, futureId); err != nil {
		t.Fatalf("deleting task: %s", err)
	}

	byKey, err = store.GetByKey(ctx, "math", "add")
	if err != nil {
		t.Fatalf("getting tasks by key after delete: %s", err)
	}
	if len(byKey) != 0 {
		t.Errorf("expected no tasks for key, got %d", len(byKey))
	}
}
