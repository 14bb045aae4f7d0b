package worker_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/deferq/deferq/business/worker"
)

func TestWorker(t *testing.T) {
	exec := func(ctx context.Context) {
		<-ctx.Done()
	}

	w, err := worker.New(4)
	if err != nil {
		t.Fatalf("expected to create a worker: %s", err)
	}

	for range 4 {
		ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond*100)
		defer cancel()

		if _, err := w.Start(ctx, exec); err != nil {
			t.Fatalf("expected to start the execution: %s", err)
		}
	}

	for range 10 {
		if w.Running() == 0 {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	if current := w.Running(); current != 0 {
		t.Errorf("running= %d, got %d", 0, current)
	}

	if err := w.Shutdown(context.Background()); err != nil {
		t.Fatalf("expected a clean shutdown: %s", err)
	}
}

func TestShutdownCancelsExecutions(t *testing.T) {
	var wg sync.WaitGroup //makes sure all executions started before shutdown
	wg.Add(4)

	exec := func(ctx context.Context) {
		wg.Done()
		<-ctx.Done()
	}

	w, err := worker.New(4)
	if err != nil {
		t.Fatalf("expected to create a worker: %s", err)
	}

	for range 4 {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
		defer cancel()

		if _, err := w.Start(ctx, exec); err != nil {
			t.Fatalf("expected to start the execution: %s", err)
		}
	}

	wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := w.Shutdown(ctx); err != nil {
		t.Fatalf("expected a clean shutdown: %s", err)
	}

	if running := w.Running(); running != 0 {
		t.Fatalf("running= %d, got %d", 0, running)
	}
}

func TestStopSingleExecution(t *testing.T) {
	var wg sync.WaitGroup
	wg.Add(1)

	exec := func(ctx context.Context) {
		wg.Done()
		<-ctx.Done()
	}

	w, err := worker.New(1)
	if err != nil {
		t.Fatalf("expected to create a worker: %s", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	id, err := w.Start(ctx, exec)
	if err != nil {
		t.Fatalf("expected to start the execution: %s", err)
	}

	wg.Wait()

	if err := w.Stop(id); err != nil {
		t.Fatalf("expected to stop the execution: %s", err)
	}

	for range 10 {
		if w.Running() == 0 {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	if running := w.Running(); running != 0 {
		t.Errorf("running= %d, got %d", 0, running)
	}

	if err := w.Stop("no-such-id"); err == nil {
		t.Error("expected stopping an unknown id to fail")
	}
}

func TestStartAfterShutdown(t *testing.T) {
	w, err := worker.New(1)
	if err != nil {
		t.Fatalf("expected to create a worker: %s", err)
	}

	if err := w.Shutdown(context.Background()); err != nil {
		t.Fatalf("expected a clean shutdown: %s", err)
	}

	//a free semaphore slot must never win against the closed shutdown
	//channel, no matter how the acquire select lands
	for i := range 100 {
		if _, err := w.Start(context.Background(), func(ctx context.Context) {}); err == nil {
			t.Fatalf("expected start %d after shutdown to fail", i)
		}
	}

	if running := w.Running(); running != 0 {
		t.Errorf("running= %d, got %d", 0, running)
	}
}
