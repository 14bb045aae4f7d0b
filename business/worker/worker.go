// Package worker provides a bounded pool of goroutines the engine hands
// claimed task executions to.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// defaultDeadline caps an execution whose caller context carries no deadline
// of its own.
const defaultDeadline = time.Minute

// Executer is the function a pool goroutine runs.
type Executer func(ctx context.Context)

// Worker manages the concurrent execution of claimed tasks.
type Worker struct {
	wg        sync.WaitGroup
	mu        sync.RWMutex
	semaphore chan struct{}
	shutdown  chan struct{}
	running   map[string]context.CancelFunc
}

// New creates a worker allowing at most maxRunning executions at any given
// time.
func New(maxRunning int) (*Worker, error) {
	if maxRunning <= 0 {
		return nil, errors.New("max running executions must be greater than 0")
	}

	w := Worker{
		semaphore: make(chan struct{}, maxRunning),
		shutdown:  make(chan struct{}),
		running:   make(map[string]context.CancelFunc),
	}
	return &w, nil
}

// Running returns the number of executions currently in flight.
func (w *Worker) Running() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.running)
}

// Start launches a goroutine for the executer and returns an id for it. It
// blocks while the pool is full, and gives up when the caller context or the
// pool expires first.
func (w *Worker) Start(ctx context.Context, executer Executer) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-w.shutdown:
		return "", errors.New("shutdown signal received")
	case w.semaphore <- struct{}{}:
	}

	//the select picks randomly among ready cases, so a free slot can win
	//against a closed shutdown channel
	select {
	case <-w.shutdown:
		<-w.semaphore
		return "", errors.New("shutdown signal received")
	default:
	}

	id := uuid.NewString()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(defaultDeadline)
	}

	//the pool owns the execution context, detached from the caller's.
	execCtx, cancel := context.WithDeadline(context.Background(), deadline)

	w.mu.Lock()
	w.running[id] = cancel
	w.mu.Unlock()

	w.wg.Add(1)
	go func() {
		defer func() {
			cancel()

			w.mu.Lock()
			delete(w.running, id)
			w.mu.Unlock()

			<-w.semaphore
			w.wg.Done()
		}()

		executer(execCtx)
	}()

	return id, nil
}

// Stop cancels a single in flight execution by its id.
func (w *Worker) Stop(id string) error {
	w.mu.RLock()
	defer w.mu.RUnlock()

	cancel, ok := w.running[id]
	if !ok {
		return fmt.Errorf("execution with id %q not found", id)
	}
	cancel()
	return nil
}

// Shutdown cancels everything in flight and waits for the goroutines to
// drain, or gives up when the context expires.
func (w *Worker) Shutdown(ctx context.Context) error {
	close(w.shutdown)

	w.mu.RLock()
	for _, cancel := range w.running {
		cancel()
	}
	w.mu.RUnlock()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
