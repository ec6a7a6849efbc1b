package server

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Tasks runs detached work that must outlive the request that started it.
// Every task shares one cancellation scope, independent of request contexts.
type Tasks struct {
	ctx    context.Context
	cancel context.CancelFunc
	group  errgroup.Group
	logger *slog.Logger

	mu      sync.Mutex
	running map[string]struct{}
}

// NewTasks creates an empty task registry.
func NewTasks(logger *slog.Logger) *Tasks {
	ctx, cancel := context.WithCancel(context.Background())
	return &Tasks{
		ctx:     ctx,
		cancel:  cancel,
		logger:  logger.With("component", "tasks"),
		running: make(map[string]struct{}),
	}
}

// Go starts fn in the background. Errors are logged, never returned.
func (t *Tasks) Go(name string, fn func(ctx context.Context) error) {
	t.mu.Lock()
	t.running[name] = struct{}{}
	t.mu.Unlock()

	t.logger.Debug("task started", "task", name)
	t.group.Go(func() error {
		defer func() {
			t.mu.Lock()
			delete(t.running, name)
			t.mu.Unlock()
		}()
		if err := fn(t.ctx); err != nil {
			t.logger.Error("task failed", "task", name, "error", err)
			return nil
		}
		t.logger.Debug("task finished", "task", name)
		return nil
	})
}

// Running returns the names of unfinished tasks.
func (t *Tasks) Running() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	names := make([]string, 0, len(t.running))
	for name := range t.running {
		names = append(names, name)
	}
	return names
}

// Shutdown waits for running tasks until ctx is done, then cancels them and
// waits for them to return.
func (t *Tasks) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		_ = t.group.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.cancel()
		return nil
	case <-ctx.Done():
		abandoned := t.Running()
		t.cancel()
		<-done
		return fmt.Errorf("canceled %d running task(s) %v: %w", len(abandoned), abandoned, ctx.Err())
	}
}
