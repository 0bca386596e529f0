package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/cydxin/call-sdk/cons"
	"github.com/cydxin/call-sdk/service"
)

type fakeCleaner struct {
	calls int
	res   service.CleanupResult
	err   error
}

func (f *fakeCleaner) Run(context.Context) (service.CleanupResult, error) {
	f.calls++
	return f.res, f.err
}

func TestCleanupTask(t *testing.T) {
	task := NewCleanupTask()
	if task.Type() != cons.TaskLiveCleanup || len(task.Payload()) != 0 {
		t.Fatalf("unexpected task %s %q", task.Type(), task.Payload())
	}
}

func TestCleanupHandler(t *testing.T) {
	c := &fakeCleaner{res: service.CleanupResult{Batches: 3, Deleted: 1200}}
	h := NewCleanupHandler(c, nil)
	if err := h.ProcessTask(context.Background(), NewCleanupTask()); err != nil {
		t.Fatalf("ProcessTask: %v", err)
	}
	if c.calls != 1 {
		t.Fatalf("cleaner called %d times", c.calls)
	}
}

func TestCleanupHandlerPropagatesError(t *testing.T) {
	boom := errors.New("db down")
	h := NewCleanupHandler(&fakeCleaner{err: boom}, nil)
	if err := h.ProcessTask(context.Background(), NewCleanupTask()); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}
