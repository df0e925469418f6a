package services

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestTaskTypeGenerate_Constant(t *testing.T) {
	if TaskTypeGenerate != "ai:generate" {
		t.Errorf("TaskTypeGenerate = %q, expected %q", TaskTypeGenerate, "ai:generate")
	}
}

func TestNewTaskQueue_RedisDisabled(t *testing.T) {
	cfg := configWithRedis(false)
	queue := NewTaskQueue(cfg)
	if queue.IsAsync() {
		t.Error("queue should be sync when Redis is disabled")
	}
}

func TestSyncQueue_EnqueueWithoutProcessor(t *testing.T) {
	queue := NewSyncQueue()
	if err := queue.Enqueue(context.Background(), &GenerationTask{ProjectID: 1, Prompt: "hi"}); err != nil {
		t.Errorf("Enqueue without processor should not error, got %v", err)
	}
}

func TestSyncQueue_RunsProcessor(t *testing.T) {
	queue := NewSyncQueue()

	var mu sync.Mutex
	var got []string
	queue.SetProcessor(func(ctx context.Context, task *GenerationTask) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, task.Prompt)
		return nil
	})

	if err := queue.Enqueue(context.Background(), &GenerationTask{ProjectID: 1, Prompt: "a"}); err != nil {
		t.Fatal(err)
	}
	if err := queue.Close(); err != nil {
		t.Fatal(err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0] != "a" {
		t.Errorf("processed = %v, expected [a]", got)
	}
}

func TestSyncQueue_IgnoresRequesterCancel(t *testing.T) {
	queue := NewSyncQueue()

	done := make(chan error, 1)
	queue.SetProcessor(func(ctx context.Context, task *GenerationTask) error {
		time.Sleep(10 * time.Millisecond)
		done <- ctx.Err()
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	if err := queue.Enqueue(ctx, &GenerationTask{ProjectID: 1, Prompt: "a"}); err != nil {
		t.Fatal(err)
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("processor context should not be cancelled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("processor did not run")
	}
	queue.Close()
}

func TestSyncQueue_DropsAfterClose(t *testing.T) {
	queue := NewSyncQueue()
	called := false
	queue.SetProcessor(func(ctx context.Context, task *GenerationTask) error {
		called = true
		return nil
	})
	queue.Close()

	if err := queue.Enqueue(context.Background(), &GenerationTask{ProjectID: 1}); err != nil {
		t.Fatal(err)
	}
	queue.Close()
	if called {
		t.Error("closed queue should not run tasks")
	}
}

func TestAsyncQueue_IsAsync(t *testing.T) {
	queue := &AsyncQueue{}
	if !queue.IsAsync() {
		t.Error("AsyncQueue.IsAsync() should return true")
	}
}
