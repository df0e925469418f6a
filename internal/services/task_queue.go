package services

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/hibiken/asynq"

	"github.com/codecraft-ai/codecraft/backend/internal/config"
	"github.com/codecraft-ai/codecraft/backend/pkg/logger"
)

const TaskTypeGenerate = "ai:generate"

// GenerationTask asks the assistant to answer a prompt posted in a project room.
type GenerationTask struct {
	ProjectID   uint   `json:"project_id"`
	Prompt      string `json:"prompt"`
	RequestedBy uint   `json:"requested_by,omitempty"`
	RequestID   string `json:"request_id,omitempty"`
}

// TaskProcessor handles one generation task.
type TaskProcessor func(context.Context, *GenerationTask) error

// TaskQueue defines how generation tasks leave the socket read loop.
type TaskQueue interface {
	// Enqueue schedules task and returns without waiting for it.
	Enqueue(ctx context.Context, task *GenerationTask) error
	// IsAsync returns true if tasks are handed to an external worker.
	IsAsync() bool
	// Close stops accepting tasks and releases resources.
	Close() error
}

// NewTaskQueue picks the Redis-backed queue when Redis is enabled and
// reachable, otherwise in-process execution.
func NewTaskQueue(cfg *config.Config) TaskQueue {
	if !cfg.Redis.Enabled {
		logger.Infof("[TaskQueue] Sync queue initialized (Redis disabled)")
		return NewSyncQueue()
	}

	queue, err := NewAsyncQueue(&cfg.Redis)
	if err != nil {
		logger.Warnf("[TaskQueue] Redis unavailable, falling back to sync mode: %v", err)
		return NewSyncQueue()
	}
	logger.Infof("[TaskQueue] Async queue initialized with Redis at %s", cfg.Redis.Addr)
	return queue
}

func redisOpt(cfg *config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

// AsyncQueue implements TaskQueue using asynq (Redis-based)
type AsyncQueue struct {
	client *asynq.Client
}

func NewAsyncQueue(cfg *config.RedisConfig) (*AsyncQueue, error) {
	opt := redisOpt(cfg)
	client := asynq.NewClient(opt)

	inspector := asynq.NewInspector(opt)
	defer inspector.Close()

	if _, err := inspector.Queues(); err != nil {
		client.Close()
		return nil, err
	}

	return &AsyncQueue{client: client}, nil
}

// Enqueue publishes the task without retries: a retried generation would
// post a second reply into the room.
func (q *AsyncQueue) Enqueue(ctx context.Context, task *GenerationTask) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return err
	}

	info, err := q.client.EnqueueContext(ctx, asynq.NewTask(TaskTypeGenerate, payload),
		asynq.Queue("default"),
		asynq.MaxRetry(0),
	)
	if err != nil {
		return err
	}

	logger.Infof("[AsyncQueue] Task enqueued: id=%s, queue=%s, project_id=%d", info.ID, info.Queue, task.ProjectID)
	return nil
}

func (q *AsyncQueue) IsAsync() bool {
	return true
}

func (q *AsyncQueue) Close() error {
	return q.client.Close()
}

// SyncQueue runs each task on its own goroutine in this process.
type SyncQueue struct {
	mu        sync.Mutex
	processor TaskProcessor
	closed    bool
	wg        sync.WaitGroup
}

func NewSyncQueue() *SyncQueue {
	return &SyncQueue{}
}

func (q *SyncQueue) SetProcessor(processor TaskProcessor) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.processor = processor
}

// Enqueue detaches the task from ctx so a requester leaving the room does
// not cancel the generation.
func (q *SyncQueue) Enqueue(ctx context.Context, task *GenerationTask) error {
	q.mu.Lock()
	processor := q.processor
	if q.closed {
		q.mu.Unlock()
		logger.Warnf("[SyncQueue] Queue closed, dropping task for project %d", task.ProjectID)
		return nil
	}
	if processor == nil {
		q.mu.Unlock()
		logger.Warnf("[SyncQueue] No processor set, task will be dropped")
		return nil
	}
	q.wg.Add(1)
	q.mu.Unlock()

	go func() {
		defer q.wg.Done()
		if err := processor(context.WithoutCancel(ctx), task); err != nil {
			logger.Errorf("[SyncQueue] Task processing failed: %v", err)
		}
	}()

	return nil
}

func (q *SyncQueue) IsAsync() bool {
	return false
}

// Close waits for in-flight tasks.
func (q *SyncQueue) Close() error {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.wg.Wait()
	return nil
}
