package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

// TaskRecord is the queue task type carrying one audit event.
const TaskRecord = "audit:record"

// Recorder accepts audit events from the core modules.
type Recorder interface {
	Record(ctx context.Context, event Event) error
}

// NewRecordTask wraps an event into an asynq task.
func NewRecordTask(event Event) (*asynq.Task, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRecord, payload, asynq.MaxRetry(5)), nil
}

// QueueRecorder enqueues events onto the background queue. Failures are logged
// and swallowed: the mutating transition has already committed and must not be
// failed retroactively by its audit trail.
type QueueRecorder struct {
	client *asynq.Client
	logger *slog.Logger
}

// NewQueueRecorder constructs a QueueRecorder.
func NewQueueRecorder(client *asynq.Client, logger *slog.Logger) *QueueRecorder {
	return &QueueRecorder{client: client, logger: logger}
}

// Record enqueues the event.
func (r *QueueRecorder) Record(ctx context.Context, event Event) error {
	if r == nil || r.client == nil {
		return nil
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	task, err := NewRecordTask(event)
	if err != nil {
		r.logger.Error("build audit task", slog.Any("error", err))
		return nil
	}
	if _, err := r.client.EnqueueContext(ctx, task); err != nil {
		r.logger.Error("enqueue audit event", slog.Any("error", err), slog.String("action", event.Action))
	}
	return nil
}

// NewTaskHandler returns the worker-side handler persisting queued events.
func NewTaskHandler(repo *Repository, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var event Event
		if err := json.Unmarshal(t.Payload(), &event); err != nil {
			return asynq.SkipRetry
		}
		if err := repo.Insert(ctx, event); err != nil {
			logger.Error("persist audit event", slog.Any("error", err))
			return err
		}
		return nil
	}
}
