package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"taskrelay/internal/metrics"
	"taskrelay/internal/model"
	"taskrelay/internal/repository"
	"taskrelay/pkg/logger"
)

// Publisher delivers one task to the broker, or fails without retrying.
type Publisher interface {
	Publish(ctx context.Context, task *model.Task) error
}

type DispatcherConfig struct {
	BatchSize  int
	MaxRetries int
	IdleSleep  time.Duration
}

// OutboxDispatcher drains pending outbox events into the broker. Task
// creation never waits on it: events sit in the outbox until a pass picks
// them up, and a failed publish only costs the event one retry.
type OutboxDispatcher struct {
	outboxRepo repository.OutboxInterface
	taskRepo   repository.TaskInterface
	publisher  Publisher
	observer   metrics.DispatchObserver
	cfg        DispatcherConfig
}

func NewOutboxDispatcher(
	outboxRepo repository.OutboxInterface,
	taskRepo repository.TaskInterface,
	publisher Publisher,
	observer metrics.DispatchObserver,
	cfg DispatcherConfig,
) *OutboxDispatcher {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	if cfg.IdleSleep <= 0 {
		cfg.IdleSleep = 2 * time.Second
	}
	return &OutboxDispatcher{
		outboxRepo: outboxRepo,
		taskRepo:   taskRepo,
		publisher:  publisher,
		observer:   observer,
		cfg:        cfg,
	}
}

// Run polls until ctx is cancelled. A pass that processed something loops
// straight into the next one; an empty pass sleeps IdleSleep first.
func (d *OutboxDispatcher) Run(ctx context.Context) {
	logger.Info("outbox dispatcher started",
		zap.Int("batch_size", d.cfg.BatchSize),
		zap.Int("max_retries", d.cfg.MaxRetries),
		zap.Duration("idle_sleep", d.cfg.IdleSleep))

	for {
		select {
		case <-ctx.Done():
			logger.Info("outbox dispatcher stopped")
			return
		default:
		}

		if d.DispatchPending(ctx) {
			continue
		}

		select {
		case <-ctx.Done():
			logger.Info("outbox dispatcher stopped")
			return
		case <-time.After(d.cfg.IdleSleep):
		}
	}
}

// DispatchPending processes one batch of pending events, oldest first, and
// reports whether anything was processed.
func (d *OutboxDispatcher) DispatchPending(ctx context.Context) bool {
	events, err := d.outboxRepo.FetchPending(ctx, d.cfg.BatchSize, d.cfg.MaxRetries)
	if err != nil {
		logger.Error("failed to fetch pending outbox events", zap.Error(err))
		return false
	}
	if len(events) == 0 {
		return false
	}

	for i := range events {
		d.processEvent(ctx, &events[i])
	}
	return true
}

func (d *OutboxDispatcher) processEvent(ctx context.Context, event *model.OutboxEvent) {
	switch event.EventType {
	case model.EventTaskCreated:
		d.handleTaskCreated(ctx, event)
	default:
		logger.Warn("unknown outbox event type",
			zap.String("event_id", event.ID.String()),
			zap.String("event_type", event.EventType))
		d.observer.EventDropped()
		d.markSent(ctx, event)
	}
}

func (d *OutboxDispatcher) handleTaskCreated(ctx context.Context, event *model.OutboxEvent) {
	var payload struct {
		TaskID string `json:"task_id"`
	}
	if err := json.Unmarshal([]byte(event.Payload), &payload); err != nil || payload.TaskID == "" {
		logger.Error("outbox event missing task_id",
			zap.String("event_id", event.ID.String()))
		d.markFailed(ctx, event, "missing task_id")
		return
	}

	taskID, err := uuid.Parse(payload.TaskID)
	if err != nil {
		logger.Error("outbox event carries invalid task_id",
			zap.String("event_id", event.ID.String()),
			zap.String("task_id", payload.TaskID))
		d.markFailed(ctx, event, "invalid task_id")
		return
	}

	task, err := d.taskRepo.Get(ctx, taskID)
	if err != nil {
		logger.Error("failed to load task for outbox event",
			zap.String("event_id", event.ID.String()),
			zap.String("task_id", taskID.String()),
			zap.Error(err))
		d.markFailed(ctx, event, err.Error())
		return
	}
	if task == nil {
		// The task is gone; nothing to publish, so the event is spent.
		logger.Warn("task not found, marking outbox event sent",
			zap.String("event_id", event.ID.String()),
			zap.String("task_id", taskID.String()))
		d.markSent(ctx, event)
		return
	}

	if err := d.publisher.Publish(ctx, task); err != nil {
		logger.Warn("failed to publish task from outbox event",
			zap.String("event_id", event.ID.String()),
			zap.String("task_id", taskID.String()),
			zap.Error(err))
		d.observer.PublishFailed()
		d.markFailed(ctx, event, err.Error())
		return
	}

	d.observer.EventPublished()
	d.markSent(ctx, event)
}

func (d *OutboxDispatcher) markSent(ctx context.Context, event *model.OutboxEvent) {
	if err := d.outboxRepo.MarkSent(ctx, event.ID); err != nil {
		logger.Error("failed to mark outbox event sent",
			zap.String("event_id", event.ID.String()), zap.Error(err))
	}
}

func (d *OutboxDispatcher) markFailed(ctx context.Context, event *model.OutboxEvent, cause string) {
	if err := d.outboxRepo.MarkFailed(ctx, event.ID, cause); err != nil {
		logger.Error("failed to mark outbox event failed",
			zap.String("event_id", event.ID.String()), zap.Error(err))
		return
	}
	if event.Retries+1 >= d.cfg.MaxRetries {
		// The event stays PENDING but will never be fetched again.
		logger.Warn("outbox event retries exhausted",
			zap.String("event_id", event.ID.String()),
			zap.Int("retries", event.Retries+1),
			zap.String("last_error", cause))
		d.observer.RetriesExhausted()
	}
}
