package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"taskrelay/internal/apperr"
	"taskrelay/internal/model"
	"taskrelay/pkg/logger"
)

// TaskTransitioner is the slice of the task service the consumer drives.
type TaskTransitioner interface {
	SetStatus(ctx context.Context, id uuid.UUID, status model.TaskStatus, result, errMsg *string) (*model.Task, error)
}

// Consumer bridges delivered queue messages to task state transitions.
// Failures are recorded on the task, not retried at the broker: every
// delivery is settled without requeue regardless of processing outcome.
type Consumer struct {
	url         string
	queueName   string
	maxPriority uint8
	tasks       TaskTransitioner
}

func NewConsumer(url, queueName string, maxPriority int, tasks TaskTransitioner) *Consumer {
	if maxPriority < 1 {
		maxPriority = 10
	}
	if maxPriority > 255 {
		maxPriority = 255
	}
	return &Consumer{
		url:         url,
		queueName:   queueName,
		maxPriority: uint8(maxPriority),
		tasks:       tasks,
	}
}

// Start connects, declares the queue and consumes until ctx is cancelled or
// the delivery stream closes.
func (c *Consumer) Start(ctx context.Context) error {
	conn, err := amqp.Dial(c.url)
	if err != nil {
		logger.Error("failed to connect to rabbitmq as consumer", zap.Error(err))
		return &apperr.ConsumeError{Reason: "failed to connect to rabbitmq", Err: err}
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return &apperr.ConsumeError{Reason: "failed to open channel", Err: err}
	}
	defer ch.Close()

	_, err = ch.QueueDeclare(
		c.queueName,
		true,
		false,
		false,
		false,
		amqp.Table{"x-max-priority": int32(c.maxPriority)},
	)
	if err != nil {
		return &apperr.ConsumeError{Reason: "failed to declare queue", Err: err}
	}

	deliveries, err := ch.ConsumeWithContext(ctx, c.queueName, "", false, false, false, false, nil)
	if err != nil {
		return &apperr.ConsumeError{Reason: "failed to start consuming", Err: err}
	}

	logger.Info("consumer started", zap.String("queue", c.queueName))

	for {
		select {
		case <-ctx.Done():
			logger.Info("consumer stopped")
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return &apperr.ConsumeError{Reason: "delivery channel closed"}
			}
			c.handleDelivery(ctx, d)
		}
	}
}

func (c *Consumer) handleDelivery(ctx context.Context, d amqp.Delivery) {
	taskID, err := extractTaskID(d.Body)
	if err != nil {
		logger.Warn("invalid task message received", zap.Error(err))
		_ = d.Nack(false, false)
		return
	}

	if err := c.processTask(ctx, taskID); err != nil {
		logger.Error("failed to process task",
			zap.String("task_id", taskID.String()), zap.Error(err))
		_ = d.Nack(false, false)
		return
	}

	logger.Info("processed task message", zap.String("task_id", taskID.String()))
	_ = d.Ack(false)
}

// processTask runs the nominal work for one delivered task: transition to
// IN_PROGRESS, do the work, record the outcome on the task.
func (c *Consumer) processTask(ctx context.Context, taskID uuid.UUID) error {
	if _, err := c.tasks.SetStatus(ctx, taskID, model.TaskStatusInProgress, nil, nil); err != nil {
		return err
	}

	if err := c.doWork(ctx, taskID); err != nil {
		msg := err.Error()
		if _, statusErr := c.tasks.SetStatus(ctx, taskID, model.TaskStatusFailed, nil, &msg); statusErr != nil {
			logger.Error("failed to mark task failed",
				zap.String("task_id", taskID.String()), zap.Error(statusErr))
		}
		return &apperr.ConsumeError{Reason: "task processing failed", Err: err}
	}

	result := "processed by task consumer"
	if _, err := c.tasks.SetStatus(ctx, taskID, model.TaskStatusCompleted, &result, nil); err != nil {
		return err
	}
	return nil
}

// doWork is where real task execution would live.
func (c *Consumer) doWork(ctx context.Context, taskID uuid.UUID) error {
	return nil
}

// extractTaskID decodes the message body and pulls the task identifier,
// accepting either an "id" or a "task_id" field.
func extractTaskID(body []byte) (uuid.UUID, error) {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return uuid.Nil, &apperr.ConsumeError{Reason: "invalid task message payload", Err: err}
	}

	raw, ok := payload["id"]
	if !ok || raw == nil || raw == "" {
		raw, ok = payload["task_id"]
	}
	if !ok || raw == nil {
		return uuid.Nil, &apperr.ConsumeError{Reason: "task message missing id field"}
	}

	str, ok := raw.(string)
	if !ok {
		return uuid.Nil, &apperr.ConsumeError{Reason: fmt.Sprintf("task id has unexpected type %T", raw)}
	}

	id, err := uuid.Parse(str)
	if err != nil {
		return uuid.Nil, &apperr.ConsumeError{Reason: "task id is not a valid uuid", Err: err}
	}
	return id, nil
}
