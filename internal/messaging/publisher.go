// Package messaging connects the service to RabbitMQ: the publisher pushes
// tasks into a priority queue, the consumer drains it and drives task state.
package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"taskrelay/internal/apperr"
	"taskrelay/internal/model"
	"taskrelay/pkg/logger"
)

var priorityMapping = map[model.TaskPriority]uint8{
	model.TaskPriorityLow:    1,
	model.TaskPriorityMedium: 5,
	model.TaskPriorityHigh:   10,
}

// brokerPriority maps a task priority to an AMQP priority, clamped to the
// queue's configured maximum. Unrecognized values fall back to 1.
func brokerPriority(p model.TaskPriority, max uint8) uint8 {
	v, ok := priorityMapping[p]
	if !ok {
		v = 1
	}
	if v > max {
		v = max
	}
	return v
}

// PriorityPublisher publishes tasks to a durable priority queue. The
// connection and channel are established lazily and shared by all publish
// calls; mu guards (re)establishment so concurrent publishes never open
// duplicate connections.
type PriorityPublisher struct {
	url         string
	queueName   string
	maxPriority uint8

	mu       sync.Mutex
	conn     *amqp.Connection
	ch       *amqp.Channel
	declared bool
}

func NewPriorityPublisher(url, queueName string, maxPriority int) *PriorityPublisher {
	if maxPriority < 1 {
		maxPriority = 10
	}
	if maxPriority > 255 {
		maxPriority = 255
	}
	return &PriorityPublisher{
		url:         url,
		queueName:   queueName,
		maxPriority: uint8(maxPriority),
	}
}

// Publish delivers one persistent message carrying the full task record.
// It does not retry: on failure the cached connection is torn down and a
// PublishError is returned, leaving retry policy to the caller.
func (p *PriorityPublisher) Publish(ctx context.Context, task *model.Task) error {
	msg, err := buildPublishing(task, p.maxPriority)
	if err != nil {
		return &apperr.PublishError{TaskID: task.ID, Err: err}
	}

	ch, err := p.ensureChannel()
	if err != nil {
		return &apperr.PublishError{TaskID: task.ID, Err: err}
	}

	confirm, err := ch.PublishWithDeferredConfirmWithContext(
		ctx,
		"", // default exchange
		p.queueName,
		false,
		false,
		msg,
	)
	if err != nil {
		logger.Error("failed to publish task",
			zap.String("task_id", task.ID.String()), zap.Error(err))
		p.reset()
		return &apperr.PublishError{TaskID: task.ID, Err: err}
	}

	acked, err := confirm.WaitContext(ctx)
	if err == nil && !acked {
		err = errors.New("broker nacked message")
	}
	if err != nil {
		logger.Error("broker did not confirm task delivery",
			zap.String("task_id", task.ID.String()), zap.Error(err))
		p.reset()
		return &apperr.PublishError{TaskID: task.ID, Err: err}
	}
	return nil
}

// buildPublishing serializes the task into the wire message: JSON body with
// the full field set, persistent delivery, task_id header and the clamped
// per-message priority.
func buildPublishing(task *model.Task, maxPriority uint8) (amqp.Publishing, error) {
	body, err := json.Marshal(task)
	if err != nil {
		return amqp.Publishing{}, err
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Priority:     brokerPriority(task.Priority, maxPriority),
		Headers:      amqp.Table{"task_id": task.ID.String()},
	}, nil
}

func (p *PriorityPublisher) ensureChannel() (*amqp.Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn == nil || p.conn.IsClosed() {
		conn, err := amqp.Dial(p.url)
		if err != nil {
			logger.Error("failed to connect to rabbitmq", zap.Error(err))
			return nil, err
		}
		p.conn = conn
		p.ch = nil
	}

	if p.ch == nil || p.ch.IsClosed() {
		ch, err := p.conn.Channel()
		if err != nil {
			return nil, err
		}
		if err := ch.Confirm(false); err != nil {
			return nil, err
		}
		p.ch = ch
		p.declared = false
	}

	if !p.declared {
		_, err := p.ch.QueueDeclare(
			p.queueName,
			true,
			false,
			false,
			false,
			amqp.Table{"x-max-priority": int32(p.maxPriority)},
		)
		if err != nil {
			return nil, err
		}
		p.declared = true
	}

	return p.ch, nil
}

// reset drops the cached connection and channel so the next publish
// re-establishes from scratch. No partial handles are kept.
func (p *PriorityPublisher) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.ch = nil
	p.conn = nil
	p.declared = false
}

func (p *PriorityPublisher) Close() {
	p.reset()
}
