package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"taskrelay/internal/apperr"
	"taskrelay/internal/model"
	"taskrelay/internal/repository"
	"taskrelay/pkg/logger"
)

type CreateTask struct {
	Name        string
	Description string
	Priority    model.TaskPriority
}

// TaskService coordinates task operations between the repositories and the
// messaging layer. Creation goes through the unit of work so the task row
// and its outbox event commit atomically; the broker is never touched on
// this path.
type TaskService struct {
	tasks repository.TaskInterface
	uow   repository.UnitOfWorkInterface
}

func NewTaskService(tasks repository.TaskInterface, uow repository.UnitOfWorkInterface) *TaskService {
	return &TaskService{tasks: tasks, uow: uow}
}

func (s *TaskService) Create(ctx context.Context, input CreateTask) (*model.Task, error) {
	task := &model.Task{
		Name:        input.Name,
		Description: input.Description,
		Priority:    input.Priority,
		Status:      model.TaskStatusNew,
	}

	err := s.uow.Run(ctx, func(r repository.Repos) error {
		if err := r.Tasks.Create(ctx, task); err != nil {
			return err
		}

		payload, err := json.Marshal(map[string]string{"task_id": task.ID.String()})
		if err != nil {
			return err
		}
		event := &model.OutboxEvent{
			EventType: model.EventTaskCreated,
			Payload:   string(payload),
			Status:    model.OutboxStatusPending,
			TraceID:   TraceIDFromContext(ctx),
		}
		return r.Outbox.Add(ctx, event)
	})
	if err != nil {
		return nil, err
	}

	logger.Info("task created",
		zap.String("task_id", task.ID.String()),
		zap.String("priority", string(task.Priority)))
	return task, nil
}

func (s *TaskService) List(ctx context.Context, filter repository.TaskFilter, page repository.Pagination) ([]model.Task, int64, error) {
	return s.tasks.List(ctx, filter, page)
}

func (s *TaskService) Get(ctx context.Context, id uuid.UUID) (*model.Task, error) {
	task, err := s.tasks.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, &apperr.NotFoundError{TaskID: id}
	}
	return task, nil
}

// Cancel moves a task to CANCELLED. Only non-terminal tasks may be
// cancelled; a terminal task yields a conflict carrying its current status.
func (s *TaskService) Cancel(ctx context.Context, id uuid.UUID) (*model.Task, error) {
	task, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if task.Status.Terminal() {
		return nil, &apperr.CancellationConflictError{TaskID: id, Status: task.Status}
	}

	now := time.Now().UTC()
	cancelled, err := s.tasks.SetStatus(ctx, id, repository.StatusChange{
		Status:     model.TaskStatusCancelled,
		FinishedAt: &now,
	})
	if err != nil {
		return nil, err
	}
	if cancelled == nil {
		return nil, &apperr.NotFoundError{TaskID: id}
	}

	logger.Info("task cancelled", zap.String("task_id", id.String()))
	return cancelled, nil
}

// SetStatus applies a transition without validating it against the current
// status: the consumer relies on replays being absorbed silently. Reaching a
// terminal status stamps the finish time.
func (s *TaskService) SetStatus(ctx context.Context, id uuid.UUID, status model.TaskStatus, result, errMsg *string) (*model.Task, error) {
	change := repository.StatusChange{
		Status: status,
		Result: result,
		Error:  errMsg,
	}
	if status.Terminal() {
		now := time.Now().UTC()
		change.FinishedAt = &now
	}

	updated, err := s.tasks.SetStatus(ctx, id, change)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, &apperr.NotFoundError{TaskID: id}
	}
	return updated, nil
}

func (s *TaskService) Health(ctx context.Context) error {
	return s.tasks.PingContext(ctx)
}
