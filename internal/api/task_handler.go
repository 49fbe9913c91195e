package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"taskrelay/internal/apperr"
	"taskrelay/internal/dto/req"
	"taskrelay/internal/dto/resp"
	"taskrelay/internal/metrics"
	"taskrelay/internal/model"
	"taskrelay/internal/repository"
	"taskrelay/internal/service"
	"taskrelay/pkg/logger"
)

type TaskProvider interface {
	Create(ctx context.Context, input service.CreateTask) (*model.Task, error)
	List(ctx context.Context, filter repository.TaskFilter, page repository.Pagination) ([]model.Task, int64, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Task, error)
	Cancel(ctx context.Context, id uuid.UUID) (*model.Task, error)
	Health(ctx context.Context) error
}

type TaskHandler struct {
	service TaskProvider
}

func NewTaskHandler(service TaskProvider) *TaskHandler {
	return &TaskHandler{service: service}
}

// writeAppError translates the closed error taxonomy into HTTP responses.
// Client faults (4xx) log as warnings, everything else as errors.
func writeAppError(c *gin.Context, operation string, err error) {
	var (
		notFound *apperr.NotFoundError
		conflict *apperr.CancellationConflictError
		pubErr   *apperr.PublishError
		consErr  *apperr.ConsumeError
		repoErr  *apperr.RepositoryError
	)
	switch {
	case errors.As(err, &notFound):
		logger.Warn("task not found",
			zap.String("operation", operation),
			zap.String("task_id", notFound.TaskID.String()))
		c.JSON(http.StatusNotFound, resp.ErrorResponse{Error: "task not found"})
	case errors.As(err, &conflict):
		logger.Warn("task cancellation refused",
			zap.String("operation", operation),
			zap.String("task_id", conflict.TaskID.String()),
			zap.String("status", string(conflict.Status)))
		c.JSON(http.StatusBadRequest, resp.ErrorResponse{Error: "task cannot be cancelled"})
	case errors.As(err, &pubErr) || errors.As(err, &consErr):
		logger.Error("messaging error",
			zap.String("operation", operation), zap.Error(err))
		c.JSON(http.StatusInternalServerError, resp.ErrorResponse{Error: "messaging error"})
	case errors.As(err, &repoErr):
		logger.Error("database error",
			zap.String("operation", operation), zap.Error(err))
		c.JSON(http.StatusInternalServerError, resp.ErrorResponse{Error: "database error"})
	default:
		logger.Error("internal error",
			zap.String("operation", operation), zap.Error(err))
		c.JSON(http.StatusInternalServerError, resp.ErrorResponse{Error: "internal server error"})
	}
}

func (h *TaskHandler) CreateTask(c *gin.Context) {
	var r req.CreateTaskRequest
	if err := c.ShouldBindJSON(&r); err != nil {
		c.JSON(http.StatusBadRequest, resp.ErrorResponse{Error: "invalid request body"})
		return
	}

	task, err := h.service.Create(c.Request.Context(), service.CreateTask{
		Name:        r.Name,
		Description: r.Description,
		Priority:    model.TaskPriority(r.Priority),
	})
	if err != nil {
		writeAppError(c, "create_task", err)
		return
	}

	metrics.TaskCreated()
	c.JSON(http.StatusCreated, resp.TaskResponseFrom(task))
}

func (h *TaskHandler) ListTasks(c *gin.Context) {
	var q req.ListTasksQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, resp.ErrorResponse{Error: "invalid query parameters"})
		return
	}

	filter := repository.TaskFilter{
		Status:      model.TaskStatus(q.Status),
		Priority:    model.TaskPriority(q.Priority),
		Search:      q.Search,
		CreatedFrom: q.CreatedFrom,
		CreatedTo:   q.CreatedTo,
	}
	page := repository.Pagination{Page: q.Page, PageSize: q.PageSize}

	tasks, total, err := h.service.List(c.Request.Context(), filter, page)
	if err != nil {
		writeAppError(c, "list_tasks", err)
		return
	}

	items := make([]resp.TaskResponse, 0, len(tasks))
	for i := range tasks {
		items = append(items, resp.TaskResponseFrom(&tasks[i]))
	}
	c.JSON(http.StatusOK, resp.TaskListResponse{
		Total:    total,
		Page:     q.Page,
		PageSize: q.PageSize,
		Items:    items,
	})
}

func (h *TaskHandler) GetTask(c *gin.Context) {
	id, ok := parseTaskID(c)
	if !ok {
		return
	}

	task, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		writeAppError(c, "get_task", err)
		return
	}
	c.JSON(http.StatusOK, resp.TaskResponseFrom(task))
}

func (h *TaskHandler) CancelTask(c *gin.Context) {
	id, ok := parseTaskID(c)
	if !ok {
		return
	}

	task, err := h.service.Cancel(c.Request.Context(), id)
	if err != nil {
		writeAppError(c, "cancel_task", err)
		return
	}
	c.JSON(http.StatusOK, resp.TaskResponseFrom(task))
}

func (h *TaskHandler) GetTaskStatus(c *gin.Context) {
	id, ok := parseTaskID(c)
	if !ok {
		return
	}

	task, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		writeAppError(c, "get_task_status", err)
		return
	}
	c.JSON(http.StatusOK, resp.TaskStatusResponse{
		TaskID: task.ID.String(),
		Status: string(task.Status),
	})
}

func (h *TaskHandler) HealthCheck(c *gin.Context) {
	if err := h.service.Health(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func parseTaskID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, resp.ErrorResponse{Error: "invalid task id"})
		return uuid.Nil, false
	}
	return id, true
}
