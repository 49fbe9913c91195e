package resp

import (
	"time"

	"taskrelay/internal/model"
)

type TaskResponse struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Priority    string     `json:"priority"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at"`
	Result      *string    `json:"result"`
	Error       *string    `json:"error"`
}

func TaskResponseFrom(t *model.Task) TaskResponse {
	return TaskResponse{
		ID:          t.ID.String(),
		Name:        t.Name,
		Description: t.Description,
		Priority:    string(t.Priority),
		Status:      string(t.Status),
		CreatedAt:   t.CreatedAt,
		StartedAt:   t.StartedAt,
		FinishedAt:  t.FinishedAt,
		Result:      t.Result,
		Error:       t.Error,
	}
}

type TaskListResponse struct {
	Total    int64          `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
	Items    []TaskResponse `json:"items"`
}

type TaskStatusResponse struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
