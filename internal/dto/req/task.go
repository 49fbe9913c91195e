package req

import "time"

type CreateTaskRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=255"`
	Description string `json:"description" binding:"required,min=1"`
	Priority    string `json:"priority" binding:"required,oneof=LOW MEDIUM HIGH"`
}

type ListTasksQuery struct {
	Status      string     `form:"status" binding:"omitempty,oneof=NEW PENDING IN_PROGRESS COMPLETED FAILED CANCELLED"`
	Priority    string     `form:"priority" binding:"omitempty,oneof=LOW MEDIUM HIGH"`
	Search      string     `form:"search" binding:"omitempty,max=255"`
	CreatedFrom *time.Time `form:"created_from" time_format:"2006-01-02T15:04:05Z07:00"`
	CreatedTo   *time.Time `form:"created_to" time_format:"2006-01-02T15:04:05Z07:00"`
	Page        int        `form:"page,default=1" binding:"omitempty,min=1"`
	PageSize    int        `form:"page_size,default=20" binding:"omitempty,min=1,max=100"`
}
