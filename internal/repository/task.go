package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"taskrelay/internal/apperr"
	"taskrelay/internal/model"
)

// TaskFilter narrows List results. Zero values mean "no constraint".
type TaskFilter struct {
	Status      model.TaskStatus
	Priority    model.TaskPriority
	Search      string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

type Pagination struct {
	Page     int
	PageSize int
}

func (p Pagination) Offset() int {
	page := p.Page
	if page < 1 {
		page = 1
	}
	return (page - 1) * p.Limit()
}

func (p Pagination) Limit() int {
	if p.PageSize < 1 {
		return 20
	}
	return p.PageSize
}

// StatusChange is applied as a whole: result/error are overwritten, and
// FinishedAt is only touched when set.
type StatusChange struct {
	Status     model.TaskStatus
	Result     *string
	Error      *string
	FinishedAt *time.Time
}

type TaskInterface interface {
	Create(ctx context.Context, task *model.Task) error
	// Get returns nil without error when no task exists for id.
	Get(ctx context.Context, id uuid.UUID) (*model.Task, error)
	List(ctx context.Context, filter TaskFilter, page Pagination) ([]model.Task, int64, error)
	// SetStatus returns nil without error when no task exists for id.
	SetStatus(ctx context.Context, id uuid.UUID, change StatusChange) (*model.Task, error)
	PingContext(ctx context.Context) error
	WithTx(tx *gorm.DB) TaskInterface
}

type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return &apperr.RepositoryError{Op: "create task", Err: err}
	}
	return nil
}

func (r *TaskRepository) Get(ctx context.Context, id uuid.UUID) (*model.Task, error) {
	var task model.Task
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&task).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, &apperr.RepositoryError{Op: "get task", Err: err}
	}
	return &task, nil
}

func (r *TaskRepository) List(ctx context.Context, filter TaskFilter, page Pagination) ([]model.Task, int64, error) {
	db := r.applyFilters(r.db.WithContext(ctx).Model(&model.Task{}), filter)

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, &apperr.RepositoryError{Op: "count tasks", Err: err}
	}

	var tasks []model.Task
	err := db.Order("created_at DESC").
		Offset(page.Offset()).Limit(page.Limit()).
		Find(&tasks).Error
	if err != nil {
		return nil, 0, &apperr.RepositoryError{Op: "list tasks", Err: err}
	}
	return tasks, total, nil
}

func (r *TaskRepository) SetStatus(ctx context.Context, id uuid.UUID, change StatusChange) (*model.Task, error) {
	// Existence is checked with a select rather than RowsAffected: MySQL
	// reports rows changed, not rows matched, so re-applying an identical
	// status (duplicate delivery) affects 0 rows on a task that exists.
	task, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, nil
	}

	updates := map[string]any{
		"status": change.Status,
		"result": change.Result,
		"error":  change.Error,
	}
	if change.FinishedAt != nil {
		updates["finished_at"] = change.FinishedAt
	}

	res := r.db.WithContext(ctx).Model(&model.Task{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return nil, &apperr.RepositoryError{Op: "update task status", Err: res.Error}
	}
	return r.Get(ctx, id)
}

func (r *TaskRepository) applyFilters(db *gorm.DB, filter TaskFilter) *gorm.DB {
	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}
	if filter.Priority != "" {
		db = db.Where("priority = ?", filter.Priority)
	}
	if filter.Search != "" {
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		db = db.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}
	if filter.CreatedFrom != nil {
		db = db.Where("created_at >= ?", filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		db = db.Where("created_at <= ?", filter.CreatedTo)
	}
	return db
}

func (r *TaskRepository) PingContext(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (r *TaskRepository) WithTx(tx *gorm.DB) TaskInterface {
	return &TaskRepository{db: tx}
}
