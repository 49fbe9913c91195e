package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"taskrelay/internal/apperr"
	"taskrelay/internal/model"
)

type OutboxInterface interface {
	Add(ctx context.Context, event *model.OutboxEvent) error
	// FetchPending returns pending events oldest first, skipping events
	// whose retry counter already reached maxRetries.
	FetchPending(ctx context.Context, limit, maxRetries int) ([]model.OutboxEvent, error)
	MarkSent(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, cause string) error
	WithTx(tx *gorm.DB) OutboxInterface
}

type OutboxRepository struct {
	db *gorm.DB
}

func NewOutboxRepository(db *gorm.DB) *OutboxRepository {
	return &OutboxRepository{db: db}
}

func (r *OutboxRepository) Add(ctx context.Context, event *model.OutboxEvent) error {
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		return &apperr.RepositoryError{Op: "add outbox event", Err: err}
	}
	return nil
}

func (r *OutboxRepository) FetchPending(ctx context.Context, limit, maxRetries int) ([]model.OutboxEvent, error) {
	var events []model.OutboxEvent
	err := r.db.WithContext(ctx).
		Where("status = ? AND retries < ?", model.OutboxStatusPending, maxRetries).
		Order("created_at ASC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, &apperr.RepositoryError{Op: "fetch pending outbox events", Err: err}
	}
	return events, nil
}

// MarkSent removes the event: a delivered row has nothing left to say.
func (r *OutboxRepository) MarkSent(ctx context.Context, id uuid.UUID) error {
	err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.OutboxEvent{}).Error
	if err != nil {
		return &apperr.RepositoryError{Op: "mark outbox event sent", Err: err}
	}
	return nil
}

func (r *OutboxRepository) MarkFailed(ctx context.Context, id uuid.UUID, cause string) error {
	err := r.db.WithContext(ctx).Model(&model.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"retries":    gorm.Expr("retries + 1"),
			"last_error": cause,
			"updated_at": time.Now().UTC(),
		}).Error
	if err != nil {
		return &apperr.RepositoryError{Op: "mark outbox event failed", Err: err}
	}
	return nil
}

func (r *OutboxRepository) WithTx(tx *gorm.DB) OutboxInterface {
	return &OutboxRepository{db: tx}
}
