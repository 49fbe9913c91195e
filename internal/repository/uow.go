package repository

import (
	"context"

	"gorm.io/gorm"

	"taskrelay/internal/apperr"
)

// Repos holds repositories bound to one shared transaction.
type Repos struct {
	Tasks  TaskInterface
	Outbox OutboxInterface
}

// UnitOfWorkInterface runs fn inside a single transaction: either every write
// made through the supplied repos becomes durable, or none of them does.
type UnitOfWorkInterface interface {
	Run(ctx context.Context, fn func(Repos) error) error
}

type UnitOfWork struct {
	db *gorm.DB
}

func NewUnitOfWork(db *gorm.DB) *UnitOfWork {
	return &UnitOfWork{db: db}
}

func (u *UnitOfWork) Run(ctx context.Context, fn func(Repos) error) error {
	err := u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(Repos{
			Tasks:  NewTaskRepository(tx),
			Outbox: NewOutboxRepository(tx),
		})
	})
	return wrapTransactionErr(err)
}

// wrapTransactionErr lets application errors propagate untouched so callers
// can map them; anything else becomes a unit-of-work failure preserving the
// cause.
func wrapTransactionErr(err error) error {
	if err == nil {
		return nil
	}
	if apperr.IsAppError(err) {
		return err
	}
	return &apperr.UnitOfWorkError{Err: err}
}
