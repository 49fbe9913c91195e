// Package apperr defines the closed error taxonomy of the service.
// Handlers translate these types to HTTP statuses in one place; everything
// else propagates them unchanged.
package apperr

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"taskrelay/internal/model"
)

// RepositoryError wraps a store I/O failure.
type RepositoryError struct {
	Op  string
	Err error
}

func (e *RepositoryError) Error() string {
	return fmt.Sprintf("repository: %s: %v", e.Op, e.Err)
}

func (e *RepositoryError) Unwrap() error { return e.Err }

// UnitOfWorkError wraps a transaction failure that is not already a
// recognized application error.
type UnitOfWorkError struct {
	Err error
}

func (e *UnitOfWorkError) Error() string {
	return fmt.Sprintf("unit of work transaction failed: %v", e.Err)
}

func (e *UnitOfWorkError) Unwrap() error { return e.Err }

// PublishError signals that a task could not be delivered to the broker.
type PublishError struct {
	TaskID uuid.UUID
	Err    error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("failed to publish task %s: %v", e.TaskID, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }

// ConsumeError signals that a broker delivery could not be processed.
type ConsumeError struct {
	Reason string
	Err    error
}

func (e *ConsumeError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("failed to consume task message: %s", e.Reason)
	}
	return fmt.Sprintf("failed to consume task message: %s: %v", e.Reason, e.Err)
}

func (e *ConsumeError) Unwrap() error { return e.Err }

// NotFoundError reports that no task exists for the given id.
type NotFoundError struct {
	TaskID uuid.UUID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("task %s not found", e.TaskID)
}

// CancellationConflictError reports a cancel attempt against a task that is
// already in a terminal status. It carries the offending status so the caller
// can explain the refusal.
type CancellationConflictError struct {
	TaskID uuid.UUID
	Status model.TaskStatus
}

func (e *CancellationConflictError) Error() string {
	return fmt.Sprintf("task %s cannot be cancelled in status %s", e.TaskID, e.Status)
}

// IsAppError reports whether err belongs to the taxonomy above. The unit of
// work lets such errors pass through untouched and wraps everything else.
func IsAppError(err error) bool {
	var (
		repoErr    *RepositoryError
		uowErr     *UnitOfWorkError
		pubErr     *PublishError
		consumeErr *ConsumeError
		nfErr      *NotFoundError
		conflict   *CancellationConflictError
	)
	return errors.As(err, &repoErr) ||
		errors.As(err, &uowErr) ||
		errors.As(err, &pubErr) ||
		errors.As(err, &consumeErr) ||
		errors.As(err, &nfErr) ||
		errors.As(err, &conflict)
}
