package repository

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"taskrelay/internal/apperr"
)

func TestWrapTransactionErrPassesDomainErrors(t *testing.T) {
	notFound := &apperr.NotFoundError{TaskID: uuid.New()}
	if got := wrapTransactionErr(notFound); got != notFound {
		t.Errorf("expected domain error to pass through, got %v", got)
	}

	repoErr := &apperr.RepositoryError{Op: "create task", Err: errors.New("duplicate key")}
	if got := wrapTransactionErr(repoErr); got != repoErr {
		t.Errorf("expected repository error to pass through, got %v", got)
	}
}

func TestWrapTransactionErrWrapsUnexpected(t *testing.T) {
	cause := errors.New("deadlock found")
	got := wrapTransactionErr(cause)

	var uowErr *apperr.UnitOfWorkError
	if !errors.As(got, &uowErr) {
		t.Fatalf("expected UnitOfWorkError, got %T", got)
	}
	if !errors.Is(got, cause) {
		t.Error("expected original cause to be preserved")
	}
}

func TestWrapTransactionErrNil(t *testing.T) {
	if got := wrapTransactionErr(nil); got != nil {
		t.Errorf("expected nil, got %v", got)
	}
}

func TestPaginationBounds(t *testing.T) {
	p := Pagination{Page: 3, PageSize: 10}
	if p.Offset() != 20 {
		t.Errorf("expected offset 20, got %d", p.Offset())
	}
	if p.Limit() != 10 {
		t.Errorf("expected limit 10, got %d", p.Limit())
	}

	zero := Pagination{}
	if zero.Offset() != 0 {
		t.Errorf("expected offset 0 for zero pagination, got %d", zero.Offset())
	}
	if zero.Limit() != 20 {
		t.Errorf("expected default limit 20, got %d", zero.Limit())
	}
}
