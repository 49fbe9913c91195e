package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"taskrelay/internal/model"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Discard,
	})
	if err != nil {
		t.Fatalf("failed to open gorm: %v", err)
	}
	return db, mock
}

func taskRow(id uuid.UUID, status model.TaskStatus) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "description", "priority", "status", "created_at"}).
		AddRow(id.String(), "T1", "first task", "MEDIUM", string(status), time.Now())
}

// A duplicate delivery re-applies a status the task already has. MySQL
// reports 0 rows affected for such an update, so existence must not be
// inferred from the update result.
func TestSetStatusUnchangedTaskStillFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTaskRepository(db)
	id := uuid.New()

	mock.ExpectQuery("SELECT \\* FROM `tasks` WHERE id = \\?").
		WillReturnRows(taskRow(id, model.TaskStatusInProgress))
	mock.ExpectExec("UPDATE `tasks` SET").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT \\* FROM `tasks` WHERE id = \\?").
		WillReturnRows(taskRow(id, model.TaskStatusInProgress))

	task, err := repo.SetStatus(context.Background(), id, StatusChange{Status: model.TaskStatusInProgress})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task == nil {
		t.Fatal("expected the existing task back, got nil")
	}
	if task.Status != model.TaskStatusInProgress {
		t.Errorf("expected status IN_PROGRESS, got %s", task.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestSetStatusAbsentTask(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTaskRepository(db)
	id := uuid.New()

	mock.ExpectQuery("SELECT \\* FROM `tasks` WHERE id = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description", "priority", "status", "created_at"}))

	task, err := repo.SetStatus(context.Background(), id, StatusChange{Status: model.TaskStatusCompleted})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task != nil {
		t.Fatalf("expected nil for an absent task, got %+v", task)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
