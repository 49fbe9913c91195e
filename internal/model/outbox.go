package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OutboxStatus string

const (
	OutboxStatusPending OutboxStatus = "PENDING"
	OutboxStatusSent    OutboxStatus = "SENT"
)

// EventTaskCreated announces a freshly committed task to the dispatcher.
const EventTaskCreated = "task.created"

type OutboxEvent struct {
	ID        uuid.UUID    `json:"id" gorm:"type:char(36);primaryKey"`
	EventType string       `json:"event_type" gorm:"size:255;not null"`
	Payload   string       `json:"payload" gorm:"type:text"`
	Status    OutboxStatus `json:"status" gorm:"size:16;index;default:'PENDING'"`
	Retries   int          `json:"retries" gorm:"default:0"`
	LastError *string      `json:"last_error"`
	TraceID   string       `json:"trace_id" gorm:"size:64;index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (e *OutboxEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Status == "" {
		e.Status = OutboxStatusPending
	}
	return nil
}
