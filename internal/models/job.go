package models

import (
	"time"

	"github.com/google/uuid"
)

// AssistantJob tracks one queued assistant reply. Queued in redis, persisted
// here so failures stay visible after the queue entry is gone.
type AssistantJob struct {
	ID           uuid.UUID  `json:"id"`
	ChatID       string     `json:"chat_id"`
	UserID       string     `json:"user_id"`
	MessageID    uuid.UUID  `json:"message_id"`
	Status       string     `json:"status"` // "pending" | "processing" | "completed" | "failed"
	RetryCount   int        `json:"retry_count"`
	ErrorMessage *string    `json:"error_message"`
	CreatedAt    time.Time  `json:"created_at"`
	CompletedAt  *time.Time `json:"completed_at"`
}
