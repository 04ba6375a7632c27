package models

import (
	"time"

	"github.com/google/uuid"
)

// Message is a persisted chat message. Sender and recipient are string ids so
// the reserved assistant id can share the namespace with uuid user ids.
type Message struct {
	ID          uuid.UUID `json:"id"`
	ChatID      string    `json:"chat_id"`
	SenderID    string    `json:"sender_id"`
	RecipientID string    `json:"recipient_id"`
	Body        string    `json:"body"`
	SentAt      time.Time `json:"sent_at"`
}

type HistoryResponse struct {
	ChatID   string    `json:"chat_id"`
	Messages []Message `json:"messages"`
}

// AskRequest is the synchronous ask-assistant payload.
type AskRequest struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

type AskResponse struct {
	Reply string `json:"reply"`
}
