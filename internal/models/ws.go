package models

import "encoding/json"

// WSEnvelope is the frame exchanged over the socket in both directions.
type WSEnvelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// WSEvent is the server-side counterpart used when the payload is still a Go
// value rather than raw JSON.
type WSEvent struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// Socket event types.
const (
	WSTypePresence = "presence"
	WSTypeMessage  = "message"
	WSTypeTyping   = "typing"
	WSTypeError    = "error"
)

// PresenceSnapshot is the full online-id list, recomputed on every connect and
// disconnect.
type PresenceSnapshot struct {
	Online []string `json:"online"`
}

// ChatMessageEvent is the client->server "message" payload.
type ChatMessageEvent struct {
	RecipientID string `json:"recipient_id"`
	Body        string `json:"body"`
}

// TypingEvent is relayed to the recipient and never persisted.
type TypingEvent struct {
	ChatID   string `json:"chat_id"`
	SenderID string `json:"sender_id"`
	Typing   bool   `json:"typing"`
}

type WSError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// API error envelope.
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}
