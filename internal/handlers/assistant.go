package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"chatwave-backend/internal/chat"
	"chatwave-backend/internal/models"
)

type replier interface {
	Reply(ctx context.Context, chatID string) (string, error)
}

type messageWriter interface {
	Insert(ctx context.Context, msg *models.Message) error
}

type AssistantHandler struct {
	assistant   replier
	messageRepo messageWriter
}

func NewAssistantHandler(assistant replier, messageRepo messageWriter) *AssistantHandler {
	return &AssistantHandler{assistant: assistant, messageRepo: messageRepo}
}

// Ask is the synchronous ask-AI endpoint: it persists the question and the
// reply under the user<->assistant chat id and returns the reply inline. The
// socket path goes through the job queue instead.
func (h *AssistantHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req models.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if req.UserID == "" || chat.IsAssistant(req.UserID) {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "A valid user_id is required", r))
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Message is required", r))
		return
	}

	chatID := chat.ChatID(req.UserID, chat.AssistantID)

	question := &models.Message{
		ChatID:      chatID,
		SenderID:    req.UserID,
		RecipientID: chat.AssistantID,
		Body:        req.Message,
	}
	if err := h.messageRepo.Insert(r.Context(), question); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to save message", r))
		return
	}

	reply, err := h.assistant.Reply(r.Context(), chatID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	answer := &models.Message{
		ChatID:      chatID,
		SenderID:    chat.AssistantID,
		RecipientID: req.UserID,
		Body:        reply,
	}
	if err := h.messageRepo.Insert(r.Context(), answer); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to save reply", r))
		return
	}

	writeJSON(w, http.StatusOK, models.AskResponse{Reply: reply})
}
