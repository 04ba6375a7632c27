package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"chatwave-backend/internal/chat"
	"chatwave-backend/internal/models"
)

const (
	defaultHistoryLimit = 200
	maxHistoryLimit     = 500
)

type messageHistory interface {
	History(ctx context.Context, chatID string, limit int) ([]models.Message, error)
}

type MessageHandler struct {
	messageRepo messageHistory
}

func NewMessageHandler(messageRepo messageHistory) *MessageHandler {
	return &MessageHandler{messageRepo: messageRepo}
}

// History returns the conversation between the requesting user and a peer,
// oldest first, under their shared chat id.
func (h *MessageHandler) History(w http.ResponseWriter, r *http.Request) {
	peerID := chi.URLParam(r, "peerID")
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "user_id is required", r))
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "limit must be a positive integer", r))
			return
		}
		if n > maxHistoryLimit {
			n = maxHistoryLimit
		}
		limit = n
	}

	chatID := chat.ChatID(userID, peerID)
	messages, err := h.messageRepo.History(r.Context(), chatID, limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load history", r))
		return
	}

	writeJSON(w, http.StatusOK, models.HistoryResponse{
		ChatID:   chatID,
		Messages: messages,
	})
}
