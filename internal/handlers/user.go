package handlers

import (
	"context"
	"net/http"

	"chatwave-backend/internal/chat"
	"chatwave-backend/internal/models"
)

type userLister interface {
	List(ctx context.Context) ([]models.User, error)
}

type presenceDirectory interface {
	IsOnline(userID string) bool
}

type UserHandler struct {
	userRepo userLister
	presence presenceDirectory
}

func NewUserHandler(userRepo userLister, presence presenceDirectory) *UserHandler {
	return &UserHandler{userRepo: userRepo, presence: presence}
}

// List returns every registered user decorated with their online flag, plus
// the synthetic assistant entry. `exclude` drops the requesting user from the
// peer list.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	exclude := r.URL.Query().Get("exclude")

	users, err := h.userRepo.List(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to list users", r))
		return
	}

	result := make([]models.UserPresence, 0, len(users)+1)
	result = append(result, models.UserPresence{
		ID:       chat.AssistantID,
		Username: "AI Assistant",
		Online:   true,
	})

	for _, u := range users {
		id := u.ID.String()
		if id == exclude {
			continue
		}
		result = append(result, models.UserPresence{
			ID:        id,
			Username:  u.Username,
			AvatarURL: u.AvatarURL,
			Online:    h.presence.IsOnline(id),
		})
	}

	writeJSON(w, http.StatusOK, result)
}
