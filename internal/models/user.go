package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID          uuid.UUID  `json:"id"`
	Username    string     `json:"username"`
	PhoneNumber string     `json:"phone_number"`
	AvatarURL   *string    `json:"avatar_url"`
	CreatedAt   time.Time  `json:"created_at"`
	LastSeenAt  *time.Time `json:"last_seen_at"`
}

type RegisterRequest struct {
	Username    string `json:"username"`
	PhoneNumber string `json:"phone_number"`
	AvatarURL   string `json:"avatar_url"`
}

// LoginRequest carries the phone number used for the lookup. There is no
// password: login is an unauthenticated directory lookup.
type LoginRequest struct {
	PhoneNumber string `json:"phone_number"`
}

// UserPresence is a user record decorated with the live online flag from the
// presence directory.
type UserPresence struct {
	ID        string  `json:"id"`
	Username  string  `json:"username"`
	AvatarURL *string `json:"avatar_url"`
	Online    bool    `json:"online"`
}
