package services

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"chatwave-backend/internal/chat"
	"chatwave-backend/internal/models"
)

type userStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByPhone(ctx context.Context, phone string) (*models.User, error)
	TouchLastSeen(ctx context.Context, userID uuid.UUID) error
}

// AccountService handles registration and the unauthenticated phone-number
// login lookup. There are no passwords or tokens anywhere in this flow.
type AccountService struct {
	userRepo userStore
}

func NewAccountService(userRepo userStore) *AccountService {
	return &AccountService{userRepo: userRepo}
}

// Loose E.164: optional +, 7 to 15 digits.
var phoneRegex = regexp.MustCompile(`^\+?[0-9]{7,15}$`)

func (s *AccountService) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.PhoneNumber = strings.TrimSpace(req.PhoneNumber)

	// Validate all fields at once
	fieldErrors := make(map[string]string)

	if len(req.Username) < 2 || len(req.Username) > 64 {
		fieldErrors["username"] = "Username must be between 2 and 64 characters"
	}
	if chat.IsAssistant(req.Username) {
		fieldErrors["username"] = "This username is reserved"
	}
	if !phoneRegex.MatchString(req.PhoneNumber) {
		fieldErrors["phone_number"] = "Invalid phone number"
	}

	if len(fieldErrors) > 0 {
		return nil, &ValidationError{Fields: fieldErrors}
	}

	// Check uniqueness
	_, err := s.userRepo.GetByPhone(ctx, req.PhoneNumber)
	if err == nil {
		return nil, &ConflictError{Message: "Phone number already registered"}
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	user := &models.User{
		Username:    req.Username,
		PhoneNumber: req.PhoneNumber,
	}
	if req.AvatarURL != "" {
		user.AvatarURL = &req.AvatarURL
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		// Catch the race where two registrations hit the unique index at once
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, &ConflictError{Message: "Phone number already registered"}
		}
		return nil, err
	}

	return user, nil
}

func (s *AccountService) Login(ctx context.Context, req models.LoginRequest) (*models.User, error) {
	phone := strings.TrimSpace(req.PhoneNumber)
	if !phoneRegex.MatchString(phone) {
		return nil, &ValidationError{Fields: map[string]string{"phone_number": "Invalid phone number"}}
	}

	user, err := s.userRepo.GetByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Message: "No account with this phone number"}
		}
		return nil, err
	}

	// Best effort; a failed touch must not block login
	s.userRepo.TouchLastSeen(ctx, user.ID)

	return user, nil
}
