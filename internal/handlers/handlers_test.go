package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"chatwave-backend/internal/chat"
	"chatwave-backend/internal/models"
	"chatwave-backend/internal/services"
)

// ─── Fakes ───

type fakeUserStore struct {
	byPhone map[string]*models.User
	users   []models.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{byPhone: make(map[string]*models.User)}
}

func (f *fakeUserStore) Create(ctx context.Context, user *models.User) error {
	user.ID = uuid.New()
	f.byPhone[user.PhoneNumber] = user
	f.users = append(f.users, *user)
	return nil
}

func (f *fakeUserStore) GetByPhone(ctx context.Context, phone string) (*models.User, error) {
	if u, ok := f.byPhone[phone]; ok {
		return u, nil
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeUserStore) TouchLastSeen(ctx context.Context, userID uuid.UUID) error { return nil }

func (f *fakeUserStore) List(ctx context.Context) ([]models.User, error) { return f.users, nil }

type fakePresence struct {
	online map[string]bool
}

func (f *fakePresence) IsOnline(userID string) bool { return f.online[userID] }

type fakeMessages struct {
	history  []models.Message
	inserted []*models.Message
	lastChat string
	lastLim  int
}

func (f *fakeMessages) History(ctx context.Context, chatID string, limit int) ([]models.Message, error) {
	f.lastChat = chatID
	f.lastLim = limit
	return f.history, nil
}

func (f *fakeMessages) Insert(ctx context.Context, msg *models.Message) error {
	msg.ID = uuid.New()
	f.inserted = append(f.inserted, msg)
	return nil
}

type fakeReplier struct {
	reply string
	err   error
}

func (f *fakeReplier) Reply(ctx context.Context, chatID string) (string, error) {
	return f.reply, f.err
}

// ─── Account Handler Tests ───

func TestRegister_Created(t *testing.T) {
	h := NewAccountHandler(services.NewAccountService(newFakeUserStore()))

	body, _ := json.Marshal(models.RegisterRequest{Username: "alice", PhoneNumber: "+15550001111"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewReader(body))
	rr := httptest.NewRecorder()

	h.Register(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	var user models.User
	if err := json.NewDecoder(rr.Body).Decode(&user); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if user.Username != "alice" || user.ID == uuid.Nil {
		t.Errorf("Unexpected user in response: %+v", user)
	}
}

func TestRegister_ValidationErrors(t *testing.T) {
	h := NewAccountHandler(services.NewAccountService(newFakeUserStore()))

	tests := []struct {
		name string
		body string
	}{
		{"not json", "{nope"},
		{"missing phone", `{"username":"alice"}`},
		{"reserved username", `{"username":"ai_assistant","phone_number":"+15550001111"}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewReader([]byte(tc.body)))
			rr := httptest.NewRecorder()

			h.Register(rr, req)

			if rr.Code != http.StatusBadRequest {
				t.Errorf("Expected 400, got %d", rr.Code)
			}
		})
	}
}

func TestLogin_RoundTrip(t *testing.T) {
	store := newFakeUserStore()
	svc := services.NewAccountService(store)
	h := NewAccountHandler(svc)

	if _, err := svc.Register(context.Background(), models.RegisterRequest{Username: "alice", PhoneNumber: "+15550001111"}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	body := []byte(`{"phone_number":"+15550001111"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body))
	rr := httptest.NewRecorder()

	h.Login(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestLogin_UnknownPhone(t *testing.T) {
	h := NewAccountHandler(services.NewAccountService(newFakeUserStore()))

	body := []byte(`{"phone_number":"+15559998888"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body))
	rr := httptest.NewRecorder()

	h.Login(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rr.Code)
	}

	var resp models.ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode error response: %v", err)
	}
	if resp.Error.Code != "NOT_FOUND" {
		t.Errorf("Expected NOT_FOUND code, got %q", resp.Error.Code)
	}
}

// ─── User Handler Tests ───

func TestUserList_IncludesAssistantAndPresence(t *testing.T) {
	store := newFakeUserStore()
	alice := &models.User{Username: "alice", PhoneNumber: "+15550001111"}
	bob := &models.User{Username: "bob", PhoneNumber: "+15550002222"}
	store.Create(context.Background(), alice)
	store.Create(context.Background(), bob)

	presence := &fakePresence{online: map[string]bool{alice.ID.String(): true}}
	h := NewUserHandler(store, presence)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users", nil)
	rr := httptest.NewRecorder()
	h.List(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}

	var result []models.UserPresence
	if err := json.NewDecoder(rr.Body).Decode(&result); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if len(result) != 3 {
		t.Fatalf("Expected assistant + 2 users, got %d entries", len(result))
	}
	if result[0].ID != chat.AssistantID || !result[0].Online {
		t.Errorf("Expected the assistant first and online, got %+v", result[0])
	}

	byID := map[string]models.UserPresence{}
	for _, p := range result {
		byID[p.ID] = p
	}
	if !byID[alice.ID.String()].Online {
		t.Error("Expected alice to be online")
	}
	if byID[bob.ID.String()].Online {
		t.Error("Expected bob to be offline")
	}
}

func TestUserList_ExcludesRequester(t *testing.T) {
	store := newFakeUserStore()
	alice := &models.User{Username: "alice", PhoneNumber: "+15550001111"}
	store.Create(context.Background(), alice)

	h := NewUserHandler(store, &fakePresence{online: map[string]bool{}})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users?exclude="+alice.ID.String(), nil)
	rr := httptest.NewRecorder()
	h.List(rr, req)

	var result []models.UserPresence
	json.NewDecoder(rr.Body).Decode(&result)

	for _, p := range result {
		if p.ID == alice.ID.String() {
			t.Error("Expected the requesting user to be excluded")
		}
	}
}

// ─── Message Handler Tests ───

func newHistoryRequest(t *testing.T, target string) (*http.Request, *httptest.ResponseRecorder, *chi.Mux) {
	t.Helper()
	r := chi.NewRouter()
	return httptest.NewRequest(http.MethodGet, target, nil), httptest.NewRecorder(), r
}

func TestHistory_DerivesChatID(t *testing.T) {
	messages := &fakeMessages{history: []models.Message{{Body: "hi"}}}
	h := NewMessageHandler(messages)

	req, rr, r := newHistoryRequest(t, "/api/v1/messages/bob?user_id=alice")
	r.Get("/api/v1/messages/{peerID}", h.History)
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if messages.lastChat != "alice_bob" {
		t.Errorf("Expected chat id alice_bob, got %q", messages.lastChat)
	}
	if messages.lastLim != defaultHistoryLimit {
		t.Errorf("Expected default limit %d, got %d", defaultHistoryLimit, messages.lastLim)
	}

	var resp models.HistoryResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.ChatID != "alice_bob" || len(resp.Messages) != 1 {
		t.Errorf("Unexpected history response: %+v", resp)
	}
}

func TestHistory_LimitValidation(t *testing.T) {
	tests := []struct {
		name     string
		target   string
		status   int
		expected int
	}{
		{"custom limit", "/api/v1/messages/bob?user_id=alice&limit=50", http.StatusOK, 50},
		{"clamped limit", "/api/v1/messages/bob?user_id=alice&limit=9999", http.StatusOK, maxHistoryLimit},
		{"zero limit", "/api/v1/messages/bob?user_id=alice&limit=0", http.StatusBadRequest, 0},
		{"garbage limit", "/api/v1/messages/bob?user_id=alice&limit=abc", http.StatusBadRequest, 0},
		{"missing user", "/api/v1/messages/bob", http.StatusBadRequest, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			messages := &fakeMessages{}
			h := NewMessageHandler(messages)

			req, rr, r := newHistoryRequest(t, tc.target)
			r.Get("/api/v1/messages/{peerID}", h.History)
			r.ServeHTTP(rr, req)

			if rr.Code != tc.status {
				t.Fatalf("Expected %d, got %d", tc.status, rr.Code)
			}
			if tc.status == http.StatusOK && messages.lastLim != tc.expected {
				t.Errorf("Expected limit %d, got %d", tc.expected, messages.lastLim)
			}
		})
	}
}

// ─── Assistant Handler Tests ───

func TestAsk_PersistsBothTurns(t *testing.T) {
	messages := &fakeMessages{}
	h := NewAssistantHandler(&fakeReplier{reply: "hello back"}, messages)

	body := []byte(`{"user_id":"alice","message":"hello"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/assistant/ask", bytes.NewReader(body))
	rr := httptest.NewRecorder()

	h.Ask(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp models.AskResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Reply != "hello back" {
		t.Errorf("Expected reply 'hello back', got %q", resp.Reply)
	}

	if len(messages.inserted) != 2 {
		t.Fatalf("Expected question and answer persisted, got %d messages", len(messages.inserted))
	}
	question, answer := messages.inserted[0], messages.inserted[1]
	if question.SenderID != "alice" || question.RecipientID != chat.AssistantID {
		t.Errorf("Unexpected question: %+v", question)
	}
	if answer.SenderID != chat.AssistantID || answer.RecipientID != "alice" {
		t.Errorf("Unexpected answer: %+v", answer)
	}
	if question.ChatID != answer.ChatID {
		t.Errorf("Question and answer landed in different chats: %q vs %q", question.ChatID, answer.ChatID)
	}
}

func TestAsk_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing user", `{"message":"hello"}`},
		{"blank message", `{"user_id":"alice","message":"   "}`},
		{"assistant asking itself", `{"user_id":"ai_assistant","message":"hello"}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := NewAssistantHandler(&fakeReplier{}, &fakeMessages{})
			req := httptest.NewRequest(http.MethodPost, "/api/v1/assistant/ask", bytes.NewReader([]byte(tc.body)))
			rr := httptest.NewRecorder()

			h.Ask(rr, req)

			if rr.Code != http.StatusBadRequest {
				t.Errorf("Expected 400, got %d", rr.Code)
			}
		})
	}
}

func TestAsk_BusyAssistant(t *testing.T) {
	h := NewAssistantHandler(&fakeReplier{err: &services.RateLimitError{Message: "busy"}}, &fakeMessages{})

	body := []byte(`{"user_id":"alice","message":"hello"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/assistant/ask", bytes.NewReader(body))
	rr := httptest.NewRecorder()

	h.Ask(rr, req)

	if rr.Code != http.StatusTooManyRequests {
		t.Errorf("Expected 429, got %d", rr.Code)
	}
}

func TestAsk_ProviderError(t *testing.T) {
	h := NewAssistantHandler(&fakeReplier{err: errors.New("provider exploded")}, &fakeMessages{})

	body := []byte(`{"user_id":"alice","message":"hello"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/assistant/ask", bytes.NewReader(body))
	rr := httptest.NewRecorder()

	h.Ask(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500, got %d", rr.Code)
	}
}
