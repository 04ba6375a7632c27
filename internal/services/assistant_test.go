package services

import (
	"context"
	"testing"
	"time"

	"chatwave-backend/internal/chat"
	"chatwave-backend/internal/llm"
	"chatwave-backend/internal/models"
)

type stubHistory struct {
	messages []models.Message
}

func (s *stubHistory) History(ctx context.Context, chatID string, limit int) ([]models.Message, error) {
	return s.messages, nil
}

type stubLLM struct {
	got   []llm.Message
	reply string
}

func (s *stubLLM) Generate(ctx context.Context, messages []llm.Message) (llm.Response, error) {
	s.got = messages
	return llm.Response{Content: s.reply, Model: "stub"}, nil
}

func (s *stubLLM) Close() error { return nil }

func TestBuildTurns_RoleMapping(t *testing.T) {
	history := []models.Message{
		{SenderID: "user-1", Body: "hello"},
		{SenderID: chat.AssistantID, Body: "hi there"},
		{SenderID: "user-1", Body: "what's the weather?"},
	}

	turns := buildTurns(history)

	if len(turns) != 3 {
		t.Fatalf("Expected 3 turns, got %d", len(turns))
	}
	expected := []string{llm.RoleUser, llm.RoleAssistant, llm.RoleUser}
	for i, role := range expected {
		if turns[i].Role != role {
			t.Errorf("Turn %d: expected role %q, got %q", i, role, turns[i].Role)
		}
	}
	if turns[2].Content != "what's the weather?" {
		t.Errorf("Turn content mismatch: %q", turns[2].Content)
	}
}

func TestReply_UsesHistory(t *testing.T) {
	client := &stubLLM{reply: "42"}
	store := &stubHistory{messages: []models.Message{
		{SenderID: "user-1", Body: "what is the answer?"},
	}}
	svc := NewAssistantService(client, store, nil, 2, 20)

	reply, err := svc.Reply(context.Background(), "ai_assistant_user-1")
	if err != nil {
		t.Fatalf("Reply failed: %v", err)
	}
	if reply != "42" {
		t.Errorf("Expected reply '42', got %q", reply)
	}
	if len(client.got) != 1 || client.got[0].Role != llm.RoleUser {
		t.Errorf("Expected a single user turn, got %+v", client.got)
	}
}

func TestReply_EmptyChat(t *testing.T) {
	svc := NewAssistantService(&stubLLM{}, &stubHistory{}, nil, 1, 20)

	if _, err := svc.Reply(context.Background(), "empty_chat"); err == nil {
		t.Error("Expected error for an empty chat")
	}
}

func TestAcquireRate_RespectsContext(t *testing.T) {
	svc := NewAssistantService(&stubLLM{}, &stubHistory{}, nil, 1, 20)

	// Drain the only slot
	if err := svc.acquireRate(context.Background()); err != nil {
		t.Fatalf("First acquire failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := svc.acquireRate(ctx); err == nil {
		t.Error("Expected acquire to fail once the bucket is empty and the context expires")
	}
}
