package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"chatwave-backend/internal/chat"
	"chatwave-backend/internal/llm"
	"chatwave-backend/internal/models"
)

// QueueAssistantReplies is the redis list the worker pool BLPOPs for queued
// assistant reply jobs.
const QueueAssistantReplies = "queue:assistant-replies"

type historyStore interface {
	History(ctx context.Context, chatID string, limit int) ([]models.Message, error)
}

// AssistantService turns a user<->assistant chat into an LLM call. Concurrent
// calls are bounded by a token bucket so a burst of chats cannot exhaust the
// provider's quota.
type AssistantService struct {
	client       llm.Client
	messageRepo  historyStore
	redis        *redis.Client
	historyTurns int
	rateChan     chan struct{} // Token bucket
}

func NewAssistantService(client llm.Client, messageRepo historyStore, redisClient *redis.Client, concurrentReqs, historyTurns int) *AssistantService {
	if concurrentReqs < 1 {
		concurrentReqs = 1
	}
	rateChan := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		rateChan <- struct{}{}
	}

	return &AssistantService{
		client:       client,
		messageRepo:  messageRepo,
		redis:        redisClient,
		historyTurns: historyTurns,
		rateChan:     rateChan,
	}
}

// acquireRate blocks until a rate slot is available
func (s *AssistantService) acquireRate(ctx context.Context) error {
	select {
	case <-s.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(2 * time.Minute):
		return &RateLimitError{Message: "Assistant is busy, try again shortly"}
	}
}

func (s *AssistantService) releaseRate() {
	s.rateChan <- struct{}{}
}

// Reply loads recent turns of the chat and asks the model for the next one.
// The prompt message is expected to already be persisted, so it arrives as
// the last user turn of the history.
func (s *AssistantService) Reply(ctx context.Context, chatID string) (string, error) {
	if err := s.acquireRate(ctx); err != nil {
		return "", err
	}
	defer s.releaseRate()

	history, err := s.messageRepo.History(ctx, chatID, s.historyTurns)
	if err != nil {
		return "", fmt.Errorf("failed to load chat history: %w", err)
	}
	if len(history) == 0 {
		return "", fmt.Errorf("chat %s has no messages to reply to", chatID)
	}

	resp, err := s.client.Generate(ctx, buildTurns(history))
	if err != nil {
		return "", err
	}
	if resp.Content == "" {
		return "I could not come up with a reply to that. Try rephrasing your message.", nil
	}

	return resp.Content, nil
}

// buildTurns maps persisted messages to LLM turns: the assistant's own
// messages become assistant turns, everything else is a user turn.
func buildTurns(history []models.Message) []llm.Message {
	turns := make([]llm.Message, 0, len(history))
	for _, m := range history {
		role := llm.RoleUser
		if chat.IsAssistant(m.SenderID) {
			role = llm.RoleAssistant
		}
		turns = append(turns, llm.Message{Role: role, Content: m.Body})
	}
	return turns
}

// PublishEvent sends a socket event to a user's channel via Redis pub/sub.
func (s *AssistantService) PublishEvent(ctx context.Context, userID string, event models.WSEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	s.redis.Publish(ctx, UserEventsChannel(userID), string(data))
}

// UserEventsChannel names the pub/sub channel carrying a user's socket events.
func UserEventsChannel(userID string) string {
	return "user_events:" + userID
}
