package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

type GeminiClient struct {
	client *genai.Client
	model  *genai.GenerativeModel
	name   string
}

func NewGemini(ctx context.Context, apiKey string) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	const modelName = "gemini-2.0-flash"
	model := client.GenerativeModel(modelName)
	model.SetTemperature(0.3)
	model.SetTopP(0.95)

	return &GeminiClient{client: client, model: model, name: modelName}, nil
}

func (c *GeminiClient) Generate(ctx context.Context, messages []Message) (Response, error) {
	if len(messages) == 0 {
		return Response{}, fmt.Errorf("no messages to send")
	}

	// Gemini chats want prior turns as history and the last turn as the
	// prompt. Roles map user->user, assistant->model. The API rejects a
	// history that opens with a model turn, which can happen when retention
	// pruning drops the user message an old reply answered.
	messages = trimLeadingAssistant(messages)
	session := c.model.StartChat()
	for _, m := range messages[:len(messages)-1] {
		role := "user"
		if m.Role == RoleAssistant {
			role = "model"
		}
		session.History = append(session.History, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(m.Content)},
		})
	}

	resp, err := session.SendMessage(ctx, genai.Text(messages[len(messages)-1].Content))
	if err != nil {
		return Response{}, fmt.Errorf("Gemini API error: %w", err)
	}

	out := Response{Model: c.name}
	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				sb.WriteString(string(text))
			}
		}
	}
	out.Content = sb.String()

	if resp.UsageMetadata != nil {
		out.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		out.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		out.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}

	return out, nil
}

func (c *GeminiClient) Close() error {
	return c.client.Close()
}

// trimLeadingAssistant drops assistant turns from the front of the
// conversation so the remaining history starts with a user turn. The final
// message is always kept; it is the prompt.
func trimLeadingAssistant(messages []Message) []Message {
	for len(messages) > 1 && messages[0].Role == RoleAssistant {
		messages = messages[1:]
	}
	return messages
}
