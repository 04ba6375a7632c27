package llm

import "context"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string
	Content string
}

type Response struct {
	Content          string
	Model            string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Client is the provider-agnostic surface the rest of the backend talks to.
type Client interface {
	Generate(ctx context.Context, messages []Message) (Response, error)
	Close() error
}
