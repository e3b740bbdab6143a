package adapter

import "context"

// Message is a single chat-completion message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompletionAdapter is the port to an OpenAI-compatible chat-completion
// provider. Implementations are stateless; tokens is the provider-reported
// total token count for the call (zero when unknown).
type ChatCompletionAdapter interface {
	Chat(ctx context.Context, messages []Message) (content string, tokens int, err error)
}
