package ai

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"assessment-activation/internal/domain/ports/adapter"
	"assessment-activation/internal/infra/metrics"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.ChatCompletionAdapter = (*OpenAIAdapter)(nil)

// OpenAIAdapter implements adapter.ChatCompletionAdapter via the Chat
// Completions API. A custom base URL points it at any OpenAI-compatible
// gateway.
type OpenAIAdapter struct {
	client openai.Client
	model  string
}

func NewOpenAIAdapter(apiKey, model, baseURL string) (*OpenAIAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("ai api key empty")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(baseURL, "/")))
	}
	return &OpenAIAdapter{
		client: openai.NewClient(opts...),
		model:  model,
	}, nil
}

func (o *OpenAIAdapter) Chat(ctx context.Context, messages []adapter.Message) (string, int, error) {
	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(o.model),
		Temperature: openai.Float(0.7),
		MaxTokens:   openai.Int(2000),
	}
	for _, m := range messages {
		switch m.Role {
		case "system":
			params.Messages = append(params.Messages, openai.SystemMessage(m.Content))
		case "assistant":
			params.Messages = append(params.Messages, openai.AssistantMessage(m.Content))
		default:
			params.Messages = append(params.Messages, openai.UserMessage(m.Content))
		}
	}

	start := time.Now()
	resp, err := o.client.Chat.Completions.New(ctx, params)
	latency := float64(time.Since(start).Milliseconds())
	if err != nil {
		metrics.ObserveAICall(o.model, 0, latency, false)
		return "", 0, err
	}

	tokens := int(resp.Usage.TotalTokens)
	for _, c := range resp.Choices {
		if c.Message.Content != "" {
			metrics.ObserveAICall(o.model, tokens, latency, true)
			return c.Message.Content, tokens, nil
		}
	}
	metrics.ObserveAICall(o.model, tokens, latency, false)
	return "", tokens, errors.New("no choice content")
}
