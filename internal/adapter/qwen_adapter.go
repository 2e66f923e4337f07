package adapter

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"github.com/hpn/ifixai-chat/internal/domain"
)

const (
	// DefaultQwenBaseURL is the DashScope OpenAI-compatible endpoint.
	DefaultQwenBaseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1"

	// DefaultQwenModel is used when neither the request nor the config names a model.
	DefaultQwenModel = "qwen-code"

	qwenTemperature = 0.7
	qwenMaxTokens   = 4096
)

// QwenAdapter implements AIProvider for Qwen through an OpenAI-compatible
// chat completions endpoint. Roles pass through unchanged; images are not
// forwarded.
type QwenAdapter struct {
	options
}

// NewQwenAdapter creates a new QwenAdapter.
func NewQwenAdapter(opts ...Option) *QwenAdapter {
	return &QwenAdapter{options: newOptions(DefaultQwenBaseURL, DefaultQwenModel, opts)}
}

// Agent returns the agent this provider serves.
func (q *QwenAdapter) Agent() domain.AgentType {
	return domain.AgentQwen
}

// Chat performs a chat completion request.
func (q *QwenAdapter) Chat(ctx context.Context, req Request) (string, error) {
	if err := q.checkAttachment(domain.AgentQwen, req); err != nil {
		return "", err
	}

	cfg := openai.DefaultConfig(req.Credential)
	cfg.BaseURL = q.baseURL
	cfg.HTTPClient = q.httpClient
	client := openai.NewClientWithConfig(cfg)

	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, msg := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       q.model(req.Model),
		Messages:    messages,
		Temperature: qwenTemperature,
		MaxTokens:   qwenMaxTokens,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && apiErr.Message != "" {
			return "", errors.New(apiErr.Message)
		}
		return "", fmt.Errorf("failed to execute qwen request: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}
