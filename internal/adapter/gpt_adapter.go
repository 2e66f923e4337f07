package adapter

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/hpn/ifixai-chat/internal/domain"
)

const (
	// DefaultGPTBaseURL is the default OpenAI API endpoint.
	DefaultGPTBaseURL = "https://api.openai.com/v1"

	// DefaultGPTModel is used when neither the request nor the config names a model.
	DefaultGPTModel = "gpt-4o"

	gptMaxTokens = 4096
)

// GPTAdapter implements AIProvider for the OpenAI chat completions API.
// Turns are sent as plain text except an image-bearing last turn, which
// becomes user content parts.
type GPTAdapter struct {
	options
}

// NewGPTAdapter creates a new GPTAdapter.
func NewGPTAdapter(opts ...Option) *GPTAdapter {
	return &GPTAdapter{options: newOptions(DefaultGPTBaseURL, DefaultGPTModel, opts)}
}

// Agent returns the agent this provider serves.
func (g *GPTAdapter) Agent() domain.AgentType {
	return domain.AgentGPT
}

// Chat performs a chat completion request.
func (g *GPTAdapter) Chat(ctx context.Context, req Request) (string, error) {
	client := openai.NewClient(
		option.WithAPIKey(req.Credential),
		option.WithBaseURL(g.baseURL),
		option.WithHTTPClient(g.httpClient),
		option.WithMaxRetries(0),
	)

	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:     g.model(req.Model),
		Messages:  mapToGPTMessages(req.Messages),
		MaxTokens: openai.Int(gptMaxTokens),
	})
	if err != nil {
		return "", fmt.Errorf("gpt API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

func mapToGPTMessages(messages []domain.ChatMessage) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case domain.RoleUser:
			out = append(out, openai.UserMessage(msg.Content))
		case domain.RoleAssistant:
			out = append(out, openai.AssistantMessage(msg.Content))
		default:
			out = append(out, openai.SystemMessage(msg.Content))
		}
	}

	// The image turn is always sent as user content parts.
	if last := messages[len(messages)-1]; last.HasImage() {
		out[len(out)-1] = openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
			openai.TextContentPart(last.Content),
			openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: last.ImageURL}),
		})
	}

	return out
}
