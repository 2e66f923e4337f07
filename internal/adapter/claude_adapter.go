package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/hpn/ifixai-chat/internal/domain"
)

const (
	// DefaultClaudeBaseURL is the default Anthropic API endpoint.
	DefaultClaudeBaseURL = "https://api.anthropic.com"

	// DefaultClaudeModel is used when neither the request nor the config names a model.
	DefaultClaudeModel = "claude-3-5-sonnet-20241022"

	claudeAPIVersion = "2023-06-01"
	claudeMaxTokens  = 4096
)

// ClaudeAdapter implements AIProvider for the Anthropic Messages API.
// The first system message moves to the top-level system field; images are
// not forwarded.
type ClaudeAdapter struct {
	options
}

// NewClaudeAdapter creates a new ClaudeAdapter.
func NewClaudeAdapter(opts ...Option) *ClaudeAdapter {
	return &ClaudeAdapter{options: newOptions(DefaultClaudeBaseURL, DefaultClaudeModel, opts)}
}

// Agent returns the agent this provider serves.
func (c *ClaudeAdapter) Agent() domain.AgentType {
	return domain.AgentClaude
}

// Chat performs a Messages API request.
func (c *ClaudeAdapter) Chat(ctx context.Context, req Request) (string, error) {
	if err := c.checkAttachment(domain.AgentClaude, req); err != nil {
		return "", err
	}

	body, err := json.Marshal(mapToClaudeRequest(c.model(req.Model), req.Messages))
	if err != nil {
		return "", fmt.Errorf("failed to marshal claude request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create http request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", req.Credential)
	httpReq.Header.Set("anthropic-version", claudeAPIVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to execute claude request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read claude response: %w", err)
	}

	var claudeResp ClaudeResponse
	decodeErr := json.Unmarshal(respBody, &claudeResp)

	if resp.StatusCode != http.StatusOK {
		if decodeErr == nil && claudeResp.Error != nil && claudeResp.Error.Message != "" {
			return "", fmt.Errorf("claude API error [%d]: %s", resp.StatusCode, claudeResp.Error.Message)
		}
		return "", fmt.Errorf("claude API error [%d]: %s", resp.StatusCode, string(respBody))
	}
	if decodeErr != nil {
		return "", fmt.Errorf("failed to unmarshal claude response: %w", decodeErr)
	}

	if len(claudeResp.Content) == 0 || claudeResp.Content[0].Type != "text" {
		return "", ErrUnexpectedFormat
	}
	return claudeResp.Content[0].Text, nil
}

func mapToClaudeRequest(model string, messages []domain.ChatMessage) ClaudeRequest {
	req := ClaudeRequest{
		Model:     model,
		MaxTokens: claudeMaxTokens,
		Messages:  make([]ClaudeMessage, 0, len(messages)),
	}

	systemSeen := false
	for _, msg := range messages {
		if msg.Role == domain.RoleSystem {
			if !systemSeen {
				req.System = msg.Content
				systemSeen = true
			}
			continue
		}
		role := "assistant"
		if msg.Role == domain.RoleUser {
			role = "user"
		}
		req.Messages = append(req.Messages, ClaudeMessage{Role: role, Content: msg.Content})
	}

	return req
}

// ClaudeRequest is the Messages API request body.
type ClaudeRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	System    string          `json:"system,omitempty"`
	Messages  []ClaudeMessage `json:"messages"`
}

// ClaudeMessage is a single user or assistant turn.
type ClaudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ClaudeResponse is the Messages API response body.
type ClaudeResponse struct {
	ID         string               `json:"id"`
	Content    []ClaudeContentBlock `json:"content"`
	StopReason string               `json:"stop_reason"`
	Error      *ClaudeErrorDetail   `json:"error,omitempty"`
}

// ClaudeContentBlock is one block of the reply.
type ClaudeContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// ClaudeErrorDetail contains error details.
type ClaudeErrorDetail struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
