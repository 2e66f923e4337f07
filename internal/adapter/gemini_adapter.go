package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/hpn/ifixai-chat/internal/domain"
)

const (
	// DefaultGeminiBaseURL is the default Gemini API endpoint.
	DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	// DefaultGeminiModel is used when neither the request nor the config names a model.
	DefaultGeminiModel = "gemini-2.0-flash-exp"

	geminiImageMIME = "image/jpeg"
)

var dataURIPrefix = regexp.MustCompile(`^data:image/\w+;base64,`)

// GeminiAdapter implements AIProvider for Google Gemini API.
// The conversation minus its last turn is sent as history; the last turn is
// always sent as the user and carries the inline image when present.
type GeminiAdapter struct {
	options
}

// NewGeminiAdapter creates a new GeminiAdapter.
func NewGeminiAdapter(opts ...Option) *GeminiAdapter {
	return &GeminiAdapter{options: newOptions(DefaultGeminiBaseURL, DefaultGeminiModel, opts)}
}

// Agent returns the agent this provider serves.
func (g *GeminiAdapter) Agent() domain.AgentType {
	return domain.AgentGemini
}

// Chat performs a generateContent request.
func (g *GeminiAdapter) Chat(ctx context.Context, req Request) (string, error) {
	geminiReq := mapToGeminiRequest(req.Messages)

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		g.baseURL, url.PathEscape(g.model(req.Model)), url.QueryEscape(req.Credential))

	body, err := json.Marshal(geminiReq)
	if err != nil {
		return "", fmt.Errorf("failed to marshal gemini request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create http request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to execute gemini request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read gemini response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var geminiErr GeminiErrorResponse
		if err := json.Unmarshal(respBody, &geminiErr); err == nil && geminiErr.Error.Message != "" {
			return "", fmt.Errorf("gemini API error [%d]: %s", resp.StatusCode, geminiErr.Error.Message)
		}
		return "", fmt.Errorf("gemini API error [%d]: %s", resp.StatusCode, string(respBody))
	}

	var geminiResp GeminiResponse
	if err := json.Unmarshal(respBody, &geminiResp); err != nil {
		return "", fmt.Errorf("failed to unmarshal gemini response: %w", err)
	}

	return geminiResp.text()
}

// mapToGeminiRequest builds the history and the final user turn. An image
// turn is sent on its own, without history.
func mapToGeminiRequest(messages []domain.ChatMessage) GeminiRequest {
	last := messages[len(messages)-1]
	if last.HasImage() {
		return GeminiRequest{Contents: []GeminiContent{{
			Role: "user",
			Parts: []GeminiPart{
				{Text: last.Content},
				{InlineData: &GeminiBlob{
					MimeType: geminiImageMIME,
					Data:     dataURIPrefix.ReplaceAllString(last.ImageURL, ""),
				}},
			},
		}}}
	}

	contents := make([]GeminiContent, 0, len(messages))
	for _, msg := range messages[:len(messages)-1] {
		role := "model"
		if msg.Role == domain.RoleUser {
			role = "user"
		}
		contents = append(contents, GeminiContent{
			Role:  role,
			Parts: []GeminiPart{{Text: msg.Content}},
		})
	}
	contents = append(contents, GeminiContent{Role: "user", Parts: []GeminiPart{{Text: last.Content}}})

	return GeminiRequest{Contents: contents}
}

// text joins the text parts of the first candidate.
func (r GeminiResponse) text() (string, error) {
	if len(r.Candidates) == 0 {
		if r.PromptFeedback != nil && r.PromptFeedback.BlockReason != "" {
			return "", fmt.Errorf("gemini response was blocked: %s", r.PromptFeedback.BlockReason)
		}
		return "", nil
	}

	var sb strings.Builder
	for _, part := range r.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String(), nil
}

// ============================================================================
// Gemini API Types
// ============================================================================

// GeminiRequest represents a Gemini generateContent request.
type GeminiRequest struct {
	Contents []GeminiContent `json:"contents"`
}

// GeminiContent represents a content block in Gemini format.
type GeminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []GeminiPart `json:"parts"`
}

// GeminiPart represents a part of a content block.
type GeminiPart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *GeminiBlob `json:"inlineData,omitempty"`
}

// GeminiBlob is inline base64 media.
type GeminiBlob struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

// GeminiResponse represents a Gemini generateContent response.
type GeminiResponse struct {
	Candidates     []GeminiCandidate     `json:"candidates"`
	PromptFeedback *GeminiPromptFeedback `json:"promptFeedback,omitempty"`
}

// GeminiCandidate represents a single generated candidate.
type GeminiCandidate struct {
	Content      GeminiContent `json:"content"`
	FinishReason string        `json:"finishReason"`
	Index        int           `json:"index"`
}

// GeminiPromptFeedback is set when the prompt itself was rejected.
type GeminiPromptFeedback struct {
	BlockReason string `json:"blockReason"`
}

// GeminiErrorResponse represents an error response from Gemini API.
type GeminiErrorResponse struct {
	Error GeminiErrorDetail `json:"error"`
}

// GeminiErrorDetail contains error details.
type GeminiErrorDetail struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}
