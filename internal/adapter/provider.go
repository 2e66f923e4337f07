// Package adapter provides implementations for external AI provider integrations.
// It uses the Adapter pattern to abstract provider-specific APIs behind a common interface.
package adapter

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/hpn/ifixai-chat/internal/domain"
)

// ErrUnexpectedFormat is returned when a provider reply does not have the expected shape.
// Its text reaches clients unchanged, so it keeps the capitalised wording they match on.
var ErrUnexpectedFormat = errors.New("Unexpected response format")

// Request is a single chat call with the credential and model already resolved.
// An empty Model selects the provider's default.
type Request struct {
	Messages   []domain.ChatMessage
	Model      string
	Credential string
}

// last returns the newest turn. Callers guarantee Messages is non-empty.
func (r Request) last() domain.ChatMessage {
	return r.Messages[len(r.Messages)-1]
}

// AIProvider defines the interface for AI provider adapters.
// All provider implementations must satisfy this interface.
type AIProvider interface {
	// Chat sends the conversation and returns the reply text.
	Chat(ctx context.Context, req Request) (string, error)

	// Agent returns the agent this provider serves.
	Agent() domain.AgentType
}

// options is shared by every adapter constructor.
type options struct {
	baseURL           string
	defaultModel      string
	httpClient        *http.Client
	strictAttachments bool
}

// Option is a functional option for configuring an adapter.
type Option func(*options)

// WithBaseURL sets a custom base URL for the provider API.
func WithBaseURL(url string) Option {
	return func(o *options) {
		if url != "" {
			o.baseURL = strings.TrimSuffix(url, "/")
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		if client != nil {
			o.httpClient = client
		}
	}
}

// WithDefaultModel overrides the model used when a request does not name one.
func WithDefaultModel(model string) Option {
	return func(o *options) {
		if model != "" {
			o.defaultModel = model
		}
	}
}

// WithStrictAttachments makes adapters without image support reject image turns
// instead of dropping the attachment.
func WithStrictAttachments(strict bool) Option {
	return func(o *options) {
		o.strictAttachments = strict
	}
}

func newOptions(baseURL, model string, opts []Option) options {
	o := options{
		baseURL:      baseURL,
		defaultModel: model,
		httpClient:   &http.Client{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) model(requested string) string {
	if requested != "" {
		return requested
	}
	return o.defaultModel
}

// UnsupportedAttachmentError reports an image sent to an agent that cannot take one.
type UnsupportedAttachmentError struct {
	Agent domain.AgentType
}

func (e *UnsupportedAttachmentError) Error() string {
	return e.Agent.DisplayName() + " does not support image attachments"
}

// checkAttachment enforces the strictness flag for text-only adapters.
func (o options) checkAttachment(agent domain.AgentType, req Request) error {
	if o.strictAttachments && req.last().HasImage() {
		return &UnsupportedAttachmentError{Agent: agent}
	}
	return nil
}
