package adapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hpn/ifixai-chat/internal/domain"
	"github.com/hpn/ifixai-chat/internal/security"
)

// CredentialSource looks up the stored credential for an agent when the caller
// did not supply one. It returns domain.ErrNotFound when none is active.
type CredentialSource interface {
	ActiveKey(ctx context.Context, agent domain.AgentType) (string, error)
}

// Dispatcher routes chat calls to the registered provider for an agent and
// folds every failure into domain.ChatResponse.Error.
type Dispatcher struct {
	providers   map[domain.AgentType]AIProvider
	credentials CredentialSource
	logger      *slog.Logger
}

// DispatcherOption is a functional option for configuring Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithCredentialSource sets the fallback credential lookup.
func WithCredentialSource(src CredentialSource) DispatcherOption {
	return func(d *Dispatcher) {
		d.credentials = src
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDispatcher registers each provider under the agent it serves.
// A later provider for the same agent replaces an earlier one.
func NewDispatcher(providers []AIProvider, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		providers: make(map[domain.AgentType]AIProvider, len(providers)),
		logger:    slog.Default(),
	}
	for _, p := range providers {
		d.providers[p.Agent()] = p
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Supports reports whether a provider is registered for agent.
func (d *Dispatcher) Supports(agent domain.AgentType) bool {
	_, ok := d.providers[agent]
	return ok
}

// ChatWithAgent sends messages to the provider for agent. An empty credential
// falls back to the credential source; an empty model selects the provider default.
// It never returns an error value or panics; failures are reported in the
// response's Error field with empty Content.
func (d *Dispatcher) ChatWithAgent(
	ctx context.Context,
	agent domain.AgentType,
	messages []domain.ChatMessage,
	credential, model string,
) (resp domain.ChatResponse) {
	provider, ok := d.providers[agent]
	if !ok {
		return domain.ErrorResponse(fmt.Sprintf("Unknown agent type: %s", agent))
	}
	if len(messages) == 0 {
		return domain.ErrorResponse("no messages to send")
	}

	fallback := agent.DisplayName() + " API error"

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("provider panicked",
				slog.String("agent", string(agent)),
				slog.Any("panic", r),
			)
			resp = domain.ErrorResponse(fallback)
		}
	}()

	key, err := d.resolveCredential(ctx, agent, credential)
	if err != nil {
		d.logger.Error("credential lookup failed",
			slog.String("agent", string(agent)),
			slog.String("error", err.Error()),
		)
		return domain.ErrorResponse(errorMessage(err, fallback))
	}
	if key == "" {
		return domain.ErrorResponse(agent.DisplayName() + " API key not configured")
	}

	content, err := provider.Chat(ctx, Request{
		Messages:   messages,
		Model:      model,
		Credential: key,
	})
	if err != nil {
		d.logger.Warn("provider call failed",
			slog.String("agent", string(agent)),
			slog.String("error", err.Error()),
		)
		return domain.ErrorResponse(errorMessage(err, fallback))
	}

	return domain.ChatResponse{Content: content}
}

func (d *Dispatcher) resolveCredential(ctx context.Context, agent domain.AgentType, explicit string) (string, error) {
	if explicit != "" || d.credentials == nil {
		return explicit, nil
	}
	key, err := d.credentials.ActiveKey(ctx, agent)
	if errors.Is(err, domain.ErrNotFound) {
		return "", nil
	}
	return key, err
}

// errorMessage is what callers see. Transport errors can echo the request URL,
// which carries the Gemini key, so the text is scrubbed first.
func errorMessage(err error, fallback string) string {
	if msg := security.Redact(err.Error()); msg != "" {
		return msg
	}
	return fallback
}
