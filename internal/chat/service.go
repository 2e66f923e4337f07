// Package chat runs one conversation turn: persist the user message, ask the
// agent, persist the reply.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hpn/ifixai-chat/internal/domain"
)

// DefaultStreamDelay is the pause between simulated stream chunks.
const DefaultStreamDelay = 50 * time.Millisecond

// Dispatcher sends a conversation to an agent.
type Dispatcher interface {
	ChatWithAgent(ctx context.Context, agent domain.AgentType, messages []domain.ChatMessage, credential, model string) domain.ChatResponse
}

// Conversations is the subset of the conversation store the service needs.
type Conversations interface {
	Get(ctx context.Context, id string) (domain.Conversation, error)
	Touch(ctx context.Context, id string) error
}

// Messages is the subset of the message store the service needs.
type Messages interface {
	Append(ctx context.Context, conversationID string, role domain.Role, content, imageURL string) (domain.Message, error)
	ListByConversation(ctx context.Context, conversationID string) ([]domain.Message, error)
}

// ModelCatalog resolves an agent's default model. It returns "" when none is configured.
type ModelCatalog interface {
	DefaultModel(ctx context.Context, agent domain.AgentType) (string, error)
}

// Observer records the outcome of agent calls.
type Observer interface {
	ObserveChat(agent, outcome string, elapsed time.Duration)
}

// AgentError carries the agent's failure message. No assistant turn is stored.
type AgentError struct {
	Agent   domain.AgentType
	Message string
}

func (e *AgentError) Error() string {
	return e.Message
}

// SendInput is one user turn.
type SendInput struct {
	Message   string
	AgentType string
	APIKey    string
	Model     string
	ImageURL  string
}

// Service coordinates stores and the dispatcher.
type Service struct {
	conversations Conversations
	messages      Messages
	models        ModelCatalog
	dispatcher    Dispatcher
	observer      Observer
	logger        *slog.Logger
	streamDelay   time.Duration
}

// Option is a functional option for configuring Service.
type Option func(*Service)

// WithModelCatalog enables stored default models in model resolution.
func WithModelCatalog(models ModelCatalog) Option {
	return func(s *Service) {
		s.models = models
	}
}

// WithObserver sets the metrics observer.
func WithObserver(o Observer) Option {
	return func(s *Service) {
		s.observer = o
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithStreamDelay sets the pause between stream chunks. Zero disables it.
func WithStreamDelay(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.streamDelay = d
		}
	}
}

// NewService creates a Service.
func NewService(conversations Conversations, messages Messages, dispatcher Dispatcher, opts ...Option) *Service {
	s := &Service{
		conversations: conversations,
		messages:      messages,
		dispatcher:    dispatcher,
		logger:        slog.Default(),
		streamDelay:   DefaultStreamDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send stores the user turn, asks the agent and stores its reply.
// It returns the stored assistant message.
func (s *Service) Send(ctx context.Context, conversationID string, in SendInput) (domain.Message, error) {
	reply, err := s.ask(ctx, conversationID, in)
	if err != nil {
		return domain.Message{}, err
	}
	return s.saveReply(ctx, conversationID, reply)
}

// Stream behaves like Send but hands the reply to emit word by word, each
// chunk followed by a space, pausing between chunks. The reply is stored
// after the last chunk. A cancelled context stops the stream and nothing is stored.
func (s *Service) Stream(ctx context.Context, conversationID string, in SendInput, emit func(chunk string) error) (domain.Message, error) {
	reply, err := s.ask(ctx, conversationID, in)
	if err != nil {
		return domain.Message{}, err
	}

	for i, word := range strings.Split(reply, " ") {
		if i > 0 && s.streamDelay > 0 {
			timer := time.NewTimer(s.streamDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return domain.Message{}, ctx.Err()
			case <-timer.C:
			}
		}
		if err := emit(word + " "); err != nil {
			return domain.Message{}, fmt.Errorf("emit chunk: %w", err)
		}
	}

	return s.saveReply(ctx, conversationID, reply)
}

// ask validates input, stores the user turn and returns the agent's reply text.
func (s *Service) ask(ctx context.Context, conversationID string, in SendInput) (string, error) {
	if in.Message == "" || in.AgentType == "" {
		return "", fmt.Errorf("message and agentType are required: %w", domain.ErrInvalidInput)
	}
	agent, err := domain.ParseAgentType(in.AgentType)
	if err != nil {
		return "", err
	}

	conv, err := s.conversations.Get(ctx, conversationID)
	if err != nil {
		return "", err
	}

	if _, err := s.messages.Append(ctx, conversationID, domain.RoleUser, in.Message, in.ImageURL); err != nil {
		return "", err
	}

	history, err := s.messages.ListByConversation(ctx, conversationID)
	if err != nil {
		return "", err
	}
	chatMessages := make([]domain.ChatMessage, 0, len(history))
	for _, m := range history {
		chatMessages = append(chatMessages, m.ToChatMessage())
	}

	model := s.resolveModel(ctx, conv, agent, in.Model)

	start := time.Now()
	resp := s.dispatcher.ChatWithAgent(ctx, agent, chatMessages, in.APIKey, model)
	s.observe(agent, resp, time.Since(start))

	if resp.Failed() {
		s.logger.Warn("agent returned an error",
			slog.String("conversation_id", conversationID),
			slog.String("agent", string(agent)),
			slog.String("model", model),
			slog.String("error", resp.Error),
		)
		return "", &AgentError{Agent: agent, Message: resp.Error}
	}

	return resp.Content, nil
}

// resolveModel picks the request model, then the conversation's pinned model
// when it belongs to the same agent, then the catalogue default. An empty
// result leaves the choice to the provider.
func (s *Service) resolveModel(ctx context.Context, conv domain.Conversation, agent domain.AgentType, requested string) string {
	if requested != "" {
		return requested
	}
	if pinned := conv.ModelName(); pinned != "" && conv.AgentType == agent {
		return pinned
	}
	if s.models == nil {
		return ""
	}
	model, err := s.models.DefaultModel(ctx, agent)
	if err != nil {
		s.logger.Warn("default model lookup failed",
			slog.String("agent", string(agent)),
			slog.String("error", err.Error()),
		)
		return ""
	}
	return model
}

func (s *Service) saveReply(ctx context.Context, conversationID, content string) (domain.Message, error) {
	msg, err := s.messages.Append(ctx, conversationID, domain.RoleAssistant, content, "")
	if err != nil {
		return domain.Message{}, err
	}
	if err := s.conversations.Touch(ctx, conversationID); err != nil {
		return domain.Message{}, err
	}
	return msg, nil
}

func (s *Service) observe(agent domain.AgentType, resp domain.ChatResponse, elapsed time.Duration) {
	if s.observer == nil {
		return
	}
	outcome := "success"
	if resp.Failed() {
		outcome = "error"
	}
	s.observer.ObserveChat(string(agent), outcome, elapsed)
}

// IsAgentError reports whether err is an agent failure.
func IsAgentError(err error) bool {
	var agentErr *AgentError
	return errors.As(err, &agentErr)
}
