// Package handler provides the HTTP API of the chat server.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hpn/ifixai-chat/internal/chat"
	"github.com/hpn/ifixai-chat/internal/domain"
	"github.com/hpn/ifixai-chat/internal/store"
)

// timestampLayout matches JavaScript's Date.toISOString.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// ChatService runs conversation turns.
type ChatService interface {
	Send(ctx context.Context, conversationID string, in chat.SendInput) (domain.Message, error)
	Stream(ctx context.Context, conversationID string, in chat.SendInput, emit func(chunk string) error) (domain.Message, error)
}

// ConversationStore persists conversations.
type ConversationStore interface {
	List(ctx context.Context) ([]domain.Conversation, error)
	Get(ctx context.Context, id string) (domain.Conversation, error)
	Create(ctx context.Context, title string, agent domain.AgentType, model string) (domain.Conversation, error)
	Update(ctx context.Context, id string, upd domain.ConversationUpdate) (domain.Conversation, error)
	Delete(ctx context.Context, id string) error
}

// MessageStore lists the turns of a conversation.
type MessageStore interface {
	ListByConversation(ctx context.Context, conversationID string) ([]domain.Message, error)
}

// CredentialStore persists API keys.
type CredentialStore interface {
	List(ctx context.Context) ([]domain.Credential, error)
	ListByAgent(ctx context.Context, agent domain.AgentType) ([]domain.Credential, error)
	Create(ctx context.Context, agent domain.AgentType, name, secret string) (domain.Credential, error)
	Update(ctx context.Context, id string, upd domain.CredentialUpdate) (domain.Credential, error)
	Delete(ctx context.Context, id string) error
}

// ModelStore persists the model catalogue.
type ModelStore interface {
	List(ctx context.Context) ([]domain.ModelDescriptor, error)
	ListByAgent(ctx context.Context, agent domain.AgentType) ([]domain.ModelDescriptor, error)
	Create(ctx context.Context, in store.NewModel) (domain.ModelDescriptor, error)
	Update(ctx context.Context, id string, upd domain.ModelUpdate) (domain.ModelDescriptor, error)
	Delete(ctx context.Context, id string) error
}

// Handler serves the /api routes.
type Handler struct {
	chat          ChatService
	conversations ConversationStore
	messages      MessageStore
	credentials   CredentialStore
	models        ModelStore
	logger        *slog.Logger
	metrics       http.Handler
	ping          func(context.Context) error
	now           func() time.Time
}

// HandlerOption is a functional option for configuring Handler.
type HandlerOption func(*Handler)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) HandlerOption {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithMetricsHandler exposes a Prometheus handler at /metrics.
func WithMetricsHandler(m http.Handler) HandlerOption {
	return func(h *Handler) {
		h.metrics = m
	}
}

// WithHealthCheck makes /api/health report 503 when ping fails.
func WithHealthCheck(ping func(context.Context) error) HandlerOption {
	return func(h *Handler) {
		h.ping = ping
	}
}

// WithClock replaces the clock used for the health timestamp.
func WithClock(now func() time.Time) HandlerOption {
	return func(h *Handler) {
		if now != nil {
			h.now = now
		}
	}
}

// NewHandler creates a new Handler.
func NewHandler(
	chatService ChatService,
	conversations ConversationStore,
	messages MessageStore,
	credentials CredentialStore,
	models ModelStore,
	opts ...HandlerOption,
) *Handler {
	h := &Handler{
		chat:          chatService,
		conversations: conversations,
		messages:      messages,
		credentials:   credentials,
		models:        models,
		logger:        slog.Default(),
		now:           time.Now,
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// Register mounts every route on r.
func (h *Handler) Register(r gin.IRouter) {
	api := r.Group("/api")

	api.GET("/health", h.HandleHealth)

	api.POST("/chat/:conversationId", h.HandleChat)
	api.POST("/chat/:conversationId/stream", h.HandleChatStream)

	api.GET("/conversations", h.HandleListConversations)
	api.POST("/conversations", h.HandleCreateConversation)
	api.GET("/conversations/:id", h.HandleGetConversation)
	api.PATCH("/conversations/:id", h.HandleUpdateConversation)
	api.DELETE("/conversations/:id", h.HandleDeleteConversation)

	api.GET("/settings/api-keys", h.HandleListAPIKeys)
	api.POST("/settings/api-keys", h.HandleCreateAPIKey)
	api.GET("/settings/api-keys/:agentType", h.HandleListAgentAPIKeys)
	api.PATCH("/settings/api-keys/:id", h.HandleUpdateAPIKey)
	api.DELETE("/settings/api-keys/:id", h.HandleDeleteAPIKey)

	api.GET("/models", h.HandleListModels)
	api.POST("/models", h.HandleCreateModel)
	api.GET("/models/:agentType", h.HandleListAgentModels)
	api.PATCH("/models/:id", h.HandleUpdateModel)
	api.DELETE("/models/:id", h.HandleDeleteModel)

	api.GET("/toolbox/text", h.HandleListTextOperations)
	api.POST("/toolbox/text/:op", h.HandleConvertText)
	api.POST("/toolbox/json/:op", h.HandleJSON)

	if h.metrics != nil {
		r.GET("/metrics", gin.WrapH(h.metrics))
	}
}

// HandleHealth handles GET /api/health
func (h *Handler) HandleHealth(c *gin.Context) {
	timestamp := h.now().UTC().Format(timestampLayout)
	if h.ping != nil {
		if err := h.ping(c.Request.Context()); err != nil {
			h.logger.Error("health check failed", slog.String("error", err.Error()))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unavailable",
				"timestamp": timestamp,
			})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": timestamp,
	})
}
