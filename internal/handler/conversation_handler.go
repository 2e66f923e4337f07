package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hpn/ifixai-chat/internal/domain"
)

type createConversationRequest struct {
	Title     string `json:"title"`
	AgentType string `json:"agentType"`
	Model     string `json:"model"`
}

type updateConversationRequest struct {
	Title *string `json:"title"`
	Model *string `json:"model"`
}

// conversationWithMessages is the body of GET /api/conversations/:id.
type conversationWithMessages struct {
	domain.Conversation
	Messages []domain.Message `json:"messages"`
}

// HandleListConversations handles GET /api/conversations
func (h *Handler) HandleListConversations(c *gin.Context) {
	conversations, err := h.conversations.List(c.Request.Context())
	if err != nil {
		h.sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(conversations))
}

// HandleCreateConversation handles POST /api/conversations
func (h *Handler) HandleCreateConversation(c *gin.Context) {
	var req createConversationRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Title == "" || req.AgentType == "" {
		sendBadRequest(c, "Title and agentType are required")
		return
	}
	agent, err := domain.ParseAgentType(req.AgentType)
	if err != nil {
		h.sendError(c, err)
		return
	}

	conv, err := h.conversations.Create(c.Request.Context(), req.Title, agent, req.Model)
	if err != nil {
		h.sendError(c, err)
		return
	}
	c.JSON(http.StatusCreated, conv)
}

// HandleGetConversation handles GET /api/conversations/:id
func (h *Handler) HandleGetConversation(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	conv, err := h.conversations.Get(ctx, id)
	if err != nil {
		h.sendError(c, err)
		return
	}
	messages, err := h.messages.ListByConversation(ctx, id)
	if err != nil {
		h.sendError(c, err)
		return
	}

	c.JSON(http.StatusOK, conversationWithMessages{
		Conversation: conv,
		Messages:     nonNil(messages),
	})
}

// HandleUpdateConversation handles PATCH /api/conversations/:id
func (h *Handler) HandleUpdateConversation(c *gin.Context) {
	var req updateConversationRequest
	if !bindJSON(c, &req) {
		return
	}

	conv, err := h.conversations.Update(c.Request.Context(), c.Param("id"), domain.ConversationUpdate{
		Title: req.Title,
		Model: req.Model,
	})
	if err != nil {
		h.sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, conv)
}

// HandleDeleteConversation handles DELETE /api/conversations/:id
func (h *Handler) HandleDeleteConversation(c *gin.Context) {
	if err := h.conversations.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.sendError(c, err)
		return
	}
	sendSuccess(c)
}

// nonNil keeps empty lists encoded as [] rather than null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func sendSuccess(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true})
}
