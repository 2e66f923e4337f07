package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
	"github.com/hpn/ifixai-chat/internal/chat"
	"github.com/hpn/ifixai-chat/internal/domain"
	"github.com/hpn/ifixai-chat/internal/security"
)

type chatRequest struct {
	Message   string `json:"message"`
	AgentType string `json:"agentType"`
	APIKey    string `json:"apiKey"`
	Model     string `json:"model"`
	ImageURL  string `json:"imageUrl"`
}

func (r chatRequest) input() chat.SendInput {
	return chat.SendInput{
		Message:   r.Message,
		AgentType: r.AgentType,
		APIKey:    r.APIKey,
		Model:     r.Model,
		ImageURL:  r.ImageURL,
	}
}

// HandleChat handles POST /api/chat/:conversationId
func (h *Handler) HandleChat(c *gin.Context) {
	var req chatRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Message == "" || req.AgentType == "" {
		sendBadRequest(c, "Message and agentType are required")
		return
	}

	msg, err := h.chat.Send(c.Request.Context(), c.Param("conversationId"), req.input())
	if err != nil {
		h.sendError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   msg.Content,
		"messageId": msg.ID,
	})
}

// HandleChatStream handles POST /api/chat/:conversationId/stream
// Input problems are answered with plain JSON; once the event stream has
// started, failures are sent as an error event.
func (h *Handler) HandleChatStream(c *gin.Context) {
	var req chatRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Message == "" || req.AgentType == "" {
		sendBadRequest(c, "Message and agentType are required")
		return
	}
	if _, err := domain.ParseAgentType(req.AgentType); err != nil {
		h.sendError(c, err)
		return
	}

	ctx := c.Request.Context()
	conversationID := c.Param("conversationId")
	if _, err := h.conversations.Get(ctx, conversationID); err != nil {
		h.sendError(c, err)
		return
	}

	c.Header("Content-Type", sse.ContentType)
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	_, err := h.chat.Stream(ctx, conversationID, req.input(), func(chunk string) error {
		h.sendEvent(c, gin.H{"content": chunk})
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			h.logger.Debug("stream cancelled by client",
				slog.String("conversation_id", conversationID),
			)
			return
		}
		message := err.Error()
		if !chat.IsAgentError(err) && statusFor(err) == http.StatusInternalServerError {
			h.logger.Error("stream failed",
				slog.String("conversation_id", conversationID),
				slog.String("error", err.Error()),
			)
			message = "Internal server error"
		}
		h.sendEvent(c, gin.H{"error": security.Redact(message)})
		return
	}

	h.sendEvent(c, gin.H{"done": true})
}

// sendEvent writes one data-only event and flushes it to the client.
func (h *Handler) sendEvent(c *gin.Context, data gin.H) {
	c.Render(-1, sse.Event{Data: data})
	c.Writer.Flush()
}

// bindJSON decodes the request body. On failure it writes the response and
// returns false.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Request body too large"})
			return false
		}
		sendBadRequest(c, "Invalid request body: "+err.Error())
		return false
	}
	return true
}
