package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hpn/ifixai-chat/internal/chat"
	"github.com/hpn/ifixai-chat/internal/domain"
	"github.com/hpn/ifixai-chat/internal/security"
)

// statusFor maps domain and service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// sendError writes {"error": message}. Unclassified errors are logged and
// hidden behind a generic message; agent failures are shown as-is.
func (h *Handler) sendError(c *gin.Context, err error) {
	status := statusFor(err)
	message := err.Error()

	if status == http.StatusInternalServerError && !chat.IsAgentError(err) {
		h.logger.Error("request failed",
			slog.String("method", c.Request.Method),
			slog.String("route", c.FullPath()),
			slog.String("error", err.Error()),
		)
		message = "Internal server error"
	}

	c.AbortWithStatusJSON(status, gin.H{"error": security.Redact(message)})
}

// sendBadRequest writes a 400 with the given message.
func sendBadRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": message})
}
