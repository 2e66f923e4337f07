package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hpn/ifixai-chat/internal/domain"
)

type createAPIKeyRequest struct {
	AgentType string `json:"agentType"`
	KeyName   string `json:"keyName"`
	APIKey    string `json:"apiKey"`
}

type updateAPIKeyRequest struct {
	KeyName  *string `json:"keyName"`
	IsActive *bool   `json:"isActive"`
	APIKey   *string `json:"apiKey"`
}

// HandleListAPIKeys handles GET /api/settings/api-keys
// Secrets are never part of the response.
func (h *Handler) HandleListAPIKeys(c *gin.Context) {
	keys, err := h.credentials.List(c.Request.Context())
	if err != nil {
		h.sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(keys))
}

// HandleListAgentAPIKeys handles GET /api/settings/api-keys/:agentType
func (h *Handler) HandleListAgentAPIKeys(c *gin.Context) {
	agent, err := domain.ParseAgentType(c.Param("agentType"))
	if err != nil {
		h.sendError(c, err)
		return
	}
	keys, err := h.credentials.ListByAgent(c.Request.Context(), agent)
	if err != nil {
		h.sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(keys))
}

// HandleCreateAPIKey handles POST /api/settings/api-keys
func (h *Handler) HandleCreateAPIKey(c *gin.Context) {
	var req createAPIKeyRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.AgentType == "" || req.KeyName == "" || req.APIKey == "" {
		sendBadRequest(c, "agentType, keyName, and apiKey are required")
		return
	}
	agent, err := domain.ParseAgentType(req.AgentType)
	if err != nil {
		h.sendError(c, err)
		return
	}

	key, err := h.credentials.Create(c.Request.Context(), agent, req.KeyName, req.APIKey)
	if err != nil {
		h.sendError(c, err)
		return
	}
	c.JSON(http.StatusCreated, key)
}

// HandleUpdateAPIKey handles PATCH /api/settings/api-keys/:id
func (h *Handler) HandleUpdateAPIKey(c *gin.Context) {
	var req updateAPIKeyRequest
	if !bindJSON(c, &req) {
		return
	}

	key, err := h.credentials.Update(c.Request.Context(), c.Param("id"), domain.CredentialUpdate{
		Name:     req.KeyName,
		IsActive: req.IsActive,
		Secret:   req.APIKey,
	})
	if err != nil {
		h.sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, key)
}

// HandleDeleteAPIKey handles DELETE /api/settings/api-keys/:id
func (h *Handler) HandleDeleteAPIKey(c *gin.Context) {
	if err := h.credentials.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.sendError(c, err)
		return
	}
	sendSuccess(c)
}
