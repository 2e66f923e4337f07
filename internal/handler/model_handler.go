package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hpn/ifixai-chat/internal/domain"
	"github.com/hpn/ifixai-chat/internal/store"
)

type createModelRequest struct {
	AgentType    string `json:"agentType"`
	ModelValue   string `json:"modelValue"`
	ModelLabel   string `json:"modelLabel"`
	IsDefault    bool   `json:"isDefault"`
	DisplayOrder int    `json:"displayOrder"`
}

type updateModelRequest struct {
	ModelLabel   *string `json:"modelLabel"`
	IsDefault    *bool   `json:"isDefault"`
	IsActive     *bool   `json:"isActive"`
	DisplayOrder *int    `json:"displayOrder"`
}

// HandleListModels handles GET /api/models
func (h *Handler) HandleListModels(c *gin.Context) {
	models, err := h.models.List(c.Request.Context())
	if err != nil {
		h.sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(models))
}

// HandleListAgentModels handles GET /api/models/:agentType
func (h *Handler) HandleListAgentModels(c *gin.Context) {
	agent, err := domain.ParseAgentType(c.Param("agentType"))
	if err != nil {
		h.sendError(c, err)
		return
	}
	models, err := h.models.ListByAgent(c.Request.Context(), agent)
	if err != nil {
		h.sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(models))
}

// HandleCreateModel handles POST /api/models
func (h *Handler) HandleCreateModel(c *gin.Context) {
	var req createModelRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.AgentType == "" || req.ModelValue == "" || req.ModelLabel == "" {
		sendBadRequest(c, "agentType, modelValue, and modelLabel are required")
		return
	}
	agent, err := domain.ParseAgentType(req.AgentType)
	if err != nil {
		h.sendError(c, err)
		return
	}

	model, err := h.models.Create(c.Request.Context(), store.NewModel{
		AgentType:    agent,
		Value:        req.ModelValue,
		Label:        req.ModelLabel,
		IsDefault:    req.IsDefault,
		DisplayOrder: req.DisplayOrder,
	})
	if err != nil {
		h.sendError(c, err)
		return
	}
	c.JSON(http.StatusCreated, model)
}

// HandleUpdateModel handles PATCH /api/models/:id
func (h *Handler) HandleUpdateModel(c *gin.Context) {
	var req updateModelRequest
	if !bindJSON(c, &req) {
		return
	}

	model, err := h.models.Update(c.Request.Context(), c.Param("id"), domain.ModelUpdate{
		Label:        req.ModelLabel,
		IsDefault:    req.IsDefault,
		IsActive:     req.IsActive,
		DisplayOrder: req.DisplayOrder,
	})
	if err != nil {
		h.sendError(c, err)
		return
	}
	c.JSON(http.StatusOK, model)
}

// HandleDeleteModel handles DELETE /api/models/:id
func (h *Handler) HandleDeleteModel(c *gin.Context) {
	if err := h.models.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.sendError(c, err)
		return
	}
	sendSuccess(c)
}
