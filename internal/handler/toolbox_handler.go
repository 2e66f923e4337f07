package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hpn/ifixai-chat/internal/toolbox"
)

type textRequest struct {
	Text string `json:"text"`
}

type jsonRequest struct {
	Input  string `json:"input"`
	Indent *int   `json:"indent"`
}

func (r jsonRequest) indent() int {
	if r.Indent == nil {
		return toolbox.DefaultIndent
	}
	return *r.Indent
}

// HandleListTextOperations handles GET /api/toolbox/text
func (h *Handler) HandleListTextOperations(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"operations": toolbox.TextOperations()})
}

// HandleConvertText handles POST /api/toolbox/text/:op
func (h *Handler) HandleConvertText(c *gin.Context) {
	var req textRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := toolbox.ConvertText(c.Param("op"), req.Text)
	if err != nil {
		sendToolboxError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": result})
}

// HandleJSON handles POST /api/toolbox/json/:op
// Supported operations are format, compress, unescape and validate.
func (h *Handler) HandleJSON(c *gin.Context) {
	var req jsonRequest
	if !bindJSON(c, &req) {
		return
	}

	var (
		result string
		err    error
	)
	switch op := c.Param("op"); op {
	case "format":
		result, err = toolbox.FormatJSON(req.Input, req.indent())
	case "compress":
		result, err = toolbox.CompressJSON(req.Input)
	case "unescape":
		result, err = toolbox.UnescapeJSON(req.Input, req.indent())
	case "validate":
		h.handleValidateJSON(c, req.Input)
		return
	default:
		sendBadRequest(c, "unknown operation: "+op)
		return
	}
	if err != nil {
		sendToolboxError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": result})
}

// handleValidateJSON always answers 200; validity is part of the body.
func (h *Handler) handleValidateJSON(c *gin.Context, input string) {
	err := toolbox.ValidateJSON(input)
	if err == nil {
		c.JSON(http.StatusOK, gin.H{"valid": true})
		return
	}

	body := gin.H{"valid": false, "error": err.Error()}
	var se *toolbox.SyntaxError
	if errors.As(err, &se) {
		body["line"] = se.Line
		body["column"] = se.Column
	}
	c.JSON(http.StatusOK, body)
}

func sendToolboxError(c *gin.Context, err error) {
	body := gin.H{"error": err.Error()}
	var se *toolbox.SyntaxError
	if errors.As(err, &se) {
		body["line"] = se.Line
		body["column"] = se.Column
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, body)
}
