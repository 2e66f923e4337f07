// Package domain contains the core business entities and value objects.
// These structs are framework-agnostic and represent the heart of the application.
package domain

import (
	"fmt"
	"strings"
)

// AgentType identifies one hosted LLM integration.
type AgentType string

const (
	AgentGemini AgentType = "gemini"
	AgentClaude AgentType = "claude"
	AgentQwen   AgentType = "qwen"
	AgentGPT    AgentType = "gpt"
)

// AllAgentTypes lists every supported agent in display order.
var AllAgentTypes = []AgentType{AgentGemini, AgentClaude, AgentQwen, AgentGPT}

// IsValid reports whether the agent type is one of the supported agents.
func (a AgentType) IsValid() bool {
	switch a {
	case AgentGemini, AgentClaude, AgentQwen, AgentGPT:
		return true
	default:
		return false
	}
}

// DisplayName returns the provider name used in user-facing error strings.
func (a AgentType) DisplayName() string {
	switch a {
	case AgentGemini:
		return "Gemini"
	case AgentClaude:
		return "Claude"
	case AgentQwen:
		return "Qwen"
	case AgentGPT:
		return "GPT"
	default:
		return string(a)
	}
}

// ParseAgentType converts a raw string into an AgentType.
func ParseAgentType(s string) (AgentType, error) {
	a := AgentType(strings.ToLower(strings.TrimSpace(s)))
	if !a.IsValid() {
		return "", fmt.Errorf("%w: invalid agentType %q, must be gemini, claude, qwen, or gpt", ErrInvalidInput, s)
	}
	return a, nil
}
