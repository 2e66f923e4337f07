package domain

// Role attributes a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// IsValid reports whether the role is user, assistant or system.
func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleAssistant || r == RoleSystem
}

// ChatMessage is one turn handed to an agent. Adapters only read it.
type ChatMessage struct {
	Role     Role   `json:"role"`
	Content  string `json:"content"`
	ImageURL string `json:"image_url,omitempty"`
}

// HasImage reports whether the turn carries an image attachment.
func (m ChatMessage) HasImage() bool {
	return m.ImageURL != ""
}

// ChatResponse is the provider-agnostic reply. Content is empty whenever Error is set.
type ChatResponse struct {
	Content string `json:"content"`
	Error   string `json:"error,omitempty"`
}

// Failed reports whether the response carries an error.
func (r ChatResponse) Failed() bool {
	return r.Error != ""
}

// ErrorResponse builds a failed ChatResponse.
func ErrorResponse(msg string) ChatResponse {
	return ChatResponse{Content: "", Error: msg}
}

// Conversation groups messages exchanged with one agent.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	AgentType AgentType `json:"agent_type"`
	Model     *string   `json:"model"`
	CreatedAt int64     `json:"created_at"`
	UpdatedAt int64     `json:"updated_at"`
}

// ModelName returns the pinned model or "" when none is set.
func (c *Conversation) ModelName() string {
	if c.Model == nil {
		return ""
	}
	return *c.Model
}

// Message is a persisted conversation turn. CreatedAt is Unix milliseconds.
type Message struct {
	ID             string  `json:"id"`
	ConversationID string  `json:"conversation_id"`
	Role           Role    `json:"role"`
	Content        string  `json:"content"`
	ImageURL       *string `json:"image_url"`
	CreatedAt      int64   `json:"created_at"`
}

// ToChatMessage converts a stored turn into adapter input.
func (m Message) ToChatMessage() ChatMessage {
	cm := ChatMessage{Role: m.Role, Content: m.Content}
	if m.ImageURL != nil {
		cm.ImageURL = *m.ImageURL
	}
	return cm
}
