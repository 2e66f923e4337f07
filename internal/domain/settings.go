package domain

// Credential is an API secret scoped to one agent. The secret never leaves the server.
type Credential struct {
	ID        string    `json:"id"`
	AgentType AgentType `json:"agent_type"`
	Name      string    `json:"key_name"`
	Secret    string    `json:"-"`
	IsActive  bool      `json:"is_active"`
	CreatedAt int64     `json:"created_at"`
}

// CredentialUpdate carries the optional fields of a credential PATCH.
type CredentialUpdate struct {
	Name     *string
	IsActive *bool
	Secret   *string
}

// IsEmpty reports whether no field is set.
func (u CredentialUpdate) IsEmpty() bool {
	return u.Name == nil && u.IsActive == nil && u.Secret == nil
}

// ModelDescriptor maps a wire model identifier to display metadata.
type ModelDescriptor struct {
	ID           string    `json:"id"`
	AgentType    AgentType `json:"agent_type"`
	Value        string    `json:"model_value"`
	Label        string    `json:"model_label"`
	IsDefault    bool      `json:"is_default"`
	IsActive     bool      `json:"is_active"`
	DisplayOrder int       `json:"display_order"`
	CreatedAt    int64     `json:"created_at"`
}

// ModelUpdate carries the optional fields of a model PATCH.
type ModelUpdate struct {
	Label        *string
	IsDefault    *bool
	IsActive     *bool
	DisplayOrder *int
}

// IsEmpty reports whether no field is set.
func (u ModelUpdate) IsEmpty() bool {
	return u.Label == nil && u.IsDefault == nil && u.IsActive == nil && u.DisplayOrder == nil
}

// ConversationUpdate carries the optional fields of a conversation PATCH.
type ConversationUpdate struct {
	Title *string
	Model *string
}

// IsEmpty reports whether no field is set.
func (u ConversationUpdate) IsEmpty() bool {
	return u.Title == nil && u.Model == nil
}
