package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/hpn/ifixai-chat/internal/domain"
)

// MessageStore persists conversation turns.
type MessageStore struct {
	db  *sql.DB
	now func() int64
}

// Append stores a turn. An empty imageURL is stored as NULL.
// The conversation must exist.
func (s *MessageStore) Append(ctx context.Context, conversationID string, role domain.Role, content, imageURL string) (domain.Message, error) {
	m := domain.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		CreatedAt:      s.now(),
	}
	if imageURL != "" {
		m.ImageURL = &imageURL
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO messages (id, conversation_id, role, content, image_url, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		m.ID, m.ConversationID, string(m.Role), m.Content, nullString(m.ImageURL), m.CreatedAt)
	if err != nil {
		return domain.Message{}, fmt.Errorf("append message: %w", err)
	}
	return m, nil
}

// ListByConversation returns the turns oldest first. Turns stored in the same
// millisecond keep their insertion order.
func (s *MessageStore) ListByConversation(ctx context.Context, conversationID string) ([]domain.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, conversation_id, role, content, image_url, created_at
		 FROM messages WHERE conversation_id = ?
		 ORDER BY created_at ASC, rowid ASC`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Message, 0)
	for rows.Next() {
		var m domain.Message
		var role string
		var image sql.NullString
		if err := rows.Scan(&m.ID, &m.ConversationID, &role, &m.Content, &image, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.Role = domain.Role(role)
		m.ImageURL = stringPtr(image)
		out = append(out, m)
	}
	return out, rows.Err()
}
