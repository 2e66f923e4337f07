package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/hpn/ifixai-chat/internal/domain"
)

const conversationColumns = "id, title, agent_type, model, created_at, updated_at"

// ConversationStore persists conversations.
type ConversationStore struct {
	db  *sql.DB
	now func() int64
}

// List returns every conversation, most recently updated first.
func (s *ConversationStore) List(ctx context.Context) ([]domain.Conversation, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+conversationColumns+" FROM conversations ORDER BY updated_at DESC")
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Conversation, 0)
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Get returns one conversation or domain.ErrNotFound.
func (s *ConversationStore) Get(ctx context.Context, id string) (domain.Conversation, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+conversationColumns+" FROM conversations WHERE id = ?", id)
	c, err := scanConversation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Conversation{}, notFound("conversation", id)
	}
	if err != nil {
		return domain.Conversation{}, fmt.Errorf("get conversation: %w", err)
	}
	return c, nil
}

// Create inserts a conversation. An empty model leaves it unpinned.
func (s *ConversationStore) Create(ctx context.Context, title string, agent domain.AgentType, model string) (domain.Conversation, error) {
	now := s.now()
	c := domain.Conversation{
		ID:        uuid.NewString(),
		Title:     title,
		AgentType: agent,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if model != "" {
		c.Model = &model
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO conversations ("+conversationColumns+") VALUES (?, ?, ?, ?, ?, ?)",
		c.ID, c.Title, string(c.AgentType), nullString(c.Model), c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return domain.Conversation{}, fmt.Errorf("create conversation: %w", err)
	}
	return c, nil
}

// Update changes the title and/or model and bumps updated_at.
// An empty model string clears the pinned model.
func (s *ConversationStore) Update(ctx context.Context, id string, upd domain.ConversationUpdate) (domain.Conversation, error) {
	if upd.IsEmpty() {
		return domain.Conversation{}, fmt.Errorf("at least one field (title or model) is required: %w", domain.ErrInvalidInput)
	}

	var sets []string
	var args []any
	if upd.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *upd.Title)
	}
	if upd.Model != nil {
		sets = append(sets, "model = ?")
		if *upd.Model == "" {
			args = append(args, nil)
		} else {
			args = append(args, *upd.Model)
		}
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, s.now(), id)

	res, err := s.db.ExecContext(ctx,
		"UPDATE conversations SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return domain.Conversation{}, fmt.Errorf("update conversation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.Conversation{}, notFound("conversation", id)
	}
	return s.Get(ctx, id)
}

// Touch bumps updated_at.
func (s *ConversationStore) Touch(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx,
		"UPDATE conversations SET updated_at = ? WHERE id = ?", s.now(), id); err != nil {
		return fmt.Errorf("touch conversation: %w", err)
	}
	return nil
}

// Delete removes a conversation and its messages. Deleting a missing id is not an error.
func (s *ConversationStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM conversations WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversation(r rowScanner) (domain.Conversation, error) {
	var c domain.Conversation
	var agent string
	var model sql.NullString
	if err := r.Scan(&c.ID, &c.Title, &agent, &model, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return domain.Conversation{}, err
	}
	c.AgentType = domain.AgentType(agent)
	c.Model = stringPtr(model)
	return c, nil
}
