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

const modelColumns = "id, agent_type, model_value, model_label, is_default, is_active, display_order, created_at"

// DefaultModels is the catalogue seeded into an empty database.
var DefaultModels = []domain.ModelDescriptor{
	{AgentType: domain.AgentGemini, Value: "gemini-2.0-flash-exp", Label: "Gemini 2.0 Flash (Experimental)", IsDefault: true, DisplayOrder: 0},
	{AgentType: domain.AgentGemini, Value: "gemini-1.5-pro", Label: "Gemini 1.5 Pro", DisplayOrder: 1},
	{AgentType: domain.AgentGemini, Value: "gemini-1.5-flash", Label: "Gemini 1.5 Flash", DisplayOrder: 2},
	{AgentType: domain.AgentGemini, Value: "gemini-pro", Label: "Gemini Pro", DisplayOrder: 3},

	{AgentType: domain.AgentClaude, Value: "claude-3-5-sonnet-20241022", Label: "Claude 3.5 Sonnet", IsDefault: true, DisplayOrder: 0},
	{AgentType: domain.AgentClaude, Value: "claude-3-opus-20240229", Label: "Claude 3 Opus", DisplayOrder: 1},
	{AgentType: domain.AgentClaude, Value: "claude-3-sonnet-20240229", Label: "Claude 3 Sonnet", DisplayOrder: 2},
	{AgentType: domain.AgentClaude, Value: "claude-3-haiku-20240307", Label: "Claude 3 Haiku", DisplayOrder: 3},

	{AgentType: domain.AgentGPT, Value: "gpt-4o", Label: "GPT-4o", IsDefault: true, DisplayOrder: 0},
	{AgentType: domain.AgentGPT, Value: "gpt-4-turbo", Label: "GPT-4 Turbo", DisplayOrder: 1},
	{AgentType: domain.AgentGPT, Value: "gpt-4", Label: "GPT-4", DisplayOrder: 2},
	{AgentType: domain.AgentGPT, Value: "gpt-3.5-turbo", Label: "GPT-3.5 Turbo", DisplayOrder: 3},

	{AgentType: domain.AgentQwen, Value: "qwen-code", Label: "Qwen Code", IsDefault: true, DisplayOrder: 0},
	{AgentType: domain.AgentQwen, Value: "qwen-plus", Label: "Qwen Plus", DisplayOrder: 1},
	{AgentType: domain.AgentQwen, Value: "qwen-turbo", Label: "Qwen Turbo", DisplayOrder: 2},
}

// ModelStore persists the per-agent model catalogue.
type ModelStore struct {
	db  *sql.DB
	now func() int64
}

// NewModel is the input for Create.
type NewModel struct {
	AgentType    domain.AgentType
	Value        string
	Label        string
	IsDefault    bool
	DisplayOrder int
}

// List returns active models ordered by agent, display order and age.
func (s *ModelStore) List(ctx context.Context) ([]domain.ModelDescriptor, error) {
	return s.query(ctx,
		"SELECT "+modelColumns+" FROM agent_models WHERE is_active = 1 ORDER BY agent_type, display_order ASC, created_at ASC, rowid ASC")
}

// ListByAgent returns an agent's active models in display order.
func (s *ModelStore) ListByAgent(ctx context.Context, agent domain.AgentType) ([]domain.ModelDescriptor, error) {
	return s.query(ctx,
		"SELECT "+modelColumns+" FROM agent_models WHERE agent_type = ? AND is_active = 1 ORDER BY display_order ASC, created_at ASC, rowid ASC",
		string(agent))
}

// Get returns one model or domain.ErrNotFound.
func (s *ModelStore) Get(ctx context.Context, id string) (domain.ModelDescriptor, error) {
	return getModel(ctx, s.db, id)
}

// Create inserts an active model. When it is the new default, the agent's
// previous default is cleared in the same transaction.
func (s *ModelStore) Create(ctx context.Context, in NewModel) (domain.ModelDescriptor, error) {
	m := domain.ModelDescriptor{
		ID:           uuid.NewString(),
		AgentType:    in.AgentType,
		Value:        in.Value,
		Label:        in.Label,
		IsDefault:    in.IsDefault,
		IsActive:     true,
		DisplayOrder: in.DisplayOrder,
		CreatedAt:    s.now(),
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if m.IsDefault {
			if _, err := tx.ExecContext(ctx,
				"UPDATE agent_models SET is_default = 0 WHERE agent_type = ?", string(m.AgentType)); err != nil {
				return fmt.Errorf("clear default model: %w", err)
			}
		}
		return insertModel(ctx, tx, m)
	})
	if isUniqueViolation(err) {
		return domain.ModelDescriptor{}, fmt.Errorf("model with this value already exists for this agent: %w", domain.ErrConflict)
	}
	if err != nil {
		return domain.ModelDescriptor{}, err
	}
	return m, nil
}

// Update applies a partial update. Setting IsDefault clears the agent's other
// defaults in the same transaction.
func (s *ModelStore) Update(ctx context.Context, id string, upd domain.ModelUpdate) (domain.ModelDescriptor, error) {
	var updated domain.ModelDescriptor
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		existing, err := getModel(ctx, tx, id)
		if err != nil {
			return err
		}
		if upd.IsEmpty() {
			return fmt.Errorf("no fields to update: %w", domain.ErrInvalidInput)
		}

		var sets []string
		var args []any
		if upd.Label != nil {
			sets = append(sets, "model_label = ?")
			args = append(args, *upd.Label)
		}
		if upd.IsDefault != nil {
			if *upd.IsDefault {
				if _, err := tx.ExecContext(ctx,
					"UPDATE agent_models SET is_default = 0 WHERE agent_type = ? AND id != ?",
					string(existing.AgentType), id); err != nil {
					return fmt.Errorf("clear default model: %w", err)
				}
			}
			sets = append(sets, "is_default = ?")
			args = append(args, boolToInt(*upd.IsDefault))
		}
		if upd.IsActive != nil {
			sets = append(sets, "is_active = ?")
			args = append(args, boolToInt(*upd.IsActive))
		}
		if upd.DisplayOrder != nil {
			sets = append(sets, "display_order = ?")
			args = append(args, *upd.DisplayOrder)
		}
		args = append(args, id)

		if _, err := tx.ExecContext(ctx,
			"UPDATE agent_models SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...); err != nil {
			return fmt.Errorf("update model: %w", err)
		}

		updated, err = getModel(ctx, tx, id)
		return err
	})
	if err != nil {
		return domain.ModelDescriptor{}, err
	}
	return updated, nil
}

// Delete removes a model. Deleting a missing id is not an error.
func (s *ModelStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM agent_models WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete model: %w", err)
	}
	return nil
}

// DefaultModel returns the agent's active default model value, falling back to
// the first active model in display order. It returns "" when the agent has no
// active models.
func (s *ModelStore) DefaultModel(ctx context.Context, agent domain.AgentType) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT model_value FROM agent_models
		 WHERE agent_type = ? AND is_active = 1
		 ORDER BY is_default DESC, display_order ASC, created_at ASC, rowid ASC
		 LIMIT 1`, string(agent)).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get default model: %w", err)
	}
	return value, nil
}

// seedDefaults inserts DefaultModels when the table is empty.
func (s *ModelStore) seedDefaults(ctx context.Context) error {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM agent_models").Scan(&count); err != nil {
		return fmt.Errorf("count models: %w", err)
	}
	if count > 0 {
		return nil
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		now := s.now()
		for _, m := range DefaultModels {
			m.ID = uuid.NewString()
			m.IsActive = true
			m.CreatedAt = now
			if err := insertModel(ctx, tx, m); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *ModelStore) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *ModelStore) query(ctx context.Context, query string, args ...any) ([]domain.ModelDescriptor, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ModelDescriptor, 0)
	for rows.Next() {
		m, err := scanModel(rows)
		if err != nil {
			return nil, fmt.Errorf("scan model: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getModel(ctx context.Context, q queryRower, id string) (domain.ModelDescriptor, error) {
	m, err := scanModel(q.QueryRowContext(ctx, "SELECT "+modelColumns+" FROM agent_models WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ModelDescriptor{}, notFound("model", id)
	}
	if err != nil {
		return domain.ModelDescriptor{}, fmt.Errorf("get model: %w", err)
	}
	return m, nil
}

func insertModel(ctx context.Context, tx *sql.Tx, m domain.ModelDescriptor) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO agent_models ("+modelColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		m.ID, string(m.AgentType), m.Value, m.Label,
		boolToInt(m.IsDefault), boolToInt(m.IsActive), m.DisplayOrder, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert model: %w", err)
	}
	return nil
}

func scanModel(r rowScanner) (domain.ModelDescriptor, error) {
	var m domain.ModelDescriptor
	var agent string
	var isDefault, isActive int
	if err := r.Scan(&m.ID, &agent, &m.Value, &m.Label, &isDefault, &isActive, &m.DisplayOrder, &m.CreatedAt); err != nil {
		return domain.ModelDescriptor{}, err
	}
	m.AgentType = domain.AgentType(agent)
	m.IsDefault = isDefault != 0
	m.IsActive = isActive != 0
	return m, nil
}
