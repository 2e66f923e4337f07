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

const credentialColumns = "id, agent_type, key_name, api_key, is_active, created_at"

// CredentialStore persists provider API keys.
type CredentialStore struct {
	db  *sql.DB
	now func() int64
}

// List returns all credentials grouped by agent, newest first within an agent.
func (s *CredentialStore) List(ctx context.Context) ([]domain.Credential, error) {
	return s.query(ctx,
		"SELECT "+credentialColumns+" FROM api_keys ORDER BY agent_type, created_at DESC, rowid DESC")
}

// ListByAgent returns an agent's credentials, newest first.
func (s *CredentialStore) ListByAgent(ctx context.Context, agent domain.AgentType) ([]domain.Credential, error) {
	return s.query(ctx,
		"SELECT "+credentialColumns+" FROM api_keys WHERE agent_type = ? ORDER BY created_at DESC, rowid DESC",
		string(agent))
}

// Get returns one credential or domain.ErrNotFound.
func (s *CredentialStore) Get(ctx context.Context, id string) (domain.Credential, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+credentialColumns+" FROM api_keys WHERE id = ?", id)
	c, err := scanCredential(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Credential{}, notFound("api key", id)
	}
	if err != nil {
		return domain.Credential{}, fmt.Errorf("get api key: %w", err)
	}
	return c, nil
}

// Create stores a new active credential. A duplicate name for the same agent
// returns domain.ErrConflict.
func (s *CredentialStore) Create(ctx context.Context, agent domain.AgentType, name, secret string) (domain.Credential, error) {
	c := domain.Credential{
		ID:        uuid.NewString(),
		AgentType: agent,
		Name:      name,
		Secret:    secret,
		IsActive:  true,
		CreatedAt: s.now(),
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO api_keys ("+credentialColumns+") VALUES (?, ?, ?, ?, ?, ?)",
		c.ID, string(c.AgentType), c.Name, c.Secret, boolToInt(c.IsActive), c.CreatedAt)
	if isUniqueViolation(err) {
		return domain.Credential{}, fmt.Errorf("api key with this name already exists for this agent: %w", domain.ErrConflict)
	}
	if err != nil {
		return domain.Credential{}, fmt.Errorf("create api key: %w", err)
	}
	return c, nil
}

// Update changes any of name, active flag or secret.
func (s *CredentialStore) Update(ctx context.Context, id string, upd domain.CredentialUpdate) (domain.Credential, error) {
	if upd.IsEmpty() {
		return domain.Credential{}, fmt.Errorf("no fields to update: %w", domain.ErrInvalidInput)
	}

	var sets []string
	var args []any
	if upd.Name != nil {
		sets = append(sets, "key_name = ?")
		args = append(args, *upd.Name)
	}
	if upd.IsActive != nil {
		sets = append(sets, "is_active = ?")
		args = append(args, boolToInt(*upd.IsActive))
	}
	if upd.Secret != nil {
		sets = append(sets, "api_key = ?")
		args = append(args, *upd.Secret)
	}
	args = append(args, id)

	res, err := s.db.ExecContext(ctx,
		"UPDATE api_keys SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if isUniqueViolation(err) {
		return domain.Credential{}, fmt.Errorf("api key with this name already exists for this agent: %w", domain.ErrConflict)
	}
	if err != nil {
		return domain.Credential{}, fmt.Errorf("update api key: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.Credential{}, notFound("api key", id)
	}
	return s.Get(ctx, id)
}

// Delete removes a credential. Deleting a missing id is not an error.
func (s *CredentialStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM api_keys WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete api key: %w", err)
	}
	return nil
}

// ActiveKey returns the secret of the agent's first active credential in
// creation order, or domain.ErrNotFound.
func (s *CredentialStore) ActiveKey(ctx context.Context, agent domain.AgentType) (string, error) {
	var key string
	err := s.db.QueryRowContext(ctx,
		"SELECT api_key FROM api_keys WHERE agent_type = ? AND is_active = 1 ORDER BY created_at ASC, rowid ASC LIMIT 1",
		string(agent)).Scan(&key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("active api key for %s: %w", agent, domain.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("get active api key: %w", err)
	}
	return key, nil
}

// ActiveKeys returns every active secret for the agent in creation order.
func (s *CredentialStore) ActiveKeys(ctx context.Context, agent domain.AgentType) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT api_key FROM api_keys WHERE agent_type = ? AND is_active = 1 ORDER BY created_at ASC, rowid ASC",
		string(agent))
	if err != nil {
		return nil, fmt.Errorf("list active api keys: %w", err)
	}
	defer rows.Close()

	keys := make([]string, 0)
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (s *CredentialStore) query(ctx context.Context, query string, args ...any) ([]domain.Credential, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Credential, 0)
	for rows.Next() {
		c, err := scanCredential(rows)
		if err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanCredential(r rowScanner) (domain.Credential, error) {
	var c domain.Credential
	var agent string
	var active int
	if err := r.Scan(&c.ID, &agent, &c.Name, &c.Secret, &active, &c.CreatedAt); err != nil {
		return domain.Credential{}, err
	}
	c.AgentType = domain.AgentType(agent)
	c.IsActive = active != 0
	return c, nil
}
