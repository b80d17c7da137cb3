package tracking

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"groovy/internal/workflow"
)

// SaveWorkflow inserts or replaces a workflow definition. The definition must
// already be validated; the store persists it verbatim as JSON.
func (s *Store) SaveWorkflow(ctx context.Context, def *workflow.Definition) error {
	if def == nil {
		return errors.New("definition is nil")
	}
	raw, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("marshal workflow definition: %w", err)
	}
	now := formatTime(time.Now())
	if err := s.execWithoutResultRetry(
		ctx,
		`INSERT INTO workflows (id, name, definition_json, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET
             name = excluded.name,
             definition_json = excluded.definition_json,
             updated_at = excluded.updated_at`,
		def.ID,
		def.Name,
		string(raw),
		now,
		now,
	); err != nil {
		return fmt.Errorf("save workflow: %w", err)
	}
	return nil
}

// GetWorkflow fetches a workflow definition by id. A missing workflow returns
// (nil, nil).
func (s *Store) GetWorkflow(ctx context.Context, workflowID string) (*workflow.Definition, error) {
	ctx = ensureContext(ctx)
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT definition_json FROM workflows WHERE id = ?`, workflowID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get workflow: %w", err)
	}
	var def workflow.Definition
	if err := json.Unmarshal([]byte(raw), &def); err != nil {
		return nil, fmt.Errorf("decode workflow %s: %w", workflowID, err)
	}
	return &def, nil
}

// ListWorkflows returns every stored workflow definition ordered by id.
func (s *Store) ListWorkflows(ctx context.Context) ([]*workflow.Definition, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `SELECT id, definition_json FROM workflows ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list workflows: %w", err)
	}
	defer rows.Close()

	var defs []*workflow.Definition
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, err
		}
		var def workflow.Definition
		if err := json.Unmarshal([]byte(raw), &def); err != nil {
			return nil, fmt.Errorf("decode workflow %s: %w", id, err)
		}
		defs = append(defs, &def)
	}
	return defs, rows.Err()
}
