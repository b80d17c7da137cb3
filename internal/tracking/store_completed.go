package tracking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// CompletedByItemID fetches an archived item by business key. A missing item
// returns (nil, nil).
func (s *Store) CompletedByItemID(ctx context.Context, itemID string) (*CompletedItem, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT `+completedColumns+` FROM completed_items WHERE item_id = ?`, itemID)
	item, err := scanCompletedItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get completed item: %w", err)
	}
	return item, nil
}

// ListCompleted returns archived items ordered by completion time, newest
// first, capped at limit when limit is positive.
func (s *Store) ListCompleted(ctx context.Context, limit int) ([]*CompletedItem, error) {
	ctx = ensureContext(ctx)
	query := `SELECT ` + completedColumns + ` FROM completed_items ORDER BY completed_at DESC`
	var (
		rows *sql.Rows
		err  error
	)
	if limit > 0 {
		rows, err = s.db.QueryContext(ctx, query+` LIMIT ?`, limit)
	} else {
		rows, err = s.db.QueryContext(ctx, query)
	}
	if err != nil {
		return nil, fmt.Errorf("list completed items: %w", err)
	}
	defer rows.Close()

	var items []*CompletedItem
	for rows.Next() {
		item, err := scanCompletedItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// CompletedHistory returns the archived ledger for an item, oldest first.
func (s *Store) CompletedHistory(ctx context.Context, itemID string) ([]*CompletedHistoryEntry, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, item_id, stage_id, stage_name, action, timestamp, user_id, notes, metadata_json
         FROM completed_item_history WHERE item_id = ? ORDER BY id`,
		itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("completed history: %w", err)
	}
	defer rows.Close()

	var entries []*CompletedHistoryEntry
	for rows.Next() {
		var (
			id        int64
			item      string
			stageID   string
			stageName string
			actionStr string
			tsRaw     string
			userID    sql.NullString
			notes     sql.NullString
			metadata  sql.NullString
		)
		if err := rows.Scan(&id, &item, &stageID, &stageName, &actionStr, &tsRaw, &userID, &notes, &metadata); err != nil {
			return nil, err
		}
		entry := &CompletedHistoryEntry{
			ID:        id,
			ItemID:    item,
			StageID:   stageID,
			StageName: stageName,
			Action:    HistoryAction(actionStr),
			UserID:    userID.String,
			Notes:     notes.String,
			Metadata:  unmarshalMetadata(metadata),
		}
		if ts, err := parseTimeString(tsRaw); err == nil {
			entry.Timestamp = ts
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

const completedColumns = "id, item_id, workflow_id, final_stage_id, final_stage_name, started_at, completed_at, completion_notes, completed_by, metadata_json"

func scanCompletedItem(scanner interface{ Scan(dest ...any) error }) (*CompletedItem, error) {
	var (
		id           int64
		itemID       string
		workflowID   string
		finalStageID string
		finalName    string
		startedRaw   string
		completedRaw string
		notes        sql.NullString
		completedBy  sql.NullString
		metadata     sql.NullString
	)
	if err := scanner.Scan(&id, &itemID, &workflowID, &finalStageID, &finalName, &startedRaw, &completedRaw, &notes, &completedBy, &metadata); err != nil {
		return nil, err
	}
	item := &CompletedItem{
		ID:              id,
		ItemID:          itemID,
		WorkflowID:      workflowID,
		FinalStageID:    finalStageID,
		FinalStageName:  finalName,
		CompletionNotes: notes.String,
		CompletedBy:     completedBy.String,
		Metadata:        unmarshalMetadata(metadata),
	}
	if started, err := parseTimeString(startedRaw); err == nil {
		item.StartedAt = started
	}
	if completed, err := parseTimeString(completedRaw); err == nil {
		item.CompletedAt = completed
	}
	return item, nil
}
