package tracking

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// TransitionUpdate moves a live item from one stage to the next: the item row
// is patched and two ledger entries are appended (one closing the departing
// stage, one opening the arriving stage) with identical timestamps. The whole
// update is a single transaction.
type TransitionUpdate struct {
	ItemRef       int64
	FromStageID   string
	FromStageName string
	ToStageID     string
	ToStageName   string
	UserID        string
	Notes         string
	// DepartAction is the action recorded for the departing stage entry;
	// HistoryCompleted for normal transitions, HistoryOverride for
	// administrative overrides.
	DepartAction HistoryAction
}

// ApplyTransition performs the dual history append plus stage patch.
func (s *Store) ApplyTransition(ctx context.Context, update TransitionUpdate) error {
	if update.DepartAction == "" {
		update.DepartAction = HistoryCompleted
	}
	now := time.Now().UTC()
	timestamp := formatTime(now)

	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE items SET current_stage_id = ?, updated_at = ? WHERE id = ?`,
			update.ToStageID,
			timestamp,
			update.ItemRef,
		)
		if err != nil {
			return fmt.Errorf("patch item stage: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("item ref %d vanished during transition", update.ItemRef)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO item_history (item_ref, stage_id, stage_name, action, timestamp, user_id, notes)
             VALUES (?, ?, ?, ?, ?, ?, ?)`,
			update.ItemRef,
			update.FromStageID,
			update.FromStageName,
			update.DepartAction,
			timestamp,
			nullableString(update.UserID),
			nullableString(update.Notes),
		); err != nil {
			return fmt.Errorf("append departing history: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO item_history (item_ref, stage_id, stage_name, action, timestamp, user_id, notes)
             VALUES (?, ?, ?, ?, ?, ?, NULL)`,
			update.ItemRef,
			update.ToStageID,
			update.ToStageName,
			HistoryStarted,
			timestamp,
			nullableString(update.UserID),
		); err != nil {
			return fmt.Errorf("append arriving history: %w", err)
		}

		return nil
	})
}

// AppendHistory writes a single ledger entry for a live item.
func (s *Store) AppendHistory(ctx context.Context, entry HistoryEntry) (int64, error) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	metaArg, err := marshalMetadata(entry.Metadata)
	if err != nil {
		return 0, err
	}
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO item_history (item_ref, stage_id, stage_name, action, timestamp, user_id, notes, metadata_json)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ItemRef,
		entry.StageID,
		entry.StageName,
		entry.Action,
		formatTime(entry.Timestamp),
		nullableString(entry.UserID),
		nullableString(entry.Notes),
		metaArg,
	)
	if err != nil {
		return 0, fmt.Errorf("append history: %w", err)
	}
	return res.LastInsertId()
}

// HistoryForRef returns the ledger for a live item ordered oldest first.
func (s *Store) HistoryForRef(ctx context.Context, ref int64) ([]*HistoryEntry, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, item_ref, stage_id, stage_name, action, timestamp, user_id, notes, metadata_json
         FROM item_history WHERE item_ref = ? ORDER BY id`,
		ref,
	)
	if err != nil {
		return nil, fmt.Errorf("item history: %w", err)
	}
	defer rows.Close()

	var entries []*HistoryEntry
	for rows.Next() {
		entry, err := scanHistoryEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func scanHistoryEntry(scanner interface{ Scan(dest ...any) error }) (*HistoryEntry, error) {
	var (
		id        int64
		ref       int64
		stageID   string
		stageName string
		actionStr string
		tsRaw     string
		userID    sql.NullString
		notes     sql.NullString
		metadata  sql.NullString
	)
	if err := scanner.Scan(&id, &ref, &stageID, &stageName, &actionStr, &tsRaw, &userID, &notes, &metadata); err != nil {
		return nil, err
	}
	entry := &HistoryEntry{
		ID:        id,
		ItemRef:   ref,
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
	return entry, nil
}
