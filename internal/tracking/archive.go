package tracking

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// ArchiveRequest captures everything needed to migrate a live item into the
// completed store when it exits its terminal stage.
type ArchiveRequest struct {
	Item            *Item
	FinalStageID    string
	FinalStageName  string
	CompletionNotes string
	CompletedBy     string
}

// Archive migrates a live item and its full ledger into the completed tables
// and deletes the live rows, all inside one transaction. The completed ledger
// is re-keyed to the business item id because the live row's internal ref is
// meaningless once the row is gone.
func (s *Store) Archive(ctx context.Context, req ArchiveRequest) (*CompletedItem, error) {
	if req.Item == nil {
		return nil, fmt.Errorf("archive: item is nil")
	}
	now := time.Now().UTC()
	completedAt := formatTime(now)

	metaArg, err := marshalMetadata(req.Item.Metadata)
	if err != nil {
		return nil, err
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO completed_items (
                item_id, workflow_id, final_stage_id, final_stage_name,
                started_at, completed_at, completion_notes, completed_by, metadata_json
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			req.Item.ItemID,
			req.Item.WorkflowID,
			req.FinalStageID,
			req.FinalStageName,
			formatTime(req.Item.StartedAt),
			completedAt,
			nullableString(req.CompletionNotes),
			nullableString(req.CompletedBy),
			metaArg,
		); err != nil {
			return fmt.Errorf("insert completed item: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO completed_item_history (item_id, stage_id, stage_name, action, timestamp, user_id, notes, metadata_json)
             SELECT ?, stage_id, stage_name, action, timestamp, user_id, notes, metadata_json
             FROM item_history WHERE item_ref = ? ORDER BY id`,
			req.Item.ItemID,
			req.Item.Ref,
		); err != nil {
			return fmt.Errorf("copy item history: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO completed_item_history (item_id, stage_id, stage_name, action, timestamp, user_id, notes)
             VALUES (?, ?, ?, ?, ?, ?, ?)`,
			req.Item.ItemID,
			req.FinalStageID,
			req.FinalStageName,
			HistoryCompleted,
			completedAt,
			nullableString(req.CompletedBy),
			nullableString(req.CompletionNotes),
		); err != nil {
			return fmt.Errorf("append terminal history: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM item_history WHERE item_ref = ?`, req.Item.Ref); err != nil {
			return fmt.Errorf("delete live history: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, req.Item.Ref)
		if err != nil {
			return fmt.Errorf("delete live item: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("item ref %d vanished during archival", req.Item.Ref)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.CompletedByItemID(ctx, req.Item.ItemID)
}
