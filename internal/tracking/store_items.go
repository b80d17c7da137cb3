package tracking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// NewItemParams describes a live item about to be registered.
type NewItemParams struct {
	ItemID     string
	WorkflowID string
	StageID    string
	StageName  string
	AssignedTo string
	QRCode     string
	UserID     string
	Metadata   Metadata
}

// ErrDuplicateItem indicates the business item id already exists, either live
// or in the archive.
var ErrDuplicateItem = errors.New("item id already exists")

// NewItem registers a live item at its workflow's first stage and appends the
// initial started ledger entry in the same transaction.
func (s *Store) NewItem(ctx context.Context, params NewItemParams) (*Item, error) {
	now := time.Now().UTC()
	timestamp := formatTime(now)

	metaArg, err := marshalMetadata(params.Metadata)
	if err != nil {
		return nil, err
	}

	var dup int
	if err := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT (SELECT COUNT(1) FROM items WHERE item_id = ?) + (SELECT COUNT(1) FROM completed_items WHERE item_id = ?)`,
		params.ItemID, params.ItemID,
	).Scan(&dup); err != nil {
		return nil, fmt.Errorf("check duplicate item: %w", err)
	}
	if dup > 0 {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateItem, params.ItemID)
	}

	var ref int64
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO items (
                item_id, workflow_id, current_stage_id, status,
                started_at, updated_at, assigned_to, qr_code, metadata_json
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			params.ItemID,
			params.WorkflowID,
			params.StageID,
			StatusActive,
			timestamp,
			timestamp,
			nullableString(params.AssignedTo),
			nullableString(params.QRCode),
			metaArg,
		)
		if err != nil {
			return fmt.Errorf("insert item: %w", err)
		}
		ref, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("last insert id: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO item_history (item_ref, stage_id, stage_name, action, timestamp, user_id, notes)
             VALUES (?, ?, ?, ?, ?, ?, NULL)`,
			ref,
			params.StageID,
			params.StageName,
			HistoryStarted,
			timestamp,
			nullableString(params.UserID),
		); err != nil {
			return fmt.Errorf("insert initial history: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetByRef(ctx, ref)
}

// GetByRef fetches a live item by internal row id.
func (s *Store) GetByRef(ctx context.Context, ref int64) (*Item, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+itemColumns+` FROM items WHERE id = ?`, ref)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// GetByItemID fetches a live item by business key.
func (s *Store) GetByItemID(ctx context.Context, itemID string) (*Item, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+itemColumns+` FROM items WHERE item_id = ?`, itemID)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item by id: %w", err)
	}
	return item, nil
}

// SetStatus updates the live status of an item without moving stages.
func (s *Store) SetStatus(ctx context.Context, ref int64, status ItemStatus) error {
	if _, ok := liveStatuses[status]; !ok {
		return fmt.Errorf("status %q is not a live item status", status)
	}
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE items SET status = ?, updated_at = ? WHERE id = ?`,
		status,
		formatTime(time.Now()),
		ref,
	); err != nil {
		return fmt.Errorf("set item status: %w", err)
	}
	return nil
}

// List returns live items filtered by status set (or all items when no status
// is provided), ordered by start time.
func (s *Store) List(ctx context.Context, statuses ...ItemStatus) ([]*Item, error) {
	ctx = ensureContext(ctx)
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + itemColumns + ` FROM items`
	orderClause := ` ORDER BY started_at`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ListByWorkflow returns live items attached to a workflow.
func (s *Store) ListByWorkflow(ctx context.Context, workflowID string) ([]*Item, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `SELECT `+itemColumns+` FROM items WHERE workflow_id = ? ORDER BY started_at`, workflowID)
	if err != nil {
		return nil, fmt.Errorf("list items by workflow: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Stats returns a count of live items grouped by status.
func (s *Store) Stats(ctx context.Context) (map[ItemStatus]int, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM items GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("item stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[ItemStatus]int)
	for rows.Next() {
		var status ItemStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Health aggregates store state for diagnostic output.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	health := HealthSummary{}
	for status, count := range stats {
		health.Live += count
		switch status {
		case StatusActive:
			health.Active += count
		case StatusPaused:
			health.Paused += count
		case StatusError:
			health.Error += count
		}
	}

	ctx = ensureContext(ctx)
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM completed_items`).Scan(&health.Completed); err != nil {
		return health, fmt.Errorf("count completed items: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM scans`).Scan(&health.Scans); err != nil {
		return health, fmt.Errorf("count scans: %w", err)
	}
	return health, nil
}

const itemColumns = "id, item_id, workflow_id, current_stage_id, status, started_at, updated_at, assigned_to, qr_code, metadata_json"

func scanItem(scanner interface{ Scan(dest ...any) error }) (*Item, error) {
	var (
		ref        int64
		itemID     string
		workflowID string
		stageID    string
		statusStr  string
		startedRaw string
		updatedRaw string
		assignedTo sql.NullString
		qrCode     sql.NullString
		metadata   sql.NullString
	)

	if err := scanner.Scan(
		&ref,
		&itemID,
		&workflowID,
		&stageID,
		&statusStr,
		&startedRaw,
		&updatedRaw,
		&assignedTo,
		&qrCode,
		&metadata,
	); err != nil {
		return nil, err
	}

	item := &Item{
		Ref:            ref,
		ItemID:         itemID,
		WorkflowID:     workflowID,
		CurrentStageID: stageID,
		Status:         ItemStatus(statusStr),
		AssignedTo:     assignedTo.String,
		QRCode:         qrCode.String,
		Metadata:       unmarshalMetadata(metadata),
	}
	if started, err := parseTimeString(startedRaw); err == nil {
		item.StartedAt = started
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		item.UpdatedAt = updated
	}
	return item, nil
}
