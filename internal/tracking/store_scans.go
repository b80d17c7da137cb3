package tracking

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// InsertScan appends one immutable scan audit record and returns its id. The
// timestamp is always server-assigned.
func (s *Store) InsertScan(ctx context.Context, scan Scan) (int64, error) {
	now := time.Now().UTC()
	deviceArg, err := marshalMetadata(scan.DeviceInfo)
	if err != nil {
		return 0, err
	}
	metaArg, err := marshalMetadata(scan.Metadata)
	if err != nil {
		return 0, err
	}
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO scans (
            item_id, qr_data, scan_type, success, error_message,
            user_id, stage_id, workflow_id, timestamp, device_info_json, metadata_json
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullableString(scan.ItemID),
		scan.QRData,
		scan.Type,
		boolToInt(scan.Success),
		nullableString(scan.ErrorMessage),
		nullableString(scan.UserID),
		nullableString(scan.StageID),
		nullableString(scan.WorkflowID),
		formatTime(now),
		deviceArg,
		metaArg,
	)
	if err != nil {
		return 0, fmt.Errorf("insert scan: %w", err)
	}
	return res.LastInsertId()
}

// CountScansSince counts a user's scan attempts recorded at or after the
// cutoff. This backs the best-effort rate limiter.
func (s *Store) CountScansSince(ctx context.Context, userID string, cutoff time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT COUNT(1) FROM scans WHERE user_id = ? AND timestamp >= ?`,
		userID,
		formatTime(cutoff),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count scans: %w", err)
	}
	return count, nil
}

// RecentScansByUser returns a user's newest scans, capped at limit.
func (s *Store) RecentScansByUser(ctx context.Context, userID string, limit int) ([]*Scan, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT `+scanColumns+` FROM scans WHERE user_id = ? ORDER BY id DESC LIMIT ?`,
		userID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent scans: %w", err)
	}
	defer rows.Close()
	return collectScans(rows)
}

// ScansByItem returns every scan referencing a business item id, oldest first.
func (s *Store) ScansByItem(ctx context.Context, itemID string) ([]*Scan, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT `+scanColumns+` FROM scans WHERE item_id = ? ORDER BY id`,
		itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("scans by item: %w", err)
	}
	defer rows.Close()
	return collectScans(rows)
}

// ScanStatsSince aggregates scan outcomes recorded at or after the cutoff.
func (s *Store) ScanStatsSince(ctx context.Context, cutoff time.Time) (ScanStats, error) {
	var stats ScanStats
	err := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT COUNT(1), COALESCE(SUM(success), 0) FROM scans WHERE timestamp >= ?`,
		formatTime(cutoff),
	).Scan(&stats.Total, &stats.Succeeded)
	if err != nil {
		return ScanStats{}, fmt.Errorf("scan stats: %w", err)
	}
	stats.Failed = stats.Total - stats.Succeeded
	if stats.Total > 0 {
		stats.SuccessRate = float64(stats.Succeeded) / float64(stats.Total)
	}
	return stats, nil
}

const scanColumns = "id, item_id, qr_data, scan_type, success, error_message, user_id, stage_id, workflow_id, timestamp, device_info_json, metadata_json"

func collectScans(rows *sql.Rows) ([]*Scan, error) {
	var scans []*Scan
	for rows.Next() {
		scan, err := scanScanRow(rows)
		if err != nil {
			return nil, err
		}
		scans = append(scans, scan)
	}
	return scans, rows.Err()
}

func scanScanRow(scanner interface{ Scan(dest ...any) error }) (*Scan, error) {
	var (
		id         int64
		itemID     sql.NullString
		qrData     string
		scanType   string
		success    int
		errMsg     sql.NullString
		userID     sql.NullString
		stageID    sql.NullString
		workflowID sql.NullString
		tsRaw      string
		deviceInfo sql.NullString
		metadata   sql.NullString
	)
	if err := scanner.Scan(&id, &itemID, &qrData, &scanType, &success, &errMsg, &userID, &stageID, &workflowID, &tsRaw, &deviceInfo, &metadata); err != nil {
		return nil, err
	}
	scan := &Scan{
		ID:           id,
		ItemID:       itemID.String,
		QRData:       qrData,
		Type:         ScanType(scanType),
		Success:      success != 0,
		ErrorMessage: errMsg.String,
		UserID:       userID.String,
		StageID:      stageID.String,
		WorkflowID:   workflowID.String,
		DeviceInfo:   unmarshalMetadata(deviceInfo),
		Metadata:     unmarshalMetadata(metadata),
	}
	if ts, err := parseTimeString(tsRaw); err == nil {
		scan.Timestamp = ts
	}
	return scan, nil
}
