package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"groovy/internal/config"
	"groovy/internal/logging"
	"groovy/internal/observability"
	"groovy/internal/tracking"
)

// ErrRateLimited indicates a user exceeded the scan rate limit; nothing is
// persisted for the rejected attempt.
var ErrRateLimited = errors.New("scan rate limit exceeded")

// AnonymousUser is the audit identity recorded when a scan carries no user.
const AnonymousUser = "anonymous"

var itemQRPattern = regexp.MustCompile(`^item:(.+)$`)

// ParseItemQR extracts the business item id from an item:<id> QR payload.
func ParseItemQR(qrData string) (string, bool) {
	match := itemQRPattern.FindStringSubmatch(qrData)
	if match == nil {
		return "", false
	}
	return match[1], true
}

// Request describes one scan attempt to be admitted and recorded.
type Request struct {
	QRData       string
	Type         tracking.ScanType
	Success      bool
	ErrorMessage string
	UserID       string
	ItemID       string
	StageID      string
	WorkflowID   string
	DeviceInfo   tracking.Metadata
	Metadata     tracking.Metadata
}

// Logger admits or rejects scan attempts and unconditionally persists an
// audit record for every admitted one.
type Logger struct {
	store    *tracking.Store
	logger   *slog.Logger
	metrics  *observability.Metrics
	window   time.Duration
	maxScans int
}

// New constructs a scan logger with rate limits taken from config.
func New(cfg *config.Config, store *tracking.Store, logger *slog.Logger, metrics *observability.Metrics) *Logger {
	window := time.Duration(defaultWindowSeconds(cfg)) * time.Second
	return &Logger{
		store:    store,
		logger:   logging.NewComponentLogger(logger, "scanner"),
		metrics:  metrics,
		window:   window,
		maxScans: defaultMaxScans(cfg),
	}
}

func defaultWindowSeconds(cfg *config.Config) int {
	if cfg == nil {
		return 5
	}
	return cfg.Scanner.RateLimitWindowSeconds
}

func defaultMaxScans(cfg *config.Config) int {
	if cfg == nil {
		return 10
	}
	return cfg.Scanner.RateLimitMaxScans
}

// LogScan applies the rate limit, resolves lookup QR payloads, and appends
// one audit record. The record id is returned for cross-referencing.
//
// The limit is a read-then-write count over the audit table and therefore
// best-effort under concurrency, which is acceptable for throttling runaway
// scanner hardware.
func (l *Logger) LogScan(ctx context.Context, req Request) (int64, error) {
	user := strings.TrimSpace(req.UserID)
	if user == "" {
		user = AnonymousUser
	}

	if l.maxScans > 0 && l.window > 0 {
		cutoff := time.Now().UTC().Add(-l.window)
		count, err := l.store.CountScansSince(ctx, user, cutoff)
		if err != nil {
			return 0, err
		}
		if count >= l.maxScans {
			l.metrics.ObserveRateLimitRejection()
			l.logger.Warn("scan rejected by rate limit",
				logging.String(logging.FieldUserID, user),
				logging.Int("window_count", count),
				logging.Int("max_scans", l.maxScans),
			)
			return 0, fmt.Errorf("%w: user %s made %d scans in the last %s", ErrRateLimited, user, count, l.window)
		}
	}

	itemID := req.ItemID
	if req.Type == tracking.ScanItemLookup && itemID == "" {
		// A non-matching payload is not an error; the record simply has no
		// item reference.
		if parsed, ok := ParseItemQR(req.QRData); ok {
			itemID = parsed
		}
	}

	id, err := l.store.InsertScan(ctx, tracking.Scan{
		ItemID:       itemID,
		QRData:       req.QRData,
		Type:         req.Type,
		Success:      req.Success,
		ErrorMessage: req.ErrorMessage,
		UserID:       user,
		StageID:      req.StageID,
		WorkflowID:   req.WorkflowID,
		DeviceInfo:   req.DeviceInfo,
		Metadata:     req.Metadata,
	})
	if err != nil {
		return 0, err
	}

	l.metrics.ObserveScan(string(req.Type), req.Success)
	l.logger.Debug("scan recorded",
		logging.Int64("scan_id", id),
		logging.String(logging.FieldUserID, user),
		logging.String(logging.FieldScanType, string(req.Type)),
		logging.Bool("success", req.Success),
	)
	return id, nil
}

// RecentByUser returns a user's newest scans.
func (l *Logger) RecentByUser(ctx context.Context, userID string, limit int) ([]*tracking.Scan, error) {
	user := strings.TrimSpace(userID)
	if user == "" {
		user = AnonymousUser
	}
	return l.store.RecentScansByUser(ctx, user, limit)
}

// ByItem returns every scan referencing an item.
func (l *Logger) ByItem(ctx context.Context, itemID string) ([]*tracking.Scan, error) {
	return l.store.ScansByItem(ctx, itemID)
}

// StatsSince aggregates scan outcomes over the trailing window.
func (l *Logger) StatsSince(ctx context.Context, window time.Duration) (tracking.ScanStats, error) {
	if window <= 0 {
		window = 24 * time.Hour
	}
	return l.store.ScanStatsSince(ctx, time.Now().UTC().Add(-window))
}
