package tracking

import (
	"strings"
	"time"
)

// ItemStatus represents the lifecycle of a live item. Completed items never
// carry a live status; they exist only in the archive tables.
type ItemStatus string

const (
	StatusActive ItemStatus = "active"
	StatusPaused ItemStatus = "paused"
	StatusError  ItemStatus = "error"
	// StatusCompleted appears only in transport payloads describing archived
	// items; the live table never stores it.
	StatusCompleted ItemStatus = "completed"
)

var liveStatuses = map[ItemStatus]struct{}{
	StatusActive: {},
	StatusPaused: {},
	StatusError:  {},
}

// ParseItemStatus converts a string into a known live ItemStatus.
func ParseItemStatus(value string) (ItemStatus, bool) {
	normalized := ItemStatus(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := liveStatuses[normalized]
	return normalized, ok
}

// HistoryAction classifies a ledger entry.
type HistoryAction string

const (
	HistoryStarted   HistoryAction = "started"
	HistoryCompleted HistoryAction = "completed"
	HistoryOverride  HistoryAction = "override"
	HistoryFlagged   HistoryAction = "flagged"
)

// ScanType classifies the intent of a scan attempt.
type ScanType string

const (
	ScanItemLookup      ScanType = "item_lookup"
	ScanStageCompletion ScanType = "stage_completion"
	ScanError           ScanType = "error"
)

var knownScanTypes = map[ScanType]struct{}{
	ScanItemLookup:      {},
	ScanStageCompletion: {},
	ScanError:           {},
}

// ParseScanType converts a string into a known ScanType.
func ParseScanType(value string) (ScanType, bool) {
	normalized := ScanType(strings.ToLower(strings.TrimSpace(value)))
	_, ok := knownScanTypes[normalized]
	return normalized, ok
}

// Metadata is an opaque key-value blob carried alongside records. The engine
// never inspects its contents; it is serialized as JSON at the storage edge.
type Metadata map[string]any

// Item is a live production item advancing through a workflow.
type Item struct {
	Ref            int64 // internal row id; meaningless after archival
	ItemID         string
	WorkflowID     string
	CurrentStageID string
	Status         ItemStatus
	StartedAt      time.Time
	UpdatedAt      time.Time
	AssignedTo     string
	QRCode         string
	Metadata       Metadata
}

// HistoryEntry is one append-only ledger row for a live item.
type HistoryEntry struct {
	ID        int64
	ItemRef   int64
	StageID   string
	StageName string
	Action    HistoryAction
	Timestamp time.Time
	UserID    string
	Notes     string
	Metadata  Metadata
}

// CompletedItem is the immutable archival record of an item that reached a
// terminal stage.
type CompletedItem struct {
	ID              int64
	ItemID          string
	WorkflowID      string
	FinalStageID    string
	FinalStageName  string
	StartedAt       time.Time
	CompletedAt     time.Time
	CompletionNotes string
	CompletedBy     string
	Metadata        Metadata
}

// CompletedHistoryEntry mirrors HistoryEntry but is keyed by the business
// item id, since the live row and its internal ref are gone after archival.
type CompletedHistoryEntry struct {
	ID        int64
	ItemID    string
	StageID   string
	StageName string
	Action    HistoryAction
	Timestamp time.Time
	UserID    string
	Notes     string
	Metadata  Metadata
}

// Scan is an immutable audit record of a single scan attempt.
type Scan struct {
	ID           int64
	ItemID       string
	QRData       string
	Type         ScanType
	Success      bool
	ErrorMessage string
	UserID       string
	StageID      string
	WorkflowID   string
	Timestamp    time.Time
	DeviceInfo   Metadata
	Metadata     Metadata
}

// ScanStats aggregates scan outcomes over a time window.
type ScanStats struct {
	Total       int
	Succeeded   int
	Failed      int
	SuccessRate float64
}

// HealthSummary describes aggregated item counts per key lifecycle states.
type HealthSummary struct {
	Live      int
	Active    int
	Paused    int
	Error     int
	Completed int
	Scans     int
}
