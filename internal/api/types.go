package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Item describes a live tracked item in a transport-friendly format.
type Item struct {
	ItemID         string         `json:"itemId"`
	WorkflowID     string         `json:"workflowId"`
	CurrentStageID string         `json:"currentStageId"`
	Status         string         `json:"status"`
	StartedAt      string         `json:"startedAt,omitempty"`
	UpdatedAt      string         `json:"updatedAt,omitempty"`
	AssignedTo     string         `json:"assignedTo,omitempty"`
	QRCode         string         `json:"qrCode,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// HistoryEntry is one ledger row, shared between live and completed items.
type HistoryEntry struct {
	StageID   string         `json:"stageId"`
	StageName string         `json:"stageName"`
	Action    string         `json:"action"`
	Timestamp string         `json:"timestamp,omitempty"`
	UserID    string         `json:"userId,omitempty"`
	Notes     string         `json:"notes,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// CompletedItem describes an archived item.
type CompletedItem struct {
	ItemID          string         `json:"itemId"`
	WorkflowID      string         `json:"workflowId"`
	FinalStageID    string         `json:"finalStageId"`
	FinalStageName  string         `json:"finalStageName"`
	StartedAt       string         `json:"startedAt,omitempty"`
	CompletedAt     string         `json:"completedAt,omitempty"`
	CompletionNotes string         `json:"completionNotes,omitempty"`
	CompletedBy     string         `json:"completedBy,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

// Scan is the transport form of one scan audit record.
type Scan struct {
	ID           int64          `json:"id"`
	ItemID       string         `json:"itemId,omitempty"`
	QRData       string         `json:"qrData"`
	ScanType     string         `json:"scanType"`
	Success      bool           `json:"success"`
	ErrorMessage string         `json:"errorMessage,omitempty"`
	UserID       string         `json:"userId"`
	StageID      string         `json:"stageId,omitempty"`
	WorkflowID   string         `json:"workflowId,omitempty"`
	Timestamp    string         `json:"timestamp,omitempty"`
	DeviceInfo   map[string]any `json:"deviceInfo,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// ScanStats aggregates scan outcomes over a window.
type ScanStats struct {
	Total       int     `json:"total"`
	Succeeded   int     `json:"succeeded"`
	Failed      int     `json:"failed"`
	SuccessRate float64 `json:"successRate"`
}

// WorkflowStage summarizes one stage of a workflow definition.
type WorkflowStage struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Order        int      `json:"order"`
	ScanRequired bool     `json:"scanRequired"`
	AllowedNext  []string `json:"allowedNext,omitempty"`
}

// Workflow summarizes a stored workflow definition.
type Workflow struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Stages []WorkflowStage `json:"stages"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running        bool           `json:"running"`
	PID            int            `json:"pid"`
	DatabasePath   string         `json:"databasePath"`
	LockFilePath   string         `json:"lockFilePath"`
	LiveItems      int            `json:"liveItems"`
	CompletedItems int            `json:"completedItems"`
	Scans          int            `json:"scans"`
	ItemStats      map[string]int `json:"itemStats"`
}

// ItemListResponse wraps a collection of live items.
type ItemListResponse struct {
	Items []Item `json:"items"`
}

// ItemResponse wraps a single live item.
type ItemResponse struct {
	Item Item `json:"item"`
}

// HistoryResponse wraps an item's ledger.
type HistoryResponse struct {
	ItemID  string         `json:"itemId"`
	Entries []HistoryEntry `json:"entries"`
}

// CompletedListResponse wraps archived items.
type CompletedListResponse struct {
	Items []CompletedItem `json:"items"`
}

// CompletedResponse wraps a single archived item.
type CompletedResponse struct {
	Item CompletedItem `json:"item"`
}

// ScanListResponse wraps scan audit records.
type ScanListResponse struct {
	Scans []Scan `json:"scans"`
}

// ScanStatsResponse wraps aggregated scan stats.
type ScanStatsResponse struct {
	WindowSeconds int       `json:"windowSeconds"`
	Stats         ScanStats `json:"stats"`
}

// WorkflowListResponse wraps stored workflow definitions.
type WorkflowListResponse struct {
	Workflows []Workflow `json:"workflows"`
}

// TransitionResponse reports how a transition request resolved. NextStageID
// is set for advances; Completed is set when the item was archived.
type TransitionResponse struct {
	Status      string         `json:"status"`
	Item        *Item          `json:"item,omitempty"`
	NextStageID string         `json:"nextStageId,omitempty"`
	Completed   *CompletedItem `json:"completed,omitempty"`
}

// CreateItemRequest is the payload for registering a new item.
type CreateItemRequest struct {
	WorkflowID string         `json:"workflowId"`
	ItemID     string         `json:"itemId,omitempty"`
	AssignedTo string         `json:"assignedTo,omitempty"`
	UserID     string         `json:"userId,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// AdvanceRequest is the payload for a direct stage advance.
type AdvanceRequest struct {
	ToStageID string `json:"toStageId"`
	UserID    string `json:"userId,omitempty"`
	Notes     string `json:"notes,omitempty"`
}

// OverrideRequest is the payload for an administrative stage override.
type OverrideRequest struct {
	ToStageID string `json:"toStageId"`
	UserID    string `json:"userId,omitempty"`
	Reason    string `json:"reason"`
}

// CompleteScanRequest is the payload for a scan-gated stage completion.
type CompleteScanRequest struct {
	StageID    string         `json:"stageId"`
	QRData     string         `json:"qrData"`
	UserID     string         `json:"userId,omitempty"`
	DeviceInfo map[string]any `json:"deviceInfo,omitempty"`
}

// LogScanRequest is the payload for a standalone scan record.
type LogScanRequest struct {
	QRData       string         `json:"qrData"`
	ScanType     string         `json:"scanType"`
	Success      bool           `json:"success"`
	ErrorMessage string         `json:"errorMessage,omitempty"`
	UserID       string         `json:"userId,omitempty"`
	ItemID       string         `json:"itemId,omitempty"`
	StageID      string         `json:"stageId,omitempty"`
	WorkflowID   string         `json:"workflowId,omitempty"`
	DeviceInfo   map[string]any `json:"deviceInfo,omitempty"`
}

// LogScanResponse returns the id of a recorded scan.
type LogScanResponse struct {
	ScanID int64 `json:"scanId"`
}
