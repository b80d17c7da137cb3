package ipc

import "groovy/internal/api"

// StartRequest resumes daemon processing.
type StartRequest struct{}

// StartResponse indicates whether the daemon was started.
type StartResponse struct {
	Started bool   `json:"started"`
	Message string `json:"message"`
}

// StopRequest stops daemon processing.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse represents daemon runtime information.
type StatusResponse struct {
	Running        bool           `json:"running"`
	PID            int            `json:"pid"`
	DatabasePath   string         `json:"database_path"`
	LockPath       string         `json:"lock_path"`
	APIAddr        string         `json:"api_addr"`
	LiveItems      int            `json:"live_items"`
	CompletedItems int            `json:"completed_items"`
	Scans          int            `json:"scans"`
	ItemStats      map[string]int `json:"item_stats"`
}

// Item mirrors the HTTP API item DTO for IPC callers.
type Item = api.Item

// CompletedItem mirrors the HTTP API completed item DTO.
type CompletedItem = api.CompletedItem

// HistoryEntry mirrors the HTTP API ledger DTO.
type HistoryEntry = api.HistoryEntry

// Workflow mirrors the HTTP API workflow summary.
type Workflow = api.Workflow

// ItemListRequest filters live items by status or workflow.
type ItemListRequest struct {
	Statuses   []string `json:"statuses"`
	WorkflowID string   `json:"workflow_id"`
}

// ItemListResponse contains live items.
type ItemListResponse struct {
	Items []Item `json:"items"`
}

// ItemDescribeRequest fetches a single live item by business key.
type ItemDescribeRequest struct {
	ItemID string `json:"item_id"`
}

// ItemDescribeResponse contains a single live item.
type ItemDescribeResponse struct {
	Item Item `json:"item"`
}

// ItemHistoryRequest fetches an item's ledger, live or archived.
type ItemHistoryRequest struct {
	ItemID string `json:"item_id"`
}

// ItemHistoryResponse returns ledger entries oldest first. Completed reports
// whether the entries came from the archive.
type ItemHistoryResponse struct {
	ItemID    string         `json:"item_id"`
	Completed bool           `json:"completed"`
	Entries   []HistoryEntry `json:"entries"`
}

// ItemAddRequest registers a new item on a workflow.
type ItemAddRequest struct {
	WorkflowID string `json:"workflow_id"`
	ItemID     string `json:"item_id"`
	AssignedTo string `json:"assigned_to"`
	UserID     string `json:"user_id"`
}

// ItemAddResponse contains the registered item.
type ItemAddResponse struct {
	Item Item `json:"item"`
}

// CompletedListRequest fetches the newest archived items.
type CompletedListRequest struct {
	Limit int `json:"limit"`
}

// CompletedListResponse contains archived items.
type CompletedListResponse struct {
	Items []CompletedItem `json:"items"`
}

// ScanStatsRequest aggregates scan outcomes over a trailing window.
type ScanStatsRequest struct {
	WindowSeconds int `json:"window_seconds"`
}

// ScanStatsResponse reports scan volume and success rate.
type ScanStatsResponse struct {
	WindowSeconds int     `json:"window_seconds"`
	Total         int     `json:"total"`
	Succeeded     int     `json:"succeeded"`
	Failed        int     `json:"failed"`
	SuccessRate   float64 `json:"success_rate"`
}

// WorkflowListRequest fetches stored workflow definitions.
type WorkflowListRequest struct{}

// WorkflowListResponse contains workflow summaries.
type WorkflowListResponse struct {
	Workflows []Workflow `json:"workflows"`
}

// WorkflowDefineRequest stores a workflow definition given as TOML text, the
// same format the definitions directory uses.
type WorkflowDefineRequest struct {
	TOML string `json:"toml"`
}

// WorkflowDefineResponse contains the stored workflow summary.
type WorkflowDefineResponse struct {
	Workflow Workflow `json:"workflow"`
}
