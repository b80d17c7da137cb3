package api

import (
	"time"

	"groovy/internal/tracking"
	"groovy/internal/workflow"
)

// FromItem converts a tracking record to its API representation.
func FromItem(item *tracking.Item) Item {
	if item == nil {
		return Item{}
	}
	return Item{
		ItemID:         item.ItemID,
		WorkflowID:     item.WorkflowID,
		CurrentStageID: item.CurrentStageID,
		Status:         string(item.Status),
		StartedAt:      FormatTime(item.StartedAt),
		UpdatedAt:      FormatTime(item.UpdatedAt),
		AssignedTo:     item.AssignedTo,
		QRCode:         item.QRCode,
		Metadata:       item.Metadata,
	}
}

// FromItems converts a slice of tracking records into API DTOs.
func FromItems(items []*tracking.Item) []Item {
	if len(items) == 0 {
		return nil
	}
	out := make([]Item, 0, len(items))
	for _, item := range items {
		out = append(out, FromItem(item))
	}
	return out
}

// FromHistoryEntry converts a live ledger row.
func FromHistoryEntry(entry *tracking.HistoryEntry) HistoryEntry {
	if entry == nil {
		return HistoryEntry{}
	}
	return HistoryEntry{
		StageID:   entry.StageID,
		StageName: entry.StageName,
		Action:    string(entry.Action),
		Timestamp: FormatTime(entry.Timestamp),
		UserID:    entry.UserID,
		Notes:     entry.Notes,
		Metadata:  entry.Metadata,
	}
}

// FromCompletedHistoryEntry converts an archived ledger row.
func FromCompletedHistoryEntry(entry *tracking.CompletedHistoryEntry) HistoryEntry {
	if entry == nil {
		return HistoryEntry{}
	}
	return HistoryEntry{
		StageID:   entry.StageID,
		StageName: entry.StageName,
		Action:    string(entry.Action),
		Timestamp: FormatTime(entry.Timestamp),
		UserID:    entry.UserID,
		Notes:     entry.Notes,
		Metadata:  entry.Metadata,
	}
}

// FromCompletedItem converts an archived item record.
func FromCompletedItem(item *tracking.CompletedItem) CompletedItem {
	if item == nil {
		return CompletedItem{}
	}
	return CompletedItem{
		ItemID:          item.ItemID,
		WorkflowID:      item.WorkflowID,
		FinalStageID:    item.FinalStageID,
		FinalStageName:  item.FinalStageName,
		StartedAt:       FormatTime(item.StartedAt),
		CompletedAt:     FormatTime(item.CompletedAt),
		CompletionNotes: item.CompletionNotes,
		CompletedBy:     item.CompletedBy,
		Metadata:        item.Metadata,
	}
}

// FromCompletedItems converts a slice of archived records.
func FromCompletedItems(items []*tracking.CompletedItem) []CompletedItem {
	if len(items) == 0 {
		return nil
	}
	out := make([]CompletedItem, 0, len(items))
	for _, item := range items {
		out = append(out, FromCompletedItem(item))
	}
	return out
}

// FromScan converts a scan audit record.
func FromScan(scan *tracking.Scan) Scan {
	if scan == nil {
		return Scan{}
	}
	return Scan{
		ID:           scan.ID,
		ItemID:       scan.ItemID,
		QRData:       scan.QRData,
		ScanType:     string(scan.Type),
		Success:      scan.Success,
		ErrorMessage: scan.ErrorMessage,
		UserID:       scan.UserID,
		StageID:      scan.StageID,
		WorkflowID:   scan.WorkflowID,
		Timestamp:    FormatTime(scan.Timestamp),
		DeviceInfo:   scan.DeviceInfo,
		Metadata:     scan.Metadata,
	}
}

// FromScans converts a slice of scan records.
func FromScans(scans []*tracking.Scan) []Scan {
	if len(scans) == 0 {
		return nil
	}
	out := make([]Scan, 0, len(scans))
	for _, scan := range scans {
		out = append(out, FromScan(scan))
	}
	return out
}

// FromScanStats converts aggregated scan outcomes.
func FromScanStats(stats tracking.ScanStats) ScanStats {
	return ScanStats{
		Total:       stats.Total,
		Succeeded:   stats.Succeeded,
		Failed:      stats.Failed,
		SuccessRate: stats.SuccessRate,
	}
}

// FromWorkflow converts a workflow definition into its API summary.
func FromWorkflow(def *workflow.Definition) Workflow {
	if def == nil {
		return Workflow{}
	}
	stages := def.OrderedStages()
	out := Workflow{ID: def.ID, Name: def.Name, Stages: make([]WorkflowStage, 0, len(stages))}
	for i := range stages {
		_, hasScan := stages[i].ScanAction()
		out.Stages = append(out.Stages, WorkflowStage{
			ID:           stages[i].ID,
			Name:         stages[i].Name,
			Order:        stages[i].Order,
			ScanRequired: hasScan,
			AllowedNext:  stages[i].AllowedNext,
		})
	}
	return out
}

// FromWorkflows converts a slice of definitions.
func FromWorkflows(defs []*workflow.Definition) []Workflow {
	if len(defs) == 0 {
		return nil
	}
	out := make([]Workflow, 0, len(defs))
	for _, def := range defs {
		out = append(out, FromWorkflow(def))
	}
	return out
}

// MergeItemStats produces a string-keyed representation of item stats.
func MergeItemStats(stats map[tracking.ItemStatus]int) map[string]int {
	out := make(map[string]int, len(stats))
	for status, count := range stats {
		out[string(status)] = count
	}
	return out
}

// FormatTime converts a time to RFC3339 or returns empty string.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
