package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"groovy/internal/logging"
	"groovy/internal/observability"
	"groovy/internal/scanner"
	"groovy/internal/tracking"
	"groovy/internal/workflow"
)

// Engine drives items through workflow stages. It owns the transition rules;
// the tracking store only persists what the engine decides.
type Engine struct {
	store   *tracking.Store
	scans   *scanner.Logger
	logger  *slog.Logger
	metrics *observability.Metrics
}

func New(store *tracking.Store, scans *scanner.Logger, logger *slog.Logger, metrics *observability.Metrics) *Engine {
	return &Engine{
		store:   store,
		scans:   scans,
		logger:  logging.NewComponentLogger(logger, "engine"),
		metrics: metrics,
	}
}

// TransitionStatus reports how a transition request resolved.
type TransitionStatus string

const (
	// StatusAdvanced means the item moved to a later live stage.
	StatusAdvanced TransitionStatus = "advanced"
	// StatusCompleted means the item finished its terminal stage and was
	// archived to the completed store.
	StatusCompleted TransitionStatus = "completed"
)

// Result describes the outcome of a stage transition. Item is set for
// advances; Completed is set when the item was archived.
type Result struct {
	Status    TransitionStatus
	Item      *tracking.Item
	NextStage *workflow.Stage
	Completed *tracking.CompletedItem
}

// CreateItemRequest registers a new item at the first stage of a workflow.
// ItemID is optional; when empty a GRV-prefixed identifier is generated.
type CreateItemRequest struct {
	WorkflowID string
	ItemID     string
	AssignedTo string
	Metadata   tracking.Metadata
	UserID     string
}

// CreateItem places a new item at the workflow's first stage and writes the
// initial history entry.
func (e *Engine) CreateItem(ctx context.Context, req CreateItemRequest) (*tracking.Item, error) {
	def, err := e.resolveWorkflow(ctx, req.WorkflowID)
	if err != nil {
		return nil, err
	}
	first, ok := def.FirstStage()
	if !ok {
		return nil, fmt.Errorf("%w: workflow %s has no stages", ErrStageNotFound, def.ID)
	}

	itemID := strings.TrimSpace(req.ItemID)
	if itemID == "" {
		itemID = "GRV-" + uuid.NewString()
	}

	item, err := e.store.NewItem(ctx, tracking.NewItemParams{
		ItemID:     itemID,
		WorkflowID: def.ID,
		StageID:    first.ID,
		StageName:  first.Name,
		AssignedTo: req.AssignedTo,
		QRCode:     "item:" + itemID,
		Metadata:   req.Metadata,
		UserID:     req.UserID,
	})
	if err != nil {
		return nil, err
	}
	e.logger.Info("item created",
		logging.FieldItemID, item.ItemID,
		logging.FieldWorkflowID, item.WorkflowID,
		logging.FieldStage, first.ID)
	return item, nil
}

// PauseItem marks a live item paused. Paused items keep their stage and can
// be resumed later.
func (e *Engine) PauseItem(ctx context.Context, itemID string) (*tracking.Item, error) {
	return e.setStatus(ctx, itemID, tracking.StatusPaused)
}

// ResumeItem returns a paused or errored item to active.
func (e *Engine) ResumeItem(ctx context.Context, itemID string) (*tracking.Item, error) {
	return e.setStatus(ctx, itemID, tracking.StatusActive)
}

// FlagItem marks an item as needing attention. The reason is appended to the
// item's history so the flag survives a later resume.
func (e *Engine) FlagItem(ctx context.Context, itemID, reason, userID string) (*tracking.Item, error) {
	item, err := e.setStatus(ctx, itemID, tracking.StatusError)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(reason) != "" {
		stageName := item.CurrentStageID
		if def, err := e.resolveWorkflow(ctx, item.WorkflowID); err == nil {
			if stage, ok := def.StageByID(item.CurrentStageID); ok {
				stageName = stage.Name
			}
		}
		entry := tracking.HistoryEntry{
			ItemRef:   item.Ref,
			StageID:   item.CurrentStageID,
			StageName: stageName,
			Action:    tracking.HistoryFlagged,
			UserID:    userID,
			Notes:     reason,
		}
		if _, err := e.store.AppendHistory(ctx, entry); err != nil {
			return nil, err
		}
	}
	return item, nil
}

func (e *Engine) setStatus(ctx context.Context, itemID string, status tracking.ItemStatus) (*tracking.Item, error) {
	item, err := e.resolveItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if err := e.store.SetStatus(ctx, item.Ref, status); err != nil {
		return nil, err
	}
	item.Status = status
	return item, nil
}

func (e *Engine) resolveItem(ctx context.Context, itemID string) (*tracking.Item, error) {
	item, err := e.store.GetByItemID(ctx, strings.TrimSpace(itemID))
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("%w: %s", ErrItemNotFound, itemID)
	}
	return item, nil
}

func (e *Engine) resolveWorkflow(ctx context.Context, workflowID string) (*workflow.Definition, error) {
	def, err := e.store.GetWorkflow(ctx, strings.TrimSpace(workflowID))
	if err != nil {
		return nil, err
	}
	if def == nil {
		return nil, fmt.Errorf("%w: %s", ErrWorkflowNotFound, workflowID)
	}
	return def, nil
}
